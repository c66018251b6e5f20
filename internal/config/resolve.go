package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/spirodonfl/literate-programming/internal/block"
	"github.com/spirodonfl/literate-programming/internal/paths"
)

// Names of the configuration blocks Resolve understands
const (
	BlockInclude = "include"
	BlockIgnore  = "ignore"
	BlockGeneral = "general"
)

// Resolve folds configuration blocks into a copy of o.
//
// include and ignore blocks list one path per line, resolved against the
// directory of the document holding the block, and are appended in order.
// general blocks hold key=value lines; unknown keys are skipped so older
// binaries keep working with newer documents. Bad values are reported in
// the returned error but never stop the remaining lines from applying.
func Resolve(o Options, blocks []*block.Config) (Options, error) {
	o.include = append([]string(nil), o.include...)
	o.ignore = append([]string(nil), o.ignore...)

	var errs error
	for _, b := range blocks {
		dir := filepath.Dir(b.Source)
		switch b.Name {
		case BlockInclude:
			o.include = append(o.include, pathLines(dir, b.Body)...)
		case BlockIgnore:
			o.ignore = append(o.ignore, pathLines(dir, b.Body)...)
		case BlockGeneral:
			for i, line := range strings.Split(b.Body, "\n") {
				if err := o.applyGeneral(line); err != nil {
					errs = multierr.Append(errs, fmt.Errorf("%s:%d: %w", b.Source, b.StartLine+i+1, err))
				}
			}
		}
	}
	return o, errs
}

func pathLines(dir, body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, paths.Against(dir, line))
	}
	return out
}

func (o *Options) applyGeneral(line string) error {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return nil
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	switch key {
	case "output_source":
		o.outputSource = value == "true"
	case "output_source_absolute_paths":
		o.outputSourceAbsolutePaths = value == "true"
	case "unresolved":
		p, err := ParseUnresolvedPolicy(value)
		if err != nil {
			return err
		}
		o.unresolved = p
	case "max_passes":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("max_passes must be a positive integer, got %q", value)
		}
		o.maxPasses = n
	}
	return nil
}
