package filter

import (
	"fmt"
	"regexp"

	"github.com/spirodonfl/literate-programming/internal/block"
	"github.com/spirodonfl/literate-programming/internal/paths"
)

// Apply keeps the output blocks selected by include and not excluded by
// ignore. With a non-empty include list a block is kept when its target or
// its source document is listed. Ignore then drops blocks whose target is
// listed, followed by blocks whose source document is listed. An empty list
// disables its step. Paths are compared after resolving them against the
// resolver's base.
func Apply(outputs []*block.Output, include, ignore []string, r *paths.Resolver) []*block.Output {
	if len(include) > 0 {
		set := resolvedSet(include, r)
		outputs = keep(outputs, func(b *block.Output) bool {
			return set.has(r, b.Path()) || set.has(r, b.Source)
		})
	}
	if len(ignore) > 0 {
		set := resolvedSet(ignore, r)
		outputs = keep(outputs, func(b *block.Output) bool { return !set.has(r, b.Path()) })
		outputs = keep(outputs, func(b *block.Output) bool { return !set.has(r, b.Source) })
	}
	return outputs
}

type pathSet map[string]struct{}

func resolvedSet(list []string, r *paths.Resolver) pathSet {
	set := make(pathSet, len(list))
	for _, p := range list {
		set[r.Resolve(p)] = struct{}{}
	}
	return set
}

func (s pathSet) has(r *paths.Resolver, p string) bool {
	_, ok := s[r.Resolve(p)]
	return ok
}

func keep(outputs []*block.Output, pred func(*block.Output) bool) []*block.Output {
	kept := make([]*block.Output, 0, len(outputs))
	for _, b := range outputs {
		if pred(b) {
			kept = append(kept, b)
		}
	}
	return kept
}

// Narrow limits outputs to a single target file and to documents whose path
// matches a regular expression. Empty arguments disable the respective check.
func Narrow(outputs []*block.Output, outputFile, mdFile string, r *paths.Resolver) ([]*block.Output, error) {
	var docPattern *regexp.Regexp
	if mdFile != "" {
		var err error
		docPattern, err = regexp.Compile(mdFile)
		if err != nil {
			return nil, fmt.Errorf("invalid document pattern %q: %w", mdFile, err)
		}
	}

	kept := make([]*block.Output, 0, len(outputs))
	for _, b := range outputs {
		if outputFile != "" && !r.Same(b.Path(), outputFile) && b.Target != outputFile {
			continue
		}
		if docPattern != nil && !docPattern.MatchString(b.Source) {
			continue
		}
		kept = append(kept, b)
	}
	return kept, nil
}
