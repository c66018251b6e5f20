package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/spirodonfl/literate-programming/internal/block"
	"github.com/spirodonfl/literate-programming/internal/paths"
)

// tagMarker prefixes the lines delimiting a tag region
const tagMarker = "lit-tag:"

var (
	ErrTagNotFound  = errors.New("tag not found")
	ErrTagNotClosed = errors.New("tag region not closed")
	ErrInvalidRange = errors.New("invalid line range")
)

// Error reports a failed extraction. For ErrTagNotClosed the extractor still
// returns the content captured before the end of the file.
type Error struct {
	Kind error
	Path string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

// Extractor reads whole files, line ranges and tag regions
type Extractor struct {
	fs    afero.Fs
	paths *paths.Resolver
}

// New creates an extractor resolving relative paths against the resolver's base
func New(fs afero.Fs, r *paths.Resolver) *Extractor {
	return &Extractor{fs: fs, paths: r}
}

// Extract returns the content ref points at. Each returned line ends in "\n".
//
// With a tag, the lines strictly between the first two "lit-tag: <tag>"
// markers are returned. Without one, the 1-based inclusive range
// [LineStart, LineEnd] is returned; unset bounds default to the first and
// last line of the file.
func (x *Extractor) Extract(ref block.Ref) (string, error) {
	path := x.paths.Resolve(ref.Path)
	data, err := afero.ReadFile(x.fs, path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", ref.Path, err)
	}
	lines := splitLines(string(data))

	if ref.Tag != "" {
		return Tag(lines, ref.Tag, path)
	}
	return Range(lines, ref.LineStart, ref.LineEnd, path)
}

// Tag returns the region of lines delimited by two markers for tag
func Tag(lines []string, tag, path string) (string, error) {
	var b strings.Builder
	open := false
	for _, line := range lines {
		if isTagMarker(line, tag) {
			if open {
				return b.String(), nil
			}
			open = true
			continue
		}
		if open {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if !open {
		return "", &Error{Kind: ErrTagNotFound, Path: path, Msg: tag}
	}
	return b.String(), &Error{Kind: ErrTagNotClosed, Path: path, Msg: tag}
}

// Range returns lines start..end, 1-based and inclusive. Zero bounds mean
// the start or end of the file; an end past the last line is clamped.
func Range(lines []string, start, end int, path string) (string, error) {
	if start == 0 {
		start = 1
	}
	if end == 0 || end > len(lines) {
		end = len(lines)
	}
	if start < 1 || start > end {
		if len(lines) == 0 && start == 1 {
			return "", nil
		}
		return "", &Error{Kind: ErrInvalidRange, Path: path, Msg: fmt.Sprintf("lines %d-%d of %d", start, end, len(lines))}
	}

	var b strings.Builder
	for _, line := range lines[start-1 : end] {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// isTagMarker reports whether line holds "lit-tag:" followed by tag as a
// whole word, with or without a space after the colon.
func isTagMarker(line, tag string) bool {
	idx := strings.Index(line, tagMarker)
	for idx >= 0 {
		rest := strings.TrimLeft(line[idx+len(tagMarker):], " \t")
		fields := strings.Fields(rest)
		if len(fields) > 0 && fields[0] == tag {
			return true
		}
		next := strings.Index(line[idx+len(tagMarker):], tagMarker)
		if next < 0 {
			break
		}
		idx += len(tagMarker) + next
	}
	return false
}

// splitLines splits text into lines without producing an empty last line
// for a trailing newline.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
