package writer

import (
	"fmt"
	"strings"

	"github.com/spirodonfl/literate-programming/internal/block"
	"github.com/spirodonfl/literate-programming/internal/parser"
	"github.com/spirodonfl/literate-programming/internal/resolve"
)

// InjectPlaceholder replaces the first placeholder in text with content.
// Lines after the first inherit the indentation of the placeholder's line.
func InjectPlaceholder(text, placeholder, content string) (string, bool) {
	idx := strings.Index(text, placeholder)
	if idx < 0 {
		return text, false
	}
	lineStart := strings.LastIndex(text[:idx], "\n") + 1
	indent := resolve.LeadingWhitespace(text[lineStart:idx])
	return text[:idx] + resolve.IndentContinuation(content, indent) + text[idx+len(placeholder):], true
}

// SpliceImport replaces the fenced region of an import block (its fence lines
// included) with a plain fence around content. The language of the opening
// fence is kept and its lit- attributes dropped, so the result is no longer
// an import block. The lines must still hold the import's fences, otherwise
// the document changed since it was lexed and ErrImportMoved is returned.
func SpliceImport(text string, imp *block.Import, content string) (string, error) {
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	start, end := imp.StartLine, imp.EndLine
	if start < 1 || end < start || end > len(lines) {
		return text, fmt.Errorf("import block lines %d-%d outside document of %d lines", start, end, len(lines))
	}

	opening := strings.TrimRight(lines[start-1], "\r\n")
	closing := lines[end-1]
	if !isImportFence(opening) || !strings.HasPrefix(closing, "```") {
		return text, fmt.Errorf("%w: lines %d-%d", ErrImportMoved, start, end)
	}
	if !strings.HasSuffix(closing, "\n") {
		closing += "\n"
	}

	var b strings.Builder
	for _, l := range lines[:start-1] {
		b.WriteString(l)
	}
	b.WriteString(plainFence(opening))
	b.WriteString("\n")
	b.WriteString(content)
	if content != "" && !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(closing)
	for _, l := range lines[end:] {
		b.WriteString(l)
	}
	out := b.String()
	if !strings.HasSuffix(text, "\n") {
		out = strings.TrimSuffix(out, "\n")
	}
	return out, nil
}

func isImportFence(line string) bool {
	return strings.HasPrefix(line, "```") && parser.ParseAttributes(line)["type"] == block.KindImport.String()
}

// plainFence cuts an opening fence line at its first lit- attribute
func plainFence(line string) string {
	if starts := parser.AttributeStarts(line); len(starts) > 0 {
		line = line[:starts[0]]
	}
	return strings.TrimRight(line, " \t")
}

// PullFromMarker formats the marker a pull_from block is found by
func PullFromMarker(path, name string, processed bool) string {
	if processed {
		return fmt.Sprintf("<!-- pull_from: %s, block: %s, processed: true -->", path, name)
	}
	return fmt.Sprintf("<!-- pull_from: %s, block: %s -->", path, name)
}

// PatchPullFrom inserts body after the first occurrence of marker, turning
// the marker into the processed form for (path, name). An empty marker means
// the canonical form. It reports false and leaves text alone when the marker
// is not present, so applying it twice changes nothing.
func PatchPullFrom(text, marker, path, name, body string) (string, bool) {
	if marker == "" {
		marker = PullFromMarker(path, name, false)
	}
	if !strings.Contains(text, marker) {
		return text, false
	}
	processed := PullFromMarker(path, name, true)
	return strings.Replace(text, marker, processed+"\n"+strings.TrimSuffix(body, "\n"), 1), true
}
