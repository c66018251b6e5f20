package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spirodonfl/literate-programming/internal/block"
)

const (
	fence         = "```"
	literateToken = "lit-"
	processedMark = "processed: true"
)

var (
	customStart = regexp.MustCompile(`^<!--\s*block:\s*(.+?)\s*-->`)
	customEnd   = regexp.MustCompile(`^<!--\s*end_block\s*-->`)
	pullFrom    = regexp.MustCompile(`^<!--\s*pull_from:\s*([^,]+?)\s*,\s*block:\s*(.+?)\s*-->`)
)

// Span is a byte range [Start, End) of the document covered by a fenced region
type Span struct {
	Start int
	End   int
}

// Diagnostic is a problem found while lexing that did not stop the scan
type Diagnostic struct {
	Source string
	Line   int
	Msg    string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d: %s", d.Source, d.Line, d.Msg)
}

// Result is the output of lexing one document
type Result struct {
	Blocks      []block.Block
	Spans       []Span
	Diagnostics []Diagnostic
}

// Attributes are the lit-key:value pairs of an opening fence
type Attributes map[string]string

// scheme is the marker style of the block currently open
type scheme int

const (
	schemeNone scheme = iota
	schemeFence
	schemeCustom
)

// lexer tracks the state of one forward scan
type lexer struct {
	source string
	relDir string
	result Result

	open       scheme
	isLiterate bool
	attrs      Attributes
	customName string
	body       strings.Builder
	startLine  int
	startByte  int
}

// Lex turns a document's text into blocks. source is recorded on every block,
// relDir is the document's directory relative to the input root and is used
// by output blocks whose target is a bare file name.
func Lex(source, relDir, text string) Result {
	l := &lexer{source: source, relDir: relDir}

	offset := 0
	lines := strings.SplitAfter(text, "\n")
	for i, raw := range lines {
		if raw == "" {
			continue
		}
		line := strings.TrimRight(raw, "\r\n")
		l.step(i+1, offset, raw, line)
		offset += len(raw)
	}

	if l.open != schemeNone {
		l.diag(l.startLine, "block opened here is never closed")
	}
	return l.result
}

func (l *lexer) step(lineNo, offset int, raw, line string) {
	switch l.open {
	case schemeNone:
		switch {
		case strings.HasPrefix(line, fence):
			l.open = schemeFence
			l.startLine = lineNo
			l.startByte = offset
			l.body.Reset()
			l.isLiterate = strings.Contains(line, literateToken)
			l.attrs = nil
			if l.isLiterate {
				l.attrs = ParseAttributes(line)
			}
		case customStart.MatchString(line):
			l.open = schemeCustom
			l.startLine = lineNo
			l.startByte = offset
			l.body.Reset()
			l.customName = customStart.FindStringSubmatch(line)[1]
		case pullFrom.MatchString(line) && !strings.Contains(line, processedMark):
			m := pullFrom.FindStringSubmatch(line)
			l.emit(&block.PullFrom{
				Meta:   block.Meta{Source: l.source, StartLine: lineNo, EndLine: lineNo},
				Path:   m[1],
				Name:   m[2],
				Marker: m[0],
			})
		}

	case schemeFence:
		// Any fence closes, literate or not: nested fences are not supported
		if strings.HasPrefix(line, fence) {
			l.result.Spans = append(l.result.Spans, Span{Start: l.startByte, End: offset + len(raw)})
			if l.isLiterate {
				l.closeLiterate(lineNo)
			}
			l.open = schemeNone
			return
		}
		if l.isLiterate {
			l.body.WriteString(line)
			l.body.WriteString("\n")
		}

	case schemeCustom:
		if customEnd.MatchString(line) {
			l.result.Spans = append(l.result.Spans, Span{Start: l.startByte, End: offset + len(raw)})
			l.emit(&block.Custom{Meta: l.meta(lineNo), Name: l.customName})
			l.open = schemeNone
			return
		}
		l.body.WriteString(line)
		l.body.WriteString("\n")
	}
}

func (l *lexer) meta(endLine int) block.Meta {
	return block.Meta{
		Source:    l.source,
		Body:      l.body.String(),
		StartLine: l.startLine,
		EndLine:   endLine,
	}
}

func (l *lexer) emit(b block.Block) {
	l.result.Blocks = append(l.result.Blocks, b)
}

func (l *lexer) diag(line int, format string, args ...any) {
	l.result.Diagnostics = append(l.result.Diagnostics, Diagnostic{
		Source: l.source,
		Line:   line,
		Msg:    fmt.Sprintf(format, args...),
	})
}

// closeLiterate builds the block variant selected by the type attribute
func (l *lexer) closeLiterate(endLine int) {
	meta := l.meta(endLine)
	attrs := l.attrs
	name := attrs["name"]
	file := attrs["file"]

	require := func(key, value string) bool {
		if value == "" {
			l.diag(l.startLine, "%s block is missing lit-%s", attrs["type"], key)
			return false
		}
		return true
	}

	switch attrs["type"] {
	case "code":
		if require("name", name) {
			l.emit(&block.Code{Meta: meta, Name: name})
		}
	case "output":
		if require("file", file) {
			l.emit(&block.Output{Meta: meta, Target: file, RelDir: l.relDir})
		}
	case "injection":
		if require("name", name) && require("file", file) {
			l.emit(&block.Injection{Meta: meta, Name: name, Target: file})
		}
	case "config":
		if require("name", name) {
			l.emit(&block.Config{Meta: meta, Name: name})
		}
	case "import":
		if ref, ok := l.ref(meta.Body, file); ok {
			l.emit(&block.Import{Meta: meta, Ref: ref})
		}
	case "reference":
		if !require("name", name) {
			return
		}
		if ref, ok := l.ref(meta.Body, file); ok {
			l.emit(&block.Reference{Meta: meta, Name: name, Ref: ref})
		}
	case "":
		l.diag(l.startLine, "literate fence has no lit-type")
	default:
		l.diag(l.startLine, "unknown block type %q", attrs["type"])
	}
}

func (l *lexer) ref(body, file string) (block.Ref, bool) {
	ref, err := block.ParseRef(body)
	if err != nil {
		l.diag(l.startLine, "%v", err)
		return ref, false
	}
	if ref.Path == "" {
		ref.Path = file
	}
	if ref.Path == "" {
		l.diag(l.startLine, "%s block has no path", l.attrs["type"])
		return ref, false
	}
	return ref, true
}

// ParseAttributes reads the lit-key:value groups of a fence line. A group
// starts where lit- begins a word and runs to the next such group, so lit-
// inside a value is kept. Keys are order independent and a repeated key
// overwrites the earlier value. The file value keeps every colon after the
// first one, other values stop at the next colon. Groups without a colon are
// ignored.
func ParseAttributes(line string) Attributes {
	attrs := make(Attributes)
	starts := AttributeStarts(line)
	for n, start := range starts {
		end := len(line)
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		part := line[start+len(literateToken) : end]
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if key != "file" {
			value, _, _ = strings.Cut(value, ":")
		}
		attrs[key] = strings.TrimSpace(value)
	}
	return attrs
}

// AttributeStarts returns the offsets in line where a lit- token begins a
// word of the fence's info string.
func AttributeStarts(line string) []int {
	var starts []int
	for i := 0; i+len(literateToken) <= len(line); i++ {
		if !strings.HasPrefix(line[i:], literateToken) {
			continue
		}
		if i == 0 || strings.IndexByte(" \t`", line[i-1]) >= 0 {
			starts = append(starts, i)
		}
	}
	return starts
}
