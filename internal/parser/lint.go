package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Lint compares the literate fences found by Lex with the fenced code blocks a
// CommonMark parser sees in the same document. A mismatch means an inner fence
// closed the literate block early, which silently truncates its body.
func Lint(source string, content []byte, res Result) []Diagnostic {
	lexed := make(map[int]int) // start line -> body line count
	for _, b := range res.Blocks {
		m := b.Info()
		lexed[m.StartLine] = m.EndLine - m.StartLine - 1
	}

	var diags []Diagnostic
	root := goldmark.DefaultParser().Parse(text.NewReader(content))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if fenced.Info == nil {
			return ast.WalkSkipChildren, nil
		}

		info := fenced.Info.Segment
		if !strings.Contains(string(info.Value(content)), literateToken) {
			return ast.WalkSkipChildren, nil
		}

		start := lineOf(content, info.Start)
		got, found := lexed[start]
		want := fenced.Lines().Len()
		if found && got != want {
			diags = append(diags, Diagnostic{
				Source: source,
				Line:   start,
				Msg:    "literate block is closed by an inner fence; its body is cut after " + plural(got, "line"),
			})
		}
		return ast.WalkSkipChildren, nil
	}

	// walker never fails
	_ = ast.Walk(root, walker)
	return diags
}

// lineOf returns the 1-based line containing byte offset off
func lineOf(content []byte, off int) int {
	if off > len(content) {
		off = len(content)
	}
	return bytes.Count(content[:off], []byte("\n")) + 1
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
