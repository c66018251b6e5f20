package writer

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spirodonfl/literate-programming/internal/block"
	"github.com/spirodonfl/literate-programming/internal/paths"
)

func newWriter(t *testing.T, outputPath string) (*Writer, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return New(fs, paths.NewResolver("/proj"), outputPath, zaptest.NewLogger(t)), fs
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name       string
		outputPath string
		out        *block.Output
		expected   string
	}{
		{
			name:     "bare target next to its document",
			out:      &block.Output{Target: "main.js", RelDir: "docs/"},
			expected: "/proj/docs/main.js",
		},
		{
			name:     "target with directory is relative to the root",
			out:      &block.Output{Target: "src/main.js", RelDir: "docs/"},
			expected: "/proj/src/main.js",
		},
		{
			name:       "output path prefix",
			outputPath: "/build",
			out:        &block.Output{Target: "src/main.js"},
			expected:   "/build/src/main.js",
		},
		{
			name:       "absolute target ignores prefix",
			outputPath: "/build",
			out:        &block.Output{Target: "/tmp/x.js"},
			expected:   "/tmp/x.js",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newWriter(t, tt.outputPath)
			if got := w.OutputPath(tt.out); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestWriteOutput(t *testing.T) {
	w, fs := newWriter(t, "")
	out := &block.Output{Target: "src/deep/main.js"}

	path, action, err := w.WriteOutput(out, "one\n")
	require.NoError(t, err)
	assert.Equal(t, "/proj/src/deep/main.js", path)
	assert.Equal(t, ActionCreated, action)

	_, action, err = w.WriteOutput(out, "two\n")
	require.NoError(t, err)
	assert.Equal(t, ActionReplaced, action)
	assert.Equal(t, "two\n", readFile(t, fs, path))
}

func TestInject(t *testing.T) {
	w, fs := newWriter(t, "")
	require.NoError(t, afero.WriteFile(fs, "/proj/app.js", []byte("function main() {\n    {{{ body }}}\n}\n{{{ body }}}\n"), 0600))

	inj := &block.Injection{Name: "body", Target: "app.js"}
	path, err := w.Inject(inj, "a()\nb()")
	require.NoError(t, err)
	assert.Equal(t, "/proj/app.js", path)
	assert.Equal(t, "function main() {\n    a()\n    b()\n}\n{{{ body }}}\n", readFile(t, fs, path))

	info, err := fs.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())
}

func TestInjectErrors(t *testing.T) {
	w, fs := newWriter(t, "")
	require.NoError(t, afero.WriteFile(fs, "/proj/app.js", []byte("nothing here\n"), 0644))

	_, err := w.Inject(&block.Injection{Name: "x", Target: "missing.js"}, "x")
	assert.ErrorIs(t, err, ErrTargetMissing)

	_, err = w.Inject(&block.Injection{Name: "x", Target: "app.js"}, "x")
	assert.ErrorIs(t, err, ErrPlaceholderMissing)
}

func TestImport(t *testing.T) {
	w, fs := newWriter(t, "")
	doc := "# Doc\n" +
		"```js lit-type:import lit-file:a.js\n" +
		"```\n" +
		"middle\n" +
		"```py lit-type:import\n" +
		"path=b.py\n" +
		"```\n" +
		"end\n"
	require.NoError(t, afero.WriteFile(fs, "/proj/doc.md", []byte(doc), 0644))

	imports := []*block.Import{
		{Meta: block.Meta{Source: "/proj/doc.md", StartLine: 2, EndLine: 3}, Ref: block.Ref{Path: "a.js"}},
		{Meta: block.Meta{Source: "/proj/doc.md", StartLine: 5, EndLine: 7}, Ref: block.Ref{Path: "b.py"}},
	}
	require.NoError(t, w.Import("/proj/doc.md", imports, []string{"let a = 1\n", "b = 2"}))

	expected := "# Doc\n" +
		"```js\n" +
		"let a = 1\n" +
		"```\n" +
		"middle\n" +
		"```py\n" +
		"b = 2\n" +
		"```\n" +
		"end\n"
	assert.Equal(t, expected, readFile(t, fs, "/proj/doc.md"))
}

func TestSpliceImportOutOfRange(t *testing.T) {
	imp := &block.Import{Meta: block.Meta{StartLine: 3, EndLine: 9}}
	_, err := SpliceImport("a\nb\n", imp, "x")
	assert.Error(t, err)
}

func TestImportDocumentChanged(t *testing.T) {
	w, fs := newWriter(t, "")
	// an injection added a line above the import after the document was lexed
	doc := "# Doc\n" +
		"injected\n" +
		"```js lit-type:import lit-file:a.js\n" +
		"```\n"
	require.NoError(t, afero.WriteFile(fs, "/proj/doc.md", []byte(doc), 0644))

	imports := []*block.Import{
		{Meta: block.Meta{Source: "/proj/doc.md", StartLine: 2, EndLine: 3}, Ref: block.Ref{Path: "a.js"}},
	}
	err := w.Import("/proj/doc.md", imports, []string{"let a = 1\n"})
	assert.ErrorIs(t, err, ErrImportMoved)
	assert.Equal(t, doc, readFile(t, fs, "/proj/doc.md"))
}

func TestPlainFence(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{name: "language kept", line: "```js lit-type:import lit-file:a.js", expected: "```js"},
		{name: "file value with spaces", line: "```py lit-type:import lit-file:my dir/b.py", expected: "```py"},
		{name: "lit- inside a value", line: "```go lit-file:tools/lit-gen/main.go lit-type:import", expected: "```go"},
		{name: "no language", line: "```lit-type:import", expected: "```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, plainFence(tt.line))
		})
	}
}

func TestPullFrom(t *testing.T) {
	w, fs := newWriter(t, "")
	pulling := "# Index\n<!-- pull_from: parts/intro.md, block: hello -->\nrest\n"
	require.NoError(t, afero.WriteFile(fs, "/proj/index.md", []byte(pulling), 0644))

	pf := &block.PullFrom{Meta: block.Meta{Source: "/proj/index.md"}, Path: "parts/intro.md", Name: "hello"}
	custom := &block.Custom{Meta: block.Meta{Source: "/proj/parts/intro.md", Body: "Hello!\nWorld.\n"}, Name: "hello"}
	assert.Equal(t, "/proj/parts/intro.md", PullPath(pf))

	action, err := w.PullFrom(pf, custom)
	require.NoError(t, err)
	assert.Equal(t, ActionPatched, action)

	expected := "# Index\n<!-- pull_from: parts/intro.md, block: hello, processed: true -->\nHello!\nWorld.\nrest\n"
	assert.Equal(t, expected, readFile(t, fs, "/proj/index.md"))

	// a second run leaves the document alone
	action, err = w.PullFrom(pf, custom)
	require.NoError(t, err)
	assert.Equal(t, ActionUnchanged, action)
	assert.Equal(t, expected, readFile(t, fs, "/proj/index.md"))
}

func TestPullFromLooseMarker(t *testing.T) {
	w, fs := newWriter(t, "")
	marker := "<!--pull_from: parts.md,block: footer-->"
	require.NoError(t, afero.WriteFile(fs, "/proj/index.md", []byte("top\n"+marker+"\nend\n"), 0644))

	pf := &block.PullFrom{Meta: block.Meta{Source: "/proj/index.md"}, Path: "parts.md", Name: "footer", Marker: marker}
	custom := &block.Custom{Meta: block.Meta{Body: "Bye.\n"}, Name: "footer"}

	action, err := w.PullFrom(pf, custom)
	require.NoError(t, err)
	assert.Equal(t, ActionPatched, action)

	expected := "top\n<!-- pull_from: parts.md, block: footer, processed: true -->\nBye.\nend\n"
	assert.Equal(t, expected, readFile(t, fs, "/proj/index.md"))

	action, err = w.PullFrom(pf, custom)
	require.NoError(t, err)
	assert.Equal(t, ActionUnchanged, action)
	assert.Equal(t, expected, readFile(t, fs, "/proj/index.md"))
}

func TestPullFromMarkerMissing(t *testing.T) {
	w, fs := newWriter(t, "")
	require.NoError(t, afero.WriteFile(fs, "/proj/index.md", []byte("marker was edited away\n"), 0644))

	pf := &block.PullFrom{Meta: block.Meta{Source: "/proj/index.md"}, Path: "parts.md", Name: "footer", Marker: "<!--pull_from: parts.md,block: footer-->"}
	custom := &block.Custom{Meta: block.Meta{Body: "Bye.\n"}, Name: "footer"}

	action, err := w.PullFrom(pf, custom)
	assert.ErrorIs(t, err, ErrMarkerMissing)
	assert.Empty(t, action)
	assert.Equal(t, "marker was edited away\n", readFile(t, fs, "/proj/index.md"))
}

func TestPullPathAbsolute(t *testing.T) {
	pf := &block.PullFrom{Meta: block.Meta{Source: "/proj/docs/index.md"}, Path: "/shared/parts.md"}
	assert.Equal(t, "/shared/parts.md", PullPath(pf))
}
