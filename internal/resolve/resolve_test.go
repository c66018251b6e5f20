package resolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spirodonfl/literate-programming/internal/block"
	"github.com/spirodonfl/literate-programming/internal/config"
	"github.com/spirodonfl/literate-programming/internal/extract"
)

// fakeExtractor serves reference content by path
type fakeExtractor map[string]struct {
	content string
	err     error
}

func (f fakeExtractor) Extract(ref block.Ref) (string, error) {
	e, ok := f[ref.Path]
	if !ok {
		return "", errors.New("no such file " + ref.Path)
	}
	return e.content, e.err
}

func codeBlock(source, name, body string) *block.Code {
	return &block.Code{Meta: block.Meta{Source: source, Body: body}, Name: name}
}

func options(ov config.Overrides) config.Options {
	off := false
	if ov.OutputSource == nil {
		ov.OutputSource = &off
	}
	return config.Defaults().WithInputPath("/proj").With(ov)
}

func newResolver(t *testing.T, ov config.Overrides, blocks ...block.Block) *Resolver {
	t.Helper()
	store := block.NewStore()
	store.AddAll(blocks)
	return New(store, fakeExtractor{}, options(ov), zaptest.NewLogger(t))
}

func TestResolve(t *testing.T) {
	blocks := []block.Block{
		codeBlock("/proj/a.md", "greet", "console.log(\"hi\")\n"),
		codeBlock("/proj/a.md", "pair", "a\nb\n"),
		codeBlock("/proj/a.md", "inner", "x\n"),
		codeBlock("/proj/a.md", "outer", "[{{{ inner }}}]\n"),
		codeBlock("/proj/a.md", "deep", "{\n\t{{{ pair }}}\n}\n"),
	}

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "no placeholders", text: "plain text\nline two\n", expected: "plain text\nline two\n"},
		{name: "single block", text: "{{{ greet }}}\n", expected: "console.log(\"hi\")\n"},
		{name: "spacing inside braces", text: "{{{greet}}}", expected: "console.log(\"hi\")"},
		{name: "continuation lines get indent", text: "  {{{ pair }}}", expected: "  a\n  b"},
		{name: "text around placeholder", text: "x = {{{ inner }}};", expected: "x = x;"},
		{name: "nested", text: "{{{ outer }}}", expected: "[x]"},
		{name: "nested indentation", text: "  {{{ deep }}}", expected: "  {\n  \ta\n  \tb\n  }"},
		{name: "two on one line", text: "{{{ inner }}}{{{ inner }}}", expected: "xx"},
	}

	r := newResolver(t, config.Overrides{}, blocks...)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveQualifiedName(t *testing.T) {
	r := newResolver(t, config.Overrides{},
		codeBlock("/proj/a.md", "greet", "from a\n"),
		codeBlock("/proj/docs/b.md", "greet", "from b\n"),
	)

	got, err := r.Resolve("{{{ greet }}}")
	require.NoError(t, err)
	assert.Equal(t, "from b", got)

	got, err = r.Resolve("{{{ a.md:greet }}}")
	require.NoError(t, err)
	assert.Equal(t, "from a", got)

	got, err = r.Resolve("{{{ /proj/docs/b.md:greet }}}")
	require.NoError(t, err)
	assert.Equal(t, "from b", got)
}

func TestResolveReferenceWinsOverCode(t *testing.T) {
	store := block.NewStore()
	store.Add(codeBlock("/proj/a.md", "util", "code\n"))
	store.Add(&block.Reference{Meta: block.Meta{Source: "/proj/a.md"}, Name: "util", Ref: block.Ref{Path: "util.js"}})
	store.Add(&block.Reference{Meta: block.Meta{Source: "/proj/a.md"}, Name: "partial", Ref: block.Ref{Path: "partial.js", Tag: "t"}})
	store.Add(&block.Reference{Meta: block.Meta{Source: "/proj/a.md"}, Name: "broken", Ref: block.Ref{Path: "gone.js"}})

	ext := fakeExtractor{
		"util.js":    {content: "function util() {}\n"},
		"partial.js": {content: "half\n", err: &extract.Error{Kind: extract.ErrTagNotClosed, Path: "partial.js"}},
	}
	r := New(store, ext, options(config.Overrides{}), zaptest.NewLogger(t))

	got, err := r.Resolve("{{{ util }}}")
	require.NoError(t, err)
	assert.Equal(t, "function util() {}", got)

	got, err = r.Resolve("{{{ partial }}}")
	require.NoError(t, err)
	assert.Equal(t, "half", got)

	_, err = r.Resolve("{{{ broken }}}")
	assert.ErrorContains(t, err, "reference broken")
}

func TestResolveCycle(t *testing.T) {
	tests := []struct {
		name   string
		blocks []block.Block
		text   string
		cycle  []string
	}{
		{
			name:   "self reference",
			blocks: []block.Block{codeBlock("/proj/a.md", "a", "{{{ a }}}\n")},
			text:   "{{{ a }}}",
			cycle:  []string{"a", "a"},
		},
		{
			name: "two blocks",
			blocks: []block.Block{
				codeBlock("/proj/a.md", "a", "{{{ b }}}\n"),
				codeBlock("/proj/a.md", "b", "{{{ a }}}\n"),
			},
			text:  "{{{ a }}}",
			cycle: []string{"a", "b", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(t, config.Overrides{}, tt.blocks...)
			_, err := r.Resolve(tt.text)
			require.ErrorIs(t, err, ErrCyclicReference)

			var cyc *CyclicReferenceError
			require.ErrorAs(t, err, &cyc)
			assert.Equal(t, tt.cycle, cyc.Cycle)
		})
	}
}

func TestResolveSharedBlockIsNotACycle(t *testing.T) {
	r := newResolver(t, config.Overrides{},
		codeBlock("/proj/a.md", "leaf", "x\n"),
		codeBlock("/proj/a.md", "left", "{{{ leaf }}}\n"),
		codeBlock("/proj/a.md", "right", "{{{ leaf }}}\n"),
	)
	got, err := r.Resolve("{{{ left }}} {{{ right }}}")
	require.NoError(t, err)
	assert.Equal(t, "x x", got)
}

func TestResolveUnresolved(t *testing.T) {
	keep := config.UnresolvedKeep
	warn := config.UnresolvedWarn
	fail := config.UnresolvedError

	t.Run("keep", func(t *testing.T) {
		r := newResolver(t, config.Overrides{Unresolved: &keep})
		got, err := r.Resolve("a {{{ nope }}} b")
		require.NoError(t, err)
		assert.Equal(t, "a {{{ nope }}} b", got)
	})

	t.Run("warn once", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		r := New(block.NewStore(), fakeExtractor{}, options(config.Overrides{Unresolved: &warn}), zap.New(core))

		got, err := r.Resolve("{{{ nope }}}\n{{{ nope }}}")
		require.NoError(t, err)
		assert.Equal(t, "{{{ nope }}}\n{{{ nope }}}", got)
		assert.Equal(t, 1, logs.FilterMessage("Unresolved placeholder").Len())
	})

	t.Run("error", func(t *testing.T) {
		r := newResolver(t, config.Overrides{Unresolved: &fail})
		_, err := r.Resolve("ok\n{{{ nope }}}")
		require.ErrorIs(t, err, ErrUnresolved)

		var unresolved *UnresolvedReferenceError
		require.ErrorAs(t, err, &unresolved)
		assert.Equal(t, "nope", unresolved.Name)
		assert.Equal(t, 2, unresolved.Line)
	})
}

func TestResolveProvenance(t *testing.T) {
	on := true
	blocks := []block.Block{codeBlock("/proj/docs/a.md", "greet", "hi\n")}

	r := newResolver(t, config.Overrides{OutputSource: &on}, blocks...)
	got, err := r.Resolve("  {{{ greet }}}")
	require.NoError(t, err)
	assert.Equal(t, "  // Source: docs/a.md\n  // Anchor: greet\n  hi", got)

	r = newResolver(t, config.Overrides{OutputSource: &on, OutputSourceAbsolutePaths: &on}, blocks...)
	assert.Equal(t, "// Source: /proj/docs/a.md\n// Anchor: greet\n", r.Provenance(blocks[0], "greet"))
}

func TestResolveBody(t *testing.T) {
	inj := &block.Injection{Meta: block.Meta{Source: "/proj/a.md", Body: "{{{ leaf }}}\nend\n"}, Name: "i", Target: "app.js"}
	r := newResolver(t, config.Overrides{}, codeBlock("/proj/a.md", "leaf", "x\n"), inj)

	got, err := r.Body(inj)
	require.NoError(t, err)
	assert.Equal(t, "x\nend", got)
}

func TestResolveExpansionLimit(t *testing.T) {
	blocks := []block.Block{
		codeBlock("/proj/a.md", "a", "b\n"),
		codeBlock("/proj/a.md", "b", "done\n"),
	}
	// the inner placeholder expands into a new one only the next pass sees
	text := "{{{ {{{ a }}} }}}"

	one := 1
	r := newResolver(t, config.Overrides{MaxPasses: &one}, blocks...)
	_, err := r.Resolve(text)
	require.ErrorIs(t, err, ErrExpansionLimit)

	two := 2
	r = newResolver(t, config.Overrides{MaxPasses: &two}, blocks...)
	got, err := r.Resolve(text)
	require.NoError(t, err)
	assert.Equal(t, "done", got)
}
