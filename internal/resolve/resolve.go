package resolve

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/spirodonfl/literate-programming/internal/block"
	"github.com/spirodonfl/literate-programming/internal/config"
	"github.com/spirodonfl/literate-programming/internal/extract"
	"github.com/spirodonfl/literate-programming/internal/paths"
)

// placeholderRe matches {{{ name }}} and {{{ source:name }}}
var placeholderRe = regexp.MustCompile(`\{\{\{\s*([^{}]+?)\s*\}\}\}`)

// candidates are tried in priority order for every placeholder
var candidates = []block.Kind{block.KindReference, block.KindCode}

// Extractor fetches the external content of reference blocks
type Extractor interface {
	Extract(ref block.Ref) (string, error)
}

// Resolver expands placeholders against a block store
type Resolver struct {
	store     *block.Store
	extractor Extractor
	opts      config.Options
	paths     *paths.Resolver
	log       *zap.Logger
	memo      map[block.Block]string
}

// New creates a resolver. Provenance paths are shown relative to the
// options' input path unless absolute paths are configured.
func New(store *block.Store, extractor Extractor, opts config.Options, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		store:     store,
		extractor: extractor,
		opts:      opts,
		paths:     paths.NewResolver(opts.InputPath()),
		log:       log,
		memo:      make(map[block.Block]string),
	}
}

// frame is one block being expanded
type frame struct {
	key  string
	name string
}

// session carries the state of one Resolve call
type session struct {
	stack  []frame
	warned map[string]bool
}

// Resolve returns text with every placeholder that names a known block
// replaced by that block's expanded content. Continuation lines of a
// replacement inherit the leading whitespace of the line holding the
// placeholder.
func (r *Resolver) Resolve(text string) (string, error) {
	return r.expand(text, &session{warned: make(map[string]bool)})
}

// Body resolves a block body with its final newline removed, which is the
// form substituted for a placeholder.
func (r *Resolver) Body(b block.Block) (string, error) {
	return r.Resolve(strings.TrimSuffix(b.Info().Body, "\n"))
}

// Provenance returns the two comment lines naming where a block came from,
// or "" when provenance output is disabled.
func (r *Resolver) Provenance(b block.Block, name string) string {
	if !r.opts.OutputSource() {
		return ""
	}
	source := b.Info().Source
	if r.opts.OutputSourceAbsolutePaths() {
		source = r.paths.Resolve(source)
	} else {
		source = r.paths.Rel(source)
	}
	return "// Source: " + source + "\n// Anchor: " + name + "\n"
}

// expand rescans text until a full pass makes no substitution. At most
// MaxPasses passes may substitute; the one after them must find nothing.
func (r *Resolver) expand(text string, s *session) (string, error) {
	for pass := 0; pass <= r.opts.MaxPasses(); pass++ {
		lines := strings.Split(text, "\n")
		replaced := 0
		for i, line := range lines {
			out, n, err := r.expandLine(line, i+1, s)
			if err != nil {
				return "", err
			}
			lines[i] = out
			replaced += n
		}
		text = strings.Join(lines, "\n")

		if replaced == 0 {
			return text, nil
		}
	}
	return text, fmt.Errorf("%w after %d passes", ErrExpansionLimit, r.opts.MaxPasses())
}

func (r *Resolver) expandLine(line string, lineNo int, s *session) (string, int, error) {
	matches := placeholderRe.FindAllStringSubmatchIndex(line, -1)
	if matches == nil {
		return line, 0, nil
	}

	indent := LeadingWhitespace(line)
	var b strings.Builder
	last, replaced := 0, 0

	for _, m := range matches {
		token, name := line[m[0]:m[1]], line[m[2]:m[3]]
		b.WriteString(line[last:m[0]])
		last = m[1]

		target, ok := r.lookup(name)
		if !ok {
			if err := r.unresolved(name, lineNo, s); err != nil {
				return "", 0, err
			}
			b.WriteString(token)
			continue
		}

		content, err := r.content(target, s)
		if err != nil {
			return "", 0, err
		}
		named := target.(block.Named)
		b.WriteString(IndentContinuation(r.Provenance(target, named.BlockName())+content, indent))
		replaced++
	}
	b.WriteString(line[last:])
	return b.String(), replaced, nil
}

func (r *Resolver) unresolved(name string, lineNo int, s *session) error {
	switch r.opts.Unresolved() {
	case config.UnresolvedError:
		return &UnresolvedReferenceError{Name: name, Line: lineNo}
	case config.UnresolvedWarn:
		if !s.warned[name] {
			s.warned[name] = true
			r.log.Warn("Unresolved placeholder", zap.String("name", name), zap.Int("line", lineNo))
		}
	}
	return nil
}

// content returns the fully expanded content of a code or reference block
func (r *Resolver) content(target block.Block, s *session) (string, error) {
	named := target.(block.Named)
	key := target.Kind().String() + ":" + target.Info().Source + ":" + named.BlockName()

	for i, f := range s.stack {
		if f.key == key {
			cycle := make([]string, 0, len(s.stack)-i+1)
			for _, g := range s.stack[i:] {
				cycle = append(cycle, g.name)
			}
			return "", &CyclicReferenceError{Cycle: append(cycle, named.BlockName())}
		}
	}

	if c, ok := r.memo[target]; ok {
		return c, nil
	}

	raw := target.Info().Body
	if ref, ok := target.(*block.Reference); ok {
		var err error
		raw, err = r.extractor.Extract(ref.Ref)
		if err != nil {
			if !errors.Is(err, extract.ErrTagNotClosed) {
				return "", fmt.Errorf("reference %s: %w", ref.Name, err)
			}
			r.log.Warn("Using partial tag region", zap.String("reference", ref.Name), zap.Error(err))
		}
	}

	s.stack = append(s.stack, frame{key: key, name: named.BlockName()})
	expanded, err := r.expand(strings.TrimSuffix(raw, "\n"), s)
	s.stack = s.stack[:len(s.stack)-1]
	if err != nil {
		return "", err
	}

	r.memo[target] = expanded
	return expanded, nil
}

// lookup finds the block a placeholder names. A source:name form first
// looks for a block from that document and then falls back to the whole
// string as a plain name.
func (r *Resolver) lookup(name string) (block.Block, bool) {
	if i := strings.LastIndex(name, ":"); i > 0 && i < len(name)-1 {
		source, short := strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+1:])
		match := func(doc string) bool {
			return doc == source || r.paths.Same(doc, source) || r.paths.Rel(doc) == filepath.ToSlash(source)
		}
		for _, k := range candidates {
			if b, ok := r.store.LookupFrom(k, short, match); ok {
				return b, true
			}
		}
	}

	for _, k := range candidates {
		if b, ok := r.store.Lookup(k, name); ok {
			return b, true
		}
	}
	return nil, false
}

// LeadingWhitespace returns the run of spaces and tabs starting line
func LeadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// IndentContinuation prefixes every line of text but the first with indent
func IndentContinuation(text, indent string) string {
	if indent == "" || !strings.Contains(text, "\n") {
		return text
	}
	return strings.ReplaceAll(text, "\n", "\n"+indent)
}
