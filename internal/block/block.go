package block

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies one of the block variants
type Kind int

const (
	KindCode Kind = iota
	KindOutput
	KindInjection
	KindConfig
	KindImport
	KindReference
	KindCustom
	KindPullFrom
)

var kindNames = [...]string{
	KindCode:      "code",
	KindOutput:    "output",
	KindInjection: "injection",
	KindConfig:    "config",
	KindImport:    "import",
	KindReference: "reference",
	KindCustom:    "custom",
	KindPullFrom:  "pull_from",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Meta holds the fields every block carries
type Meta struct {
	Source    string // Document the block was found in
	Body      string // Raw lines between the fences, each ending in "\n"
	StartLine int    // 1-based line of the opening fence
	EndLine   int    // 1-based line of the closing fence
}

// Block is one annotated region of a literate document.
// The set of implementations is closed: Code, Output, Injection, Config,
// Import, Reference, Custom and PullFrom.
type Block interface {
	Kind() Kind
	Info() *Meta
	block()
}

// Named is implemented by blocks addressable by name
type Named interface {
	Block
	BlockName() string
}

func (m *Meta) Info() *Meta { return m }
func (m *Meta) block()      {}

// Code is a named, reusable fragment
type Code struct {
	Meta
	Name string
}

// Output becomes the full content of a new file
type Output struct {
	Meta
	Target string // Target path as written in the fence
	RelDir string // Document directory relative to the input root, slash terminated or empty
}

// Injection replaces a {{{ name }}} placeholder inside an existing file
type Injection struct {
	Meta
	Name   string
	Target string
}

// Config holds line-oriented configuration; Name selects the interpretation
type Config struct {
	Meta
	Name string
}

// Ref points at external content: a whole file, a line range or a tag region
type Ref struct {
	Path      string
	LineStart int // 1-based, 0 means unset
	LineEnd   int // 1-based inclusive, 0 means unset
	Tag       string
}

// Import pulls external content into the document at the block's own location
type Import struct {
	Meta
	Ref Ref
}

// Reference is a named fragment whose content is fetched at resolution time
type Reference struct {
	Meta
	Name string
	Ref  Ref
}

// Custom is a region delimited by <!-- block: NAME --> and <!-- end_block -->
type Custom struct {
	Meta
	Name string
}

// PullFrom asks for a Custom block of another document to be inserted after its marker
type PullFrom struct {
	Meta
	Path   string
	Name   string
	Marker string // Marker text as written in the document
}

func (*Code) Kind() Kind      { return KindCode }
func (*Output) Kind() Kind    { return KindOutput }
func (*Injection) Kind() Kind { return KindInjection }
func (*Config) Kind() Kind    { return KindConfig }
func (*Import) Kind() Kind    { return KindImport }
func (*Reference) Kind() Kind { return KindReference }
func (*Custom) Kind() Kind    { return KindCustom }
func (*PullFrom) Kind() Kind  { return KindPullFrom }

func (b *Code) BlockName() string      { return b.Name }
func (b *Injection) BlockName() string { return b.Name }
func (b *Config) BlockName() string    { return b.Name }
func (b *Reference) BlockName() string { return b.Name }
func (b *Custom) BlockName() string    { return b.Name }

// Path returns the output path with the document directory folded in when
// the target is a bare file name.
func (b *Output) Path() string {
	if strings.ContainsAny(b.Target, `/\`) {
		return b.Target
	}
	return b.RelDir + b.Target
}

// Placeholder returns the literal token an injection replaces
func (b *Injection) Placeholder() string {
	return Placeholder(b.Name)
}

// Placeholder formats the canonical {{{ name }}} token
func Placeholder(name string) string {
	return "{{{ " + name + " }}}"
}

// ParseRef reads key=value directive lines (path, line_start, line_end, tag).
// Unknown keys and malformed lines are ignored.
func ParseRef(body string) (Ref, error) {
	var ref Ref
	for _, line := range strings.Split(body, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "path":
			ref.Path = value
		case "tag":
			ref.Tag = value
		case "line_start", "line_end":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return ref, fmt.Errorf("%s must be a positive line number, got %q", key, value)
			}
			if key == "line_start" {
				ref.LineStart = n
			} else {
				ref.LineEnd = n
			}
		}
	}
	return ref, nil
}
