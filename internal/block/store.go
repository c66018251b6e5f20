package block

// Store holds every block found in one run, grouped by kind
type Store struct {
	byKind map[Kind][]Block
	named  map[Kind]map[string]Block
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		byKind: make(map[Kind][]Block),
		named:  make(map[Kind]map[string]Block),
	}
}

// Add appends a block. A named block replaces any earlier block of the same
// kind and name in the name index; the earlier one stays reachable through
// OfKind and LookupFrom.
func (s *Store) Add(b Block) {
	k := b.Kind()
	s.byKind[k] = append(s.byKind[k], b)

	if n, ok := b.(Named); ok {
		if s.named[k] == nil {
			s.named[k] = make(map[string]Block)
		}
		s.named[k][n.BlockName()] = b
	}
}

// AddAll appends blocks in order
func (s *Store) AddAll(blocks []Block) {
	for _, b := range blocks {
		s.Add(b)
	}
}

// OfKind returns the blocks of a kind in insertion order
func (s *Store) OfKind(k Kind) []Block {
	return s.byKind[k]
}

// Len returns the number of blocks of a kind
func (s *Store) Len(k Kind) int {
	return len(s.byKind[k])
}

// Lookup returns the last block added with this kind and name
func (s *Store) Lookup(k Kind, name string) (Block, bool) {
	b, ok := s.named[k][name]
	return b, ok
}

// LookupFrom returns the last block of this kind and name whose source
// document satisfies match.
func (s *Store) LookupFrom(k Kind, name string, match func(source string) bool) (Block, bool) {
	blocks := s.byKind[k]
	for i := len(blocks) - 1; i >= 0; i-- {
		n, ok := blocks[i].(Named)
		if !ok || n.BlockName() != name {
			continue
		}
		if match(blocks[i].Info().Source) {
			return blocks[i], true
		}
	}
	return nil, false
}

func collect[T Block](s *Store, k Kind) []T {
	out := make([]T, 0, len(s.byKind[k]))
	for _, b := range s.byKind[k] {
		if t, ok := b.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) Codes() []*Code           { return collect[*Code](s, KindCode) }
func (s *Store) Outputs() []*Output       { return collect[*Output](s, KindOutput) }
func (s *Store) Injections() []*Injection { return collect[*Injection](s, KindInjection) }
func (s *Store) Configs() []*Config       { return collect[*Config](s, KindConfig) }
func (s *Store) Imports() []*Import       { return collect[*Import](s, KindImport) }
func (s *Store) References() []*Reference { return collect[*Reference](s, KindReference) }
func (s *Store) Customs() []*Custom       { return collect[*Custom](s, KindCustom) }
func (s *Store) PullFroms() []*PullFrom   { return collect[*PullFrom](s, KindPullFrom) }
