package paths

import (
	"path/filepath"
	"strings"
)

// Resolver turns paths into cleaned absolute paths relative to a base directory
type Resolver struct {
	base string
}

// NewResolver creates a resolver rooted at base. A relative base is made
// absolute against the working directory.
func NewResolver(base string) *Resolver {
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}
	return &Resolver{base: filepath.Clean(base)}
}

// Base returns the absolute base directory
func (r *Resolver) Base() string {
	return r.base
}

// Resolve returns p unchanged if absolute, otherwise joined onto the base
func (r *Resolver) Resolve(p string) string {
	return Against(r.base, p)
}

// Rel returns p relative to the base in slash form, or p itself when it
// lies outside the base.
func (r *Resolver) Rel(p string) string {
	rel, err := filepath.Rel(r.base, r.Resolve(p))
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// Same reports whether two paths name the same file once resolved
func (r *Resolver) Same(a, b string) bool {
	return r.Resolve(a) == r.Resolve(b)
}

// Against resolves p relative to dir
func Against(dir, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}
