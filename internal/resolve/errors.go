package resolve

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCyclicReference = errors.New("cyclic reference")
	ErrUnresolved      = errors.New("unresolved placeholder")
	ErrExpansionLimit  = errors.New("expansion did not settle")
)

// CyclicReferenceError names the chain of blocks that leads back to itself
type CyclicReferenceError struct {
	Cycle []string
}

func (e *CyclicReferenceError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCyclicReference, strings.Join(e.Cycle, " -> "))
}

func (e *CyclicReferenceError) Unwrap() error { return ErrCyclicReference }

// UnresolvedReferenceError is returned under the error policy when a
// placeholder names no known block.
type UnresolvedReferenceError struct {
	Name string
	Line int
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s {{{ %s }}} on line %d", ErrUnresolved, e.Name, e.Line)
}

func (e *UnresolvedReferenceError) Unwrap() error { return ErrUnresolved }
