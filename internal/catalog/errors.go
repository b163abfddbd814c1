package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
)

// Catalog error codes (E100-E199).
const (
	ErrCodeUnknownType       = "E100" // spelling has no canonical type
	ErrCodeUnknownConstraint = "E101" // spelling has no constraint kind
	ErrCodeUnknownToken      = "E102" // spelling has no default token
	ErrCodeAmbiguousMapping  = "E103" // several equally valid spellings
	ErrCodeBadDefault        = "E104" // default incompatible with column type
)

// UnknownTypeError reports a type spelling with no catalog mapping, or
// a canonical type the target representation has no spelling for. The
// literal token is always carried.
type UnknownTypeError struct {
	Token          string              `json:"token"`
	Representation repr.Representation `json:"representation"`
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("[%s] unknown type %q in %s", ErrCodeUnknownType, e.Token, e.Representation)
}

// UnknownConstraintError reports a constraint spelling with no catalog
// mapping.
type UnknownConstraintError struct {
	Token          string              `json:"token"`
	Representation repr.Representation `json:"representation"`
}

func (e *UnknownConstraintError) Error() string {
	return fmt.Sprintf("[%s] unknown constraint %q in %s", ErrCodeUnknownConstraint, e.Token, e.Representation)
}

// UnknownTokenError reports a default token with no catalog mapping in
// the given representation. Defaults round-trip as tokens: when a
// representation cannot spell one, translation fails here rather than
// substituting a lossy literal.
type UnknownTokenError struct {
	Token          string              `json:"token"`
	Representation repr.Representation `json:"representation"`
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("[%s] default token %q has no %s spelling", ErrCodeUnknownToken, e.Token, e.Representation)
}

// AmbiguousMappingError reports a canonical construct with more than
// one equally valid target spelling and no tie-break rule. The engine
// never guesses: the caller must supply a formatting choice or reject
// the translation. Candidates lists every valid spelling.
type AmbiguousMappingError struct {
	Construct      string              `json:"construct"`
	Representation repr.Representation `json:"representation"`
	Candidates     []string            `json:"candidates"`
}

func (e *AmbiguousMappingError) Error() string {
	return fmt.Sprintf("[%s] %q maps to multiple %s spellings (%s): configure a choice",
		ErrCodeAmbiguousMapping, e.Construct, e.Representation, strings.Join(e.Candidates, ", "))
}

// IncompatibleDefaultError reports a default whose value cannot
// inhabit its column's type, like a bool literal on a text column or a
// current-timestamp token on an integer.
type IncompatibleDefaultError struct {
	Column string  `json:"column"`
	Type   ir.Type `json:"type"`
	Value  string  `json:"value"` // token name or literal kind
}

func (e *IncompatibleDefaultError) Error() string {
	return fmt.Sprintf("[%s] column %q: default %s is incompatible with type %s",
		ErrCodeBadDefault, e.Column, e.Value, e.Type)
}

// IsIncompatibleDefault reports whether err is (or wraps) an
// IncompatibleDefaultError.
func IsIncompatibleDefault(err error) bool {
	var de *IncompatibleDefaultError
	return errors.As(err, &de)
}

// IsUnknownType reports whether err is (or wraps) an UnknownTypeError.
func IsUnknownType(err error) bool {
	var ue *UnknownTypeError
	return errors.As(err, &ue)
}

// IsUnknownConstraint reports whether err is (or wraps) an
// UnknownConstraintError.
func IsUnknownConstraint(err error) bool {
	var ce *UnknownConstraintError
	return errors.As(err, &ce)
}

// IsUnknownToken reports whether err is (or wraps) an
// UnknownTokenError.
func IsUnknownToken(err error) bool {
	var te *UnknownTokenError
	return errors.As(err, &te)
}

// IsAmbiguousMapping reports whether err is (or wraps) an
// AmbiguousMappingError.
func IsAmbiguousMapping(err error) bool {
	var ae *AmbiguousMappingError
	return errors.As(err, &ae)
}
