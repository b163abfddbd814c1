package translate

import (
	"errors"
	"fmt"
	"strings"
)

// Translation error codes (E400-E499).
const (
	ErrCodeInvariantViolation    = "E400" // verified translation changed meaning
	ErrCodeUnknownRepresentation = "E401" // no adapter for the representation
	ErrCodeInvalidDocument       = "E402" // parsed document fails validation
	ErrCodeUnknownMode           = "E403" // mode is not fast or verified
)

// Category names the invariant a verified translation violated.
type Category string

const (
	CategoryCardinality    Category = "cardinality"     // column present on one side only
	CategoryTypes          Category = "types"           // canonical type changed
	CategoryConstraints    Category = "constraints"     // constraint semantics changed
	CategoryOperationOrder Category = "operation-order" // operation sequence changed
	CategoryMetadata       Category = "metadata"        // comment or lineage lost or altered
)

// Violation is one structural difference between the source document
// and the re-parsed generated text.
type Violation struct {
	Category Category `json:"category"`
	Field    string   `json:"field"`
	Got      string   `json:"got"`
	Want     string   `json:"want"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: got %s, want %s", v.Category, v.Field, v.Got, v.Want)
}

// InvariantViolationError reports that verification re-parsed the
// generated text into a document that differs from the source. The
// generated text is still returned with the result so the caller can
// inspect what was produced.
type InvariantViolationError struct {
	Violations []Violation `json:"violations"`
}

func (e *InvariantViolationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("[%s] translation violates %d invariant(s): %s",
		ErrCodeInvariantViolation, len(e.Violations), strings.Join(parts, "; "))
}

// Categories returns the distinct violated categories in first-seen
// order.
func (e *InvariantViolationError) Categories() []Category {
	seen := make(map[Category]bool)
	var out []Category
	for _, v := range e.Violations {
		if !seen[v.Category] {
			seen[v.Category] = true
			out = append(out, v.Category)
		}
	}
	return out
}

// UnknownRepresentationError reports a representation tag no adapter is
// registered for.
type UnknownRepresentationError struct {
	Representation string `json:"representation"`
}

func (e *UnknownRepresentationError) Error() string {
	return fmt.Sprintf("[%s] unknown representation %q", ErrCodeUnknownRepresentation, e.Representation)
}

// InvalidDocumentError reports that a parsed document failed structural
// or catalog validation. Defects carries every problem found, not just
// the first.
type InvalidDocumentError struct {
	Defects []error `json:"defects"`
}

func (e *InvalidDocumentError) Error() string {
	parts := make([]string, len(e.Defects))
	for i, d := range e.Defects {
		parts[i] = d.Error()
	}
	return fmt.Sprintf("[%s] document invalid: %s", ErrCodeInvalidDocument, strings.Join(parts, "; "))
}

func (e *InvalidDocumentError) Unwrap() []error { return e.Defects }

// UnknownModeError reports a translation mode outside fast/verified.
type UnknownModeError struct {
	Mode string `json:"mode"`
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("[%s] unknown translation mode %q", ErrCodeUnknownMode, e.Mode)
}

// IsInvariantViolation reports whether err is (or wraps) an
// InvariantViolationError.
func IsInvariantViolation(err error) bool {
	var ie *InvariantViolationError
	return errors.As(err, &ie)
}

// IsInvalidDocument reports whether err is (or wraps) an
// InvalidDocumentError.
func IsInvalidDocument(err error) bool {
	var ie *InvalidDocumentError
	return errors.As(err, &ie)
}
