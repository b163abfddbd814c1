package repr

import (
	"errors"
	"fmt"
)

// Parse/generate error codes (E200-E299).
const (
	ErrCodeSyntax      = "E200" // malformed source text
	ErrCodeUnsupported = "E201" // well-formed but not expressible
	ErrCodeGeneration  = "E202" // document cannot be emitted
)

// Span locates an offending fragment in source text. Line and Col are
// 1-based; a zero Span means "position unknown".
type Span struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

func (s Span) String() string {
	if s.Line == 0 {
		return "?"
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Col)
}

// ParseError reports malformed source syntax. Always surfaced to the
// caller, never silently recovered.
type ParseError struct {
	Source  Representation `json:"source"`
	Span    Span           `json:"span"`
	Message string         `json:"message"`
	Snippet string         `json:"snippet,omitempty"` // offending source fragment
}

func (e *ParseError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("[%s] %s: %s: %s near %q", ErrCodeSyntax, e.Source, e.Span, e.Message, e.Snippet)
	}
	return fmt.Sprintf("[%s] %s: %s: %s", ErrCodeSyntax, e.Source, e.Span, e.Message)
}

// UnsupportedConstructError reports a well-formed construct that has no
// equivalent in the target (or no catalog entry in the source). The
// fragment names the construct; the representations involved are
// carried so the caller can see both sides of the failed mapping.
type UnsupportedConstructError struct {
	Construct string         `json:"construct"` // e.g. "CHECK (price > 0)", "lineage edge"
	Span      Span           `json:"span"`      // zero during generation
	Source    Representation `json:"source,omitempty"`
	Target    Representation `json:"target,omitempty"`
}

func (e *UnsupportedConstructError) Error() string {
	switch {
	case e.Source != "" && e.Target != "":
		return fmt.Sprintf("[%s] construct %q has no %s equivalent (source %s)",
			ErrCodeUnsupported, e.Construct, e.Target, e.Source)
	case e.Target != "":
		return fmt.Sprintf("[%s] construct %q has no %s equivalent", ErrCodeUnsupported, e.Construct, e.Target)
	default:
		return fmt.Sprintf("[%s] %s: %s: unsupported construct %q", ErrCodeUnsupported, e.Source, e.Span, e.Construct)
	}
}

// GenerationError reports a document that cannot be emitted for a
// reason other than an unsupported construct (e.g. structurally
// invalid payloads that slipped past validation).
type GenerationError struct {
	Target  Representation `json:"target"`
	Message string         `json:"message"`
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("[%s] generate %s: %s", ErrCodeGeneration, e.Target, e.Message)
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsUnsupportedConstruct reports whether err is (or wraps) an
// UnsupportedConstructError.
func IsUnsupportedConstruct(err error) bool {
	var ue *UnsupportedConstructError
	return errors.As(err, &ue)
}
