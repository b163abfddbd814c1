// Package fourfold translates schema definitions among four surface
// representations: declarative query text (SQL DDL), functional call
// trees (CUE), graph documents (YAML), and set notation. Every
// translation passes through a canonical intermediate form, so meaning
// is preserved or the translation fails; nothing is silently dropped
// or approximated.
package fourfold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fourfold/fourfold/internal/catalog"
	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
	"github.com/fourfold/fourfold/internal/translate"
)

// Representation tags one of the four surface syntaxes.
type Representation = repr.Representation

const (
	DeclarativeQuery = repr.DeclarativeQuery
	FunctionalCall   = repr.FunctionalCall
	Graph            = repr.Graph
	Set              = repr.Set
)

// Representations lists every representation in stable order.
func Representations() []Representation {
	return append([]Representation(nil), repr.All...)
}

// ParseRepresentation resolves a user-supplied representation name,
// accepting the canonical tag plus common short spellings.
func ParseRepresentation(s string) (Representation, error) {
	return repr.Parse(s)
}

// Mode selects the translation pipeline depth.
type Mode = translate.Mode

const (
	// ModeVerified re-parses generated text and proves equivalence
	// before reporting success. The default.
	ModeVerified = translate.ModeVerified

	// ModeFast skips verification.
	ModeFast = translate.ModeFast
)

// FormatConfig carries formatting choices for generated text.
type FormatConfig = repr.FormatConfig

// DefaultFormat returns the default formatting configuration.
func DefaultFormat() *FormatConfig { return repr.DefaultFormat() }

// Service error code.
const ErrCodeTranslation = "E500"

// TranslationError wraps any failure of a translation request with the
// request ID carried in diagnostics and logs.
type TranslationError struct {
	Code      string         `json:"code"`
	RequestID string         `json:"request_id"`
	Source    Representation `json:"source"`
	Target    Representation `json:"target"`
	Err       error          `json:"-"`
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("[%s] request %s: translate %s to %s: %v",
		e.Code, e.RequestID, e.Source, e.Target, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// IsTranslationError reports whether err is (or wraps) a
// TranslationError.
func IsTranslationError(err error) bool {
	var te *TranslationError
	return errors.As(err, &te)
}

// Failure-kind predicates, re-exported so callers can classify a
// translation failure without importing internal packages.
var (
	IsParseError           = repr.IsParseError
	IsUnsupportedConstruct = repr.IsUnsupportedConstruct
	IsUnknownType          = catalog.IsUnknownType
	IsUnknownConstraint    = catalog.IsUnknownConstraint
	IsUnknownToken         = catalog.IsUnknownToken
	IsAmbiguousMapping     = catalog.IsAmbiguousMapping
	IsInvariantViolation   = translate.IsInvariantViolation
	IsInvalidDocument      = translate.IsInvalidDocument
)

// Request describes one translation.
type Request struct {
	Source Representation
	Target Representation
	Input  string
	Mode   Mode // empty means ModeVerified
	Format *FormatConfig
}

// Result is a completed translation.
type Result struct {
	RequestID   string
	Output      string
	Fingerprint string
	Verified    bool
}

// Service is the public translation entry point. It holds no state
// beyond the immutable catalog; a single Service is safe for
// concurrent use.
type Service struct {
	engine *translate.Engine
}

// NewService builds a translation service over the default catalog.
func NewService() *Service {
	return &Service{engine: translate.New(catalog.New())}
}

// Translate runs one translation request. Each request is assigned a
// UUIDv7 request ID; failures carry it inside a TranslationError. On
// an invariant violation the generated text is still returned
// alongside the error.
func (s *Service) Translate(ctx context.Context, req *Request) (*Result, error) {
	id := requestID()
	slog.Debug("translation requested",
		"request_id", id,
		"source", req.Source,
		"target", req.Target,
		"mode", req.Mode)

	res, err := s.engine.Translate(ctx, &translate.Request{
		Source: req.Source,
		Target: req.Target,
		Input:  req.Input,
		Mode:   req.Mode,
		Format: req.Format,
	})
	if err != nil {
		slog.Debug("translation failed", "request_id", id, "error", err)
		terr := &TranslationError{
			Code:      ErrCodeTranslation,
			RequestID: id,
			Source:    req.Source,
			Target:    req.Target,
			Err:       err,
		}
		if res != nil {
			// Invariant violation: surface the generated text so the
			// caller can inspect what verification rejected.
			return publicResult(id, res), terr
		}
		return nil, terr
	}

	slog.Debug("translation complete",
		"request_id", id,
		"fingerprint", res.Fingerprint,
		"verified", res.Verified)
	return publicResult(id, res), nil
}

// Check parses and validates a document without generating anything.
// It returns the document fingerprint on success.
func (s *Service) Check(ctx context.Context, source Representation, input string) (string, error) {
	id := requestID()
	doc, err := s.engine.Parse(ctx, source, input)
	if err != nil {
		return "", &TranslationError{
			Code:      ErrCodeTranslation,
			RequestID: id,
			Source:    source,
			Target:    source,
			Err:       err,
		}
	}
	fp, err := ir.Fingerprint(doc)
	if err != nil {
		return "", err
	}
	return fp, nil
}

func publicResult(id string, res *translate.Result) *Result {
	return &Result{
		RequestID:   id,
		Output:      res.Output,
		Fingerprint: res.Fingerprint,
		Verified:    res.Verified,
	}
}

// requestID returns a UUIDv7, falling back to a random UUIDv4 if the
// system clock source fails.
func requestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
