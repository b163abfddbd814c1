// Package translate is the transformation core: it wires the four
// representation adapters to the shared catalog and runs the
// parse -> validate -> generate -> verify pipeline. The package is
// pure; logging and request identity live with the callers.
package translate

import (
	"context"
	"fmt"

	"github.com/fourfold/fourfold/internal/catalog"
	"github.com/fourfold/fourfold/internal/declarative"
	"github.com/fourfold/fourfold/internal/funcall"
	"github.com/fourfold/fourfold/internal/graphdoc"
	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
	"github.com/fourfold/fourfold/internal/setnotation"
)

// Mode selects how much verification a translation performs.
type Mode string

const (
	// ModeVerified re-parses the generated text and compares it to the
	// source document under the translation invariants. The default.
	ModeVerified Mode = "verified"
	// ModeFast skips verification. Structurally identical output,
	// roughly half the work.
	ModeFast Mode = "fast"
)

// Request describes one translation. Source and Target may be equal:
// self-translation canonicalizes the input.
type Request struct {
	Source repr.Representation
	Target repr.Representation
	Input  string
	Mode   Mode // empty means ModeVerified
	Format *repr.FormatConfig
}

// Result carries the generated text, the source document it was
// generated from, and the document's content-addressed fingerprint.
// When verification fails, Translate returns the Result alongside the
// InvariantViolationError so callers can inspect the output.
type Result struct {
	Output      string
	Doc         *ir.Document
	Fingerprint string
	Verified    bool
}

// Engine owns the adapter registry and the catalog. Stateless across
// requests; one Engine serves concurrent translations.
type Engine struct {
	cat      *catalog.Catalog
	adapters map[repr.Representation]repr.Adapter
}

// New builds an engine over the given catalog with all four adapters
// registered.
func New(cat *catalog.Catalog) *Engine {
	return &Engine{
		cat: cat,
		adapters: map[repr.Representation]repr.Adapter{
			repr.DeclarativeQuery: declarative.New(cat),
			repr.FunctionalCall:   funcall.New(cat),
			repr.Graph:            graphdoc.New(cat),
			repr.Set:              setnotation.New(cat),
		},
	}
}

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Adapter returns the adapter registered for a representation.
func (e *Engine) Adapter(r repr.Representation) (repr.Adapter, error) {
	a, ok := e.adapters[r]
	if !ok {
		return nil, &UnknownRepresentationError{Representation: string(r)}
	}
	return a, nil
}

// Parse decodes input in the given representation and validates the
// resulting document.
func (e *Engine) Parse(ctx context.Context, source repr.Representation, input string) (*ir.Document, error) {
	a, err := e.Adapter(source)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := a.Parse(input)
	if err != nil {
		return nil, err
	}
	if err := e.validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// validate runs structural validation plus the catalog's default
// compatibility check, collecting every defect.
func (e *Engine) validate(doc *ir.Document) error {
	var defects []error
	for _, ve := range ir.Validate(doc) {
		defects = append(defects, ve)
	}
	for _, de := range e.cat.CheckDefaults(doc) {
		defects = append(defects, de)
	}
	if len(defects) > 0 {
		return &InvalidDocumentError{Defects: defects}
	}
	return nil
}

// Translate runs the full pipeline for one request. The context is
// checked between stages and per operation during verification;
// cancellation always surfaces as an error, never as truncated output.
//
// On an invariant violation the returned Result is non-nil and holds
// the generated text; every other error returns a nil Result.
func (e *Engine) Translate(ctx context.Context, req *Request) (*Result, error) {
	mode := req.Mode
	switch mode {
	case "":
		mode = ModeVerified
	case ModeVerified, ModeFast:
	default:
		return nil, &UnknownModeError{Mode: string(req.Mode)}
	}
	target, err := e.Adapter(req.Target)
	if err != nil {
		return nil, err
	}

	doc, err := e.Parse(ctx, req.Source, req.Input)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	output, err := target.Generate(doc, req.Format)
	if err != nil {
		return nil, err
	}
	fp, err := ir.Fingerprint(doc)
	if err != nil {
		return nil, fmt.Errorf("fingerprint source document: %w", err)
	}
	res := &Result{Output: output, Doc: doc, Fingerprint: fp}
	if mode == ModeFast {
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reparsed, err := target.Parse(output)
	if err != nil {
		return nil, fmt.Errorf("verification re-parse of generated %s: %w", req.Target, err)
	}
	violations, err := Compare(ctx, doc, reparsed)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return res, &InvariantViolationError{Violations: violations}
	}
	res.Verified = true
	return res, nil
}
