package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fourfold/fourfold/internal/catalog"
	"github.com/fourfold/fourfold/internal/repr"
)

// CatalogEntry is one canonical construct with its spellings per
// representation.
type CatalogEntry struct {
	Canonical string              `json:"canonical"`
	Spellings map[string][]string `json:"spellings"`
}

// CatalogListing groups catalog entries by section for JSON output.
type CatalogListing struct {
	Types       []CatalogEntry `json:"types,omitempty"`
	Tokens      []CatalogEntry `json:"tokens,omitempty"`
	Constraints []CatalogEntry `json:"constraints,omitempty"`
}

var catalogSections = []string{"types", "tokens", "constraints"}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog [types|tokens|constraints]",
		Short: "List canonical constructs and their per-representation spellings",
		Long: `List the catalog: every canonical type, default token and constraint
kind, with the spellings each representation accepts. An empty spelling
list means the representation cannot express the construct.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			section := ""
			if len(args) == 1 {
				section = args[0]
			}
			return runCatalog(rootOpts, cmd, section)
		},
	}
	return cmd
}

func runCatalog(opts *RootOptions, cmd *cobra.Command, section string) error {
	formatter := newFormatter(opts, cmd)

	if section != "" && !isCatalogSection(section) {
		return commandError(formatter,
			fmt.Errorf("unknown section %q: must be one of %v", section, catalogSections))
	}

	cat := catalog.New()
	listing := CatalogListing{}

	if section == "" || section == "types" {
		for _, t := range cat.Types() {
			e := CatalogEntry{Canonical: string(t), Spellings: map[string][]string{}}
			for _, r := range repr.All {
				e.Spellings[string(r)] = cat.Spellings(t, r)
			}
			listing.Types = append(listing.Types, e)
		}
	}
	if section == "" || section == "tokens" {
		for _, tok := range cat.Tokens() {
			e := CatalogEntry{Canonical: string(tok), Spellings: map[string][]string{}}
			for _, r := range repr.All {
				e.Spellings[string(r)] = cat.TokenSpellings(tok, r)
			}
			listing.Tokens = append(listing.Tokens, e)
		}
	}
	if section == "" || section == "constraints" {
		for _, k := range cat.Kinds() {
			e := CatalogEntry{Canonical: string(k), Spellings: map[string][]string{}}
			for _, r := range repr.All {
				e.Spellings[string(r)] = cat.ConstraintSpellings(k, r)
			}
			listing.Constraints = append(listing.Constraints, e)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(listing)
	}

	printSection(formatter, "types", listing.Types)
	printSection(formatter, "tokens", listing.Tokens)
	printSection(formatter, "constraints", listing.Constraints)
	return nil
}

func printSection(formatter *OutputFormatter, title string, entries []CatalogEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(formatter.Writer, "%s:\n", title)
	for _, e := range entries {
		fmt.Fprintf(formatter.Writer, "  %s\n", e.Canonical)
		for _, r := range repr.All {
			spellings := e.Spellings[string(r)]
			if len(spellings) == 0 {
				fmt.Fprintf(formatter.Writer, "    %-18s (not expressible)\n", r)
				continue
			}
			fmt.Fprintf(formatter.Writer, "    %-18s %s\n", r, strings.Join(spellings, ", "))
		}
	}
}

func isCatalogSection(s string) bool {
	for _, name := range catalogSections {
		if s == name {
			return true
		}
	}
	return false
}
