package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fourfold/fourfold"
)

// NewFmtCommand creates the fmt command.
func NewFmtCommand(rootOpts *RootOptions) *cobra.Command {
	var reprName string
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt [file]",
		Short: "Canonicalize a schema document in place of its own representation",
		Long: `Rewrite a schema document in its own representation's canonical form.

A self-translation: the document is parsed, validated and regenerated,
so formatting differences disappear while meaning is untouched.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runFmt(rootOpts, cmd, path, reprName, write)
		},
	}

	cmd.Flags().StringVarP(&reprName, "repr", "r", "", "document representation (sql|call|graph|set)")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite the input file instead of printing")
	_ = cmd.MarkFlagRequired("repr")

	return cmd
}

func runFmt(opts *RootOptions, cmd *cobra.Command, path, reprName string, write bool) error {
	formatter := newFormatter(opts, cmd)

	r, err := fourfold.ParseRepresentation(reprName)
	if err != nil {
		return commandError(formatter, err)
	}
	if write && (path == "" || path == "-") {
		return commandError(formatter, fmt.Errorf("--write needs a file argument"))
	}
	cfg, err := LoadFormatConfig(opts.ConfigPath)
	if err != nil {
		return commandError(formatter, err)
	}
	input, err := readInput(cmd, path)
	if err != nil {
		return commandError(formatter, err)
	}

	res, err := fourfold.NewService().Translate(cmd.Context(), &fourfold.Request{
		Source: r,
		Target: r,
		Input:  input,
		Format: cfg,
	})
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	if write {
		if err := os.WriteFile(path, []byte(res.Output), 0o644); err != nil {
			return commandError(formatter, err)
		}
		formatter.VerboseLog("rewrote %s", path)
		return nil
	}
	if opts.Format == "json" {
		return formatter.Success(TranslateResult{
			Output:      res.Output,
			Fingerprint: res.Fingerprint,
			Verified:    res.Verified,
			RequestID:   res.RequestID,
		})
	}
	fmt.Fprint(formatter.Writer, res.Output)
	return nil
}
