package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fourfold/fourfold"
)

// TranslateResult is the JSON payload for a successful translation.
type TranslateResult struct {
	Output      string `json:"output"`
	Fingerprint string `json:"fingerprint"`
	Verified    bool   `json:"verified"`
	RequestID   string `json:"request_id"`
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	var from, to, mode, outPath string

	cmd := &cobra.Command{
		Use:   "translate [file]",
		Short: "Translate a schema document between representations",
		Long: `Translate a schema document from one representation to another.

Reads the input file, or stdin when no file (or "-") is given. In
verified mode (the default) the generated text is re-parsed and proven
equivalent to the input before being reported as a success.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runTranslate(rootOpts, cmd, path, from, to, mode, outPath)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "source representation (sql|call|graph|set)")
	cmd.Flags().StringVar(&to, "to", "", "target representation (sql|call|graph|set)")
	cmd.Flags().StringVar(&mode, "mode", "verified", "translation mode (verified|fast)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write generated text to file instead of stdout")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runTranslate(opts *RootOptions, cmd *cobra.Command, path, from, to, mode, outPath string) error {
	formatter := newFormatter(opts, cmd)

	source, err := fourfold.ParseRepresentation(from)
	if err != nil {
		return commandError(formatter, err)
	}
	target, err := fourfold.ParseRepresentation(to)
	if err != nil {
		return commandError(formatter, err)
	}
	cfg, err := LoadFormatConfig(opts.ConfigPath)
	if err != nil {
		return commandError(formatter, err)
	}
	input, err := readInput(cmd, path)
	if err != nil {
		return commandError(formatter, err)
	}

	svc := fourfold.NewService()
	res, err := svc.Translate(cmd.Context(), &fourfold.Request{
		Source: source,
		Target: target,
		Input:  input,
		Mode:   fourfold.Mode(mode),
		Format: cfg,
	})
	if err != nil {
		if res != nil {
			// Verification rejected the generated text; show it so the
			// mismatch can be inspected.
			formatter.VerboseLog("rejected output:\n%s", res.Output)
		}
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	formatter.VerboseLog("request %s: fingerprint %s", res.RequestID, res.Fingerprint)

	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(res.Output), 0o644); err != nil {
			return commandError(formatter, err)
		}
		if opts.Format == "json" {
			return formatter.Success(TranslateResult{
				Fingerprint: res.Fingerprint,
				Verified:    res.Verified,
				RequestID:   res.RequestID,
			})
		}
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

// commandError reports err and returns an exit-code-2 error.
func commandError(formatter *OutputFormatter, err error) error {
	_ = formatter.Error("E500", err.Error(), nil)
	return WrapExitError(ExitCommandError, "command failed", err)
}
