package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fourfold/fourfold"
)

// CheckResult holds check results.
type CheckResult struct {
	Valid       bool   `json:"valid"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var reprName string

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Parse and validate a schema document",
		Long: `Parse a schema document and run full validation without generating
anything. Prints the document fingerprint on success; the fingerprint
is identical for semantically equal documents in any representation.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runCheck(rootOpts, cmd, path, reprName)
		},
	}

	cmd.Flags().StringVarP(&reprName, "repr", "r", "", "document representation (sql|call|graph|set)")
	_ = cmd.MarkFlagRequired("repr")

	return cmd
}

func runCheck(opts *RootOptions, cmd *cobra.Command, path, reprName string) error {
	formatter := newFormatter(opts, cmd)

	r, err := fourfold.ParseRepresentation(reprName)
	if err != nil {
		return commandError(formatter, err)
	}
	input, err := readInput(cmd, path)
	if err != nil {
		return commandError(formatter, err)
	}

	fp, err := fourfold.NewService().Check(cmd.Context(), r, input)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	if opts.Format == "json" {
		return formatter.Success(CheckResult{Valid: true, Fingerprint: fp})
	}
	fmt.Fprintf(formatter.Writer, "valid (fingerprint %s)\n", fp)
	return nil
}
