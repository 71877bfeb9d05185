package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codefacts/internal/app"
	cferrors "codefacts/internal/errors"
)

var validateCmd = &cobra.Command{
	Use:   "validate <bundle>",
	Short: "Check a fact bundle against the fact schema without storing it",
	Long: `Validate every record of a fact bundle (.json, .jsonl, .yaml or .toml)
and report each violation. Exits 1 when any record is invalid.

Examples:
  codefacts validate facts.jsonl
  codefacts validate facts.yaml --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	resp, err := app.ValidateBundle(args[0])
	if err != nil {
		return err
	}
	if err := printResult(cmd, resp); err != nil {
		return err
	}
	if resp.Invalid > 0 {
		return cferrors.New(cferrors.ValidationFailed, fmt.Sprintf("%d of %d records are invalid", resp.Invalid, resp.Records), nil)
	}
	return nil
}
