package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"codefacts/internal/app"
	cferrors "codefacts/internal/errors"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <project>",
	Short: "Export a project's facts as a zstd-compressed snapshot",
	Long: `Write every typed fact of a project as zstd-compressed JSON Lines,
ordered by type then identity, behind a header line.

Examples:
  codefacts export ./src/Billing -o billing.jsonl.zst
  codefacts export ./src/Billing > billing.jsonl.zst`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <project> <snapshot>",
	Short: "Ingest a snapshot into an existing project",
	Long: `Validate and ingest the facts of a snapshot into a registered project.
Facts already stored are updated in place, never duplicated.

Examples:
  codefacts import ./src/Billing billing.jsonl.zst`,
	Args: cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) (interface{}, error) {
		f, err := os.Open(args[1])
		if os.IsNotExist(err) {
			return nil, cferrors.Missing("snapshot", args[1])
		}
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return a.ImportSnapshot(ctx, args[0], f)
	}),
}

// ExportResponseCLI reports a written snapshot.
type ExportResponseCLI struct {
	Project string `json:"project"`
	Output  string `json:"output"`
	Count   int    `json:"count"`
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Snapshot file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := newContext()
	defer cancel()

	if exportOutput == "" {
		_, err := s.app.ExportSnapshot(ctx, args[0], cmd.OutOrStdout())
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(exportOutput), ".codefacts-export-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	h, err := s.app.ExportSnapshot(ctx, args[0], tmp)
	if err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), exportOutput); err != nil {
		return fmt.Errorf("write %s: %w", exportOutput, err)
	}
	return printResult(cmd, &ExportResponseCLI{Project: args[0], Output: exportOutput, Count: h.Count})
}
