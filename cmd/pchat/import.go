package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matsen/paperchat/internal/importer"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <export.json>",
	Short: "Import papers saved by the arXiv browser extension",
	Long: `Import papers from a browser-extension storage export.

The file may be the whole extension storage object or just its
arxiv_papers map. Entries that cannot be read are reported and skipped.
Papers are saved with their tags but not indexed; run 'pchat extract <id>'
or set an API key to index them.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// ImportResult is the JSON output of import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		exitWithError(ExitDataError, "reading %s: %v", args[0], err)
	}

	papers, parseErrs := importer.ParseExtensionExport(data)
	if len(papers) == 0 && len(parseErrs) > 0 {
		exitWithError(ExitDataError, "%v", parseErrs[0])
	}

	ctx := context.Background()
	svc, db := mustOpenService(ctx)
	defer db.Close()

	n, err := svc.Library().Import(ctx, papers)
	if err != nil {
		exitWithError(ExitDataError, "importing papers: %v", err)
	}

	result := ImportResult{Imported: n, Skipped: len(parseErrs)}
	for _, e := range parseErrs {
		result.Errors = append(result.Errors, e.Error())
	}

	if !humanOutput {
		return outputJSON(result)
	}
	outputHuman("Imported %d papers from %s\n", n, args[0])
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "skipped: %s\n", e)
	}
	return nil
}
