package main

import (
	"context"
	"fmt"

	"github.com/matsen/paperchat/internal/arxiv"
	"github.com/matsen/paperchat/internal/clipboard"
	"github.com/matsen/paperchat/internal/export"
	"github.com/matsen/paperchat/internal/library"
	"github.com/matsen/paperchat/internal/reference"
	"github.com/spf13/cobra"
)

var (
	exportAppend string
	exportCopy   bool
)

func init() {
	exportCmd.Flags().StringVar(&exportAppend, "append", "", "Append to an existing .bib file, skipping papers already in it")
	exportCmd.Flags().BoolVar(&exportCopy, "copy", false, "Copy the BibTeX to the clipboard instead of printing it")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [ids...]",
	Short: "Export saved papers as BibTeX",
	Long: `Export saved papers as BibTeX @misc entries.

With no ids every saved paper is exported. The BibTeX is written to stdout
unless --append or --copy is given.

Examples:
  pchat export > refs.bib
  pchat export 2401.12345 --copy
  pchat export 2401.12345 --append refs.bib`,
	RunE: runExport,
}

// ExportAppendResult is the JSON output of export --append.
type ExportAppendResult struct {
	Added   int      `json:"added"`
	Skipped int      `json:"skipped"`
	Keys    []string `json:"keys"`
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, db := mustOpenService(ctx)
	defer db.Close()

	papers := mustSelectPapers(ctx, svc.Library(), args)

	if exportCopy {
		if err := clipboard.New().Copy(ctx, export.ToBibTeXList(papers)); err != nil {
			exitWithError(ExitError, "copying to clipboard: %v", err)
		}
		if !humanOutput {
			return outputJSON(map[string]int{"copied": len(papers)})
		}
		outputHuman("Copied %d BibTeX entries to the clipboard\n", len(papers))
		return nil
	}

	if exportAppend == "" {
		fmt.Print(export.ToBibTeXList(papers))
		return nil
	}

	idx, err := export.ParseBibTeXFile(exportAppend)
	if err != nil {
		exitWithError(ExitError, "reading %s: %v", exportAppend, err)
	}

	var toAdd []reference.Paper
	result := ExportAppendResult{Keys: []string{}}
	for _, p := range papers {
		key := export.CitationKey(p)
		if idx.HasEntry(key, p.ID) {
			result.Skipped++
			continue
		}
		idx.Add(key, p.ID)
		toAdd = append(toAdd, p)
		result.Keys = append(result.Keys, key)
	}
	result.Added = len(toAdd)

	if len(toAdd) > 0 {
		if err := export.AppendToBibFile(exportAppend, export.ToBibTeXList(toAdd)); err != nil {
			exitWithError(ExitError, "writing %s: %v", exportAppend, err)
		}
	}

	if !humanOutput {
		return outputJSON(result)
	}
	outputHuman("Added %d entries to %s (%d already present)\n", result.Added, exportAppend, result.Skipped)
	return nil
}

// mustSelectPapers returns the named papers, or every paper when ids is empty.
func mustSelectPapers(ctx context.Context, lib *library.Library, ids []string) []reference.Paper {
	if len(ids) == 0 {
		papers, err := lib.List(ctx)
		if err != nil {
			exitWithError(ExitDataError, "listing papers: %v", err)
		}
		return papers
	}
	papers := make([]reference.Paper, 0, len(ids))
	for _, raw := range ids {
		id, err := arxiv.ParseID(raw)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		p, err := lib.Get(ctx, id)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
		papers = append(papers, p)
	}
	return papers
}
