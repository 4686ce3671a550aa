package main

import (
	"context"

	"github.com/matsen/paperchat/internal/arxiv"
	"github.com/matsen/paperchat/internal/assistant"
	"github.com/spf13/cobra"
)

var extractFull bool

func init() {
	extractCmd.Flags().BoolVar(&extractFull, "full", false, "Extract every page instead of the fast-mode page budget")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <id>",
	Short: "Extract, chunk and embed a saved paper",
	Long: `Extract a saved paper's text and index it for chat.

By default only the first fast_mode_pages pages are read. Papers that were
already extracted are left as they are.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	id, err := arxiv.ParseID(args[0])
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	ctx := context.Background()
	svc, db := mustOpenService(ctx)
	defer db.Close()

	status := mustSucceed(svc.Dispatch(ctx, assistant.Extract{PaperID: id, Full: extractFull})).(assistant.ExtractStatus)
	if !humanOutput {
		return outputJSON(status)
	}
	if status.AlreadyExtracted {
		outputHuman("%s already extracted (%d chunks)\n", id, status.ChunkCount)
		return nil
	}
	outputHuman("Extracted %s: %d chunks from %s (full PDF: %v)\n", id, status.ChunkCount, status.Source, status.HasFullPDF)
	return nil
}
