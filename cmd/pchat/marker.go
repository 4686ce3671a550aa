package main

import (
	"context"
	"fmt"

	"github.com/matsen/paperchat/internal/arxiv"
	"github.com/matsen/paperchat/internal/assistant"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(markerCmd)
}

var markerCmd = &cobra.Command{
	Use:   "marker <id>",
	Short: "Show whether a paper has been extracted",
	Args:  cobra.ExactArgs(1),
	RunE:  runMarker,
}

func runMarker(cmd *cobra.Command, args []string) error {
	id, err := arxiv.ParseID(args[0])
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	ctx := context.Background()
	svc, db := mustOpenService(ctx)
	defer db.Close()

	status := mustSucceed(svc.Dispatch(ctx, assistant.GetMarker{PaperID: id})).(assistant.MarkerStatus)
	if !humanOutput {
		return outputJSON(status)
	}
	if !status.Extracted {
		fmt.Printf("%s has not been extracted\n", id)
		return nil
	}
	m := status.Marker
	fmt.Printf("%s: %d chunks from %s, extracted %s (full PDF: %v)\n",
		id, m.ChunkCount, m.Source, m.ExtractedAt.Format("2006-01-02 15:04"), m.HasFullPDF)
	return nil
}
