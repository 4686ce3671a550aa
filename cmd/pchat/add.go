package main

import (
	"context"
	"strings"

	"github.com/matsen/paperchat/internal/arxiv"
	"github.com/matsen/paperchat/internal/assistant"
	"github.com/spf13/cobra"
)

var addTags []string

func init() {
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "Tag to attach (repeatable)")
	rootCmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add <arxiv-url|id>",
	Short: "Save an arXiv paper and index its full text",
	Long: `Save an arXiv paper to the library.

The abstract page is fetched for metadata. When an embedding provider is
configured the paper is embedded and its PDF is extracted and chunked.

Examples:
  pchat add 2401.12345
  pchat add https://arxiv.org/abs/2401.12345v2 --tag "To Read"`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	id, err := arxiv.ParseID(args[0])
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	ctx := context.Background()
	paper, err := arxiv.NewClient().FetchPaper(ctx, id)
	if err != nil {
		exitWithError(ExitDataError, "fetching %s: %v", id, err)
	}
	if len(addTags) > 0 {
		paper.Tags = addTags
	}

	svc, db := mustOpenService(ctx)
	defer db.Close()

	result := mustSucceed(svc.Dispatch(ctx, assistant.SavePaper{Paper: paper})).(assistant.SaveResult)

	if !humanOutput {
		return outputJSON(result)
	}
	outputHuman("Saved %s: %s\n", result.Paper.ID, result.Paper.Title)
	if result.Extraction != nil {
		outputHuman("Indexed %d chunks from %s\n", result.Extraction.ChunkCount, result.Extraction.Source)
	} else if !result.Embedded {
		outputHuman("Not indexed: no embedding provider configured\n")
	}
	for _, w := range result.Warnings {
		outputHuman("warning: %s\n", w)
	}
	if len(result.Paper.Tags) > 0 {
		outputHuman("Tags: %s\n", strings.Join(result.Paper.Tags, ", "))
	}
	return nil
}
