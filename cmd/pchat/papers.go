package main

import (
	"context"

	"github.com/matsen/paperchat/internal/assistant"
	"github.com/matsen/paperchat/internal/library"
	"github.com/matsen/paperchat/internal/reference"
	"github.com/spf13/cobra"
)

var papersFilter library.Filter

func init() {
	papersCmd.Flags().StringVar(&papersFilter.Tag, "tag", "", "Only list papers with this tag")
	papersCmd.Flags().StringArrayVarP(&papersFilter.Authors, "author", "a", nil, "Only list papers by this author (repeatable, ANDed)")
	papersCmd.Flags().IntVar(&papersFilter.Since, "since", 0, "Only list papers from this year onward")
	rootCmd.AddCommand(papersCmd)
}

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "List saved papers",
	Long: `List saved papers ordered by arXiv id.

Author filters match the last name exactly and the first name by prefix:
"Tim Yu" matches "Timothy C Yu", "Yu" does not match "Yujia".`,
	Args: cobra.NoArgs,
	RunE: runPapers,
}

func runPapers(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, db := mustOpenService(ctx)
	defer db.Close()

	papers := mustSucceed(svc.Dispatch(ctx, assistant.ListPapers{})).([]reference.Paper)
	papers = papersFilter.Apply(papers)

	if !humanOutput {
		if papers == nil {
			papers = []reference.Paper{}
		}
		return outputJSON(papers)
	}
	printPapersHuman(papers)
	return nil
}
