package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/matsen/paperchat/internal/assistant"
	"github.com/spf13/cobra"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", assistant.DefaultSearchLimit, "Maximum results")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find saved papers similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	ctx := context.Background()
	svc, db := mustOpenService(ctx)
	defer db.Close()

	results := mustSucceed(svc.Dispatch(ctx, assistant.SearchSimilar{Query: query, Limit: searchLimit})).([]assistant.SimilarPaper)
	if !humanOutput {
		return outputJSON(results)
	}
	if len(results) == 0 {
		fmt.Println("No similar papers found.")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%d. [%.2f] %s\n", i+1, r.Similarity, r.ID)
		fmt.Printf("   %s\n", truncateString(r.Title, SearchTitleMaxLen))
		if authors := formatAuthorsShort(r.Authors, 3); authors != "" {
			fmt.Printf("   %s\n", authors)
		}
		fmt.Println()
	}
	return nil
}
