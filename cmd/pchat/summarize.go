package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/matsen/paperchat/internal/arxiv"
	"github.com/matsen/paperchat/internal/assistant"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(keywordsCmd)
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <id>",
	Short: "Summarize a saved paper from its abstract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := mustParseID(args[0])
		ctx := context.Background()
		svc, db := mustOpenService(ctx)
		defer db.Close()

		data := mustSucceed(svc.Dispatch(ctx, assistant.Summarize{PaperID: id})).(map[string]string)
		if !humanOutput {
			return outputJSON(data)
		}
		fmt.Println(wrapText(data["summary"], TextWrapWidth, ""))
		return nil
	},
}

var keywordsCmd = &cobra.Command{
	Use:   "keywords <id>",
	Short: "Suggest keywords for a saved paper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := mustParseID(args[0])
		ctx := context.Background()
		svc, db := mustOpenService(ctx)
		defer db.Close()

		data := mustSucceed(svc.Dispatch(ctx, assistant.Keywords{PaperID: id})).(map[string][]string)
		if !humanOutput {
			return outputJSON(data)
		}
		fmt.Println(strings.Join(data["keywords"], ", "))
		return nil
	},
}

// mustParseID parses an arXiv id or URL, exits on error.
func mustParseID(s string) string {
	id, err := arxiv.ParseID(s)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	return id
}
