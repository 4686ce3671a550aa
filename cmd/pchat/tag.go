package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/matsen/paperchat/internal/arxiv"
	"github.com/matsen/paperchat/internal/assistant"
	"github.com/matsen/paperchat/internal/library"
	"github.com/spf13/cobra"
)

func init() {
	tagCmd.AddCommand(tagAddCmd)
	tagCmd.AddCommand(tagRemoveCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(tagsCmd)
}

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Add or remove tags on saved papers",
}

var tagAddCmd = &cobra.Command{
	Use:   "add <id> <tag>",
	Short: "Add a tag to a paper",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTag(args, func(id, tag string) assistant.Request { return assistant.AddTag{PaperID: id, Tag: tag} })
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:   "remove <id> <tag>",
	Short: "Remove a tag from a paper",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTag(args, func(id, tag string) assistant.Request { return assistant.RemoveTag{PaperID: id, Tag: tag} })
	},
}

func runTag(args []string, build func(id, tag string) assistant.Request) error {
	id, err := arxiv.ParseID(args[0])
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	ctx := context.Background()
	svc, db := mustOpenService(ctx)
	defer db.Close()

	result := mustSucceed(svc.Dispatch(ctx, build(id, args[1]))).(library.TagResult)
	if !humanOutput {
		outputJSON(result)
	} else {
		fmt.Println(result.Message)
	}
	if !result.Success {
		return fmt.Errorf("%s", result.Message)
	}
	return nil
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags with the number of papers carrying each",
	Args:  cobra.NoArgs,
	RunE:  runTags,
}

func runTags(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, db := mustOpenService(ctx)
	defer db.Close()

	counts := mustSucceed(svc.Dispatch(ctx, assistant.TagCounts{})).(map[string]int)
	if !humanOutput {
		return outputJSON(counts)
	}

	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) == 0 {
		fmt.Println("No tags.")
	}
	for _, t := range tags {
		fmt.Printf("%4d  %s\n", counts[t], t)
	}
	return nil
}
