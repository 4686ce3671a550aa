package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/paperchat/internal/arxiv"
	"github.com/matsen/paperchat/internal/assistant"
	"github.com/matsen/paperchat/internal/chat"
	"github.com/matsen/paperchat/internal/reference"
	"github.com/spf13/cobra"
)

var chatHistoryFile string

func init() {
	chatCmd.Flags().StringVar(&chatHistoryFile, "history", "", "JSON file of prior messages; the exchange is appended to it")
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat <id> <question>",
	Short: "Ask a question about a saved paper",
	Long: `Ask a question about a saved paper.

The paper is extracted on first use. The most relevant chunks are sent to
the chat model with the question; if no chunks are available the abstract
is used instead.

Examples:
  pchat chat 2401.12345 "What dataset do they use?"
  pchat chat 2401.12345 "And how large is it?" --history session.json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	id, err := arxiv.ParseID(args[0])
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	question := strings.Join(args[1:], " ")

	history, err := readHistory(chatHistoryFile)
	if err != nil {
		exitWithError(ExitError, "reading history: %v", err)
	}

	ctx := context.Background()
	svc, db := mustOpenService(ctx)
	defer db.Close()

	reply := mustSucceed(svc.Dispatch(ctx, assistant.Chat{
		Paper:   reference.Paper{ID: id},
		Message: question,
		History: history,
	})).(chat.Reply)

	if chatHistoryFile != "" {
		history = append(history,
			chat.Message{Role: chat.RoleUser, Content: question},
			chat.Message{Role: chat.RoleAssistant, Content: reply.Response})
		if err := writeHistory(chatHistoryFile, history); err != nil {
			exitWithError(ExitError, "writing history: %v", err)
		}
	}

	if !humanOutput {
		return outputJSON(reply)
	}
	fmt.Println(reply.Response)
	if len(reply.Sources) > 0 {
		pages := make([]string, len(reply.Sources))
		for i, s := range reply.Sources {
			pages[i] = fmt.Sprint(s.PageNumber)
		}
		outputHuman("\n(sources: pages %s)\n", strings.Join(pages, ", "))
	} else {
		outputHuman("\n(answered from the abstract)\n")
	}
	return nil
}

// readHistory loads prior messages. A missing file is an empty history.
func readHistory(path string) ([]chat.Message, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var history []chat.Message
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for i, m := range history {
		if m.Role != chat.RoleUser && m.Role != chat.RoleAssistant {
			return nil, fmt.Errorf("message %d: role must be user or assistant, got %q", i, m.Role)
		}
	}
	return history, nil
}

func writeHistory(path string, history []chat.Message) error {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
