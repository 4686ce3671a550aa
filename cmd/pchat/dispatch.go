package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/matsen/paperchat/internal/assistant"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(dispatchCmd)
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run one JSON request read from stdin",
	Long: `Run one JSON request read from stdin and print the JSON response.

The request is an object with a "type" field naming the operation, for
example:

  {"type": "get_marker", "paper_id": "2401.12345"}
  {"type": "chat", "paper": {"id": "2401.12345"}, "message": "What is new here?"}

The exit code follows the response's error code.`,
	Args: cobra.NoArgs,
	RunE: runDispatch,
}

func runDispatch(cmd *cobra.Command, args []string) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitWithError(ExitError, "reading request: %v", err)
	}

	req, err := assistant.DecodeRequest(data)
	if err != nil {
		resp := assistant.Response{Error: err.Error(), Code: assistant.CodeInvalidRequest}
		writeResponse(resp)
		os.Exit(exitCodeFor(resp.Code))
	}

	ctx := context.Background()
	svc, db := mustOpenService(ctx)
	resp := svc.Dispatch(ctx, req)
	db.Close()

	writeResponse(resp)
	if !resp.OK() {
		os.Exit(exitCodeFor(resp.Code))
	}
	return nil
}

// writeResponse prints resp as one line of JSON regardless of --human.
func writeResponse(resp assistant.Response) {
	enc := json.NewEncoder(os.Stdout)
	enc.Encode(resp)
}
