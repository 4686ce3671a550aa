package main

import (
	"context"

	"github.com/matsen/paperchat/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup <file.jsonl>",
	Short: "Write every saved paper to a JSONL file",
	Long: `Write every saved paper to a JSONL file, one paper per line.

Only paper metadata and tags are written. Embeddings and chunks are
rebuilt from the papers after a restore.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <file.jsonl>",
	Short: "Import papers from a JSONL backup",
	Long: `Import papers from a JSONL backup written by 'pchat backup'.

Papers already in the library are merged: tags are combined and the saved
date is kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

// BackupResult is the JSON output of backup and restore.
type BackupResult struct {
	Path   string `json:"path"`
	Papers int    `json:"papers"`
}

func runBackup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, db := mustOpenService(ctx)
	defer db.Close()

	papers, err := svc.Library().List(ctx)
	if err != nil {
		exitWithError(ExitDataError, "listing papers: %v", err)
	}
	if err := storage.WritePapers(args[0], papers); err != nil {
		exitWithError(ExitError, "writing backup: %v", err)
	}

	if !humanOutput {
		return outputJSON(BackupResult{Path: args[0], Papers: len(papers)})
	}
	outputHuman("Wrote %d papers to %s\n", len(papers), args[0])
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	papers, err := storage.ReadPapers(args[0])
	if err != nil {
		exitWithError(ExitDataError, "reading backup: %v", err)
	}

	ctx := context.Background()
	svc, db := mustOpenService(ctx)
	defer db.Close()

	n, err := svc.Library().Import(ctx, papers)
	if err != nil {
		exitWithError(ExitDataError, "importing papers: %v", err)
	}

	if !humanOutput {
		return outputJSON(BackupResult{Path: args[0], Papers: n})
	}
	outputHuman("Imported %d papers from %s\n", n, args[0])
	outputHuman("Run 'pchat extract <id>' to index them for chat.\n")
	return nil
}
