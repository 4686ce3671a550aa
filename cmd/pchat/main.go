// Package main provides the pchat CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matsen/paperchat/internal/assistant"
	"github.com/matsen/paperchat/internal/config"
	"github.com/matsen/paperchat/internal/logging"
	"github.com/matsen/paperchat/internal/storage"
	"github.com/phuslu/log"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	logLevel    string
	dataDir     string
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pchat",
	Short: "Chat with the arXiv papers you save",
	Long: `pchat keeps a local library of arXiv papers and answers questions
about them using their full text.

Papers are extracted from PDF (falling back to the abstract page), split into
overlapping page chunks, embedded and searched by cosine similarity. Answers
are generated by OpenAI, Claude or Gemini with the most relevant chunks as
context.

All commands output JSON by default; use --human for readable text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding the pchat database")
	rootCmd.Version = Version
}

// mustLoadConfig loads the config file and environment, exits on error.
func mustLoadConfig() config.Config {
	cfg, err := config.LoadAll()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v\n\nFix %s or run 'pchat config set <key> <value>'.", err, config.Path())
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg
}

func newLogger(cfg config.Config) *log.Logger {
	return logging.New(cfg.LogLevel, os.Stderr)
}

// mustOpenDatabase opens the SQLite database in the data directory, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(cfg config.Config) *storage.DB {
	dir := cfg.ResolvedDataDir()
	if dir == "" {
		exitWithError(ExitConfigError, "cannot determine data directory; set data_dir or %s", config.EnvDataDir)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		exitWithError(ExitConfigError, "creating data directory: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(dir))
	if err != nil {
		exitWithError(ExitDataError, "opening database: %v", err)
	}
	return db
}

// saveSetting writes one key to the config file without touching the others.
func saveSetting(key, value string) error {
	path := config.Path()
	fileCfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := fileCfg.Set(key, value); err != nil {
		return err
	}
	return config.Save(path, fileCfg)
}

// mustOpenService opens the database and builds the assistant service.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenService(ctx context.Context) (*assistant.Service, *storage.DB) {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	svc, err := assistant.New(ctx, db, cfg,
		assistant.WithLogger(newLogger(cfg)),
		assistant.WithSettingSaver(saveSetting))
	if err != nil {
		db.Close()
		exitWithError(ExitConfigError, "starting pchat: %v", err)
	}
	return svc, db
}
