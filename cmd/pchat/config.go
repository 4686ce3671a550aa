package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/matsen/paperchat/internal/assistant"
	"github.com/matsen/paperchat/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change pchat settings",
	Long: `Show or change pchat settings stored in the global config file.

Environment variables (OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY,
PCHAT_DATA_DIR, PCHAT_LOG_LEVEL) and a .env file in the working directory
override the file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show every setting with credentials masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		values := cfg.Redacted()
		if !humanOutput {
			return outputJSON(values)
		}
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%-22s %s\n", k, values[k])
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		v, err := cfg.Get(args[0])
		if err != nil {
			exitWithError(ExitConfigError, "%v\n\nKnown keys: %v", err, config.Keys())
		}
		if config.IsSecret(args[0]) && v != "" {
			v = config.Mask(v)
		}
		if !humanOutput {
			return outputJSON(map[string]string{args[0]: v})
		}
		fmt.Println(v)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Change one setting in the global config file.

Setting an API key re-embeds and extracts any saved papers that are not yet
indexed.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	if provider, ok := providerForKey(key); ok {
		ctx := context.Background()
		svc, db := mustOpenService(ctx)
		defer db.Close()

		report := mustSucceed(svc.Dispatch(ctx, assistant.SetCredential{Provider: provider, APIKey: value})).(assistant.BackfillReport)
		if !humanOutput {
			return outputJSON(struct {
				UpdateResponse
				Backfill assistant.BackfillReport `json:"backfill"`
			}{UpdateResponse{Status: "updated", Key: key, Value: config.Mask(value)}, report})
		}
		outputHuman("Updated %s\n", key)
		outputHuman("Backfill: %d embedded, %d extracted, %d failed\n", report.Embedded, report.Extracted, report.Failed)
		return nil
	}

	if err := saveSetting(key, value); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if !humanOutput {
		return outputJSON(UpdateResponse{Status: "updated", Key: key, Value: value})
	}
	outputHuman("Updated %s = %s\n", key, value)
	return nil
}

// providerForKey returns the provider whose credential is stored under key.
func providerForKey(key string) (string, bool) {
	for _, p := range []string{config.ProviderOpenAI, config.ProviderClaude, config.ProviderGemini} {
		if k, ok := config.CredentialKey(p); ok && k == key {
			return p, true
		}
	}
	return "", false
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file and data directory locations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		paths := map[string]string{
			"config":   config.Path(),
			"data_dir": cfg.ResolvedDataDir(),
		}
		if !humanOutput {
			return outputJSON(paths)
		}
		outputHuman("config:   %s\n", paths["config"])
		outputHuman("data_dir: %s\n", paths["data_dir"])
		return nil
	},
}
