// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the theory-engine CLI.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/consclab/theory-engine/internal/openai"
	"github.com/consclab/theory-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the theory-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "theory-engine",
	Short: "Build a cumulative theory of consciousness from paper analyses",
	Long: `theory-engine runs an LLM-driven analysis pipeline over consciousness
research papers. Each stage is a subcommand: analyze extracts structured
evidence from PDFs, theory folds analyses into a cumulative theory,
summarize explains each paper's first figure, serve renders the results
dashboard, and index builds a searchable evidence database.`,
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		setupLogging()
		loadEnvFile(cmd)
		return nil
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./theory-engine.yaml or ~/.config/theory-engine/config.yaml)")
	rootCmd.PersistentFlags().String("env-file", filepath.Join("config", ".env"), "env-format file holding OPENAI_API_KEY")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("theory-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "theory-engine"))
		}
	}

	viper.SetDefault("http.timeout", "120s")
	viper.SetDefault("http.user_agent", "theory-engine/"+version)
	viper.SetDefault("ai.model", "gpt-5")
	viper.SetDefault("ai.max_retries", 3)
	viper.SetDefault("papers_dir", "papers")
	viper.SetDefault("prompts_dir", "prompts")
	viper.SetDefault("results_dir", filepath.Join("output", "analysis_results"))
	viper.SetDefault("theory_dir", filepath.Join("output", "cumulative_theory"))
	viper.SetDefault("index.dir", filepath.Join("output", "index"))
	viper.SetDefault("index.max_results", 20)
	viper.SetDefault("serve.addr", ":5009")
	viper.SetDefault("log.level", "info")

	viper.SetEnvPrefix("THEORY_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setupLogging() {
	levelName, _ := rootCmd.PersistentFlags().GetString("log-level")
	if levelName == "" {
		levelName = viper.GetString("log.level")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadEnvFile merges KEY=VALUE pairs from the env file into the process
// environment. Already-set variables win; a missing file is not an error.
func loadEnvFile(cmd *cobra.Command) {
	path, _ := cmd.Flags().GetString("env-file")
	if path == "" {
		return
	}

	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return
	}

	for _, key := range env.AllKeys() {
		name := strings.ToUpper(key)
		if os.Getenv(name) == "" {
			os.Setenv(name, env.GetString(key))
		}
	}
}

// apiKey returns the OpenAI key or an error telling the user where to put it.
func apiKey() (string, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("OPENAI_API_KEY not set: add it to config/.env or export it")
}

func newBackend() (*openai.Client, error) {
	key, err := apiKey()
	if err != nil {
		return nil, err
	}

	timeout := viper.GetDuration("http.timeout")
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return openai.New(
		key,
		&http.Client{Timeout: timeout},
		viper.GetInt("ai.max_retries"),
		viper.GetString("http.user_agent"),
	), nil
}

// aiConfig resolves the model from the --model flag, config, or default.
func aiConfig(cmd *cobra.Command) (types.AIConfig, error) {
	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("ai.model")
	}
	if !types.ValidModels[model] {
		return types.AIConfig{}, fmt.Errorf("unsupported model %q: use gpt-5, gpt-5-mini, or gpt-5-nano", model)
	}

	return types.AIConfig{
		Model:      model,
		MaxRetries: viper.GetInt("ai.max_retries"),
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
