// Package cli holds the cobra commands of the huda binary.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"huda/internal/common"
	"huda/internal/config"
)

var (
	cfgFile string
	verbose bool

	// current is the app the running command works with. Tests set it
	// before Execute so no backend is built from config.
	current *app
)

var rootCmd = &cobra.Command{
	Use:   "huda",
	Short: "Retrieval over ayahs, tafseers, hadiths and duaas",
	Long: `huda stores religious texts as embedded documents in a vector store and
retrieves them with keyword, semantic or hybrid search.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or TOML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to the console")
}

// Execute runs the root command and closes the backend afterwards.
func Execute() error {
	defer teardown()
	rootCmd.SetOut(os.Stdout)
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, _ []string) error {
	if current != nil {
		return nil
	}
	// A missing .env is not an error.
	_ = godotenv.Load()

	var (
		cfg  *config.AppConfig
		path string
		err  error
	)
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		path = cfgFile
	} else {
		cfg, path, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	quiet := !verbose || cmd.Name() == "console"
	logger := common.InitLogger(cfg.Logging, quiet)
	logger.Debug().Str("path", path).Str("store", cfg.VectorStore.Type).Msg("Configuration loaded")

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	if err := a.seedDuaas(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("Duaa seeding failed")
	}
	current = a
	return nil
}

func teardown() {
	if current == nil {
		return
	}
	if err := current.close(); err != nil {
		current.logger.Warn().Err(err).Msg("Closing vector store failed")
	}
	current = nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// parseFilter decodes a --filter flag; an empty value matches everything.
func parseFilter(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var f map[string]any
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, fmt.Errorf("invalid --filter JSON: %w", err)
	}
	return f, nil
}
