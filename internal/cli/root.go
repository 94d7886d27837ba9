package cli

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lazypower/rapport/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rapport",
	Short: "Relationship sentiment tracker",
	Long: "Rapport records interactions with the people in your life, scores each one with an LLM " +
		"sentiment classifier, and rolls them up into per-person stats and pulse charts.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (or RAPPORT_CONFIG)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(pulseCmd)
}

// loadConfig reads .env (if present) into the environment, then builds the
// effective configuration.
func loadConfig() (config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, err
	}
	return config.Load(configPath)
}
