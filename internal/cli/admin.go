package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lazypower/rapport/internal/auth"
	"github.com/lazypower/rapport/internal/engine"
	"github.com/lazypower/rapport/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := store.OpenConfig(cmd.Context(), cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		v, err := db.SchemaVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n", db.Driver, v)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <owner-id>",
	Short: "Mint an access token for an owner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tokens, err := auth.New(cfg.Auth, cfg.TokenTTL())
		if err != nil {
			return err
		}
		tok, err := tokens.Issue(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <text>",
	Short: "Classify a piece of text without storing it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		classifier, err := newClassifier(cfg, zerolog.Nop())
		if err != nil {
			return fmt.Errorf("configure llm: %w", err)
		}

		// Analyze never touches the store.
		eng := engine.New(nil, classifier, zerolog.Nop())
		insight, err := eng.Analyze(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if analyzeJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(insight)
		}
		bandColor(insight.ColorBand).Fprintf(out, "%-8s %+.2f", insight.Sentiment, insight.Score)
		fmt.Fprintf(out, "  confidence %.2f\n", insight.Confidence)
		if len(insight.Emotions) > 0 {
			fmt.Fprintf(out, "  emotions:    %s\n", strings.Join(insight.Emotions, ", "))
		}
		if len(insight.KeyPhrases) > 0 {
			fmt.Fprintf(out, "  key phrases: %s\n", strings.Join(insight.KeyPhrases, ", "))
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the analysis as JSON")
}

// bandColor maps a pulse color band onto a terminal color.
func bandColor(band string) *color.Color {
	switch band {
	case "green":
		return color.New(color.FgGreen)
	case "red":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}
