package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lazypower/rapport/internal/auth"
	"github.com/lazypower/rapport/internal/config"
	"github.com/lazypower/rapport/internal/engine"
	"github.com/lazypower/rapport/internal/llm"
	"github.com/lazypower/rapport/internal/logger"
	"github.com/lazypower/rapport/internal/sentiment"
	"github.com/lazypower/rapport/internal/server"
	"github.com/lazypower/rapport/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

// newClassifier wires the configured LLM provider behind the circuit breaker
// and the sentiment adapter.
func newClassifier(cfg config.Config, log zerolog.Logger) (*sentiment.Classifier, error) {
	schema, err := sentiment.Schema()
	if err != nil {
		return nil, fmt.Errorf("sentiment schema: %w", err)
	}
	client, err := llm.NewClient(cfg.LLM, llm.WithSchema(sentiment.SchemaName, schema))
	if err != nil {
		return nil, err
	}
	client = llm.NewBreaker(client, cfg.LLM.Breaker, log)
	return sentiment.NewClassifier(client, cfg.LLMTimeout(), log), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New("rapport", cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.OpenConfig(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	classifier, err := newClassifier(cfg, log)
	if err != nil {
		return fmt.Errorf("configure llm: %w", err)
	}
	tokens, err := auth.New(cfg.Auth, cfg.TokenTTL())
	if err != nil {
		return err
	}

	eng := engine.New(db, classifier, log)
	srv := server.New(eng, tokens, server.Options{
		Version:        VersionString(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            log,
	})

	addr := cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("driver", db.Driver).
			Str("db", db.Path).
			Str("llm", cfg.LLM.Provider).
			Msg("rapport serving")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
