package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mealdraft/mealdraft/internal/config"
	"github.com/mealdraft/mealdraft/internal/debug"
	"github.com/mealdraft/mealdraft/internal/llm"
	"github.com/mealdraft/mealdraft/internal/recipe"
	"github.com/mealdraft/mealdraft/internal/store"
	"github.com/mealdraft/mealdraft/internal/telemetry"
	"github.com/mealdraft/mealdraft/internal/ui"
	"github.com/mealdraft/mealdraft/internal/webpage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recipe editor web server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (overrides config)")
	serveCmd.Flags().String("db", "", "sqlite database path (overrides config)")
}

// aiWithTimeout bounds each model call with the configured deadline.
type aiWithTimeout struct {
	inner   *llm.Client
	timeout time.Duration
}

func (a *aiWithTimeout) ExtractRecipe(ctx context.Context, text string) (*recipe.Recipe, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.inner.ExtractRecipe(ctx, text)
}

func (a *aiWithTimeout) ModifyRecipe(ctx context.Context, current *recipe.Recipe, request string) (*recipe.Recipe, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.inner.ModifyRecipe(ctx, current, request)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("listen"); v != "" {
		cfg.Listen = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DBPath = v
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := telemetry.Init(ctx, "mealdraft", Version); err != nil {
		debug.Logf("telemetry init: %v\n", err)
	}
	defer telemetry.Shutdown(context.Background())

	var ai ui.RecipeAI
	client, err := llm.New("", cfg.Model)
	if err != nil {
		if !debug.IsQuiet() {
			fmt.Printf("Warning: AI features disabled: %v\n", err)
		}
	} else {
		ai = &aiWithTimeout{inner: client, timeout: cfg.LLMTimeout}
	}

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}
	defer st.Close()

	srv := ui.NewServer(ai, st, webpage.FetchText)
	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		debug.PrintNormal("Ready - listening on http://%s\n", cfg.Listen)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		debug.PrintNormal("Shutting down...\n")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
