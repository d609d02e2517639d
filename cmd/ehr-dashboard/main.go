package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/dashboard/internal/config"
	"github.com/ehr/dashboard/internal/platform/db"
	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/internal/platform/mockstore"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ehr-dashboard",
		Short: "Healthcare dashboard API over a FHIR upstream",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(upstreamCmd())
	rootCmd.AddCommand(mirrorCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func upstreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upstream",
		Short: "Inspect the configured FHIR upstream",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "Read one page of patients from the upstream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			up, err := openSource(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer up.close()

			n, err := pingUpstream(ctx, up.src)
			if err != nil {
				return fmt.Errorf("upstream ping failed: %w", err)
			}
			fmt.Printf("Upstream (%s) reachable, %d patient(s) reported.\n", cfg.UpstreamMode, n)
			return nil
		},
	})

	return cmd
}

func mirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Manage the PostgreSQL upstream mirror",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "load FILE",
		Short: "Import a FHIR Bundle JSON file into the mirror",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var bundle fhir.Bundle
			if err := json.Unmarshal(raw, &bundle); err != nil {
				return fmt.Errorf("parse bundle %s: %w", args[0], err)
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			mirror := db.NewMirror(pool)
			if err := mirror.EnsureSchema(ctx); err != nil {
				return err
			}
			n, err := mirror.Import(ctx, &bundle)
			if err != nil {
				return fmt.Errorf("import failed after %d resource(s): %w", n, err)
			}
			fmt.Printf("Imported %d resource(s) from %s.\n", n, args[0])
			return nil
		},
	})

	return cmd
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	return cfg, logger, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// upstream is the opened FHIR source plus what the health endpoint should
// probe and what must be released on exit.
type upstream struct {
	src    fhir.Source
	checks []db.Check
	close  func()
}

// openSource builds the upstream named by UPSTREAM_MODE.
func openSource(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*upstream, error) {
	if cfg.UpstreamMode != config.UpstreamPostgres {
		timeout, err := cfg.FHIRTimeout()
		if err != nil {
			return nil, err
		}
		client := fhir.NewClient(cfg.FHIRBaseURL, timeout)
		logger.Info().Str("base_url", client.BaseURL()).Dur("timeout", timeout).Msg("using FHIR server upstream")
		return &upstream{src: client, checks: []db.Check{upstreamCheck(client)}, close: func() {}}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, logger)
	if err != nil {
		return nil, err
	}
	mirror := db.NewMirror(pool)
	if err := mirror.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info().Msg("using PostgreSQL mirror upstream")
	return &upstream{
		src:    mirror,
		checks: []db.Check{db.PoolCheck(pool), upstreamCheck(mirror)},
		close:  pool.Close,
	}, nil
}

func runServer() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx := context.Background()
	up, err := openSource(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open upstream")
	}
	defer up.close()

	reg := mockstore.NewRegistry(logger)
	e := newServer(cfg, up.src, reg, logger, up.checks...)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("mock_crud", cfg.MockCRUD).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
