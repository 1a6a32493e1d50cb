package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openfiscal/cclastrib/internal/agent"
	"github.com/openfiscal/cclastrib/internal/config"
	"github.com/openfiscal/cclastrib/internal/refdata"
	"github.com/openfiscal/cclastrib/internal/server"
	"github.com/openfiscal/cclastrib/internal/storage"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the classification HTTP API",
		Long: `Starts the HTTP API: POST /classificar, POST /classificar/lote,
POST /reload and GET /health. Reference tables are loaded once at startup
and can be reloaded without a restart via /reload.`,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "listen address (default :8080)")
	cmd.Flags().Duration("cache-ttl", 0, "response cache TTL (default 1h)")
	cmd.Flags().String("audit-db", "", "SQLite path for the audit log (empty disables auditing)")
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("cache.ttl", cmd.Flags().Lookup("cache-ttl"))
	_ = viper.BindPFlag("audit.db", cmd.Flags().Lookup("audit-db"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	a, cleanup, err := buildAgent(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(a).Router(cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving classification API", "addr", cfg.ListenAddr, "data_dir", cfg.DataDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// buildAgent opens the reference store and, when configured, the audit
// database, returning the ready agent and a cleanup function.
func buildAgent(ctx context.Context, cfg *config.Config) (*agent.Agent, func(), error) {
	store, err := refdata.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load reference data: %w", err)
	}

	opts := []agent.Option{agent.WithCacheTTL(cfg.CacheTTL)}

	var db *storage.SQLiteStorage
	if cfg.AuditDB != "" {
		db, err = storage.NewSQLiteStorage(cfg.AuditDB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to migrate audit database: %w", err)
		}
		opts = append(opts, agent.WithAuditStore(db))
	}

	a := agent.New(store, opts...)
	cleanup := func() {
		a.Close()
		if db != nil {
			_ = db.Close()
		}
	}
	return a, cleanup, nil
}
