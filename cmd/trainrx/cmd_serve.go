package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trainrx/internal/catalog"
	"trainrx/internal/config"
	"trainrx/internal/server"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve guideline previews over HTTP",
	Long: `Starts the HTTP server:

  POST /guidelines/versions/{id}/preview   preview a request ("default" resolves the tenant default)
  GET  /guidelines/catalog/rir             the RIR to %1RM reference matrix
  GET  /healthz                            liveness

With the catalog backend and watch_catalog enabled, edits to the catalog
directory are picked up without a restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(baseContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, cleanup, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if catRepo, ok := repo.(*catalog.Repository); ok && cfg.Store.WatchCatalog {
		watcher, err := catalog.NewWatcher(cfg.Store.CatalogDir, catRepo, cfg.GetReloadDebounce())
		if err != nil {
			return fmt.Errorf("failed to create catalog watcher: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start catalog watcher: %w", err)
		}
		defer watcher.Stop()
	}

	addr := cfg.Server.ListenAddr
	if listenAddr != "" {
		addr = listenAddr
	}
	logger.Info("starting server",
		zap.String("addr", addr),
		zap.String("backend", cfg.Store.Backend),
		zap.String("tenant", cfg.Tenant))

	srv := server.New(newService(cfg, repo), serverOptions(cfg, addr))
	return srv.Run(ctx)
}

func serverOptions(c *config.Config, addr string) server.Options {
	return server.Options{
		ListenAddr:      addr,
		RequestTimeout:  c.GetRequestTimeout(),
		ShutdownTimeout: c.GetShutdownTimeout(),
		TenantHeader:    c.Server.TenantHeader,
		DefaultTenant:   c.Tenant,
		Version:         c.Version,
	}
}
