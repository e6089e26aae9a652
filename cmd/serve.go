package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"qualitygate/internal/analysis/adapter"
	"qualitygate/internal/analysis/notifier"
	"qualitygate/internal/analysis/session"
	"qualitygate/internal/config"
	"qualitygate/internal/httpapi"
	"qualitygate/internal/logging"
	"qualitygate/internal/metrics"
	"qualitygate/internal/registry"
	"qualitygate/internal/websocket"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the HTTP/WebSocket server",
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("no-metrics", false, "disable Prometheus instrumentation")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.NewLogger(logging.Config{
		Level: logging.Level(cfg.Logging.Level),
		JSON:  cfg.Logging.JSON,
	})

	disableMetrics, _ := cmd.Flags().GetBool("no-metrics")
	var mtx *metrics.Metrics
	if !disableMetrics {
		mtx = metrics.New()
	}

	if err := os.MkdirAll(cfg.State.Dir, 0o755); err != nil {
		return fmt.Errorf("create state dir %q: %w", cfg.State.Dir, err)
	}
	projects, err := registry.Open(filepath.Join(cfg.State.Dir, "projects.db"))
	if err != nil {
		return fmt.Errorf("open project registry: %w", err)
	}
	defer projects.Close()

	n := notifier.New(log.WithComponent("notifier"))
	reg := adapter.NewRegistry()
	controller := session.New(n, reg, log.WithComponent("session"), mtx)
	originValidator := websocket.NewAllowlistValidator(cfg.Server.AllowedOrigins)
	wsHandler := websocket.NewHandler(n, originValidator, log.WithComponent("websocket"), mtx)

	server := httpapi.New(httpapi.Deps{
		Config:     cfg,
		Controller: controller,
		Projects:   projects,
		WS:         wsHandler,
		Metrics:    mtx,
		Log:        log.WithComponent("httpapi"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The allowed-origins allowlist is the only part of the config that is
	// practically safe to hot-swap once the server's other collaborators
	// (the session controller, the registry, the adapters) are already
	// constructed — those would need a full restart to pick up a change.
	config.WatchForChanges(func(fsnotify.Event) {
		newCfg, err := config.Load()
		if err != nil {
			log.Warn(ctx, "config reload failed, keeping previous settings", "error", err)
			return
		}
		server.SetAllowedOrigins(newCfg.Server.AllowedOrigins)
		originValidator.Set(newCfg.Server.AllowedOrigins)
		log.Info(ctx, "reloaded allowed origins from config change")
	})

	log.Info(ctx, "qualitygate listening", "addr", server.Addr())
	return server.Start(ctx)
}
