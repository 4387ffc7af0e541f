/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stamp engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (YAML file, then environment)
  2. Set up the logger
  3. Open the database and apply the schema
  4. Wire engine, metrics, database probe and router
  5. Start server with graceful shutdown

DEMO TENANTS:
  With ENV=local the /api/scenarios routes are mounted (see
  api/scenarios.go).

COMMAND-LINE FLAGS:
  -config  YAML configuration file (default: config.yml). When the file
           is missing, configuration comes from the environment only.

ENVIRONMENT:
  SECRET_KEY        HS256 key for bearer tokens (required)
  DB_DRIVER         sqlite3 (default) or postgres
  DATABASE_URL      DSN or SQLite path
  DEFAULT_TIMEZONE  Fallback campaign timezone, e.g. UTC+09:00
  See config/config.go for the rest.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings
  - store/sqlstore/store.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/stamp-engine/api"
	"github.com/warp/stamp-engine/config"
	"github.com/warp/stamp-engine/lib/logger"
	"github.com/warp/stamp-engine/lib/sl"
	"github.com/warp/stamp-engine/metrics"
	"github.com/warp/stamp-engine/stamp"
	"github.com/warp/stamp-engine/store/sqlstore"
	"github.com/warp/stamp-engine/tenant"
)

func main() {
	configPath := flag.String("config", "config.yml", "configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal(err)
	}
}

// run owns every resource of the process so that its deferred cleanup runs
// before main exits with a failure status.
func run(configPath string) error {
	conf := config.MustLoad(configPath)

	lg, closer, err := logger.SetupLogger(conf.Env, conf.LogPath)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer closer.Close()
	lg = lg.With(sl.Module("main"))
	lg.Info("starting stamp engine", slog.String("env", conf.Env), slog.String("driver", conf.Database.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlstore.Open(ctx, conf.Database.Driver, conf.Database.DSN, lg)
	if err != nil {
		lg.Error("database", sl.Err(err))
		return fmt.Errorf("database: %w", err)
	}
	defer store.Close()

	m := metrics.New()
	engine := stamp.NewEngine(store, tenant.NewResolver(conf.DefaultTimezone), lg)
	engine.Observer = m

	probe := api.NewDatabaseProbe(store, m, lg)
	probe.Start()
	defer probe.Stop()

	handler := api.NewHandler(engine, lg)
	handler.Probe = probe
	router := api.NewRouter(handler, api.Options{
		Secret:      []byte(conf.Auth.SecretKey),
		CORSOrigins: conf.CORSOrigins,
		StampRate:   conf.RateLimit.PerSecond,
		StampBurst:  conf.RateLimit.Burst,
		Metrics:     m,
		Scenarios:   conf.Env == logger.EnvLocal,
	})

	server := &http.Server{
		Addr:         conf.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		lg.Info("shutting down server")
	case serveErr = <-errCh:
		lg.Error("server failed", sl.Err(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("forced shutdown", sl.Err(err))
	}
	lg.Info("server stopped")

	if serveErr != nil {
		return fmt.Errorf("serve: %w", serveErr)
	}
	return nil
}
