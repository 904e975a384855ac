// Command jobapp-server runs the HTTP frontend of the job application
// form-filler.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	jobapp "github.com/janngomaa/ai-job-application"
	"github.com/janngomaa/ai-job-application/internal/config"
	"github.com/janngomaa/ai-job-application/internal/httpapi"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(*configPath, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	obs := jobapp.NewLoggingObserver(logger)
	eng, cleanup, err := newEngine(cfg.Store, obs)
	if err != nil {
		return err
	}
	defer cleanup()

	svc, err := jobapp.OpenAIServices(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.EmbeddingModel)
	if err != nil {
		return err
	}
	if err := eng.RegisterWorkflow(jobapp.NewWorkflow(svc, cfg.Workflow.Timeout.Std())); err != nil {
		return err
	}

	api := httpapi.New(eng, jobapp.WorkflowName, cfg.Workflow.DataDir, logger)
	defer api.Close()

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "store", cfg.Store.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// newEngine builds the engine for the configured store. The returned cleanup
// closes whatever connection the store holds.
func newEngine(store config.StoreConfig, obs jobapp.Observer) (jobapp.Engine, func(), error) {
	switch store.Driver {
	case "memory":
		return jobapp.NewInMemoryEngineWithObserver(obs), func() {}, nil

	case "sqlite":
		db, err := sql.Open("sqlite", store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		eng, err := jobapp.NewSQLiteEngineWithObserver(db, obs)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return eng, func() { db.Close() }, nil

	case "redis":
		opts, err := redis.ParseURL(store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		return jobapp.NewRedisEngineWithObserver(client, obs), func() { client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", store.Driver)
	}
}
