package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"papereval/internal/activities"
	"papereval/internal/config"
	"papereval/internal/storage"
	"papereval/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := run(cfg, log); err != nil {
		log.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress, Logger: log})
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	a, err := activities.New(cfg, db, log)
	if err != nil {
		return err
	}
	defer a.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, a)

	log.Info("papereval worker listening", "address", cfg.TemporalAddress, "queue", cfg.TemporalTaskQueue,
		"llm_providers", cfg.LLMProviders, "embed_providers", cfg.EmbedProviders)
	return w.Run(worker.InterruptCh())
}
