package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"papereval/internal/api"
	"papereval/internal/config"
	"papereval/internal/storage"

	"github.com/joho/godotenv"
	tclient "go.temporal.io/sdk/client"
)

func main() {
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		log.Error("ensure schema", "error", err)
		os.Exit(1)
	}

	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress, Logger: log})
	if err != nil {
		log.Error("dial temporal", "address", cfg.TemporalAddress, "error", err)
		os.Exit(1)
	}
	defer tc.Close()

	h := api.NewServer(cfg, storage.NewEvaluationRepo(db), api.TemporalEngine{Client: tc, TaskQueue: cfg.TemporalTaskQueue}, log)
	log.Info("papereval api listening", "addr", cfg.APIAddr, "llm_providers", cfg.LLMProviders, "embed_providers", cfg.EmbedProviders)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Error("serve", "error", err)
		os.Exit(1)
	}
}
