// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/poiesic/ragflow/ai/openai"
	"github.com/poiesic/ragflow/cache"
	"github.com/poiesic/ragflow/config"
	"github.com/poiesic/ragflow/core"
	"github.com/poiesic/ragflow/guardrails"
	"github.com/poiesic/ragflow/pipeline"
	"github.com/poiesic/ragflow/retrieval"
	"github.com/poiesic/ragflow/scoring"
	"github.com/poiesic/ragflow/storage/postgres"
	"github.com/poiesic/ragflow/vectordb"
	"github.com/poiesic/ragflow/worker"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "ragflow",
		Usage: "Retrieval-augmented query pipeline for marketplace review data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to .env file with connection settings",
				Value: ".env",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "worker",
				Usage:  "Consume query jobs from the broker until interrupted",
				Action: workerCommand,
			},
			{
				Name:   "ask",
				Usage:  "Run one question through the pipeline inline",
				Action: askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "question",
						Aliases:  []string{"q"},
						Usage:    "Question text",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "collection",
						Aliases: []string{"c"},
						Usage:   "Vector collection to search (default from config)",
					},
				},
			},
			{
				Name:   "init-schema",
				Usage:  "Create the relational schema and the vector collection",
				Action: initSchemaCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if envFile := c.String("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// services bundles everything a pipeline run needs, so worker and ask share
// one construction path.
type services struct {
	store        *postgres.Store
	vectors      vectordb.Store
	answerCache  cache.AnswerCache
	orchestrator *pipeline.Orchestrator
}

func buildServices(ctx context.Context, cfg *config.Config) (*services, error) {
	store, err := postgres.New(ctx, cfg.DatabaseURL, cfg.Concurrency)
	if err != nil {
		return nil, err
	}

	vectors, err := vectordb.NewQdrantStore(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.CallTimeout)
	if err != nil {
		store.Close()
		return nil, err
	}
	if err := vectors.CheckCollection(ctx, cfg.DefaultCollection, cfg.VectorDimension); err != nil {
		store.Close()
		return nil, fmt.Errorf("check collection %q: %w", cfg.DefaultCollection, err)
	}

	var answerCache cache.AnswerCache
	switch {
	case cfg.RedisURL != "":
		answerCache, err = cache.OpenRedis(ctx, cfg.RedisURL, cfg.CacheTTL)
	case cfg.CachePath != "":
		answerCache, err = cache.OpenBadger(cfg.CachePath, false, cfg.CacheTTL)
	}
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open answer cache: %w", err)
	}

	embedder, err := openai.NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	generator, err := openai.NewGenerator(cfg)
	if err != nil {
		return nil, err
	}
	validator, err := guardrails.NewValidator(cfg, store)
	if err != nil {
		return nil, err
	}

	orchestrator, err := pipeline.NewOrchestrator(cfg, pipeline.Deps{
		Validator:   validator,
		Embedder:    embedder,
		Retriever:   retrieval.NewRetriever(vectors, store),
		Generator:   generator,
		Scorer:      scoring.NewScorer(cfg.EscalationThreshold),
		Queries:     store,
		Answers:     store,
		Escalations: store,
		Audit:       store,
		Cache:       answerCache,
	})
	if err != nil {
		return nil, err
	}

	return &services{
		store:        store,
		vectors:      vectors,
		answerCache:  answerCache,
		orchestrator: orchestrator,
	}, nil
}

func (s *services) close() {
	if s.answerCache != nil {
		if err := s.answerCache.Close(); err != nil {
			slog.Warn("closing cache", "err", err)
		}
	}
	if err := s.vectors.Close(); err != nil {
		slog.Warn("closing vector store", "err", err)
	}
	s.store.Close()
}

func workerCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.close()

	dispatcher, err := worker.NewDispatcher(cfg.Concurrency, svc.orchestrator)
	if err != nil {
		return err
	}
	defer dispatcher.Release()

	consumer, err := worker.NewConsumer(cfg, dispatcher)
	if err != nil {
		return err
	}
	defer consumer.Close()

	slog.Info("worker started", "queue", cfg.QueueName, "concurrency", cfg.Concurrency)
	return consumer.Consume(ctx)
}

func askCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.close()

	outcome, err := svc.orchestrator.Run(ctx, pipeline.Job{
		QueryText:      c.String("question"),
		CollectionName: c.String("collection"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("status: %s\n", outcome.Status)
	if outcome.Reason != "" {
		fmt.Printf("reason: %s\n", outcome.Reason)
	}
	if outcome.AnswerID != nil {
		answer, err := svc.store.GetAnswerByQuery(ctx, outcome.QueryID)
		if err != nil {
			return err
		}
		fmt.Printf("confidence: %.3f (cache hit: %v)\n\n%s\n", answer.ConfidenceScore, answer.CacheHit, answer.AnswerText)
		if answer.Escalated {
			fmt.Println("\nThis answer has low confidence and was escalated to human support.")
		}
	} else if outcome.Status == core.QueryStatusEscalated {
		fmt.Println("No answer could be generated; the question was escalated to human support.")
	}
	return nil
}

func initSchemaCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := postgres.New(ctx, cfg.DatabaseURL, cfg.Concurrency)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitSchema(ctx, cfg.VectorDimension); err != nil {
		return err
	}

	vectors, err := vectordb.NewQdrantStore(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.CallTimeout)
	if err != nil {
		return err
	}
	defer vectors.Close()

	if err := vectors.EnsureCollection(ctx, cfg.DefaultCollection, cfg.VectorDimension); err != nil {
		return err
	}

	fmt.Printf("schema ready (collection %q, dimension %d)\n", cfg.DefaultCollection, cfg.VectorDimension)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
