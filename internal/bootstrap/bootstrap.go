// Package bootstrap selects storage and model backends from configuration
// and wires the domain services on top of them.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"noteflow/internal/clients/memory"
	"noteflow/internal/clients/mongo"
	"noteflow/internal/clients/openai"
	"noteflow/internal/clients/redis"
	"noteflow/internal/config"
	authServices "noteflow/internal/services/auth"
	notesServices "noteflow/internal/services/notes"
	"noteflow/internal/services/rag"
	"noteflow/internal/services/sharelinks"

	"github.com/prometheus/client_golang/prometheus"
)

// Services is everything a front end needs, built once per process.
type Services struct {
	Auth    *authServices.Service
	Notes   *notesServices.Service
	Links   *sharelinks.Service
	QA      *rag.QA
	Assist  *rag.Assist
	Hub     *notesServices.Hub
	Probe   func(ctx context.Context) error // nil for in-memory storage
	Metrics []prometheus.Collector

	closers []func(context.Context) error
}

// Close releases external connections in reverse order of creation.
func (s *Services) Close(ctx context.Context) error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type stores struct {
	notes  notesServices.Repository
	links  sharelinks.Repository
	users  authServices.UsersRepo
	vector rag.VectorIndex
}

// Build connects the backends named by cfg. Call Close on the result to
// release them.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*Services, error) {
	svc := &Services{}

	st, err := buildStores(ctx, cfg, log, svc)
	if err != nil {
		_ = svc.Close(ctx)
		return nil, err
	}

	embedder, completer := buildProvider(ctx, cfg, log, svc)

	metrics := rag.NewMetrics()
	svc.Metrics = metrics.Collectors()

	pipeline := rag.NewPipeline(
		rag.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		st.vector,
		rag.PipelineOptions{BatchSize: cfg.EmbedBatchSize, Concurrency: cfg.EmbedConcurrency},
		metrics,
		log.With("component", "indexing"),
	)

	svc.Auth = authServices.NewService(st.users, cfg, log.With("component", "auth"))
	svc.Hub = notesServices.NewHub(cfg.WSOutboxBuffer)
	svc.Links = sharelinks.NewService(st.links, st.notes, sharelinks.Policy{
		DefaultTTL: time.Duration(cfg.ShareLinkTTLHours) * time.Hour,
		MaxTTL:     time.Duration(cfg.ShareLinkMaxTTLHours) * time.Hour,
	}, log.With("component", "sharelinks"))
	svc.Notes = notesServices.NewService(st.notes, svc.Hub, pipeline, svc.Links, svc.Auth, log.With("component", "notes"))
	svc.QA = rag.NewQA(st.notes, embedder, st.vector, completer, metrics, log.With("component", "qa"))
	svc.Assist = rag.NewAssist(st.notes, completer, log.With("component", "assist"))

	return svc, nil
}

func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger, svc *Services) (stores, error) {
	var st stores

	if cfg.StorageDriver == "mongo" || cfg.VectorDriver == "mongo" {
		_, db, err := mongo.Init(ctx, cfg, log)
		if err != nil {
			return st, fmt.Errorf("mongo init: %w", err)
		}
		log.Info("connected to mongo", "db", db.Name())
		svc.closers = append(svc.closers, mongo.Shutdown)
		svc.Probe = func(ctx context.Context) error {
			return db.Client().Ping(ctx, nil)
		}
	}

	switch cfg.StorageDriver {
	case "mongo":
		db := mongo.DB()
		notesRepo, err := mongo.NewNotesRepo(ctx, db)
		if err != nil {
			return st, fmt.Errorf("notes repo: %w", err)
		}
		linksRepo, err := mongo.NewShareLinksRepo(ctx, db)
		if err != nil {
			return st, fmt.Errorf("share links repo: %w", err)
		}
		usersRepo, err := mongo.NewUsersRepo(ctx, db)
		if err != nil {
			return st, fmt.Errorf("users repo: %w", err)
		}
		st.notes, st.links, st.users = notesRepo, linksRepo, usersRepo
	default:
		log.Warn("using in-memory storage, data is lost on restart")
		st.notes, st.links, st.users = memory.NewNotesRepo(), memory.NewLinksRepo(), memory.NewUsersRepo()
	}

	switch cfg.VectorDriver {
	case "mongo":
		vectors, err := mongo.NewVectorsRepo(ctx, mongo.DB())
		if err != nil {
			return st, fmt.Errorf("vectors repo: %w", err)
		}
		st.vector = vectors
	default:
		st.vector = memory.NewVectorIndex()
	}

	return st, nil
}

// buildProvider returns the OpenAI-compatible provider when a key is set,
// and the offline hash embedder and extractive completer otherwise. A
// reachable Redis puts a cache in front of the embedder.
func buildProvider(ctx context.Context, cfg config.Config, log *slog.Logger, svc *Services) (rag.Embedder, rag.Completer) {
	var (
		embedder  rag.Embedder
		completer rag.Completer
		model     = cfg.EmbeddingModel
	)

	if cfg.OpenAIAPIKey != "" {
		p := openai.New(cfg, log.With("component", "openai"))
		embedder, completer = p, p
		model = p.Model()
		log.Info("model provider configured", "embedding_model", model, "completion_model", cfg.CompletionModel)
	} else {
		embedder, completer = memory.HashEmbedder{}, memory.ExtractiveCompleter{}
		model = "hash"
		log.Warn("OPENAI_API_KEY not set, using offline embedder and extractive answers")
	}

	if cfg.RedisURL == "" {
		return embedder, completer
	}
	rdb, err := redis.Connect(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Warn("embedding cache disabled", "error", err)
		return embedder, completer
	}
	svc.closers = append(svc.closers, func(context.Context) error { return rdb.Close() })
	ttl := time.Duration(cfg.EmbedCacheTTLMin) * time.Minute
	return redis.NewCachedEmbedder(embedder, rdb, model, ttl, log.With("component", "embed_cache")), completer
}
