package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"noteflow/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() config.Config {
	return config.Config{
		StorageDriver:        "memory",
		VectorDriver:         "memory",
		JWTSecret:            "bootstrap-test-secret-of-at-least-32-chars",
		JWTAlgorithm:         "HS256",
		AccessTokenMinutes:   15,
		BcryptCost:           8,
		WSOutboxBuffer:       8,
		ChunkSize:            1500,
		ChunkOverlap:         100,
		EmbedBatchSize:       16,
		EmbedConcurrency:     1,
		RAGTopK:              3,
		ShareLinkTTLHours:    24,
		ShareLinkMaxTTLHours: 48,
		EmbedCacheTTLMin:     10,
	}
}

func TestBuildMemory(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := Build(context.Background(), memoryConfig(), log)
	require.NoError(t, err)

	assert.NotNil(t, svc.Auth)
	assert.NotNil(t, svc.Notes)
	assert.NotNil(t, svc.Links)
	assert.NotNil(t, svc.QA)
	assert.NotNil(t, svc.Assist)
	assert.NotNil(t, svc.Hub)
	assert.NotEmpty(t, svc.Metrics)
	assert.Nil(t, svc.Probe, "memory storage has nothing to probe")
	assert.NoError(t, svc.Close(context.Background()))
}

func TestBuildUnreachableRedisFallsBack(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := memoryConfig()
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	svc, err := Build(context.Background(), cfg, log)
	require.NoError(t, err)
	assert.Empty(t, svc.closers, "no cache connection should be kept")
}
