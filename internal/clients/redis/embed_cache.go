package redis

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"log/slog"
	"math"
	"time"

	"noteflow/internal/services/rag"

	goredis "github.com/go-redis/redis/v8"
)

const opTimeout = 500 * time.Millisecond

// CachedEmbedder wraps an embedder with a read-through Redis cache. Cache
// failures are logged and the call goes to the wrapped embedder.
type CachedEmbedder struct {
	next  rag.Embedder
	rdb   goredis.Cmdable
	model string
	ttl   time.Duration
	log   *slog.Logger
}

// NewCachedEmbedder keys entries by model so switching models never serves
// stale vectors.
func NewCachedEmbedder(next rag.Embedder, rdb goredis.Cmdable, model string, ttl time.Duration, log *slog.Logger) *CachedEmbedder {
	return &CachedEmbedder{next: next, rdb: rdb, model: model, ttl: ttl, log: log}
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + c.model + ":" + hex.EncodeToString(sum[:])
}

// Embed serves hits from Redis and embeds only the misses.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	out := make([][]float32, len(texts))
	missing := c.lookup(ctx, keys, out)
	if len(missing) == 0 {
		return out, nil
	}

	batch := make([]string, len(missing))
	for i, idx := range missing {
		batch[i] = texts[idx]
	}
	vecs, err := c.next.Embed(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(batch) {
		return nil, errors.New("embedder returned a short batch")
	}
	for i, idx := range missing {
		out[idx] = vecs[i]
	}

	c.store(ctx, keys, missing, out)
	return out, nil
}

// lookup fills out with cached vectors and returns the indexes it could not.
func (c *CachedEmbedder) lookup(ctx context.Context, keys []string, out [][]float32) []int {
	all := func() []int {
		idx := make([]int, len(keys))
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.log.Warn("embedding cache read failed", "error", err)
		return all()
	}

	var missing []int
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, i)
			continue
		}
		vec, ok := decodeVector([]byte(s))
		if !ok {
			missing = append(missing, i)
			continue
		}
		out[i] = vec
	}
	return missing
}

func (c *CachedEmbedder) store(ctx context.Context, keys []string, idx []int, vecs [][]float32) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipe := c.rdb.Pipeline()
	for _, i := range idx {
		pipe.Set(ctx, keys[i], encodeVector(vecs[i]), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("embedding cache write failed", "error", err, "entries", len(idx))
	}
}

// encodeVector packs float32s little-endian.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, bool) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, false
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, true
}
