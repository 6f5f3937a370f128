package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noteflow/internal/services/auth"
	"noteflow/internal/services/rag"
	"noteflow/internal/services/sharelinks"
)

func TestUsersRepo(t *testing.T) {
	ctx := context.Background()
	r := NewUsersRepo()

	u := &auth.User{Email: "a@b.co", Name: "A"}
	require.NoError(t, r.Create(ctx, u))
	assert.False(t, u.ID.IsZero())
	assert.ErrorIs(t, r.Create(ctx, &auth.User{Email: "a@b.co"}), auth.ErrDuplicate)

	got, err := r.FindByEmail(ctx, "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)

	got, err = r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", got.Email)

	_, err = r.FindByEmail(ctx, "x@y.z")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestLinksRepoExpiry(t *testing.T) {
	ctx := context.Background()
	r := NewLinksRepo()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	soon := now.Add(time.Hour)

	require.NoError(t, r.Create(ctx, &sharelinks.Link{ID: "a", NoteID: "n", CreatedAt: now, ExpiresAt: &soon}))
	require.NoError(t, r.Create(ctx, &sharelinks.Link{ID: "b", NoteID: "n", CreatedAt: now.Add(time.Second)}))

	links, err := r.ListByNote(ctx, "n")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "b", links[0].ID)

	n, err := r.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = r.DeleteExpired(ctx, soon)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, r.Revoke(ctx, "b", now))
	l, err := r.FindByID(ctx, "b")
	require.NoError(t, err)
	assert.NotNil(t, l.RevokedAt)

	assert.ErrorIs(t, r.Revoke(ctx, "a", now), sharelinks.ErrLinkNotFound)
}

func TestVectorIndex(t *testing.T) {
	ctx := context.Background()
	v := NewVectorIndex()

	assert.ErrorIs(t, v.DeleteNamespace(ctx, "n"), rag.ErrNamespaceNotFound)

	require.NoError(t, v.Upsert(ctx, "n", []rag.Record{
		{ID: "n:0", Vector: []float32{1, 0}, Text: "x"},
		{ID: "n:1", Vector: []float32{0, 1}, Text: "y"},
	}))
	require.NoError(t, v.Upsert(ctx, "other", []rag.Record{{ID: "o:0", Vector: []float32{1, 0}}}))

	matches, err := v.Query(ctx, "n", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "x", matches[0].Text)

	require.NoError(t, v.DeleteNamespace(ctx, "n"))
	matches, err = v.Query(ctx, "n", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, 1, v.Count("other"))
}

func TestHashEmbedderIsDeterministic(t *testing.T) {
	e := HashEmbedder{}
	a, err := e.Embed(context.Background(), []string{"The sky is blue", "the SKY is blue!"})
	require.NoError(t, err)
	require.Len(t, a, 2)
	assert.Len(t, a[0], EmbeddingDims)
	assert.Equal(t, a[0], a[1])
	assert.InDelta(t, 1.0, rag.Cosine(a[0], a[1]), 1e-9)
}

func TestExtractiveCompleter(t *testing.T) {
	c := ExtractiveCompleter{}
	out, err := c.Complete(context.Background(), rag.Prompt{Question: "What color is the sky?"})
	require.NoError(t, err)
	assert.Equal(t, rag.FallbackAnswer, out)

	out, err = c.Complete(context.Background(), rag.Prompt{Context: "Grass is green.", Question: "What color is the sky?"})
	require.NoError(t, err)
	assert.Equal(t, rag.FallbackAnswer, out)
}
