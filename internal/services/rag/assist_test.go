package rag_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noteflow/internal/apperr"
	"noteflow/internal/clients/memory"
	"noteflow/internal/services/rag"
)

type scriptedCompleter struct {
	reply string
	err   error
	last  rag.Prompt
}

func (s *scriptedCompleter) Complete(_ context.Context, p rag.Prompt) (string, error) {
	s.last = p
	return s.reply, s.err
}

func TestParseFlashcards(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    []rag.Flashcard
		wantErr bool
	}{
		{"plain", `[{"term":"A","definition":"first"}]`, []rag.Flashcard{{Term: "A", Definition: "first"}}, false},
		{"fenced", "```json\n[{\"term\":\"B\",\"definition\":\"second\"}]\n```", []rag.Flashcard{{Term: "B", Definition: "second"}}, false},
		{"bare fence", "```\n[]\n```", []rag.Flashcard{}, false},
		{"prose", "Here are your cards!", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rag.ParseFlashcards(tt.reply)
			if tt.wantErr {
				assert.ErrorIs(t, err, rag.ErrMalformedFlashcards)
				assert.ErrorIs(t, err, apperr.ErrUpstream)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssist(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewNotesRepo()
	require.NoError(t, repo.Create(ctx, textNote("n1", "line one", " ", "line two")))

	c := &scriptedCompleter{reply: `[{"term":"one","definition":"the first line"}]`}
	a := rag.NewAssist(repo, c, silentLogger)

	cards, err := a.Flashcards(ctx, "owner-1", "n1")
	require.NoError(t, err)
	assert.Len(t, cards, 1)
	assert.Equal(t, "line one\nline two", c.last.Context)

	c.reply = "A short summary."
	sum, err := a.Summarize(ctx, "owner-1", "n1")
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", sum)

	_, err = a.Summarize(ctx, "stranger", "n1")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = a.Summarize(ctx, "owner-1", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = a.Chat(ctx, "  ")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	c.reply = "hi"
	reply, err := a.Chat(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", reply)
	assert.Equal(t, "hello", c.last.UserMessage())

	c.err = errors.New("boom")
	_, err = a.Chat(ctx, "hello")
	assert.ErrorIs(t, err, rag.ErrCompletion)
}

func TestPromptUserMessage(t *testing.T) {
	p := rag.Prompt{System: "x", Context: "The sky is blue.", Question: "Color?"}
	assert.Equal(t, "Document Context:\nThe sky is blue.\n---\nQuestion:\nColor?", p.UserMessage())

	chat := rag.Prompt{System: "x", Question: "hello", Chat: true}
	assert.Equal(t, "hello", chat.UserMessage())

	noContext := rag.Prompt{System: "x", Question: "Color?"}
	assert.Equal(t, "Document Context:\n\n---\nQuestion:\nColor?", noContext.UserMessage(), "only chat prompts drop the framing")
}

func TestCosineAndRank(t *testing.T) {
	assert.InDelta(t, 1.0, rag.Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.Zero(t, rag.Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, rag.Cosine([]float32{1}, []float32{1, 1}))

	recs := []rag.Record{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
		{ID: "c", Vector: []float32{1, 1}},
	}
	got := rag.Rank(recs, []float32{1, 0}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}
