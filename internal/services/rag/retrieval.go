package rag

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"noteflow/internal/apperr"
	"noteflow/internal/services/notes"
	"noteflow/internal/services/permissions"
)

// DefaultTopK is used when the caller does not ask for a number of chunks.
const DefaultTopK = 3

// NoteReader loads notes for authorization.
type NoteReader interface {
	FindByID(ctx context.Context, id string) (*notes.Note, error)
}

// Answer is a grounded reply to a question about one note.
type Answer struct {
	Text     string `json:"answer" example:"The sky is blue."`
	Degraded bool   `json:"degraded,omitempty"`
	Sources  int    `json:"sources" example:"1"`
}

// QA answers questions about a single note from its own vectors.
type QA struct {
	notes     NoteReader
	embedder  Embedder
	index     VectorIndex
	completer Completer
	metrics   *Metrics
	log       *slog.Logger
}

// NewQA creates a question answering service. metrics may be nil.
func NewQA(notes NoteReader, embedder Embedder, index VectorIndex, completer Completer, metrics *Metrics, log *slog.Logger) *QA {
	return &QA{
		notes:     notes,
		embedder:  embedder,
		index:     index,
		completer: completer,
		metrics:   metrics,
		log:       log,
	}
}

// Answer checks that subject can view the note, retrieves the topK closest
// chunks and asks the completer for an answer grounded in them. The
// completer is called even when nothing was retrieved.
func (q *QA) Answer(ctx context.Context, subject, noteID, question string, topK int) (*Answer, error) {
	if topK <= 0 {
		return nil, ErrInvalidTopK
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	if _, err := loadViewable(ctx, q.notes, q.log, subject, noteID); err != nil {
		return nil, err
	}

	vecs, err := q.embedder.Embed(ctx, []string{question})
	if err != nil || len(vecs) != 1 {
		if err == nil {
			err = errors.New("no vector for question")
		}
		q.log.Error(ErrEmbed.Error(), "error", err, "note_id", noteID)
		q.metrics.answer("error")
		return nil, apperr.Wrap(ErrEmbed, ErrEmbed.Msg, err)
	}

	matches, err := q.index.Query(ctx, noteID, vecs[0], topK)
	if err != nil && !errors.Is(err, ErrNamespaceNotFound) {
		q.log.Error(ErrVectorIndex.Error(), "error", err, "note_id", noteID)
		q.metrics.answer("error")
		return nil, apperr.Wrap(ErrVectorIndex, ErrVectorIndex.Msg, err)
	}

	matches = latestRevision(matches)
	text, err := q.completer.Complete(ctx, Prompt{
		System:   groundedInstruction,
		Context:  joinContext(matches),
		Question: question,
	})
	if err != nil {
		q.log.Warn("completion failed, answering degraded", "error", err, "note_id", noteID)
		q.metrics.answer("degraded")
		return &Answer{Text: DegradedAnswer, Degraded: true, Sources: len(matches)}, nil
	}

	q.metrics.answer("ok")
	return &Answer{Text: text, Sources: len(matches)}, nil
}

// latestRevision drops matches left behind by an older index run and orders
// the rest by score, best first.
func latestRevision(matches []Match) []Match {
	if len(matches) == 0 {
		return nil
	}
	var newest int64
	for _, m := range matches {
		newest = max(newest, m.Metadata.Revision)
	}
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.Metadata.Revision == newest {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func joinContext(matches []Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.Text
	}
	return strings.Join(parts, "\n\n")
}

func loadViewable(ctx context.Context, reader NoteReader, log *slog.Logger, subject, noteID string) (*notes.Note, error) {
	note, err := reader.FindByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		log.Error("failed to load note", "error", err, "note_id", noteID)
		return nil, apperr.Wrap(apperr.ErrUpstream, "failed to load note", err)
	}
	if err := permissions.Check(note.Owner, note.Permissions, subject, permissions.ActionView); err != nil {
		log.Info("note query denied", "user_id", subject, "note_id", noteID)
		return nil, err
	}
	return note, nil
}
