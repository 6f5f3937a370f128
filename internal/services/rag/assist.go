package rag

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"noteflow/internal/apperr"
)

const (
	summarizeQuestion  = "Summarize the note content above."
	flashcardsQuestion = `Create flashcards from the note content above in a JSON list using form {"term": "A", "definition": "The definition of A"}. Do not return anything else.`
)

var codeFence = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*(.*?)\\s*```\\s*$")

// Flashcard is one study card.
type Flashcard struct {
	Term       string `json:"term" example:"Mitochondria"`
	Definition string `json:"definition" example:"The powerhouse of the cell"`
}

// Assist runs whole-note study helpers and free chat.
type Assist struct {
	notes     NoteReader
	completer Completer
	log       *slog.Logger
}

// NewAssist creates the assistant service.
func NewAssist(notes NoteReader, completer Completer, log *slog.Logger) *Assist {
	return &Assist{notes: notes, completer: completer, log: log}
}

// Summarize asks the model for a summary of a note the subject can view.
func (a *Assist) Summarize(ctx context.Context, subject, noteID string) (string, error) {
	content, err := a.noteContent(ctx, subject, noteID)
	if err != nil {
		return "", err
	}
	return a.complete(ctx, Prompt{System: groundedInstruction, Context: content, Question: summarizeQuestion})
}

// Flashcards asks the model for term/definition cards drawn from the note.
func (a *Assist) Flashcards(ctx context.Context, subject, noteID string) ([]Flashcard, error) {
	content, err := a.noteContent(ctx, subject, noteID)
	if err != nil {
		return nil, err
	}
	reply, err := a.complete(ctx, Prompt{System: groundedInstruction, Context: content, Question: flashcardsQuestion})
	if err != nil {
		return nil, err
	}
	return ParseFlashcards(reply)
}

// Chat answers a free-form message with no note context.
func (a *Assist) Chat(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	return a.complete(ctx, Prompt{System: chatInstruction, Question: message, Chat: true})
}

func (a *Assist) complete(ctx context.Context, p Prompt) (string, error) {
	out, err := a.completer.Complete(ctx, p)
	if err != nil {
		a.log.Error(ErrCompletion.Error(), "error", err)
		return "", apperr.Wrap(ErrCompletion, ErrCompletion.Msg, err)
	}
	return out, nil
}

// noteContent joins the non-blank blocks line by line.
func (a *Assist) noteContent(ctx context.Context, subject, noteID string) (string, error) {
	note, err := loadViewable(ctx, a.notes, a.log, subject, noteID)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(note.Content))
	for _, b := range note.Content {
		if strings.TrimSpace(b.Value) != "" {
			lines = append(lines, b.Value)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// ParseFlashcards decodes a model reply, tolerating a surrounding code fence.
func ParseFlashcards(reply string) ([]Flashcard, error) {
	body := strings.TrimSpace(reply)
	if m := codeFence.FindStringSubmatch(body); m != nil {
		body = m[1]
	}
	var cards []Flashcard
	if err := json.Unmarshal([]byte(body), &cards); err != nil {
		return nil, apperr.Wrap(ErrMalformedFlashcards, ErrMalformedFlashcards.Msg, err)
	}
	if cards == nil {
		cards = []Flashcard{}
	}
	return cards, nil
}
