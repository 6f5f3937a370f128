package rag

import "noteflow/internal/apperr"

// ErrInvalidTopK is returned for a non-positive top_k.
var ErrInvalidTopK = apperr.New(apperr.ErrInvalidArgument, "top_k must be greater than 0")

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = apperr.New(apperr.ErrInvalidArgument, "question is required")

// ErrEmptyMessage is returned for a blank chat message.
var ErrEmptyMessage = apperr.New(apperr.ErrInvalidArgument, "message is required")

// ErrNoteNotFound is returned when the asked-about note does not exist.
var ErrNoteNotFound = apperr.New(apperr.ErrNotFound, "note not found")

// ErrEmbed is returned when the embedding provider fails.
var ErrEmbed = apperr.New(apperr.ErrUpstream, "embedding provider failed")

// ErrVectorIndex is returned when the vector index fails.
var ErrVectorIndex = apperr.New(apperr.ErrUpstream, "vector index failed")

// ErrCompletion is returned when the completion provider fails outside the
// question answering path.
var ErrCompletion = apperr.New(apperr.ErrUpstream, "completion provider failed")

// ErrMalformedFlashcards is returned when the model reply is not a card list.
var ErrMalformedFlashcards = apperr.New(apperr.ErrUpstream, "model returned malformed flashcards")
