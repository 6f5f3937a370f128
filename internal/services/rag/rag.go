// Package rag turns note content into a per-note vector namespace and
// answers questions grounded in it.
package rag

import (
	"context"
	"errors"
)

// Record is one embedded chunk stored under a note namespace.
type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata Metadata
}

// Metadata travels with every vector record.
type Metadata struct {
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	Owner       string `bson:"owner" json:"owner"`
	Chunk       int    `bson:"chunk" json:"chunk"`
	Revision    int64  `bson:"revision" json:"revision"`
}

// Match is a scored query hit.
type Match struct {
	ID       string
	Text     string
	Metadata Metadata
	Score    float64
}

// Prompt is what the completer receives. A Chat prompt sends Question as
// the whole user turn with no document framing.
type Prompt struct {
	System   string
	Context  string
	Question string
	Chat     bool
}

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer generates text for a prompt.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// VectorIndex stores records grouped by namespace. DeleteNamespace may
// return ErrNamespaceNotFound for an absent namespace.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace string, records []Record) error
	DeleteNamespace(ctx context.Context, namespace string) error
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error)
}

// ErrNamespaceNotFound reports a namespace that holds no vectors.
var ErrNamespaceNotFound = errors.New("namespace not found")
