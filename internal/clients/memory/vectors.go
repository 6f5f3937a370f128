package memory

import (
	"context"
	"sync"

	"noteflow/internal/services/rag"
)

// VectorIndex is a rag.VectorIndex that scores by brute-force cosine.
type VectorIndex struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]rag.Record
}

// NewVectorIndex creates an empty index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{namespaces: map[string]map[string]rag.Record{}}
}

func (v *VectorIndex) Upsert(_ context.Context, namespace string, records []rag.Record) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	ns, ok := v.namespaces[namespace]
	if !ok {
		ns = map[string]rag.Record{}
		v.namespaces[namespace] = ns
	}
	for _, r := range records {
		r.Vector = append([]float32(nil), r.Vector...)
		ns[r.ID] = r
	}
	return nil
}

// DeleteNamespace drops every record of the namespace.
func (v *VectorIndex) DeleteNamespace(_ context.Context, namespace string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.namespaces[namespace]; !ok {
		return rag.ErrNamespaceNotFound
	}
	delete(v.namespaces, namespace)
	return nil
}

// Query returns the topK records closest to vector. An absent namespace has
// no matches.
func (v *VectorIndex) Query(_ context.Context, namespace string, vector []float32, topK int) ([]rag.Match, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ns := v.namespaces[namespace]
	records := make([]rag.Record, 0, len(ns))
	for _, r := range ns {
		records = append(records, r)
	}
	return rag.Rank(records, vector, topK), nil
}

// Count reports how many records a namespace holds.
func (v *VectorIndex) Count(namespace string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.namespaces[namespace])
}
