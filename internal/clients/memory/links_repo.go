package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"noteflow/internal/services/sharelinks"
)

// LinksRepo is a sharelinks.Repository kept in a map.
type LinksRepo struct {
	mu    sync.RWMutex
	links map[string]*sharelinks.Link
}

// NewLinksRepo creates an empty store.
func NewLinksRepo() *LinksRepo {
	return &LinksRepo{links: map[string]*sharelinks.Link{}}
}

func (r *LinksRepo) Create(_ context.Context, l *sharelinks.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *l
	r.links[l.ID] = &c
	return nil
}

func (r *LinksRepo) FindByID(_ context.Context, id string) (*sharelinks.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.links[id]
	if !ok {
		return nil, sharelinks.ErrLinkNotFound
	}
	c := *l
	return &c, nil
}

// ListByNote returns the note's links, newest first.
func (r *LinksRepo) ListByNote(_ context.Context, noteID string) ([]*sharelinks.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*sharelinks.Link
	for _, l := range r.links {
		if l.NoteID == noteID {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *LinksRepo) Revoke(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[id]
	if !ok {
		return sharelinks.ErrLinkNotFound
	}
	if l.RevokedAt == nil {
		l.RevokedAt = &at
	}
	return nil
}

func (r *LinksRepo) DeleteByNote(_ context.Context, noteID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, l := range r.links {
		if l.NoteID == noteID {
			delete(r.links, id)
			n++
		}
	}
	return n, nil
}

// DeleteExpired removes links whose expiry is at or before now.
func (r *LinksRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, l := range r.links {
		if l.ExpiresAt != nil && !now.Before(*l.ExpiresAt) {
			delete(r.links, id)
			n++
		}
	}
	return n, nil
}
