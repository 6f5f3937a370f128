// Package memory holds process-local stores used for development, tests
// and STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"noteflow/internal/services/notes"
	"noteflow/internal/services/permissions"
)

// NotesRepo is a notes.Repository guarded by one mutex. Every read returns
// a copy.
type NotesRepo struct {
	mu    sync.RWMutex
	notes map[string]*notes.Note
	now   func() time.Time
}

// NewNotesRepo creates an empty store.
func NewNotesRepo() *NotesRepo {
	return &NotesRepo{
		notes: map[string]*notes.Note{},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a copy of n.
func (r *NotesRepo) Create(_ context.Context, n *notes.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[n.ID] = cloneNote(n)
	return nil
}

// FindByID returns a copy of the note.
func (r *NotesRepo) FindByID(_ context.Context, id string) (*notes.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.notes[id]
	if !ok {
		return nil, notes.ErrNoteNotFound
	}
	return cloneNote(n), nil
}

// List filters by scope and title prefix and pages by cursor.
func (r *NotesRepo) List(_ context.Context, q notes.ListQuery) ([]*notes.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefix := strings.ToLower(q.TitlePrefix)
	var out []*notes.Note
	for _, n := range r.notes {
		if !inScope(n, q) {
			continue
		}
		if prefix != "" && !strings.HasPrefix(strings.ToLower(n.Title), prefix) {
			continue
		}
		if q.After != nil && !q.After.Precedes(n) {
			continue
		}
		out = append(out, n)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	for i, n := range out {
		out[i] = cloneNote(n)
	}
	return out, nil
}

func inScope(n *notes.Note, q notes.ListQuery) bool {
	owned := n.Owner == q.Subject
	shared := !owned && n.Permissions.Grant(q.Subject).Valid()
	switch q.Scope {
	case notes.ScopeOwned:
		return owned
	case notes.ScopeShared:
		return shared
	default:
		return owned || shared
	}
}

// Update applies the patch and moves updated_at strictly forward.
func (r *NotesRepo) Update(_ context.Context, id string, patch notes.Patch) (*notes.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok {
		return nil, notes.ErrNoteNotFound
	}
	if patch.Title != nil {
		n.Title = *patch.Title
	}
	if patch.Description != nil {
		n.Description = *patch.Description
	}
	if patch.Content != nil {
		n.Content = append([]notes.Block(nil), (*patch.Content)...)
	}
	n.UpdatedAt = nextStamp(n.UpdatedAt, r.now())
	return cloneNote(n), nil
}

// Delete removes the note.
func (r *NotesRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notes[id]; !ok {
		return notes.ErrNoteNotFound
	}
	delete(r.notes, id)
	return nil
}

// MergeGrant raises one user's level without touching other grants.
func (r *NotesRepo) MergeGrant(_ context.Context, id, userID string, level permissions.Level, name string) (permissions.Level, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok {
		return permissions.None, notes.ErrNoteNotFound
	}
	if n.Permissions.Users == nil {
		n.Permissions.Users = map[string]permissions.Level{}
	}
	merged := permissions.Max(n.Permissions.Users[userID], level)
	n.Permissions.Users[userID] = merged
	if name != "" {
		if n.Permissions.Names == nil {
			n.Permissions.Names = map[string]string{}
		}
		n.Permissions.Names[userID] = name
	}
	return merged, nil
}

// ApplySharing writes a whole sharing change at once.
func (r *NotesRepo) ApplySharing(_ context.Context, id string, change notes.SharingChange) (*notes.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok {
		return nil, notes.ErrNoteNotFound
	}

	rec := n.Permissions.Clone()
	if rec.Users == nil {
		rec.Users = map[string]permissions.Level{}
	}
	if rec.Names == nil {
		rec.Names = map[string]string{}
	}
	for uid, lvl := range change.Set {
		rec.Users[uid] = lvl
	}
	for uid, name := range change.Names {
		rec.Names[uid] = name
	}
	for _, uid := range change.Unset {
		delete(rec.Users, uid)
		delete(rec.Names, uid)
	}
	if change.Global != nil {
		rec.Global = *change.Global
	}
	n.Permissions = rec
	return cloneNote(n), nil
}

// nextStamp returns max(now, prev+1ms) at millisecond precision.
func nextStamp(prev, now time.Time) time.Time {
	now = now.Truncate(time.Millisecond)
	floor := prev.Truncate(time.Millisecond).Add(time.Millisecond)
	if now.Before(floor) {
		return floor
	}
	return now
}

func cloneNote(n *notes.Note) *notes.Note {
	c := *n
	c.Content = append([]notes.Block(nil), n.Content...)
	c.Permissions = n.Permissions.Clone()
	return &c
}
