package notes

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"noteflow/internal/apperr"
	"noteflow/internal/services/permissions"
	"noteflow/internal/utils/sanitize"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// Service handles notes business logic
type Service struct {
	repo    Repository
	bus     Bus
	indexer Indexer
	links   LinkPurger
	users   Directory
	log     *slog.Logger
}

// NewService creates a new notes service
func NewService(repo Repository, bus Bus, indexer Indexer, links LinkPurger, users Directory, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		bus:     bus,
		indexer: indexer,
		links:   links,
		users:   users,
		log:     log,
	}
}

// CreateNoteRequest represents a note creation request
type CreateNoteRequest struct {
	Title       string  `json:"title" validate:"required,max=200" example:"Biology 101"`
	Description string  `json:"description" validate:"max=2000" example:"Lecture notes, week 3"`
	Content     []Block `json:"content" validate:"max=500,dive"`
}

// UpdateNoteRequest represents a note update request
type UpdateNoteRequest struct {
	ID          string   `json:"id,omitempty" example:"5b0e0c5e-5f0b-4b8a-9d0c-3f1f6f1b2a10"`
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=1,max=200" example:"Biology 101 (revised)"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Content     *[]Block `json:"content,omitempty" validate:"omitempty,max=500,dive"`
}

// ListNotesRequest represents a list notes request
type ListNotesRequest struct {
	Limit  int    `query:"limit"  validate:"omitempty,min=1,max=100" example:"50"`
	Cursor string `query:"cursor" validate:"omitempty,max=512"`
	Q      string `query:"q"      validate:"omitempty,max=200" example:"Bio"`
	Scope  string `query:"scope"  validate:"omitempty,oneof=all owned shared" example:"all"`
}

// ShareGrant names one grantee and the level they get. Level "none" removes
// the grant.
type ShareGrant struct {
	Email  string `json:"email,omitempty" validate:"omitempty,email" example:"friend@example.com"`
	UserID string `json:"user_id,omitempty" validate:"omitempty,max=64"`
	Level  string `json:"level" validate:"required,oneof=view edit none" example:"view"`
}

// ShareRequest changes who can access a note.
type ShareRequest struct {
	Grants []ShareGrant `json:"grants" validate:"max=100,dive"`
	Global *string      `json:"global,omitempty" validate:"omitempty,oneof=view edit none" example:"none"`
}

// NoteResponse represents a single note response
type NoteResponse struct {
	Note    *Note `json:"note"`
	Indexed *bool `json:"indexed,omitempty"`
}

// ListNotesResponse represents a list of notes response
type ListNotesResponse struct {
	Notes      []*Note `json:"notes"`
	NextCursor string  `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more" example:"true"`
}

// Create stores a new note owned by owner and indexes it.
func (s *Service) Create(ctx context.Context, owner string, req CreateNoteRequest) (*NoteResponse, error) {
	now := time.Now().UTC()
	note := &Note{
		ID:          uuid.NewString(),
		Owner:       owner,
		Title:       sanitize.Line(req.Title),
		Description: sanitize.Clean(req.Description),
		Content:     cleanBlocks(req.Content),
		Permissions: permissions.Record{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, note); err != nil {
		s.log.Error(ErrCreateNote.Error(), "error", err, "user_id", owner)
		return nil, ErrCreateNote
	}

	indexed := s.reindex(ctx, note)
	s.bus.Broadcast(ctx, NoteEvent{Type: "created", Note: note})

	return &NoteResponse{Note: note, Indexed: &indexed}, nil
}

// Get returns a note the subject can view.
func (s *Service) Get(ctx context.Context, subject, id string) (*NoteResponse, error) {
	note, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(note.Owner, note.Permissions, subject, permissions.ActionView); err != nil {
		s.log.Info("note view denied", "user_id", subject, "note_id", id)
		return nil, err
	}
	return &NoteResponse{Note: note}, nil
}

// Find loads a note without any access check. Callers that expose the note
// must run their own check.
func (s *Service) Find(ctx context.Context, id string) (*Note, error) {
	return s.load(ctx, id)
}

// List returns the notes the subject owns or was granted, newest first.
func (s *Service) List(ctx context.Context, subject string, req ListNotesRequest) (*ListNotesResponse, error) {
	q, err := s.buildListQuery(subject, req)
	if err != nil {
		return nil, err
	}

	// one extra row tells us whether another page exists
	fetch := q
	fetch.Limit = q.Limit + 1

	found, err := s.repo.List(ctx, fetch)
	if err != nil {
		s.log.Error(ErrListNotes.Error(), "error", err, "user_id", subject)
		return nil, ErrListNotes
	}

	hasMore := len(found) > q.Limit
	if hasMore {
		found = found[:q.Limit]
	}

	resp := &ListNotesResponse{Notes: found, HasMore: hasMore}
	if resp.Notes == nil {
		resp.Notes = []*Note{}
	}
	if hasMore {
		resp.NextCursor = EncodeCursor(found[len(found)-1])
	}
	return resp, nil
}

func (s *Service) buildListQuery(subject string, req ListNotesRequest) (ListQuery, error) {
	q := ListQuery{
		Subject:     subject,
		Scope:       ScopeAll,
		TitlePrefix: strings.TrimSpace(req.Q),
		Limit:       req.Limit,
	}

	if q.Limit == 0 {
		q.Limit = defaultListLimit
	}
	if q.Limit < 0 || q.Limit > maxListLimit {
		return q, ErrInvalidLimit
	}

	switch Scope(strings.ToLower(req.Scope)) {
	case "", ScopeAll:
	case ScopeOwned:
		q.Scope = ScopeOwned
	case ScopeShared:
		q.Scope = ScopeShared
	default:
		return q, apperr.New(apperr.ErrInvalidArgument, "scope must be all, owned or shared")
	}

	if req.Cursor != "" {
		c, err := DecodeCursor(req.Cursor)
		if err != nil {
			return q, ErrInvalidCursor
		}
		q.After = c
	}
	return q, nil
}

// Update applies a partial update for a subject holding edit access.
func (s *Service) Update(ctx context.Context, subject, id string, req UpdateNoteRequest) (*NoteResponse, error) {
	if req.ID != "" && req.ID != id {
		return nil, ErrIDMismatch
	}

	patch := cleanPatch(req)
	if patch.Empty() {
		return nil, ErrEmptyUpdate
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(current.Owner, current.Permissions, subject, permissions.ActionEdit); err != nil {
		s.log.Info("note edit denied", "user_id", subject, "note_id", id)
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		s.log.Error(ErrUpdateNote.Error(), "error", err, "user_id", subject, "note_id", id)
		return nil, ErrUpdateNote
	}

	indexed := s.reindex(ctx, updated)
	s.bus.Broadcast(ctx, NoteEvent{Type: "updated", Note: updated})

	return &NoteResponse{Note: updated, Indexed: &indexed}, nil
}

// Delete removes a note, its vectors and its share links. Only the owner
// may delete.
func (s *Service) Delete(ctx context.Context, subject, id string) error {
	note, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := permissions.Check(note.Owner, note.Permissions, subject, permissions.ActionDelete); err != nil {
		s.log.Info("note delete denied", "user_id", subject, "note_id", id)
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrNoteNotFound
		}
		s.log.Error(ErrDeleteNote.Error(), "error", err, "user_id", subject, "note_id", id)
		return ErrDeleteNote
	}

	if s.indexer != nil {
		if err := s.indexer.Remove(ctx, id); err != nil {
			s.log.Warn("failed to remove note vectors", "error", err, "note_id", id)
		}
	}
	if s.links != nil {
		if n, err := s.links.DeleteByNote(ctx, id); err != nil {
			s.log.Warn("failed to delete share links", "error", err, "note_id", id)
		} else if n > 0 {
			s.log.Debug("deleted share links", "note_id", id, "count", n)
		}
	}

	s.bus.Broadcast(ctx, NoteEvent{
		Type:     "deleted",
		Note:     &Note{ID: id, Owner: note.Owner},
		Audience: note.Audience(),
	})
	return nil
}

// Share changes explicit grants and the global level. Only the owner may
// share, and all changes land in a single write.
func (s *Service) Share(ctx context.Context, subject, id string, req ShareRequest) (*NoteResponse, error) {
	note, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(note.Owner, note.Permissions, subject, permissions.ActionShare); err != nil {
		s.log.Info("note share denied", "user_id", subject, "note_id", id)
		return nil, err
	}

	change, err := s.buildSharingChange(ctx, note, req)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.ApplySharing(ctx, id, change)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		s.log.Error(ErrShareNote.Error(), "error", err, "user_id", subject, "note_id", id)
		return nil, ErrShareNote
	}

	s.revokeLinksOf(ctx, id, change.Unset)

	// former grantees hear about the change too
	audience := append(updated.Audience(), change.Unset...)
	s.bus.Broadcast(ctx, NoteEvent{Type: "shared", Note: updated, Audience: audience})

	return &NoteResponse{Note: updated}, nil
}

// revokeLinksOf revokes the share links that removed grantees issued on
// the note, so they cannot redeem their way back in.
func (s *Service) revokeLinksOf(ctx context.Context, noteID string, removed []string) {
	if s.links == nil {
		return
	}
	for _, uid := range removed {
		n, err := s.links.RevokeIssuedBy(ctx, noteID, uid)
		if err != nil {
			s.log.Warn("failed to revoke share links of removed grantee", "error", err, "note_id", noteID, "user_id", uid)
			continue
		}
		if n > 0 {
			s.log.Info("revoked share links of removed grantee", "note_id", noteID, "user_id", uid, "count", n)
		}
	}
}

func (s *Service) buildSharingChange(ctx context.Context, note *Note, req ShareRequest) (SharingChange, error) {
	change := SharingChange{
		Set:   map[string]permissions.Level{},
		Names: map[string]string{},
	}

	for _, g := range req.Grants {
		level, ok := permissions.ParseLevel(g.Level)
		if !ok || strings.TrimSpace(g.Level) == "" {
			return change, ErrInvalidLevel
		}

		grantee, err := s.resolveGrantee(ctx, g)
		if err != nil {
			return change, err
		}
		if grantee.ID == note.Owner {
			return change, ErrShareWithOwner
		}

		// the last entry for a grantee wins
		change.Unset = slices.DeleteFunc(change.Unset, func(id string) bool { return id == grantee.ID })
		if level == permissions.None {
			delete(change.Set, grantee.ID)
			delete(change.Names, grantee.ID)
			change.Unset = append(change.Unset, grantee.ID)
			continue
		}
		change.Set[grantee.ID] = level
		if grantee.Name != "" {
			change.Names[grantee.ID] = grantee.Name
		}
	}

	if req.Global != nil {
		level, ok := permissions.ParseLevel(*req.Global)
		if !ok {
			return change, ErrInvalidLevel
		}
		change.Global = &level
	}
	return change, nil
}

func (s *Service) resolveGrantee(ctx context.Context, g ShareGrant) (*Grantee, error) {
	var (
		grantee *Grantee
		err     error
	)
	switch {
	case g.UserID != "":
		grantee, err = s.users.LookupByID(ctx, g.UserID)
	case g.Email != "":
		grantee, err = s.users.LookupByEmail(ctx, strings.ToLower(strings.TrimSpace(g.Email)))
	default:
		return nil, ErrInvalidGrantee
	}
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		s.log.Error("failed to resolve grantee", "error", err)
		return nil, ErrShareNote
	}
	return grantee, nil
}

func (s *Service) load(ctx context.Context, id string) (*Note, error) {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		s.log.Error(ErrReadNote.Error(), "error", err, "note_id", id)
		return nil, ErrReadNote
	}
	return note, nil
}

// reindex never fails the caller: the note is the source of truth and the
// next successful write rebuilds the index.
func (s *Service) reindex(ctx context.Context, n *Note) bool {
	if s.indexer == nil {
		return false
	}
	if err := s.indexer.Index(ctx, n); err != nil {
		s.log.Warn("note indexing failed", "error", err, "note_id", n.ID)
		return false
	}
	return true
}

func cleanBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		b.Value = sanitize.Text(b.Value)
		b.Type = strings.ToLower(strings.TrimSpace(b.Type))
		if b.Type == "" {
			b.Type = "text"
		}
		out[i] = b
	}
	return out
}

func cleanPatch(req UpdateNoteRequest) Patch {
	var p Patch
	if req.Title != nil {
		v := sanitize.Line(*req.Title)
		p.Title = &v
	}
	if req.Description != nil {
		v := sanitize.Clean(*req.Description)
		p.Description = &v
	}
	if req.Content != nil {
		v := cleanBlocks(*req.Content)
		p.Content = &v
	}
	return p
}
