// Package sharelinks issues and redeems capability tokens that grant a
// fixed level on one note.
package sharelinks

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"noteflow/internal/apperr"
	"noteflow/internal/services/permissions"
	"noteflow/internal/utils/crypto"
)

// maxTTLHours is the largest lifetime a time.Duration can hold.
const maxTTLHours = math.MaxInt64 / int64(time.Hour)

// Policy bounds link lifetimes. A zero DefaultTTL issues links that never
// expire unless the request asks for one.
type Policy struct {
	DefaultTTL time.Duration
	MaxTTL     time.Duration
}

// Service handles share link business logic
type Service struct {
	repo   Repository
	notes  Notes
	policy Policy
	now    func() time.Time
	log    *slog.Logger
}

// NewService creates a new share link service
func NewService(repo Repository, notes Notes, policy Policy, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		notes:  notes,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log,
	}
}

// Issue creates a link for a subject holding edit access on the note.
func (s *Service) Issue(ctx context.Context, issuer, noteID string, req IssueRequest) (*IssueResponse, error) {
	level, ok := permissions.ParseLevel(req.Level)
	if !ok || !level.Valid() {
		return nil, ErrInvalidLevel
	}

	note, err := s.notes.FindByID(ctx, noteID)
	if err != nil {
		return nil, s.noteError(err, noteID)
	}
	if err := permissions.Check(note.Owner, note.Permissions, issuer, permissions.ActionShareLink); err != nil {
		s.log.Info("share link issue denied", "user_id", issuer, "note_id", noteID)
		return nil, err
	}

	ttl, err := s.lifetime(req.TTLHours)
	if err != nil {
		return nil, err
	}

	token, err := crypto.NewToken(crypto.TokenBytes)
	if err != nil {
		s.log.Error("failed to generate share token", "error", err)
		return nil, ErrIssueLink
	}

	now := s.now()
	link := &Link{
		ID:        crypto.HashToken(token),
		NoteID:    noteID,
		Level:     level,
		Issuer:    issuer,
		CreatedAt: now,
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		link.ExpiresAt = &exp
	}

	if err := s.repo.Create(ctx, link); err != nil {
		s.log.Error(ErrIssueLink.Error(), "error", err, "note_id", noteID)
		return nil, ErrIssueLink
	}

	s.log.Info("share link issued", "note_id", noteID, "user_id", issuer, "level", level)
	return &IssueResponse{
		Token:     token,
		LinkID:    link.ID,
		NoteID:    noteID,
		Level:     level,
		ExpiresAt: link.ExpiresAt,
	}, nil
}

func (s *Service) lifetime(hours *int) (time.Duration, error) {
	if hours == nil {
		return s.policy.DefaultTTL, nil
	}
	if *hours <= 0 {
		return 0, apperr.New(apperr.ErrInvalidArgument, "ttl_hours must be positive")
	}
	if int64(*hours) > maxTTLHours {
		return 0, ErrTTLTooLong
	}
	ttl := time.Duration(*hours) * time.Hour
	if s.policy.MaxTTL > 0 && ttl > s.policy.MaxTTL {
		return 0, ErrTTLTooLong
	}
	return ttl, nil
}

// Redeem grants the link's level to the redeemer. Grants only ever go up,
// so redeeming the same link twice leaves the same state as once.
func (s *Service) Redeem(ctx context.Context, who Redeemer, token string) (*RedeemResponse, error) {
	if token == "" || who.ID == "" {
		return nil, ErrLinkNotFound
	}

	link, err := s.repo.FindByID(ctx, crypto.HashToken(token))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrLinkNotFound
		}
		s.log.Error("failed to load share link", "error", err)
		return nil, ErrRedeemLink
	}
	if !link.Active(s.now()) || !link.Level.Valid() {
		return nil, ErrLinkNotFound
	}

	note, err := s.notes.FindByID(ctx, link.NoteID)
	if err != nil {
		return nil, s.noteError(err, link.NoteID)
	}
	if note.Owner == who.ID {
		return &RedeemResponse{NoteID: note.ID, Level: permissions.Edit}, nil
	}

	level, err := s.notes.MergeGrant(ctx, note.ID, who.ID, link.Level, who.Name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		s.log.Error(ErrRedeemLink.Error(), "error", err, "note_id", note.ID, "user_id", who.ID)
		return nil, ErrRedeemLink
	}

	s.log.Info("share link redeemed", "note_id", note.ID, "user_id", who.ID, "level", level)
	return &RedeemResponse{NoteID: note.ID, Level: level}, nil
}

// List returns the note's links to a subject allowed to issue them.
func (s *Service) List(ctx context.Context, subject, noteID string) ([]*Link, error) {
	note, err := s.notes.FindByID(ctx, noteID)
	if err != nil {
		return nil, s.noteError(err, noteID)
	}
	if err := permissions.Check(note.Owner, note.Permissions, subject, permissions.ActionShareLink); err != nil {
		return nil, err
	}

	links, err := s.repo.ListByNote(ctx, noteID)
	if err != nil {
		s.log.Error(ErrListLinks.Error(), "error", err, "note_id", noteID)
		return nil, ErrListLinks
	}
	if links == nil {
		links = []*Link{}
	}
	return links, nil
}

// Revoke disables a link. The note owner and the issuer may revoke.
func (s *Service) Revoke(ctx context.Context, subject, noteID, linkID string) error {
	link, err := s.repo.FindByID(ctx, linkID)
	if err != nil || link.NoteID != noteID {
		if err == nil || errors.Is(err, apperr.ErrNotFound) {
			return ErrLinkNotFound
		}
		s.log.Error("failed to load share link", "error", err)
		return apperr.Wrap(apperr.ErrUpstream, "failed to load share link", err)
	}

	note, err := s.notes.FindByID(ctx, noteID)
	if err != nil {
		return s.noteError(err, noteID)
	}
	if subject != note.Owner && subject != link.Issuer {
		return ErrRevokeForbidden
	}

	if link.RevokedAt != nil {
		return nil
	}
	if err := s.repo.Revoke(ctx, linkID, s.now()); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrLinkNotFound
		}
		s.log.Error("failed to revoke share link", "error", err, "link_id", linkID)
		return apperr.Wrap(apperr.ErrUpstream, "failed to revoke share link", err)
	}
	s.log.Info("share link revoked", "note_id", noteID, "link_id", linkID, "user_id", subject)
	return nil
}

// RevokeIssuedBy revokes the live links issuer created on the note and
// returns how many it revoked.
func (s *Service) RevokeIssuedBy(ctx context.Context, noteID, issuer string) (int, error) {
	links, err := s.repo.ListByNote(ctx, noteID)
	if err != nil {
		return 0, err
	}
	now := s.now()
	revoked := 0
	for _, l := range links {
		if l.Issuer != issuer || l.RevokedAt != nil {
			continue
		}
		if err := s.repo.Revoke(ctx, l.ID, now); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return revoked, err
		}
		revoked++
	}
	return revoked, nil
}

// DeleteByNote drops every link of a deleted note.
func (s *Service) DeleteByNote(ctx context.Context, noteID string) (int64, error) {
	return s.repo.DeleteByNote(ctx, noteID)
}

// SweepExpired deletes links whose expiry has passed.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		s.log.Error("share link sweep failed", "error", err)
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired share links removed", "count", n)
	}
	return n, nil
}

func (s *Service) noteError(err error, noteID string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return ErrNoteNotFound
	}
	s.log.Error("failed to load note", "error", err, "note_id", noteID)
	return apperr.Wrap(apperr.ErrUpstream, "failed to load note", err)
}

// WithClock replaces the time source. Tests use it to step past expiry.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
