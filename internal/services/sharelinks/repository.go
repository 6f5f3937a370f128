package sharelinks

import (
	"context"
	"time"

	"noteflow/internal/services/notes"
	"noteflow/internal/services/permissions"
)

// Repository stores links. Implementations return ErrLinkNotFound for
// unknown ids.
type Repository interface {
	Create(ctx context.Context, l *Link) error
	FindByID(ctx context.Context, id string) (*Link, error)
	ListByNote(ctx context.Context, noteID string) ([]*Link, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	DeleteByNote(ctx context.Context, noteID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Notes is the slice of the note store the link flow needs.
type Notes interface {
	FindByID(ctx context.Context, id string) (*notes.Note, error)
	MergeGrant(ctx context.Context, id, userID string, level permissions.Level, name string) (permissions.Level, error)
}
