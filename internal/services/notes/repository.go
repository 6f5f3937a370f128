package notes

import (
	"context"

	"noteflow/internal/services/permissions"
)

// Repository defines the interface for notes repository operations.
// Implementations return ErrNoteNotFound for missing ids.
type Repository interface {
	Create(ctx context.Context, n *Note) error
	FindByID(ctx context.Context, id string) (*Note, error)
	List(ctx context.Context, q ListQuery) ([]*Note, error)
	// Update applies patch and bumps updated_at so it strictly increases.
	Update(ctx context.Context, id string, patch Patch) (*Note, error)
	Delete(ctx context.Context, id string) error
	// MergeGrant raises userID to level without touching other grants and
	// never lowers an existing edit grant. It returns the stored level.
	MergeGrant(ctx context.Context, id, userID string, level permissions.Level, name string) (permissions.Level, error)
	ApplySharing(ctx context.Context, id string, change SharingChange) (*Note, error)
}

// Bus defines the interface for event broadcasting
type Bus interface {
	Broadcast(ctx context.Context, ev NoteEvent)
}

// Indexer keeps the retrieval index in step with notes.
type Indexer interface {
	Index(ctx context.Context, n *Note) error
	Remove(ctx context.Context, noteID string) error
}

// LinkPurger drops the share links of a deleted note and revokes the ones
// issued by a grantee who lost access.
type LinkPurger interface {
	DeleteByNote(ctx context.Context, noteID string) (int64, error)
	RevokeIssuedBy(ctx context.Context, noteID, issuer string) (int, error)
}

// Directory resolves share targets.
type Directory interface {
	LookupByEmail(ctx context.Context, email string) (*Grantee, error)
	LookupByID(ctx context.Context, id string) (*Grantee, error)
}
