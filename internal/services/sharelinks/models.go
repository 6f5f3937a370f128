package sharelinks

import (
	"time"

	"noteflow/internal/services/permissions"
)

// Link is a stored share link. The raw token is never persisted; ID is its
// SHA-256 digest.
type Link struct {
	ID        string            `bson:"_id" json:"id"`
	NoteID    string            `bson:"note_id" json:"note_id"`
	Level     permissions.Level `bson:"level" json:"level"`
	Issuer    string            `bson:"issuer" json:"issuer"`
	CreatedAt time.Time         `bson:"created_at" json:"created_at"`
	ExpiresAt *time.Time        `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	RevokedAt *time.Time        `bson:"revoked_at,omitempty" json:"revoked_at,omitempty"`
}

// Active reports whether the link can still be redeemed at now.
func (l *Link) Active(now time.Time) bool {
	if l.RevokedAt != nil {
		return false
	}
	return l.ExpiresAt == nil || now.Before(*l.ExpiresAt)
}

// IssueRequest asks for a new link on a note.
type IssueRequest struct {
	Level    string `json:"level" validate:"required,oneof=view edit" example:"edit"`
	TTLHours *int   `json:"ttl_hours,omitempty" validate:"omitempty,min=1" example:"24"`
}

// IssueResponse carries the raw token. It is shown once.
type IssueResponse struct {
	Token     string            `json:"token" example:"q9V0f1b8S7h2..."`
	LinkID    string            `json:"link_id"`
	NoteID    string            `json:"note_id"`
	Level     permissions.Level `json:"level" example:"edit"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
}

// RedeemRequest is the accept-share-link body.
type RedeemRequest struct {
	Token string `json:"token" validate:"required,max=256"`
}

// RedeemResponse reports the note and the level the redeemer now holds.
type RedeemResponse struct {
	NoteID string            `json:"note_id"`
	Level  permissions.Level `json:"level" example:"edit"`
}

// Redeemer identifies who is accepting a link.
type Redeemer struct {
	ID   string
	Name string
}
