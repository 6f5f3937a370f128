package notes

import (
	"strings"
	"time"

	"noteflow/internal/services/permissions"
)

// Note is a document made of positioned content blocks.
type Note struct {
	ID          string             `bson:"_id" json:"id" example:"5b0e0c5e-5f0b-4b8a-9d0c-3f1f6f1b2a10"`
	Owner       string             `bson:"owner" json:"owner" example:"683cdb8aa96ad71e8e075bd0"`
	Title       string             `bson:"title" json:"title" example:"Biology 101"`
	Description string             `bson:"description" json:"description" example:"Lecture notes, week 3"`
	Content     []Block            `bson:"content" json:"content"`
	Permissions permissions.Record `bson:"permissions" json:"permissions"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at" example:"2025-06-01T23:00:26.005Z"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at" example:"2025-06-01T23:00:26.005Z"`
}

// Block is one piece of note content.
type Block struct {
	ID       string    `bson:"id" json:"id" validate:"required,max=64" example:"b1"`
	Type     string    `bson:"type" json:"type" validate:"omitempty,max=32" example:"text"`
	Value    string    `bson:"value" json:"value" validate:"max=100000" example:"The sky is blue."`
	Position *Position `bson:"position,omitempty" json:"position,omitempty"`
	Style    *Style    `bson:"style,omitempty" json:"style,omitempty" validate:"omitempty"`
}

// Position places a block on the note canvas.
type Position struct {
	X      float64 `bson:"x" json:"x"`
	Y      float64 `bson:"y" json:"y"`
	ZIndex int     `bson:"z_index" json:"zIndex"`
}

// Style holds block alignment and inline formatting.
type Style struct {
	Align      string `bson:"align,omitempty" json:"align,omitempty" validate:"omitempty,oneof=left center right justify"`
	Formatting []Span `bson:"formatting,omitempty" json:"formatting,omitempty" validate:"omitempty,dive"`
}

// Span formats the runes [Start, End) of a block value.
type Span struct {
	Start     int      `bson:"start" json:"start" validate:"min=0"`
	End       int      `bson:"end" json:"end" validate:"gtefield=Start"`
	Color     string   `bson:"color,omitempty" json:"color,omitempty" validate:"omitempty,hexcolor"`
	Highlight string   `bson:"highlight,omitempty" json:"highlight,omitempty" validate:"omitempty,hexcolor"`
	Link      string   `bson:"link,omitempty" json:"link,omitempty" validate:"omitempty,url"`
	Types     []string `bson:"types,omitempty" json:"types,omitempty" validate:"omitempty,dive,oneof=bold italic underline strike code"`
}

// Text joins the non-blank block values with a single space, in block order.
func (n *Note) Text() string {
	parts := make([]string, 0, len(n.Content))
	for _, b := range n.Content {
		if strings.TrimSpace(b.Value) == "" {
			continue
		}
		parts = append(parts, b.Value)
	}
	return strings.Join(parts, " ")
}

// Audience returns the owner plus every explicit grantee. Live events go to
// these users.
func (n *Note) Audience() []string {
	out := []string{n.Owner}
	for _, uid := range n.Permissions.Grantees() {
		if uid != n.Owner {
			out = append(out, uid)
		}
	}
	return out
}

// Patch holds the fields an update may change. Nil means unchanged.
type Patch struct {
	Title       *string
	Description *string
	Content     *[]Block
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Content == nil
}

// SharingChange is applied to a note's permission record in one write.
type SharingChange struct {
	Set    map[string]permissions.Level
	Names  map[string]string
	Unset  []string
	Global *permissions.Level
}

// Scope selects which notes List returns relative to the subject.
type Scope string

const (
	ScopeAll    Scope = "all"
	ScopeOwned  Scope = "owned"
	ScopeShared Scope = "shared"
)

// ListQuery is what the service asks the repository for.
type ListQuery struct {
	Subject     string
	Scope       Scope
	TitlePrefix string
	After       *Cursor
	Limit       int
}

// NoteEvent represents an event that occurred on a note
type NoteEvent struct {
	Type     string   `json:"type"` // "created", "updated", "deleted", "shared"
	Note     *Note    `json:"note"`
	Audience []string `json:"-"`
}

// Grantee is a user a note can be shared with.
type Grantee struct {
	ID    string
	Name  string
	Email string
}
