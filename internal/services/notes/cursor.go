package notes

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Cursor marks the last note of a page. Pages are ordered by updated_at
// descending with the id as tie-breaker.
type Cursor struct {
	UpdatedAt time.Time `json:"u"`
	ID        string    `json:"i"`
}

// EncodeCursor encodes a cursor to a URL-safe base64 string
func EncodeCursor(n *Note) string {
	b, _ := json.Marshal(Cursor{UpdatedAt: n.UpdatedAt.UTC(), ID: n.ID})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor decodes a URL-safe base64 string to a cursor
func DecodeCursor(encoded string) (*Cursor, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	var c Cursor
	if err := json.Unmarshal(decoded, &c); err != nil {
		return nil, err
	}
	if c.ID == "" || c.UpdatedAt.IsZero() {
		return nil, ErrInvalidCursor
	}

	return &c, nil
}

// Precedes reports whether n belongs on a page after the cursor.
func (c *Cursor) Precedes(n *Note) bool {
	if n.UpdatedAt.Equal(c.UpdatedAt) {
		return n.ID < c.ID
	}
	return n.UpdatedAt.Before(c.UpdatedAt)
}
