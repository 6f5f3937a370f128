// Package permissions decides what a subject may do with a note.
//
// Every function here is pure. A note's owner is implicitly edit, explicit
// grants and the global level never lower that, and anything the engine
// does not recognise ranks as no access.
package permissions

import (
	"strings"

	"noteflow/internal/apperr"
)

// Level is a permission level stored on a note.
type Level string

const (
	None Level = ""
	View Level = "view"
	Edit Level = "edit"
)

// rank orders levels. Unknown strings rank with None.
func (l Level) rank() int {
	switch l {
	case View:
		return 1
	case Edit:
		return 2
	default:
		return 0
	}
}

// Valid reports whether l is view or edit.
func (l Level) Valid() bool {
	return l == View || l == Edit
}

// AtLeast reports whether l grants at least want. Asking for None is never
// satisfied, so a malformed request level cannot open anything.
func (l Level) AtLeast(want Level) bool {
	if want.rank() == 0 {
		return false
	}
	return l.rank() >= want.rank()
}

// Max returns the higher of a and b. Unknown values collapse to None.
func Max(a, b Level) Level {
	if a.rank() >= b.rank() {
		return normalize(a)
	}
	return normalize(b)
}

func normalize(l Level) Level {
	switch l.rank() {
	case 1:
		return View
	case 2:
		return Edit
	default:
		return None
	}
}

// ParseLevel accepts "view", "edit" and "none" in any case. Anything else
// is rejected.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "view":
		return View, true
	case "edit":
		return Edit, true
	case "none", "":
		return None, true
	default:
		return None, false
	}
}

// Record is the canonical permission document stored on a note.
type Record struct {
	Users  map[string]Level  `bson:"users,omitempty" json:"users,omitempty"`
	Global Level             `bson:"global,omitempty" json:"global,omitempty"`
	Names  map[string]string `bson:"names,omitempty" json:"names,omitempty"`
}

// Grant returns the explicit level stored for userID.
func (r Record) Grant(userID string) Level {
	if userID == "" || r.Users == nil {
		return None
	}
	return normalize(r.Users[userID])
}

// Grantees lists the user ids holding an explicit view or edit grant.
func (r Record) Grantees() []string {
	out := make([]string, 0, len(r.Users))
	for uid, lvl := range r.Users {
		if lvl.Valid() {
			out = append(out, uid)
		}
	}
	return out
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	c := Record{Global: r.Global}
	if r.Users != nil {
		c.Users = make(map[string]Level, len(r.Users))
		for k, v := range r.Users {
			c.Users[k] = v
		}
	}
	if r.Names != nil {
		c.Names = make(map[string]string, len(r.Names))
		for k, v := range r.Names {
			c.Names[k] = v
		}
	}
	return c
}

// Action is something a subject asks to do with a note.
type Action string

const (
	ActionView      Action = "view"
	ActionEdit      Action = "edit"
	ActionDelete    Action = "delete"
	ActionShare     Action = "share"
	ActionShareLink Action = "share_link"
)

// Effective computes the subject's level on a note owned by owner.
// An empty subject is anonymous and only sees the global level.
func Effective(owner string, rec Record, subject string) Level {
	lvl := normalize(rec.Global)
	if subject == "" {
		return lvl
	}
	if owner != "" && subject == owner {
		return Edit
	}
	return Max(lvl, rec.Grant(subject))
}

// Allowed reports whether subject may perform action.
func Allowed(owner string, rec Record, subject string, action Action) bool {
	isOwner := owner != "" && subject != "" && subject == owner
	switch action {
	case ActionView:
		return Effective(owner, rec, subject).AtLeast(View)
	case ActionEdit, ActionShareLink:
		return Effective(owner, rec, subject).AtLeast(Edit)
	case ActionDelete, ActionShare:
		return isOwner
	default:
		return false
	}
}

// Check is Allowed returning a Forbidden error on deny.
func Check(owner string, rec Record, subject string, action Action) error {
	if Allowed(owner, rec, subject, action) {
		return nil
	}
	return apperr.New(apperr.ErrForbidden, forbiddenMessage(action))
}

func forbiddenMessage(a Action) string {
	switch a {
	case ActionView:
		return "you do not have access to this note"
	case ActionEdit:
		return "you do not have edit access to this note"
	case ActionDelete:
		return "only the owner can delete this note"
	case ActionShare:
		return "only the owner can change sharing"
	case ActionShareLink:
		return "you need edit access to create a share link"
	default:
		return "forbidden"
	}
}
