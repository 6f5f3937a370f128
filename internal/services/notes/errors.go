package notes

import "noteflow/internal/apperr"

// ErrNoteNotFound is returned when no note has the requested id.
var ErrNoteNotFound = apperr.New(apperr.ErrNotFound, "note not found")

// ErrUserNotFound is returned when a share target cannot be resolved.
var ErrUserNotFound = apperr.New(apperr.ErrNotFound, "user not found")

// ErrCreateNote is returned when note creation fails.
var ErrCreateNote = apperr.New(apperr.ErrUpstream, "failed to create note")

// ErrReadNote is returned when a note cannot be loaded.
var ErrReadNote = apperr.New(apperr.ErrUpstream, "failed to read note")

// ErrUpdateNote is returned when note update fails.
var ErrUpdateNote = apperr.New(apperr.ErrUpstream, "failed to update note")

// ErrDeleteNote is returned when note deletion fails.
var ErrDeleteNote = apperr.New(apperr.ErrUpstream, "failed to delete note")

// ErrShareNote is returned when the permission record cannot be written.
var ErrShareNote = apperr.New(apperr.ErrUpstream, "failed to update sharing")

// ErrListNotes is returned when notes listing fails.
var ErrListNotes = apperr.New(apperr.ErrUpstream, "failed to list notes")

// ErrInvalidCursor is returned when cursor is invalid.
var ErrInvalidCursor = apperr.New(apperr.ErrInvalidArgument, "invalid cursor")

// ErrInvalidLimit is returned when limit is invalid.
var ErrInvalidLimit = apperr.New(apperr.ErrInvalidArgument, "invalid limit")

// ErrIDMismatch is returned when a body id disagrees with the path id.
var ErrIDMismatch = apperr.New(apperr.ErrInvalidArgument, "note id in body does not match path")

// ErrEmptyUpdate is returned when an update carries no fields.
var ErrEmptyUpdate = apperr.New(apperr.ErrInvalidArgument, "nothing to update")

// ErrShareWithOwner is returned when the owner is named as a grantee.
var ErrShareWithOwner = apperr.New(apperr.ErrInvalidArgument, "the owner already has full access")

// ErrInvalidLevel is returned for a level other than view, edit or none.
var ErrInvalidLevel = apperr.New(apperr.ErrInvalidArgument, "level must be view, edit or none")

// ErrInvalidGrantee is returned when a grant names neither an email nor a user id.
var ErrInvalidGrantee = apperr.New(apperr.ErrInvalidArgument, "each grant needs an email or a user_id")
