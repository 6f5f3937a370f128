package sharelinks

import "noteflow/internal/apperr"

// ErrLinkNotFound covers unknown, revoked and expired tokens alike so the
// response does not reveal which one it was.
var ErrLinkNotFound = apperr.New(apperr.ErrNotFound, "share link not found or expired")

// ErrNoteNotFound is returned when the linked note no longer exists.
var ErrNoteNotFound = apperr.New(apperr.ErrNotFound, "note not found")

// ErrInvalidLevel is returned when a link asks for anything but view or edit.
var ErrInvalidLevel = apperr.New(apperr.ErrInvalidArgument, "level must be view or edit")

// ErrTTLTooLong is returned when a requested lifetime exceeds the policy.
var ErrTTLTooLong = apperr.New(apperr.ErrInvalidArgument, "requested lifetime exceeds the allowed maximum")

// ErrRevokeForbidden is returned when someone other than the owner or issuer revokes.
var ErrRevokeForbidden = apperr.New(apperr.ErrForbidden, "only the note owner or the link issuer can revoke it")

// ErrIssueLink is returned when the link cannot be stored.
var ErrIssueLink = apperr.New(apperr.ErrUpstream, "failed to create share link")

// ErrRedeemLink is returned when the grant cannot be written.
var ErrRedeemLink = apperr.New(apperr.ErrUpstream, "failed to accept share link")

// ErrListLinks is returned when links cannot be listed.
var ErrListLinks = apperr.New(apperr.ErrUpstream, "failed to list share links")
