package sharelinks_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noteflow/internal/apperr"
	"noteflow/internal/clients/memory"
	"noteflow/internal/services/notes"
	"noteflow/internal/services/permissions"
	"noteflow/internal/services/sharelinks"
)

var silentLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	ownerID  = "owner-1"
	editorID = "editor-1"
	viewerID = "viewer-1"
	noteID   = "note-1"
)

type fixture struct {
	notes *memory.NotesRepo
	links *memory.LinksRepo
	svc   *sharelinks.Service
	now   time.Time
}

func newFixture(t *testing.T, policy sharelinks.Policy) *fixture {
	t.Helper()
	f := &fixture{
		notes: memory.NewNotesRepo(),
		links: memory.NewLinksRepo(),
		now:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = sharelinks.NewService(f.links, f.notes, policy, silentLogger).
		WithClock(func() time.Time { return f.now })

	require.NoError(t, f.notes.Create(context.Background(), &notes.Note{
		ID:    noteID,
		Owner: ownerID,
		Title: "Shared",
		Permissions: permissions.Record{Users: map[string]permissions.Level{
			editorID: permissions.Edit,
			viewerID: permissions.View,
		}},
	}))
	return f
}

func (f *fixture) grant(t *testing.T, userID string) permissions.Level {
	t.Helper()
	n, err := f.notes.FindByID(context.Background(), noteID)
	require.NoError(t, err)
	return n.Permissions.Grant(userID)
}

func intPtr(v int) *int { return &v }

func TestIssue(t *testing.T) {
	tests := []struct {
		name    string
		issuer  string
		noteID  string
		req     sharelinks.IssueRequest
		wantErr error
	}{
		{"owner", ownerID, noteID, sharelinks.IssueRequest{Level: "edit"}, nil},
		{"editor", editorID, noteID, sharelinks.IssueRequest{Level: "view"}, nil},
		{"viewer cannot issue", viewerID, noteID, sharelinks.IssueRequest{Level: "view"}, apperr.ErrForbidden},
		{"stranger cannot issue", "stranger", noteID, sharelinks.IssueRequest{Level: "view"}, apperr.ErrForbidden},
		{"missing note", ownerID, "nope", sharelinks.IssueRequest{Level: "view"}, sharelinks.ErrNoteNotFound},
		{"bad level", ownerID, noteID, sharelinks.IssueRequest{Level: "admin"}, sharelinks.ErrInvalidLevel},
		{"none level", ownerID, noteID, sharelinks.IssueRequest{Level: "none"}, sharelinks.ErrInvalidLevel},
		{"ttl over max", ownerID, noteID, sharelinks.IssueRequest{Level: "view", TTLHours: intPtr(1000)}, sharelinks.ErrTTLTooLong},
		{"ttl not positive", ownerID, noteID, sharelinks.IssueRequest{Level: "view", TTLHours: intPtr(0)}, apperr.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, sharelinks.Policy{DefaultTTL: 24 * time.Hour, MaxTTL: 720 * time.Hour})
			resp, err := f.svc.Issue(context.Background(), tt.issuer, tt.noteID, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.Len(t, resp.Token, 43)
			assert.NotEqual(t, resp.Token, resp.LinkID, "only the digest is stored")
			require.NotNil(t, resp.ExpiresAt)
			assert.Equal(t, f.now.Add(24*time.Hour), *resp.ExpiresAt)
		})
	}
}

func TestIssueTTLBoundsWithoutCap(t *testing.T) {
	tests := map[string]struct {
		hours   int
		wantErr error
	}{
		"largest representable lifetime": {hours: 2562047},
		"one past the largest":           {hours: 2562048, wantErr: sharelinks.ErrTTLTooLong},
		"would wrap to a short lifetime": {hours: 5124097, wantErr: sharelinks.ErrTTLTooLong},
		"would wrap negative":            {hours: math.MaxInt32 * 4, wantErr: sharelinks.ErrTTLTooLong},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, sharelinks.Policy{})
			resp, err := f.svc.Issue(context.Background(), ownerID, noteID,
				sharelinks.IssueRequest{Level: "view", TTLHours: intPtr(tt.hours)})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, resp.ExpiresAt)
			assert.True(t, resp.ExpiresAt.After(f.now.AddDate(290, 0, 0)))
		})
	}
}

func TestIssueWithoutDefaultTTLNeverExpires(t *testing.T) {
	f := newFixture(t, sharelinks.Policy{})
	resp, err := f.svc.Issue(context.Background(), ownerID, noteID, sharelinks.IssueRequest{Level: "view"})
	require.NoError(t, err)
	assert.Nil(t, resp.ExpiresAt)
}

func TestRedeemGrantsLevel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sharelinks.Policy{})

	link, err := f.svc.Issue(ctx, ownerID, noteID, sharelinks.IssueRequest{Level: "edit"})
	require.NoError(t, err)

	resp, err := f.svc.Redeem(ctx, sharelinks.Redeemer{ID: "newcomer", Name: "New"}, link.Token)
	require.NoError(t, err)
	assert.Equal(t, noteID, resp.NoteID)
	assert.Equal(t, permissions.Edit, resp.Level)
	assert.Equal(t, permissions.Edit, f.grant(t, "newcomer"))

	n, _ := f.notes.FindByID(ctx, noteID)
	assert.Equal(t, "New", n.Permissions.Names["newcomer"])
	assert.Equal(t, permissions.View, n.Permissions.Grant(viewerID), "other grants untouched")
}

func TestRedeemIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sharelinks.Policy{})
	link, err := f.svc.Issue(ctx, ownerID, noteID, sharelinks.IssueRequest{Level: "view"})
	require.NoError(t, err)

	who := sharelinks.Redeemer{ID: "newcomer"}
	first, err := f.svc.Redeem(ctx, who, link.Token)
	require.NoError(t, err)
	before, _ := f.notes.FindByID(ctx, noteID)

	second, err := f.svc.Redeem(ctx, who, link.Token)
	require.NoError(t, err)
	after, _ := f.notes.FindByID(ctx, noteID)

	assert.Equal(t, first, second)
	assert.Equal(t, before.Permissions, after.Permissions)
}

func TestRedeemNeverDowngrades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sharelinks.Policy{})
	link, err := f.svc.Issue(ctx, ownerID, noteID, sharelinks.IssueRequest{Level: "view"})
	require.NoError(t, err)

	resp, err := f.svc.Redeem(ctx, sharelinks.Redeemer{ID: editorID}, link.Token)
	require.NoError(t, err)
	assert.Equal(t, permissions.Edit, resp.Level)
	assert.Equal(t, permissions.Edit, f.grant(t, editorID))
}

func TestRedeemByOwnerChangesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sharelinks.Policy{})
	link, err := f.svc.Issue(ctx, editorID, noteID, sharelinks.IssueRequest{Level: "view"})
	require.NoError(t, err)

	before, _ := f.notes.FindByID(ctx, noteID)
	resp, err := f.svc.Redeem(ctx, sharelinks.Redeemer{ID: ownerID}, link.Token)
	require.NoError(t, err)
	assert.Equal(t, permissions.Edit, resp.Level)

	after, _ := f.notes.FindByID(ctx, noteID)
	assert.Equal(t, before.Permissions, after.Permissions)
}

func TestRedeemConcurrentRedeemersAllLand(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sharelinks.Policy{})

	const n = 32
	tokens := make([]string, n)
	want := make([]permissions.Level, n)
	for i := range tokens {
		level := "view"
		if i%2 == 1 {
			level = "edit"
		}
		link, err := f.svc.Issue(ctx, ownerID, noteID, sharelinks.IssueRequest{Level: level})
		require.NoError(t, err)
		tokens[i] = link.Token
		want[i] = link.Level
	}

	var wg sync.WaitGroup
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Redeem(ctx, sharelinks.Redeemer{ID: fmt.Sprintf("user-%d", i)}, tokens[i])
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	note, err := f.notes.FindByID(ctx, noteID)
	require.NoError(t, err)
	for i := range tokens {
		assert.Equal(t, want[i], note.Permissions.Grant(fmt.Sprintf("user-%d", i)))
	}
	assert.Equal(t, permissions.Edit, note.Permissions.Grant(editorID))
	assert.Equal(t, permissions.View, note.Permissions.Grant(viewerID))
}

func TestRedeemRejectsDeadLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sharelinks.Policy{DefaultTTL: time.Hour, MaxTTL: 24 * time.Hour})

	link, err := f.svc.Issue(ctx, ownerID, noteID, sharelinks.IssueRequest{Level: "view"})
	require.NoError(t, err)

	_, err = f.svc.Redeem(ctx, sharelinks.Redeemer{ID: "u"}, "not-a-token")
	assert.ErrorIs(t, err, sharelinks.ErrLinkNotFound)

	_, err = f.svc.Redeem(ctx, sharelinks.Redeemer{ID: ""}, link.Token)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	f.now = f.now.Add(time.Hour)
	_, err = f.svc.Redeem(ctx, sharelinks.Redeemer{ID: "late"}, link.Token)
	assert.ErrorIs(t, err, sharelinks.ErrLinkNotFound)
	assert.Equal(t, permissions.None, f.grant(t, "late"))
}

func TestRedeemAfterNoteDeleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sharelinks.Policy{})
	link, err := f.svc.Issue(ctx, ownerID, noteID, sharelinks.IssueRequest{Level: "view"})
	require.NoError(t, err)

	require.NoError(t, f.notes.Delete(ctx, noteID))
	_, err = f.svc.Redeem(ctx, sharelinks.Redeemer{ID: "u"}, link.Token)
	assert.ErrorIs(t, err, sharelinks.ErrNoteNotFound)
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sharelinks.Policy{})
	link, err := f.svc.Issue(ctx, editorID, noteID, sharelinks.IssueRequest{Level: "view"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Revoke(ctx, viewerID, noteID, link.LinkID), sharelinks.ErrRevokeForbidden)
	assert.ErrorIs(t, f.svc.Revoke(ctx, ownerID, "other-note", link.LinkID), sharelinks.ErrLinkNotFound)

	require.NoError(t, f.svc.Revoke(ctx, editorID, noteID, link.LinkID))
	require.NoError(t, f.svc.Revoke(ctx, ownerID, noteID, link.LinkID), "revoking twice is fine")

	_, err = f.svc.Redeem(ctx, sharelinks.Redeemer{ID: "u"}, link.Token)
	assert.ErrorIs(t, err, sharelinks.ErrLinkNotFound)
}

func TestRevokeIssuedBy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sharelinks.Policy{})

	mine, err := f.svc.Issue(ctx, editorID, noteID, sharelinks.IssueRequest{Level: "edit"})
	require.NoError(t, err)
	already, err := f.svc.Issue(ctx, editorID, noteID, sharelinks.IssueRequest{Level: "view"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Revoke(ctx, editorID, noteID, already.LinkID))
	owners, err := f.svc.Issue(ctx, ownerID, noteID, sharelinks.IssueRequest{Level: "view"})
	require.NoError(t, err)

	n, err := f.svc.RevokeIssuedBy(ctx, noteID, editorID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.svc.Redeem(ctx, sharelinks.Redeemer{ID: editorID}, mine.Token)
	assert.ErrorIs(t, err, sharelinks.ErrLinkNotFound)
	_, err = f.svc.Redeem(ctx, sharelinks.Redeemer{ID: "guest"}, owners.Token)
	assert.NoError(t, err, "links issued by others stay live")

	n, err = f.svc.RevokeIssuedBy(ctx, noteID, "nobody")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListAndSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sharelinks.Policy{MaxTTL: 48 * time.Hour})

	_, err := f.svc.Issue(ctx, ownerID, noteID, sharelinks.IssueRequest{Level: "view", TTLHours: intPtr(1)})
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, ownerID, noteID, sharelinks.IssueRequest{Level: "edit"})
	require.NoError(t, err)

	links, err := f.svc.List(ctx, editorID, noteID)
	require.NoError(t, err)
	assert.Len(t, links, 2)

	_, err = f.svc.List(ctx, viewerID, noteID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	f.now = f.now.Add(2 * time.Hour)
	removed, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	deleted, err := f.svc.DeleteByNote(ctx, noteID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	links, err = f.svc.List(ctx, ownerID, noteID)
	require.NoError(t, err)
	assert.Empty(t, links)
}
