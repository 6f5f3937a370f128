package notes

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noteflow/internal/services/permissions"
)

func newConnID() ulid.ULID {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
}

func TestHub_ChannelsClosedAfterUnsubscribe(t *testing.T) {
	hub := NewHub(8)
	sub, cancel := hub.Subscribe(newConnID(), "u1")
	require.NotNil(t, sub)

	cancel()
	cancel() // second call is a no-op

	select {
	case <-sub.Done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Done channel should be closed")
	}
	_, ok := <-sub.Ch
	assert.False(t, ok, "event channel should be closed")

	subs, _ := hub.Stats()
	assert.Zero(t, subs)
}

func TestHub_BroadcastReachesOwnerAndGrantees(t *testing.T) {
	hub := NewHub(8)

	owner, cancelOwner := hub.Subscribe(newConnID(), "owner")
	defer cancelOwner()
	viewer, cancelViewer := hub.Subscribe(newConnID(), "viewer")
	defer cancelViewer()
	stranger, cancelStranger := hub.Subscribe(newConnID(), "stranger")
	defer cancelStranger()

	note := &Note{
		ID:    "n1",
		Owner: "owner",
		Permissions: permissions.Record{
			Users: map[string]permissions.Level{"viewer": permissions.View},
		},
	}
	hub.Broadcast(context.Background(), NoteEvent{Type: "updated", Note: note})

	for _, sub := range []*Subscriber{owner, viewer} {
		select {
		case ev := <-sub.Ch:
			assert.Equal(t, "updated", ev.Type)
			assert.Equal(t, "n1", ev.Note.ID)
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("%s should have received the event", sub.UserID)
		}
	}

	select {
	case ev := <-stranger.Ch:
		t.Fatalf("stranger received %v", ev)
	default:
	}
}

func TestHub_ExplicitAudienceWins(t *testing.T) {
	hub := NewHub(8)
	former, cancel := hub.Subscribe(newConnID(), "former-viewer")
	defer cancel()

	note := &Note{ID: "n1", Owner: "owner"}
	hub.Broadcast(context.Background(), NoteEvent{
		Type:     "deleted",
		Note:     note,
		Audience: []string{"owner", "former-viewer", "former-viewer"},
	})

	require.Len(t, former.Ch, 1, "duplicates in the audience are delivered once")
}

func TestHub_DropsWhenOutboxFull(t *testing.T) {
	hub := NewHub(1)
	_, cancel := hub.Subscribe(newConnID(), "owner")
	defer cancel()

	note := &Note{ID: "n1", Owner: "owner"}
	for i := 0; i < 3; i++ {
		hub.Broadcast(context.Background(), NoteEvent{Type: "updated", Note: note})
	}

	subs, dropped := hub.Stats()
	assert.Equal(t, 1, subs)
	assert.Equal(t, uint64(2), dropped)
}

func TestHub_ConcurrentSubscribeBroadcast(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping resource-intensive test in short mode")
	}

	hub := NewHub(256)
	note := &Note{ID: "n1", Owner: "owner"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub, cancel := hub.Subscribe(newConnID(), "owner")
			go func() {
				for range sub.Ch {
				}
			}()
			cancel()
		}()
		go func() {
			defer wg.Done()
			hub.Broadcast(context.Background(), NoteEvent{Type: "updated", Note: note})
		}()
	}
	wg.Wait()

	subs, _ := hub.Stats()
	assert.Zero(t, subs)
}
