package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestHubDeliversToMatchingSubscribers(t *testing.T) {
	hub := NewHub(4, nil)
	subs := hub.Subscribe(TableSubmissions)
	works := hub.Subscribe(TableApprovedWorks)
	all := hub.Subscribe()

	require.NoError(t, hub.Publish(context.Background(), NewEvent(TableSubmissions, ActionInsert, "sub-1")))

	ev := receive(t, subs)
	assert.Equal(t, "sub-1", ev.RecordID)
	assert.Equal(t, TableSubmissions, receive(t, all).Table)
	assert.Empty(t, works.C())
}

func TestHubPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	hub := NewHub(1, nil)
	sub := hub.Subscribe(TableApprovedWorks)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = hub.Publish(context.Background(), NewEvent(TableApprovedWorks, ActionUpdate, ""))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
	assert.Len(t, sub.C(), 1)
}

func TestHubOverflowKeepsEveryTable(t *testing.T) {
	hub := NewHub(2, nil)
	defer hub.Close()
	sub := hub.Subscribe(TableSubmissions, TableApprovedWorks)

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, NewEvent(TableSubmissions, ActionInsert, "a")))
	require.NoError(t, hub.Publish(ctx, NewEvent(TableSubmissions, ActionInsert, "b")))
	require.NoError(t, hub.Publish(ctx, NewEvent(TableApprovedWorks, ActionUpdate, "c")))
	require.NoError(t, hub.Publish(ctx, NewEvent(TableApprovedWorks, ActionUpdate, "d")))

	seen := map[string]int{}
	for i := 0; i < 3; i++ {
		ev := receive(t, sub)
		seen[ev.Table]++
		if ev.Table == TableApprovedWorks {
			assert.Equal(t, ActionRefresh, ev.Action)
		}
	}
	assert.Equal(t, map[string]int{TableSubmissions: 2, TableApprovedWorks: 1}, seen)

	select {
	case ev := <-sub.C():
		t.Fatalf("unexpected extra event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriptionUnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(1, nil)
	sub := hub.Subscribe(TableSubmissions)
	require.Equal(t, 1, hub.Len())

	sub.Unsubscribe()
	sub.Unsubscribe()

	assert.Equal(t, 0, hub.Len())
	_, ok := <-sub.C()
	assert.False(t, ok)
	require.NoError(t, hub.Publish(context.Background(), NewEvent(TableSubmissions, ActionInsert, "")))
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub(1, nil)
	sub := hub.Subscribe()
	hub.Close()
	hub.Close()

	_, ok := <-sub.C()
	assert.False(t, ok)

	late := hub.Subscribe()
	_, ok = <-late.C()
	assert.False(t, ok)
	late.Unsubscribe()
}
