package session

import (
	"context"
	"testing"
	"time"

	"github.com/HendryAvila/aluconfig/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_FanOut(t *testing.T) {
	hub := NewHub(logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := hub.Subscribe(ctx, "s1")
	require.NoError(t, err)
	b, err := hub.Subscribe(ctx, "s1")
	require.NoError(t, err)
	other, err := hub.Subscribe(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Watchers("s1"))

	require.NoError(t, hub.Publish(ctx, Session{ID: "s1", Status: StatusActive}))

	for _, ch := range []<-chan Session{a, b} {
		select {
		case snap := <-ch:
			assert.Equal(t, "s1", snap.ID)
		case <-time.After(time.Second):
			t.Fatal("snapshot not delivered")
		}
	}
	select {
	case <-other:
		t.Fatal("other session must not receive s1 snapshots")
	default:
	}
}

func TestHub_UnsubscribeOnCancel(t *testing.T) {
	hub := NewHub(logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := hub.Subscribe(ctx, "s1")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel closed")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	assert.Equal(t, 0, hub.Watchers("s1"))
}

func TestHub_SlowWatcherDoesNotBlock(t *testing.T) {
	hub := NewHub(logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := hub.Subscribe(ctx, "s1")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			_ = hub.Publish(ctx, Session{ID: "s1"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full watcher")
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestDecodeSnapshot(t *testing.T) {
	snap, err := decodeSnapshot(`{"id":"s1","status":"active","selection":{"category":"porta","leaf_count":2}}`)
	require.NoError(t, err)
	assert.Equal(t, "s1", snap.ID)
	v, ok := snap.Selection.Get("leaf_count")
	assert.True(t, ok)
	assert.Equal(t, "2", string(v))

	_, err = decodeSnapshot("not json")
	assert.Error(t, err)
}
