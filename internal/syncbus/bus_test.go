package syncbus

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/collabiora/companion/internal/types"
)

func waitFor(t *testing.T, ch <-chan types.SyncMessage) types.SyncMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sync message")
		return types.SyncMessage{}
	}
}

func collector() (Handler, <-chan types.SyncMessage) {
	ch := make(chan types.SyncMessage, 16)
	return func(msgType string, data map[string]any) {
		ch <- types.SyncMessage{Type: msgType, Data: data}
	}, ch
}

func TestChannelTransportFanOut(t *testing.T) {
	registry := &processRegistry{members: map[int]*ChannelTransport{}}
	a := newChannelTransport(registry)
	b := newChannelTransport(registry)
	defer a.Close()
	defer b.Close()

	handler, received := collector()
	cancel, err := b.Subscribe(handler)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, a.Publish(types.SyncMessage{Type: types.SyncEmailVerified, Data: map[string]any{"user": "u1"}}))

	msg := waitFor(t, received)
	assert.Equal(t, types.SyncEmailVerified, msg.Type)
	assert.Equal(t, "u1", msg.Data["user"])
}

func TestChannelTransportNoSelfDelivery(t *testing.T) {
	registry := &processRegistry{members: map[int]*ChannelTransport{}}
	a := newChannelTransport(registry)
	defer a.Close()

	handler, received := collector()
	cancel, err := a.Subscribe(handler)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, a.Publish(types.SyncMessage{Type: types.SyncUserUpdated}))

	select {
	case <-received:
		t.Fatal("publisher heard its own message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChannelTransportCancelStopsDelivery(t *testing.T) {
	registry := &processRegistry{members: map[int]*ChannelTransport{}}
	a := newChannelTransport(registry)
	b := newChannelTransport(registry)
	defer a.Close()
	defer b.Close()

	handler, received := collector()
	cancel, err := b.Subscribe(handler)
	require.NoError(t, err)

	cancel()
	cancel() // safe to call twice

	require.NoError(t, a.Publish(types.SyncMessage{Type: types.SyncUserUpdated}))
	select {
	case <-received:
		t.Fatal("canceled subscriber still received a message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStorageTransportCrossContext(t *testing.T) {
	dir := t.TempDir()
	logger := zap.NewNop()

	publisher, err := NewStorageTransport(dir, logger)
	require.NoError(t, err)
	defer publisher.Close()

	subscriber, err := NewStorageTransport(dir, logger)
	require.NoError(t, err)
	defer subscriber.Close()

	handler, received := collector()
	cancel, err := subscriber.Subscribe(handler)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, publisher.Publish(types.SyncMessage{
		Type:      types.SyncEmailVerified,
		Data:      map[string]any{"user": "u1"},
		Timestamp: time.Now().UnixMilli(),
	}))

	msg := waitFor(t, received)
	assert.Equal(t, types.SyncEmailVerified, msg.Type)
	assert.Equal(t, "u1", msg.Data["user"])
}

func TestStorageTransportSkipsOwnWrites(t *testing.T) {
	dir := t.TempDir()
	transport, err := NewStorageTransport(dir, zap.NewNop())
	require.NoError(t, err)
	defer transport.Close()

	handler, received := collector()
	cancel, err := transport.Subscribe(handler)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, transport.Publish(types.SyncMessage{Type: types.SyncUserUpdated, Timestamp: time.Now().UnixMilli()}))

	select {
	case <-received:
		t.Fatal("transport heard its own drop")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStorageTransportCleansDropFiles(t *testing.T) {
	dir := t.TempDir()
	transport, err := NewStorageTransport(dir, zap.NewNop())
	require.NoError(t, err)
	defer transport.Close()

	require.NoError(t, transport.Publish(types.SyncMessage{Type: types.SyncUserUpdated, Timestamp: time.Now().UnixMilli()}))

	dropDir := filepath.Join(dir, dropDirName)
	deadline := time.Now().Add(2 * time.Second)
	for {
		entries, err := os.ReadDir(dropDir)
		require.NoError(t, err)
		if len(entries) == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("drop files not cleaned up: %d remaining", len(entries))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestBusBroadcastReachesSiblingBus(t *testing.T) {
	dir := t.TempDir()
	logger := zap.NewNop()

	a, err := New(dir, logger)
	require.NoError(t, err)
	defer a.Close()

	b, err := New(dir, logger)
	require.NoError(t, err)
	defer b.Close()

	var mu sync.Mutex
	var got []types.SyncMessage
	cleanup, err := b.Listen(func(msgType string, data map[string]any) {
		mu.Lock()
		got = append(got, types.SyncMessage{Type: msgType, Data: data})
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, a.Broadcast(types.SyncEmailVerified, map[string]any{"user": "u1"}))

	// Both transports span these two buses, so the message may arrive on
	// each: tolerate duplicates, require at least one delivery.
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no delivery to sibling bus")
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, msg := range got {
		assert.Equal(t, types.SyncEmailVerified, msg.Type)
		assert.Equal(t, "u1", msg.Data["user"])
	}
}

func TestBusCleanupIdempotent(t *testing.T) {
	bus, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer bus.Close()

	cleanup, err := bus.Listen(func(string, map[string]any) {})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		cleanup()
		cleanup()
	})
}
