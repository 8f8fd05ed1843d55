package favorites

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/collabiora/companion/internal/identity"
	"github.com/collabiora/companion/internal/notify"
	"github.com/collabiora/companion/internal/types"
)

// fakeBackend mimics the favorites endpoints against an in-memory
// server-side collection.
type fakeBackend struct {
	mu          sync.Mutex
	server      []types.FavoriteEntry
	addErr      error
	removeErr   error
	listErr     error
	addCalls    int
	removeCalls int
	block       chan struct{} // when set, mutations wait here
}

func (f *fakeBackend) Favorites(ctx context.Context, userID string) ([]types.FavoriteEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]types.FavoriteEntry, len(f.server))
	copy(out, f.server)
	return out, nil
}

func (f *fakeBackend) AddFavorite(ctx context.Context, userID string, kind types.FavoriteKind, item types.Item) error {
	f.mu.Lock()
	f.addCalls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.server = append(f.server, types.FavoriteEntry{
		Kind:     kind,
		Identity: identity.Resolve(kind, item),
		SavedAt:  time.Now().UnixMilli(),
		Payload:  item,
	})
	return nil
}

func (f *fakeBackend) RemoveFavorite(ctx context.Context, userID string, kind types.FavoriteKind, id string) error {
	f.mu.Lock()
	f.removeCalls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	kept := f.server[:0]
	for _, entry := range f.server {
		if entry.Kind == kind && entry.Identity == id {
			continue
		}
		kept = append(kept, entry)
	}
	f.server = kept
	return nil
}

func newTestStore(backend *fakeBackend) (*Store, *notify.Recorder) {
	recorder := &notify.Recorder{}
	return NewStore(backend, "u1", recorder, nil, zap.NewNop()), recorder
}

func TestToggleAddsAndReconciles(t *testing.T) {
	backend := &fakeBackend{}
	store, recorder := newTestStore(backend)

	item := types.Item{PMID: "123", Title: "Gene therapy outcomes"}
	res, err := store.Toggle(context.Background(), types.KindPublication, item)
	require.NoError(t, err)
	assert.Equal(t, ActionAdded, res.Action)
	assert.Equal(t, "123", res.Identity)
	assert.False(t, res.RolledBack)

	// Collection was replaced with server truth after the mutation.
	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "123", entries[0].Identity)
	assert.Empty(t, entries[0].LocalID, "temporary local id must not survive reconciliation")

	assert.Len(t, recorder.Successes, 1)
	assert.Empty(t, recorder.Failures)
	assert.Empty(t, store.pending)
}

func TestToggleRemovesExisting(t *testing.T) {
	backend := &fakeBackend{}
	store, recorder := newTestStore(backend)

	item := types.Item{NCTID: "NCT001", Title: "Trial A"}
	_, err := store.Toggle(context.Background(), types.KindTrial, item)
	require.NoError(t, err)

	res, err := store.Toggle(context.Background(), types.KindTrial, item)
	require.NoError(t, err)
	assert.Equal(t, ActionRemoved, res.Action)

	assert.Empty(t, store.Entries())
	// A later authoritative refresh never resurrects the removed entry.
	require.NoError(t, store.Refresh(context.Background()))
	assert.Empty(t, store.Entries())
	assert.Len(t, recorder.Successes, 2)
}

func TestToggleRollsBackOnWriteFailure(t *testing.T) {
	backend := &fakeBackend{addErr: errors.New("network down")}
	store, recorder := newTestStore(backend)

	before := store.Entries()
	item := types.Item{PMID: "123", Title: "X"}

	res, err := store.Toggle(context.Background(), types.KindPublication, item)
	require.Error(t, err)
	assert.Equal(t, ActionAdded, res.Action)
	assert.True(t, res.RolledBack)

	// Collection content-equal to the pre-toggle snapshot.
	assert.Equal(t, before, store.Entries())
	assert.False(t, store.IsFavorite(types.KindPublication, item))

	assert.Len(t, recorder.Failures, 1)
	assert.Empty(t, recorder.Successes)
	assert.Empty(t, store.pending, "pending entry cleared on failure too")
}

func TestRapidTogglesIssueOneMutation(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	store, _ := newTestStore(backend)

	item := types.Item{ORCID: "0000-0001", Name: "Dr. Smith"}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = store.Toggle(context.Background(), types.KindExpert, item)
	}()

	// Wait for the first toggle to reach the network phase.
	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.addCalls == 1
	}, 2*time.Second, 5*time.Millisecond)

	// Second toggle on the same identity is dropped, not queued.
	res, err := store.Toggle(context.Background(), types.KindExpert, item)
	require.NoError(t, err)
	assert.Equal(t, ActionDropped, res.Action)

	close(backend.block)
	<-done

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 1, backend.addCalls)
	assert.Equal(t, 0, backend.removeCalls)
}

func TestNameOnlyExpertToggleTwiceLeavesNothing(t *testing.T) {
	backend := &fakeBackend{}
	store, _ := newTestStore(backend)

	item := types.Item{Name: "Dr. Smith"}

	res, err := store.Toggle(context.Background(), types.KindExpert, item)
	require.NoError(t, err)
	assert.Equal(t, ActionAdded, res.Action)

	res, err = store.Toggle(context.Background(), types.KindExpert, item)
	require.NoError(t, err)
	assert.Equal(t, ActionRemoved, res.Action)

	for _, entry := range store.Entries() {
		assert.NotEqual(t, "dr. smith", entry.Identity)
	}
	assert.Empty(t, store.Entries())
}

func TestToggleRejectsUnauthenticated(t *testing.T) {
	backend := &fakeBackend{}
	recorder := &notify.Recorder{}
	store := NewStore(backend, "", recorder, nil, zap.NewNop())

	_, err := store.Toggle(context.Background(), types.KindExpert, types.Item{Name: "Dr. Smith"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, store.Entries())
	assert.Equal(t, 0, backend.addCalls)
	assert.Len(t, recorder.Failures, 1)
}

func TestToggleRejectsUnknownKind(t *testing.T) {
	store, _ := newTestStore(&fakeBackend{})
	_, err := store.Toggle(context.Background(), "community", types.Item{ID: "1"})
	assert.Error(t, err)
}

func TestToggleRejectsEmptyItem(t *testing.T) {
	backend := &fakeBackend{}
	store, recorder := newTestStore(backend)

	_, err := store.Toggle(context.Background(), types.KindPublication, types.Item{})
	assert.ErrorIs(t, err, ErrNoIdentity)
	assert.Equal(t, 0, backend.addCalls)
	assert.Len(t, recorder.Failures, 1)
}

func TestOfflineFavoriteScenario(t *testing.T) {
	// User favorites {pmid: "123", title: "X"} while offline: the UI shows
	// it favorited immediately, the request fails, state reverts, one
	// failure notification fires.
	backend := &fakeBackend{addErr: errors.New("offline"), block: make(chan struct{}, 1)}
	store, recorder := newTestStore(backend)

	item := types.Item{PMID: "123", Title: "X"}

	observed := make(chan bool, 1)
	go func() {
		// Observe the optimistic state while the request is in flight.
		observed <- func() bool {
			deadline := time.Now().Add(time.Second)
			for time.Now().Before(deadline) {
				if store.IsFavorite(types.KindPublication, item) {
					return true
				}
				time.Sleep(time.Millisecond)
			}
			return false
		}()
		backend.block <- struct{}{}
	}()

	_, err := store.Toggle(context.Background(), types.KindPublication, item)
	require.Error(t, err)

	assert.True(t, <-observed, "optimistic state was visible during flight")
	assert.False(t, store.IsFavorite(types.KindPublication, item))
	assert.Len(t, recorder.Failures, 1)
	assert.Empty(t, recorder.Successes)
}

func TestSuccessfulMutationSurvivesFailedRefresh(t *testing.T) {
	backend := &fakeBackend{}
	store, recorder := newTestStore(backend)

	item := types.Item{PMID: "123", Title: "X"}
	_, err := store.Toggle(context.Background(), types.KindPublication, item)
	require.NoError(t, err)

	// Refresh now fails; remove still succeeds and keeps optimistic state.
	backend.mu.Lock()
	backend.listErr = errors.New("read failed")
	backend.mu.Unlock()

	res, err := store.Toggle(context.Background(), types.KindPublication, item)
	require.NoError(t, err)
	assert.Equal(t, ActionRemoved, res.Action)
	assert.Empty(t, store.Entries())
	assert.Len(t, recorder.Successes, 2)
}
