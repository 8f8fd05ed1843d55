// Package favorites owns the client-side favorites collection: an
// in-memory view updated optimistically, reconciled against server truth
// after every mutation, and mirrored into the local snapshot cache for
// offline rendering.
package favorites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/collabiora/companion/internal/cache"
	"github.com/collabiora/companion/internal/identity"
	"github.com/collabiora/companion/internal/notify"
	"github.com/collabiora/companion/internal/types"
)

// Backend is the slice of the API client the store needs.
type Backend interface {
	Favorites(ctx context.Context, userID string) ([]types.FavoriteEntry, error)
	AddFavorite(ctx context.Context, userID string, kind types.FavoriteKind, item types.Item) error
	RemoveFavorite(ctx context.Context, userID string, kind types.FavoriteKind, identity string) error
}

var (
	// ErrNotAuthenticated rejects a toggle before any state change. Distinct
	// from a network failure: nothing was applied, nothing rolls back.
	ErrNotAuthenticated = errors.New("favorites: not authenticated")

	// ErrNoIdentity means no identifier or display field was populated, so
	// no deduplication key exists to toggle against.
	ErrNoIdentity = errors.New("favorites: item has no resolvable identity")
)

// Store coordinates the favorites collection for one user. A single view
// instance owns it; the mutex exists because commands and the watch
// daemon may touch it from different goroutines.
type Store struct {
	backend  Backend
	userID   string
	notifier notify.Notifier
	logger   *zap.Logger
	cacheDB  *sql.DB // optional snapshot mirror

	mu      sync.Mutex
	entries []types.FavoriteEntry
	pending map[string]struct{}
}

// NewStore builds a store for userID. cacheDB may be nil to skip the
// snapshot mirror.
func NewStore(backend Backend, userID string, notifier notify.Notifier, cacheDB *sql.DB, logger *zap.Logger) *Store {
	return &Store{
		backend:  backend,
		userID:   userID,
		notifier: notifier,
		logger:   logger,
		cacheDB:  cacheDB,
		pending:  map[string]struct{}{},
	}
}

// Entries returns a copy of the current collection.
func (s *Store) Entries() []types.FavoriteEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.FavoriteEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// IsFavorite reports whether item is currently favorited under kind,
// using the same matching predicate a toggle would.
func (s *Store) IsFavorite(kind types.FavoriteKind, item types.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(kind, item) >= 0
}

// Refresh replaces the collection with server truth and mirrors it into
// the snapshot cache. A failed fetch leaves the previous collection in
// place and only logs: background reads never block the view.
func (s *Store) Refresh(ctx context.Context) error {
	fresh, err := s.backend.Favorites(ctx, s.userID)
	if err != nil {
		s.logger.Warn("favorites refresh failed", zap.Error(err))
		return err
	}
	s.replace(fresh)
	return nil
}

func (s *Store) replace(fresh []types.FavoriteEntry) {
	s.mu.Lock()
	s.entries = fresh
	s.mu.Unlock()

	if s.cacheDB != nil {
		if err := cache.ReplaceAll(s.cacheDB, s.userID, fresh); err != nil {
			s.logger.Warn("favorites snapshot mirror failed", zap.Error(err))
		}
	}
}

// findLocked returns the index of the entry matching (kind, item), -1
// when absent. Callers hold s.mu.
func (s *Store) findLocked(kind types.FavoriteKind, item types.Item) int {
	for i, entry := range s.entries {
		if identity.Matches(entry, kind, item) {
			return i
		}
	}
	return -1
}

func pendingKey(kind types.FavoriteKind, id string) string {
	return fmt.Sprintf("%s/%s", kind, id)
}
