package favorites

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/collabiora/companion/internal/identity"
	"github.com/collabiora/companion/internal/types"
)

// ToggleAction is the decision a toggle made.
type ToggleAction string

const (
	ActionAdded   ToggleAction = "added"
	ActionRemoved ToggleAction = "removed"

	// ActionDropped means an earlier toggle on the same identity was still
	// in flight so this one was ignored, not queued.
	ActionDropped ToggleAction = "dropped"
)

// ToggleResult reports what a toggle did.
type ToggleResult struct {
	Action     ToggleAction
	Identity   string
	RolledBack bool
}

// Toggle flips the favorite state of item under kind. Three phases: apply
// the change to the in-memory collection immediately, submit the matching
// create/delete to the backend, then either re-fetch server truth
// (success) or restore the pre-toggle snapshot (failure). Exactly one
// success or failure notification is emitted per effective invocation;
// a dropped duplicate emits none.
func (s *Store) Toggle(ctx context.Context, kind types.FavoriteKind, item types.Item) (ToggleResult, error) {
	if !types.ValidKind(kind) {
		return ToggleResult{}, fmt.Errorf("favorites: unknown kind %q", kind)
	}
	if s.userID == "" {
		s.notifier.Failure("Favorites", "Sign in to save favorites")
		return ToggleResult{}, ErrNotAuthenticated
	}

	id := identity.Resolve(kind, item)
	if id == "" {
		s.notifier.Failure("Favorites", "This item cannot be saved")
		return ToggleResult{}, ErrNoIdentity
	}
	key := pendingKey(kind, id)

	s.mu.Lock()
	if _, inFlight := s.pending[key]; inFlight {
		s.mu.Unlock()
		return ToggleResult{Action: ActionDropped, Identity: id}, nil
	}

	snapshot := make([]types.FavoriteEntry, len(s.entries))
	copy(snapshot, s.entries)

	var action ToggleAction
	var removedIdentity string
	if idx := s.findLocked(kind, item); idx >= 0 {
		action = ActionRemoved
		removedIdentity = s.entries[idx].Identity
		s.entries = append(s.entries[:idx:idx], s.entries[idx+1:]...)
	} else {
		action = ActionAdded
		s.entries = append(s.entries, types.FavoriteEntry{
			Kind:     kind,
			Identity: id,
			LocalID:  "local-" + uuid.NewString(),
			SavedAt:  time.Now().UnixMilli(),
			Payload:  item,
		})
	}
	s.pending[key] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
	}()

	var err error
	if action == ActionRemoved {
		err = s.backend.RemoveFavorite(ctx, s.userID, kind, removedIdentity)
	} else {
		err = s.backend.AddFavorite(ctx, s.userID, kind, item)
	}
	if err != nil {
		s.mu.Lock()
		s.entries = snapshot
		s.mu.Unlock()
		s.notifier.Failure("Favorites", "Could not update favorites")
		return ToggleResult{Action: action, Identity: id, RolledBack: true}, err
	}

	// Self-heal any optimistic drift: server truth replaces local state.
	// When the read fails the optimistic state stands until the next
	// refresh; the mutation itself already succeeded.
	if fresh, refreshErr := s.backend.Favorites(ctx, s.userID); refreshErr != nil {
		s.logger.Warn("post-toggle refresh failed", zap.Error(refreshErr))
	} else {
		s.replace(fresh)
	}

	if action == ActionRemoved {
		s.notifier.Success("Favorites", "Removed from favorites")
	} else {
		s.notifier.Success("Favorites", "Added to favorites")
	}
	return ToggleResult{Action: action, Identity: id}, nil
}
