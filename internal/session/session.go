// Package session owns the locally persisted client state: the logged-in
// session object, the profile-change signature, and per-user
// verification-email timestamps. It is the single process-wide context
// object for this state; callers inject a *Store instead of reading
// ambient files inline. Loaded once at startup, cleared at logout.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/collabiora/companion/internal/types"
)

// ErrNotAuthenticated is returned by operations that require a session.
var ErrNotAuthenticated = errors.New("not logged in")

// Store holds the current session and its on-disk location.
type Store struct {
	stateDir string

	mu       sync.Mutex
	current  *types.Session
	lastSent map[string]int64 // user id -> unix seconds of last verification mail
}

// Open reads session state from stateDir, tolerating absence.
func Open(stateDir string) (*Store, error) {
	s := &Store{stateDir: stateDir, lastSent: map[string]int64{}}

	var sess types.Session
	ok, err := readJSON(sessionPath(stateDir), &sess)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if ok {
		s.current = &sess
	}

	var sent map[string]int64
	ok, err = readJSON(lastSentPath(stateDir), &sent)
	if err != nil {
		return nil, fmt.Errorf("read verification timestamps: %w", err)
	}
	if ok && sent != nil {
		s.lastSent = sent
	}
	return s, nil
}

// Current returns the active session, or ErrNotAuthenticated.
func (s *Store) Current() (types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return types.Session{}, ErrNotAuthenticated
	}
	return *s.current, nil
}

// Save replaces the active session and persists it.
func (s *Store) Save(sess types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &sess
	return writeJSONAtomic(sessionPath(s.stateDir), sess)
}

// Clear wipes the session at logout. Verification timestamps survive a
// logout so resend rate hints still apply to the next login.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	return removeIfExists(sessionPath(s.stateDir))
}

// SetEmailVerified flips the verified flag on the stored session.
// Idempotent: bus consumers may apply it more than once.
func (s *Store) SetEmailVerified(verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNotAuthenticated
	}
	if s.current.User.EmailVerified == verified {
		return nil
	}
	s.current.User.EmailVerified = verified
	return writeJSONAtomic(sessionPath(s.stateDir), *s.current)
}

// UpdateUser replaces the profile portion of the session, refreshing the
// profile-change signature used for cache invalidation heuristics.
func (s *Store) UpdateUser(user types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNotAuthenticated
	}
	s.current.User = user
	s.current.ProfileSignature = ProfileSignature(user)
	return writeJSONAtomic(sessionPath(s.stateDir), *s.current)
}

// LastVerificationSent returns when a verification mail was last sent for
// userID, zero when never.
func (s *Store) LastVerificationSent(userID string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.lastSent[userID]
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// MarkVerificationSent records a verification mail send for userID.
func (s *Store) MarkVerificationSent(userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSent[userID] = at.Unix()
	return writeJSONAtomic(lastSentPath(s.stateDir), s.lastSent)
}

// ProfileSignature derives the cache-invalidation signature for a profile.
func ProfileSignature(user types.User) string {
	return fmt.Sprintf("%s|%s|%s|%t", user.ID, user.Name, user.ORCID, user.EmailVerified)
}

// TokenExpiry parses the session token's exp claim without verifying the
// signature. Verification happens server-side; this is only for local
// staleness display. Returns zero time when the token has no usable exp.
func TokenExpiry(token string) time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
