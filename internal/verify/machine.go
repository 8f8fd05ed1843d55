// Package verify runs the email-verification flow: token redemption, OTP
// entry, fixed-interval status polling, and convergence with sibling
// contexts through the sync bus.
package verify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/collabiora/companion/internal/types"
)

// State of the verification flow.
type State string

const (
	StateIdle      State = "idle"
	StateVerifying State = "verifying"
	StateSuccess   State = "success" // terminal
	StateError     State = "error"   // re-enterable: the user may retry
)

// Backend is the slice of the API client the machine needs.
type Backend interface {
	CheckEmailStatus(ctx context.Context) (types.VerificationStatus, error)
	VerifyOTP(ctx context.Context, code string) error
	VerifyEmailToken(ctx context.Context, token string) error
	SendVerificationEmail(ctx context.Context) error
}

// Broadcaster publishes sync messages so sibling contexts converge.
type Broadcaster interface {
	Broadcast(msgType string, data map[string]any) error
}

// SessionUpdater applies the verified flag to persisted session state.
type SessionUpdater interface {
	SetEmailVerified(verified bool) error
}

// Machine drives one user's verification flow.
type Machine struct {
	backend  Backend
	bus      Broadcaster
	sessions SessionUpdater
	user     types.User
	logger   *zap.Logger

	mu      sync.Mutex
	state   State
	lastErr string
}

// NewMachine starts in the idle state. bus and sessions may be nil when
// the caller has neither to update.
func NewMachine(backend Backend, bus Broadcaster, sessions SessionUpdater, user types.User, logger *zap.Logger) *Machine {
	return &Machine{
		backend:  backend,
		bus:      bus,
		sessions: sessions,
		user:     user,
		logger:   logger,
		state:    StateIdle,
	}
}

// State returns the current state and, in the error state, the
// user-facing message.
func (m *Machine) State() (State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.lastErr
}

// SubmitToken redeems a deep-link verification token.
func (m *Machine) SubmitToken(ctx context.Context, token string) error {
	return m.submit(func() error { return m.backend.VerifyEmailToken(ctx, token) })
}

// SubmitOTP verifies a one-time code.
func (m *Machine) SubmitOTP(ctx context.Context, code string) error {
	return m.submit(func() error { return m.backend.VerifyOTP(ctx, code) })
}

func (m *Machine) submit(call func() error) error {
	m.mu.Lock()
	if m.state == StateSuccess {
		m.mu.Unlock()
		return nil
	}
	m.state = StateVerifying
	m.lastErr = ""
	m.mu.Unlock()

	if err := call(); err != nil {
		m.mu.Lock()
		m.state = StateError
		m.lastErr = MapVerificationError(err)
		m.mu.Unlock()
		return err
	}

	m.markSuccess(true)
	return nil
}

// Poll checks the verification status at a fixed interval until it turns
// verified, the machine reaches success some other way, or ctx ends.
// Status-read failures only log; polling continues.
func (m *Machine) Poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if state, _ := m.State(); state == StateSuccess {
				return
			}
			status, err := m.backend.CheckEmailStatus(ctx)
			if err != nil {
				m.logger.Warn("email status check failed", zap.Error(err))
				continue
			}
			if status.Verified {
				m.markSuccess(true)
				return
			}
		}
	}
}

// ExternalSuccess applies a success transition fed purely by a bus
// message from another context: no network call, no re-broadcast.
// Idempotent.
func (m *Machine) ExternalSuccess() {
	m.markSuccess(false)
}

func (m *Machine) markSuccess(broadcast bool) {
	m.mu.Lock()
	if m.state == StateSuccess {
		m.mu.Unlock()
		return
	}
	m.state = StateSuccess
	m.lastErr = ""
	m.mu.Unlock()

	if m.sessions != nil {
		if err := m.sessions.SetEmailVerified(true); err != nil {
			m.logger.Warn("session update failed", zap.Error(err))
		}
	}
	if broadcast && m.bus != nil {
		if err := m.bus.Broadcast(types.SyncEmailVerified, map[string]any{
			"user":  m.user.ID,
			"email": m.user.Email,
		}); err != nil {
			m.logger.Warn("verification broadcast failed", zap.Error(err))
		}
	}
}
