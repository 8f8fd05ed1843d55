package verify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ResendCooldown is the client-side floor between verification emails for
// one user. The backend enforces its own limit too; this just avoids
// burning a request that is certain to be rejected.
const ResendCooldown = 60 * time.Second

// ResendTracker persists when a verification mail was last sent per user.
type ResendTracker interface {
	LastVerificationSent(userID string) time.Time
	MarkVerificationSent(userID string, at time.Time) error
}

// ErrResendCooldown reports how long the user still has to wait.
type ErrResendCooldown struct {
	Remaining time.Duration
}

func (e *ErrResendCooldown) Error() string {
	return fmt.Sprintf("verification email already sent, retry in %s", e.Remaining.Round(time.Second))
}

// Resend asks the backend for a fresh verification email, honoring the
// local cooldown for this machine's user.
func (m *Machine) Resend(ctx context.Context, tracker ResendTracker) error {
	if tracker != nil {
		if last := tracker.LastVerificationSent(m.user.ID); !last.IsZero() {
			if elapsed := time.Since(last); elapsed < ResendCooldown {
				return &ErrResendCooldown{Remaining: ResendCooldown - elapsed}
			}
		}
	}

	if err := m.backend.SendVerificationEmail(ctx); err != nil {
		return err
	}
	if tracker != nil {
		if err := tracker.MarkVerificationSent(m.user.ID, time.Now()); err != nil {
			m.logger.Warn("recording verification send failed", zap.Error(err))
		}
	}
	return nil
}
