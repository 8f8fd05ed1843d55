// Package notify surfaces user-facing action results: the toast analog.
package notify

import (
	"fmt"
	"io"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Notifier delivers exactly the notification it is handed; contracts like
// "one notification per toggle" belong to callers.
type Notifier interface {
	Success(title, body string)
	Failure(title, body string)
}

// Desktop sends system notifications via beeep, falling back to the
// provided writer when the desktop environment rejects them.
type Desktop struct {
	fallback io.Writer
	logger   *zap.Logger
}

// NewDesktop builds a Desktop notifier. fallback is typically stderr.
func NewDesktop(fallback io.Writer, logger *zap.Logger) *Desktop {
	return &Desktop{fallback: fallback, logger: logger}
}

func (d *Desktop) Success(title, body string) {
	if err := beeep.Notify(title, body, ""); err != nil {
		d.logger.Debug("desktop notification failed", zap.Error(err))
		fmt.Fprintf(d.fallback, "%s: %s\n", title, body)
	}
}

func (d *Desktop) Failure(title, body string) {
	if err := beeep.Alert(title, body, ""); err != nil {
		d.logger.Debug("desktop alert failed", zap.Error(err))
		fmt.Fprintf(d.fallback, "%s: %s\n", title, body)
	}
}

// Console writes notifications to a writer only. Used in JSON mode and
// wherever desktop notifications are unwanted.
type Console struct {
	Out io.Writer
}

func (c *Console) Success(title, body string) {
	fmt.Fprintf(c.Out, "%s: %s\n", title, body)
}

func (c *Console) Failure(title, body string) {
	fmt.Fprintf(c.Out, "Error - %s: %s\n", title, body)
}

// Recorder captures notifications for tests.
type Recorder struct {
	Successes []string
	Failures  []string
}

func (r *Recorder) Success(title, body string) {
	r.Successes = append(r.Successes, title+": "+body)
}

func (r *Recorder) Failure(title, body string) {
	r.Failures = append(r.Failures, title+": "+body)
}
