// Package syncbus propagates account-lifecycle events between every
// running client context on the machine: goroutine-level subscribers in
// the same process and sibling processes sharing a state directory. Two
// transports sit behind one facade, an in-process broadcast registry and
// a write-then-delete file drop observed via fsnotify, so a subscriber
// hears a message no matter which transport a publisher reached it by.
//
// Delivery is at-least-once and unordered: when both transports span the
// same pair of contexts the same logical event can arrive twice, so
// consumers apply messages idempotently.
package syncbus

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/collabiora/companion/internal/types"
)

// Handler receives one sync message per delivery.
type Handler func(msgType string, data map[string]any)

var errClosed = errors.New("syncbus: transport closed")

// Transport is one delivery channel for sync messages.
type Transport interface {
	Publish(msg types.SyncMessage) error
	Subscribe(h Handler) (func(), error)
	Close() error
}

// Bus composes the channel and storage transports behind one
// publish/subscribe surface.
type Bus struct {
	transports []Transport
	logger     *zap.Logger
}

// New builds a bus publishing through the in-process registry and the
// file drop under stateDir.
func New(stateDir string, logger *zap.Logger) (*Bus, error) {
	storage, err := NewStorageTransport(stateDir, logger)
	if err != nil {
		return nil, err
	}
	return &Bus{
		transports: []Transport{NewChannelTransport(), storage},
		logger:     logger,
	}, nil
}

// Broadcast publishes a message on every transport. A transport failure
// is logged and tolerated as long as at least one transport accepted the
// message; the error is returned only when all of them failed.
func (b *Bus) Broadcast(msgType string, data map[string]any) error {
	msg := types.SyncMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}

	var errs []error
	for _, t := range b.transports {
		if err := t.Publish(msg); err != nil {
			b.logger.Warn("sync broadcast failed on transport", zap.String("type", msgType), zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) == len(b.transports) {
		return errors.Join(errs...)
	}
	return nil
}

// Listen registers h on every transport and returns a single cleanup
// function covering all of them. The cleanup is safe to call more than
// once.
func (b *Bus) Listen(h Handler) (func(), error) {
	var cancels []func()
	for _, t := range b.transports {
		cancel, err := t.Subscribe(h)
		if err != nil {
			for _, c := range cancels {
				c()
			}
			return nil, err
		}
		cancels = append(cancels, cancel)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, c := range cancels {
				c()
			}
		})
	}, nil
}

// Close shuts down all transports.
func (b *Bus) Close() error {
	var errs []error
	for _, t := range b.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
