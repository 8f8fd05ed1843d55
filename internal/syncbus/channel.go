package syncbus

import (
	"sync"

	"github.com/collabiora/companion/internal/types"
)

// processRegistry fans messages out to every channel transport in this
// process. Publishing transports do not hear their own messages, mirroring
// how a posting context is excluded from its own broadcast.
type processRegistry struct {
	mu      sync.Mutex
	nextID  int
	members map[int]*ChannelTransport
}

var defaultRegistry = &processRegistry{members: map[int]*ChannelTransport{}}

func (r *processRegistry) join(t *ChannelTransport) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.members[r.nextID] = t
	return r.nextID
}

func (r *processRegistry) leave(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, id)
}

func (r *processRegistry) publish(from int, msg types.SyncMessage) {
	r.mu.Lock()
	targets := make([]*ChannelTransport, 0, len(r.members))
	for id, member := range r.members {
		if id == from {
			continue
		}
		targets = append(targets, member)
	}
	r.mu.Unlock()

	for _, t := range targets {
		t.deliver(msg)
	}
}

// ChannelTransport delivers messages between subscribers inside one
// process.
type ChannelTransport struct {
	registry *processRegistry
	id       int

	mu       sync.Mutex
	nextSub  int
	handlers map[int]Handler
	closed   bool
}

// NewChannelTransport joins the process-wide registry.
func NewChannelTransport() *ChannelTransport {
	return newChannelTransport(defaultRegistry)
}

func newChannelTransport(registry *processRegistry) *ChannelTransport {
	t := &ChannelTransport{
		registry: registry,
		handlers: map[int]Handler{},
	}
	t.id = registry.join(t)
	return t
}

// Publish fans msg out to every other transport in the process.
func (t *ChannelTransport) Publish(msg types.SyncMessage) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return errClosed
	}
	t.registry.publish(t.id, msg)
	return nil
}

// Subscribe registers h until the returned cancel runs. Cancel is safe to
// call repeatedly.
func (t *ChannelTransport) Subscribe(h Handler) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, errClosed
	}
	t.nextSub++
	id := t.nextSub
	t.handlers[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.handlers, id)
			t.mu.Unlock()
		})
	}, nil
}

// Close detaches the transport from the registry.
func (t *ChannelTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.handlers = map[int]Handler{}
	t.mu.Unlock()

	t.registry.leave(t.id)
	return nil
}

func (t *ChannelTransport) deliver(msg types.SyncMessage) {
	t.mu.Lock()
	handlers := make([]Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		handlers = append(handlers, h)
	}
	t.mu.Unlock()

	for _, h := range handlers {
		h(msg.Type, msg.Data)
	}
}
