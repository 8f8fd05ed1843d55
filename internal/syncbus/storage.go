package syncbus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/collabiora/companion/internal/types"
)

const (
	dropDirName    = "sync"
	dropFilePrefix = "sync-"

	// Published files are removed shortly after writing. Hygiene only:
	// sibling contexts have been notified by the time the delete runs.
	dropCleanupDelay = 100 * time.Millisecond
)

// StorageTransport publishes by dropping a uniquely named JSON file into a
// shared directory and deleting it moments later. Sibling processes watch
// the directory, so the write itself is the notification. This is the
// guaranteed-delivery fallback: it works whether or not any other
// transport does.
type StorageTransport struct {
	dir    string
	logger *zap.Logger

	mu        sync.Mutex
	nextSub   int
	handlers  map[int]Handler
	ownWrites map[string]struct{}
	watcher   *fsnotify.Watcher
	done      chan struct{}
	closed    bool
}

// NewStorageTransport prepares the drop directory under stateDir. The
// watcher starts on first subscribe.
func NewStorageTransport(stateDir string, logger *zap.Logger) (*StorageTransport, error) {
	dir := filepath.Join(stateDir, dropDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &StorageTransport{
		dir:       dir,
		logger:    logger,
		handlers:  map[int]Handler{},
		ownWrites: map[string]struct{}{},
	}, nil
}

// Publish writes msg as a drop file. The name carries the message type, a
// timestamp, and a random suffix so rapid successive broadcasts never
// collide.
func (t *StorageTransport) Publish(msg types.SyncMessage) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errClosed
	}
	name := fmt.Sprintf("%s%s-%d-%s.json", dropFilePrefix, msg.Type, msg.Timestamp, uuid.NewString()[:8])
	t.ownWrites[name] = struct{}{}
	t.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	path := filepath.Join(t.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	time.AfterFunc(dropCleanupDelay, func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			t.logger.Debug("sync drop cleanup failed", zap.String("file", name), zap.Error(err))
		}
		t.mu.Lock()
		delete(t.ownWrites, name)
		t.mu.Unlock()
	})
	return nil
}

// Subscribe registers h for messages dropped by other contexts. The first
// subscriber starts the directory watcher.
func (t *StorageTransport) Subscribe(h Handler) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, errClosed
	}
	if t.watcher == nil {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, err
		}
		if err := watcher.Add(t.dir); err != nil {
			_ = watcher.Close()
			return nil, err
		}
		t.watcher = watcher
		t.done = make(chan struct{})
		go t.watchLoop(watcher, t.done)
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

// Close stops the watcher and drops all subscriptions.
func (t *StorageTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.handlers = map[int]Handler{}
	watcher := t.watcher
	done := t.done
	t.watcher = nil
	t.done = nil
	t.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}

func (t *StorageTransport) watchLoop(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				t.handleDrop(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			t.logger.Debug("sync watcher error", zap.Error(err))
		}
	}
}

func (t *StorageTransport) handleDrop(path string) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, dropFilePrefix) || !strings.HasSuffix(name, ".json") {
		return
	}

	t.mu.Lock()
	_, own := t.ownWrites[name]
	handlers := make([]Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		handlers = append(handlers, h)
	}
	t.mu.Unlock()

	// The publishing context already applied its own change; only sibling
	// contexts need the notification.
	if own || len(handlers) == 0 {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// The publisher may have cleaned the drop up already.
		if !os.IsNotExist(err) {
			t.logger.Debug("sync drop read failed", zap.String("file", name), zap.Error(err))
		}
		return
	}

	var msg types.SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.logger.Debug("sync drop decode failed", zap.String("file", name), zap.Error(err))
		return
	}

	for _, h := range handlers {
		h(msg.Type, msg.Data)
	}
}
