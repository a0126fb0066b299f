package events

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/kinview-backend/internal/observability"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
)

var ErrClosed = errors.New("events: bus closed")

type memorySub struct {
	ch   chan Event
	once sync.Once
}

func (s *memorySub) close() { s.once.Do(func() { close(s.ch) }) }

type memoryBus struct {
	log *logger.Logger

	mu     sync.RWMutex
	subs   map[string]map[*memorySub]struct{}
	closed bool
}

// NewMemoryBus delivers events within the process.
func NewMemoryBus(log *logger.Logger) Bus {
	if log == nil {
		log = logger.Nop()
	}
	return &memoryBus{
		log:  log.With("service", "MemoryEventBus"),
		subs: map[string]map[*memorySub]struct{}{},
	}
}

func (b *memoryBus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for s := range b.subs[e.SessionID] {
		select {
		case s.ch <- e:
		default:
			b.log.Warn("event dropped for slow subscriber", "session_id", e.SessionID, "type", e.Type)
			observability.Current().IncEventDropped(e.Type)
		}
	}
	return nil
}

func (b *memoryBus) Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error) {
	s := &memorySub{ch: make(chan Event, subscriberBuffer)}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, nil, ErrClosed
	}
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = map[*memorySub]struct{}{}
	}
	b.subs[sessionID][s] = struct{}{}
	b.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			b.mu.Lock()
			delete(b.subs[sessionID], s)
			if len(b.subs[sessionID]) == 0 {
				delete(b.subs, sessionID)
			}
			b.mu.Unlock()
			s.close()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return s.ch, cancel, nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, set := range b.subs {
		for s := range set {
			s.close()
		}
	}
	b.subs = map[string]map[*memorySub]struct{}{}
	return nil
}
