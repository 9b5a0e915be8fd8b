// Package events distributes item change events between catalog views.
package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/region-catalog/internal/model"
)

// Handler receives item events. Handlers must not block.
type Handler func(event model.ItemEvent)

// Bus publishes item events to all subscribers.
type Bus interface {
	Publish(ctx context.Context, event model.ItemEvent) error
	Subscribe(handler Handler) (unsubscribe func())
}

// LocalBus delivers events to subscribers of the current process.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[uint64]Handler
	nextID   uint64
	logger   *zap.Logger
}

// NewLocalBus creates a new in-process bus.
func NewLocalBus(logger *zap.Logger) *LocalBus {
	return &LocalBus{
		handlers: make(map[uint64]Handler),
		logger:   logger,
	}
}

// Publish hands the event to every subscriber.
func (b *LocalBus) Publish(ctx context.Context, event model.ItemEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.dispatch(event)
	return nil
}

// Subscribe registers handler until the returned func is called.
func (b *LocalBus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// SubscriberCount returns the number of registered handlers.
func (b *LocalBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

func (b *LocalBus) dispatch(event model.ItemEvent) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	b.logger.Debug("dispatching item event",
		zap.String("type", event.Type),
		zap.String("item_id", event.ItemID),
		zap.Int("subscribers", len(handlers)),
	)

	for _, h := range handlers {
		h(event)
	}
}
