package events

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shopcore/cartservice/internal/domain/outbox"
	"go.uber.org/zap"
)

const handlerTimeout = 30 * time.Second

// Bus is an in-memory publisher with per-event fanout. It is not durable;
// events enqueued but not yet dispatched are lost on shutdown.
type Bus struct {
	mu        sync.RWMutex
	subs      map[string][]outbox.Handler
	queue     chan outbox.Event
	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	log       *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		subs:  make(map[string][]outbox.Handler),
		queue: make(chan outbox.Event, 1024),
		log:   log.With(zap.String("component", "event_bus")),
	}
}

func (b *Bus) Subscribe(eventName string, h outbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		bg, cancel := context.WithCancel(ctx)
		b.cancel = cancel
		go b.dispatchLoop(bg)
		b.log.Info("event_bus_started")
	})
}

func (b *Bus) Stop(ctx context.Context) {
	_ = ctx
	b.stopOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
		close(b.queue)
		b.log.Info("event_bus_stopped")
	})
}

func (b *Bus) Publish(ctx context.Context, e outbox.Event) error {
	if e == nil {
		return nil
	}
	select {
	case b.queue <- e:
		return nil
	case <-ctx.Done():
		b.log.Warn("event_enqueue_aborted",
			zap.String("event", e.EventName()),
			zap.Error(ctx.Err()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-b.queue:
			if !ok {
				return
			}
			b.fanout(ctx, e)
		}
	}
}

func (b *Bus) fanout(ctx context.Context, e outbox.Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]outbox.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	// Handlers keep running even if the publishing request is gone.
	ctx = context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event_handler_panic",
						zap.String("event", name),
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())),
					)
				}
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			defer cancel()
			if err := h(hctx, e); err != nil {
				b.log.Warn("event_handler_error",
					zap.String("event", name),
					zap.Error(err),
				)
			}
		}()
	}
	wg.Wait()
}
