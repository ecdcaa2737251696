package emit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/log"
	"github.com/example/sscs-hearings-service/internal/metrics"
)

// MemoryBus — внутрипроцессный исходящий канал для локального режима и тестов.
// Не долговечен; доставка гарантируется, пока жив контекст публикации.
type MemoryBus struct {
	topic string

	mu   sync.RWMutex
	subs []*subscription
}

// subscription закрывает done при отписке. Канал данных не закрывается:
// публикация, уже ждущая отправки, выходит по done.
type subscription struct {
	ch   chan domain.HearingRequest
	done chan struct{}
}

const dropLogEvery = 100

var dropCount atomic.Uint64

func NewMemoryBus(topic string) *MemoryBus {
	return &MemoryBus{topic: topic}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

func (b *MemoryBus) Publish(ctx context.Context, req domain.HearingRequest) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	b.mu.RLock()
	subs := append([]*subscription(nil), b.subs...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub.ch <- req:
		case <-sub.done:
		case <-ctx.Done():
			reason := publishDropReason(ctx.Err())
			metrics.IncBusDrop(b.topic, reason)
			if n := dropCount.Add(1); n%dropLogEvery == 1 {
				l := log.WithComponent("memory_bus")
				l.Warn().
					Str("topic", b.topic).
					Str("reason", reason).
					Uint64("dropped", n).
					Msg("memory bus failed to publish")
			}
			return fmt.Errorf("%w: publish topic %q: %v", domain.ErrUpstreamUnavailable, b.topic, ctx.Err())
		}
	}
	return nil
}

// Subscribe возвращает канал подписки и функцию отписки. После отписки канал
// больше не получает сообщений.
func (b *MemoryBus) Subscribe(buffer int) (<-chan domain.HearingRequest, func()) {
	sub := &subscription{
		ch:   make(chan domain.HearingRequest, buffer),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			out := b.subs[:0]
			for _, s := range b.subs {
				if s != sub {
					out = append(out, s)
				}
			}
			b.subs = out
			close(sub.done)
		})
	}
}

var _ domain.HearingPublisher = (*MemoryBus)(nil)
