package emit

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/example/sscs-hearings-service/internal/domain"
)

// Batch — эмиттер одной диспетчеризации. В немедленном режиме запросы уходят
// сразу, в отложенном копятся до Flush и отбрасываются при Discard.
type Batch struct {
	target   Emitter
	deferred bool

	mu      sync.Mutex
	pending []domain.HearingRequest
	sent    []domain.HearingRequest
}

func NewBatch(target Emitter, deferred bool) *Batch {
	return &Batch{target: target, deferred: deferred}
}

func (b *Batch) Deferred() bool { return b.deferred }

func (b *Batch) Emit(ctx context.Context, req domain.HearingRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if req.MessageID == "" {
		req.MessageID = uuid.NewString()
	}
	if b.deferred {
		b.mu.Lock()
		b.pending = append(b.pending, req)
		b.mu.Unlock()
		return nil
	}
	if err := b.target.Emit(ctx, req); err != nil {
		return err
	}
	b.mu.Lock()
	b.sent = append(b.sent, req)
	b.mu.Unlock()
	return nil
}

// Flush публикует отложенные запросы. Неотправленные остаются в очереди,
// так что повторный Flush дошлёт только их.
func (b *Batch) Flush(ctx context.Context) error {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	var errs []error
	var failed []domain.HearingRequest
	for _, req := range pending {
		if err := b.target.Emit(ctx, req); err != nil {
			errs = append(errs, err)
			failed = append(failed, req)
			continue
		}
		b.mu.Lock()
		b.sent = append(b.sent, req)
		b.mu.Unlock()
	}
	if len(failed) > 0 {
		b.mu.Lock()
		b.pending = append(failed, b.pending...)
		b.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Discard отбрасывает отложенные запросы и возвращает их число.
func (b *Batch) Discard() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.pending)
	b.pending = nil
	return n
}

// Sent возвращает уже опубликованные запросы.
func (b *Batch) Sent() []domain.HearingRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.HearingRequest(nil), b.sent...)
}

// Pending возвращает запросы, ожидающие Flush.
func (b *Batch) Pending() []domain.HearingRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.HearingRequest(nil), b.pending...)
}

var _ Emitter = (*Batch)(nil)
