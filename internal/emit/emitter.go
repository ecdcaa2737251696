// Package emit передаёт исходящие запросы на слушания в канал планировщика.
package emit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/log"
	"github.com/example/sscs-hearings-service/internal/metrics"
)

// Emitter синхронно передаёт запрос в исходящий канал. Ошибку передачи
// обрабатывает вызывающий обработчик.
type Emitter interface {
	Emit(ctx context.Context, req domain.HearingRequest) error
}

const DefaultPublishTimeout = 5 * time.Second

// Direct публикует запросы немедленно через HearingPublisher.
type Direct struct {
	Publisher domain.HearingPublisher
	Timeout   time.Duration
	logger    zerolog.Logger
}

func NewDirect(p domain.HearingPublisher, timeout time.Duration) *Direct {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Direct{Publisher: p, Timeout: timeout, logger: log.WithComponent("emitter")}
}

func (d *Direct) Emit(ctx context.Context, req domain.HearingRequest) error {
	if err := req.Validate(); err != nil {
		metrics.IncHearingRequest(string(req.DesiredState), "invalid")
		return err
	}
	if req.MessageID == "" {
		req.MessageID = uuid.NewString()
	}

	pubCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()
	if err := d.Publisher.Publish(pubCtx, req); err != nil {
		metrics.IncHearingRequest(string(req.DesiredState), "failed")
		l := log.WithContext(ctx, d.logger)
		l.Error().Err(err).
			Str(log.FieldCaseID, req.CaseID).
			Str("message_id", req.MessageID).
			Str("desired_state", string(req.DesiredState)).
			Msg("hearing request publish failed")
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			return err
		}
		return fmt.Errorf("%w: publish hearing request: %v", domain.ErrUpstreamUnavailable, err)
	}
	metrics.IncHearingRequest(string(req.DesiredState), "published")
	l := log.WithContext(ctx, d.logger)
	l.Info().
		Str(log.FieldCaseID, req.CaseID).
		Str("message_id", req.MessageID).
		Str("desired_state", string(req.DesiredState)).
		Str("cancellation_reason", string(req.CancellationReason)).
		Msg("hearing request published")
	return nil
}

var _ Emitter = (*Direct)(nil)
