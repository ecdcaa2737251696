// Package natsstan связывает сервис с NATS Streaming: входящие статусы слушаний
// и исходящие запросы к планировщику.
package natsstan

import (
	"context"
	"errors"
	"fmt"
	"time"

	stan "github.com/nats-io/stan.go"
	"github.com/rs/zerolog"

	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/log"
)

// Subscriber читает статусы слушаний из durable queue-подписки с ручным ack.
// Сообщения одного подписчика обрабатываются последовательно, в порядке канала;
// порядок по делу держится, пока в группе один активный потребитель на subject.
type Subscriber struct {
	ClusterID      string
	ClientID       string
	URL            string
	Subject        string
	Durable        string
	Queue          string
	AckWait        time.Duration
	HandlerTimeout time.Duration
}

func (s *Subscriber) defaults() {
	if s.ClientID == "" {
		s.ClientID = fmt.Sprintf("sscs-hearings-%d", time.Now().UnixNano())
	}
	if s.Queue == "" {
		s.Queue = "sscs-hearings-workers"
	}
	if s.Durable == "" {
		s.Durable = "sscs-hearings-durable"
	}
	if s.AckWait <= 0 {
		s.AckWait = 30 * time.Second
	}
	if s.HandlerTimeout <= 0 {
		s.HandlerTimeout = 10 * time.Second
	}
}

func (s *Subscriber) Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error {
	s.defaults()
	logger := log.WithComponent("stan_subscriber").With().Str("subject", s.Subject).Logger()

	sc, err := stan.Connect(s.ClusterID, s.ClientID, stan.NatsURL(s.URL))
	if err != nil {
		return fmt.Errorf("stan connect: %w", err)
	}
	go func() {
		<-ctx.Done()
		_ = sc.Close()
	}()
	_, err = sc.QueueSubscribe(s.Subject, s.Queue, func(m *stan.Msg) {
		hCtx, cancel := context.WithTimeout(ctx, s.HandlerTimeout)
		defer cancel()
		if !deliver(hCtx, logger, m.Sequence, m.Redelivered, m.Data, handler) {
			return
		}
		if err := m.Ack(); err != nil {
			logger.Warn().Err(err).Uint64("seq", m.Sequence).Msg("ack failed")
		}
	}, stan.DurableName(s.Durable), stan.SetManualAckMode(), stan.AckWait(s.AckWait), stan.DeliverAllAvailable(), stan.MaxInflight(1))
	if err != nil {
		_ = sc.Close()
		return fmt.Errorf("stan subscribe: %w", err)
	}
	logger.Info().Str("queue", s.Queue).Str("durable", s.Durable).Msg("subscribed")
	return nil
}

// deliver вызывает обработчик и решает, подтверждать ли сообщение. Повторяемые
// ошибки и прерванная контекстом обработка остаются без ack, канал доставит
// сообщение снова.
func deliver(ctx context.Context, logger zerolog.Logger, seq uint64, redelivered bool, data []byte, handler func(context.Context, []byte) error) bool {
	err := handler(ctx, data)
	if err == nil {
		return true
	}
	retry := domain.IsRetryable(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	ev := logger.Error()
	if retry {
		ev = logger.Warn()
	}
	ev.Err(err).Uint64("seq", seq).Bool("redelivered", redelivered).Bool("retry", retry).Msg("handler error")
	return !retry
}

var _ domain.MessageSubscriber = (*Subscriber)(nil)
