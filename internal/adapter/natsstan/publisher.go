package natsstan

import (
	"context"
	"encoding/json"
	"fmt"

	stan "github.com/nats-io/stan.go"

	"github.com/example/sscs-hearings-service/internal/domain"
)

// asyncPublisher — часть stan.Conn, нужная публикатору.
type asyncPublisher interface {
	PublishAsync(subject string, data []byte, ah stan.AckHandler) (string, error)
}

// Publisher отправляет запросы на слушания JSON-ом в исходящий subject и ждёт
// подтверждения сервера не дольше ctx.
type Publisher struct {
	conn    asyncPublisher
	Subject string
}

func NewPublisher(conn stan.Conn, subject string) *Publisher {
	return &Publisher{conn: conn, Subject: subject}
}

func (p *Publisher) Publish(ctx context.Context, req domain.HearingRequest) error {
	b, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal hearing request: %w", err)
	}
	acked := make(chan error, 1)
	if _, err := p.conn.PublishAsync(p.Subject, b, func(_ string, err error) { acked <- err }); err != nil {
		return fmt.Errorf("%w: stan publish: %v", domain.ErrUpstreamUnavailable, err)
	}
	select {
	case err := <-acked:
		if err != nil {
			return fmt.Errorf("%w: stan ack: %v", domain.ErrUpstreamUnavailable, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: stan ack: %v", domain.ErrUpstreamUnavailable, ctx.Err())
	}
}

// Dial открывает соединение для публикатора.
func Dial(clusterID, clientID, url string) (stan.Conn, error) {
	sc, err := stan.Connect(clusterID, clientID, stan.NatsURL(url))
	if err != nil {
		return nil, fmt.Errorf("stan connect: %w", err)
	}
	return sc, nil
}

var _ domain.HearingPublisher = (*Publisher)(nil)
