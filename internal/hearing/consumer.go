package hearing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/log"
)

// Consumer разбирает сырые сообщения канала статусов и отбрасывает чужие
// по коду сервиса и идентификатору развёртывания.
type Consumer struct {
	sync         *Synchronizer
	serviceCode  string
	deploymentID string
	logger       zerolog.Logger
}

func NewConsumer(s *Synchronizer, serviceCode, deploymentID string) *Consumer {
	return &Consumer{
		sync:         s,
		serviceCode:  serviceCode,
		deploymentID: deploymentID,
		logger:       log.WithComponent("hearing_consumer"),
	}
}

// Handle подходит для domain.MessageSubscriber.
func (c *Consumer) Handle(ctx context.Context, raw []byte) error {
	var msg domain.HearingStatusMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Error().Err(err).Int("bytes", len(raw)).Msg("undecodable hearing message")
		return fmt.Errorf("%w: decode hearing message: %v", domain.ErrValidation, err)
	}
	if !c.applicable(msg) {
		c.logger.Debug().
			Str("service_code", msg.ServiceCode).
			Str("deployment_id", msg.DeploymentID).
			Msg("hearing message for another service skipped")
		return nil
	}
	return c.sync.OnMessage(ctx, msg)
}

func (c *Consumer) applicable(msg domain.HearingStatusMessage) bool {
	if c.serviceCode != "" && msg.ServiceCode != c.serviceCode {
		return false
	}
	if msg.DeploymentID != "" && msg.DeploymentID != c.deploymentID {
		return false
	}
	return true
}
