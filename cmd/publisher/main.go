// Команда publisher отправляет сообщение о статусе слушания из stdin в канал
// статусов. Нужна для локальной проверки синхронизации.
package main

import (
	"encoding/json"
	"os"

	stan "github.com/nats-io/stan.go"
	"github.com/spf13/pflag"

	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/log"
)

func main() {
	fs := pflag.NewFlagSet("publisher", pflag.ExitOnError)
	clusterID := fs.String("cluster", getenv("STAN_CLUSTER_ID", "sscs-cluster"), "STAN cluster id")
	clientID := fs.String("client", getenv("STAN_PUB_ID", "sscs-status-publisher"), "STAN client id")
	natsURL := fs.String("url", getenv("NATS_URL", "nats://localhost:4223"), "NATS url")
	subject := fs.String("subject", getenv("STAN_SUBJECT", "hmc.hearing-status"), "subject for hearing status messages")
	_ = fs.Parse(os.Args[1:])

	logger := log.WithComponent("publisher")

	var msg domain.HearingStatusMessage
	dec := json.NewDecoder(os.Stdin)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&msg); err != nil {
		logger.Fatal().Err(err).Msg("read json from stdin")
	}
	if err := msg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid hearing status message")
	}
	b, err := json.Marshal(msg)
	if err != nil {
		logger.Fatal().Err(err).Msg("marshal")
	}

	sc, err := stan.Connect(*clusterID, *clientID, stan.NatsURL(*natsURL))
	if err != nil {
		logger.Fatal().Err(err).Msg("stan connect")
	}
	defer sc.Close()

	if err := sc.Publish(*subject, b); err != nil {
		logger.Error().Err(err).Msg("publish")
		return
	}
	logger.Info().
		Int("bytes", len(b)).
		Str("subject", *subject).
		Str(log.FieldCaseID, msg.CaseID).
		Str(log.FieldStatus, string(msg.Status)).
		Msg("published")
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
