package natsstan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	stan "github.com/nats-io/stan.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sscs-hearings-service/internal/domain"
)

func TestDeliverAckPolicy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		ack  bool
	}{
		{"success", nil, true},
		{"validation", domain.ErrValidation, true},
		{"exception", domain.ErrHearingException, true},
		{"conflict exhausted", domain.ErrSyncConflictExhausted, false},
		{"upstream", domain.ErrUpstreamUnavailable, false},
		{"canceled at shutdown", context.Canceled, false},
		{"handler timeout", fmt.Errorf("get case: %w", context.DeadlineExceeded), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := func(context.Context, []byte) error { return tt.err }
			got := deliver(context.Background(), zerolog.Nop(), 1, false, []byte("{}"), handler)
			assert.Equal(t, tt.ack, got)
		})
	}
}

type fakeConn struct {
	subject string
	data    []byte
	ackErr  error
	pubErr  error
	noAck   bool
}

func (f *fakeConn) PublishAsync(subject string, data []byte, ah stan.AckHandler) (string, error) {
	if f.pubErr != nil {
		return "", f.pubErr
	}
	f.subject, f.data = subject, data
	if !f.noAck {
		go ah("guid", f.ackErr)
	}
	return "guid", nil
}

func TestPublisherPublish(t *testing.T) {
	conn := &fakeConn{}
	p := &Publisher{conn: conn, Subject: "hearings.out"}
	req := domain.HearingRequest{MessageID: "m1", CaseID: "1", HearingRoute: domain.RouteListAssist, DesiredState: domain.DesiredCreate}

	require.NoError(t, p.Publish(context.Background(), req))
	assert.Equal(t, "hearings.out", conn.subject)

	var got map[string]any
	require.NoError(t, json.Unmarshal(conn.data, &got))
	assert.Equal(t, "1", got["ccdCaseId"])
	assert.Equal(t, "create", got["hearingState"])
}

func TestPublisherFailures(t *testing.T) {
	req := domain.HearingRequest{CaseID: "1", DesiredState: domain.DesiredCreate}

	p := &Publisher{conn: &fakeConn{pubErr: errors.New("closed")}, Subject: "s"}
	assert.ErrorIs(t, p.Publish(context.Background(), req), domain.ErrUpstreamUnavailable)

	p = &Publisher{conn: &fakeConn{ackErr: errors.New("nack")}, Subject: "s"}
	assert.ErrorIs(t, p.Publish(context.Background(), req), domain.ErrUpstreamUnavailable)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	p = &Publisher{conn: &fakeConn{noAck: true}, Subject: "s"}
	assert.ErrorIs(t, p.Publish(ctx, req), domain.ErrUpstreamUnavailable)
}

func TestSubscriberDefaults(t *testing.T) {
	s := &Subscriber{Subject: "hmc.status"}
	s.defaults()
	assert.NotEmpty(t, s.ClientID)
	assert.Equal(t, "sscs-hearings-workers", s.Queue)
	assert.Equal(t, 30*time.Second, s.AckWait)
}

func TestDeliverSeesSubscriptionCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	hCtx, hCancel := context.WithTimeout(parent, time.Minute)
	defer hCancel()
	cancel()

	var seen error
	handler := func(ctx context.Context, _ []byte) error {
		seen = ctx.Err()
		return ctx.Err()
	}
	assert.False(t, deliver(hCtx, zerolog.Nop(), 7, true, nil, handler))
	assert.ErrorIs(t, seen, context.Canceled)
}
