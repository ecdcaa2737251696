package hearing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/emit"
	"github.com/example/sscs-hearings-service/internal/log"
	"github.com/example/sscs-hearings-service/internal/metrics"
)

const (
	DefaultMaxAttempts = 3
	DefaultOpTimeout   = 5 * time.Second
)

type Config struct {
	// MaxAttempts — число попыток compare-and-swap на одно сообщение.
	MaxAttempts int
	// OpTimeout ограничивает каждое обращение к хранилищу.
	OpTimeout time.Duration
}

// Synchronizer применяет статусы слушаний к делу через чтение-изменение-запись
// с проверкой версии.
type Synchronizer struct {
	store   domain.CaseStore
	emitter emit.Emitter
	alerter domain.Alerter
	cfg     Config
	logger  zerolog.Logger
}

// NewSynchronizer; emitter и alerter могут быть nil.
func NewSynchronizer(store domain.CaseStore, emitter emit.Emitter, alerter domain.Alerter, cfg Config) *Synchronizer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultOpTimeout
	}
	if alerter == nil {
		alerter = LogAlerter{}
	}
	return &Synchronizer{
		store:   store,
		emitter: emitter,
		alerter: alerter,
		cfg:     cfg,
		logger:  log.WithComponent("hearing_sync"),
	}
}

// OnMessage обрабатывает одно сообщение. Отмена контекста проверяется только
// до начала обработки; цикл повторов доводится до конца.
func (s *Synchronizer) OnMessage(ctx context.Context, msg domain.HearingStatusMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	logger := log.WithContext(ctx, s.logger).With().
		Str(log.FieldCaseID, msg.CaseID).
		Str(log.FieldHearingID, msg.HearingID).
		Str(log.FieldStatus, string(msg.Status)).
		Str(log.FieldListing, string(msg.ListingStatus)).
		Int64("sequence", msg.SequenceNumber).
		Logger()

	decision := Classify(msg.Status, msg.ListingStatus)
	metrics.IncHearingDecision(decision.String())

	switch decision {
	case Ignore:
		logger.Debug().Msg("hearing status acknowledged without case update")
		return nil
	case Escalate:
		logger.Error().Msg("hearing in exception state, manual intervention required")
		s.alerter.Alert(ctx, msg, "hearing reported exception status")
		metrics.ObserveHearingSync("escalated", 0)
		return fmt.Errorf("%w: case %s hearing %s", domain.ErrHearingException, msg.CaseID, msg.HearingID)
	}

	// Повторы не прерываются отменой родительского контекста, только таймаутом операции.
	opCtx := context.WithoutCancel(ctx)
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		current, version, err := s.get(opCtx, msg.CaseID)
		if err != nil {
			return s.fail(logger, err, attempt)
		}

		target, _ := Target(current, msg)
		if sameHearingFields(current, target) {
			metrics.ObserveHearingSync("noop", attempt)
			logger.Debug().Int64(log.FieldVersion, version).Msg("case already reflects hearing status")
			return nil
		}

		ok, newVersion, err := s.compareAndSwap(opCtx, msg.CaseID, version, target)
		if err != nil {
			return s.fail(logger, err, attempt)
		}
		if ok {
			metrics.ObserveHearingSync("applied", attempt)
			logger.Info().
				Str(log.FieldOldState, string(current.State)).
				Str(log.FieldNewState, string(target.State)).
				Int64(log.FieldVersion, newVersion).
				Int(log.FieldAttempts, attempt).
				Msg("case updated from hearing status")
			s.followUp(opCtx, logger, msg, target)
			return nil
		}
		logger.Debug().Int64(log.FieldVersion, version).Int(log.FieldAttempts, attempt).Msg("version conflict, re-reading case")
	}

	metrics.ObserveHearingSync("conflict_exhausted", s.cfg.MaxAttempts)
	logger.Warn().Int(log.FieldAttempts, s.cfg.MaxAttempts).Msg("hearing sync gave up after version conflicts")
	return fmt.Errorf("%w: case %s after %d attempts", domain.ErrSyncConflictExhausted, msg.CaseID, s.cfg.MaxAttempts)
}

func (s *Synchronizer) get(ctx context.Context, caseID string) (domain.CaseSnapshot, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()
	return s.store.Get(ctx, caseID)
}

func (s *Synchronizer) compareAndSwap(ctx context.Context, caseID string, version int64, next domain.CaseSnapshot) (bool, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()
	return s.store.CompareAndSwap(ctx, caseID, version, next)
}

func (s *Synchronizer) fail(logger zerolog.Logger, err error, attempt int) error {
	if errors.Is(err, domain.ErrCaseNotFound) {
		metrics.ObserveHearingSync("not_found", attempt)
		logger.Error().Err(err).Msg("hearing status for unknown case")
		return err
	}
	metrics.ObserveHearingSync("upstream_unavailable", attempt)
	logger.Error().Err(err).Int(log.FieldAttempts, attempt).Msg("case store unavailable")
	if errors.Is(err, domain.ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: case store: %v", domain.ErrUpstreamUnavailable, err)
}

// followUp отправляет повторный запрос на создание слушания после отложенного.
func (s *Synchronizer) followUp(ctx context.Context, logger zerolog.Logger, msg domain.HearingStatusMessage, c domain.CaseSnapshot) {
	if s.emitter == nil || msg.Status != domain.HmcAdjourned || c.HearingRoute != domain.RouteListAssist {
		return
	}
	err := s.emitter.Emit(ctx, domain.HearingRequest{
		CaseID:       c.CaseID,
		HearingRoute: c.HearingRoute,
		DesiredState: domain.DesiredCreate,
	})
	if err != nil {
		logger.Error().Err(err).Msg("relist request after adjournment not sent")
	}
}

// LogAlerter поднимает тревогу записью уровня error.
type LogAlerter struct{}

func (LogAlerter) Alert(ctx context.Context, msg domain.HearingStatusMessage, reason string) {
	l := log.WithContext(ctx, log.WithComponent("alert"))
	l.Error().
		Bool("alert", true).
		Str(log.FieldCaseID, msg.CaseID).
		Str(log.FieldHearingID, msg.HearingID).
		Str(log.FieldStatus, string(msg.Status)).
		Msg(reason)
}
