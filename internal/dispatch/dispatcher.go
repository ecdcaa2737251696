package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/emit"
	"github.com/example/sscs-hearings-service/internal/log"
	"github.com/example/sscs-hearings-service/internal/metrics"
)

// UnexpectedErrorMessage — синтетическая ошибка, которую видит пользователь,
// когда обработчик упал.
const UnexpectedErrorMessage = "An unexpected error occurred. Please try again."

// Dispatcher прогоняет событие через обработчики реестра по корзинам Early,
// Default, Late. Синхронный; один вызов обслуживает одно событие.
type Dispatcher struct {
	registry *Registry
	emitter  emit.Emitter
	features FeatureSet
	logger   zerolog.Logger
}

func New(reg *Registry, emitter emit.Emitter, fs FeatureSet) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		emitter:  emitter,
		features: fs,
		logger:   log.WithComponent("dispatcher"),
	}
}

func (d *Dispatcher) Features() FeatureSet { return d.features }

type dispatchOptions struct {
	deferred bool
}

type Option func(*dispatchOptions)

// WithDeferredEmit копит исходящие запросы до Outcome.Commit. Используется,
// когда вызывающий сам фиксирует дело и знает исход транзакции.
func WithDeferredEmit() Option {
	return func(o *dispatchOptions) { o.deferred = true }
}

// Outcome — итог диспетчеризации.
type Outcome struct {
	Case     domain.CaseSnapshot
	Errors   []string
	Warnings []string
	Aborted  bool

	batch *emit.Batch
}

// Commit публикует отложенные запросы после успешной фиксации дела.
// В немедленном режиме ничего не делает.
func (o *Outcome) Commit(ctx context.Context) error {
	if o.batch == nil {
		return nil
	}
	return o.batch.Flush(ctx)
}

// Discard отбрасывает отложенные запросы: транзакция вызывающего не удалась.
func (o *Outcome) Discard() int {
	if o.batch == nil {
		return 0
	}
	return o.batch.Discard()
}

// Requests возвращает опубликованные и ожидающие публикации запросы.
func (o *Outcome) Requests() []domain.HearingRequest {
	if o.batch == nil {
		return nil
	}
	return append(o.batch.Sent(), o.batch.Pending()...)
}

// Pending возвращает отложенные запросы, ещё не опубликованные. После неудачного
// Commit здесь остаются именно те, что не ушли.
func (o *Outcome) Pending() []domain.HearingRequest {
	if o.batch == nil {
		return nil
	}
	return o.batch.Pending()
}

func (o *Outcome) HasErrors() bool { return len(o.Errors) > 0 }

// incDispatch сводит неизвестные тип события и фазу к метке "other",
// чтобы входные данные не раздували число серий.
func incDispatch(ev domain.Event, result string) {
	event, phase := string(ev.Type), string(ev.Phase)
	if !ev.Type.Known() {
		event = "other"
	}
	if !ev.Phase.Valid() {
		phase = "other"
	}
	metrics.IncDispatch(event, phase, result)
}

// Dispatch обрабатывает событие. Ошибка возвращается только для
// ErrInvalidEvent и ErrIllegalDispatch; ошибки валидации лежат в Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.Event, opts ...Option) (*Outcome, error) {
	logger := log.WithContext(ctx, d.logger).With().
		Str(log.FieldEvent, string(ev.Type)).
		Str(log.FieldPhase, string(ev.Phase)).
		Str(log.FieldCaseID, ev.Case.CaseID).
		Logger()

	if err := ev.Validate(); err != nil {
		incDispatch(ev, "invalid")
		logger.Error().Err(err).Msg("rejecting invalid event")
		return nil, err
	}

	o := dispatchOptions{deferred: d.features.DeferredEmit}
	for _, opt := range opts {
		opt(&o)
	}
	batch := emit.NewBatch(d.emitter, o.deferred)
	env := Env{Features: d.features, Emitter: batch}
	out := &Outcome{batch: batch}

	entries := d.registry.HandlersFor(ev.Phase, ev.Type)
	committed := ev.Case.Clone()

	for _, p := range priorities {
		working := committed
		for _, e := range entries {
			if e.Priority != p {
				continue
			}
			current := ev.WithCase(working.Clone())
			if !e.Handler.CanHandle(current, d.features) {
				continue
			}

			res, err := d.invoke(ctx, e.Handler, current, env)
			if err != nil {
				batch.Discard()
				if errors.Is(err, domain.ErrIllegalDispatch) {
					incDispatch(ev, "illegal")
					logger.Error().Err(err).Str(log.FieldHandler, e.Handler.Name()).Msg("illegal dispatch")
					return nil, err
				}
				incDispatch(ev, "fault")
				logger.Error().Err(err).
					Str(log.FieldHandler, e.Handler.Name()).
					Str("bucket", p.String()).
					Msg("handler fault, aborting dispatch")
				out.Errors = append(out.Errors, UnexpectedErrorMessage)
				out.Aborted = true
				out.Case = committed
				return out, nil
			}

			out.Errors = append(out.Errors, res.Errors...)
			out.Warnings = append(out.Warnings, res.Warnings...)
			if res.Case.CaseID != "" {
				working = res.Case
			}
			if res.Abort {
				batch.Discard()
				incDispatch(ev, "aborted")
				logger.Info().
					Str(log.FieldHandler, e.Handler.Name()).
					Strs("errors", out.Errors).
					Msg("handler requested hard stop")
				out.Aborted = true
				out.Case = working
				return out, nil
			}
		}
		committed = working
	}

	out.Case = committed
	result := "ok"
	if out.HasErrors() {
		result = "errors"
	}
	incDispatch(ev, result)
	logger.Debug().
		Int("errors", len(out.Errors)).
		Int("warnings", len(out.Warnings)).
		Msg("dispatch complete")
	return out, nil
}

func (d *Dispatcher) invoke(ctx context.Context, h Handler, ev domain.Event, env Env) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", h.Name(), r)
		}
	}()
	metrics.IncHandler(h.Name())
	return h.Handle(ctx, ev, env)
}
