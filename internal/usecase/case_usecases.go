package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/example/sscs-hearings-service/internal/dispatch"
	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/handlers"
	"github.com/example/sscs-hearings-service/internal/hearing"
	"github.com/example/sscs-hearings-service/internal/log"
)

// HandleCallback — обработать обратный вызов, дело хранит вызывающая сторона.
type HandleCallback struct {
	Dispatcher *dispatch.Dispatcher
}

func (uc HandleCallback) Execute(ctx context.Context, ev domain.Event) (*dispatch.Outcome, error) {
	out, err := uc.Dispatcher.Dispatch(ctx, ev)
	if err != nil {
		return nil, err
	}
	if out.Aborted || out.HasErrors() {
		out.Discard()
		return out, nil
	}
	// В отложенном режиме дело сохраняет вызывающий; публикуем, когда ответ готов.
	if err := out.Commit(ctx); err != nil {
		return out, err
	}
	return out, nil
}

// GetCase — прочитать дело из хранилища.
type GetCase struct {
	Store domain.CaseStore
}

func (uc GetCase) Execute(ctx context.Context, id string) (domain.CaseSnapshot, int64, error) {
	return uc.Store.Get(ctx, id)
}

// SubmitCaseEvent — применить событие к хранимому делу: чтение, диспетчеризация с
// отложенной публикацией, compare-and-swap, затем публикация запросов.
type SubmitCaseEvent struct {
	Store      domain.CaseStore
	Dispatcher *dispatch.Dispatcher
}

type SubmitResult struct {
	Outcome *dispatch.Outcome
	Version int64
}

func (uc SubmitCaseEvent) Execute(ctx context.Context, caseID string, eventType domain.EventType, ignoreWarnings bool) (SubmitResult, error) {
	logger := log.WithContext(ctx, log.WithComponent("submit")).With().
		Str(log.FieldCaseID, caseID).
		Str(log.FieldEvent, string(eventType)).
		Logger()

	current, version, err := uc.Store.Get(ctx, caseID)
	if err != nil {
		return SubmitResult{}, storeErr(err)
	}
	before := current.Clone()
	ev := domain.Event{
		Type:           eventType,
		Phase:          domain.PhaseAboutToSubmit,
		Case:           current,
		Before:         &before,
		IgnoreWarnings: ignoreWarnings,
	}
	out, err := uc.Dispatcher.Dispatch(ctx, ev, dispatch.WithDeferredEmit())
	if err != nil {
		return SubmitResult{}, err
	}
	res := SubmitResult{Outcome: out, Version: version}

	if out.Aborted || out.HasErrors() || (len(out.Warnings) > 0 && !ignoreWarnings) {
		out.Discard()
		logger.Info().Strs("errors", out.Errors).Strs("warnings", out.Warnings).Msg("event rejected")
		return res, domain.ErrEventRejected
	}

	ok, newVersion, err := uc.Store.CompareAndSwap(ctx, caseID, version, out.Case)
	if err != nil {
		out.Discard()
		return res, storeErr(err)
	}
	if !ok {
		n := out.Discard()
		logger.Info().
			Int64(log.FieldVersion, version).
			Int64("current_version", newVersion).
			Int("discarded", n).
			Msg("case changed concurrently, caller must re-fetch")
		return res, fmt.Errorf("%w: case %s at version %d, now %d", domain.ErrVersionConflict, caseID, version, newVersion)
	}
	res.Version = newVersion

	if err := out.Commit(ctx); err != nil {
		return uc.publishFailed(ctx, logger, res, before, err)
	}
	logger.Info().
		Str(log.FieldOldState, string(before.State)).
		Str(log.FieldNewState, string(out.Case.State)).
		Int64(log.FieldVersion, newVersion).
		Msg("event applied")
	return res, nil
}

// publishFailed применяет политику сбоя публикации после записи дела. Запросы
// завершающих событий только логируются: дело остаётся завершённым, подсостояние
// слушания возвращается к прежнему. Для create/update маршрут и подсостояние
// откатываются, пользователь получает ошибку публикации.
func (uc SubmitCaseEvent) publishFailed(ctx context.Context, logger zerolog.Logger, res SubmitResult, before domain.CaseSnapshot, pubErr error) (SubmitResult, error) {
	out := res.Outcome
	failed := out.Pending()
	out.Discard()

	rejected := false
	for _, req := range failed {
		if !req.Origin.IsTermination() {
			rejected = true
		}
	}

	compensated := out.Case.Clone()
	compensated.HearingState = before.HearingState
	if rejected {
		compensated.HearingRoute = before.HearingRoute
	}
	ok, version, err := uc.Store.CompareAndSwap(context.WithoutCancel(ctx), compensated.CaseID, res.Version, compensated)
	if err != nil || !ok {
		logger.Error().Err(pubErr).AnErr("compensate_err", err).
			Int64(log.FieldVersion, res.Version).
			Msg("hearing requests not published and case could not be reverted")
		if err != nil {
			return res, storeErr(err)
		}
		return res, fmt.Errorf("%w: revert after publish failure: %v", domain.ErrVersionConflict, pubErr)
	}
	res.Version = version
	out.Case = compensated

	if !rejected {
		logger.Warn().Err(pubErr).Int("failed", len(failed)).Msg("cancel hearing request not sent, case termination kept")
		return res, nil
	}
	logger.Error().Err(pubErr).Int("failed", len(failed)).Msg("hearing request not sent, route and hearing state reverted")
	out.Errors = append(out.Errors, handlers.PublishErrorMessage)
	return res, fmt.Errorf("%w: %v", domain.ErrEventRejected, pubErr)
}

func storeErr(err error) error {
	if errors.Is(err, domain.ErrCaseNotFound) || errors.Is(err, domain.ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: case store: %v", domain.ErrUpstreamUnavailable, err)
}

// ProcessHearingMessage — обработать входящее сообщение о статусе слушания.
type ProcessHearingMessage struct {
	Consumer *hearing.Consumer
}

func (uc ProcessHearingMessage) Execute(ctx context.Context, raw []byte) error {
	return uc.Consumer.Handle(ctx, raw)
}

// LoadCases — завести дела из JSON-массива снимков при старте. Существующие и
// битые записи пропускаются, не прерывая загрузку.
type LoadCases struct {
	Seeder domain.CaseSeeder
}

func (uc LoadCases) Execute(ctx context.Context, r io.Reader) (int, error) {
	var raws []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return 0, fmt.Errorf("%w: seed file: %v", domain.ErrValidation, err)
	}
	logger := log.WithComponent("seed")
	loaded := 0
	for i, raw := range raws {
		var c domain.CaseSnapshot
		if err := json.Unmarshal(raw, &c); err != nil || c.CaseID == "" {
			logger.Warn().Int("index", i).Msg("skipping malformed case")
			continue
		}
		_, err := uc.Seeder.Insert(ctx, c)
		switch {
		case errors.Is(err, domain.ErrCaseExists):
			continue
		case err != nil:
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}
