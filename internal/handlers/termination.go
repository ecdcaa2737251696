package handlers

import (
	"context"

	"github.com/example/sscs-hearings-service/internal/dispatch"
	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/log"
)

var terminationEvents = []domain.EventType{
	domain.EventVoidCase,
	domain.EventStruckOut,
	domain.EventAdminAppealWithdrawn,
}

// cancellationReasons — причина отмены слушания для каждого завершающего события.
var cancellationReasons = map[domain.EventType]domain.CancellationReason{
	domain.EventVoidCase:             domain.CancelOther,
	domain.EventStruckOut:            domain.CancelStruckOut,
	domain.EventAdminAppealWithdrawn: domain.CancelWithdrawn,
}

// TerminationCancel отменяет активное слушание, когда дело завершается.
// Сбой публикации не блокирует завершение дела: пишем в лог и идём дальше.
type TerminationCancel struct {
	selector
}

func NewTerminationCancel() *TerminationCancel {
	return &TerminationCancel{selector{
		name:   "termination-cancel-hearing",
		phases: []domain.Phase{domain.PhaseAboutToSubmit},
		types:  terminationEvents,
	}}
}

func (h *TerminationCancel) CanHandle(ev domain.Event, _ dispatch.FeatureSet) bool {
	return h.matches(ev) && ev.Case.HearingRoute == domain.RouteListAssist && hasActiveHearing(ev.Case)
}

func hasActiveHearing(c domain.CaseSnapshot) bool {
	if c.State == domain.StateHearing {
		return true
	}
	switch c.HearingState {
	case domain.HearingStateCreate, domain.HearingStateUpdate:
		return true
	}
	for _, hr := range c.Hearings {
		switch hr.Status {
		case domain.HmcListed, domain.HmcAwaitingListing, domain.HmcUpdateSubmitted, domain.HmcHearingRequested:
			return true
		}
	}
	return false
}

func (h *TerminationCancel) Handle(ctx context.Context, ev domain.Event, env dispatch.Env) (dispatch.Result, error) {
	if err := dispatch.Guard(h, ev, env.Features); err != nil {
		return dispatch.Result{}, err
	}
	c := ev.Case.Clone()
	err := env.Emitter.Emit(ctx, domain.HearingRequest{
		CaseID:             c.CaseID,
		HearingRoute:       c.HearingRoute,
		DesiredState:       domain.DesiredCancel,
		CancellationReason: cancellationReasons[ev.Type],
		Origin:             ev.Type,
	})
	if err != nil {
		l := logger()
		l.Warn().Err(err).
			Str(log.FieldCaseID, c.CaseID).
			Str(log.FieldEvent, string(ev.Type)).
			Msg("cancel hearing request not sent, continuing case termination")
		return dispatch.Result{Case: c}, nil
	}
	c.HearingState = domain.HearingStateCancel
	return dispatch.Result{Case: c}, nil
}

// TerminationState переводит завершённое дело в итоговое состояние. Стоит в Late:
// отмена слушания должна увидеть состояние дела до завершения.
type TerminationState struct {
	selector
}

func NewTerminationState() *TerminationState {
	return &TerminationState{selector{
		name:   "termination-state",
		phases: []domain.Phase{domain.PhaseAboutToSubmit},
		types:  terminationEvents,
	}}
}

func (h *TerminationState) CanHandle(ev domain.Event, _ dispatch.FeatureSet) bool {
	return h.matches(ev)
}

func (h *TerminationState) Handle(_ context.Context, ev domain.Event, env dispatch.Env) (dispatch.Result, error) {
	if err := dispatch.Guard(h, ev, env.Features); err != nil {
		return dispatch.Result{}, err
	}
	c := ev.Case.Clone()
	old := c.State
	if ev.Type == domain.EventVoidCase {
		c.State = domain.StateVoid
	} else {
		c.State = domain.StateDormant
	}
	l := logger()
	l.Info().
		Str(log.FieldCaseID, c.CaseID).
		Str(log.FieldOldState, string(old)).
		Str(log.FieldNewState, string(c.State)).
		Msg("case terminated")
	return dispatch.Result{Case: c}, nil
}
