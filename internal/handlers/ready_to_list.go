package handlers

import (
	"context"

	"github.com/example/sscs-hearings-service/internal/dispatch"
	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/log"
)

// ReadyToList запрашивает создание слушания у внешнего планировщика.
// Сбой публикации возвращается пользователю ошибкой, дело не меняется.
type ReadyToList struct {
	selector
}

func NewReadyToList() *ReadyToList {
	return &ReadyToList{selector{
		name:   "ready-to-list",
		phases: []domain.Phase{domain.PhaseAboutToSubmit},
		types:  []domain.EventType{domain.EventReadyToList},
	}}
}

func (h *ReadyToList) CanHandle(ev domain.Event, _ dispatch.FeatureSet) bool {
	return h.matches(ev)
}

func (h *ReadyToList) Handle(ctx context.Context, ev domain.Event, env dispatch.Env) (dispatch.Result, error) {
	if err := dispatch.Guard(h, ev, env.Features); err != nil {
		return dispatch.Result{}, err
	}

	if ev.Case.HearingRoute != domain.RouteListAssist {
		c := ev.Case.Clone()
		c.HearingState = domain.HearingStateCreate
		res := dispatch.Result{Case: c}
		if !ev.IgnoreWarnings {
			res.Warnings = append(res.Warnings, GapsCaseWarning)
		}
		return res, nil
	}

	err := env.Emitter.Emit(ctx, domain.HearingRequest{
		CaseID:       ev.Case.CaseID,
		HearingRoute: domain.RouteListAssist,
		DesiredState: domain.DesiredCreate,
		Origin:       ev.Type,
	})
	if err != nil {
		l := logger()
		l.Error().Err(err).Str(log.FieldCaseID, ev.Case.CaseID).Msg("create hearing request not sent")
		c := ev.Case.Clone()
		if ev.Before != nil {
			c.HearingRoute = ev.Before.HearingRoute
			c.HearingState = ev.Before.HearingState
		} else {
			c.HearingRoute = domain.RouteUnset
			c.HearingState = domain.HearingStateNone
		}
		return dispatch.Result{Case: c, Errors: []string{PublishErrorMessage}}, nil
	}

	c := ev.Case.Clone()
	c.HearingState = domain.HearingStateCreate
	return dispatch.Result{Case: c}, nil
}
