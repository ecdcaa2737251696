package handlers

import (
	"context"

	"github.com/example/sscs-hearings-service/internal/dispatch"
	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/log"
)

type UpdateListingRequirements struct {
	selector
}

func NewUpdateListingRequirements() *UpdateListingRequirements {
	return &UpdateListingRequirements{selector{
		name:   "update-listing-requirements",
		phases: []domain.Phase{domain.PhaseAboutToSubmit},
		types:  []domain.EventType{domain.EventUpdateListingRequirements},
	}}
}

func (h *UpdateListingRequirements) CanHandle(ev domain.Event, _ dispatch.FeatureSet) bool {
	return h.matches(ev) && ev.Case.HearingRoute == domain.RouteListAssist
}

func (h *UpdateListingRequirements) Handle(ctx context.Context, ev domain.Event, env dispatch.Env) (dispatch.Result, error) {
	if err := dispatch.Guard(h, ev, env.Features); err != nil {
		return dispatch.Result{}, err
	}
	if len(ev.Case.Hearings) == 0 {
		return dispatch.Result{Case: ev.Case, Errors: []string{NoHearingError}}, nil
	}

	err := env.Emitter.Emit(ctx, domain.HearingRequest{
		CaseID:       ev.Case.CaseID,
		HearingRoute: domain.RouteListAssist,
		DesiredState: domain.DesiredUpdate,
		Origin:       ev.Type,
	})
	if err != nil {
		l := logger()
		l.Error().Err(err).Str(log.FieldCaseID, ev.Case.CaseID).Msg("update hearing request not sent")
		return dispatch.Result{Case: ev.Case, Errors: []string{PublishErrorMessage}}, nil
	}

	c := ev.Case.Clone()
	c.HearingState = domain.HearingStateUpdate
	return dispatch.Result{Case: c}, nil
}
