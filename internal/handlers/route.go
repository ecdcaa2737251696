package handlers

import (
	"context"

	"github.com/example/sscs-hearings-service/internal/dispatch"
	"github.com/example/sscs-hearings-service/internal/domain"
)

// RouteResolver выбирает маршрут слушаний для дел, где он ещё не задан.
// Работает в Early, чтобы обработчики Default уже видели маршрут.
type RouteResolver struct {
	selector
}

func NewRouteResolver() *RouteResolver {
	return &RouteResolver{selector{
		name:   "hearing-route-resolver",
		phases: []domain.Phase{domain.PhaseAboutToSubmit},
		types:  []domain.EventType{domain.EventReadyToList, domain.EventUpdateListingRequirements},
	}}
}

func (h *RouteResolver) CanHandle(ev domain.Event, _ dispatch.FeatureSet) bool {
	return h.matches(ev) && ev.Case.HearingRoute == domain.RouteUnset
}

func (h *RouteResolver) Handle(_ context.Context, ev domain.Event, env dispatch.Env) (dispatch.Result, error) {
	if err := dispatch.Guard(h, ev, env.Features); err != nil {
		return dispatch.Result{}, err
	}
	c := ev.Case.Clone()
	if env.Features.ListAssistFor(c.Region) {
		c.HearingRoute = domain.RouteListAssist
	} else {
		c.HearingRoute = domain.RouteGaps
	}
	return dispatch.Result{Case: c}, nil
}
