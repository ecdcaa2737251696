// Package handlers содержит обработчики событий дела, связанные со слушаниями.
package handlers

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/example/sscs-hearings-service/internal/dispatch"
	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/log"
)

const (
	PublishErrorMessage = "An error occurred during message publish. Please try again."
	GapsCaseWarning     = "This is a GAPS case, If you do want to proceed, then please change the hearing route to List Assist"
	NoHearingError      = "There is no hearing requested for this case, so listing requirements cannot be updated."
)

// logger берётся при каждом вызове, чтобы учитывать log.Configure.
func logger() zerolog.Logger { return log.WithComponent("handlers") }

// selector — общая часть обработчиков: имя и множество (фаза, тип события).
type selector struct {
	name   string
	phases []domain.Phase
	types  []domain.EventType
}

func (s selector) Name() string                   { return s.name }
func (s selector) Phases() []domain.Phase         { return s.phases }
func (s selector) EventTypes() []domain.EventType { return s.types }

func (s selector) matches(ev domain.Event) bool {
	return slices.Contains(s.phases, ev.Phase) && slices.Contains(s.types, ev.Type)
}

// Register статически регистрирует все обработчики сервиса.
func Register(reg *dispatch.Registry) error {
	entries := []struct {
		h dispatch.Handler
		p dispatch.Priority
	}{
		{NewRouteResolver(), dispatch.Early},
		{NewReadyToList(), dispatch.Default},
		{NewUpdateListingRequirements(), dispatch.Default},
		{NewTerminationCancel(), dispatch.Default},
		{NewTerminationState(), dispatch.Late},
	}
	for _, e := range entries {
		if err := reg.Register(e.h, e.p); err != nil {
			return err
		}
	}
	return nil
}
