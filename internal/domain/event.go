package domain

import "fmt"

// Phase — фаза обратного вызова жизненного цикла дела.
type Phase string

const (
	PhaseAboutToStart  Phase = "aboutToStart"
	PhaseMidEvent      Phase = "midEvent"
	PhaseAboutToSubmit Phase = "aboutToSubmit"
	PhaseSubmitted     Phase = "submitted"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseAboutToStart, PhaseMidEvent, PhaseAboutToSubmit, PhaseSubmitted:
		return true
	}
	return false
}

type EventType string

const (
	EventReadyToList               EventType = "readyToList"
	EventUpdateListingRequirements EventType = "updateListingRequirements"
	EventVoidCase                  EventType = "voidCase"
	EventStruckOut                 EventType = "struckOut"
	EventAdminAppealWithdrawn      EventType = "adminAppealWithdrawn"
	EventCaseUpdated               EventType = "caseUpdated"
)

// Known сообщает, входит ли тип события в известный набор.
func (t EventType) Known() bool {
	switch t {
	case EventReadyToList, EventUpdateListingRequirements, EventCaseUpdated:
		return true
	}
	return t.IsTermination()
}

// IsTermination сообщает, завершает ли событие дело.
func (t EventType) IsTermination() bool {
	switch t {
	case EventVoidCase, EventStruckOut, EventAdminAppealWithdrawn:
		return true
	}
	return false
}

// Event — неизменяемое описание одного входящего обратного вызова.
type Event struct {
	Type           EventType
	Phase          Phase
	Case           CaseSnapshot
	Before         *CaseSnapshot
	IgnoreWarnings bool
}

func (e Event) Validate() error {
	if e.Case.CaseID == "" {
		return fmt.Errorf("%w: missing case snapshot", ErrInvalidEvent)
	}
	if !e.Phase.Valid() {
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidEvent, e.Phase)
	}
	if e.Type == "" {
		return fmt.Errorf("%w: missing event type", ErrInvalidEvent)
	}
	return nil
}

// WithCase возвращает копию события с другим снимком дела.
func (e Event) WithCase(c CaseSnapshot) Event {
	e.Case = c
	return e
}
