// Package hearing синхронизирует состояние слушаний дела со статусами
// внешней системы планирования.
package hearing

import (
	"slices"

	"github.com/example/sscs-hearings-service/internal/domain"
)

// Decision — решение классификатора по входящему статусу.
type Decision int

const (
	Ignore Decision = iota
	Apply
	Escalate
)

func (d Decision) String() string {
	switch d {
	case Ignore:
		return "ignore"
	case Apply:
		return "apply"
	case Escalate:
		return "escalate"
	}
	return "unknown"
}

// StateNotHandled — статусы, которые сами по себе могут быть повтором или
// промежуточным уведомлением и не меняют дело без зафиксированного листинга.
func StateNotHandled(status domain.HmcStatus) bool {
	switch status {
	case domain.HmcListed, domain.HmcAwaitingListing, domain.HmcUpdateSubmitted:
		return true
	}
	return false
}

// IsHearingUpdated истинно, только когда листинг зафиксирован (FIXED).
func IsHearingUpdated(status domain.HmcStatus, listing domain.ListingStatus) bool {
	return StateNotHandled(status) && listing == domain.ListingFixed
}

func IsStatusException(status domain.HmcStatus) bool {
	return status == domain.HmcException
}

// Classify — чистая функция от (статус, статус листинга). Не выполняет I/O.
func Classify(status domain.HmcStatus, listing domain.ListingStatus) Decision {
	if IsStatusException(status) {
		return Escalate
	}
	if StateNotHandled(status) {
		if IsHearingUpdated(status, listing) {
			return Apply
		}
		return Ignore
	}
	if _, ok := transitions[status]; ok {
		return Apply
	}
	return Ignore
}

type dwpAction int

const (
	dwpKeep dwpAction = iota
	dwpIssued
	dwpClear
)

type transition struct {
	caseState domain.CaseState // пусто: состояние дела не меняется
	dwp       dwpAction
	record    domain.HmcStatus
}

// transitions повторяет словарь статусов внешней системы; при его изменении
// таблицу правят вручную.
var transitions = map[domain.HmcStatus]transition{
	domain.HmcListed:          {caseState: domain.StateHearing, dwp: dwpIssued, record: domain.HmcListed},
	domain.HmcAwaitingListing: {caseState: domain.StateReadyToList, dwp: dwpClear, record: domain.HmcAwaitingListing},
	domain.HmcUpdateSubmitted: {caseState: domain.StateHearing, dwp: dwpIssued, record: domain.HmcListed},
	domain.HmcCancelled:       {dwp: dwpClear, record: domain.HmcCancelled},
	domain.HmcAwaitingActuals: {record: domain.HmcAwaitingActuals},
	domain.HmcCompleted:       {record: domain.HmcCompleted},
	domain.HmcAdjourned:       {caseState: domain.StateReadyToList, dwp: dwpClear, record: domain.HmcAdjourned},
}

// dormantReasons — причины отмены, после которых дело уходит в Dormant.
var dormantReasons = []domain.CancellationReason{
	domain.CancelWithdrawn,
	domain.CancelStruckOut,
	domain.CancelLapsed,
}

// Target выводит целевой снимок дела из сообщения. Результат зависит только от
// текущего снимка и сообщения, поэтому повторное применение ничего не меняет.
func Target(current domain.CaseSnapshot, msg domain.HearingStatusMessage) (domain.CaseSnapshot, bool) {
	tr, ok := transitions[msg.Status]
	if !ok {
		return current, false
	}
	next := current.WithHearingStatus(msg.HearingID, tr.record)
	next.HearingState = domain.HearingStateNone
	if tr.caseState != "" {
		next.State = tr.caseState
	}
	if msg.Status == domain.HmcCancelled && hasDormantReason(msg.CancellationReasons) {
		next.State = domain.StateDormant
	}
	switch tr.dwp {
	case dwpIssued:
		next.DwpState = domain.DwpStateHearingDateIssued
	case dwpClear:
		next.DwpState = domain.DwpStateNone
	}
	return next, true
}

func hasDormantReason(reasons []domain.CancellationReason) bool {
	for _, r := range reasons {
		if slices.Contains(dormantReasons, r) {
			return true
		}
	}
	return false
}

// sameHearingFields сравнивает поля, которыми управляет синхронизатор.
func sameHearingFields(a, b domain.CaseSnapshot) bool {
	if a.State != b.State || a.HearingState != b.HearingState || a.DwpState != b.DwpState {
		return false
	}
	return slices.Equal(a.Hearings, b.Hearings)
}
