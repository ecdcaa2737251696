package domain

import "fmt"

// HmcStatus — словарь статусов внешней системы планирования слушаний.
type HmcStatus string

const (
	HmcHearingRequested      HmcStatus = "HEARING_REQUESTED"
	HmcAwaitingListing       HmcStatus = "AWAITING_LISTING"
	HmcListed                HmcStatus = "LISTED"
	HmcUpdateRequested       HmcStatus = "UPDATE_REQUESTED"
	HmcUpdateSubmitted       HmcStatus = "UPDATE_SUBMITTED"
	HmcCancellationRequested HmcStatus = "CANCELLATION_REQUESTED"
	HmcCancellationSubmitted HmcStatus = "CANCELLATION_SUBMITTED"
	HmcCancelled             HmcStatus = "CANCELLED"
	HmcAwaitingActuals       HmcStatus = "AWAITING_ACTUALS"
	HmcCompleted             HmcStatus = "COMPLETED"
	HmcAdjourned             HmcStatus = "ADJOURNED"
	HmcException             HmcStatus = "EXCEPTION"
	HmcNotFound              HmcStatus = "NOT_FOUND"
)

// AllHmcStatuses перечисляет известный словарь в порядке жизненного цикла.
var AllHmcStatuses = []HmcStatus{
	HmcHearingRequested, HmcAwaitingListing, HmcListed, HmcUpdateRequested, HmcUpdateSubmitted,
	HmcCancellationRequested, HmcCancellationSubmitted, HmcCancelled, HmcAwaitingActuals,
	HmcCompleted, HmcAdjourned, HmcException, HmcNotFound,
}

type ListingStatus string

const (
	ListingUnknown     ListingStatus = ""
	ListingDraft       ListingStatus = "DRAFT"
	ListingProvisional ListingStatus = "PROVISIONAL"
	ListingFixed       ListingStatus = "FIXED"
	ListingCancelled   ListingStatus = "CNCL"
)

var AllListingStatuses = []ListingStatus{
	ListingUnknown, ListingDraft, ListingProvisional, ListingFixed, ListingCancelled,
}

type CancellationReason string

const (
	CancelOther     CancellationReason = "other"
	CancelWithdrawn CancellationReason = "withdraw"
	CancelStruckOut CancellationReason = "struck"
	CancelLapsed    CancellationReason = "lapsed"
	CancelVoid      CancellationReason = "void"
)

// HearingStatusMessage — входящее уведомление о статусе слушания.
type HearingStatusMessage struct {
	ServiceCode         string               `json:"hmctsServiceCode"`
	DeploymentID        string               `json:"hmctsDeploymentId,omitempty"`
	CaseID              string               `json:"caseId"`
	HearingID           string               `json:"hearingId"`
	Status              HmcStatus            `json:"hmcStatus"`
	ListingStatus       ListingStatus        `json:"listingStatus"`
	SequenceNumber      int64                `json:"sequenceNumber"`
	CancellationReasons []CancellationReason `json:"cancellationReasons,omitempty"`
}

func (m HearingStatusMessage) Validate() error {
	if m.CaseID == "" {
		return fmt.Errorf("%w: hearing status message without case id", ErrValidation)
	}
	if m.HearingID == "" {
		return fmt.Errorf("%w: hearing status message without hearing id", ErrValidation)
	}
	if m.Status == "" {
		return fmt.Errorf("%w: hearing status message without status", ErrValidation)
	}
	return nil
}

type DesiredState string

const (
	DesiredCreate DesiredState = "create"
	DesiredUpdate DesiredState = "update"
	DesiredCancel DesiredState = "cancel"
)

// HearingRequest — исходящий запрос к системе планирования.
type HearingRequest struct {
	MessageID          string             `json:"messageId"`
	CaseID             string             `json:"ccdCaseId"`
	HearingRoute       HearingRoute       `json:"hearingRoute"`
	DesiredState       DesiredState       `json:"hearingState"`
	CancellationReason CancellationReason `json:"cancellationReason,omitempty"`
	Origin             EventType          `json:"origin,omitempty"`
}

// Validate проверяет правила причины отмены: отмена из завершающего события
// обязана нести причину, прочие отмены получают Other, у не-отмен причины нет.
func (r *HearingRequest) Validate() error {
	if r.CaseID == "" {
		return fmt.Errorf("%w: hearing request without case id", ErrValidation)
	}
	switch r.DesiredState {
	case DesiredCreate, DesiredUpdate:
		if r.CancellationReason != "" {
			return fmt.Errorf("%w: %s request carries cancellation reason", ErrValidation, r.DesiredState)
		}
	case DesiredCancel:
		if r.CancellationReason == "" {
			if r.Origin.IsTermination() {
				return fmt.Errorf("%w: cancel from %s requires a reason", ErrValidation, r.Origin)
			}
			r.CancellationReason = CancelOther
		}
	default:
		return fmt.Errorf("%w: unknown desired state %q", ErrValidation, r.DesiredState)
	}
	return nil
}
