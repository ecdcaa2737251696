package hearing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sscs-hearings-service/internal/domain"
)

func TestClassifyIsTotal(t *testing.T) {
	statuses := append([]domain.HmcStatus{"SOMETHING_NEW", ""}, domain.AllHmcStatuses...)
	listings := append([]domain.ListingStatus{"WHATEVER"}, domain.AllListingStatuses...)
	for _, st := range statuses {
		for _, ls := range listings {
			d := Classify(st, ls)
			assert.Contains(t, []Decision{Ignore, Apply, Escalate}, d, "status %q listing %q", st, ls)
			if d == Apply {
				_, ok := transitions[st]
				assert.True(t, ok, "apply without transition for %q", st)
			}
		}
	}
}

func TestClassifyExceptionAlwaysEscalates(t *testing.T) {
	for _, ls := range domain.AllListingStatuses {
		assert.Equal(t, Escalate, Classify(domain.HmcException, ls), "listing %q", ls)
	}
}

func TestClassifyListedNeedsFixedListing(t *testing.T) {
	assert.Equal(t, Apply, Classify(domain.HmcListed, domain.ListingFixed))
	assert.Equal(t, Apply, Classify(domain.HmcUpdateSubmitted, domain.ListingFixed))
	for _, ls := range domain.AllListingStatuses {
		if ls == domain.ListingFixed {
			continue
		}
		assert.Equal(t, Ignore, Classify(domain.HmcAwaitingListing, ls), "listing %q", ls)
		assert.Equal(t, Ignore, Classify(domain.HmcListed, ls), "listing %q", ls)
	}
}

func TestClassifyIgnoresRequestEchoes(t *testing.T) {
	for _, st := range []domain.HmcStatus{
		domain.HmcHearingRequested,
		domain.HmcUpdateRequested,
		domain.HmcCancellationRequested,
		domain.HmcCancellationSubmitted,
		domain.HmcNotFound,
		"SOMETHING_NEW",
	} {
		assert.Equal(t, Ignore, Classify(st, domain.ListingFixed), "status %q", st)
	}
}

func TestClassifyAppliesTerminalStatuses(t *testing.T) {
	for _, st := range []domain.HmcStatus{domain.HmcCancelled, domain.HmcAwaitingActuals, domain.HmcCompleted, domain.HmcAdjourned} {
		assert.Equal(t, Apply, Classify(st, domain.ListingUnknown), "status %q", st)
	}
}

func TestTargetTransitions(t *testing.T) {
	base := domain.CaseSnapshot{
		CaseID:       "1",
		State:        domain.StateReadyToList,
		HearingRoute: domain.RouteListAssist,
		HearingState: domain.HearingStateCreate,
	}
	tests := []struct {
		name   string
		msg    domain.HearingStatusMessage
		state  domain.CaseState
		dwp    domain.DwpState
		record domain.HmcStatus
	}{
		{"listed", domain.HearingStatusMessage{Status: domain.HmcListed}, domain.StateHearing, domain.DwpStateHearingDateIssued, domain.HmcListed},
		{"update submitted", domain.HearingStatusMessage{Status: domain.HmcUpdateSubmitted}, domain.StateHearing, domain.DwpStateHearingDateIssued, domain.HmcListed},
		{"awaiting listing", domain.HearingStatusMessage{Status: domain.HmcAwaitingListing}, domain.StateReadyToList, domain.DwpStateNone, domain.HmcAwaitingListing},
		{"adjourned", domain.HearingStatusMessage{Status: domain.HmcAdjourned}, domain.StateReadyToList, domain.DwpStateNone, domain.HmcAdjourned},
		{"completed", domain.HearingStatusMessage{Status: domain.HmcCompleted}, domain.StateReadyToList, domain.DwpStateNone, domain.HmcCompleted},
		{"cancelled other", domain.HearingStatusMessage{Status: domain.HmcCancelled, CancellationReasons: []domain.CancellationReason{domain.CancelOther}}, domain.StateReadyToList, domain.DwpStateNone, domain.HmcCancelled},
		{"cancelled withdrawn", domain.HearingStatusMessage{Status: domain.HmcCancelled, CancellationReasons: []domain.CancellationReason{domain.CancelWithdrawn}}, domain.StateDormant, domain.DwpStateNone, domain.HmcCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			msg.CaseID, msg.HearingID = "1", "h1"
			got, ok := Target(base, msg)
			require.True(t, ok)
			assert.Equal(t, tt.state, got.State)
			assert.Equal(t, tt.dwp, got.DwpState)
			assert.Equal(t, domain.HearingStateNone, got.HearingState)
			h, found := got.HearingByID("h1")
			require.True(t, found)
			assert.Equal(t, tt.record, h.Status)
		})
	}
	assert.Empty(t, base.Hearings, "input snapshot must stay untouched")
}

func TestTargetIsIdempotent(t *testing.T) {
	base := domain.CaseSnapshot{CaseID: "1", State: domain.StateReadyToList, HearingState: domain.HearingStateCreate}
	msg := domain.HearingStatusMessage{CaseID: "1", HearingID: "h1", Status: domain.HmcListed, ListingStatus: domain.ListingFixed}

	once, ok := Target(base, msg)
	require.True(t, ok)
	twice, ok := Target(once, msg)
	require.True(t, ok)
	assert.Equal(t, once, twice)
	assert.True(t, sameHearingFields(once, twice))
}

func TestTargetUnknownStatus(t *testing.T) {
	base := domain.CaseSnapshot{CaseID: "1"}
	got, ok := Target(base, domain.HearingStatusMessage{Status: domain.HmcHearingRequested})
	assert.False(t, ok)
	assert.Equal(t, base, got)
}
