package log

// Имена полей структурированного лога.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldCaseID    = "case_id"
	FieldHearingID = "hearing_id"
	FieldEvent     = "event"
	FieldPhase     = "phase"
	FieldHandler   = "handler"
	FieldStatus    = "hmc_status"
	FieldListing   = "listing_status"
	FieldAttempts  = "attempts"
	FieldVersion   = "version"
	FieldOldState  = "old_state"
	FieldNewState  = "new_state"
)
