package domain

// CaseState — состояние жизненного цикла дела.
type CaseState string

const (
	StateWithDwp          CaseState = "withDwp"
	StateResponseReceived CaseState = "responseReceived"
	StateReadyToList      CaseState = "readyToList"
	StateHearing          CaseState = "hearing"
	StateVoid             CaseState = "voidState"
	StateDormant          CaseState = "dormantAppealState"
)

// HearingRoute определяет, какая внешняя система ведёт расписание слушаний по делу.
type HearingRoute string

const (
	RouteUnset      HearingRoute = ""
	RouteListAssist HearingRoute = "listAssist"
	RouteGaps       HearingRoute = "gaps"
)

// HearingState — изменяемое подполе дела: какой запрос к планировщику сейчас в работе.
type HearingState string

const (
	HearingStateNone   HearingState = ""
	HearingStateCreate HearingState = "createHearing"
	HearingStateUpdate HearingState = "updateHearing"
	HearingStateCancel HearingState = "cancelHearing"
)

type DwpState string

const (
	DwpStateNone              DwpState = ""
	DwpStateHearingDateIssued DwpState = "hearingDateIssued"
)

// Hearing — запись о слушании во внешней системе планирования.
type Hearing struct {
	HearingID string    `json:"hearing_id"`
	Status    HmcStatus `json:"status"`
}

// CaseSnapshot — версия документа дела на момент чтения. Версия хранится отдельно
// и возвращается хранилищем вместе со снимком.
type CaseSnapshot struct {
	CaseID       string         `json:"case_id"`
	State        CaseState      `json:"state"`
	HearingRoute HearingRoute   `json:"hearing_route,omitempty"`
	HearingState HearingState   `json:"hearing_state,omitempty"`
	DwpState     DwpState       `json:"dwp_state,omitempty"`
	Region       string         `json:"region,omitempty"`
	Hearings     []Hearing      `json:"hearings,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

// Clone возвращает независимую копию снимка. Значения внутри Data копируются
// поверхностно: обработчики заменяют их целиком, а не меняют на месте.
func (c CaseSnapshot) Clone() CaseSnapshot {
	out := c
	if c.Hearings != nil {
		out.Hearings = append([]Hearing(nil), c.Hearings...)
	}
	if c.Data != nil {
		out.Data = make(map[string]any, len(c.Data))
		for k, v := range c.Data {
			out.Data[k] = v
		}
	}
	return out
}

// HearingByID ищет запись о слушании по внешнему идентификатору.
func (c CaseSnapshot) HearingByID(id string) (Hearing, bool) {
	for _, h := range c.Hearings {
		if h.HearingID == id {
			return h, true
		}
	}
	return Hearing{}, false
}

// WithHearingStatus возвращает копию снимка, в которой слушание id имеет статус st.
// Отсутствующая запись добавляется.
func (c CaseSnapshot) WithHearingStatus(id string, st HmcStatus) CaseSnapshot {
	out := c.Clone()
	for i := range out.Hearings {
		if out.Hearings[i].HearingID == id {
			out.Hearings[i].Status = st
			return out
		}
	}
	out.Hearings = append(out.Hearings, Hearing{HearingID: id, Status: st})
	return out
}
