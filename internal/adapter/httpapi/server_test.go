package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sscs-hearings-service/internal/adapter/memstore"
	"github.com/example/sscs-hearings-service/internal/dispatch"
	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/emit"
	"github.com/example/sscs-hearings-service/internal/handlers"
	"github.com/example/sscs-hearings-service/internal/usecase"
)

type fakePublisher struct {
	mu   sync.Mutex
	reqs []domain.HearingRequest
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, req domain.HearingRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.reqs = append(p.reqs, req)
	return nil
}

func setup(t *testing.T, pub *fakePublisher) (*Server, *memstore.Store) {
	t.Helper()
	reg := dispatch.NewRegistry()
	require.NoError(t, handlers.Register(reg))
	d := dispatch.New(reg, emit.NewDirect(pub, time.Second), dispatch.FeatureSet{ListAssistEnabled: true})
	store := memstore.New()
	_, err := store.Insert(context.Background(), domain.CaseSnapshot{
		CaseID:       "1",
		State:        domain.StateResponseReceived,
		HearingRoute: domain.RouteListAssist,
	})
	require.NoError(t, err)
	srv := NewServer(
		usecase.GetCase{Store: store},
		usecase.SubmitCaseEvent{Store: store, Dispatcher: d},
		usecase.HandleCallback{Dispatcher: d},
	)
	return srv, store
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)
	return w
}

func TestHandleGet(t *testing.T) {
	srv, _ := setup(t, &fakePublisher{})

	tests := []struct {
		name     string
		caseID   string
		wantCode int
	}{
		{name: "existing case", caseID: "1", wantCode: http.StatusOK},
		{name: "non-existing case", caseID: "non-existent", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(srv, http.MethodGet, "/cases/"+tt.caseID, "")
			assert.Equal(t, tt.wantCode, w.Code)
			assert.NotEmpty(t, w.Header().Get(requestIDHeader))
		})
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	srv, _ := setup(t, &fakePublisher{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "rid-1")
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rid-1", w.Header().Get(requestIDHeader))
}

func TestHandleCallback(t *testing.T) {
	pub := &fakePublisher{}
	srv, _ := setup(t, pub)

	body := `{"event_id":"voidCase","case_details":{"case_id":"9","state":"hearing","hearing_route":"listAssist"}}`
	w := do(srv, http.MethodPost, "/callbacks/aboutToSubmit", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp callbackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.StateVoid, resp.Data.State)
	assert.Empty(t, resp.Errors)
	require.Len(t, pub.reqs, 1)
	assert.Equal(t, domain.CancelOther, pub.reqs[0].CancellationReason)
}

func TestHandleCallbackBadRequests(t *testing.T) {
	srv, _ := setup(t, &fakePublisher{})

	w := do(srv, http.MethodPost, "/callbacks/aboutToSubmit", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(srv, http.MethodPost, "/callbacks/sometime", `{"event_id":"voidCase","case_details":{"case_id":"9"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(srv, http.MethodPost, "/callbacks/aboutToSubmit", `{"event_id":"voidCase"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSubmit(t *testing.T) {
	pub := &fakePublisher{}
	srv, store := setup(t, pub)

	w := do(srv, http.MethodPost, "/cases/1/events/readyToList", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp submitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Version)
	assert.Len(t, pub.reqs, 1)

	c, _, err := store.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, domain.HearingStateCreate, c.HearingState)
}

func TestHandleSubmitStatusCodes(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		srv, _ := setup(t, &fakePublisher{})
		w := do(srv, http.MethodPost, "/cases/1/events/updateListingRequirements", "")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), handlers.NoHearingError)
	})
	t.Run("unknown case", func(t *testing.T) {
		srv, _ := setup(t, &fakePublisher{})
		w := do(srv, http.MethodPost, "/cases/404/events/readyToList", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
	t.Run("publisher down", func(t *testing.T) {
		srv, _ := setup(t, &fakePublisher{err: domain.ErrUpstreamUnavailable})
		w := do(srv, http.MethodPost, "/cases/1/events/readyToList", "")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), handlers.PublishErrorMessage)
	})
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrVersionConflict))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.ErrIllegalDispatch))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(domain.ErrUpstreamUnavailable))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setup(t, &fakePublisher{})
	_ = do(srv, http.MethodPost, "/cases/1/events/readyToList", "")
	w := do(srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sscs_")
}
