package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/example/sscs-hearings-service/internal/dispatch"
	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/log"
	"github.com/example/sscs-hearings-service/internal/usecase"
)

const requestIDHeader = "X-Request-ID"

type Server struct {
	Router   *mux.Router
	UCGet    usecase.GetCase
	UCSubmit usecase.SubmitCaseEvent
	UCCall   usecase.HandleCallback
	logger   zerolog.Logger
}

func NewServer(get usecase.GetCase, submit usecase.SubmitCaseEvent, call usecase.HandleCallback) *Server {
	s := &Server{
		Router:   mux.NewRouter(),
		UCGet:    get,
		UCSubmit: submit,
		UCCall:   call,
		logger:   log.WithComponent("http"),
	}
	s.Router.Use(s.requestID, s.accessLog)
	s.Router.HandleFunc("/callbacks/{phase}", s.handleCallback).Methods(http.MethodPost)
	s.Router.HandleFunc("/cases/{id}/events/{event}", s.handleSubmit).Methods(http.MethodPost)
	s.Router.HandleFunc("/cases/{id}", s.handleGet).Methods(http.MethodGet)
	s.Router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.Router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	return s
}

// callbackRequest — тело обратного вызова жизненного цикла дела.
type callbackRequest struct {
	EventID        domain.EventType     `json:"event_id"`
	CaseDetails    *domain.CaseSnapshot `json:"case_details"`
	CaseBefore     *domain.CaseSnapshot `json:"case_details_before,omitempty"`
	IgnoreWarnings bool                 `json:"ignore_warnings"`
}

type callbackResponse struct {
	Data     domain.CaseSnapshot `json:"data"`
	Errors   []string            `json:"errors"`
	Warnings []string            `json:"warnings"`
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed callback body")
		return
	}
	ev := domain.Event{
		Type:           req.EventID,
		Phase:          domain.Phase(mux.Vars(r)["phase"]),
		Before:         req.CaseBefore,
		IgnoreWarnings: req.IgnoreWarnings,
	}
	if req.CaseDetails != nil {
		ev.Case = *req.CaseDetails
	}
	out, err := s.UCCall.Execute(r.Context(), ev)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(out))
}

func toResponse(out *dispatch.Outcome) callbackResponse {
	resp := callbackResponse{Data: out.Case, Errors: out.Errors, Warnings: out.Warnings}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	return resp
}

type submitResponse struct {
	callbackResponse
	Version int64 `json:"version"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ignore := r.URL.Query().Get("ignore_warnings") == "true"
	res, err := s.UCSubmit.Execute(r.Context(), vars["id"], domain.EventType(vars["event"]), ignore)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, submitResponse{callbackResponse: toResponse(res.Outcome), Version: res.Version})
	case errors.Is(err, domain.ErrEventRejected):
		writeJSON(w, http.StatusUnprocessableEntity, submitResponse{callbackResponse: toResponse(res.Outcome), Version: res.Version})
	default:
		s.writeDomainError(w, r, err)
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	c, v, err := s.UCGet.Execute(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"case": c, "version": v})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidEvent), errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		l := log.WithContext(r.Context(), s.logger)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, code, err.Error())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(log.ContextWithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		l := log.WithContext(r.Context(), s.logger)
		l.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
