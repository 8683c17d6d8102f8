// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// EventHandler holds all HTTP handlers for the campus events API.
type EventHandler struct {
	ledger   *service.LedgerService
	reports  *service.ReportService
	accounts *service.AccountService
	store    repository.Store
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(ledger *service.LedgerService, reports *service.ReportService, accounts *service.AccountService, store repository.Store) *EventHandler {
	return &EventHandler{ledger: ledger, reports: reports, accounts: accounts, store: store}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, model.Envelope{Success: true, Data: data, Message: message})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.Envelope{Success: false, Error: msg})
}

// writeServiceError maps a service error kind onto a status code. Client
// errors are logged at warn, server errors at error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusForbidden && principalFrom(r.Context()).IsAnonymous() {
		status = http.StatusUnauthorized
	}

	logger := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request failed")
	} else {
		logger.Warn().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request rejected")
	}
	writeError(w, status, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrConstraintViolation):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store unavailable, retry later"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return decodeJSON(r, dst)
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id", service.ErrInvalidArgument)
	}
	return id, nil
}

// queryInt64 returns nil when the parameter is absent.
func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", service.ErrInvalidArgument, name)
	}
	return &v, nil
}

// ─── Auth ─────────────────────────────────────────────────────────────────────

// Signup handles POST /auth/register
func (h *EventHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.accounts.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]int64{"user_id": id}, "registered")
}

// Login handles POST /auth/login
func (h *EventHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res, "")
}

// ─── Events ───────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.ledger.CreateEvent(r.Context(), principalFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]int64{"event_id": id}, "event created")
}

// ListEvents handles GET /events
// Returns every event with its registration and attendance counts.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	collegeID, err := queryInt64(r, "college_id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	events, err := h.ledger.ListEvents(r.Context(), collegeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, events, "")
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	event, err := h.ledger.GetEvent(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, event, "")
}

// Register handles POST /events/{id}/register
// A student may omit student_id to register themselves.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req model.RegisterRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	regID, err := h.ledger.RegisterStudent(r.Context(), principalFrom(r.Context()), id, req.StudentID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]int64{"registration_id": regID}, "registered")
}

// CancelEvent handles POST /events/{id}/cancel
func (h *EventHandler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.ledger.CancelEvent(r.Context(), principalFrom(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, nil, "event cancelled")
}

// ListRegistrations handles GET /events/{id}/registrations
func (h *EventHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	regs, err := h.ledger.ListRegistrations(r.Context(), principalFrom(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, regs, "")
}

// ─── Attendance & feedback ────────────────────────────────────────────────────

// MarkAttendance handles POST /attendance
func (h *EventHandler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req model.AttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.ledger.MarkAttendance(r.Context(), principalFrom(r.Context()), req.StudentID, req.EventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]int64{"attendance_id": id}, "attendance marked")
}

// SubmitFeedback handles POST /feedback
func (h *EventHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req model.FeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.ledger.SubmitFeedback(r.Context(), principalFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]int64{"feedback_id": id}, "feedback submitted")
}

// ─── Reports ──────────────────────────────────────────────────────────────────

func reportFilter(r *http.Request) (service.ReportFilter, error) {
	collegeID, err := queryInt64(r, "college_id")
	if err != nil {
		return service.ReportFilter{}, err
	}
	limit, err := queryInt64(r, "limit")
	if err != nil {
		return service.ReportFilter{}, err
	}
	f := service.ReportFilter{CollegeID: collegeID}
	if limit != nil {
		f.Limit = int(*limit)
	}
	return f, nil
}

// report adapts one ReportService method to an http.HandlerFunc.
func report[T any](fn func(r *http.Request, f service.ReportFilter) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := reportFilter(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		out, err := fn(r, f)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, out, "")
	}
}

// EventPopularity handles GET /reports/event_popularity
func (h *EventHandler) EventPopularity() http.HandlerFunc {
	return report(func(r *http.Request, f service.ReportFilter) ([]model.EventPopularity, error) {
		return h.reports.EventPopularity(r.Context(), f)
	})
}

// TopActiveStudents handles GET /reports/top_active_students
func (h *EventHandler) TopActiveStudents() http.HandlerFunc {
	return report(func(r *http.Request, f service.ReportFilter) ([]model.ActiveStudent, error) {
		return h.reports.TopActiveStudents(r.Context(), f)
	})
}

// AverageFeedback handles GET /reports/average_feedback
func (h *EventHandler) AverageFeedback() http.HandlerFunc {
	return report(func(r *http.Request, f service.ReportFilter) ([]model.EventFeedback, error) {
		return h.reports.AverageFeedback(r.Context(), f)
	})
}

// TopEventsFeedback handles GET /reports/top_events_feedback
func (h *EventHandler) TopEventsFeedback() http.HandlerFunc {
	return report(func(r *http.Request, f service.ReportFilter) ([]model.EventFeedback, error) {
		return h.reports.TopEventsFeedback(r.Context(), f)
	})
}

// InactiveStudents handles GET /reports/inactive_students
func (h *EventHandler) InactiveStudents() http.HandlerFunc {
	return report(func(r *http.Request, f service.ReportFilter) ([]model.InactiveStudent, error) {
		return h.reports.InactiveStudents(r.Context(), f)
	})
}

// Dashboard handles GET /reports/dashboard
func (h *EventHandler) Dashboard() http.HandlerFunc {
	return report(func(r *http.Request, f service.ReportFilter) (*model.Dashboard, error) {
		return h.reports.Dashboard(r.Context(), f.CollegeID)
	})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func (h *EventHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
