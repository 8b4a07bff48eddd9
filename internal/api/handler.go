// Package api serves the public admission intake and tracking endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"admissions-engine/internal/admissions"
	"admissions-engine/internal/admissions/lookup"
	apperrors "admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/common/validation"
	"admissions-engine/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultMaxBodyBytes = 64 << 10

type Intake interface {
	Submit(ctx context.Context, pool models.Pool, form models.Application) (string, error)
}

type Tracker interface {
	Resolve(ctx context.Context, applicationNumber, claimedMobile string) (*lookup.Resolution, error)
}

// Check reports whether a dependency is ready to serve traffic.
type Check func(ctx context.Context) error

type Handler struct {
	intake       Intake
	tracker      Tracker
	checks       map[string]Check
	maxBodyBytes int64
	logger       logger.Logger
	now          func() time.Time
}

func NewHandler(intake Intake, tracker Tracker, checks map[string]Check, maxBodyBytes int64, log logger.Logger) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &Handler{
		intake:       intake,
		tracker:      tracker,
		checks:       checks,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.Component(log, "api"),
		now:          time.Now,
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)
	r.Route("/api/v1/applications", func(r chi.Router) {
		r.Post("/status", h.HandleTrack)
		r.Post("/{pool}", h.HandleSubmit)
	})
}

type submitResponse struct {
	ApplicationNumber string `json:"applicationNumber"`
}

// HandleSubmit handles POST /api/v1/applications/{pool}.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	pool, err := models.ParsePool(chi.URLParam(r, "pool"))
	if err != nil {
		h.writeError(w, r, admissions.NewValidationError("pool", err.Error()))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.writeError(w, r, admissions.NewValidationError("body", "request body too large or unreadable"))
		return
	}

	result, err := validation.ValidateForm(pool, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := result.Err(); err != nil {
		h.writeError(w, r, err)
		return
	}

	var form models.Application
	if err := json.Unmarshal(body, &form); err != nil {
		h.writeError(w, r, admissions.NewValidationError("body", err.Error()))
		return
	}

	number, err := h.intake.Submit(ctx, pool, form)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("application submitted", map[string]interface{}{
		"requestId":         requestID,
		"pool":              string(pool),
		"applicationNumber": number,
	})
	writeJSON(w, http.StatusCreated, submitResponse{ApplicationNumber: number})
}

type trackRequest struct {
	ApplicationNumber string `json:"applicationNumber"`
	Mobile            string `json:"mobile"`
}

// HandleTrack handles POST /api/v1/applications/status. The mobile travels in
// the body so it does not end up in access logs.
func (h *Handler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, r, admissions.NewValidationError("body", "malformed JSON"))
		return
	}

	res, err := h.tracker.Resolve(r.Context(), req.ApplicationNumber, req.Mobile)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   h.now().Format(time.RFC3339),
	})
}

func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failures := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		h.logger.Warn("readiness check failed", map[string]interface{}{"failures": failures})
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "not_ready",
			"failures": failures,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   h.now().Format(time.RFC3339),
	})
}

type errorResponse struct {
	Code    apperrors.ErrorCode     `json:"code"`
	Message string                  `json:"message"`
	Fields  []admissions.FieldError `json:"fields,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	std := apperrors.Classify(err)
	status := apperrors.HTTPStatus(std.Code)

	resp := errorResponse{Code: std.Code, Message: std.Message}
	var verr *admissions.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}

	fields := map[string]interface{}{
		"requestId": middleware.GetReqID(r.Context()),
		"path":      r.URL.Path,
		"code":      string(std.Code),
		"status":    status,
	}
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).Error("request failed", fields)
	} else {
		h.logger.Info("request rejected", fields)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
