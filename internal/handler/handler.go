package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Dan9191/finsight/internal/integrations/backend"
	"github.com/Dan9191/finsight/internal/middleware"
	"github.com/Dan9191/finsight/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Home describes the pages and whether the visitor is signed in
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"signed_in": false,
		"pages":     []string{"/dashboard", "/upload", "/forecast", "/simulation", "/optimize", "/ask"},
	}
	if sess, err := h.svc.Session(r.Context(), middleware.VisitorID(r.Context())); err == nil {
		resp["signed_in"] = true
		resp["user"] = sess.User
	}
	writeJSON(w, http.StatusOK, resp)
}

// SignIn handles user authentication
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.svc.SignIn(r.Context(), middleware.VisitorID(r.Context()), req.Email, req.Password)
	if backend.IsKind(err, backend.KindAuth) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "redirect": "/dashboard"})
}

// SignOut clears the session
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SignOut(r.Context(), middleware.VisitorID(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": middleware.SignInPath})
}

// Dashboard loads the dashboard panels
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	initial := 0.0
	if s := q.Get("initial"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			h.fail(w, r, &service.ValidationError{Field: "initial", Message: "initial net worth must be a number"})
			return
		}
		initial = v
	}

	view, err := h.svc.Dashboard(r.Context(), middleware.VisitorID(r.Context()), initial)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Upload handles a multipart file upload in the "file" field
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, &service.ValidationError{Field: "file", Message: "choose a file to upload"})
		return
	}
	defer file.Close()

	view, err := h.svc.Upload(r.Context(), middleware.VisitorID(r.Context()), header.Filename, file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Uploads lists the uploaded files
func (h *Handler) Uploads(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.Uploads(r.Context(), middleware.VisitorID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// Selection returns the dataset selection
func (h *Handler) Selection(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Selection(r.Context(), middleware.VisitorID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateSelection selects a file, a column or manual input
func (h *Handler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	var upd service.SelectionUpdate
	if !h.decode(w, r, &upd) {
		return
	}
	view, err := h.svc.UpdateSelection(r.Context(), middleware.VisitorID(r.Context()), upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Forecast runs a forecast
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	var in service.ForecastInput
	if !h.decode(w, r, &in) {
		return
	}
	view, err := h.svc.Forecast(r.Context(), middleware.VisitorID(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Simulate runs a Monte Carlo simulation
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var in service.SimulationInput
	if !h.decode(w, r, &in) {
		return
	}
	view, err := h.svc.Simulate(r.Context(), middleware.VisitorID(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Presets lists the simulation scenario presets
func (h *Handler) Presets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": h.svc.Presets()})
}

// Optimize optimizes the uploaded portfolio
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	var in service.OptimizeInput
	if !h.decode(w, r, &in) {
		return
	}
	view, err := h.svc.Optimize(r.Context(), middleware.VisitorID(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Advice explains the latest result of one page
func (h *Handler) Advice(w http.ResponseWriter, r *http.Request) {
	var in service.AdviceInput
	if !h.decode(w, r, &in) {
		return
	}
	view, err := h.svc.Advise(r.Context(), middleware.VisitorID(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Ask sends a free question to the AI
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.svc.Ask(r.Context(), middleware.VisitorID(r.Context()), req.Question)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Report emails the latest results
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To string `json:"to"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.SendReport(r.Context(), middleware.VisitorID(r.Context()), req.To); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// Health reports liveness and whether the backend answers
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "backend": "ok"}
	if err := h.svc.Health(r.Context()); err != nil {
		resp["backend"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads a JSON body; an empty body leaves v unchanged
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

// fail maps an error to its response
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	visitorID := middleware.VisitorID(r.Context())

	var ve *service.ValidationError
	var be *backend.Error
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"field": ve.Field, "error": ve.Message})
	case errors.Is(err, service.ErrUnauthorized):
		middleware.Unauthorized(w)
	case errors.As(err, &be) && be.Kind == backend.KindAuth:
		if err := h.svc.SignOut(r.Context(), visitorID); err != nil {
			h.log.Warnf("Failed to clear session of visitor %s: %v", visitorID, err)
		}
		middleware.Unauthorized(w)
	case errors.As(err, &be) && be.Kind == backend.KindValidation:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"field": be.Field, "error": be.Message})
	case errors.As(err, &be):
		h.log.WithFields(logrus.Fields{"visitor": visitorID, "op": be.Op, "kind": be.Kind}).Warnf("Backend call failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"banner": banner(be)})
	case errors.Is(err, service.ErrSuperseded):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrMailDisabled):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case errors.Is(err, context.Canceled):
		h.log.Debugf("Request of visitor %s cancelled", visitorID)
	default:
		h.log.Errorf("Request of visitor %s failed: %v", visitorID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal error"})
	}
}

func banner(be *backend.Error) string {
	if be.Kind == backend.KindNetwork {
		return "Could not reach the FinSight backend. Check your connection and try again."
	}
	if be.Message != "" {
		return fmt.Sprintf("The %s request failed: %s", be.Op, be.Message)
	}
	return fmt.Sprintf("The %s request failed.", be.Op)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
