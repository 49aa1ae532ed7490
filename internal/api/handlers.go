// Package api exposes HTTP handlers for the coach service.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"example.com/coach/internal/domain"
	"example.com/coach/internal/observability"
	"example.com/coach/internal/plangen"
	"example.com/coach/internal/webhook"
)

// maxWebhookBodySize caps inbound delivery payloads at 1 MB.
const maxWebhookBodySize = 1 << 20

// Fixed response bodies for the webhook route. Verification failures are
// deliberately opaque: the caller cannot distinguish a malformed signature
// header from a signature mismatch.
const (
	ackBody            = "Webhook received"
	missingHeadersBody = "No svix headers found"
	verifyFailedBody   = "Error verifying webhook"
)

// Handler coordinates HTTP requests with the webhook and plan pipelines.
type Handler struct {
	verifier   *webhook.Verifier
	dispatcher *webhook.Dispatcher
	pipeline   *plangen.Pipeline
	service    *domain.Service
	logger     *log.Logger
}

// NewHandler builds a Handler.
func NewHandler(verifier *webhook.Verifier, dispatcher *webhook.Dispatcher, pipeline *plangen.Pipeline, service *domain.Service) *Handler {
	return &Handler{
		verifier:   verifier,
		dispatcher: dispatcher,
		pipeline:   pipeline,
		service:    service,
		logger:     log.New(log.Writer(), "[api] ", log.LstdFlags),
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/clerk-webhook", h.clerkWebhook)
	mux.HandleFunc("/vapi/generate-program", h.generateProgram)
	mux.HandleFunc("/vapi/plans", h.listPlans)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) clerkWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeText(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		observability.RecordWebhookRejected("body_read")
		writeText(w, http.StatusBadRequest, verifyFailedBody)
		return
	}

	id := r.Header.Get("svix-id")
	timestamp := r.Header.Get("svix-timestamp")
	signature := r.Header.Get("svix-signature")
	if id == "" || timestamp == "" || signature == "" {
		observability.RecordWebhookRejected("missing_headers")
		writeText(w, http.StatusBadRequest, missingHeadersBody)
		return
	}

	event, err := h.verifier.Verify(body, id, timestamp, signature)
	if err != nil {
		observability.RecordWebhookRejected(rejectionReason(err))
		writeText(w, http.StatusBadRequest, verifyFailedBody)
		return
	}
	observability.RecordWebhookVerified()

	// Provider webhook semantics require a prompt 2xx once verification has
	// passed; dispatch failures are logged and the delivery is acknowledged
	// to avoid redelivery storms.
	if err := h.dispatcher.Dispatch(r.Context(), event); err != nil {
		h.logger.Printf("webhook dispatch failed (svix_id=%s, type=%s): %v", id, event.Type, err)
	}

	writeText(w, http.StatusOK, ackBody)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, webhook.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, webhook.ErrTimestampOutOfRange):
		return "stale_timestamp"
	default:
		return "malformed_event"
	}
}

func (h *Handler) generateProgram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, generateResponse{Success: false, Error: "unsupported method"})
		return
	}

	var req plangen.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, generateResponse{Success: false, Error: "unable to parse body"})
		return
	}

	plan, err := h.pipeline.Generate(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, plangen.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		h.logger.Printf("plan generation failed (user_id=%s): %v", req.UserID, err)
		writeJSON(w, status, generateResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Success: true,
		Data: &generatedPlan{
			PlanID:      plan.ID,
			WorkoutPlan: plan.WorkoutPlan,
			DietPlan:    plan.DietPlan,
		},
	})
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, listPlansResponse{Success: false, Error: "unsupported method"})
		return
	}

	userID := r.URL.Query().Get("user_id")
	if strings.TrimSpace(userID) == "" {
		writeJSON(w, http.StatusBadRequest, listPlansResponse{Success: false, Error: "missing user_id parameter"})
		return
	}

	plans, err := h.service.ListPlansByUser(r.Context(), userID)
	if err != nil {
		h.logger.Printf("list plans failed (user_id=%s): %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, listPlansResponse{Success: false, Error: "server error"})
		return
	}

	views := make([]planView, 0, len(plans))
	for _, plan := range plans {
		views = append(views, toPlanView(plan))
	}
	writeJSON(w, http.StatusOK, listPlansResponse{Success: true, Data: views})
}

// generateResponse is the JSON envelope for POST /vapi/generate-program.
type generateResponse struct {
	Success bool           `json:"success"`
	Data    *generatedPlan `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type generatedPlan struct {
	PlanID      string             `json:"planId"`
	WorkoutPlan domain.WorkoutPlan `json:"workoutPlan"`
	DietPlan    domain.DietPlan    `json:"dietPlan"`
}

type listPlansResponse struct {
	Success bool       `json:"success"`
	Data    []planView `json:"data,omitempty"`
	Error   string     `json:"error,omitempty"`
}

type planView struct {
	PlanID      string             `json:"planId"`
	Name        string             `json:"name"`
	WorkoutPlan domain.WorkoutPlan `json:"workoutPlan"`
	DietPlan    domain.DietPlan    `json:"dietPlan"`
	IsActive    bool               `json:"isActive"`
	CreatedAt   time.Time          `json:"createdAt"`
}

func toPlanView(plan domain.Plan) planView {
	return planView{
		PlanID:      plan.ID,
		Name:        plan.Name,
		WorkoutPlan: plan.WorkoutPlan,
		DietPlan:    plan.DietPlan,
		IsActive:    plan.IsActive,
		CreatedAt:   plan.CreatedAt,
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
