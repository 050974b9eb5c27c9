package advice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/medicarehealth/practice-platform/internal/catalog"
	"github.com/medicarehealth/practice-platform/internal/observability/metrics"
	"github.com/medicarehealth/practice-platform/pkg/logging"
)

var adviceTracer = otel.Tracer("medicare.internal.advice")

// ProfileLookup fetches health context for the optional prompt
// enrichment. Failures are swallowed; the request proceeds without it.
type ProfileLookup interface {
	HealthContext(ctx context.Context, userID string) (allergies, conditions string, err error)
}

// CatalogContext supplies live doctor and service listings for the
// appointment recommendation prompt.
type CatalogContext interface {
	ListDoctors(ctx context.Context) ([]*catalog.Doctor, error)
	ListServices(ctx context.Context) ([]*catalog.Service, error)
}

// Options configures the advice handler.
type Options struct {
	// Model answers the streaming features; FastModel answers the
	// blocking appointment recommendation.
	Model     string
	FastModel string
	MaxTokens int32
	Timeout   time.Duration
}

// Handler exposes the AI advice endpoints. A nil LLM client means the
// feature is unconfigured and every request fails closed with 503.
type Handler struct {
	llm      LLMClient
	opts     Options
	profiles ProfileLookup
	catalog  CatalogContext
	logger   *logging.Logger
	metrics  *metrics.AdviceMetrics
}

// NewHandler creates the advice HTTP handler.
func NewHandler(llm LLMClient, opts Options, profiles ProfileLookup, cat CatalogContext, logger *logging.Logger, m *metrics.AdviceMetrics) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 800
	}
	return &Handler{llm: llm, opts: opts, profiles: profiles, catalog: cat, logger: logger, metrics: m}
}

// SymptomAnalysis handles POST /api/ai/symptom-analysis, streaming the
// model's answer over SSE.
func (h *Handler) SymptomAnalysis(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symptoms string `json:"symptoms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Symptoms) == "" {
		respondError(w, http.StatusBadRequest, "Valid symptoms description is required")
		return
	}

	h.streamAdvice(w, r, "symptom_analysis", LLMRequest{
		Model:       h.opts.Model,
		System:      []string{symptomAnalysisPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "Please analyze these symptoms: " + body.Symptoms}},
		MaxTokens:   h.opts.MaxTokens,
		Temperature: -1,
	}, "Failed to analyze symptoms")
}

// HealthRecommendations handles POST /api/ai/health-recommendations.
// When a user id is supplied, stored allergies and conditions are
// appended to the prompt; a failed lookup is logged and skipped.
func (h *Handler) HealthRecommendations(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID        string `json:"userId"`
		HealthProfile string `json:"healthProfile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.HealthProfile) == "" {
		respondError(w, http.StatusBadRequest, "Valid health profile information is required")
		return
	}

	prompt := "Please provide health recommendations based on this profile: " + body.HealthProfile
	if body.UserID != "" && h.profiles != nil {
		allergies, conditions, err := h.profiles.HealthContext(r.Context(), body.UserID)
		if err != nil {
			h.logger.Debug("profile enrichment skipped", "user_id", body.UserID, "error", err)
		} else {
			if allergies == "" {
				allergies = "None recorded"
			}
			if conditions == "" {
				conditions = "None recorded"
			}
			prompt += fmt.Sprintf("\nAdditional information from patient profile:\n- Allergies: %s\n- Medical conditions: %s", allergies, conditions)
		}
	}

	h.streamAdvice(w, r, "health_recommendations", LLMRequest{
		Model:       h.opts.Model,
		System:      []string{healthRecommendationsPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   h.opts.MaxTokens,
		Temperature: -1,
	}, "Failed to generate health recommendations")
}

// AppointmentRecommendation handles POST /api/ai/appointment-recommendation
// with a single JSON response rather than a stream.
func (h *Handler) AppointmentRecommendation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PatientNeeds string `json:"patientNeeds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.PatientNeeds) == "" {
		respondError(w, http.StatusBadRequest, "Invalid request. Please provide patient needs.")
		return
	}
	if h.llm == nil {
		respondError(w, http.StatusServiceUnavailable, "AI advice is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()
	ctx, span := adviceTracer.Start(ctx, "advice.appointment_recommendation")
	defer span.End()

	prompt := buildAppointmentPrompt(body.PatientNeeds, h.doctorsInfo(ctx), h.servicesInfo(ctx))

	start := time.Now()
	resp, err := h.llm.Complete(ctx, LLMRequest{
		Model:       h.opts.FastModel,
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   h.opts.MaxTokens,
		Temperature: 0.7,
	})
	h.metrics.ObserveLatency("appointment_recommendation", time.Since(start).Seconds())
	if err != nil {
		h.metrics.ObserveRequest("appointment_recommendation", "error")
		span.SetAttributes(attribute.String("advice.error", err.Error()))
		h.logger.Error("appointment recommendation failed", "error", err)
		respondError(w, http.StatusBadGateway, "Failed to generate recommendations")
		return
	}
	h.metrics.ObserveRequest("appointment_recommendation", "ok")

	respondJSON(w, http.StatusOK, map[string]string{"response": resp.Text})
}

// streamAdvice runs a streaming completion and relays chunks over SSE.
func (h *Handler) streamAdvice(w http.ResponseWriter, r *http.Request, feature string, req LLMRequest, failureMsg string) {
	if h.llm == nil {
		respondError(w, http.StatusServiceUnavailable, "AI advice is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()
	ctx, span := adviceTracer.Start(ctx, "advice."+feature)
	defer span.End()

	start := time.Now()
	chunks, err := h.openStream(ctx, req)
	if err != nil {
		h.metrics.ObserveRequest(feature, "error")
		span.SetAttributes(attribute.String("advice.error", err.Error()))
		h.logger.Error("advice stream failed", "feature", feature, "error", err)
		respondError(w, http.StatusBadGateway, failureMsg)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.metrics.ObserveRequest(feature, "error")
		respondError(w, http.StatusInternalServerError, failureMsg)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	status := "ok"
	for chunk := range chunks {
		if chunk.Error != nil {
			status = "error"
			h.logger.Error("advice stream interrupted", "feature", feature, "error", chunk.Error)
			writeSSE(w, map[string]string{"error": failureMsg})
			flusher.Flush()
			break
		}
		if chunk.Text != "" {
			writeSSE(w, map[string]string{"text": chunk.Text})
			flusher.Flush()
		}
		if chunk.Done {
			break
		}
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()

	h.metrics.ObserveRequest(feature, status)
	h.metrics.ObserveLatency(feature, time.Since(start).Seconds())
}

// openStream prefers a true provider stream, falling back to a single
// completion emitted as one chunk.
func (h *Handler) openStream(ctx context.Context, req LLMRequest) (<-chan StreamChunk, error) {
	if streamer, ok := h.llm.(StreamingLLMClient); ok {
		return streamer.CompleteStream(ctx, req)
	}
	resp, err := h.llm.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	chunks := make(chan StreamChunk, 2)
	chunks <- StreamChunk{Text: resp.Text}
	chunks <- StreamChunk{Done: true, Usage: resp.Usage}
	close(chunks)
	return chunks, nil
}

func (h *Handler) doctorsInfo(ctx context.Context) string {
	if h.catalog == nil {
		return ""
	}
	doctors, err := h.catalog.ListDoctors(ctx)
	if err != nil {
		h.logger.Debug("doctor context skipped", "error", err)
		return ""
	}
	if len(doctors) > 10 {
		doctors = doctors[:10]
	}
	parts := make([]string, 0, len(doctors))
	for _, d := range doctors {
		parts = append(parts, fmt.Sprintf("%s (%s)", d.Name, d.Specialty))
	}
	return strings.Join(parts, ", ")
}

func (h *Handler) servicesInfo(ctx context.Context) string {
	if h.catalog == nil {
		return ""
	}
	services, err := h.catalog.ListServices(ctx)
	if err != nil {
		h.logger.Debug("service context skipped", "error", err)
		return ""
	}
	if len(services) > 10 {
		services = services[:10]
	}
	parts := make([]string, 0, len(services))
	for _, s := range services {
		parts = append(parts, s.Name)
	}
	return strings.Join(parts, ", ")
}

func writeSSE(w http.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
