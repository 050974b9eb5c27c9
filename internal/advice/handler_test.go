package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/medicarehealth/practice-platform/internal/catalog"
	"github.com/medicarehealth/practice-platform/internal/observability/metrics"
	"github.com/medicarehealth/practice-platform/pkg/logging"
)

type fakeLLM struct {
	lastReq LLMRequest
	text    string
	err     error
}

func (f *fakeLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	return LLMResponse{Text: f.text}, nil
}

type fakeStreamingLLM struct {
	fakeLLM
	chunks []string
}

func (f *fakeStreamingLLM) CompleteStream(_ context.Context, req LLMRequest) (<-chan StreamChunk, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan StreamChunk, len(f.chunks)+1)
	for _, c := range f.chunks {
		out <- StreamChunk{Text: c}
	}
	out <- StreamChunk{Done: true}
	close(out)
	return out, nil
}

type fakeProfiles struct {
	allergies  string
	conditions string
	err        error
}

func (f *fakeProfiles) HealthContext(context.Context, string) (string, string, error) {
	return f.allergies, f.conditions, f.err
}

type fakeCatalogCtx struct {
	doctors  []*catalog.Doctor
	services []*catalog.Service
}

func (f *fakeCatalogCtx) ListDoctors(context.Context) ([]*catalog.Doctor, error) {
	return f.doctors, nil
}

func (f *fakeCatalogCtx) ListServices(context.Context) ([]*catalog.Service, error) {
	return f.services, nil
}

func newAdviceHandler(llm LLMClient, profiles ProfileLookup, cat CatalogContext) *Handler {
	opts := Options{Model: "llama-3.1-70b-instant", FastModel: "llama3-8b-8192", MaxTokens: 800, Timeout: 5 * time.Second}
	m := metrics.NewAdviceMetrics(prometheus.NewRegistry())
	return NewHandler(llm, opts, profiles, cat, logging.Default(), m)
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/x", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSymptomAnalysisValidation(t *testing.T) {
	h := newAdviceHandler(&fakeStreamingLLM{}, nil, nil)
	for _, body := range []string{`{}`, `{"symptoms":"   "}`, `{"symptoms":42}`} {
		rec := postJSON(t, h.SymptomAnalysis, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestSymptomAnalysisStreamsSSE(t *testing.T) {
	llm := &fakeStreamingLLM{chunks: []string{"Summary: ", "likely a strain."}}
	h := newAdviceHandler(llm, nil, nil)

	rec := postJSON(t, h.SymptomAnalysis, `{"symptoms":"knee pain when climbing stairs"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"text":"Summary: "`) || !strings.Contains(body, "data: [DONE]") {
		t.Fatalf("sse body = %q", body)
	}
	if !strings.Contains(llm.lastReq.System[0], "Summary, Possible Causes, Severity") {
		t.Fatalf("wrong system prompt: %q", llm.lastReq.System)
	}
	if !strings.Contains(llm.lastReq.Messages[0].Content, "knee pain when climbing stairs") {
		t.Fatalf("symptoms missing from prompt: %+v", llm.lastReq.Messages)
	}
}

func TestSymptomAnalysisUpstreamFailure(t *testing.T) {
	h := newAdviceHandler(&fakeStreamingLLM{fakeLLM: fakeLLM{err: errors.New("provider down")}}, nil, nil)
	rec := postJSON(t, h.SymptomAnalysis, `{"symptoms":"headache"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestAdviceFailsClosedWithoutClient(t *testing.T) {
	h := newAdviceHandler(nil, nil, nil)
	if rec := postJSON(t, h.SymptomAnalysis, `{"symptoms":"headache"}`); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("symptom status = %d, want 503", rec.Code)
	}
	if rec := postJSON(t, h.AppointmentRecommendation, `{"patientNeeds":"checkup"}`); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("appointment status = %d, want 503", rec.Code)
	}
}

func TestHealthRecommendationsEnrichesFromProfile(t *testing.T) {
	llm := &fakeStreamingLLM{chunks: []string{"Drink water."}}
	profiles := &fakeProfiles{allergies: "penicillin", conditions: "asthma"}
	h := newAdviceHandler(llm, profiles, nil)

	rec := postJSON(t, h.HealthRecommendations, `{"userId":"u-123","healthProfile":"35yo, sedentary"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	prompt := llm.lastReq.Messages[0].Content
	if !strings.Contains(prompt, "Allergies: penicillin") || !strings.Contains(prompt, "Medical conditions: asthma") {
		t.Fatalf("profile context missing: %q", prompt)
	}
}

func TestHealthRecommendationsSwallowsProfileFailure(t *testing.T) {
	llm := &fakeStreamingLLM{chunks: []string{"Drink water."}}
	profiles := &fakeProfiles{err: errors.New("profile store down")}
	h := newAdviceHandler(llm, profiles, nil)

	rec := postJSON(t, h.HealthRecommendations, `{"userId":"u-123","healthProfile":"35yo, sedentary"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, enrichment failure must not surface", rec.Code)
	}
	if strings.Contains(llm.lastReq.Messages[0].Content, "Allergies") {
		t.Fatalf("unexpected enrichment: %q", llm.lastReq.Messages[0].Content)
	}
}

func TestAppointmentRecommendationIncludesCatalogContext(t *testing.T) {
	llm := &fakeLLM{text: "See Dr. Lee for a cardiology consultation."}
	cat := &fakeCatalogCtx{
		doctors:  []*catalog.Doctor{{Name: "Dr. Lee", Specialty: "Cardiology"}},
		services: []*catalog.Service{{Name: "Physical Therapy"}, {Name: "Annual Checkup"}},
	}
	h := newAdviceHandler(llm, nil, cat)

	rec := postJSON(t, h.AppointmentRecommendation, `{"patientNeeds":"chest tightness when jogging"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["response"] != "See Dr. Lee for a cardiology consultation." {
		t.Fatalf("response = %q", resp["response"])
	}

	prompt := llm.lastReq.Messages[0].Content
	if !strings.Contains(prompt, "Dr. Lee (Cardiology)") {
		t.Fatalf("doctor context missing: %q", prompt)
	}
	if !strings.Contains(prompt, "Physical Therapy, Annual Checkup") {
		t.Fatalf("service context missing: %q", prompt)
	}
	if llm.lastReq.Model != "llama3-8b-8192" || llm.lastReq.Temperature != 0.7 || llm.lastReq.MaxTokens != 800 {
		t.Fatalf("request params = %+v", llm.lastReq)
	}
}

func TestAppointmentRecommendationValidation(t *testing.T) {
	h := newAdviceHandler(&fakeLLM{}, nil, nil)
	rec := postJSON(t, h.AppointmentRecommendation, `{"patientNeeds":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestNonStreamingClientStillStreams(t *testing.T) {
	llm := &fakeLLM{text: "Rest and hydrate."}
	h := newAdviceHandler(llm, nil, nil)

	rec := postJSON(t, h.SymptomAnalysis, `{"symptoms":"mild fever"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"text":"Rest and hydrate."`) {
		t.Fatalf("sse body = %q", body)
	}
}
