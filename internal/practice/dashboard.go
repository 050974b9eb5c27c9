package practice

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/medicarehealth/practice-platform/internal/observability/metrics"
	"github.com/medicarehealth/practice-platform/pkg/logging"
)

// StatusCount is one slice of the appointment status breakdown.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// RecentAppointment is a trimmed listing row for the dashboard feed.
type RecentAppointment struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// AdviceLatencySnapshot summarizes the AI advice latency histogram at
// request time, without a round trip to a metrics backend.
type AdviceLatencySnapshot struct {
	Total   int64                  `json:"total"`
	P90Ms   float64                `json:"p90_ms"`
	P95Ms   float64                `json:"p95_ms"`
	Buckets []AdviceLatencyBucket `json:"buckets"`
}

type AdviceLatencyBucket struct {
	LeSeconds float64 `json:"le_seconds"`
	Label     string  `json:"label,omitempty"`
	Count     int64   `json:"count"`
}

// Dashboard is the admin overview payload.
type Dashboard struct {
	PeriodStart        string                `json:"period_start"`
	PeriodEnd          string                `json:"period_end"`
	TotalAppointments  int64                 `json:"total_appointments"`
	PendingReview      int64                 `json:"pending_review"`
	UpcomingConfirmed  int64                 `json:"upcoming_confirmed"`
	StatusBreakdown    []StatusCount         `json:"status_breakdown"`
	Recent             []RecentAppointment   `json:"recent"`
	Doctors            int64                 `json:"doctors"`
	Services           int64                 `json:"services"`
	RegisteredPatients int64                 `json:"registered_patients"`
	AdviceLatency      AdviceLatencySnapshot `json:"advice_latency"`
}

// DashboardRepository aggregates practice-level counts. It runs over
// database/sql so readonly replicas and standard pooling settings can
// differ from the main pgx pool.
type DashboardRepository struct {
	db *sql.DB
}

func NewDashboardRepository(db *sql.DB) *DashboardRepository {
	if db == nil {
		panic("practice: sql db required for dashboard")
	}
	return &DashboardRepository{db: db}
}

// StatusBreakdown counts appointments per status within the window.
func (r *DashboardRepository) StatusBreakdown(ctx context.Context, start, end time.Time) ([]StatusCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM appointments
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY status
		ORDER BY status
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("practice dashboard: status breakdown: %w", err)
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("practice dashboard: scan breakdown: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// UpcomingConfirmed counts confirmed appointments scheduled from today on.
func (r *DashboardRepository) UpcomingConfirmed(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE status = 'confirmed' AND scheduled_date >= CURRENT_DATE
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("practice dashboard: upcoming: %w", err)
	}
	return n, nil
}

// Recent returns the latest booking requests.
func (r *DashboardRepository) Recent(ctx context.Context, limit int) ([]RecentAppointment, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, status, created_at
		FROM appointments
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("practice dashboard: recent: %w", err)
	}
	defer rows.Close()

	var out []RecentAppointment
	for rows.Next() {
		var ra RecentAppointment
		if err := rows.Scan(&ra.ID, &ra.Name, &ra.Status, &ra.CreatedAt); err != nil {
			return nil, fmt.Errorf("practice dashboard: scan recent: %w", err)
		}
		out = append(out, ra)
	}
	return out, rows.Err()
}

// CatalogTotals counts doctors, services, and registered patient profiles.
func (r *DashboardRepository) CatalogTotals(ctx context.Context) (doctors, services, patients int64, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM doctors),
			(SELECT COUNT(*) FROM services),
			(SELECT COUNT(*) FROM profiles)
	`).Scan(&doctors, &services, &patients)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("practice dashboard: totals: %w", err)
	}
	return doctors, services, patients, nil
}

type dashboardRepo interface {
	StatusBreakdown(ctx context.Context, start, end time.Time) ([]StatusCount, error)
	UpcomingConfirmed(ctx context.Context) (int64, error)
	Recent(ctx context.Context, limit int) ([]RecentAppointment, error)
	CatalogTotals(ctx context.Context) (doctors, services, patients int64, err error)
}

// DashboardHandler serves the admin overview JSON.
type DashboardHandler struct {
	repo     dashboardRepo
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

func NewDashboardHandler(repo dashboardRepo, gatherer prometheus.Gatherer, logger *logging.Logger) *DashboardHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &DashboardHandler{repo: repo, gatherer: gatherer, logger: logger}
}

// GetDashboard returns practice operational metrics.
// GET /api/admin/dashboard
// Query params:
//   - days: integer window (default 7, max 90)
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		http.Error(w, `{"error":"dashboard disabled (db not configured)"}`, http.StatusServiceUnavailable)
		return
	}

	days := 7
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 90 {
			http.Error(w, `{"error":"invalid days; must be 1-90"}`, http.StatusBadRequest)
			return
		}
		days = parsed
	}
	now := time.Now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -days)

	breakdown, err := h.repo.StatusBreakdown(r.Context(), start, end)
	if err != nil {
		h.logger.Error("failed to query status breakdown", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	var total, pending int64
	for _, sc := range breakdown {
		total += sc.Count
		if sc.Status == "pending" {
			pending = sc.Count
		}
	}

	upcoming, err := h.repo.UpcomingConfirmed(r.Context())
	if err != nil {
		h.logger.Error("failed to query upcoming appointments", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	recent, err := h.repo.Recent(r.Context(), 5)
	if err != nil {
		h.logger.Error("failed to query recent appointments", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	doctors, services, patients, err := h.repo.CatalogTotals(r.Context())
	if err != nil {
		h.logger.Error("failed to query catalog totals", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	resp := Dashboard{
		PeriodStart:        start.Format(time.RFC3339),
		PeriodEnd:          end.Format(time.RFC3339),
		TotalAppointments:  total,
		PendingReview:      pending,
		UpcomingConfirmed:  upcoming,
		StatusBreakdown:    breakdown,
		Recent:             recent,
		Doctors:            doctors,
		Services:           services,
		RegisteredPatients: patients,
		AdviceLatency:      snapshotAdviceLatency(h.gatherer),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// snapshotAdviceLatency aggregates the advice latency histogram across
// features from the in-process registry.
func snapshotAdviceLatency(gatherer prometheus.Gatherer) AdviceLatencySnapshot {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return AdviceLatencySnapshot{}
	}

	var family *dto.MetricFamily
	for _, mf := range mfs {
		if mf != nil && mf.GetName() == metrics.AdviceLatencyMetric {
			family = mf
			break
		}
	}
	if family == nil {
		return AdviceLatencySnapshot{}
	}

	cumulativeByUpper := map[float64]uint64{}
	var sampleCount uint64
	for _, metric := range family.Metric {
		if metric == nil {
			continue
		}
		hist := metric.GetHistogram()
		if hist == nil {
			continue
		}
		sampleCount += hist.GetSampleCount()
		for _, b := range hist.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if sampleCount == 0 || len(cumulativeByUpper) == 0 {
		return AdviceLatencySnapshot{}
	}

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	buckets := make([]AdviceLatencyBucket, 0, len(uppers))
	var prev uint64
	var lastFiniteUpper float64
	for _, upper := range uppers {
		cum := cumulativeByUpper[upper]
		count := int64(cum)
		if cum >= prev {
			count = int64(cum - prev)
		}
		if math.IsInf(upper, 1) {
			if count > 0 {
				buckets = append(buckets, AdviceLatencyBucket{
					LeSeconds: lastFiniteUpper,
					Label:     fmt.Sprintf(">%s", formatSeconds(lastFiniteUpper)),
					Count:     count,
				})
			}
			prev = cum
			continue
		}
		lastFiniteUpper = upper
		buckets = append(buckets, AdviceLatencyBucket{LeSeconds: upper, Count: count})
		prev = cum
	}

	return AdviceLatencySnapshot{
		Total:   int64(sampleCount),
		P90Ms:   histogramQuantile(0.90, sampleCount, uppers, cumulativeByUpper) * 1000.0,
		P95Ms:   histogramQuantile(0.95, sampleCount, uppers, cumulativeByUpper) * 1000.0,
		Buckets: buckets,
	}
}

func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	if total == 0 || q <= 0 {
		return 0
	}
	if q >= 1 {
		for i := len(uppers) - 1; i >= 0; i-- {
			if !math.IsInf(uppers[i], 1) {
				return uppers[i]
			}
		}
		return 0
	}

	target := q * float64(total)
	var prevUpper, prevCum float64
	for _, upper := range uppers {
		cum := float64(cumulativeByUpper[upper])
		if cum < target {
			prevUpper = upper
			prevCum = cum
			continue
		}

		bucketCount := cum - prevCum
		if bucketCount <= 0 || upper == prevUpper {
			return upper
		}
		if math.IsInf(upper, 1) {
			return prevUpper
		}

		fraction := (target - prevCum) / bucketCount
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}
		return prevUpper + fraction*(upper-prevUpper)
	}
	return uppers[len(uppers)-1]
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "0s"
	}
	if seconds < 1 {
		return fmt.Sprintf("%.2fs", seconds)
	}
	if seconds < 10 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	return fmt.Sprintf("%.0fs", seconds)
}
