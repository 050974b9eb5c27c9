package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/medicarehealth/practice-platform/internal/advice"
	"github.com/medicarehealth/practice-platform/internal/appointments"
	"github.com/medicarehealth/practice-platform/internal/catalog"
	httpmiddleware "github.com/medicarehealth/practice-platform/internal/http/middleware"
	"github.com/medicarehealth/practice-platform/internal/identity"
	"github.com/medicarehealth/practice-platform/internal/practice"
	"github.com/medicarehealth/practice-platform/internal/profiles"
	"github.com/medicarehealth/practice-platform/pkg/logging"
)

// Pinger reports backend reachability for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	AuthHandler         *identity.Handler
	AppointmentsHandler *appointments.Handler
	CatalogHandler      *catalog.Handler
	ProfileHandler      *profiles.Handler
	AdviceHandler       *advice.Handler
	ChatHandler         *advice.ChatHandler
	DashboardHandler    *practice.DashboardHandler

	MetricsHandler http.Handler

	// AuthJWTSecret verifies provider access tokens locally. With an
	// empty secret every session route responds 401.
	AuthJWTSecret string

	CORSAllowedOrigins []string

	AuthRateLimit   float64
	AuthRateBurst   int
	AdviceRateLimit float64
	AdviceRateBurst int

	// DB is optional; readiness reports degraded without it.
	DB Pinger
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	r.Get("/health/ready", readinessCheck(cfg.DB))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Auth relay to the hosted identity provider.
	if cfg.AuthHandler != nil {
		r.Route("/api/auth", func(auth chi.Router) {
			if cfg.AuthRateLimit > 0 {
				auth.Use(httpmiddleware.RateLimit(cfg.AuthRateLimit, cfg.AuthRateBurst))
			}
			auth.Post("/login", cfg.AuthHandler.Login)
			auth.Post("/register", cfg.AuthHandler.Register)
			auth.Post("/resend-verification", cfg.AuthHandler.ResendVerification)
			auth.Post("/refresh", cfg.AuthHandler.Refresh)
			auth.Post("/logout", cfg.AuthHandler.Logout)
		})
	}

	// Public booking and catalog reads.
	r.Group(func(public chi.Router) {
		if cfg.AppointmentsHandler != nil {
			public.Post("/api/appointments", cfg.AppointmentsHandler.Create)
		}
		if cfg.CatalogHandler != nil {
			public.Get("/api/doctors", cfg.CatalogHandler.ListDoctors)
			public.Get("/api/services", cfg.CatalogHandler.ListServices)
		}
	})

	// AI advice relay. Rate limited per IP; no session required so the
	// public site chat works pre-login.
	if cfg.AdviceHandler != nil || cfg.ChatHandler != nil {
		r.Route("/api/ai", func(ai chi.Router) {
			if cfg.AdviceRateLimit > 0 {
				ai.Use(httpmiddleware.RateLimit(cfg.AdviceRateLimit, cfg.AdviceRateBurst))
			}
			if cfg.AdviceHandler != nil {
				ai.Post("/symptom-analysis", cfg.AdviceHandler.SymptomAnalysis)
				ai.Post("/health-recommendations", cfg.AdviceHandler.HealthRecommendations)
				ai.Post("/appointment-recommendation", cfg.AdviceHandler.AppointmentRecommendation)
			}
			if cfg.ChatHandler != nil {
				ai.Get("/chat", cfg.ChatHandler.HandleWebSocket)
			}
		})
	}

	// Session routes: any signed-in user.
	r.Group(func(session chi.Router) {
		session.Use(httpmiddleware.SessionAuth(cfg.AuthJWTSecret))

		if cfg.AppointmentsHandler != nil {
			session.Get("/api/appointments", cfg.AppointmentsHandler.ListMine)
			session.Get("/api/appointments/{id}", cfg.AppointmentsHandler.Get)
			session.Patch("/api/appointments/{id}/status", cfg.AppointmentsHandler.UpdateStatus)
		}
		if cfg.ProfileHandler != nil {
			session.Get("/api/profile", cfg.ProfileHandler.Get)
			session.Put("/api/profile", cfg.ProfileHandler.Update)
		}
	})

	// Staff routes: admins and doctors manage the appointment queue.
	r.Group(func(staff chi.Router) {
		staff.Use(httpmiddleware.SessionAuth(cfg.AuthJWTSecret))
		staff.Use(httpmiddleware.RequireRole(identity.RoleAdmin, identity.RoleDoctor))

		if cfg.AppointmentsHandler != nil {
			staff.Get("/api/admin/appointments", cfg.AppointmentsHandler.ListAll)
			staff.Patch("/api/admin/appointments/{id}/schedule", cfg.AppointmentsHandler.UpdateSchedule)
		}
	})

	// Admin routes: catalog management and operational views.
	r.Group(func(admin chi.Router) {
		admin.Use(httpmiddleware.SessionAuth(cfg.AuthJWTSecret))
		admin.Use(httpmiddleware.RequireRole(identity.RoleAdmin))

		if cfg.CatalogHandler != nil {
			admin.Post("/api/admin/doctors", cfg.CatalogHandler.CreateDoctor)
			admin.Put("/api/admin/doctors/{id}", cfg.CatalogHandler.UpdateDoctor)
			admin.Delete("/api/admin/doctors/{id}", cfg.CatalogHandler.DeleteDoctor)
			admin.Post("/api/admin/services", cfg.CatalogHandler.CreateService)
			admin.Put("/api/admin/services/{id}", cfg.CatalogHandler.UpdateService)
			admin.Delete("/api/admin/services/{id}", cfg.CatalogHandler.DeleteService)
		}
		if cfg.DashboardHandler != nil {
			admin.Get("/api/admin/dashboard", cfg.DashboardHandler.GetDashboard)
		}
		if cfg.AuthHandler != nil {
			admin.Post("/api/admin/confirm-email", cfg.AuthHandler.ConfirmEmail)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// readinessCheck pings the database with a short deadline. Deploys gate
// on this endpoint, the liveness probe stays on /health.
func readinessCheck(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "database": "not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "database": "unreachable"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}
