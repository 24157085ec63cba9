package app

import (
	"database/sql"
	"net/http"
	"time"

	"gradeboard/internal/app/observability"
	"gradeboard/internal/assessment"
	"gradeboard/internal/auth"
	"gradeboard/internal/blob"
	"gradeboard/internal/report"
	"gradeboard/internal/scoring"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(cfg Config, db *sql.DB) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)

	store, err := blob.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	repo := assessment.NewRepository(db)
	scorer := scoring.NewFixedScorer(cfg.DefaultAwardedMarks)

	assessmentSvc := assessment.NewService(repo, store, scorer)
	assessmentHandler := assessment.NewHandler(assessmentSvc)

	authSvc := auth.NewService(db, auth.ServiceConfig{
		TokenSecret: cfg.JWTSecret,
		TokenTTL:    time.Duration(cfg.TokenTTLHours) * time.Hour,
	})
	authHandler := auth.NewHandler(authSvc)

	reportSvc := report.NewService(repo)
	reportHandler := report.NewHandler(reportSvc)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	authLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)
	r.Group(func(gate chi.Router) {
		gate.Use(RateLimitMiddleware(authLimiter))
		gate.Post("/signup", authHandler.Signup)
		gate.Post("/login", authHandler.Login)
	})

	r.Post("/assessments", assessmentHandler.Create)
	r.Get("/assessments", assessmentHandler.List)
	r.Post("/upload-student-answers", assessmentHandler.UploadStudentAnswers)

	r.Route("/api", func(api chi.Router) {
		api.Use(authHandler.RequireAuth)
		api.Get("/assessments/{id}", assessmentHandler.Get)
		api.Get("/assessments/{id}/students/{candidateKey}/evaluation", assessmentHandler.GetEvaluation)
		api.Put("/assessments/{id}/students/{candidateKey}/evaluation", assessmentHandler.UpdateEvaluation)
		api.Get("/assessments/{id}/results/export", reportHandler.ExportResults)
	})

	r.Get("/uploads/{filename}", func(w http.ResponseWriter, req *http.Request) {
		if err := store.ServeFile(w, req, chi.URLParam(req, "filename")); err != nil {
			http.NotFound(w, req)
		}
	})

	return r, nil
}
