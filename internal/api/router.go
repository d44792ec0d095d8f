package api

import (
	"net/http"
	"strconv"

	"github.com/rpattn/crmdash/internal/analysis"
	"github.com/rpattn/crmdash/internal/auth"
	"github.com/rpattn/crmdash/internal/httpx"
	"github.com/rpattn/crmdash/internal/ingestion"
	"github.com/rpattn/crmdash/internal/middleware"
	"github.com/rpattn/crmdash/internal/newsfeed"
	"github.com/rpattn/crmdash/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Deps carries everything the HTTP surface talks to.
type Deps struct {
	Organizations repository.OrganizationRepository
	Subsidiaries  repository.SubsidiaryRepository
	Opportunities repository.OpportunityRepository
	Deals         repository.DealRepository
	News          repository.NewsRepository
	Projects      repository.ProjectRepository
	Jobs          repository.ImportJobRepository
	AnalysisLogs  repository.AnalysisLogRepository
	Dashboard     repository.DashboardRepository

	Importer  *ingestion.Service
	Analyzer  *analysis.Analyzer
	Refresher *newsfeed.Refresher
	Tokens    *auth.Tokens

	Logger       zerolog.Logger
	CookieName   string
	CORSOrigins  []string
	MaxBodyBytes int64
}

type server struct {
	deps Deps
}

// NewRouter builds the /api surface. Reads are public; mutations need an authenticated actor.
func NewRouter(deps Deps) http.Handler {
	s := &server{deps: deps}

	c := cors.New(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID(deps.Logger))
	r.Use(middleware.Logging)
	r.Use(c.Handler)
	if deps.MaxBodyBytes > 0 {
		r.Use(middleware.LimitBodyBytes(deps.MaxBodyBytes))
	}
	r.Use(auth.Authenticate(deps.Tokens, deps.CookieName))
	r.Use(middleware.DataLoaderMiddleware(deps.Organizations))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.With(auth.RequireActor).Get("/auth/me", s.me)

		api.Route("/customers", s.customerRoutes)
		api.Route("/subsidiaries", s.subsidiaryRoutes)
		api.Route("/opportunities", s.opportunityRoutes)
		api.Route("/deals", s.dealRoutes)
		api.Route("/news", s.newsRoutes)
		api.Route("/projects", s.projectRoutes)

		api.Get("/dashboard/stats", s.dashboardStats)
		api.Get("/geographic/markers", s.geoMarkers)
		api.With(auth.RequireActor).Post("/ai/analyze", s.analyzeCustomer)
		api.Get("/ai/logs", s.analysisLogs)

		if deps.Importer != nil {
			api.Mount("/import", ingestion.NewHTTPHandler(deps.Importer, deps.Jobs).Routes())
		}
	})
	return r
}

func (s *server) me(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, actor)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, r, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	httpx.WriteError(w, r, http.StatusBadRequest, "invalid_request", message, nil)
}

// page reads limit and offset query parameters.
func page(w http.ResponseWriter, r *http.Request, defaultLimit int) (int, int, bool) {
	limit, err := httpx.QueryInt(r, "limit", defaultLimit)
	if err != nil {
		badRequest(w, r, err.Error())
		return 0, 0, false
	}
	offset, err := httpx.QueryInt(r, "offset", 0)
	if err != nil {
		badRequest(w, r, err.Error())
		return 0, 0, false
	}
	return limit, offset, true
}
