package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"accreditation/internal/catalog"
	"accreditation/internal/service"
	"accreditation/internal/transport/rest/handler"
	"accreditation/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	WizardService     *service.WizardService
	DocumentService   *service.DocumentService
	SubmissionService *service.SubmissionService
	Criteria          catalog.CriteriaSource
	WSHub             *ws.Hub
	CORS              CORSConfig
	Logger            *zap.Logger
}

// CORSConfig lists what cross-origin callers may do
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Initialize handlers
	wizardHandler := handler.NewWizardHandler(c.WizardService, logger)
	documentHandler := handler.NewDocumentHandler(c.DocumentService, logger)
	catalogHandler := handler.NewCatalogHandler(c.WizardService, c.Criteria, logger)
	applicationHandler := handler.NewApplicationHandler(c.SubmissionService, logger)
	wsHandler := ws.NewHandler(c.WSHub, c.WizardService, c.CORS.AllowedOrigins, logger)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORS))

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Catalog
	v1.HandleFunc("/request-types", catalogHandler.RequestTypes).Methods("GET", "OPTIONS")
	v1.HandleFunc("/areas", catalogHandler.Areas).Methods("GET", "OPTIONS")
	v1.HandleFunc("/areas/{areaId}/criteria", catalogHandler.Criteria).Methods("GET", "OPTIONS")
	v1.HandleFunc("/criteria/{criteriaId}/indicators", catalogHandler.Indicators).Methods("GET", "OPTIONS")

	// Wizard sessions
	v1.HandleFunc("/wizards", wizardHandler.Start).Methods("POST", "OPTIONS")
	v1.HandleFunc("/wizards/{id}", wizardHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/wizards/{id}", wizardHandler.Discard).Methods("DELETE", "OPTIONS")
	v1.HandleFunc("/wizards/{id}/score", wizardHandler.Score).Methods("GET", "OPTIONS")
	v1.HandleFunc("/wizards/{id}/steps/next", wizardHandler.NextStep).Methods("POST", "OPTIONS")
	v1.HandleFunc("/wizards/{id}/steps/previous", wizardHandler.PreviousStep).Methods("POST", "OPTIONS")
	v1.HandleFunc("/wizards/{id}/steps/{index:[0-9]+}/goto", wizardHandler.GoToStep).Methods("POST", "OPTIONS")
	v1.HandleFunc("/wizards/{id}/steps/{stepId}", wizardHandler.UpdateStep).Methods("PUT", "OPTIONS")
	v1.HandleFunc("/wizards/{id}/next", wizardHandler.Next).Methods("POST", "OPTIONS")
	v1.HandleFunc("/wizards/{id}/previous", wizardHandler.Previous).Methods("POST", "OPTIONS")
	v1.HandleFunc("/wizards/{id}/submit", wizardHandler.Submit).Methods("POST", "OPTIONS")
	v1.HandleFunc("/wizards/{id}/documents/{stepId}/{questionId}", documentHandler.Upload).Methods("POST", "OPTIONS")
	v1.HandleFunc("/wizards/{id}/documents/{stepId}/{questionId}", documentHandler.Download).Methods("GET", "OPTIONS")

	// Submitted applications
	v1.HandleFunc("/applications/{id}", applicationHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/schools/{schoolId}/applications", applicationHandler.ListBySchool).Methods("GET", "OPTIONS")

	// WebSocket
	v1.HandleFunc("/ws/wizards/{id}", wsHandler.WizardWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r
}

func corsMiddleware(cfg CORSConfig) mux.MiddlewareFunc {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	if methods == "" {
		methods = "GET, POST, PUT, DELETE, OPTIONS"
	}
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	if headers == "" {
		headers = "Content-Type, Authorization"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := allowOrigin(origins, r.Header.Get("Origin")); origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				if origin != "*" {
					w.Header().Add("Vary", "Origin")
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", headers)

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allowOrigin(allowed []string, origin string) string {
	for _, o := range allowed {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}
