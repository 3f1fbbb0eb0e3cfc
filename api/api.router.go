package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rainwatch/rainhub/api/middleware"
	"github.com/rainwatch/rainhub/api/resources"
	"github.com/rainwatch/rainhub/internal/config"
	"github.com/rainwatch/rainhub/internal/hubservice"
	"github.com/rainwatch/rainhub/internal/weather"
	nuts "github.com/vaudience/go-nuts"
)

type Router struct {
	router    *mux.Router
	auth      *middleware.AuthMiddleware
	resources *resources.Resources
	config    *config.Config
}

func NewRouter(svc *hubservice.HubService, weatherSvc *weather.Service, cfg *config.Config) *Router {
	auth := middleware.NewAuthMiddleware(cfg.Auth)
	r := &Router{
		router:    mux.NewRouter(),
		auth:      auth,
		resources: resources.NewResources(svc, weatherSvc, auth),
		config:    cfg,
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// Health, inside and outside the API prefix
	r.router.HandleFunc("/health", handleHealth).Methods(http.MethodGet)

	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", handleHealth).Methods(http.MethodGet)

	// Public routes
	api.HandleFunc("/auth/login", r.resources.Admin.Login).Methods(http.MethodPost)
	api.HandleFunc("/weather", r.resources.Weather.GetWeather).Methods(http.MethodGet)
	api.HandleFunc("/weather/near", r.resources.Weather.GetWeather).Methods(http.MethodGet)

	// Device queries
	devices := api.PathPrefix("/devices").Subrouter()
	devices.HandleFunc("", r.resources.Devices.ListDevices).Methods(http.MethodGet)
	devices.HandleFunc("/{idOrKey}", r.resources.Devices.GetDevice).Methods(http.MethodGet)
	devices.HandleFunc("/{idOrKey}/rain", r.resources.Devices.GetRainHistory).Methods(http.MethodGet)
	devices.HandleFunc("/{idOrKey}/images", r.resources.Devices.ListImages).Methods(http.MethodGet)
	devices.HandleFunc("/{idOrKey}/latest-image", r.resources.Devices.GetLatestImage).Methods(http.MethodGet)

	// Ingestion, guarded by the shared device token
	ingest := api.PathPrefix("/ingest").Subrouter()
	ingest.Use(r.auth.AuthenticateDevice)
	ingest.HandleFunc("/heartbeat", r.resources.Ingest.Heartbeat).Methods(http.MethodPost)
	ingest.HandleFunc("/rain", r.resources.Ingest.RecordRain).Methods(http.MethodPost)
	ingest.HandleFunc("/image", r.resources.Ingest.RecordImage).Methods(http.MethodPost)

	// Admin device management, guarded by the admin JWT
	admin := api.PathPrefix("/admin/devices").Subrouter()
	admin.Use(r.auth.AuthenticateAdmin)
	admin.HandleFunc("", r.resources.Admin.ListDevices).Methods(http.MethodGet)
	admin.HandleFunc("", r.resources.Admin.CreateDevice).Methods(http.MethodPost)
	admin.HandleFunc("/{idOrKey}", r.resources.Admin.UpdateDevice).Methods(http.MethodPatch)
	admin.HandleFunc("/{idOrKey}", r.resources.Admin.DeleteDevice).Methods(http.MethodDelete)
	admin.HandleFunc("/{idOrKey}/capture", r.resources.Admin.RequestCapture).Methods(http.MethodPost)
}

// ServeUploads maps the public URL prefix 1:1 onto the storage root
func (r *Router) ServeUploads(basePath string) {
	prefix := "/" + r.config.FileStore.PublicPrefix + "/"
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(basePath)))
	r.router.PathPrefix(prefix).Handler(fs).Methods(http.MethodGet)
}

// Handler wraps the router with CORS for browser clients
func (r *Router) Handler() http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(r.config.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Device-Token"}),
	)(r.router)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"ok":true,"version":"` + nuts.GetVersion() + `"}`))
}
