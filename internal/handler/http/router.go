package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timeoff-sync/internal/config"
	"github.com/cmlabs-hris/timeoff-sync/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(logger *slog.Logger, appConfig config.AppConfig, JWTService jwt.Service, syncHandler SyncHandler) *chi.Mux {
	r := chi.NewRouter()

	if len(appConfig.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   appConfig.CORSOrigins,
			AllowCredentials: true,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:           300,
		}))
	}

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  appConfig.SlogLevel(),
		Schema: httplog.SchemaECS,
		// Probes would drown everything else.
		Skip: func(req *http.Request, respStatus int) bool {
			return req.URL.Path == "/healthz" && respStatus == http.StatusOK
		},
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/healthz"))

	r.Route("/api/v1", func(r chi.Router) {
		// Requires an operator token
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.OperatorRequired)

			r.Route("/sync/runs", func(r chi.Router) {
				r.Post("/", syncHandler.TriggerRun)
				r.Get("/last", syncHandler.LastRun)
			})
		})
	})
	return r
}
