package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/markdave123-py/Surveya/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/Surveya/internal/api/middlewares"
	"github.com/markdave123-py/Surveya/internal/config"
	db "github.com/markdave123-py/Surveya/internal/core/database"
	"github.com/markdave123-py/Surveya/internal/services"
)

// Server wraps the admin console HTTP server and its handlers.
type Server struct {
	httpServer *http.Server
	log        *zap.SugaredLogger
}

// NewServer builds and wires all admin API routes.
func NewServer(cfg *config.Config, dbclient db.DbClient, surveys *services.SurveyService, analytics *services.AnalyticsService, log *zap.SugaredLogger) *Server {
	authHandler := handlers.NewAuthHandler(dbclient)
	surveyHandler := handlers.NewSurveyHandler(dbclient, surveys, analytics)
	userHandler := handlers.NewUserHandler(dbclient, surveys)
	scheduleHandler := handlers.NewScheduleHandler(dbclient, surveys)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware)

			protected.Get("/users", userHandler.ListUsers)
			protected.Post("/users/{telegramID}/status", userHandler.UpdateStatus)

			protected.Get("/surveys", surveyHandler.ListTemplates)
			protected.Post("/surveys", surveyHandler.CreateTemplate)
			protected.Get("/surveys/{templateID}/responses", surveyHandler.ListResponses)
			protected.Get("/surveys/{templateID}/analytics", surveyHandler.Analytics)

			protected.Post("/assignments", surveyHandler.Assign)

			protected.Get("/schedules", scheduleHandler.List)
			protected.Post("/schedules", scheduleHandler.Create)

			protected.Get("/statuses", userHandler.ListStatuses)
			protected.Post("/statuses", userHandler.CreateStatus)
			protected.Get("/statuses/{name}/surveys", userHandler.ListStatusSurveys)
			protected.Post("/statuses/{name}/surveys", userHandler.AssignSurveyToStatus)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("admin API listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	}
}
