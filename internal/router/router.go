package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tailorbook/api/internal/config"
	"github.com/tailorbook/api/internal/database"
	"github.com/tailorbook/api/internal/handler"
	mw "github.com/tailorbook/api/internal/middleware"
	"github.com/tailorbook/api/internal/service"
	"github.com/tailorbook/api/internal/upload"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, uploads *upload.Store) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Customers
		customerHandler := handler.NewCustomerHandler(queries)
		customerHandler.RegisterRoutes(r)

		// Orders
		orderHandler := handler.NewOrderHandler(queries)
		orderHandler.RegisterRoutes(r)

		// Measurements (submission runs through the tx service)
		newSubmissionStore := func(db database.DBTX) service.SubmissionStore {
			return database.New(db)
		}
		measurementService := service.NewMeasurementService(pool, newSubmissionStore)
		measurementHandler := handler.NewMeasurementHandler(queries, measurementService, uploads)
		measurementHandler.RegisterRoutes(r)

		// File uploads and serving
		uploadHandler := handler.NewUploadHandler(queries, uploads)
		uploadHandler.RegisterRoutes(r)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin)
			adminHandler := handler.NewAdminHandler(queries)
			adminHandler.RegisterRoutes(r)
		})
	})

	return r
}
