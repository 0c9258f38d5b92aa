package handlers

import (
	"net/http"

	"forumshop/internal/apperr"
	"forumshop/internal/metrics"
	"forumshop/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.AccessLog)
	router.Use(metrics.Middleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.cfg.Origins(),
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.APIKeyHeader, middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	router.Use(middleware.Preflight)
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, apperr.ErrMethodNotAllowed)
	})
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, apperr.ErrNotFound.WithMessage("Route not found"))
	})

	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.APIKey(h.verifier))

		r.Get("/categories", h.GetCategories)
		r.Post("/categories", h.AddCategory)
		r.Get("/categories/{id}", h.GetCategory)
		r.Patch("/categories/{id}", h.UpdateCategory)
		r.Put("/categories/{id}", h.UpdateCategory)
		r.Delete("/categories/{id}", h.DeleteCategory)

		r.Get("/items", h.GetItems)
		r.Post("/items", h.AddItem)
		r.Get("/items/{id}", h.GetItem)
		r.Patch("/items/{id}", h.UpdateItem)
		r.Put("/items/{id}", h.UpdateItem)
		r.Delete("/items/{id}", h.DeleteItem)

		r.Get("/inventory", h.GetInventory)
		r.Post("/inventory", h.UpdateInventory)
		r.Get("/inventories", h.GetInventories)
		r.Get("/bags", h.GetBags)
		r.Post("/purchase", h.Purchase)
		r.Put("/credits", h.UpdateCredits)

		r.Get("/audit/{entity}/{id}", h.AuditHistory)
		r.Get("/ws/inventory", h.WSInventory)

		r.Get("/keep-alive", h.KeepAlive)
		r.Get("/request-service", h.KeepAlive)
	})
	return router
}
