package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"

	"github.com/advisorly/feetrack/internal/auth"
	"github.com/advisorly/feetrack/internal/httpx"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	DB            *gorm.DB
	Auth          *auth.Authenticator
	LookbackYears int
	CORSOrigins   []string
}

// NewRouter wires the full API surface. All resource routes require an
// authenticated principal; health does not.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(cfg.Auth.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	ch := NewClientHandler(cfg.DB)
	kh := NewContractHandler(cfg.DB)
	ph := NewPaymentHandler(cfg.DB)
	perh := NewPeriodHandler(cfg.DB, cfg.LookbackYears)
	dh := NewDashboardHandler(cfg.DB)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", ch.List)
			r.Post("/", ch.Create)
			r.Get("/{id}", ch.Get)
			r.Put("/{id}", ch.Update)
			r.Delete("/{id}", ch.Delete)
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Get("/client/{clientID}", kh.ListByClient)
			r.Post("/", kh.Create)
			r.Put("/{id}", kh.Update)
			r.Delete("/{id}", kh.Delete)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", ph.List)
			r.Post("/", ph.Create)
			r.Put("/{id}", ph.Update)
			r.Delete("/{id}", ph.Delete)
		})

		r.Get("/periods", perh.Available)
		r.Get("/dashboard/{clientID}", dh.Get)
	})

	return r
}
