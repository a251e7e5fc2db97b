package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/clube-madua/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware платформы.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ping", h.Ping)

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Put("/timezone", h.SetTimezone)
			r.Get("/routine", h.GetRoutine)
			r.Post("/routine/{id}/seal", h.SealTask)
			r.Post("/routine/{id}/unseal", h.UnsealTask)
		})
	})

	r.Route("/api/posts/{slug}", func(r chi.Router) {
		r.With(h.authMiddleware.Optional).Get("/", h.GetPost)
		r.With(h.authMiddleware.Optional).Get("/comments", h.GetComments)
		r.With(h.authMiddleware.Middleware).Post("/comments", h.PostComment)
	})

	r.Get("/api/categories", h.GetCategories)

	r.Route("/api/courses/{id}", func(r chi.Router) {
		r.With(h.authMiddleware.Optional).Get("/", h.GetCourse)
		r.With(h.authMiddleware.Middleware).Post("/lessons/{lessonID}/complete", h.CompleteLesson)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)
		r.Use(h.RequireAdmin)

		r.Post("/routine", h.CreateTask)
		r.Put("/users/{id}/subscription", h.SetSubscription)
		r.Post("/users/{id}/purchases/{courseID}", h.RecordPurchase)
		r.Post("/categories", h.CreateCategory)
		r.Post("/posts", h.CreatePost)
		r.Post("/courses", h.CreateCourse)
		r.Post("/courses/{id}/lessons", h.CreateLesson)
		r.Get("/catalog/anomalies", h.GetAnomalies)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
