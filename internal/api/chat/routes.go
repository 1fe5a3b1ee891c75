package chat

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes registers chat session routes. The websocket stream is exempt from the request timeout.
func RegisterRoutes(r chi.Router, h *Handler, timeout time.Duration) {
	r.Route("/chat/sessions", func(r chi.Router) {
		r.Get("/{id}/stream", h.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(timeout))

			r.Post("/", h.StartSession)
			r.Get("/{id}", h.GetSession)
			r.Post("/{id}/text", h.SubmitText)
			r.Post("/{id}/choice", h.SubmitChoice)
			r.Post("/{id}/references", h.SubmitReferences)
			r.Post("/{id}/rating", h.SubmitRating)
			r.Post("/{id}/feedback", h.SubmitFeedback)
			r.Post("/{id}/email", h.SubmitEmail)
			r.Post("/{id}/new", h.NewChat)
			r.Get("/{id}/summary", h.GetSummary)
			r.Get("/{id}/html", h.GetHTML)
		})
	})
}
