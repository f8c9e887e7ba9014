// Package docpage provides the document upload-and-query page of the UI.
package docpage

import "github.com/go-chi/chi/v5"

// SetupRoutes configures routes for the document page.
func SetupRoutes(router chi.Router, handlers *Handlers) {
	router.Get("/", handlers.Page)
	router.Get("/page/sse", handlers.PageSSE)

	router.Route("/actions", func(r chi.Router) {
		r.Post("/upload", handlers.Upload)
		r.Post("/company", handlers.SelectCompany)
		r.Post("/model", handlers.SelectModel)
		r.Post("/query", handlers.Query)
	})
}
