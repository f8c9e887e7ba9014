// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"

	"github.com/datquest/docquery/internal/page"
	"github.com/datquest/docquery/internal/session"
	docpageFeature "github.com/datquest/docquery/internal/ui/features/docpage"
	"github.com/datquest/docquery/internal/ui/notifier"
	"github.com/datquest/docquery/internal/ui/resources"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
)

// Deps are the shared dependencies of the feature routes.
type Deps struct {
	Backend      page.Backend
	Store        session.Store
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	Logger       *slog.Logger
}

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(router chi.Router, deps Deps) {
	router.Handle("/static/*", resources.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	registry := docpageFeature.NewRegistry(deps.Backend, deps.Store, deps.Notifier, deps.Logger, 0)
	handlers := docpageFeature.NewHandlers(registry, deps.SessionStore, deps.Notifier, deps.Logger)
	docpageFeature.SetupRoutes(router, handlers)
}
