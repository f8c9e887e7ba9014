package docpage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/datquest/docquery/internal/page"
	"github.com/datquest/docquery/internal/session"
	"github.com/datquest/docquery/internal/ui/notifier"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

const (
	registryCleanup = 10 * time.Minute
	refreshTimeout  = 30 * time.Second
	refreshLimit    = 4
)

// Registry keeps one page controller per browser tab. Controllers
// idle for longer than the TTL are dropped; their session slots stay in
// the store.
type Registry struct {
	backend  page.Backend
	store    session.Store
	notifier *notifier.Notifier
	logger   *slog.Logger

	mu          sync.Mutex
	controllers *cache.Cache
	refreshes   sync.WaitGroup
}

// NewRegistry creates a registry. A non-positive ttl uses session.DefaultMemoryTTL.
func NewRegistry(b page.Backend, store session.Store, notify *notifier.Notifier, logger *slog.Logger, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = session.DefaultMemoryTTL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		backend:     b,
		store:       store,
		notifier:    notify,
		logger:      logger,
		controllers: cache.New(ttl, registryCleanup),
	}
}

// Controller returns the controller for id, creating it on first use.
// Every call extends the controller's lifetime.
func (r *Registry) Controller(id string) *page.Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.controllers.Get(id); ok {
		ctrl := v.(*page.Controller)
		r.controllers.Set(id, ctrl, cache.DefaultExpiration)
		return ctrl
	}

	ctrl := page.New(r.backend, session.NewHandle(r.store, id),
		page.WithLogger(r.logger.With("session", id)),
		page.WithObserver(func() { r.notifier.Publish(id) }),
	)
	r.controllers.Set(id, ctrl, cache.DefaultExpiration)
	r.logger.Debug("page controller created", "session", id)
	return ctrl
}

// Len returns the number of live controllers.
func (r *Registry) Len() int {
	return r.controllers.ItemCount()
}

// RefreshCompaniesExcept reloads the company dropdown of every live
// controller other than id, so a new upload shows up in other open tabs.
func (r *Registry) RefreshCompaniesExcept(ctx context.Context, id string) {
	var g errgroup.Group
	g.SetLimit(refreshLimit)
	for key, item := range r.controllers.Items() {
		if key == id {
			continue
		}
		ctrl := item.Object.(*page.Controller)
		g.Go(func() error {
			ctrl.RefreshCompanies(ctx)
			return nil
		})
	}
	_ = g.Wait()
}

// RefreshOthers runs RefreshCompaniesExcept in the background. The
// refresh outlives ctx's cancellation but keeps its values.
func (r *Registry) RefreshOthers(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
	r.refreshes.Add(1)
	go func() {
		defer r.refreshes.Done()
		defer cancel()
		r.RefreshCompaniesExcept(ctx, id)
		r.logger.Debug("refreshed other tabs", "session", id)
	}()
}

// Wait blocks until background refreshes have finished.
func (r *Registry) Wait() {
	r.refreshes.Wait()
}
