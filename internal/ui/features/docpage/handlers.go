package docpage

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/datquest/docquery/internal/page"
	"github.com/datquest/docquery/internal/ui/notifier"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"
)

const (
	// CookieName is the name of the cookie holding the browser id.
	CookieName = "docquery"
	// TabStorageKey is the sessionStorage key holding the tab id.
	TabStorageKey = "docquery.tab"

	sessionKey = "sid"
	pageTitle  = "Document Query"

	maxUploadMemory = 32 << 20
)

// errNoTab is reported for requests without a valid tab id.
var errNoTab = errors.New("missing or invalid tab id")

// NewCookieStore returns the cookie store for the browser id. The page is
// served over plain http on localhost, so the cookie is not Secure.
func NewCookieStore(secret string) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(86400 * 30) // 30 days
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = false
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}

// Handlers provides HTTP handlers for the document page.
type Handlers struct {
	registry     *Registry
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(registry *Registry, sessionStore sessions.Store, notify *notifier.Notifier, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		registry:     registry,
		sessionStore: sessionStore,
		notifier:     notify,
		logger:       logger,
	}
}

// browserID returns the browser id, issuing a new one in the cookie when
// absent. It must run before any body is written.
func (h *Handlers) browserID(w http.ResponseWriter, r *http.Request) (string, error) {
	// An undecodable cookie yields a fresh session alongside the error.
	sess, _ := h.sessionStore.Get(r, CookieName)
	if id, ok := sess.Values[sessionKey].(string); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	sess.Values[sessionKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", err
	}
	h.logger.Debug("browser session started", "browser", id)
	return id, nil
}

// tabSession identifies the page session of one browser tab.
type tabSession struct {
	Tab string
	// Key scopes the tab to its browser; controllers, session slots and
	// updates are keyed by it.
	Key string
}

// resolveTab resolves the session of tab. Like browserID it must run
// before any body is written.
func (h *Handlers) resolveTab(w http.ResponseWriter, r *http.Request, tab string) (tabSession, error) {
	if _, err := uuid.Parse(tab); err != nil {
		return tabSession{}, errNoTab
	}
	browser, err := h.browserID(w, r)
	if err != nil {
		return tabSession{}, err
	}
	return tabSession{Tab: tab, Key: browser + "/" + tab}, nil
}

// reject answers an action that cannot be attributed to a tab.
func (h *Handlers) reject(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, errNoTab) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.logger.Debug("request rejected", "path", r.URL.Path, "error", err)
	_ = datastar.NewSSE(w, r).ConsoleError(err)
}

func (h *Handlers) view(ctx context.Context, ts tabSession, ctrl *page.Controller) View {
	return View{
		SessionID: ts.Tab,
		State:     ctrl.Snapshot(),
		Session:   ctrl.Session(ctx),
	}
}

// patch sends the #app fragment and the bound signals.
func (h *Handlers) patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, ts tabSession, ctrl *page.Controller) error {
	v := h.view(ctx, ts, ctrl)
	if err := sse.PatchElementTempl(App(v)); err != nil {
		return err
	}
	return sse.MarshalAndPatchSignals(signalsFor(v.State))
}

// Page renders the page shell with a fresh state and a new tab id. A tab
// that already has an id in sessionStorage keeps it, and its state is
// restored once the SSE stream connects.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	if _, err := h.browserID(w, r); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	v := View{State: page.InitialState()}
	if err := Page(pageTitle, uuid.NewString(), v).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// PageSSE is the long-lived SSE endpoint of a tab. It loads the dropdowns
// and restores the tab's session, then re-renders whenever the tab's
// controller changes.
func (h *Handlers) PageSSE(w http.ResponseWriter, r *http.Request) {
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		_ = datastar.NewSSE(w, r).ConsoleError(err)
		return
	}
	ts, err := h.resolveTab(w, r, signals.Tab)
	if err != nil {
		h.reject(w, r, err)
		return
	}
	ctrl := h.registry.Controller(ts.Key)

	updates := h.notifier.Subscribe(ts.Key)
	defer h.notifier.Unsubscribe(ts.Key, updates)

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	if err := ctrl.Dispatch(ctx, page.ActionBootstrap, page.Input{}); err != nil {
		_ = sse.ConsoleError(err)
	}
	if err := h.patch(ctx, sse, ts, ctrl); err != nil {
		_ = sse.ConsoleError(err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := sse.PatchElementTempl(App(h.view(ctx, ts, ctrl))); err != nil {
				_ = sse.ConsoleError(err)
				// Keep trying on the next update.
			}
		}
	}
}

// Upload handles the multipart upload form.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	// The body must be consumed before the SSE response starts.
	form, tab, cleanup, parseErr := readUploadForm(r)
	defer cleanup()
	if parseErr != nil {
		_ = datastar.NewSSE(w, r).ConsoleError(parseErr)
		return
	}

	ts, err := h.resolveTab(w, r, tab)
	if err != nil {
		h.reject(w, r, err)
		return
	}
	ctrl := h.registry.Controller(ts.Key)

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()
	h.dispatch(ctx, sse, ctrl, page.ActionUpload, page.Input{Upload: form})
	if ctrl.Snapshot().UploadStatus.Tone == page.ToneSuccess {
		h.registry.RefreshOthers(ctx, ts.Key)
	}
	if err := h.patch(ctx, sse, ts, ctrl); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// readUploadForm parses the upload form and its tab field. A missing file
// leaves File nil.
func readUploadForm(r *http.Request) (page.UploadForm, string, func(), error) {
	cleanup := func() {}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return page.UploadForm{}, "", cleanup, err
		}
		if err := r.ParseForm(); err != nil {
			return page.UploadForm{}, "", cleanup, err
		}
	}
	tab := r.FormValue("tab")

	form := page.UploadForm{
		Company: r.FormValue("company"),
		Model:   r.FormValue("model"),
	}
	f, hdr, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		return form, tab, cleanup, err
	case hdr.Filename == "" && hdr.Size == 0:
		_ = f.Close()
	default:
		form.File = &page.FileInput{Name: hdr.Filename, Content: f}
		cleanup = func() { _ = f.Close() }
	}
	return form, tab, cleanup, nil
}

// SelectCompany handles a change of the company dropdown.
func (h *Handlers) SelectCompany(w http.ResponseWriter, r *http.Request) {
	h.signalAction(w, r, page.ActionSelectCompany, func(s Signals) page.Input {
		return page.Input{Company: s.Company}
	})
}

// SelectModel handles a change of the model dropdown.
func (h *Handlers) SelectModel(w http.ResponseWriter, r *http.Request) {
	h.signalAction(w, r, page.ActionSelectModel, func(s Signals) page.Input {
		return page.Input{Model: s.Model}
	})
}

// Query handles the question form.
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	h.signalAction(w, r, page.ActionQuery, func(s Signals) page.Input {
		return page.Input{Query: page.QueryForm{Question: s.Question, CompanyInput: &s.CompanyInput}}
	})
}

// signalAction runs action with input read from the datastar signals.
func (h *Handlers) signalAction(w http.ResponseWriter, r *http.Request, action page.Action, input func(Signals) page.Input) {
	// Read signals BEFORE creating SSE (SSE consumes the request body)
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		_ = datastar.NewSSE(w, r).ConsoleError(err)
		return
	}
	ts, err := h.resolveTab(w, r, signals.Tab)
	if err != nil {
		h.reject(w, r, err)
		return
	}
	ctrl := h.registry.Controller(ts.Key)

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()
	h.dispatch(ctx, sse, ctrl, action, input(signals))
	if err := h.patch(ctx, sse, ts, ctrl); err != nil {
		_ = sse.ConsoleError(err)
	}
}

func (h *Handlers) dispatch(ctx context.Context, sse *datastar.ServerSentEventGenerator, ctrl *page.Controller, action page.Action, in page.Input) {
	if err := ctrl.Dispatch(ctx, action, in); err != nil {
		h.logger.Debug("page action rejected", "action", action, "session", ctrl.SessionID(), "error", err)
		_ = sse.ConsoleError(err)
	}
}
