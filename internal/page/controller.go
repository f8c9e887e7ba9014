// Package page implements the document upload-and-query page: its state,
// the user actions that change it, and the backend calls behind them.
package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/datquest/docquery/internal/backend"
	"github.com/datquest/docquery/internal/session"
)

// User-facing texts.
const (
	MsgSelectFile      = "Please select a PDF file."
	MsgEnterCompany    = "Please enter Company and Model."
	MsgUploading       = "Uploading..."
	MsgUploadFailed    = "Upload failed."
	MsgUploadError     = "Error uploading PDF."
	MsgEnterQuestion   = "Please enter a question."
	MsgProcessing      = "Processing..."
	MsgQueryFailed     = "Query failed."
	MsgQueryError      = "Error processing query."
	unknownModelValue  = "Unknown"
	unknownModelSource = "file"
)

// ErrControlDisabled is returned when an action's control is disabled,
// e.g. a second upload while one is in flight.
var ErrControlDisabled = errors.New("control is disabled")

// Backend is the subset of the backend API the page calls.
type Backend interface {
	UploadPDF(ctx context.Context, in backend.UploadRequest) (*backend.UploadResult, error)
	ListCompanies(ctx context.Context) ([]string, error)
	ListModels(ctx context.Context, company string) ([]backend.Model, error)
	Query(ctx context.Context, in backend.QueryRequest) (*backend.QueryResult, error)
}

// FileInput is the selected document.
type FileInput struct {
	Name    string
	Content io.Reader
}

// UploadForm holds the upload form fields as typed by the user.
type UploadForm struct {
	File    *FileInput
	Company string
	Model   string
}

// QueryForm holds the question field and the company text field used
// when the session has no company. A nil CompanyInput keeps the field's
// current value; surfaces that show the field pass it, even when empty.
type QueryForm struct {
	Question     string
	CompanyInput *string
}

// Controller owns the page state for one session.
type Controller struct {
	backend  Backend
	session  *session.Handle
	logger   *slog.Logger
	observer func()

	mu        sync.Mutex
	state     State
	modelsGen uint64
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers fn to be called after every state change.
// fn runs outside the controller lock and must not block.
func WithObserver(fn func()) ControllerOption {
	return func(c *Controller) {
		c.observer = fn
	}
}

// New creates a controller for the session bound to h.
func New(b Backend, h *session.Handle, opts ...ControllerOption) *Controller {
	c := &Controller{
		backend: b,
		session: h,
		logger:  slog.New(slog.DiscardHandler),
		state:   InitialState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current page state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// SessionID returns the id of the bound session.
func (c *Controller) SessionID() string {
	return c.session.ID()
}

// Session returns the persisted document context.
func (c *Controller) Session(ctx context.Context) session.Context {
	sc, err := c.session.Load(ctx)
	if err != nil {
		c.logger.Warn("failed to read session", "session", c.session.ID(), "error", err)
		return session.Context{}
	}
	return sc
}

func (c *Controller) update(fn func(s *State)) {
	c.mu.Lock()
	fn(&c.state)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	if c.observer != nil {
		c.observer()
	}
}

// HandleUpload validates the form, uploads the document and, on success,
// stores the returned record in the session and refreshes both dropdowns.
func (c *Controller) HandleUpload(ctx context.Context, form UploadForm) error {
	company := strings.TrimSpace(form.Company)
	model := strings.TrimSpace(form.Model)

	c.mu.Lock()
	if !c.state.UploadEnabled {
		c.mu.Unlock()
		return fmt.Errorf("upload: %w", ErrControlDisabled)
	}
	c.state.CompanyInput = form.Company
	c.state.ModelInput = form.Model
	if form.File != nil {
		c.state.Filename = form.File.Name
	}
	if msg := validateUpload(form.File, company, model); msg != "" {
		c.state.UploadStatus = Message{Text: msg, Tone: ToneError}
		c.mu.Unlock()
		c.notify()
		return nil
	}
	c.state.UploadEnabled = false
	c.state.UploadStatus = Message{Text: MsgUploading, Tone: TonePending}
	c.mu.Unlock()
	c.notify()

	defer c.update(func(s *State) { s.UploadEnabled = true })

	res, err := c.backend.UploadPDF(ctx, backend.UploadRequest{
		Filename:    form.File.Name,
		Content:     form.File.Content,
		CompanyName: company,
		ProductCode: model,
	})
	if err != nil {
		c.logger.Warn("upload failed", "filename", form.File.Name, "error", err)
		c.update(func(s *State) {
			s.UploadStatus = Message{Text: failureText(err, MsgUploadFailed, MsgUploadError), Tone: ToneError}
		})
		return nil
	}

	c.update(func(s *State) {
		s.UploadStatus = Message{Text: res.Message, Tone: ToneSuccess}
	})
	if rec := res.DBRecord; rec != nil {
		sc := session.Context{
			Company:   rec.CompanyName,
			ModelName: rec.Code(),
			ModelID:   rec.ID,
			Filename:  rec.URI,
		}
		if err := c.session.Replace(ctx, sc); err != nil {
			c.logger.Warn("failed to store upload record in session", "session", c.session.ID(), "error", err)
		}
	}
	c.update(func(s *State) { s.QueryEnabled = true })

	c.RefreshCompanies(ctx)
	c.RefreshModels(ctx, company)
	return nil
}

// RefreshCompanies reloads the company dropdown, pre-selecting the session
// company when it is listed. Failures are logged and leave only the placeholder.
func (c *Controller) RefreshCompanies(ctx context.Context) {
	companies, err := c.backend.ListCompanies(ctx)
	if err != nil {
		c.logger.Error("failed to load companies", "error", err)
		c.update(func(s *State) { s.Companies = placeholderDropdown(CompanyPlaceholder) })
		return
	}

	selected := c.Session(ctx).Company
	dd := placeholderDropdown(CompanyPlaceholder)
	for _, name := range companies {
		dd.Options = append(dd.Options, Option{
			Value:    name,
			Label:    name,
			Selected: selected != "" && name == selected,
		})
	}
	c.update(func(s *State) { s.Companies = dd })
}

// RefreshModels reloads the model dropdown for company. An empty company
// resets the dropdown without a request; failures are logged and leave
// only the placeholder.
func (c *Controller) RefreshModels(ctx context.Context, company string) {
	c.mu.Lock()
	c.modelsGen++
	gen := c.modelsGen
	c.state.Models = placeholderDropdown(ModelPlaceholder)
	c.mu.Unlock()
	c.notify()

	if company == "" {
		return
	}

	models, err := c.backend.ListModels(ctx, company)
	if err != nil {
		c.logger.Error("failed to load models", "company", company, "error", err)
		return
	}

	sc := c.Session(ctx)
	dd := placeholderDropdown(ModelPlaceholder)
	for _, m := range models {
		opt := modelOption(m)
		opt.Selected = sc.ModelID != "" && opt.RecordID == sc.ModelID && opt.Value == sc.ModelName
		dd.Options = append(dd.Options, opt)
	}

	c.mu.Lock()
	stale := gen != c.modelsGen
	if !stale {
		c.state.Models = dd
	}
	c.mu.Unlock()
	if stale {
		c.logger.Debug("discarding stale model list", "company", company)
		return
	}
	c.notify()
}

func modelOption(m backend.Model) Option {
	value := m.ProductCode
	if value == "" {
		value = m.ProductName
	}
	if value == "" {
		value = unknownModelValue
	}
	source := m.Filename
	if source == "" {
		source = unknownModelSource
	}
	return Option{
		Value:    value,
		Label:    fmt.Sprintf("%s (%s)", value, source),
		RecordID: m.ID,
		Filename: m.Filename,
	}
}

// OnCompanySelected persists company, reloads its models and enables the
// query control when company is non-empty.
func (c *Controller) OnCompanySelected(ctx context.Context, company string) error {
	if err := c.session.SetCompany(ctx, company); err != nil {
		c.logger.Warn("failed to store company in session", "session", c.session.ID(), "error", err)
	}
	c.update(func(s *State) {
		idx, _ := s.Companies.Find(company)
		s.Companies = s.Companies.selectIndex(idx)
	})

	c.RefreshModels(ctx, company)

	c.update(func(s *State) { s.QueryEnabled = company != "" })
	return nil
}

// OnModelSelected persists the option identified by key (record id or
// value). An unknown key is a no-op.
func (c *Controller) OnModelSelected(ctx context.Context, key string) error {
	c.mu.Lock()
	idx, ok := c.state.Models.Find(key)
	if !ok {
		c.mu.Unlock()
		c.logger.Debug("model selection ignored", "key", key)
		return nil
	}
	opt := c.state.Models.Options[idx]
	c.state.Models = c.state.Models.selectIndex(idx)
	c.state.QueryEnabled = opt.Value != ""
	c.mu.Unlock()
	c.notify()

	if err := c.session.SetModel(ctx, opt.Value, opt.RecordID, opt.Filename); err != nil {
		c.logger.Warn("failed to store model in session", "session", c.session.ID(), "error", err)
	}
	return nil
}

// HandleQuery sends the question with the session's company and model and
// renders the answer. The question field is cleared afterwards, whatever
// the outcome; a blank question leaves it untouched and sends nothing.
func (c *Controller) HandleQuery(ctx context.Context, form QueryForm) error {
	c.mu.Lock()
	if !c.state.QueryEnabled {
		c.mu.Unlock()
		return fmt.Errorf("query: %w", ErrControlDisabled)
	}
	c.state.QueryInput = form.Question
	if form.CompanyInput != nil {
		c.state.CompanyInput = *form.CompanyInput
	}
	companyInput := strings.TrimSpace(c.state.CompanyInput)
	if strings.TrimSpace(form.Question) == "" {
		c.state.Output = Message{Text: MsgEnterQuestion, Tone: ToneError}
		c.mu.Unlock()
		c.notify()
		return nil
	}
	c.state.QueryEnabled = false
	c.state.Output = Message{Text: MsgProcessing, Tone: TonePending}
	c.mu.Unlock()
	c.notify()

	defer c.update(func(s *State) {
		s.QueryEnabled = true
		s.QueryInput = ""
	})

	sc := c.Session(ctx)
	req := backend.QueryRequest{
		Query:       form.Question,
		CompanyName: firstNonEmpty(sc.Company, companyInput),
		ProductCode: firstNonEmpty(sc.ModelName),
	}

	res, err := c.backend.Query(ctx, req)
	if err != nil {
		c.logger.Warn("query failed", "error", err)
		c.update(func(s *State) {
			s.Output = Message{Text: failureText(err, MsgQueryFailed, MsgQueryError), Tone: ToneError}
		})
		return nil
	}

	c.update(func(s *State) { s.Output = Message{Text: res.Response, Tone: ToneNeutral} })
	return nil
}

// Bootstrap loads the company list and, when the session already holds a
// company, its models; the query control is enabled for that company.
func (c *Controller) Bootstrap(ctx context.Context) error {
	c.RefreshCompanies(ctx)

	company := c.Session(ctx).Company
	if company == "" {
		return nil
	}
	c.RefreshModels(ctx, company)
	c.update(func(s *State) { s.QueryEnabled = true })
	return nil
}

// failureText maps a backend error to the message shown to the user:
// the server's detail, the fallback for a detail-less rejection, or the
// transport text.
func failureText(err error, fallback, transport string) string {
	detail, ok := backend.Detail(err)
	if !ok {
		return transport
	}
	if detail == "" {
		return fallback
	}
	return detail
}

// firstNonEmpty returns a pointer to the first non-empty value, or nil.
func firstNonEmpty(values ...string) *string {
	for _, v := range values {
		if v != "" {
			return &v
		}
	}
	return nil
}
