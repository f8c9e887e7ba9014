package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Upload is one received /upload_pdf/ call.
type Upload struct {
	Filename    string
	Content     string
	CompanyName string
	ProductCode string
}

// Query is one received /query/ body. Nil fields were sent as null.
type Query struct {
	Query       string  `json:"query"`
	CompanyName *string `json:"company_name"`
	ProductCode *string `json:"product_code"`
}

// FakeBackend is an in-process HTTP fake of the document backend. Uploads
// register their company and model so later listings include them.
type FakeBackend struct {
	*httptest.Server

	mu           sync.Mutex
	companies    []string
	models       map[string][]map[string]string
	files        []string
	answer       string
	uploadDetail string
	queryDetail  string
	uploads      []Upload
	queries      []Query
	hits         map[string]int
}

// NewFakeBackend starts a fake backend that is closed with the test.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		models: map[string][]map[string]string{},
		answer: "OK",
		hits:   map[string]int{},
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Close)
	return f
}

// AddModel registers a model document for company.
func (f *FakeBackend) AddModel(company, code, filename string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addModelLocked(company, code, filename)
}

func (f *FakeBackend) addModelLocked(company, code, filename string) string {
	if !slices.Contains(f.companies, company) {
		f.companies = append(f.companies, company)
	}
	id := uuid.NewString()
	f.models[company] = append(f.models[company], map[string]string{
		"_id":          id,
		"company_name": company,
		"product_code": code,
		"filename":     filename,
		"uri":          filename,
	})
	if !slices.Contains(f.files, filename) {
		f.files = append(f.files, filename)
	}
	return id
}

// SetAnswer sets the /query/ response text.
func (f *FakeBackend) SetAnswer(s string) {
	f.mu.Lock()
	f.answer = s
	f.mu.Unlock()
}

// FailUploads makes /upload_pdf/ respond 500 with detail.
func (f *FakeBackend) FailUploads(detail string) {
	f.mu.Lock()
	f.uploadDetail = detail
	f.mu.Unlock()
}

// FailQueries makes /query/ respond 400 with detail.
func (f *FakeBackend) FailQueries(detail string) {
	f.mu.Lock()
	f.queryDetail = detail
	f.mu.Unlock()
}

// Uploads returns the received uploads.
func (f *FakeBackend) Uploads() []Upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.uploads)
}

// Queries returns the received query bodies.
func (f *FakeBackend) Queries() []Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.queries)
}

// Hits returns how many requests were served by the route registered
// as pattern, e.g. "/companies/{company}/models/".
func (f *FakeBackend) Hits(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[pattern]
}

// counted registers h under pattern and counts its hits by that pattern.
func (f *FakeBackend) counted(pattern string, h http.HandlerFunc) (string, http.HandlerFunc) {
	return pattern, func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.hits[pattern]++
		f.mu.Unlock()
		h(w, req)
	}
}

func (f *FakeBackend) routes() http.Handler {
	r := chi.NewRouter()

	r.Get(f.counted("/health/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	r.Post(f.counted("/upload_pdf/", f.handleUpload))
	r.Get(f.counted("/companies/", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"companies": nonNil(f.companies)})
	}))
	r.Get(f.counted("/companies/current/", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var current any
		if n := len(f.companies); n > 0 {
			current = f.companies[n-1]
		}
		writeJSON(w, http.StatusOK, map[string]any{"company_name": current})
	}))
	r.Get(f.counted("/companies/{company}/models/", func(w http.ResponseWriter, req *http.Request) {
		company, err := url.PathUnescape(chi.URLParam(req, "company"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad company"})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		models, ok := f.models[company]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Company not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"models": models})
	}))
	r.Post(f.counted("/query/", f.handleQuery))
	r.Get(f.counted("/get_uploaded_files/", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"files": nonNil(f.files)})
	}))
	r.Post(f.counted("/remove_file/", func(w http.ResponseWriter, req *http.Request) {
		name := req.URL.Query().Get("file_name")
		f.mu.Lock()
		defer f.mu.Unlock()
		idx := slices.Index(f.files, name)
		if idx < 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "File not found"})
			return
		}
		f.files = slices.Delete(f.files, idx, idx+1)
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "File removed successfully",
			"files":   nonNil(f.files),
		})
	}))
	return r
}

func (f *FakeBackend) handleUpload(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	file, hdr, err := req.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body", "file"}, "msg": "field required"}},
		})
		return
	}
	defer func() { _ = file.Close() }()
	content, _ := io.ReadAll(file)

	up := Upload{
		Filename:    hdr.Filename,
		Content:     string(content),
		CompanyName: req.FormValue("company_name"),
		ProductCode: req.FormValue("product_code"),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, up)
	if f.uploadDetail != "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": f.uploadDetail})
		return
	}
	id := f.addModelLocked(up.CompanyName, up.ProductCode, up.Filename)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "PDF uploaded successfully",
		"files":   nonNil(f.files),
		"db_record": map[string]string{
			"_id":          id,
			"company_name": up.CompanyName,
			"product_code": up.ProductCode,
			"filename":     up.Filename,
			"uri":          up.Filename,
		},
	})
}

func (f *FakeBackend) handleQuery(w http.ResponseWriter, req *http.Request) {
	var q Query
	if err := json.NewDecoder(req.Body).Decode(&q); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.queryDetail != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": f.queryDetail})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": f.answer})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
