// Package backend provides a typed client for the document question-answering API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the origin the page talks to when nothing is configured.
const DefaultBaseURL = "http://localhost:8000"

const maxErrorBody = 64 * 1024

// Client talks to the backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout bounds every request. Zero means no client-side timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UploadPDF posts a document with its company and product code.
func (c *Client) UploadPDF(ctx context.Context, in UploadRequest) (*UploadResult, error) {
	body, contentType, err := encodeUpload(in)
	if err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload_pdf/", body)
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var out UploadResult
	if err := c.do(req, "upload", &out); err != nil {
		return nil, err
	}
	c.logger.Info("document uploaded", "filename", in.Filename, "company", in.CompanyName, "product_code", in.ProductCode)
	return &out, nil
}

// ListCompanies returns the distinct company names known to the backend.
func (c *Client) ListCompanies(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/companies/", nil)
	if err != nil {
		return nil, fmt.Errorf("create companies request: %w", err)
	}

	var out companiesResponse
	if err := c.do(req, "companies", &out); err != nil {
		return nil, err
	}
	return out.Companies, nil
}

// ListModels returns the documents uploaded for company.
func (c *Client) ListModels(ctx context.Context, company string) ([]Model, error) {
	endpoint := c.baseURL + "/companies/" + url.PathEscape(company) + "/models/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create models request: %w", err)
	}

	var out modelsResponse
	if err := c.do(req, "models", &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// Query asks a question about the selected document.
func (c *Client) Query(ctx context.Context, in QueryRequest) (*QueryResult, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query/", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out queryResponse
	if err := c.do(req, "query", &out); err != nil {
		return nil, err
	}
	if out.Response == nil {
		return nil, fmt.Errorf("%w: decode query response: no response field", ErrTransport)
	}
	return &QueryResult{Response: *out.Response}, nil
}

// Health checks the backend and its vector store / model dependencies.
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health/", nil)
	if err != nil {
		return "", fmt.Errorf("create health request: %w", err)
	}

	var out healthResponse
	if err := c.do(req, "health", &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// CurrentCompany returns the company of the most recent upload, or "".
func (c *Client) CurrentCompany(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/companies/current/", nil)
	if err != nil {
		return "", fmt.Errorf("create current company request: %w", err)
	}

	var out currentCompanyResponse
	if err := c.do(req, "current company", &out); err != nil {
		return "", err
	}
	if out.CompanyName == nil {
		return "", nil
	}
	return *out.CompanyName, nil
}

// UploadedFiles lists the files held by the backend process.
func (c *Client) UploadedFiles(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get_uploaded_files/", nil)
	if err != nil {
		return nil, fmt.Errorf("create uploaded files request: %w", err)
	}

	var out FilesResult
	if err := c.do(req, "uploaded files", &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// RemoveFile deletes an uploaded file from the backend.
func (c *Client) RemoveFile(ctx context.Context, name string) (*FilesResult, error) {
	endpoint := c.baseURL + "/remove_file/?" + url.Values{"file_name": {name}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create remove file request: %w", err)
	}

	var out FilesResult
	if err := c.do(req, "remove file", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends req and decodes a 2xx JSON body into out. Non-2xx bodies become
// *APIError; send and decode failures wrap ErrTransport.
func (c *Client) do(req *http.Request, op string, out any) error {
	c.logger.Debug("backend request", "op", op, "method", req.Method, "url", req.URL.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send %s request: %w", ErrTransport, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var eb errorBody
		if err := json.Unmarshal(raw, &eb); err != nil {
			return fmt.Errorf("%w: decode %s error response (status=%d): %w", ErrTransport, op, resp.StatusCode, err)
		}
		c.logger.Debug("backend rejected request", "op", op, "status", resp.StatusCode)
		return &APIError{StatusCode: resp.StatusCode, Detail: eb.text()}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", ErrTransport, op, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeUpload(in UploadRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(in.Filename)))
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if in.Content != nil {
		if _, err := io.Copy(part, in.Content); err != nil {
			return nil, "", fmt.Errorf("read %s: %w", in.Filename, err)
		}
	}

	if err := mw.WriteField("company_name", in.CompanyName); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("product_code", in.ProductCode); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
