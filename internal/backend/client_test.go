package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonHTTPResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func stubClient(fn roundTripFunc) *Client {
	return New("http://backend.local", WithHTTPClient(&http.Client{Transport: fn}))
}

func TestUploadPDFSendsMultipartFields(t *testing.T) {
	var gotCompany, gotCode, gotFilename, gotContent, gotPartType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload_pdf/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		gotCompany = r.FormValue("company_name")
		gotCode = r.FormValue("product_code")
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotFilename = hdr.Filename
		gotContent = string(data)
		gotPartType = hdr.Header.Get("Content-Type")

		_, _ = io.WriteString(w, `{"message":"PDF manual.pdf processed successfully","files":["manual.pdf"],
			"db_record":{"_id":"66a1","company_name":"Acme","product_name":"X1","uri":"/uploads/manual.pdf"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.UploadPDF(context.Background(), UploadRequest{
		Filename:    "manual.pdf",
		Content:     strings.NewReader("%PDF-1.7 body"),
		CompanyName: "Acme",
		ProductCode: "X1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme", gotCompany)
	assert.Equal(t, "X1", gotCode)
	assert.Equal(t, "manual.pdf", gotFilename)
	assert.Equal(t, "%PDF-1.7 body", gotContent)
	assert.Equal(t, "application/pdf", gotPartType)

	assert.Equal(t, "PDF manual.pdf processed successfully", res.Message)
	assert.Equal(t, []string{"manual.pdf"}, res.Files)
	require.NotNil(t, res.DBRecord)
	assert.Equal(t, "66a1", res.DBRecord.ID)
	assert.Equal(t, "X1", res.DBRecord.Code(), "product name is the fallback code")
	assert.Equal(t, "/uploads/manual.pdf", res.DBRecord.URI)
}

func TestListModelsEscapesCompany(t *testing.T) {
	c := stubClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/companies/Acme%20%2F%20Co/models/", r.URL.EscapedPath())
		return jsonHTTPResponse(http.StatusOK, `{"models":[
			{"_id":"1","product_name":"X1","filename":"x1.pdf"},
			{"_id":"2","product_code":"Y2"}]}`), nil
	})

	models, err := c.ListModels(context.Background(), "Acme / Co")
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, Model{ID: "1", ProductName: "X1", Filename: "x1.pdf"}, models[0])
	assert.Equal(t, "Y2", models[1].ProductCode)
}

func TestListCompanies(t *testing.T) {
	c := stubClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "/companies/", r.URL.Path)
		return jsonHTTPResponse(http.StatusOK, `{"companies":["Acme","Globex"]}`), nil
	})

	companies, err := c.ListCompanies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Globex"}, companies)
}

func TestQueryEncodesNulls(t *testing.T) {
	acme := "Acme"
	tests := []struct {
		name string
		req  QueryRequest
		want string
	}{
		{
			name: "company only",
			req:  QueryRequest{Query: " What is the voltage? ", CompanyName: &acme},
			want: `{"query":" What is the voltage? ","company_name":"Acme","product_code":null}`,
		},
		{
			name: "no context",
			req:  QueryRequest{Query: "hi"},
			want: `{"query":"hi","company_name":null,"product_code":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := stubClient(func(r *http.Request) (*http.Response, error) {
				assert.Equal(t, "/query/", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				body, _ := io.ReadAll(r.Body)
				assert.JSONEq(t, tt.want, string(body))
				return jsonHTTPResponse(http.StatusOK, `{"response":"12V\nmax"}`), nil
			})

			res, err := c.Query(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, "12V\nmax", res.Response)
		})
	}
}

func TestQueryWithoutResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing", body: `{}`},
		{name: "null", body: `{"response":null}`},
		{name: "not a string", body: `{"response":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := stubClient(func(*http.Request) (*http.Response, error) {
				return jsonHTTPResponse(http.StatusOK, tt.body), nil
			})

			res, err := c.Query(context.Background(), QueryRequest{Query: "hi"})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, IsTransport(err))
		})
	}

	c := stubClient(func(*http.Request) (*http.Response, error) {
		return jsonHTTPResponse(http.StatusOK, `{"response":""}`), nil
	})
	res, err := c.Query(context.Background(), QueryRequest{Query: "hi"})
	require.NoError(t, err, "an empty answer is still an answer")
	assert.Empty(t, res.Response)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		transport     roundTripFunc
		wantTransport bool
		wantDetail    string
		wantAPI       bool
	}{
		{
			name: "detail string",
			transport: func(*http.Request) (*http.Response, error) {
				return jsonHTTPResponse(http.StatusBadRequest, `{"detail":"No documents uploaded. Please upload a PDF first."}`), nil
			},
			wantAPI:    true,
			wantDetail: "No documents uploaded. Please upload a PDF first.",
		},
		{
			name: "detail list",
			transport: func(*http.Request) (*http.Response, error) {
				return jsonHTTPResponse(http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","query"]}]}`), nil
			},
			wantAPI:    true,
			wantDetail: `[{"loc":["body","query"]}]`,
		},
		{
			name: "no detail",
			transport: func(*http.Request) (*http.Response, error) {
				return jsonHTTPResponse(http.StatusInternalServerError, `{}`), nil
			},
			wantAPI: true,
		},
		{
			name: "html error page",
			transport: func(*http.Request) (*http.Response, error) {
				return jsonHTTPResponse(http.StatusBadGateway, `<html>bad gateway</html>`), nil
			},
			wantTransport: true,
		},
		{
			name: "connection refused",
			transport: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("dial tcp: connection refused")
			},
			wantTransport: true,
		},
		{
			name: "invalid success body",
			transport: func(*http.Request) (*http.Response, error) {
				return jsonHTTPResponse(http.StatusOK, `not json`), nil
			},
			wantTransport: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := stubClient(tt.transport).Query(context.Background(), QueryRequest{Query: "q"})
			require.Error(t, err)
			assert.Equal(t, tt.wantTransport, IsTransport(err))

			detail, isAPI := Detail(err)
			assert.Equal(t, tt.wantAPI, isAPI)
			assert.Equal(t, tt.wantDetail, detail)
		})
	}
}

func TestSupplementalEndpoints(t *testing.T) {
	c := stubClient(func(r *http.Request) (*http.Response, error) {
		switch r.URL.Path {
		case "/health/":
			return jsonHTTPResponse(http.StatusOK, `{"status":"healthy"}`), nil
		case "/companies/current/":
			return jsonHTTPResponse(http.StatusOK, `{"company_name":null}`), nil
		case "/get_uploaded_files/":
			return jsonHTTPResponse(http.StatusOK, `{"files":["a.pdf"]}`), nil
		case "/remove_file/":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "a b.pdf", r.URL.Query().Get("file_name"))
			return jsonHTTPResponse(http.StatusOK, `{"message":"File a b.pdf removed successfully","files":[]}`), nil
		}
		t.Fatalf("unexpected path %s", r.URL.Path)
		return nil, nil
	})
	ctx := context.Background()

	status, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", status)

	company, err := c.CurrentCompany(ctx)
	require.NoError(t, err)
	assert.Empty(t, company)

	files, err := c.UploadedFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf"}, files)

	removed, err := c.RemoveFile(ctx, "a b.pdf")
	require.NoError(t, err)
	assert.Empty(t, removed.Files)
	assert.Contains(t, removed.Message, "removed")
}

func TestNewDefaults(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, New("").BaseURL())
	assert.Equal(t, "http://example.test", New("http://example.test/").BaseURL())
}

func TestDBRecordJSON(t *testing.T) {
	var rec DBRecord
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"1","company_name":"Acme","product_code":"X1","product_name":"Old"}`), &rec))
	assert.Equal(t, "X1", rec.Code())
}
