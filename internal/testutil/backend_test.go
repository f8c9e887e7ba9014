package testutil

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeBackend_HitsByRegisteredPath(t *testing.T) {
	fake := NewFakeBackend(t)
	fake.AddModel("Acme Corp", "X1", "x1.pdf")

	for _, path := range []string{
		"/companies/",
		"/companies/" + url.PathEscape("Acme Corp") + "/models/",
		"/companies/Globex/models/",
		"/health/",
	} {
		resp, err := http.Get(fake.URL + path)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
	}

	tests := []struct {
		pattern string
		want    int
	}{
		{"/companies/", 1},
		{"/companies/{company}/models/", 2},
		{"/health/", 1},
		{"/query/", 0},
		{"/companies/{company}/models", 0},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, fake.Hits(tt.pattern))
		})
	}
}
