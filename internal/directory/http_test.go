package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *HTTPProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPProvider(HTTPConfig{
		BaseURL: srv.URL,
		Host:    "directory.test",
		APIKey:  "secret",
		Timeout: 5 * time.Second,
	}, zaptest.NewLogger(t))
}

func TestHTTPProviderFindOrganization(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/company", r.URL.Path)
		assert.Equal(t, "Acme Corp", r.URL.Query().Get("company_name"))
		assert.Equal(t, "secret", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, "directory.test", r.Header.Get("X-RapidAPI-Host"))
		_, _ = w.Write([]byte(`{"items":[{"name":"Acme","website":"https://acme.test","linkedin_url":"https://li/acme"}]}`))
	})

	info, err := p.FindOrganization(context.Background(), "Acme Corp")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Acme", info.Name)
	assert.Equal(t, "Unknown", info.Industry)
	assert.Equal(t, "No description available", info.Description)
	assert.Equal(t, "https://li/acme", info.ProfileURL)
	assert.Equal(t, SourceProvider, info.Source)
}

func TestHTTPProviderNotFound(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"empty items": func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"items":[]}`)) },
		"no items":    func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{}`)) },
		"status":      func(w http.ResponseWriter, _ *http.Request) { http.Error(w, "forbidden", http.StatusForbidden) },
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			p := newTestProvider(t, h)
			info, err := p.FindOrganization(context.Background(), "Acme")
			assert.NoError(t, err)
			assert.Nil(t, info)
		})
	}
}

func TestHTTPProviderSearchPeople(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/people/search", r.URL.Path)
		assert.Equal(t, "engineer at Acme", r.URL.Query().Get("search_term"))
		_, _ = w.Write([]byte(`{"items":[
			{"name":"Ada","title":"Engineer","company":"Acme","expertise":["Go"]},
			{"title":"Analyst"}
		]}`))
	})

	profiles, err := p.SearchPeople(context.Background(), "engineer at Acme")
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "Acme", profiles[0].Organization)
	assert.Equal(t, []string{"Go"}, profiles[0].Expertise)
	assert.Equal(t, "Unknown", profiles[1].Name)
	assert.NotNil(t, profiles[1].Expertise)
}

func TestHTTPProviderMalformedBody(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})
	_, err := p.SearchPeople(context.Background(), "x")
	assert.Error(t, err)
}

func TestHTTPProviderHonorsContext(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.FindOrganization(ctx, "Acme")
	assert.Error(t, err)
}
