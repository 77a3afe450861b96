package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/proxy", r.URL.Path)
		assert.Equal(t, "https://www.kleinanzeigen.de/s-anzeige/rad/123", r.URL.Query().Get("u"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>Fahrrad</html>"))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	body, err := c.Fetch(context.Background(), "https://www.kleinanzeigen.de/s-anzeige/rad/123")
	require.NoError(t, err)
	assert.Equal(t, "<html>Fahrrad</html>", body)
}

func TestClient_Fetch_DecodesCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		// "Tübingen" in Latin-1.
		_, _ = w.Write([]byte{'T', 0xfc, 'b', 'i', 'n', 'g', 'e', 'n'})
	}))
	defer srv.Close()

	body, err := New(srv.URL).Fetch(context.Background(), "https://example.de")
	require.NoError(t, err)
	assert.Equal(t, "Tübingen", body)
}

func TestClient_Fetch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"host not allowed"}` + strings.Repeat("x", 200)))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Fetch(context.Background(), "https://evil.example")
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Len(t, []rune(se.Body), snippetLen)
	assert.True(t, strings.HasPrefix(err.Error(), `Proxy HTTP 403: {"detail":"host not allowed"}`))
}

func TestClient_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithTimeout(20*time.Millisecond)).Fetch(context.Background(), "https://slow.example")
	assert.Error(t, err)
}

func TestClient_Fetch_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL).Fetch(ctx, "https://example.de")
	assert.ErrorIs(t, err, context.Canceled)
}

type stubFetcher struct {
	body string
	err  error
}

func (s stubFetcher) Fetch(context.Context, string) (string, error) { return s.body, s.err }

func TestFetchJSON(t *testing.T) {
	var out []map[string]any
	err := FetchJSON(context.Background(), stubFetcher{body: `[{"lat":"48.1"}]`}, "u", &out)
	require.NoError(t, err)
	assert.Equal(t, "48.1", out[0]["lat"])

	err = FetchJSON(context.Background(), stubFetcher{body: `<html>`}, "u", &out)
	assert.ErrorContains(t, err, "JSON parse error")
}

func TestStatusError_NoBody(t *testing.T) {
	assert.Equal(t, "Proxy HTTP 502", (&StatusError{StatusCode: 502}).Error())
}
