package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestExtractor(t *testing.T) *MetadataExtractor {
	t.Helper()
	return NewMetadataExtractor(zap.NewNop())
}

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractPrefersOpenGraph(t *testing.T) {
	srv := serveHTML(t, `<html><head>
		<meta property="og:title" content="OG Titel">
		<meta name="twitter:title" content="Twitter Titel">
		<title>Plain Titel</title>
		<meta property="og:description" content="OG Beschreibung">
		<meta name="description" content="Meta Beschreibung">
		<meta property="og:image" content="https://cdn.example.com/cover.png">
	</head><body></body></html>`)

	meta := newTestExtractor(t).Extract(srv.URL)

	assert.Equal(t, "OG Titel", meta.Title)
	assert.Equal(t, "OG Beschreibung", meta.Description)
	assert.Equal(t, "https://cdn.example.com/cover.png", meta.Image)
}

func TestExtractFallbackOrder(t *testing.T) {
	srv := serveHTML(t, `<html><head>
		<meta name="twitter:title" content="Twitter Titel">
		<meta name="description" content="Meta Beschreibung">
	</head><body></body></html>`)

	meta := newTestExtractor(t).Extract(srv.URL)

	assert.Equal(t, "Twitter Titel", meta.Title)
	assert.Equal(t, "Meta Beschreibung", meta.Description)
	assert.Empty(t, meta.Image)
}

func TestExtractPlainTitleTag(t *testing.T) {
	srv := serveHTML(t, `<html><head><title>  Nur ein Titel  </title></head><body></body></html>`)

	meta := newTestExtractor(t).Extract(srv.URL)

	assert.Equal(t, "Nur ein Titel", meta.Title)
	assert.Empty(t, meta.Description)
}

// Felder werden unabhängig voneinander aufgelöst: nur ein OG-Titel liefert
// Titel plus synthetisiertes Favicon, alles andere bleibt leer.
func TestExtractFieldIndependence(t *testing.T) {
	srv := serveHTML(t, `<html><head>
		<meta property="og:title" content="Nur Titel">
	</head><body></body></html>`)

	meta := newTestExtractor(t).Extract(srv.URL)

	assert.Equal(t, "Nur Titel", meta.Title)
	assert.Empty(t, meta.Description)
	assert.Empty(t, meta.Image)
	assert.Equal(t, srv.URL+"/favicon.ico", meta.Favicon)
}

// Relative Bildpfade werden gegen den Origin aufgelöst, nicht gegen den
// Seitenpfad.
func TestExtractResolvesRelativeImageAgainstOrigin(t *testing.T) {
	srv := serveHTML(t, `<html><head>
		<meta property="og:image" content="/img/cover.png">
	</head><body></body></html>`)

	meta := newTestExtractor(t).Extract(srv.URL + "/blog/post")

	assert.Equal(t, srv.URL+"/img/cover.png", meta.Image)
}

func TestExtractFaviconFromLinkTag(t *testing.T) {
	srv := serveHTML(t, `<html><head>
		<link rel="icon" href="/static/fav.png">
	</head><body></body></html>`)

	meta := newTestExtractor(t).Extract(srv.URL)

	assert.Equal(t, srv.URL+"/static/fav.png", meta.Favicon)
}

func TestExtractShortcutIconFallback(t *testing.T) {
	srv := serveHTML(t, `<html><head>
		<link rel="shortcut icon" href="https://example.com/alt.ico">
	</head><body></body></html>`)

	meta := newTestExtractor(t).Extract(srv.URL)

	assert.Equal(t, "https://example.com/alt.ico", meta.Favicon)
}

func TestExtractSendsBrowserUserAgent(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.UserAgent()
		fmt.Fprint(w, "<html><head><title>x</title></head></html>")
	}))
	defer srv.Close()

	newTestExtractor(t).Extract(srv.URL)

	assert.Contains(t, userAgent, "Mozilla/5.0")
}

// Nicht erreichbare Seiten dürfen das Anlegen nicht verhindern: Extract
// liefert degradiert Hostname + Default-Favicon statt eines Fehlers.
func TestExtractNetworkFailureFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	pageURL := srv.URL + "/page"
	srv.Close()

	meta := newTestExtractor(t).Extract(pageURL)

	parsed, err := url.Parse(pageURL)
	require.NoError(t, err)
	assert.Equal(t, parsed.Hostname(), meta.Title)
	assert.Equal(t, parsed.Scheme+"://"+parsed.Host+"/favicon.ico", meta.Favicon)
	assert.Empty(t, meta.Description)
	assert.Empty(t, meta.Image)
}

func TestExtractNon2xxFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	meta := newTestExtractor(t).Extract(srv.URL)

	parsed, err := url.Parse(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, parsed.Hostname(), meta.Title)
	assert.Equal(t, srv.URL+"/favicon.ico", meta.Favicon)
}

func TestExtractUnparsableURL(t *testing.T) {
	meta := newTestExtractor(t).Extract("not a url at all")

	assert.Equal(t, "not a url at all", meta.Title)
	assert.Empty(t, meta.Description)
	assert.Empty(t, meta.Image)
	assert.Empty(t, meta.Favicon)
}

func TestExtractEmptyPage(t *testing.T) {
	srv := serveHTML(t, `<html><head></head><body></body></html>`)

	meta := newTestExtractor(t).Extract(srv.URL)

	assert.Empty(t, meta.Title)
	assert.Empty(t, meta.Description)
	assert.Empty(t, meta.Image)
	assert.Equal(t, srv.URL+"/favicon.ico", meta.Favicon)
}
