package services

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// metadataTimeout begrenzt den kompletten Abruf einer Zielseite. Langsame
// Seiten dürfen den Create-Request nicht blockieren.
const metadataTimeout = 10 * time.Second

// CustomTransport fügt jeder Anfrage einen Browser-User-Agent hinzu. Manche
// Seiten liefern für unbekannte Clients 403 statt HTML.
type CustomTransport struct {
	Transport http.RoundTripper
}

func (t *CustomTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	return t.Transport.RoundTrip(req)
}

// httpClient wird für alle Metadaten-Abrufe verwendet.
var httpClient = &http.Client{
	Timeout: metadataTimeout,
	Transport: &CustomTransport{
		Transport: http.DefaultTransport,
	},
}

// Metadata sind die aus einer Seite extrahierten Beschreibungsfelder.
// Leerer String bedeutet "konnte nicht ermittelt werden".
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Favicon     string `json:"favicon"`
}

// MetadataExtractor holt eine URL und extrahiert Titel, Beschreibung,
// Vorschaubild und Favicon. Extract schlägt nie fehl: bei Netzwerk- oder
// Parse-Fehlern kommt ein degradiertes Metadata-Objekt zurück.
type MetadataExtractor struct {
	Logger *zap.Logger

	// FailureCounter zählt degradierte Extraktionen, optional.
	FailureCounter prometheus.Counter
}

// NewMetadataExtractor erstellt eine neue Instanz des Extractors.
func NewMetadataExtractor(logger *zap.Logger) *MetadataExtractor {
	return &MetadataExtractor{Logger: logger}
}

// fieldSource liefert einen Kandidaten für ein Metadaten-Feld, oder "".
type fieldSource func(doc *goquery.Document) string

// metaContent liest das content-Attribut des ersten passenden Meta-Tags.
func metaContent(selector string) fieldSource {
	return func(doc *goquery.Document) string {
		content, _ := doc.Find(selector).First().Attr("content")
		return strings.TrimSpace(content)
	}
}

// elementText liest den Textinhalt des ersten passenden Elements.
func elementText(selector string) fieldSource {
	return func(doc *goquery.Document) string {
		return strings.TrimSpace(doc.Find(selector).First().Text())
	}
}

// linkHref liest das href-Attribut des ersten passenden <link>-Tags.
func linkHref(selector string) fieldSource {
	return func(doc *goquery.Document) string {
		href, _ := doc.Find(selector).First().Attr("href")
		return strings.TrimSpace(href)
	}
}

// firstNonEmpty wertet die Quellen in Reihenfolge aus, der erste Treffer
// gewinnt. Die Reihenfolge (Open Graph -> Twitter -> Standard-Tag) ist damit
// pro Feld deklarativ.
func firstNonEmpty(doc *goquery.Document, sources ...fieldSource) string {
	for _, source := range sources {
		if value := source(doc); value != "" {
			return value
		}
	}
	return ""
}

var (
	titleSources = []fieldSource{
		metaContent(`meta[property="og:title"]`),
		metaContent(`meta[name="twitter:title"]`),
		elementText("title"),
	}
	descriptionSources = []fieldSource{
		metaContent(`meta[property="og:description"]`),
		metaContent(`meta[name="twitter:description"]`),
		metaContent(`meta[name="description"]`),
	}
	imageSources = []fieldSource{
		metaContent(`meta[property="og:image"]`),
		metaContent(`meta[name="twitter:image"]`),
	}
	faviconSources = []fieldSource{
		linkHref(`link[rel="icon"]`),
		linkHref(`link[rel="shortcut icon"]`),
	}
)

// Extract lädt die Seite und ermittelt die Metadaten. Die Felder werden
// unabhängig voneinander aufgelöst; jedes fehlende Feld bleibt leer.
func (e *MetadataExtractor) Extract(pageURL string) Metadata {
	doc, err := e.fetch(pageURL)
	if err != nil {
		e.Logger.Warn("Metadaten-Abruf fehlgeschlagen, verwende Fallback",
			zap.String("url", pageURL), zap.Error(err))
		if e.FailureCounter != nil {
			e.FailureCounter.Inc()
		}
		return degradedMetadata(pageURL)
	}

	origin := pageOrigin(pageURL)
	meta := Metadata{
		Title:       firstNonEmpty(doc, titleSources...),
		Description: firstNonEmpty(doc, descriptionSources...),
		Image:       absoluteURL(firstNonEmpty(doc, imageSources...), origin),
		Favicon:     absoluteURL(firstNonEmpty(doc, faviconSources...), origin),
	}

	// Favicon nie leer lassen, solange der Origin bekannt ist.
	if meta.Favicon == "" && origin != nil {
		meta.Favicon = defaultFavicon(origin)
	}

	e.Logger.Debug("Metadaten extrahiert",
		zap.String("url", pageURL),
		zap.String("title", meta.Title))
	return meta
}

// fetch führt genau einen GET aus (keine Retries, läuft synchron im
// Create-Request) und parst die Antwort.
func (e *MetadataExtractor) fetch(pageURL string) (*goquery.Document, error) {
	resp, err := httpClient.Get(pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{status: resp.Status}
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

type statusError struct {
	status string
}

func (s *statusError) Error() string {
	return "unexpected status: " + s.status
}

// degradedMetadata ist das Ergebnis, wenn die Seite nicht geladen oder geparst
// werden konnte. Der Hostname dient als Titel, das Favicon wird aus dem Origin
// synthetisiert. Ist nicht einmal die URL parsebar, bleibt nur der Rohstring.
func degradedMetadata(pageURL string) Metadata {
	origin := pageOrigin(pageURL)
	if origin == nil {
		return Metadata{Title: pageURL}
	}
	return Metadata{
		Title:   origin.Hostname(),
		Favicon: defaultFavicon(origin),
	}
}

// pageOrigin liefert Schema + Host der Seite, oder nil wenn unparsebar.
func pageOrigin(pageURL string) *url.URL {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil
	}
	return &url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/"}
}

// absoluteURL löst eine relative Referenz gegen den Origin der Seite auf
// (nicht gegen den Seitenpfad). Absolute URLs bleiben unverändert.
func absoluteURL(ref string, origin *url.URL) string {
	if ref == "" || origin == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if parsed.IsAbs() {
		return ref
	}
	return origin.ResolveReference(parsed).String()
}

func defaultFavicon(origin *url.URL) string {
	return origin.Scheme + "://" + origin.Host + "/favicon.ico"
}
