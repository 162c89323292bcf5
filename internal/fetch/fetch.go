// Package fetch implements the dual-mode page fetcher: a plain HTTP GET
// first, escalating to a headless-browser render only when the plain
// phase itself fails outright (connection refused, DNS failure, timeout).
// A plain-phase response that comes back at all, successful or not,
// stands as the fetch's result; an unsupported MIME type is a terminal
// rejection, never an escalation trigger.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Mode reports which fetch strategy ultimately produced a Result.
type Mode string

const (
	ModePlain    Mode = "plain"
	ModeRendered Mode = "rendered"
)

// Result is a successfully fetched page.
type Result struct {
	URL          string
	FinalURL     string // after redirects
	StatusCode   int
	ContentType  string
	Body         []byte
	Mode         Mode
	FetchedAt    time.Time
	RTT          time.Duration
	LastModified time.Time // zero if the origin sent no Last-Modified header
}

// binaryPrefixes and binaryExact list the MIME types IsBinaryContentType
// reports as binary.
var binaryPrefixes = []string{"image/", "video/", "audio/", "font/"}
var binaryExact = map[string]bool{
	"application/pdf":              true,
	"application/zip":              true,
	"application/x-zip-compressed": true,
	"application/gzip":             true,
	"application/vnd.rar":          true,
	"application/x-7z-compressed":  true,
	"application/octet-stream":     true,
}

// IsBinaryContentType reports whether contentType names a format the
// extractor cannot meaningfully parse for links or text.
func IsBinaryContentType(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	for _, prefix := range binaryPrefixes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return binaryExact[contentType]
}

// Fetcher is the dual-mode page fetcher: Fetch tries a plain HTTP GET, and
// escalates to a headless render only when the plain phase fails outright.
type Fetcher struct {
	client              *http.Client
	renderer            Renderer
	userAgent           string
	maxBodyBytes        int64    // plain-fetch body cap (maxPageSize)
	allowedContentTypes []string // MIME allow-list for the plain phase; empty means unrestricted
}

// Renderer executes a URL in a headless browser and returns the rendered
// DOM's outer HTML. Implemented by ChromeRenderer.
type Renderer interface {
	Render(ctx context.Context, url string, timeout time.Duration) (string, error)
}

// New creates a Fetcher. renderer may be nil to disable the rendered-mode
// fallback entirely (plain HTTP only).
func New(client *http.Client, renderer Renderer, userAgent string) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if userAgent == "" {
		userAgent = "crawlhivebot/1.0 (+https://github.com/lukemcguire/crawlhive)"
	}
	return &Fetcher{client: client, renderer: renderer, userAgent: userAgent, maxBodyBytes: 5 << 20}
}

// SetMaxBodyBytes caps the plain-fetch response body size; bodies beyond
// this limit are truncated rather than read in full. n<=0 disables the cap.
func (f *Fetcher) SetMaxBodyBytes(n int64) {
	f.maxBodyBytes = n
}

// SetAllowedContentTypes sets the MIME allow-list applied to a successful
// plain-phase response. A nil or empty list leaves the fetch unrestricted.
func (f *Fetcher) SetAllowedContentTypes(types []string) {
	f.allowedContentTypes = types
}

// Fetch retrieves url via the plain HTTP phase. Connection refused, DNS
// failure, and timeouts are failures of that phase, not of the fetch as a
// whole, so the headless-rendered phase is attempted before giving up.
// A plain-phase response that arrives at all is final: an unsupported
// MIME type is rejected outright rather than escalated to rendering, and
// any other response — whatever its status — is returned as-is.
func (f *Fetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (*Result, error) {
	res, plainErr := f.fetchPlain(ctx, url, timeout)
	if plainErr != nil {
		if f.renderer == nil {
			return nil, plainErr
		}
		rendered, renderErr := f.fetchRendered(ctx, url, timeout)
		if renderErr != nil {
			// Rendering is a best-effort escalation; surface the original
			// plain-phase failure when it also fails.
			return nil, plainErr
		}
		return rendered, nil
	}

	if !contentTypeAllowed(res.ContentType, f.allowedContentTypes) {
		return nil, fmt.Errorf("fetch: unsupported content type %q for %s", res.ContentType, url)
	}
	return res, nil
}

// contentTypeAllowed reports whether contentType (ignoring any ";charset=…"
// parameter) matches an entry in allowList. An empty allowList permits
// everything.
func contentTypeAllowed(contentType string, allowList []string) bool {
	if len(allowList) == 0 {
		return true
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}
	for _, allowed := range allowList {
		if strings.EqualFold(ct, allowed) {
			return true
		}
	}
	return false
}

func (f *Fetcher) fetchPlain(ctx context.Context, url string, timeout time.Duration) (*Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	rtt := time.Since(start)
	if err != nil {
		return nil, classifyFetchError(url, err)
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if f.maxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBodyBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("fetch: read body for %s: %w", url, err)
	}

	return &Result{
		URL:          url,
		FinalURL:     resp.Request.URL.String(),
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		Body:         body,
		Mode:         ModePlain,
		FetchedAt:    time.Now().UTC(),
		RTT:          rtt,
		LastModified: parseLastModified(resp.Header.Get("Last-Modified")),
	}, nil
}

// parseLastModified parses an HTTP date header, returning the zero time if
// raw is empty or not a valid HTTP-date.
func parseLastModified(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := http.ParseTime(raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (f *Fetcher) fetchRendered(ctx context.Context, url string, timeout time.Duration) (*Result, error) {
	start := time.Now()
	html, err := f.renderer.Render(ctx, url, timeout)
	if err != nil {
		return nil, fmt.Errorf("fetch: render %s: %w", url, err)
	}
	return &Result{
		URL:         url,
		FinalURL:    url,
		StatusCode:  http.StatusOK,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(html),
		Mode:        ModeRendered,
		FetchedAt:   time.Now().UTC(),
		RTT:         time.Since(start),
	}, nil
}

func classifyFetchError(url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("fetch: timeout fetching %s: %w", url, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("fetch: network error fetching %s: %w", url, err)
	}
	return fmt.Errorf("fetch: %s: %w", url, err)
}
