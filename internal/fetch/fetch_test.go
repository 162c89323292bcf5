package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lukemcguire/crawlhive/internal/fetch"
)

func TestIsBinaryContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        bool
	}{
		{"PDF", "application/pdf", true},
		{"PDF with charset", "application/pdf; charset=utf-8", true},
		{"PNG", "image/png", true},
		{"MP4", "video/mp4", true},
		{"MP3", "audio/mpeg", true},
		{"WOFF", "font/woff", true},
		{"ZIP", "application/zip", true},
		{"octet stream", "application/octet-stream", true},
		{"plain HTML", "text/html; charset=utf-8", false},
		{"JSON", "application/json", false},
		{"plain text", "text/plain", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := fetch.IsBinaryContentType(tc.contentType); got != tc.want {
				t.Errorf("IsBinaryContentType(%q) = %v, want %v", tc.contentType, got, tc.want)
			}
		})
	}
}

func TestFetchPlainReturnsBodyAndStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><h1>hello, a fully server-rendered page with plenty of body content to skip rendering</h1></body></html>"))
	}))
	defer server.Close()

	f := fetch.New(nil, nil, "testbot/1.0")
	res, err := f.Fetch(context.Background(), server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if res.Mode != fetch.ModePlain {
		t.Errorf("Mode = %v, want ModePlain", res.Mode)
	}
	if len(res.Body) == 0 {
		t.Error("Body is empty")
	}
}

func TestFetchReturnsPlainSuccessImmediatelyEvenWithRenderer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body id="root"></body></html>`))
	}))
	defer server.Close()

	renderer := &fakeRenderer{html: "<html><body>rendered content</body></html>"}
	f := fetch.New(nil, renderer, "testbot/1.0")

	res, err := f.Fetch(context.Background(), server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Mode != fetch.ModePlain {
		t.Errorf("Mode = %v, want ModePlain: a successful plain phase must not escalate", res.Mode)
	}
	if renderer.called {
		t.Error("renderer should not be invoked when the plain phase succeeds, regardless of body size")
	}
}

func TestFetchEscalatesToRendererOnPlainPhaseNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // connection refused: nothing is listening anymore

	renderer := &fakeRenderer{html: "<html><body>rendered content</body></html>"}
	f := fetch.New(nil, renderer, "testbot/1.0")

	res, err := f.Fetch(context.Background(), url, 5*time.Second)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !renderer.called {
		t.Error("renderer was not invoked after a plain-phase network error")
	}
	if res.Mode != fetch.ModeRendered {
		t.Errorf("Mode = %v, want ModeRendered", res.Mode)
	}
}

func TestFetchReturnsPlainErrorWhenRenderAlsoFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	renderer := &fakeRenderer{err: errors.New("no chrome available")}
	f := fetch.New(nil, renderer, "testbot/1.0")

	_, err := f.Fetch(context.Background(), url, 5*time.Second)
	if err == nil {
		t.Fatal("expected the original plain-phase error when rendering also fails")
	}
	if !renderer.called {
		t.Error("renderer should have been attempted before giving up")
	}
}

func TestFetchSkipsRendererWhenNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body id="root"></body></html>`))
	}))
	defer server.Close()

	f := fetch.New(nil, nil, "testbot/1.0")
	res, err := f.Fetch(context.Background(), server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Mode != fetch.ModePlain {
		t.Errorf("Mode = %v, want ModePlain (no renderer configured)", res.Mode)
	}
}

func TestFetchRejectsDisallowedContentTypeWithoutEscalating(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG"))
	}))
	defer server.Close()

	renderer := &fakeRenderer{html: "<html></html>"}
	f := fetch.New(nil, renderer, "testbot/1.0")
	f.SetAllowedContentTypes([]string{"text/html", "text/plain", "application/pdf", "application/json"})

	_, err := f.Fetch(context.Background(), server.URL, 5*time.Second)
	if err == nil {
		t.Fatal("expected an error for a MIME type outside the allow-list")
	}
	if renderer.called {
		t.Error("MIME rejection must be terminal, not an escalation trigger")
	}
}

func TestFetchAllowsUnrestrictedContentTypeByDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	f := fetch.New(nil, nil, "testbot/1.0")
	res, err := f.Fetch(context.Background(), server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Mode != fetch.ModePlain {
		t.Errorf("Mode = %v, want ModePlain", res.Mode)
	}
}

type fakeRenderer struct {
	html   string
	called bool
	err    error
}

func (f *fakeRenderer) Render(ctx context.Context, url string, timeout time.Duration) (string, error) {
	f.called = true
	if f.err != nil {
		return "", f.err
	}
	return f.html, nil
}
