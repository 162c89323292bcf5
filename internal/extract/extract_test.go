package extract_test

import (
	"strings"
	"testing"

	"github.com/lukemcguire/crawlhive/internal/extract"
)

const samplePage = `<!DOCTYPE html>
<html lang="en">
<head>
	<title> Example Domain </title>
	<meta name="description" content="An example page for testing.">
	<meta name="keywords" content="Crawling, Extraction, go, ab">
	<meta property="og:title" content="OG Example">
	<meta property="og:image" content="https://example.com/img.png">
	<meta name="twitter:card" content="summary">
</head>
<body>
	<nav>Skip this navigation text entirely</nav>
	<article>
		<h1>Welcome to Example</h1>
		<p>This page talks about crawling crawling crawling and extraction extraction, long enough to clear the hundred character main-content threshold on its own.</p>
		<a href="/about" title="About us">About</a>
	</article>
	<script>var shouldNotAppear = true;</script>
</body>
</html>`

func TestFromHTMLExtractsMetadata(t *testing.T) {
	doc, err := extract.FromHTML("https://example.com/", []byte(samplePage))
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}

	if doc.Title != "Example Domain" {
		t.Errorf("Title = %q, want %q", doc.Title, "Example Domain")
	}
	if doc.Description != "An example page for testing." {
		t.Errorf("Description = %q", doc.Description)
	}
	if doc.Metadata["og:title"] != "OG Example" {
		t.Errorf("Metadata[og:title] = %q", doc.Metadata["og:title"])
	}
	if doc.Metadata["og:image"] != "https://example.com/img.png" {
		t.Errorf("Metadata[og:image] = %q", doc.Metadata["og:image"])
	}
	if doc.Metadata["twitter:card"] != "summary" {
		t.Errorf("Metadata[twitter:card] = %q", doc.Metadata["twitter:card"])
	}
	if doc.Language != "en" {
		t.Errorf("Language = %q, want en (from lang attribute)", doc.Language)
	}
	if strings.Contains(doc.Text, "shouldNotAppear") {
		t.Error("extracted text includes script contents")
	}
	if strings.Contains(doc.Text, "Skip this navigation") {
		t.Error("extracted text includes nav contents")
	}
	if doc.WordCount == 0 {
		t.Error("WordCount is zero")
	}
	if len(doc.Links) != 1 || doc.Links[0].URL != "https://example.com/about" {
		t.Errorf("Links = %+v, want one link to https://example.com/about", doc.Links)
	}
	if doc.Links[0].Title != "About us" {
		t.Errorf("Links[0].Title = %q, want %q", doc.Links[0].Title, "About us")
	}
	if doc.ContentHash == "" || len(doc.ContentHash) != 64 {
		t.Errorf("ContentHash = %q, want 64-char hex digest", doc.ContentHash)
	}
	wantHash := extract.ContentHash([]byte(doc.Text))
	if doc.ContentHash != wantHash {
		t.Errorf("ContentHash = %q, want sha256_hex(cleanedText) = %q", doc.ContentHash, wantHash)
	}
}

func TestFromHTMLKeywordsFromMetaTag(t *testing.T) {
	doc, err := extract.FromHTML("https://example.com/", []byte(samplePage))
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	want := []string{"crawling", "extraction"}
	if len(doc.Keywords) != len(want) {
		t.Fatalf("Keywords = %v, want %v", doc.Keywords, want)
	}
	for i, kw := range want {
		if doc.Keywords[i] != kw {
			t.Errorf("Keywords[%d] = %q, want %q", i, doc.Keywords[i], kw)
		}
	}
	for _, kw := range doc.Keywords {
		if len(kw) <= 2 {
			t.Errorf("Keywords contains a too-short term %q", kw)
		}
	}
}

func TestFromHTMLMainContentFallsBackToBody(t *testing.T) {
	page := `<html><head><title>No containers</title></head><body><p>` +
		strings.Repeat("word ", 30) + `</p></body></html>`
	doc, err := extract.FromHTML("https://example.com/", []byte(page))
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	if !strings.Contains(doc.Text, "word") {
		t.Errorf("Text = %q, want body fallback text", doc.Text)
	}
}

func TestContentHashIsDeterministic(t *testing.T) {
	a := extract.ContentHash([]byte("hello"))
	b := extract.ContentHash([]byte("hello"))
	c := extract.ContentHash([]byte("world"))
	if a != b {
		t.Error("ContentHash is not deterministic for identical input")
	}
	if a == c {
		t.Error("ContentHash collides for different input")
	}
}

func TestFromTextProducesMinimalDocument(t *testing.T) {
	doc := extract.FromText("https://example.com/a.txt", []byte("plain text content here"))
	if doc.WordCount != 4 {
		t.Errorf("WordCount = %d, want 4", doc.WordCount)
	}
	if doc.Title != "" || len(doc.Links) != 0 {
		t.Error("FromText must not produce a title or links")
	}
	if doc.ContentHash != extract.ContentHash([]byte(doc.Text)) {
		t.Error("ContentHash must be over the cleaned text, not the raw body")
	}
}

func TestFromJSONReserializesWithIndentation(t *testing.T) {
	body := []byte(`{"title":"A JSON document","tags":["alpha","beta"]}`)
	doc, err := extract.FromJSON("https://example.com/a.json", body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if !strings.Contains(doc.Text, "  \"title\": \"A JSON document\"") {
		t.Errorf("Text = %q, want 2-space-indented re-serialization", doc.Text)
	}
	if doc.ContentHash != extract.ContentHash([]byte(doc.Text)) {
		t.Error("ContentHash must be over the re-serialized text, not the raw body")
	}
}

func TestFromPDFHashesWithoutText(t *testing.T) {
	doc := extract.FromPDF("https://example.com/a.pdf", []byte("%PDF-1.4 fake content"))
	if doc.ContentHash == "" {
		t.Error("ContentHash is empty")
	}
	if doc.Text != "" {
		t.Errorf("Text = %q, want empty for unparsed PDF", doc.Text)
	}
	if doc.ContentHash != extract.ContentHash(nil) {
		t.Error("ContentHash must be over the empty cleaned content, not the raw PDF bytes")
	}
}
