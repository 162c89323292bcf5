// Package extract implements the content extractor: turns
// a fetched page's raw bytes into structured metadata (title, description,
// Open Graph / Twitter card fields, visible text, word count, outbound
// links) plus the content hash used for unchanged-page detection.
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/lukemcguire/crawlhive/internal/urlnorm"
)

// Document is the structured result of extracting a fetched page.
type Document struct {
	URL         string
	Title       string
	Description string
	Language    string
	Text        string
	WordCount   int
	Keywords    []string
	Links       []urlnorm.Anchor
	// Metadata holds every og:* and twitter:* meta tag, keyed by its
	// property/name, plus a "schemaType" key when an itemtype/typeof
	// attribute is present.
	Metadata    map[string]string
	ContentHash string
}

const (
	maxTitleLen       = 200
	maxDescriptionLen = 500
	maxTextLen        = 50000
	minMainContentLen = 100
)

// removedSelectors are stripped from the DOM before main-content text
// extraction (after metadata, keywords, language, title and description
// have been read); their contents are markup, navigation, or boilerplate,
// never prose.
var removedSelectors = []string{
	"script", "style", "nav", "footer", "aside",
	".advertisement", ".ads", ".sidebar", ".menu", ".navigation",
}

// mainContentSelectors are tried in order; the first whose normalized
// text exceeds minMainContentLen wins. If none qualify, the whole
// document's text is used.
var mainContentSelectors = []string{
	"main", "article", ".content", ".main-content", ".post-content",
	".article-content", "#content", ".page-content",
}

// titleSelectors are tried, in order, after the dedicated <title> and
// og:title/twitter:title lookups.
var titleSelectors = []string{".title", ".page-title"}

// descriptionSelectors are tried, in order, after meta description and
// og:description/twitter:description.
var descriptionSelectors = []string{".description", ".summary"}

// FromHTML parses an HTML page body and extracts its Document.
func FromHTML(pageURL string, body []byte) (*Document, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract: parse page url %q: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html for %q: %w", pageURL, err)
	}

	links, err := urlnorm.ExtractLinks(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("extract: extract links for %q: %w", pageURL, err)
	}

	meta := collectMetadata(doc)
	keywords := keywordsFromMeta(doc)
	language := resolveLanguage(doc, meta)
	title := resolveTitle(doc, meta)
	description := resolveDescription(doc, meta)

	doc.Find(strings.Join(removedSelectors, ", ")).Remove()

	text := truncateRunes(resolveMainContent(doc), maxTextLen)

	d := &Document{
		URL:         pageURL,
		Title:       title,
		Description: description,
		Language:    language,
		Text:        text,
		WordCount:   countWords(text),
		Keywords:    keywords,
		Links:       links,
		Metadata:    meta,
	}
	d.ContentHash = ContentHash([]byte(d.Text))

	return d, nil
}

// FromText wraps plain-text or unrecognized content in a minimal Document,
// still carrying a content hash so dedup works uniformly across formats.
func FromText(pageURL string, body []byte) *Document {
	text := truncateRunes(normalizeWhitespace(string(body)), maxTextLen)
	return &Document{
		URL:         pageURL,
		Text:        text,
		WordCount:   countWords(text),
		ContentHash: ContentHash([]byte(text)),
		Language:    "en",
	}
}

// ContentHash returns the lowercase hex SHA-256 digest of content, the
// unchanged-page signal used for recrawl dedup. Callers pass the cleaned
// content string (Document.Text, or its format-specific equivalent), never
// the raw fetched bytes, so contentHash == sha256_hex(cleanedText(body)).
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// resolveTitle tries, in order: <title>, <h1>, og:title, twitter:title,
// .title, .page-title. The first non-empty candidate wins, trimmed and
// truncated to maxTitleLen.
func resolveTitle(doc *goquery.Document, meta map[string]string) string {
	candidates := []string{
		doc.Find("title").First().Text(),
		doc.Find("h1").First().Text(),
		meta["og:title"],
		meta["twitter:title"],
	}
	for _, sel := range titleSelectors {
		candidates = append(candidates, doc.Find(sel).First().Text())
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return truncateRunes(c, maxTitleLen)
		}
	}
	return ""
}

// resolveDescription tries, in order: meta[name=description],
// og:description, twitter:description, .description, .summary. The first
// non-empty candidate wins, truncated to maxDescriptionLen.
func resolveDescription(doc *goquery.Document, meta map[string]string) string {
	candidates := []string{
		metaByAttr(doc, "name", "description"),
		meta["og:description"],
		meta["twitter:description"],
	}
	for _, sel := range descriptionSelectors {
		candidates = append(candidates, doc.Find(sel).First().Text())
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return truncateRunes(c, maxDescriptionLen)
		}
	}
	return ""
}

// resolveMainContent tries mainContentSelectors in order, picking the
// first whose normalized text exceeds minMainContentLen; falls back to
// the whole document's text.
func resolveMainContent(doc *goquery.Document) string {
	for _, sel := range mainContentSelectors {
		text := normalizeWhitespace(doc.Find(sel).First().Text())
		if len(text) > minMainContentLen {
			return text
		}
	}
	return normalizeWhitespace(doc.Find("body").Text())
}

// collectMetadata gathers every og:* and twitter:* meta tag into a map
// keyed by its property/name, plus a "schemaType" entry when an
// itemtype/typeof attribute is present anywhere in the document.
func collectMetadata(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	doc.Find("meta[property]").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		if !strings.HasPrefix(prop, "og:") {
			return
		}
		if content, ok := s.Attr("content"); ok && strings.TrimSpace(content) != "" {
			meta[prop] = strings.TrimSpace(content)
		}
	})
	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		if !strings.HasPrefix(name, "twitter:") {
			return
		}
		if content, ok := s.Attr("content"); ok && strings.TrimSpace(content) != "" {
			meta[name] = strings.TrimSpace(content)
		}
	})

	if v, ok := doc.Find("[itemtype]").First().Attr("itemtype"); ok && strings.TrimSpace(v) != "" {
		meta["schemaType"] = strings.TrimSpace(v)
	} else if v, ok := doc.Find("[typeof]").First().Attr("typeof"); ok && strings.TrimSpace(v) != "" {
		meta["schemaType"] = strings.TrimSpace(v)
	}

	return meta
}

// keywordsFromMeta parses meta[name=keywords]'s comma-separated content:
// lowercased, length > 2, deduplicated, capped at 20.
func keywordsFromMeta(doc *goquery.Document) []string {
	raw := metaByAttr(doc, "name", "keywords")
	if raw == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		kw := strings.ToLower(strings.TrimSpace(part))
		if len(kw) <= 2 || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
		if len(out) >= 20 {
			break
		}
	}
	return out
}

// resolveLanguage tries, in order: html[lang],
// meta[http-equiv=content-language], meta[name=language], og:locale.
// The first non-empty candidate is lowercased and capped at 5 chars;
// default "en".
func resolveLanguage(doc *goquery.Document, meta map[string]string) string {
	candidates := []string{
		doc.Find("html").AttrOr("lang", ""),
		metaByAttr(doc, "http-equiv", "content-language"),
		metaByAttr(doc, "name", "language"),
		meta["og:locale"],
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			c = strings.ToLower(c)
			return truncateRunes(c, 5)
		}
	}
	return "en"
}

// metaByAttr returns the content of the first <meta> tag whose attr value
// case-insensitively equals value.
func metaByAttr(doc *goquery.Document, attr, value string) string {
	var result string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr(attr)
		if !ok || !strings.EqualFold(v, value) {
			return true
		}
		content, ok := s.Attr("content")
		if !ok {
			return true
		}
		result = strings.TrimSpace(content)
		return false
	})
	return result
}

func normalizeWhitespace(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

func countWords(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Fields(s))
}

// truncateRunes truncates s to at most n runes, leaving it unchanged if
// it's already shorter.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
