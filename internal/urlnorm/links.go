package urlnorm

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// maxAnchorTextLen is the cap applied to an anchor's visible text, per
// spec.
const maxAnchorTextLen = 100

// Anchor is a single outbound link discovered in an HTML document: the
// normalized target URL, the anchor's visible text, and its title
// attribute, if any.
type Anchor struct {
	URL   string
	Text  string
	Title string
}

// ExtractLinks walks the HTML token stream from body (a DOM walk, not the
// bare regex the reference implementation used — see spec design notes),
// resolving every a[href] against base, normalizing it, and skipping
// mailto: links and fragment-only "#" hrefs. Anchor text is collapsed
// whitespace, truncated to maxAnchorTextLen runes.
func ExtractLinks(body io.Reader, base *url.URL) ([]Anchor, error) {
	tokenizer := html.NewTokenizer(body)

	var anchors []Anchor
	var inAnchor bool
	var hrefOK bool
	var href, title string
	var textBuilder strings.Builder

	reset := func() {
		inAnchor, hrefOK, href, title = false, false, "", ""
		textBuilder.Reset()
	}

	flush := func() {
		if !inAnchor || !hrefOK {
			reset()
			return
		}
		text := strings.Join(strings.Fields(textBuilder.String()), " ")
		if text == "" {
			reset()
			return
		}
		if resolved, ok := resolveAnchorHref(base, href); ok {
			anchors = append(anchors, Anchor{
				URL:   resolved,
				Text:  truncateRunes(text, maxAnchorTextLen),
				Title: strings.TrimSpace(title),
			})
		}
		reset()
	}

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if inAnchor {
				flush()
			}
			if err := tokenizer.Err(); err != nil && err != io.EOF {
				return anchors, nil
			}
			return anchors, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			if inAnchor {
				flush()
			}
			inAnchor = true
			for _, attr := range token.Attr {
				switch attr.Key {
				case "href":
					href = attr.Val
					hrefOK = true
				case "title":
					title = attr.Val
				}
			}
			if tokenizer.Token().Type == html.SelfClosingTagToken {
				flush()
			}

		case html.EndTagToken:
			token := tokenizer.Token()
			if token.Data == "a" && inAnchor {
				flush()
			}

		case html.TextToken:
			if inAnchor {
				textBuilder.Write(tokenizer.Text())
			}
		}
	}
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

// resolveAnchorHref resolves href against base and returns the normalized
// absolute URL, or ok=false when the href should be skipped entirely
// (mailto:, fragment-only, non-http scheme, or unparsable). An empty href
// resolves to base itself.
func resolveAnchorHref(base *url.URL, href string) (string, bool) {
	trimmed := strings.TrimSpace(href)
	if strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	if trimmed == "" {
		// An empty href points back at the current page.
		trimmed = base.String()
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "mailto:") {
		return "", false
	}

	hrefURL, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}

	resolved := base.ResolveReference(hrefURL)
	resolvedStr := resolved.String()
	if !IsHTTPScheme(resolvedStr) {
		return "", false
	}

	normalized, err := Normalize(resolvedStr)
	if err != nil {
		return "", false
	}
	return normalized, true
}
