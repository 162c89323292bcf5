package extract

// FromPDF produces a minimal Document for a PDF payload. Full text
// extraction from PDF requires a dedicated parser this crawl pipeline does
// not depend on; until one is wired in, a PDF page is an empty-body stub
// whose content hash is still the cleaned-content hash (sha256 of ""), so
// it's hashed and dedup-tracked like any other fetched document, just
// without extracted text or keywords.
func FromPDF(pageURL string, body []byte) *Document {
	return &Document{
		URL:         pageURL,
		ContentHash: ContentHash(nil),
		Language:    "en",
	}
}
