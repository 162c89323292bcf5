package urlnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"fragment stripping", "https://example.com/page#section", "https://example.com/page", false},
		{"trailing slash stripping", "https://example.com/about/", "https://example.com/about", false},
		{"root path keeps slash", "https://example.com/", "https://example.com/", false},
		{"query params sorted by key", "https://e.com/a?b=2&a=1#x", "https://e.com/a?a=1&b=2", false},
		{"scheme lowercased, host lowercased", "HTTPS://Example.Com/Page", "https://example.com/Page", false},
		{"already normalized URL passes through", "https://example.com/path", "https://example.com/path", false},
		{"empty string returns error", "", "", true},
		{"invalid URL returns error", "://invalid", "", true},
		{"non-web scheme rejected", "ftp://example.com/file", "", true},
		{"missing host rejected", "https:///path", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("Normalize() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"https://example.com/path/#top",
		"HTTPS://Example.com/a?b=2&a=1#x",
		"https://example.com/",
	}
	for _, in := range inputs {
		first, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		second, err := Normalize(first)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", first, err)
		}
		if first != second {
			t.Errorf("normalize not idempotent: Normalize(%q) = %q, Normalize(%q) = %q", in, first, first, second)
		}
	}
}

func TestNormalizeTrailingSlashAndFragmentDedup(t *testing.T) {
	a, err := Normalize("https://example.com/path/#top")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Normalize("https://example.com/path")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("expected dedup, got %q and %q", a, b)
	}
}

func TestNormalizeWithBase(t *testing.T) {
	got, err := Normalize("/about", "https://example.com/home")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://example.com/about" {
		t.Errorf("got %q", got)
	}
}
