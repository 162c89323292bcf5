package urlnorm

import "testing"

func TestShouldCrawlDomain(t *testing.T) {
	allow := []string{"example.com"}
	tests := []struct {
		url      string
		expected bool
	}{
		{"https://example.com/x", true},
		{"https://blog.example.com/x", true},
		{"https://evil.com", false},
		{"https://notexample.com", false},
	}
	for _, tt := range tests {
		if got := ShouldCrawlDomain(tt.url, allow); got != tt.expected {
			t.Errorf("ShouldCrawlDomain(%q) = %v, want %v", tt.url, got, tt.expected)
		}
	}
}

func TestShouldCrawlDomainEmptyAllowlist(t *testing.T) {
	if !ShouldCrawlDomain("https://anything.example", nil) {
		t.Error("expected true for empty allowlist")
	}
}

func TestIsSameDomain(t *testing.T) {
	tests := []struct {
		name      string
		targetURL string
		baseHost  string
		expected  bool
	}{
		{"same host", "https://example.com/page", "example.com", true},
		{"subdomain match", "https://blog.example.com/post", "example.com", true},
		{"deep subdomain", "https://a.b.example.com/", "example.com", true},
		{"different domain", "https://other.com/page", "example.com", false},
		{"partial suffix mismatch", "https://notexample.com", "example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSameDomain(tt.targetURL, tt.baseHost); got != tt.expected {
				t.Errorf("IsSameDomain() = %v, want %v", got, tt.expected)
			}
		})
	}
}
