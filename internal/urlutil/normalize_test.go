package urlutil

import (
	"errors"
	"testing"
)

// TestNormalize tests URL canonicalization.
func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases scheme and host",
			in:   "HTTP://CyLaw.ORG/Cases",
			want: "http://cylaw.org/Cases",
		},
		{
			name: "strips www prefix",
			in:   "https://www.bailii.org/databases",
			want: "https://bailii.org/databases",
		},
		{
			name: "strips fragment",
			in:   "https://eur-lex.europa.eu/homepage.html#top",
			want: "https://eur-lex.europa.eu/homepage.html",
		},
		{
			name: "strips trailing slash",
			in:   "https://curia.europa.eu/jcms/",
			want: "https://curia.europa.eu/jcms",
		},
		{
			name: "keeps root slash",
			in:   "https://cylaw.org/",
			want: "https://cylaw.org/",
		},
		{
			name: "adds root slash for empty path",
			in:   "https://cylaw.org",
			want: "https://cylaw.org/",
		},
		{
			name: "strips default http port",
			in:   "http://cylaw.org:80/cases",
			want: "http://cylaw.org/cases",
		},
		{
			name: "strips default https port",
			in:   "https://cylaw.org:443/cases",
			want: "https://cylaw.org/cases",
		},
		{
			name: "keeps encoded path separator",
			in:   "https://cylaw.org/doc%2F2024",
			want: "https://cylaw.org/doc%2F2024",
		},
		{
			name: "keeps encoded path separator when stripping trailing slash",
			in:   "https://cylaw.org/doc%2F2024/",
			want: "https://cylaw.org/doc%2F2024",
		},
		{
			name: "keeps non-standard port",
			in:   "http://cylaw.org:8080/cases",
			want: "http://cylaw.org:8080/cases",
		},
		{
			name: "preserves query string",
			in:   "https://eur-lex.europa.eu/homepage.html?locale=en",
			want: "https://eur-lex.europa.eu/homepage.html?locale=en",
		},
		{
			name: "trims surrounding whitespace",
			in:   "  https://cylaw.org/cases  ",
			want: "https://cylaw.org/cases",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestNormalizeInvalid tests rejection of malformed URLs.
func TestNormalizeInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{name: "relative path", in: "/cases/2024"},
		{name: "missing host", in: "http:///cases"},
		{name: "mailto scheme", in: "mailto:clerk@cylaw.org"},
		{name: "javascript scheme", in: "javascript:void(0)"},
		{name: "ftp scheme", in: "ftp://cylaw.org/archive.zip"},
		{name: "empty string", in: ""},
		{name: "bare word", in: "homepage"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Normalize(tt.in); !errors.Is(err, ErrInvalidURL) {
				t.Errorf("Normalize(%q) error = %v, want ErrInvalidURL", tt.in, err)
			}
		})
	}
}

// TestNormalizeDeterministic tests that equivalent spellings converge
// on the same key.
func TestNormalizeDeterministic(t *testing.T) {
	t.Parallel()

	variants := []string{
		"https://www.cylaw.org/cases/",
		"HTTPS://CYLAW.ORG/cases",
		"https://cylaw.org:443/cases#ruling",
	}

	want := "https://cylaw.org/cases"
	for _, v := range variants {
		got, err := Normalize(v)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", v, err)
		}
		if got != want {
			t.Errorf("Normalize(%q) = %q, want %q", v, got, want)
		}
	}
}

// TestSameDomain tests domain boundary checks.
func TestSameDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		key    string
		domain string
		want   bool
	}{
		{name: "exact host", key: "https://cylaw.org/cases", domain: "cylaw.org", want: true},
		{name: "subdomain", key: "https://hudoc.echr.coe.int/eng", domain: "echr.coe.int", want: true},
		{name: "different domain", key: "https://example.com/", domain: "cylaw.org", want: false},
		{name: "suffix but not subdomain", key: "https://notcylaw.org/", domain: "cylaw.org", want: false},
		{name: "www in configured domain", key: "https://bailii.org/", domain: "www.bailii.org", want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := SameDomain(tt.key, tt.domain); got != tt.want {
				t.Errorf("SameDomain(%q, %q) = %v, want %v", tt.key, tt.domain, got, tt.want)
			}
		})
	}
}

// TestHasExcludedExtension tests the extension exclusion policy.
func TestHasExcludedExtension(t *testing.T) {
	t.Parallel()

	exts := []string{".pdf", ".zip", ".docx"}

	tests := []struct {
		name string
		key  string
		want bool
	}{
		{name: "pdf excluded", key: "https://cylaw.org/ruling.pdf", want: true},
		{name: "uppercase extension", key: "https://cylaw.org/ruling.PDF", want: true},
		{name: "html allowed", key: "https://cylaw.org/ruling.html", want: false},
		{name: "extension in query ignored", key: "https://cylaw.org/view?file=a.pdf", want: false},
		{name: "no extension", key: "https://cylaw.org/cases", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := HasExcludedExtension(tt.key, exts); got != tt.want {
				t.Errorf("HasExcludedExtension(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
