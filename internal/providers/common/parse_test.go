package common

import "testing"

// ---------------------------------------------------------------------------
// CleanHTMLText
// ---------------------------------------------------------------------------

func TestCleanHTMLText(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"  Tom &amp; Jerry  ", "Tom & Jerry"},
		{"line<br/>break", "line break"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CleanHTMLText(tc.input); got != tc.want {
			t.Errorf("CleanHTMLText(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Truncate
// ---------------------------------------------------------------------------

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncate of short value: %q", got)
	}
	if got := Truncate("abcdefghij", 5); got != "abcd…" {
		t.Fatalf("unexpected truncate: %q", got)
	}
	if got := Truncate("привет мир", 4); got != "при…" {
		t.Fatalf("truncate must count runes, got %q", got)
	}
}

func TestYearFromDate(t *testing.T) {
	cases := map[string]int{
		"2021-10-22": 2021,
		"1999":       1999,
		"":           0,
		"19":         0,
		"abcd-01-01": 0,
	}
	for input, want := range cases {
		if got := YearFromDate(input); got != want {
			t.Errorf("YearFromDate(%q) = %d, want %d", input, got, want)
		}
	}
}

func TestHTTPSImage(t *testing.T) {
	cases := map[string]string{
		"http://books.google.com/x.jpg": "https://books.google.com/x.jpg",
		"//cdn.example.com/a.png":       "https://cdn.example.com/a.png",
		"https://ok.example.com/b.png":  "https://ok.example.com/b.png",
		"":                              "",
	}
	for input, want := range cases {
		if got := HTTPSImage(input); got != want {
			t.Errorf("HTTPSImage(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "b", "c"); got != "b" {
		t.Fatalf("unexpected value: %q", got)
	}
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
