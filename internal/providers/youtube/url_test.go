package youtube

import "testing"

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"https://youtu.be/abc123", "abc123", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ", true},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://music.youtube.com/watch?v=dQw4w9WgXcQ&list=RD", "dQw4w9WgXcQ", true},
		{"youtube.com/shorts/Zx9_-aB3cD1", "Zx9_-aB3cD1", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"funny cats", "", false},
		{"https://vimeo.com/123456", "", false},
		{"https://www.youtube.com/channel/UC123", "", false},
		{"https://www.youtube.com/watch", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractVideoID(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ExtractVideoID(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}
