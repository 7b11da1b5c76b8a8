package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

var pathPrefixes = []string{"/embed/", "/shorts/", "/v/", "/live/"}

// ExtractVideoID recognizes the common YouTube link shapes and returns the
// video id they point at. Plain text queries return false.
func ExtractVideoID(input string) (string, bool) {
	raw := strings.TrimSpace(input)
	if raw == "" || strings.ContainsAny(raw, " \t\n") {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		if !strings.Contains(strings.ToLower(raw), "youtu") {
			return "", false
		}
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, prefix := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, prefix)
	}

	var id string
	switch host {
	case "youtu.be":
		id = firstSegment(parsed.Path)
	case "youtube.com", "youtube-nocookie.com":
		if parsed.Path == "/watch" {
			id = parsed.Query().Get("v")
			break
		}
		for _, prefix := range pathPrefixes {
			if strings.HasPrefix(parsed.Path, prefix) {
				id = firstSegment(strings.TrimPrefix(parsed.Path, prefix))
				break
			}
		}
	default:
		return "", false
	}

	if !videoIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		path = path[:idx]
	}
	return path
}
