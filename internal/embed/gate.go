package embed

import (
	"strings"
	"time"
)

// Gate decides whether a sample's text is worth a new embed event: the text
// must be long enough, the minimum interval must have passed, and the text
// must differ from the last embedded text.
type Gate struct {
	MinChars    int
	MinInterval time.Duration

	lastHash string
	lastAt   time.Time
}

// Text joins the window title and clipboard into the text to embed
func Text(window string, clipboard *string) string {
	var chunks []string
	if w := strings.TrimSpace(window); w != "" {
		chunks = append(chunks, w)
	}
	if clipboard != nil {
		if c := strings.TrimSpace(*clipboard); c != "" {
			chunks = append(chunks, c)
		}
	}
	return strings.Join(chunks, "\n\n")
}

// Allow reports whether text should be embedded at now, and records it if so
func (g *Gate) Allow(text string, now time.Time) bool {
	if text == "" || len(text) < g.MinChars {
		return false
	}
	if !g.lastAt.IsZero() && now.Sub(g.lastAt) < g.MinInterval {
		return false
	}

	hash := HashText(text)
	if hash == g.lastHash {
		return false
	}

	g.lastHash = hash
	g.lastAt = now
	return true
}
