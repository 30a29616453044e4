package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Window is a rolling lookback period used to scope briefs
type Window string

// supported brief windows
const (
	Window24h Window = "24h"
	Window48h Window = "48h"
	Window72h Window = "72h"
)

// Windows returns all supported windows in synthesis order
func Windows() []Window {
	return []Window{Window24h, Window48h, Window72h}
}

// ParseWindow validates a window string
func ParseWindow(s string) (Window, bool) {
	switch Window(s) {
	case Window24h, Window48h, Window72h:
		return Window(s), true
	}
	return "", false
}

// Hours returns the lookback size of the window
func (w Window) Hours() int {
	switch w {
	case Window24h:
		return 24
	case Window48h:
		return 48
	default:
		return 72
	}
}

// Disclaimer is attached to every generated brief
const Disclaimer = "This brief is generated automatically from public news feeds for informational purposes only and is not investment advice."

// BriefBullets holds the three named bullet lists of a brief
type BriefBullets struct {
	What  []string `json:"what"`
	Why   []string `json:"why"`
	Watch []string `json:"watch"`
}

// Brief is the synthesized digest of news for one window. Empty bullet lists
// are valid and mean "no qualifying news in this window".
type Brief struct {
	ID          string       `json:"id"`
	Window      Window       `json:"window"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Bullets     BriefBullets `json:"bullets"`
	Extended    string       `json:"extended"`
	Disclaimer  string       `json:"disclaimer"`
}

// NewBriefID derives a brief identifier from the window and generation time.
// Not a stable business key, the window itself is.
func NewBriefID(w Window, generatedAt time.Time) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%d", w, generatedAt.UnixNano()))
	return hex.EncodeToString(sum[:8])
}

// EmptyBrief returns the deterministic fallback brief for a window with no
// qualifying news
func EmptyBrief(w Window, generatedAt time.Time) Brief {
	return Brief{
		ID:          NewBriefID(w, generatedAt),
		Window:      w,
		GeneratedAt: generatedAt,
		Bullets:     BriefBullets{What: []string{}, Why: []string{}, Watch: []string{}},
		Disclaimer:  Disclaimer,
	}
}
