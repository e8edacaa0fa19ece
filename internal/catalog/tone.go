package catalog

import "strings"

// Tone is the colour family of a status badge.
type Tone string

const (
	ToneYellow  Tone = "yellow"
	ToneGreen   Tone = "green"
	ToneRed     Tone = "red"
	ToneNeutral Tone = "neutral"
)

// StatusTone maps a listing, profile, category or report status to its badge tone.
func StatusTone(status string) Tone {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pending":
		return ToneYellow
	case "approved", "active":
		return ToneGreen
	case "rejected", "suspended":
		return ToneRed
	default:
		return ToneNeutral
	}
}
