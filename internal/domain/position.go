package domain

import "strings"

// Position is the canonical defensive position bucket.
type Position string

const (
	PositionGuard   Position = "G"
	PositionForward Position = "F"
	PositionCenter  Position = "C"
)

// ClassifyPosition maps a raw position listing to its canonical bucket.
// Listings containing "CENTER" (or exactly "C") map to Center unless they
// also mention guard or forward; forward listings (including "F-C") map to
// Forward; guard listings (including "G-F") map to Guard. Anything
// unrecognized, including the empty string, falls back to Guard. The Guard
// fallback conflates true unknowns with guards; it is kept for parity with
// the historical feature tables.
func ClassifyPosition(raw string) Position {
	pos := strings.ToUpper(strings.TrimSpace(raw))

	switch {
	case (strings.Contains(pos, "CENTER") || pos == "C") &&
		!strings.Contains(pos, "GUARD") && !strings.Contains(pos, "FORWARD"):
		return PositionCenter
	case strings.Contains(pos, "FORWARD") || pos == "F" || pos == "F-C":
		return PositionForward
	case strings.Contains(pos, "GUARD") || pos == "G" || pos == "G-F":
		return PositionGuard
	default:
		return PositionGuard
	}
}

// OneHot returns the (guard, forward, center) indicator encoding.
func (p Position) OneHot() (guard, forward, center float64) {
	switch p {
	case PositionCenter:
		return 0, 0, 1
	case PositionForward:
		return 0, 1, 0
	default:
		return 1, 0, 0
	}
}
