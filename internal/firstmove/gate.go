package firstmove

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Window is how long the gated party has to make the first move.
const Window = 24 * time.Hour

// UrgentThreshold marks the countdown as urgent.
const UrgentThreshold = time.Hour

// ErrUnknownPreference is returned for an unrecognized first-message preference.
var ErrUnknownPreference = errors.New("unknown first message preference")

// Preference is chosen at match time.
type Preference string

const (
	Anyone    Preference = "ANYONE"
	MeFirst   Preference = "ME_FIRST"
	ThemFirst Preference = "THEM_FIRST"
)

// ParsePreference accepts preference names case-insensitively. An empty
// string means Anyone.
func ParsePreference(s string) (Preference, error) {
	switch p := Preference(strings.ToUpper(strings.TrimSpace(s))); p {
	case "":
		return Anyone, nil
	case Anyone, MeFirst, ThemFirst:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPreference, s)
	}
}

// Party is one side of the match.
type Party string

const (
	Me   Party = "me"
	Them Party = "them"
)

// State of the gate.
type State string

const (
	Open  State = "OPEN"
	Gated State = "GATED"
)

// Gate restricts who may send the first message. The first message from
// either side opens it for the rest of the session.
type Gate struct {
	state     State
	allowed   Party
	expiresAt time.Time
}

// New creates the gate for a match. A zero expiresAt means now + Window.
func New(pref Preference, now, expiresAt time.Time) (*Gate, error) {
	if expiresAt.IsZero() {
		expiresAt = now.Add(Window)
	}
	switch pref {
	case Anyone, "":
		return &Gate{state: Open}, nil
	case MeFirst:
		return &Gate{state: Gated, allowed: Me, expiresAt: expiresAt}, nil
	case ThemFirst:
		return &Gate{state: Gated, allowed: Them, expiresAt: expiresAt}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreference, pref)
	}
}

// State returns the current state.
func (g *Gate) State() State {
	return g.state
}

// Allowed returns the party allowed to move first, empty when open.
func (g *Gate) Allowed() Party {
	return g.allowed
}

// ExpiresAt returns the deadline, zero when open.
func (g *Gate) ExpiresAt() time.Time {
	return g.expiresAt
}

// Blocks reports whether p is held back from sending.
func (g *Gate) Blocks(p Party) bool {
	return g.state == Gated && g.allowed != p
}

// Lift opens the gate. Returns true if it was gated.
func (g *Gate) Lift() bool {
	if g.state == Open {
		return false
	}
	g.state = Open
	g.allowed = ""
	g.expiresAt = time.Time{}
	return true
}

// Remaining returns the time left before expiry, never negative.
func (g *Gate) Remaining(now time.Time) time.Duration {
	if g.state != Gated {
		return 0
	}
	if d := g.expiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Expired reports whether the gated window has passed.
func (g *Gate) Expired(now time.Time) bool {
	return g.state == Gated && !g.expiresAt.After(now)
}

// Urgent reports whether less than an hour is left.
func (g *Gate) Urgent(now time.Time) bool {
	return g.state == Gated && g.Remaining(now) < UrgentThreshold
}

// Countdown renders the remaining time as "Hh MMm", or "Expired".
func (g *Gate) Countdown(now time.Time) string {
	if g.state != Gated {
		return ""
	}
	if g.Expired(now) {
		return "Expired"
	}
	left := g.Remaining(now)
	hours := int(left / time.Hour)
	minutes := int((left % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %02dm", hours, minutes)
}

// View is an immutable copy of the gate for presentation.
type View struct {
	State     State
	Allowed   Party
	ExpiresAt time.Time
	Countdown string
	Urgent    bool
	Expired   bool
}

// View captures the gate as of now.
func (g *Gate) View(now time.Time) View {
	return View{
		State:     g.state,
		Allowed:   g.allowed,
		ExpiresAt: g.expiresAt,
		Countdown: g.Countdown(now),
		Urgent:    g.Urgent(now),
		Expired:   g.Expired(now),
	}
}
