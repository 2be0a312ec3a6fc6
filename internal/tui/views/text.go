package views

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/matheus3301/spark/internal/message"
)

// sanitize drops codepoints that tcell measures wrongly: skin tone
// modifiers, zero width joiners and variation selectors. A thumbs-up with a
// skin tone renders as a plain 2-cell thumbs-up.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unrenderable(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func unrenderable(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}

// formatTimestamp shows the clock for today and the date otherwise.
func formatTimestamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(now.Location())
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02 15:04")
}

// Body renders the payload of m without markup.
func Body(m *message.Message) string {
	switch {
	case m.Call != nil:
		label := strings.ToLower(string(m.Call.Type)) + " call"
		if m.Call.Outcome == message.Missed {
			return "[missed " + label + "]"
		}
		return fmt.Sprintf("[%s %s]", label, m.Call.Duration)
	case m.Media != nil:
		if m.Media.Duration == "" {
			return fmt.Sprintf("[%s]", m.Media.Kind)
		}
		return fmt.Sprintf("[%s %s]", m.Media.Kind, m.Media.Duration)
	default:
		return sanitize(m.Text)
	}
}

// statusMark is the receipt indicator shown after local messages.
func statusMark(s message.Status) string {
	switch s {
	case message.Sent:
		return "✓"
	case message.Delivered:
		return "✓✓"
	case message.Read:
		return "✓✓ read"
	default:
		return ""
	}
}
