package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/spark/internal/conversation"
	"github.com/matheus3301/spark/internal/message"
	"github.com/matheus3301/spark/internal/tui/ui"
	"github.com/rivo/tview"
)

// FormatMessage renders one thread line without color tags.
func FormatMessage(m message.Message, peerName string, now time.Time) string {
	sender := peerName
	if m.FromMe() {
		sender = "You"
	}
	if m.IsScheduled && m.ScheduledFor != nil {
		return fmt.Sprintf("%s %s: %s (scheduled %s)",
			formatTimestamp(m.Timestamp, now), sender, Body(&m), formatTimestamp(*m.ScheduledFor, now))
	}
	line := fmt.Sprintf("%s %s: %s", formatTimestamp(m.Timestamp, now), sender, Body(&m))
	if m.FromMe() {
		if mark := statusMark(m.Status); mark != "" {
			line += " " + mark
		}
	}
	return line
}

// ShortID is the id prefix shown in the thread, enough for :cancel and :edit.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Thread displays the conversation messages, oldest first.
type Thread struct {
	*tview.TextView
	theme *ui.Theme
}

// NewThread creates the message thread view.
func NewThread(theme *ui.Theme) *Thread {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitleColor(theme.TitleColor)
	tv.SetTitle(" Messages ")

	return &Thread{TextView: tv, theme: theme}
}

// Update re-renders the thread from snap.
func (t *Thread) Update(snap conversation.Snapshot) {
	t.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitize(snap.PeerName))))
	t.Clear()

	var b strings.Builder
	for _, m := range snap.Messages {
		color := t.theme.PeerColor
		switch {
		case m.IsScheduled:
			color = t.theme.MutedColor
		case m.Call != nil:
			color = t.theme.CallColor
		case m.FromMe():
			color = t.theme.MineColor
		}
		fmt.Fprintf(&b, "[%s]%s[-] [%s::d]%s[-:-:-]\n",
			ui.Tag(color), tview.Escape(FormatMessage(m, snap.PeerName, snap.At)),
			ui.Tag(t.theme.MutedColor), ShortID(m.ID))
	}
	if snap.PeerTyping {
		fmt.Fprintf(&b, "[%s::i]%s is typing...[-:-:-]\n", ui.Tag(t.theme.MutedColor), tview.Escape(sanitize(snap.PeerName)))
	}
	_, _ = fmt.Fprint(t, b.String())
	t.ScrollToEnd()
}
