package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/spark/internal/call"
	"github.com/matheus3301/spark/internal/conversation"
	"github.com/matheus3301/spark/internal/firstmove"
	"github.com/matheus3301/spark/internal/message"
	"github.com/matheus3301/spark/internal/recording"
	"github.com/matheus3301/spark/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusSegments describes snap as short status strings, most important
// first. The result carries no markup.
func StatusSegments(snap conversation.Snapshot) []string {
	var segs []string

	if fm := snap.FirstMove; fm.State == firstmove.Gated {
		if fm.Allowed == firstmove.Me {
			segs = append(segs, "Your move: "+fm.Countdown)
		} else {
			segs = append(segs, fmt.Sprintf("Waiting for %s: %s", snap.PeerName, fm.Countdown))
		}
	}

	switch c := snap.Call; c.Status {
	case call.Outgoing:
		segs = append(segs, fmt.Sprintf("Calling %s (%s)...", snap.PeerName, strings.ToLower(string(c.Type))))
	case call.Incoming:
		segs = append(segs, fmt.Sprintf("Incoming %s call from %s", strings.ToLower(string(c.Type)), snap.PeerName))
	case call.Active:
		seg := fmt.Sprintf("%s call %s", strings.ToLower(string(c.Type)), message.FormatDuration(c.Elapsed))
		if c.MicMuted {
			seg += " mic off"
		}
		if c.CameraOff && c.Type == call.Video {
			seg += " camera off"
		}
		segs = append(segs, seg)
	}

	if r := snap.Recording; r.State == recording.Recording {
		segs = append(segs, fmt.Sprintf("REC %s %s / %s",
			strings.ToLower(string(r.Mode)), message.FormatDuration(r.Elapsed), message.FormatDuration(r.Max)))
	}

	if n := len(snap.Scheduled()); n > 0 {
		segs = append(segs, fmt.Sprintf("%d scheduled", n))
	}

	receipts := "receipts off"
	if snap.ReadReceipts.Local {
		receipts = "receipts on"
	}
	segs = append(segs, receipts)

	if snap.Closed {
		segs = append(segs, "closed")
	}
	return segs
}

// StatusBar displays the conversation status line.
type StatusBar struct {
	*tview.TextView
	theme   *ui.Theme
	profile string
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme, profile string) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &StatusBar{TextView: tv, theme: theme, profile: profile}
}

// Update renders snap.
func (sb *StatusBar) Update(snap conversation.Snapshot) {
	sb.Clear()

	segs := StatusSegments(snap)
	for i, s := range segs {
		s = tview.Escape(s)
		switch {
		case strings.HasPrefix(s, "REC "):
			segs[i] = fmt.Sprintf("[%s::b]%s[-:-:-]", ui.Tag(sb.theme.RecordingColor), s)
		case i == 0 && snap.FirstMove.State == firstmove.Gated && snap.FirstMove.Urgent:
			segs[i] = fmt.Sprintf("[%s::b]%s[-:-:-]", ui.Tag(sb.theme.UrgentColor), s)
		case strings.Contains(s, " call"):
			segs[i] = fmt.Sprintf("[%s]%s[-]", ui.Tag(sb.theme.CallColor), s)
		default:
			segs[i] = s
		}
	}

	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s | %s | %s",
		tview.Escape(sb.profile), tview.Escape(sanitize(snap.PeerName)),
		strings.Join(segs, " | "), snap.At.Format("15:04"))
	_, _ = fmt.Fprint(sb, line)
}
