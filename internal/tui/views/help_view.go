package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/spark/internal/tui/ui"
	"github.com/rivo/tview"
)

// CommandHelp documents one ':' command.
type CommandHelp struct {
	Usage       string
	Description string
}

// Commands lists the composer commands.
var Commands = []CommandHelp{
	{":schedule <10m|HH:MM> <text>", "Send text later"},
	{":cancel <id>", "Cancel a scheduled message"},
	{":edit <id>", "Pull a scheduled message back into the composer"},
	{":force <text>", "Send even while the gate is closed"},
	{":receipts on|off", "Toggle your read receipts"},
	{":search <query>", "Search messages"},
	{":incoming voice|video", "Simulate an incoming call"},
	{":say <text>", "Simulate a message from your match"},
	{":clear", "Delete the conversation"},
	{":quit", "Quit"},
}

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	return &HelpView{TextView: tv, theme: theme}
}

// Render lists hints (as produced by keys.Registry) and the commands.
func (hv *HelpView) Render(hints []string) {
	hv.Clear()
	kc := ui.Tag(hv.theme.KeyColor)

	var b strings.Builder
	b.WriteString("\n  [::b]Keys[-:-:-]\n\n")
	for _, h := range hints {
		key, desc, _ := strings.Cut(h, ":")
		fmt.Fprintf(&b, "  [%s]%-8s[-] %s\n", kc, tview.Escape(key), tview.Escape(desc))
	}
	b.WriteString("\n  [::b]Commands (in the composer)[-:-:-]\n\n")
	for _, c := range Commands {
		fmt.Fprintf(&b, "  [%s]%-30s[-] %s\n", kc, tview.Escape(c.Usage), c.Description)
	}
	_, _ = fmt.Fprint(hv, b.String())
}
