package views

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/spark/internal/tui/ui"
	"github.com/rivo/tview"
)

// Composer is the text input for messages and ':' commands.
type Composer struct {
	*tview.InputField
	theme     *ui.Theme
	blocked   bool
	onSend    func(text string)
	onCommand func(cmd string)
	onDone    func()
}

// NewComposer creates a new message composer.
func NewComposer(theme *ui.Theme) *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	input.SetBorder(true)
	input.SetBorderColor(theme.BorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.KeyColor)
	input.SetTitleColor(theme.TitleColor)
	input.SetTitle(" Compose (i to focus) ")

	c := &Composer{InputField: input, theme: theme}

	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			c.submit(c.GetText())
		case tcell.KeyEscape:
			if c.onDone != nil {
				c.onDone()
			}
		}
	})

	return c
}

func (c *Composer) submit(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if cmd, ok := strings.CutPrefix(text, ":"); ok {
		if c.onCommand != nil {
			c.onCommand(cmd)
		}
	} else if c.onSend != nil {
		c.onSend(text)
	}
	c.SetText("")
}

// SetOnSend sets the callback when a message is sent.
func (c *Composer) SetOnSend(fn func(text string)) {
	c.onSend = fn
}

// SetOnCommand sets the callback for input starting with ':'.
func (c *Composer) SetOnCommand(fn func(cmd string)) {
	c.onCommand = fn
}

// SetOnDone sets the callback when the user leaves the composer.
func (c *Composer) SetOnDone(fn func()) {
	c.onDone = fn
}

// SetBlocked shows whether the gate blocks sending. Commands still work.
func (c *Composer) SetBlocked(blocked bool, waitingFor string) {
	if blocked == c.blocked {
		return
	}
	c.blocked = blocked
	if blocked {
		c.SetLabel(" x ")
		c.SetLabelColor(c.theme.UrgentColor)
		c.SetPlaceholder("Waiting for " + waitingFor + " to make the first move")
		return
	}
	c.SetLabel(" > ")
	c.SetLabelColor(c.theme.KeyColor)
	c.SetPlaceholder("")
}
