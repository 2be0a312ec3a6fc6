package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// FlashLevel ranks flash messages. Higher levels stay up longer.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

var flashTTL = [...]time.Duration{
	FlashInfo: 5 * time.Second,
	FlashWarn: 8 * time.Second,
	FlashErr:  10 * time.Second,
}

// FlashMessage is one notification and the time it disappears.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Expires time.Time
}

// FlashModel holds the notification currently on screen. Show is called
// from the event loop; Get from the UI goroutine.
type FlashModel struct {
	mu    sync.RWMutex
	msg   FlashMessage
	clock func() time.Time
}

// NewFlashModel creates a flash model on the wall clock.
func NewFlashModel() *FlashModel {
	return &FlashModel{clock: time.Now}
}

// Show replaces the current message.
func (f *FlashModel) Show(level FlashLevel, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msg = FlashMessage{Text: text, Level: level, Expires: f.clock().Add(flashTTL[level])}
}

func (f *FlashModel) Info(text string) { f.Show(FlashInfo, text) }
func (f *FlashModel) Warn(text string) { f.Show(FlashWarn, text) }
func (f *FlashModel) Err(err error)    { f.Show(FlashErr, err.Error()) }

// Get returns the live message, or nil once it has expired.
func (f *FlashModel) Get() *FlashMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.msg.Text == "" || f.clock().After(f.msg.Expires) {
		return nil
	}
	m := f.msg
	return &m
}

// FlashBar renders the FlashModel on one line.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &FlashBar{TextView: tv, theme: theme}
}

// Update shows msg; nil clears the bar.
func (fb *FlashBar) Update(msg *FlashMessage) {
	fb.Clear()
	if msg == nil {
		return
	}

	colors := [...]tcell.Color{
		FlashInfo: fb.theme.FlashInfoColor,
		FlashWarn: fb.theme.FlashWarnColor,
		FlashErr:  fb.theme.FlashErrColor,
	}
	_, _ = fmt.Fprintf(fb, " [%s]%s[-]", Tag(colors[msg.Level]), tview.Escape(msg.Text))
}
