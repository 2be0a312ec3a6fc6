package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor        tcell.Color
	FgColor        tcell.Color
	BorderColor    tcell.Color
	TitleColor     tcell.Color
	KeyColor       tcell.Color
	MineColor      tcell.Color
	PeerColor      tcell.Color
	MutedColor     tcell.Color
	UrgentColor    tcell.Color
	RecordingColor tcell.Color
	CallColor      tcell.Color
	TableCursorFg  tcell.Color
	TableCursorBg  tcell.Color
	TableHeaderFg  tcell.Color
	FlashInfoColor tcell.Color
	FlashWarnColor tcell.Color
	FlashErrColor  tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:        tcell.ColorBlack,
		FgColor:        tcell.ColorWhiteSmoke,
		BorderColor:    tcell.ColorHotPink,
		TitleColor:     tcell.ColorFuchsia,
		KeyColor:       tcell.ColorDodgerBlue,
		MineColor:      tcell.ColorLightSkyBlue,
		PeerColor:      tcell.ColorPink,
		MutedColor:     tcell.ColorGray,
		UrgentColor:    tcell.ColorOrangeRed,
		RecordingColor: tcell.ColorRed,
		CallColor:      tcell.ColorLimeGreen,
		TableCursorFg:  tcell.ColorBlack,
		TableCursorBg:  tcell.ColorHotPink,
		TableHeaderFg:  tcell.ColorWhite,
		FlashInfoColor: tcell.ColorNavajoWhite,
		FlashWarnColor: tcell.ColorOrange,
		FlashErrColor:  tcell.ColorOrangeRed,
	}
}

// Tag returns c as a tview color tag value.
func Tag(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
