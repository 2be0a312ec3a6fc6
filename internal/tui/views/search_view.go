package views

import (
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/spark/internal/conversation"
	"github.com/matheus3301/spark/internal/message"
	"github.com/matheus3301/spark/internal/tui/ui"
	"github.com/rivo/tview"
)

// ParseQuery reads search input such as "date:week media:audio dinner".
// Words without a known prefix form the text filter.
func ParseQuery(input string) (conversation.Query, error) {
	q := conversation.Query{Date: conversation.DateAll, Media: conversation.MediaAll}
	var words []string
	for _, f := range strings.Fields(input) {
		key, val, ok := strings.Cut(f, ":")
		switch {
		case ok && strings.EqualFold(key, "date"):
			d, err := conversation.ParseDateFilter(val)
			if err != nil {
				return conversation.Query{}, err
			}
			q.Date = d
		case ok && strings.EqualFold(key, "media"):
			m, err := conversation.ParseMediaFilter(val)
			if err != nil {
				return conversation.Query{}, err
			}
			q.Media = m
		default:
			words = append(words, f)
		}
	}
	q.Text = strings.Join(words, " ")
	return q, nil
}

// SearchView provides message search functionality.
type SearchView struct {
	*tview.Flex
	theme   *ui.Theme
	input   *tview.InputField
	results *tview.Table
	onQuery func(query string)
	data    []message.Message
}

// NewSearchView creates a new search view.
func NewSearchView(theme *ui.Theme) *SearchView {
	input := tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0).
		SetPlaceholder("text  date:today|week|month  media:text|image|audio|video|call")
	input.SetBorderColor(theme.BorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.KeyColor)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Results ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(results, 0, 1, false)

	return &SearchView{
		Flex:    flex,
		theme:   theme,
		input:   input,
		results: results,
	}
}

// SetOnQuery sets the callback when a search query is submitted.
func (sv *SearchView) SetOnQuery(fn func(query string)) {
	sv.onQuery = fn
	sv.input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && sv.onQuery != nil {
			sv.onQuery(sv.input.GetText())
		}
	})
}

// Update refreshes search results.
func (sv *SearchView) Update(results []message.Message, peerName string, now time.Time) {
	sv.data = results
	sv.results.Clear()

	headers := []string{" FROM", " MESSAGE", " KIND", " TIME"}
	for col, h := range headers {
		sv.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold))
	}

	for i, m := range results {
		row := i + 1
		from := peerName
		if m.FromMe() {
			from = "You"
		}
		sv.results.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitize(from))).SetMaxWidth(20).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(Body(&m))).SetExpansion(1).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 2, tview.NewTableCell(" "+m.Kind()).SetTextColor(sv.theme.MutedColor))
		sv.results.SetCell(row, 3, tview.NewTableCell(" "+formatTimestamp(m.Timestamp, now)).SetMaxWidth(14).SetTextColor(sv.theme.FgColor))
	}
	sv.results.SetTitle(" Results ")
	if len(results) == 0 {
		sv.results.SetTitle(" No results ")
	}
}

// Selected returns the message under the cursor.
func (sv *SearchView) Selected() (message.Message, bool) {
	row, _ := sv.results.GetSelection()
	idx := row - 1
	if idx >= 0 && idx < len(sv.data) {
		return sv.data[idx], true
	}
	return message.Message{}, false
}

// Input returns the search input field.
func (sv *SearchView) Input() *tview.InputField {
	return sv.input
}

// Results returns the results table.
func (sv *SearchView) Results() *tview.Table {
	return sv.results
}
