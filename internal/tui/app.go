package tui

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/spark/internal/call"
	"github.com/matheus3301/spark/internal/conversation"
	"github.com/matheus3301/spark/internal/recording"
	"github.com/matheus3301/spark/internal/tui/keys"
	"github.com/matheus3301/spark/internal/tui/model"
	"github.com/matheus3301/spark/internal/tui/ui"
	"github.com/matheus3301/spark/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	pageChat   = "chat"
	pageSearch = "search"
	pageHelp   = "help"
)

var errUnknownCommand = errors.New("unknown command, see ? for help")

// Loop runs session work on the conversation's event loop.
type Loop interface {
	Post(fn func()) bool
	Now() time.Time
}

// App is the main TUI application shell. The session is only touched from
// jobs posted to the loop; results come back through the view model.
type App struct {
	app       *tview.Application
	pages     *ui.Pages
	theme     *ui.Theme
	vm        *model.ViewModel
	sess      *conversation.Session
	loop      Loop
	registry  *keys.Registry
	statusBar *views.StatusBar
	thread    *views.Thread
	composer  *views.Composer
	searchV   *views.SearchView
	help      *views.HelpView
	flash     *ui.FlashBar
	hints     *tview.TextView

	done     chan struct{}
	stopOnce sync.Once
}

// NewApp creates the TUI application for one session.
func NewApp(vm *model.ViewModel, sess *conversation.Session, loop Loop, profile string) *App {
	theme := ui.DefaultTheme()
	a := &App{
		app:       tview.NewApplication(),
		pages:     ui.NewPages(),
		theme:     theme,
		vm:        vm,
		sess:      sess,
		loop:      loop,
		registry:  keys.NewRegistry(),
		statusBar: views.NewStatusBar(theme, profile),
		thread:    views.NewThread(theme),
		composer:  views.NewComposer(theme),
		searchV:   views.NewSearchView(theme),
		help:      views.NewHelpView(theme),
		flash:     ui.NewFlashBar(theme),
		hints:     tview.NewTextView().SetDynamicColors(true),
		done:      make(chan struct{}),
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	view := func(name string, r rune, desc string, fn func()) {
		a.registry.AddView(pageChat, name, &keys.Action{
			Key: tcell.KeyRune, Rune: r,
			Description: desc, Visible: true,
			Handler: fn,
		})
	}
	view("compose", 'i', "i:type", func() { a.app.SetFocus(a.composer.InputField) })
	view("audio", 'r', "r:voice note", func() { a.toggleRecording(recording.Audio) })
	view("video", 'v', "v:video note", func() { a.toggleRecording(recording.Video) })
	view("discard", 'x', "x:discard", func() {
		a.do(func(s *conversation.Session) error {
			if !s.CancelRecording() {
				return errors.New("not recording")
			}
			return nil
		})
	})
	view("voice-call", 'c', "c:call", func() { a.startCall(call.Voice) })
	view("video-call", 'C', "C:video call", func() { a.startCall(call.Video) })
	view("accept", 'a', "a:answer", func() {
		a.do(func(s *conversation.Session) error { return s.AcceptCall() })
	})
	view("end", 'e', "e:hang up", func() {
		a.do(func(s *conversation.Session) error {
			if _, ok := s.EndCall(); !ok {
				return errors.New("no call in progress")
			}
			return nil
		})
	})
	view("mic", 'm', "m:mic", func() {
		a.do(func(s *conversation.Session) error {
			if !s.ToggleMic() {
				return errors.New("no active call")
			}
			return nil
		})
	})
	view("camera", 'k', "k:camera", func() {
		a.do(func(s *conversation.Session) error {
			if !s.ToggleCamera() {
				return errors.New("no active video call")
			}
			return nil
		})
	})
	view("search", '/', "/:search", func() { a.showSearch() })

	a.registry.AddGlobal("help", &keys.Action{
		Key: tcell.KeyRune, Rune: '?',
		Description: "?:help", Visible: true,
		Handler: func() { a.showHelp() },
	})
	a.registry.AddGlobal("quit", &keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Description: "q:quit", Visible: true,
		Handler: func() { a.Stop() },
	})
}

func (a *App) setupCallbacks() {
	a.composer.SetOnSend(func(text string) {
		a.do(func(s *conversation.Session) error {
			_, err := s.Send(text)
			return err
		})
	})
	a.composer.SetOnCommand(func(input string) {
		if err := a.runCommand(ParseCommand(input)); err != nil {
			a.vm.Err(err)
		}
	})
	a.composer.SetOnDone(func() { a.app.SetFocus(a.thread) })

	a.searchV.SetOnQuery(func(input string) { a.search(input) })
	a.searchV.Results().SetSelectedFunc(func(row, col int) {
		if m, ok := a.searchV.Selected(); ok {
			a.vm.Info(views.FormatMessage(m, a.vm.Snapshot().PeerName, a.loop.Now()))
		}
		a.pages.PopTo(pageChat)
		a.app.SetFocus(a.thread)
	})

	a.pages.SetOnChange(func([]string) { a.renderHints() })
}

func (a *App) setupLayout() {
	chat := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.thread, 0, 1, false).
		AddItem(a.composer, 3, 0, false)

	a.pages.AddPage(pageChat, chat, true, false)
	a.pages.AddPage(pageSearch, a.searchV, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)
	a.pages.Reset(pageChat)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.statusBar, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.flash, 1, 0, false).
		AddItem(a.hints, 1, 0, false)

	a.app.SetRoot(root, true)
	a.app.SetFocus(a.thread)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		current := a.pages.Current()

		if event.Key() == tcell.KeyEscape && current != pageChat {
			a.pages.Pop()
			a.focusCurrent()
			return nil
		}

		// Let text input widgets handle all keys normally.
		if _, ok := a.app.GetFocus().(*tview.InputField); ok {
			return event
		}

		if a.registry.HandleEvent(current, event) {
			return nil
		}
		return event
	})
}

// runCommand executes a composer ':' command.
func (a *App) runCommand(cmd Command) error {
	switch cmd.Name {
	case "schedule", "sched":
		when, text, err := ParseSchedule(cmd.Args, a.loop.Now())
		if err != nil {
			return err
		}
		a.do(func(s *conversation.Session) error {
			m, err := s.Schedule(text, when)
			if err == nil {
				a.vm.Info(fmt.Sprintf("Scheduled %s for %s", views.ShortID(m.ID), when.Format("Jan 2 15:04")))
			}
			return err
		})
	case "cancel":
		a.withScheduled(cmd.Args, func(s *conversation.Session, id string) error {
			return s.CancelScheduled(id)
		})
	case "edit":
		a.withScheduled(cmd.Args, func(s *conversation.Session, id string) error {
			text, err := s.EditScheduled(id)
			if err == nil {
				a.vm.SetDraft(text)
			}
			return err
		})
	case "force":
		a.do(func(s *conversation.Session) error {
			_, err := s.ForceSend(cmd.Args)
			return err
		})
	case "receipts":
		on, err := ParseToggle(cmd.Args)
		if err != nil {
			return err
		}
		a.do(func(s *conversation.Session) error { return s.SetReadReceipts(on) })
	case "search":
		a.showSearch()
		a.searchV.Input().SetText(cmd.Args)
		if cmd.Args != "" {
			a.search(cmd.Args)
		}
	case "incoming":
		t, err := call.ParseType(cmd.Args)
		if err != nil {
			return err
		}
		a.do(func(s *conversation.Session) error { return s.ReceiveCall(t) })
	case "say":
		a.do(func(s *conversation.Session) error {
			_, err := s.ReceiveMessage(cmd.Args)
			return err
		})
	case "clear":
		a.do(func(s *conversation.Session) error { return s.Clear() })
	case "help", "h":
		a.showHelp()
	case "quit", "q":
		a.Stop()
	default:
		return fmt.Errorf("%w: %q", errUnknownCommand, cmd.Name)
	}
	return nil
}

// withScheduled resolves an id prefix to a scheduled message before fn.
func (a *App) withScheduled(prefix string, fn func(s *conversation.Session, id string) error) {
	prefix = strings.TrimSpace(prefix)
	a.do(func(s *conversation.Session) error {
		m, ok := s.Snapshot().FindScheduled(prefix)
		if !ok {
			return fmt.Errorf("no scheduled message %q", prefix)
		}
		return fn(s, m.ID)
	})
}

func (a *App) toggleRecording(mode recording.Mode) {
	a.do(func(s *conversation.Session) error {
		if s.Snapshot().Recording.State == recording.Recording {
			s.StopRecording(true)
			return nil
		}
		return s.StartRecording(mode)
	})
}

func (a *App) startCall(t call.Type) {
	a.do(func(s *conversation.Session) error { return s.StartCall(t) })
}

func (a *App) search(input string) {
	q, err := views.ParseQuery(input)
	if err != nil {
		a.vm.Err(err)
		return
	}
	a.do(func(s *conversation.Session) error {
		a.vm.SetResults(input, s.Search(q))
		return nil
	})
}

// do runs fn on the loop and flashes any error it returns.
func (a *App) do(fn func(s *conversation.Session) error) {
	ok := a.loop.Post(func() {
		a.vm.Err(fn(a.sess))
	})
	if !ok {
		a.vm.Err(conversation.ErrClosed)
	}
}

func (a *App) showSearch() {
	if a.pages.Current() != pageSearch {
		a.pages.Push(pageSearch)
	}
	a.app.SetFocus(a.searchV.Input())
}

func (a *App) showHelp() {
	a.help.Render(append(a.registry.Hints(pageChat), "Esc:back"))
	if a.pages.Current() != pageHelp {
		a.pages.Push(pageHelp)
	}
	a.app.SetFocus(a.help)
}

func (a *App) focusCurrent() {
	switch a.pages.Current() {
	case pageSearch:
		a.app.SetFocus(a.searchV.Input())
	case pageHelp:
		a.app.SetFocus(a.help)
	default:
		a.app.SetFocus(a.thread)
	}
}

func (a *App) renderHints() {
	kc := ui.Tag(a.theme.KeyColor)
	var b strings.Builder
	for _, h := range a.registry.Hints(a.pages.Current()) {
		key, desc, _ := strings.Cut(h, ":")
		fmt.Fprintf(&b, " [%s]%s[-] %s ", kc, tview.Escape(key), desc)
	}
	a.hints.SetText(b.String())
}

// render runs on the UI goroutine.
func (a *App) render() {
	snap := a.vm.Snapshot()
	a.thread.Update(snap)
	a.statusBar.Update(snap)
	a.composer.SetBlocked(snap.InputBlocked, snap.PeerName)
	a.flash.Update(a.vm.Flash.Get())

	if r, ok := a.vm.TakeResults(); ok {
		a.searchV.Update(r.Messages, snap.PeerName, a.loop.Now())
		if a.pages.Current() == pageSearch {
			a.app.SetFocus(a.searchV.Results())
		}
	}
	if draft, ok := a.vm.TakeDraft(); ok {
		a.composer.SetText(draft)
		a.pages.PopTo(pageChat)
		a.app.SetFocus(a.composer.InputField)
	}
}

func (a *App) startRefreshLoop() {
	// The ticker expires flash messages and keeps the clock current.
	ticker := time.NewTicker(time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-a.vm.RefreshCh():
			case <-ticker.C:
			case <-a.done:
				return
			}
			a.app.QueueUpdateDraw(a.render)
		}
	}()
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	a.render()
	a.renderHints()
	a.startRefreshLoop()
	err := a.app.Run()
	a.Stop()
	return err
}

// Stop gracefully shuts down the TUI. It is safe to call more than once.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		close(a.done)
		a.app.Stop()
	})
}

// Done is closed once Stop has been called.
func (a *App) Done() <-chan struct{} {
	return a.done
}
