package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/matheus3301/spark/internal/conversation"
	"github.com/matheus3301/spark/internal/message"
	"github.com/matheus3301/spark/internal/tui/ui"
)

// ViewModel caches the latest session snapshot and signals UI refreshes.
// Update is called from the event loop; readers run on the UI goroutine.
type ViewModel struct {
	mu sync.RWMutex

	snap    conversation.Snapshot
	results *Results
	draft   *string
	Flash   *ui.FlashModel

	refreshCh chan struct{}
}

// NewViewModel creates an empty view model.
func NewViewModel() *ViewModel {
	return &ViewModel{
		Flash:     ui.NewFlashModel(),
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// Update stores snap as the current state. It never blocks.
func (vm *ViewModel) Update(snap conversation.Snapshot) {
	vm.mu.Lock()
	vm.snap = snap
	vm.mu.Unlock()
	vm.signalRefresh()
}

// Snapshot returns the last stored state.
func (vm *ViewModel) Snapshot() conversation.Snapshot {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.snap
}

// Results is the outcome of a search run on the event loop.
type Results struct {
	Query    string
	Messages []message.Message
}

// SetResults stores search results for the UI to pick up.
func (vm *ViewModel) SetResults(query string, msgs []message.Message) {
	vm.mu.Lock()
	vm.results = &Results{Query: query, Messages: msgs}
	vm.mu.Unlock()
	vm.signalRefresh()
}

// TakeResults returns results stored since the last call.
func (vm *ViewModel) TakeResults() (Results, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.results == nil {
		return Results{}, false
	}
	r := *vm.results
	vm.results = nil
	return r, true
}

// SetDraft asks the UI to put text back into the composer.
func (vm *ViewModel) SetDraft(text string) {
	vm.mu.Lock()
	vm.draft = &text
	vm.mu.Unlock()
	vm.signalRefresh()
}

// TakeDraft returns the pending draft, if any.
func (vm *ViewModel) TakeDraft() (string, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.draft == nil {
		return "", false
	}
	d := *vm.draft
	vm.draft = nil
	return d, true
}

// Info flashes an informational message.
func (vm *ViewModel) Info(msg string) {
	vm.Flash.Info(msg)
	vm.signalRefresh()
}

// Warn flashes a warning.
func (vm *ViewModel) Warn(msg string) {
	vm.Flash.Warn(msg)
	vm.signalRefresh()
}

// Err flashes err; nil is ignored. Rejections the user can act on (a
// closed gate, a busy call) show as warnings.
func (vm *ViewModel) Err(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, conversation.ErrBlockedByGate):
		s := vm.Snapshot()
		vm.Flash.Warn(fmt.Sprintf("%s has to make the first move (%s left)", s.PeerName, s.FirstMove.Countdown))
	case errors.Is(err, conversation.ErrBusy), errors.Is(err, conversation.ErrEmptyText):
		vm.Flash.Warn(err.Error())
	default:
		vm.Flash.Err(err)
	}
	vm.signalRefresh()
}
