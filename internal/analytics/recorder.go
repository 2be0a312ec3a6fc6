// Package analytics persists conversation notifications published on the
// bus into the store's events table.
package analytics

import (
	"context"
	"fmt"
	"sync"

	"github.com/matheus3301/spark/internal/bus"
	"github.com/matheus3301/spark/internal/conversation"
	"github.com/matheus3301/spark/internal/store"
	"go.uber.org/zap"
)

// BufferSize is the recorder's bus subscription buffer.
const BufferSize = 256

// Recorder subscribes to "conversation." events and writes each one to the
// store. Inserts happen on the recorder's goroutine, never on the event loop.
type Recorder struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRecorder creates a recorder. Call Start to begin consuming.
func NewRecorder(db *store.DB, b *bus.Bus, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{db: db, bus: b, logger: logger}
}

// Start subscribes to the bus and records events until ctx is done or Stop
// is called.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	ch, unsub := r.bus.Subscribe(conversation.BusNamespace, BufferSize)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer unsub()
		for {
			select {
			case evt, ok := <-ch:
				if !ok {
					return
				}
				r.handle(evt)
			case <-ctx.Done():
				r.drain(ch)
				return
			}
		}
	}()
}

// drain records whatever was already buffered when the recorder stopped.
func (r *Recorder) drain(ch <-chan bus.Event) {
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			r.handle(evt)
		default:
			return
		}
	}
}

// Stop stops consuming and waits for the goroutine to exit.
func (r *Recorder) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Recorder) handle(evt bus.Event) {
	ce, ok := evt.Payload.(conversation.Event)
	if !ok {
		r.logger.Warn("unexpected payload on conversation bus", zap.String("kind", evt.Kind))
		return
	}
	if err := r.Record(ce); err != nil {
		r.logger.Error("failed to record event", zap.Error(err), zap.String("kind", string(ce.Kind)))
	}
}

// Record writes one notification to the store.
func (r *Recorder) Record(evt conversation.Event) error {
	row := Row(evt)
	if _, err := r.db.InsertEvent(&row); err != nil {
		return fmt.Errorf("record %s: %w", evt.Kind, err)
	}
	return nil
}

// Row converts a notification into its events-table row.
func Row(evt conversation.Event) store.Event {
	row := store.Event{
		Kind:       string(evt.Kind),
		PeerID:     evt.PeerID,
		OccurredAt: evt.At.UnixMilli(),
	}
	if m := evt.Message; m != nil {
		row.MessageID = m.ID
		switch {
		case m.Call != nil:
			row.Detail = fmt.Sprintf("%s %s %s", m.Call.Type, m.Call.Outcome, m.Call.Duration)
		case m.Media != nil:
			row.Detail = fmt.Sprintf("%s %s", m.Media.Kind, m.Media.Duration)
		default:
			row.Detail = fmt.Sprintf("text %d chars", len([]rune(m.Text)))
		}
	}
	return row
}
