package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/matheus3301/spark/internal/message"
	"github.com/matheus3301/spark/internal/timer"
	"go.uber.org/zap"
)

// DefaultInterval is how often due messages are looked for.
const DefaultInterval = 5 * time.Second

var (
	// ErrInvalidSchedule wraps every synchronous scheduling rejection.
	ErrInvalidSchedule = errors.New("invalid schedule")
	// ErrEmptyText is returned for blank message text.
	ErrEmptyText = errors.New("empty text")
	// ErrPastSchedule is returned when the send time is not in the future.
	ErrPastSchedule = errors.New("scheduled time is not in the future")
)

// Dispatcher holds scheduled messages in the store and promotes them to sent
// once due. It keeps no state besides its timer.
type Dispatcher struct {
	store      *message.Store
	sched      timer.Scheduler
	interval   time.Duration
	newID      func() string
	logger     *zap.Logger
	onDispatch func(dispatched []message.Message)
	ticker     timer.Timer
}

// NewDispatcher creates a dispatcher. newID generates message ids.
func NewDispatcher(store *message.Store, sched timer.Scheduler, interval time.Duration, newID func() string, logger *zap.Logger) *Dispatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:    store,
		sched:    sched,
		interval: interval,
		newID:    newID,
		logger:   logger,
	}
}

// OnDispatch registers the callback receiving each tick's promoted messages,
// ordered by their original scheduled time.
func (d *Dispatcher) OnDispatch(fn func(dispatched []message.Message)) {
	d.onDispatch = fn
}

// Schedule appends text as a scheduled message due at when.
func (d *Dispatcher) Schedule(text string, when time.Time) (message.Message, error) {
	if strings.TrimSpace(text) == "" {
		return message.Message{}, fmt.Errorf("%w: %w", ErrInvalidSchedule, ErrEmptyText)
	}
	now := d.sched.Now()
	if when.IsZero() || !when.After(now) {
		return message.Message{}, fmt.Errorf("%w: %w", ErrInvalidSchedule, ErrPastSchedule)
	}
	at := when
	m := message.Message{
		ID:           d.newID(),
		Text:         text,
		SenderID:     message.Me,
		Timestamp:    now,
		Status:       message.Scheduled,
		ScheduledFor: &at,
		IsScheduled:  true,
	}
	if err := d.store.Append(m); err != nil {
		return message.Message{}, err
	}
	d.logger.Info("message scheduled", zap.String("msg_id", m.ID), zap.Time("scheduled_for", when))
	return m, nil
}

// Cancel removes an unsent scheduled message.
func (d *Dispatcher) Cancel(id string) error {
	if _, err := d.store.RemoveScheduled(id); err != nil {
		return err
	}
	d.logger.Info("scheduled message cancelled", zap.String("msg_id", id))
	return nil
}

// Edit removes an unsent scheduled message and returns its text for
// re-composition. The schedule is not kept.
func (d *Dispatcher) Edit(id string) (string, error) {
	m, err := d.store.RemoveScheduled(id)
	if err != nil {
		return "", err
	}
	d.logger.Info("scheduled message returned for editing", zap.String("msg_id", id))
	return m.Text, nil
}

// Pending returns the unsent scheduled messages in store order.
func (d *Dispatcher) Pending() []message.Message {
	var out []message.Message
	for _, m := range d.store.List() {
		if m.IsScheduled {
			out = append(out, m)
		}
	}
	return out
}

// Start begins polling. Calling Start twice is a no-op.
func (d *Dispatcher) Start() {
	if d.ticker != nil {
		return
	}
	d.ticker = d.sched.Every(d.interval, func() { d.DispatchDue() })
}

// Stop stops polling.
func (d *Dispatcher) Stop() {
	timer.Stop(d.ticker)
	d.ticker = nil
}

// DispatchDue promotes every due scheduled message in a single pass over the
// store. A promoted message is no longer scheduled, so it can never be
// selected again.
func (d *Dispatcher) DispatchDue() []message.Message {
	now := d.sched.Now()
	type due struct {
		at time.Time
		m  message.Message
	}
	var promoted []due
	d.store.Mutate(func(m *message.Message) bool {
		if !m.IsScheduled || m.ScheduledFor == nil || m.ScheduledFor.After(now) {
			return false
		}
		at := *m.ScheduledFor
		m.IsScheduled = false
		m.ScheduledFor = nil
		m.Timestamp = now
		m.Status = message.Sent
		promoted = append(promoted, due{at: at, m: *m})
		return true
	})
	if len(promoted) == 0 {
		return nil
	}
	sort.SliceStable(promoted, func(i, j int) bool { return promoted[i].at.Before(promoted[j].at) })
	out := make([]message.Message, len(promoted))
	for i, p := range promoted {
		out[i] = p.m
		d.logger.Info("scheduled message dispatched", zap.String("msg_id", p.m.ID))
	}
	if d.onDispatch != nil {
		d.onDispatch(out)
	}
	return out
}
