package delivery

import (
	"time"

	"github.com/matheus3301/spark/internal/message"
	"github.com/matheus3301/spark/internal/timer"
	"go.uber.org/zap"
)

const (
	DefaultDeliveryDelay = 1000 * time.Millisecond
	DefaultReadDelay     = 2500 * time.Millisecond
)

// Pipeline advances outgoing messages from sent to delivered and, when both
// parties opted into read receipts, from delivered to read. Every message
// spends at least the full delay in each status. Messages whose delay has
// elapsed when a timer fires move together, and the timer is re-armed for the
// earliest one still waiting.
type Pipeline struct {
	store         *message.Store
	sched         timer.Scheduler
	logger        *zap.Logger
	deliveryDelay time.Duration
	readDelay     time.Duration

	localReceipts bool
	peerReceipts  bool

	deliveryTimer timer.Timer
	readTimer     timer.Timer
	onChange      func(changed []message.Message)
	stopped       bool

	// When each waiting message entered its current status.
	sentSince      map[string]time.Time
	deliveredSince map[string]time.Time
}

// Config holds pipeline timings and initial read-receipt preferences.
type Config struct {
	DeliveryDelay time.Duration
	ReadDelay     time.Duration
	LocalReceipts bool
	PeerReceipts  bool
}

// New creates a pipeline over store. Zero delays fall back to the defaults.
func New(store *message.Store, sched timer.Scheduler, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.DeliveryDelay <= 0 {
		cfg.DeliveryDelay = DefaultDeliveryDelay
	}
	if cfg.ReadDelay <= 0 {
		cfg.ReadDelay = DefaultReadDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:         store,
		sched:         sched,
		logger:        logger,
		deliveryDelay: cfg.DeliveryDelay,
		readDelay:     cfg.ReadDelay,
		localReceipts: cfg.LocalReceipts,
		peerReceipts:  cfg.PeerReceipts,
	}
}

// OnChange registers a callback invoked after a timer moved messages forward.
func (p *Pipeline) OnChange(fn func(changed []message.Message)) {
	p.onChange = fn
}

// ReadReceipts returns the local and peer read-receipt preferences.
func (p *Pipeline) ReadReceipts() (local, peer bool) {
	return p.localReceipts, p.peerReceipts
}

// SetReadReceipts updates both preferences. Turning either off cancels a
// pending read timer; delivered messages then stay delivered.
func (p *Pipeline) SetReadReceipts(local, peer bool) {
	p.localReceipts = local
	p.peerReceipts = peer
	if !p.receiptsOn() {
		timer.Stop(p.readTimer)
		p.readTimer = nil
		p.deliveredSince = nil
	}
	p.Sync()
}

// Sync starts whichever timers the current store contents call for. It must
// be called after every store mutation.
func (p *Pipeline) Sync() {
	if p.stopped {
		return
	}
	now := p.sched.Now()
	p.sentSince = p.track(p.sentSince, awaitingDelivery, now)
	if p.deliveryTimer == nil {
		if wait, ok := nextDue(p.sentSince, p.deliveryDelay, now); ok {
			p.deliveryTimer = p.sched.AfterFunc(wait, p.deliver)
		}
	}
	if !p.receiptsOn() {
		return
	}
	p.deliveredSince = p.track(p.deliveredSince, awaitingRead, now)
	if p.readTimer == nil {
		if wait, ok := nextDue(p.deliveredSince, p.readDelay, now); ok {
			p.readTimer = p.sched.AfterFunc(wait, p.markRead)
		}
	}
}

// Reset cancels pending timers without stopping the pipeline, used when the
// conversation is cleared.
func (p *Pipeline) Reset() {
	timer.Stop(p.deliveryTimer)
	timer.Stop(p.readTimer)
	p.deliveryTimer = nil
	p.readTimer = nil
	p.sentSince = nil
	p.deliveredSince = nil
}

// Stop cancels both timers permanently.
func (p *Pipeline) Stop() {
	p.Reset()
	p.stopped = true
}

func (p *Pipeline) deliver() {
	p.deliveryTimer = nil
	if p.stopped {
		return
	}
	now := p.sched.Now()
	changed := p.store.Mutate(func(m *message.Message) bool {
		if !awaitingDelivery(m) || !due(p.sentSince, m.ID, p.deliveryDelay, now) {
			return false
		}
		m.Status = message.Delivered
		return true
	})
	if len(changed) > 0 {
		p.logger.Debug("messages delivered", zap.Int("count", len(changed)))
		p.notify(changed)
	}
	p.Sync()
}

func (p *Pipeline) markRead() {
	p.readTimer = nil
	if p.stopped || !p.receiptsOn() {
		return
	}
	now := p.sched.Now()
	changed := p.store.Mutate(func(m *message.Message) bool {
		if !awaitingRead(m) || !due(p.deliveredSince, m.ID, p.readDelay, now) {
			return false
		}
		m.Status = message.Read
		return true
	})
	if len(changed) > 0 {
		p.logger.Debug("messages read", zap.Int("count", len(changed)))
		p.notify(changed)
	}
	p.Sync()
}

func (p *Pipeline) notify(changed []message.Message) {
	if p.onChange != nil {
		p.onChange(changed)
	}
}

func (p *Pipeline) receiptsOn() bool {
	return p.localReceipts && p.peerReceipts
}

// track returns the entry times of every message matching pred. Messages
// already tracked keep their time; new ones start at now.
func (p *Pipeline) track(prev map[string]time.Time, pred func(m *message.Message) bool, now time.Time) map[string]time.Time {
	next := make(map[string]time.Time)
	for _, m := range p.store.List() {
		if !pred(&m) {
			continue
		}
		if at, ok := prev[m.ID]; ok {
			next[m.ID] = at
		} else {
			next[m.ID] = now
		}
	}
	return next
}

// nextDue returns how long until the earliest tracked message has waited delay.
func nextDue(since map[string]time.Time, delay time.Duration, now time.Time) (time.Duration, bool) {
	var earliest time.Time
	for _, at := range since {
		if earliest.IsZero() || at.Before(earliest) {
			earliest = at
		}
	}
	if earliest.IsZero() {
		return 0, false
	}
	return max(earliest.Add(delay).Sub(now), 0), true
}

func due(since map[string]time.Time, id string, delay time.Duration, now time.Time) bool {
	at, ok := since[id]
	return ok && !now.Before(at.Add(delay))
}

func awaitingDelivery(m *message.Message) bool {
	return m.FromMe() && !m.IsScheduled && m.Status == message.Sent
}

func awaitingRead(m *message.Message) bool {
	return m.FromMe() && !m.IsScheduled && m.Status == message.Delivered
}
