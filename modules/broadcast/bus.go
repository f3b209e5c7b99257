package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-monolith/mono/pkg/types"
)

// Default inbox settings.
const (
	DefaultQueueSize             = 256
	DefaultSlowSubscriberTimeout = time.Second
)

// Event is a value published to a channel.
// Seq increases by one per publish on the channel and is shared by every
// subscriber, so all inboxes of a channel observe the same order.
type Event struct {
	Channel   string
	Kind      string
	Seq       uint64
	Payload   any
	Published time.Time
}

// Subscription is an inbox attached to one channel.
type Subscription struct {
	id        uint64
	channel   string
	events    chan Event
	dropped   atomic.Uint64
	lagging   atomic.Bool
	closeOnce sync.Once
}

// ID returns the bus-unique subscription id.
func (s *Subscription) ID() uint64 { return s.id }

// Channel returns the channel the subscription is attached to.
func (s *Subscription) Channel() string { return s.channel }

// Events returns the inbox. It is closed by Unsubscribe or when the bus closes.
func (s *Subscription) Events() <-chan Event { return s.events }

// Dropped returns how many events were discarded because the inbox stayed full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Lagging reports whether the last publish timed out on this inbox. A lagging
// inbox drops without waiting until it has room again.
func (s *Subscription) Lagging() bool { return s.lagging.Load() }

func (s *Subscription) close() {
	s.closeOnce.Do(func() { close(s.events) })
}

type topic struct {
	mu   sync.Mutex
	seq  uint64
	subs map[uint64]*Subscription
	dead bool
}

// Options configures inbox capacity and the slow subscriber policy.
type Options struct {
	// QueueSize is the capacity of every inbox.
	QueueSize int
	// SlowSubscriberTimeout is how long a publish waits on a full inbox before
	// dropping the event for that subscriber and marking it lagging. Zero drops
	// immediately.
	SlowSubscriberTimeout time.Duration
}

// Stats is a point-in-time view of the bus.
type Stats struct {
	Channels    int    `json:"channels"`
	Subscribers int    `json:"subscribers"`
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
}

// Bus is an in-process publish/subscribe fabric keyed by channel name.
// Channels are independent: each has its own lock and sequence.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]*topic
	closed bool

	opts      Options
	nextID    atomic.Uint64
	published atomic.Uint64
	dropped   atomic.Uint64
	logger    types.Logger
}

// NewBus creates a new Bus.
func NewBus(opts Options, logger types.Logger) *Bus {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.SlowSubscriberTimeout < 0 {
		opts.SlowSubscriberTimeout = 0
	}
	return &Bus{
		topics: make(map[string]*topic),
		opts:   opts,
		logger: logger,
	}
}

// Subscribe attaches a new inbox to channel. Every publish that begins after
// Subscribe returns is delivered to it.
func (b *Bus) Subscribe(channel string) *Subscription {
	sub := &Subscription{
		id:      b.nextID.Add(1),
		channel: channel,
		events:  make(chan Event, b.opts.QueueSize),
	}

	for {
		t, ok := b.topicFor(channel)
		if !ok {
			sub.close()
			return sub
		}
		t.mu.Lock()
		if t.dead {
			// reaped between lookup and lock
			t.mu.Unlock()
			continue
		}
		t.subs[sub.id] = sub
		t.mu.Unlock()
		return sub
	}
}

// Unsubscribe detaches sub and closes its inbox. It is safe to call more than once.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.RLock()
	t := b.topics[sub.channel]
	b.mu.RUnlock()

	if t != nil {
		t.mu.Lock()
		delete(t.subs, sub.id)
		empty := len(t.subs) == 0
		t.mu.Unlock()

		if empty {
			b.reap(sub.channel, t)
		}
	}
	sub.close()
}

// Publish delivers an event to every inbox subscribed to channel and returns
// how many inboxes accepted it.
func (b *Bus) Publish(ctx context.Context, channel, kind string, payload any) int {
	b.published.Add(1)

	b.mu.RLock()
	t := b.topics[channel]
	b.mu.RUnlock()
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	ev := Event{
		Channel:   channel,
		Kind:      kind,
		Seq:       t.seq,
		Payload:   payload,
		Published: time.Now(),
	}

	delivered := 0
	for _, sub := range t.subs {
		if b.enqueue(ctx, sub, ev) {
			delivered++
		}
	}
	return delivered
}

// enqueue must be called with the topic lock held. Only the first event a
// full inbox misses pays the wait; later ones drop at once until it drains.
func (b *Bus) enqueue(ctx context.Context, sub *Subscription, ev Event) bool {
	select {
	case sub.events <- ev:
		sub.lagging.Store(false)
		return true
	default:
	}

	if b.opts.SlowSubscriberTimeout > 0 && !sub.lagging.Load() {
		timer := time.NewTimer(b.opts.SlowSubscriberTimeout)
		defer timer.Stop()

		select {
		case sub.events <- ev:
			return true
		case <-timer.C:
			sub.lagging.Store(true)
		case <-ctx.Done():
		}
	}

	sub.dropped.Add(1)
	b.dropped.Add(1)
	b.logger.Warn("Dropped event for slow subscriber",
		"channel", ev.Channel,
		"kind", ev.Kind,
		"seq", ev.Seq,
		"subscription", sub.id)
	return false
}

// SubscriberCount returns the number of inboxes attached to channel.
func (b *Bus) SubscriberCount(channel string) int {
	b.mu.RLock()
	t := b.topics[channel]
	b.mu.RUnlock()
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Stats returns counters for health reporting.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	topics := make([]*topic, 0, len(b.topics))
	for _, t := range b.topics {
		topics = append(topics, t)
	}
	b.mu.RUnlock()

	stats := Stats{
		Channels:  len(topics),
		Published: b.published.Load(),
		Dropped:   b.dropped.Load(),
	}
	for _, t := range topics {
		t.mu.Lock()
		stats.Subscribers += len(t.subs)
		t.mu.Unlock()
	}
	return stats
}

// Close detaches and closes every inbox. Later subscriptions are returned closed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for channel, t := range b.topics {
		t.mu.Lock()
		t.dead = true
		for id, sub := range t.subs {
			delete(t.subs, id)
			sub.close()
		}
		t.mu.Unlock()
		delete(b.topics, channel)
	}
}

func (b *Bus) topicFor(channel string) (*topic, bool) {
	b.mu.RLock()
	t, ok := b.topics[channel]
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, false
	}
	if ok {
		return t, true
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, false
	}
	if t, ok := b.topics[channel]; ok {
		return t, true
	}
	t = &topic{subs: make(map[uint64]*Subscription)}
	b.topics[channel] = t
	return t, true
}

func (b *Bus) reap(channel string, t *topic) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.subs) == 0 && !t.dead && b.topics[channel] == t {
		t.dead = true
		delete(b.topics, channel)
	}
}
