// Package eventbus provides the publish/subscribe primitive coordinating
// change notification. Listeners are keyed by event name and delivered in
// priority order (highest first, ties broken by subscription order), with
// optional payload filtering, one-shot subscriptions, and a choice between
// synchronous and asynchronous delivery fixed at construction time.
//
// Listener failures are isolated: an error return or panic is routed to the
// configured error handler and never prevents the remaining listeners from
// running.
package eventbus

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// DeliveryMode selects how Emit runs listeners.
type DeliveryMode int

const (
	// Sync runs every listener before Emit returns.
	Sync DeliveryMode = iota
	// Async defers listener invocations to a separate goroutine; completion
	// is observable through the channel Emit returns.
	Async
)

// Handler processes one event payload.
type Handler func(payload any) error

// FilterFunc suppresses delivery to a listener when it returns false.
type FilterFunc func(payload any) bool

// ListenerInfo identifies a listener to the error handler.
type ListenerInfo struct {
	ID       string
	Event    string
	Priority int
}

// ErrorHandler receives listener errors and recovered panics.
type ErrorHandler func(err error, event string, listener ListenerInfo)

// DefaultMaxListeners is the per-event listener count above which the bus
// warns about a possible leak.
const DefaultMaxListeners = 10

type listener struct {
	id       string
	fn       Handler
	filter   FilterFunc
	priority int
	once     bool
}

func (l *listener) info(event string) ListenerInfo {
	return ListenerInfo{ID: l.id, Event: event, Priority: l.priority}
}

// Bus is a name-keyed publish/subscribe bus.
type Bus struct {
	mode DeliveryMode

	mu        sync.Mutex
	listeners map[string][]*listener // each slice sorted by priority desc, then subscription order
	warned    map[string]bool

	maxListeners int
	errHandler   ErrorHandler
	logger       *slog.Logger
}

// New creates a bus with the given delivery mode.
func New(mode DeliveryMode, opts ...BusOption) *Bus {
	b := &Bus{
		mode:         mode,
		listeners:    make(map[string][]*listener),
		warned:       make(map[string]bool),
		maxListeners: DefaultMaxListeners,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.errHandler == nil {
		b.errHandler = func(err error, event string, l ListenerInfo) {
			b.logger.Error("listener failed", "event", event, "listener", l.ID, "error", err)
		}
	}
	return b
}

// On subscribes fn to event and returns the listener id.
func (b *Bus) On(event string, fn Handler, opts ...ListenerOption) string {
	cfg := listenerConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	l := &listener{
		id:       uuid.NewString(),
		fn:       fn,
		filter:   cfg.filter,
		priority: cfg.priority,
		once:     cfg.once,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ls := append(b.listeners[event], l)
	// Stable sort preserves subscription order within a priority tier.
	sort.SliceStable(ls, func(i, j int) bool { return ls[i].priority > ls[j].priority })
	b.listeners[event] = ls

	if b.maxListeners > 0 && len(ls) > b.maxListeners && !b.warned[event] {
		b.warned[event] = true
		b.logger.Warn("possible listener leak",
			"event", event,
			"count", len(ls),
			"max", b.maxListeners,
		)
	}

	return l.id
}

// Once subscribes fn for the first matching delivery. The listener is
// unsubscribed when it is selected, before its handler runs, so concurrent
// emits cannot deliver to it twice.
func (b *Bus) Once(event string, fn Handler, opts ...ListenerOption) string {
	return b.On(event, fn, append(opts, WithOnce())...)
}

// Emit delivers payload to every non-filtered listener of event in priority
// order. The returned channel is closed once every listener attempt has
// completed; in synchronous mode it is already closed when Emit returns.
func (b *Bus) Emit(event string, payload any) <-chan struct{} {
	// Filters run under the bus lock so that selecting a once listener and
	// unsubscribing it is one atomic step: concurrent emits can never both
	// pick the same once listener. Filters must not call back into the bus.
	b.mu.Lock()
	var targets []*listener
	for _, l := range b.listeners[event] {
		if l.filter != nil && !l.filter(payload) {
			continue
		}
		targets = append(targets, l)
	}
	for _, l := range targets {
		if l.once {
			b.remove(event, l.id)
		}
	}
	b.mu.Unlock()

	done := make(chan struct{})

	deliver := func() {
		for _, l := range targets {
			b.invoke(l, event, payload)
		}
		close(done)
	}

	if b.mode == Async {
		go deliver()
	} else {
		deliver()
	}
	return done
}

// invoke runs one listener, converting errors and panics into calls to the
// error handler.
func (b *Bus) invoke(l *listener, event string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.errHandler(fmt.Errorf("listener panic: %v", r), event, l.info(event))
		}
	}()
	if err := l.fn(payload); err != nil {
		b.errHandler(err, event, l.info(event))
	}
}

// Off removes one listener. Returns false if the id was not subscribed.
func (b *Bus) Off(event, id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remove(event, id)
}

// remove expects b.mu to be held.
func (b *Bus) remove(event, id string) bool {
	ls := b.listeners[event]
	for i, l := range ls {
		if l.id == id {
			b.listeners[event] = append(ls[:i:i], ls[i+1:]...)
			if len(b.listeners[event]) == 0 {
				delete(b.listeners, event)
			}
			return true
		}
	}
	return false
}

// OffAll removes every listener for the named events, or for all events
// when called with no arguments.
func (b *Bus) OffAll(events ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(events) == 0 {
		b.listeners = make(map[string][]*listener)
		return
	}
	for _, event := range events {
		delete(b.listeners, event)
	}
}

// ListenerCount returns the number of listeners subscribed to event.
func (b *Bus) ListenerCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[event])
}

// ListenerIDs returns the ids subscribed to event in delivery order.
func (b *Bus) ListenerIDs(event string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.listeners[event]))
	for _, l := range b.listeners[event] {
		ids = append(ids, l.id)
	}
	return ids
}

// EventNames returns the names of all events with at least one listener.
func (b *Bus) EventNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.listeners))
	for name := range b.listeners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasListeners reports whether event has any listeners.
func (b *Bus) HasListeners(event string) bool {
	return b.ListenerCount(event) > 0
}
