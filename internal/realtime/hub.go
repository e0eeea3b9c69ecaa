package realtime

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

const defaultBuffer = 16

// Hub delivers events to local subscribers. Publishing never blocks: when a
// subscriber's buffer is full the event's table is marked as missed, and the
// subscription later delivers one refresh event per missed table.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
	logger *zap.Logger
}

// NewHub constructs a hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers interest in tables. No tables means every table.
func (h *Hub) Subscribe(tables ...string) *Subscription {
	sub := &Subscription{
		hub:  h,
		ch:   make(chan Event, h.buffer),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	if len(tables) > 0 {
		sub.tables = make(map[string]struct{}, len(tables))
		for _, t := range tables {
			sub.tables[t] = struct{}{}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	go sub.pump()
	return sub
}

// Publish delivers ev to every subscriber watching its table.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		if !sub.wants(ev.Table) {
			continue
		}
		if !sub.offer(ev) {
			h.logger.Debug("subscriber busy, event coalesced", zap.String("table", ev.Table))
		}
	}
	return nil
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Later subscriptions are returned closed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		sub.stop()
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	sub.stop()
}

// Subscription is a live registration on a Hub.
type Subscription struct {
	hub    *Hub
	ch     chan Event
	tables map[string]struct{}

	mu     sync.Mutex
	missed map[string]struct{}
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// C returns the event channel. It is closed shortly after Unsubscribe.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Unsubscribe detaches the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.hub.remove(s)
}

func (s *Subscription) wants(table string) bool {
	if s.tables == nil {
		return true
	}
	_, ok := s.tables[table]
	return ok
}

// offer hands ev over without blocking. A full buffer records the table so the
// pump can deliver a refresh for it once the reader catches up.
func (s *Subscription) offer(ev Event) bool {
	select {
	case s.ch <- ev:
		return true
	default:
	}
	s.mu.Lock()
	if s.missed == nil {
		s.missed = make(map[string]struct{})
	}
	s.missed[ev.Table] = struct{}{}
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return false
}

func (s *Subscription) takeMissed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tables := make([]string, 0, len(s.missed))
	for t := range s.missed {
		tables = append(tables, t)
	}
	s.missed = nil
	sort.Strings(tables)
	return tables
}

// pump owns closing ch. It only runs after the hub stops sending to ch.
func (s *Subscription) pump() {
	defer close(s.ch)
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for _, table := range s.takeMissed() {
			select {
			case s.ch <- NewEvent(table, ActionRefresh, ""):
			case <-s.done:
				return
			}
		}
	}
}

// stop is called with the hub's write lock held, so no Publish is sending.
func (s *Subscription) stop() {
	s.once.Do(func() { close(s.done) })
}
