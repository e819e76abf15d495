// Package navigation carries typed viewer commands between loosely coupled
// components: a host application publishes, the viewer pipeline subscribes.
package navigation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fieldlens/fieldlens/coords"
	"github.com/fieldlens/fieldlens/geometry"
	"github.com/fieldlens/fieldlens/observability"
)

// Message kinds, stable across the wire and in logs.
const (
	KindLoadDocument      = "LOAD_DOCUMENT"
	KindNavigateToRegions = "NAVIGATE_TO_COORDINATES"
	KindGoToPage          = "GO_TO_PAGE"
	KindSetZoom           = "SET_ZOOM"
)

// Message is a viewer command. Concrete types are the only implementations.
type Message interface {
	Kind() string
	validate() error
}

// LoadDocument asks the viewer to open the document at URL.
type LoadDocument struct {
	URL string
}

func (LoadDocument) Kind() string { return KindLoadDocument }

func (m LoadDocument) validate() error {
	if m.URL == "" {
		return fmt.Errorf("%s: empty url", m.Kind())
	}
	return nil
}

// NavigateToRegions asks the viewer to show and highlight a set of regions.
// DocumentURL is optional; when set and different from the open document, the
// viewer loads it first.
type NavigateToRegions struct {
	DocumentURL string
	Regions     geometry.RegionSet
}

func (NavigateToRegions) Kind() string { return KindNavigateToRegions }

func (m NavigateToRegions) validate() error {
	if len(m.Regions) == 0 {
		return fmt.Errorf("%s: no regions", m.Kind())
	}
	for i, q := range m.Regions {
		if q.Page < 1 {
			return fmt.Errorf("%s: region %d has page %d", m.Kind(), i, q.Page)
		}
	}
	return nil
}

// GoToPage asks the viewer to display a page, 1-based.
type GoToPage struct {
	Page int
}

func (GoToPage) Kind() string { return KindGoToPage }

func (m GoToPage) validate() error {
	if m.Page < 1 {
		return fmt.Errorf("%s: page %d out of range", m.Kind(), m.Page)
	}
	return nil
}

// SetZoom asks the viewer to change zoom. Either Mode names a preset, or Mode
// is coords.ZoomCustom and Scale carries the factor.
type SetZoom struct {
	Mode  coords.ZoomMode
	Scale float64
}

func (SetZoom) Kind() string { return KindSetZoom }

func (m SetZoom) validate() error {
	if !m.Mode.Valid() {
		return fmt.Errorf("%s: unknown mode %q", m.Kind(), m.Mode)
	}
	if m.Mode == coords.ZoomCustom && m.Scale <= 0 {
		return fmt.Errorf("%s: custom zoom needs a positive scale, got %g", m.Kind(), m.Scale)
	}
	return nil
}

// Handler receives published messages. Handlers run synchronously on the
// publisher's goroutine and must not block for long.
type Handler func(Message)

// Subscription identifies one registered handler.
type Subscription struct {
	broker *Broker
	id     int
}

// Cancel removes the handler. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil || s.broker == nil {
		return
	}
	s.broker.mu.Lock()
	delete(s.broker.subs, s.id)
	s.broker.mu.Unlock()
	s.broker = nil
}

type subscriber struct {
	kind    string // empty matches every kind
	handler Handler
}

// Broker validates and dispatches messages. Each publish reaches each
// matching live subscriber exactly once, in subscription order; invalid
// messages are rejected before any handler runs.
type Broker struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
	log  observability.Logger
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithLogger attaches a logger for dispatch tracing.
func WithLogger(l observability.Logger) BrokerOption {
	return func(b *Broker) { b.log = l }
}

func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{
		subs: make(map[int]subscriber),
		log:  observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for every message kind.
func (b *Broker) Subscribe(h Handler) *Subscription {
	return b.subscribe("", h)
}

// SubscribeKind registers a handler for one message kind only.
func (b *Broker) SubscribeKind(kind string, h Handler) *Subscription {
	return b.subscribe(kind, h)
}

func (b *Broker) subscribe(kind string, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.subs[id] = subscriber{kind: kind, handler: h}
	return &Subscription{broker: b, id: id}
}

// Publish validates m and dispatches it to matching subscribers. A
// validation failure is returned to the publisher and nothing is delivered.
func (b *Broker) Publish(m Message) error {
	if err := m.validate(); err != nil {
		b.log.Warn("message rejected",
			observability.String("kind", m.Kind()),
			observability.Error("error", err))
		return err
	}

	b.mu.RLock()
	ids := make([]int, 0, len(b.subs))
	for id, s := range b.subs {
		if s.kind == "" || s.kind == m.Kind() {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	handlers := make([]Handler, len(ids))
	for i, id := range ids {
		handlers[i] = b.subs[id].handler
	}
	b.mu.RUnlock()

	b.log.Debug("dispatching message",
		observability.String("kind", m.Kind()),
		observability.Int("subscribers", len(handlers)))
	for _, h := range handlers {
		h(m)
	}
	return nil
}
