package service

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/cache"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memRoster is an in-memory RosterStore. InTx holds a single mutex for the
// whole transaction, standing in for the row lock, and restores the
// previous state when fn fails.
type memRoster struct {
	mu        sync.Mutex
	events    map[int64]*model.Event
	roster    map[int64][]string
	customers map[string]model.CustomerSummary

	lockErr error
}

func newMemRoster() *memRoster {
	return &memRoster{
		events:    map[int64]*model.Event{},
		roster:    map[int64][]string{},
		customers: map[string]model.CustomerSummary{},
	}
}

func (m *memRoster) addEvent(id int64, open bool, customers ...string) {
	m.events[id] = &model.Event{ID: id, Name: "Tour", RegistrationOpen: open}
	m.roster[id] = append([]string(nil), customers...)
}

func (m *memRoster) addCustomer(id string) {
	m.customers[id] = model.CustomerSummary{ID: id, UserName: id, Email: id + "@example.com"}
}

func (m *memRoster) state(id int64) (open bool, roster []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[id].RegistrationOpen, slices.Clone(m.roster[id])
}

func (m *memRoster) InTx(ctx context.Context, fn func(tx repository.RosterTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	savedEvents := make(map[int64]model.Event, len(m.events))
	for id, e := range m.events {
		savedEvents[id] = *e
	}
	savedRoster := make(map[int64][]string, len(m.roster))
	for id, r := range m.roster {
		savedRoster[id] = slices.Clone(r)
	}

	if err := fn(memTx{m}); err != nil {
		for id, e := range savedEvents {
			e := e
			m.events[id] = &e
		}
		m.roster = savedRoster
		return err
	}
	return nil
}

func (m *memRoster) EventWithRoster(ctx context.Context, eventID int64) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *e
	out.Roster = slices.Clone(m.roster[eventID])
	return &out, nil
}

func (m *memRoster) AppliedCustomers(ctx context.Context, eventID int64) ([]model.CustomerSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[eventID]; !ok {
		return nil, repository.ErrNotFound
	}
	var out []model.CustomerSummary
	for _, id := range m.roster[eventID] {
		out = append(out, m.customers[id])
	}
	return out, nil
}

type memTx struct{ m *memRoster }

func (t memTx) LockEvent(ctx context.Context, eventID int64) (*model.Event, error) {
	if t.m.lockErr != nil {
		return nil, t.m.lockErr
	}
	e, ok := t.m.events[eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *e
	return &out, nil
}

func (t memTx) Customers(ctx context.Context, eventID int64) ([]string, error) {
	return slices.Clone(t.m.roster[eventID]), nil
}

func (t memTx) Insert(ctx context.Context, eventID int64, customerID string) error {
	if slices.Contains(t.m.roster[eventID], customerID) {
		return repository.ErrAlreadySubscribed
	}
	t.m.roster[eventID] = append(t.m.roster[eventID], customerID)
	return nil
}

func (t memTx) Delete(ctx context.Context, eventID int64, customerID string) error {
	r := t.m.roster[eventID]
	i := slices.Index(r, customerID)
	if i < 0 {
		return repository.ErrNotFound
	}
	t.m.roster[eventID] = slices.Delete(r, i, i+1)
	return nil
}

func (t memTx) SetRegistrationOpen(ctx context.Context, eventID int64, open bool) error {
	t.m.events[eventID].RegistrationOpen = open
	return nil
}

// recordingCache is an in-memory EventCache that remembers invalidations.
// It drops writes made with a stale generation, like RedisCache.
type recordingCache struct {
	mu          sync.Mutex
	gen         int64
	items       map[int64]model.Event
	pages       map[model.PageQuery][]model.Event
	invalidated []int64
}

func (c *recordingCache) Generation(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func newRecordingCache() *recordingCache {
	return &recordingCache{items: map[int64]model.Event{}, pages: map[model.PageQuery][]model.Event{}}
}

func (c *recordingCache) Event(ctx context.Context, id int64) (*model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[id]
	if !ok {
		return nil, cache.ErrMiss
	}
	return &e, nil
}

func (c *recordingCache) SetEvent(ctx context.Context, gen int64, e *model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.items[e.ID] = *e
	return nil
}

func (c *recordingCache) Page(ctx context.Context, q model.PageQuery) ([]model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pages[q]
	if !ok {
		return nil, cache.ErrMiss
	}
	return p, nil
}

func (c *recordingCache) SetPage(ctx context.Context, gen int64, q model.PageQuery, events []model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.pages[q] = events
	return nil
}

func (c *recordingCache) Invalidate(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	delete(c.items, id)
	clear(c.pages)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type publishedMsg struct {
	topic string
	event any
}

// recordingPublisher captures every published event.
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []publishedMsg
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, publishedMsg{topic, event})
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.topic
	}
	return out
}
