package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const DefaultMaxEntries = 1024

// Memory is a size-bounded LRU with a per-entry TTL.
type Memory struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	order      *list.List
	items      map[string]*list.Element
	now        func() time.Time
}

type memoryItem struct {
	key       string
	entry     Entry
	expiresAt time.Time
}

func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		ttl:        ttl,
		maxEntries: maxEntries,
		order:      list.New(),
		items:      map[string]*list.Element{},
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	element, ok := m.items[key]
	if !ok {
		return Entry{}, false, nil
	}
	item := element.Value.(*memoryItem)
	if !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt) {
		m.removeElement(element)
		return Entry{}, false, nil
	}
	m.order.MoveToFront(element)
	return item.entry, true, nil
}

func (m *Memory) Set(_ context.Context, key string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if m.ttl > 0 {
		expiresAt = m.now().Add(m.ttl)
	}
	if element, ok := m.items[key]; ok {
		item := element.Value.(*memoryItem)
		item.entry = entry
		item.expiresAt = expiresAt
		m.order.MoveToFront(element)
		return nil
	}
	m.items[key] = m.order.PushFront(&memoryItem{key: key, entry: entry, expiresAt: expiresAt})
	for m.order.Len() > m.maxEntries {
		m.removeElement(m.order.Back())
	}
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *Memory) removeElement(element *list.Element) {
	m.order.Remove(element)
	delete(m.items, element.Value.(*memoryItem).key)
}
