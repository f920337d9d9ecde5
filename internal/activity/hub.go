package activity

import (
	"sync"
)

// Subscription is a revocable registration on a Source.
type Subscription interface {
	Cancel()
}

// Source delivers notifications of one kind to a callback until the
// returned subscription is cancelled.
type Source interface {
	Subscribe(kind Kind, fn func(Notification)) Subscription
}

// Hub is an in-process Source. Publish calls subscribers synchronously in
// subscription order, so notifications on one kind arrive in publish order.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Kind][]*hubSubscription
}

type hubSubscription struct {
	hub  *Hub
	id   uint64
	kind Kind
	fn   func(Notification)
	once sync.Once
}

func NewHub() *Hub {
	return &Hub{subs: make(map[Kind][]*hubSubscription)}
}

func (h *Hub) Subscribe(kind Kind, fn func(Notification)) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &hubSubscription{hub: h, id: h.nextID, kind: kind, fn: fn}
	h.subs[kind] = append(h.subs[kind], sub)
	return sub
}

// Publish delivers n to the current subscribers of n.Kind() and returns how
// many were called.
func (h *Hub) Publish(n Notification) int {
	h.mu.RLock()
	subs := make([]*hubSubscription, len(h.subs[n.Kind()]))
	copy(subs, h.subs[n.Kind()])
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(n)
	}
	return len(subs)
}

// SubscriberCount returns the number of live subscriptions for kind.
func (h *Hub) SubscriberCount(kind Kind) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[kind])
}

func (s *hubSubscription) Cancel() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()

		subs := s.hub.subs[s.kind]
		for i, other := range subs {
			if other.id == s.id {
				s.hub.subs[s.kind] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(s.hub.subs[s.kind]) == 0 {
			delete(s.hub.subs, s.kind)
		}
	})
}
