// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("broker closed")

// Broker carries "room changed" notifications between writers and the
// connections watching a room. Notifications carry no payload; subscribers
// reload the room when woken.
type Broker interface {
	Publish(ctx context.Context, roomID string) error
	Subscribe(roomID string) (<-chan struct{}, func())
}

type subscriber struct {
	ch chan struct{}
}

// Hub is an in-process Broker.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]map[*subscriber]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*subscriber]struct{})}
}

// Publish wakes every subscriber of the room. It never blocks: a
// subscriber that has not consumed its previous wake-up keeps just one.
func (h *Hub) Publish(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	for sub := range h.rooms[roomID] {
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Subscribe registers for notifications about roomID. The returned cancel
// function must be called to release the subscription; it is safe to call
// more than once. The channel is closed when the subscription ends.
func (h *Hub) Subscribe(roomID string) (<-chan struct{}, func()) {
	sub := &subscriber{ch: make(chan struct{}, 1)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.rooms[roomID] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.rooms[roomID]; ok {
				if _, ok := subs[sub]; ok {
					delete(subs, sub)
					close(sub.ch)
				}
				if len(subs) == 0 {
					delete(h.rooms, roomID)
				}
			}
		})
	}
	return sub.ch, cancel
}

// SubscriberCount returns the number of live subscriptions for roomID
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}

// Close ends every subscription. Later publishes return ErrClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for roomID, subs := range h.rooms {
		for sub := range subs {
			close(sub.ch)
		}
		delete(h.rooms, roomID)
	}
	return nil
}
