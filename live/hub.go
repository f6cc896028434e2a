// SPDX-License-Identifier: GPL-3.0-or-later
package live

import (
	"sync"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/log"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const subscriberBuffer = 16

// Hub fans live updates out to every subscriber. Publish never blocks, a
// subscriber that falls behind misses updates.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]chan domain.LiveUpdate

	l *logrus.Logger
}

func NewHub() *Hub {
	return &Hub{
		subscribers: map[uuid.UUID]chan domain.LiveUpdate{},
		l:           log.Logger(log.LOG_API),
	}
}

func (h *Hub) Subscribe() (uuid.UUID, <-chan domain.LiveUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New()
	updates := make(chan domain.LiveUpdate, subscriberBuffer)
	h.subscribers[id] = updates
	h.l.WithFields(logrus.Fields{"subscriber": id, "subscribers": len(h.subscribers)}).Debug("Subscribed")
	return id, updates
}

func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	updates, ok := h.subscribers[id]
	if !ok {
		return
	}
	delete(h.subscribers, id)
	close(updates)
	h.l.WithFields(logrus.Fields{"subscriber": id, "subscribers": len(h.subscribers)}).Debug("Unsubscribed")
}

func (h *Hub) Publish(update domain.LiveUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, updates := range h.subscribers {
		select {
		case updates <- update:
		default:
			h.l.WithFields(logrus.Fields{"subscriber": id, "id": update.Id}).Warn("Subscriber is too slow, dropping update")
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
