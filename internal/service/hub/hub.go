package hub

import (
	"log/slog"
	"sync"

	"github.com/zjregee/aip/internal/models"
)

const defaultBufferSize = 256

// Hub fans events out to every subscriber. Publish never blocks: an event is
// dropped for a subscriber whose buffer is full.
type Hub struct {
	mu         sync.RWMutex
	subs       map[int]chan models.HubEvent
	nextID     int
	bufferSize int
}

func New() *Hub {
	return &Hub{
		subs:       make(map[int]chan models.HubEvent),
		bufferSize: defaultBufferSize,
	}
}

// Subscribe returns the event channel and a function that unsubscribes and
// closes it.
func (h *Hub) Subscribe() (<-chan models.HubEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan models.HubEvent, h.bufferSize)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(event models.HubEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
			// a pending change notification is as good as a new one
			if event.GetType() == models.HubEventTypeRtModelChange {
				continue
			}
			slog.Warn("hub subscriber is full, dropping event", "type", event.GetType())
		}
	}
}

// PublishMessage publishes a plain progress message.
func (h *Hub) PublishMessage(msg string) {
	h.Publish(models.HubMessage{Content: msg})
}
