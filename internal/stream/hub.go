package stream

import (
	"context"
	"sync"
	"time"
)

type subscriber struct {
	epoch uint64
	ch    chan Event
}

// Hub stores recent events and wakes waiters when new events arrive.
// The buffer is bounded; slow Fetch consumers that fall behind the
// buffer window simply resume from the oldest retained event.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
	sub      *subscriber
}

// NewHub constructs a bounded in-memory event fan-out buffer.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 4096
	}
	h := &Hub{capacity: capacity}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish stamps the event with a sequence number and timestamp, appends
// it to the buffer, and delivers it to the push subscriber when the
// epochs match. The stamped event is returned.
func (h *Hub) Publish(evt Event) Event {
	if h == nil {
		return evt
	}
	h.mu.Lock()
	evt = h.appendLocked(evt)
	h.deliverLocked(evt)
	h.cond.Broadcast()
	h.mu.Unlock()
	return evt
}

// Subscribe attaches the single push consumer for the given epoch. Any
// previous subscriber receives one terminal superseded event for its own
// epoch and its channel is closed. The returned channel is closed when a
// newer epoch attaches or Unsubscribe is called.
func (h *Hub) Subscribe(epoch uint64) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sub != nil {
		evt := h.appendLocked(Event{
			Epoch:   h.sub.epoch,
			Type:    EventSuperseded,
			Message: "run superseded by a newer run",
		})
		select {
		case h.sub.ch <- evt:
		default:
		}
		close(h.sub.ch)
		h.cond.Broadcast()
	}

	ch := make(chan Event, h.capacity)
	h.sub = &subscriber{epoch: epoch, ch: ch}
	return ch
}

// Unsubscribe detaches the push consumer for the epoch if it is still
// current. Detaching does not publish a superseded event.
func (h *Hub) Unsubscribe(epoch uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sub == nil || h.sub.epoch != epoch {
		return
	}
	close(h.sub.ch)
	h.sub = nil
}

// Fetch returns buffered events for the epoch with sequence greater than
// since. When wait is true and no events match, Fetch blocks until one
// arrives or the context ends. Passing the returned cursor back as since
// continues the stream without loss, including across limit-truncated
// batches.
func (h *Hub) Fetch(ctx context.Context, epoch, since uint64, limit int, wait bool) ([]Event, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.cond.Broadcast()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		events, next := h.snapshotLocked(epoch, since, limit)
		if len(events) > 0 || !wait {
			return events, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
	}
}

func (h *Hub) appendLocked(evt Event) Event {
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	return evt
}

func (h *Hub) deliverLocked(evt Event) {
	if h.sub == nil || h.sub.epoch != evt.Epoch {
		return
	}
	select {
	case h.sub.ch <- evt:
	default:
		// consumer wedged; Fetch against the buffer still sees the event
	}
	if evt.Type.Terminal() {
		close(h.sub.ch)
		h.sub = nil
	}
}

func (h *Hub) snapshotLocked(epoch, since uint64, limit int) ([]Event, uint64) {
	var out []Event
	for _, evt := range h.buffer {
		if evt.Sequence <= since || evt.Epoch != epoch {
			continue
		}
		out = append(out, evt)
		if len(out) == limit {
			// Truncated batch: the cursor must not jump past events the
			// limit cut off, so resume from the last returned one.
			return out, evt.Sequence
		}
	}
	return out, h.nextSeq
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
