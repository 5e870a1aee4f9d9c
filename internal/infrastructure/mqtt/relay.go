package mqtt

import (
	"sync"
	"sync/atomic"

	"github.com/rushdelivery/rush-core/internal/tracking"
)

// defaultRelayDepth bounds the number of events queued towards the broker.
const defaultRelayDepth = 256

// publishFunc publishes a JSON payload to a topic.
type publishFunc func(topic string, v any) error

// Relay forwards store change events to the broker from its own
// goroutine. Enqueue never blocks: store subscribers run under the emit
// lock, so a slow or disconnected broker must never stall mutations.
// When the queue is full the oldest event is dropped; the broker feed is
// best-effort, the WebSocket hub remains the authoritative live channel.
type Relay struct {
	topics  Topics
	publish publishFunc

	queue   chan tracking.Event
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64

	mu      sync.RWMutex
	onError func(err error)
}

// NewRelay starts a relay publishing through the given client.
func NewRelay(client *Client, depth int) *Relay {
	return newRelay(client.PublishJSON, depth)
}

func newRelay(publish publishFunc, depth int) *Relay {
	if depth <= 0 {
		depth = defaultRelayDepth
	}
	r := &Relay{
		publish: publish,
		queue:   make(chan tracking.Event, depth),
		done:    make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// SetOnError sets a callback invoked when a publish fails.
func (r *Relay) SetOnError(callback func(err error)) {
	r.mu.Lock()
	r.onError = callback
	r.mu.Unlock()
}

// Enqueue queues an event for publication without ever blocking the
// caller. On overflow the oldest queued event is discarded to make room.
func (r *Relay) Enqueue(ev tracking.Event) {
	select {
	case r.queue <- ev:
		return
	default:
	}

	// Queue full: shed the oldest entry, then offer once more. A racing
	// producer may win the freed slot; then this event is the drop.
	select {
	case <-r.queue:
		r.dropped.Add(1)
	default:
	}
	select {
	case r.queue <- ev:
	default:
		r.dropped.Add(1)
	}
}

// Dropped reports how many events were shed on overflow.
func (r *Relay) Dropped() uint64 {
	return r.dropped.Load()
}

// Close stops the relay after draining whatever is already queued.
func (r *Relay) Close() {
	close(r.done)
	r.wg.Wait()
}

func (r *Relay) run() {
	defer r.wg.Done()
	for {
		select {
		case ev := <-r.queue:
			r.publishEvent(ev)
		case <-r.done:
			for {
				select {
				case ev := <-r.queue:
					r.publishEvent(ev)
				default:
					return
				}
			}
		}
	}
}

func (r *Relay) publishEvent(ev tracking.Event) {
	if err := r.publish(r.topics.Event(string(ev.Type)), ev); err != nil {
		r.mu.RLock()
		callback := r.onError
		r.mu.RUnlock()
		if callback != nil {
			callback(err)
		}
	}
}
