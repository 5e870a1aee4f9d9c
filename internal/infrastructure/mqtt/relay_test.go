package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rushdelivery/rush-core/internal/tracking"
)

func TestRelay_PublishesInOrder(t *testing.T) {
	var mu sync.Mutex
	var topics []string

	relay := newRelay(func(topic string, _ any) error {
		mu.Lock()
		topics = append(topics, topic)
		mu.Unlock()
		return nil
	}, 8)

	relay.Enqueue(tracking.Event{Type: tracking.EventNewParcel, Seq: 1})
	relay.Enqueue(tracking.Event{Type: tracking.EventParcelUpdate, Seq: 2})
	relay.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(topics) != 2 {
		t.Fatalf("published = %d events, want 2", len(topics))
	}
	if topics[0] != "rushd/events/new_parcel" || topics[1] != "rushd/events/parcel_update" {
		t.Errorf("topics = %v, want ordered event topics", topics)
	}
}

func TestRelay_EnqueueNeverBlocks(t *testing.T) {
	// A publisher stuck on the broker must not propagate backpressure to
	// the caller: the queue sheds oldest instead.
	release := make(chan struct{})
	relay := newRelay(func(string, any) error {
		<-release
		return nil
	}, 4)
	defer func() {
		close(release)
		relay.Close()
	}()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			relay.Enqueue(tracking.Event{Type: tracking.EventParcelUpdate, Seq: uint64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked on a stalled publisher")
	}

	if relay.Dropped() == 0 {
		t.Error("expected overflow to be shed, got zero drops")
	}
}

func TestRelay_DropsOldestOnOverflow(t *testing.T) {
	var mu sync.Mutex
	var seqs []uint64

	release := make(chan struct{})
	relay := newRelay(func(_ string, v any) error {
		<-release
		mu.Lock()
		seqs = append(seqs, v.(tracking.Event).Seq)
		mu.Unlock()
		return nil
	}, 2)

	// One event is parked in the publisher; two fill the queue; the
	// fourth overflows and evicts the oldest queued entry.
	for i := uint64(1); i <= 4; i++ {
		relay.Enqueue(tracking.Event{Type: tracking.EventParcelUpdate, Seq: i})
	}
	// The drainer may or may not have picked up seq 1 yet, but at least
	// one shed must have happened by now.
	deadline := time.Now().Add(2 * time.Second)
	for relay.Dropped() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no event was shed on overflow")
		}
		time.Sleep(time.Millisecond)
	}

	close(release)
	relay.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(seqs) == 0 {
		t.Fatal("nothing was published")
	}
	// Newest event survives the shedding.
	if seqs[len(seqs)-1] != 4 {
		t.Errorf("last published seq = %d, want 4", seqs[len(seqs)-1])
	}
}

func TestRelay_ErrorCallback(t *testing.T) {
	errs := make(chan error, 1)

	relay := newRelay(func(string, any) error {
		return errors.New("broker unreachable")
	}, 2)
	relay.SetOnError(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})

	relay.Enqueue(tracking.Event{Type: tracking.EventDriverUpdate, Seq: 1})
	relay.Close()

	select {
	case err := <-errs:
		if err == nil {
			t.Error("expected a publish error")
		}
	default:
		t.Error("error callback never invoked")
	}
}
