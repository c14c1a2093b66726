package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aeris-iot/aeris-core/internal/sensor"
)

// testEntry builds an entry whose Value encodes its publish index.
func testEntry(value float64) sensor.SensorEntry {
	return sensor.SensorEntry{
		ID:        uuid.New(),
		SensorID:  uuid.New(),
		Value:     value,
		CreatedAt: time.Now().Unix(),
	}
}

func recvTimeout(t *testing.T, sub *Subscriber) (sensor.SensorEntry, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return sub.Recv(ctx)
}

func TestPublishOrder(t *testing.T) {
	b := New(10)
	defer b.Close()

	sub := b.Subscribe()
	defer sub.Unsubscribe()

	for i := 0; i < 5; i++ {
		if got := b.Publish(testEntry(float64(i))); got != 1 {
			t.Fatalf("Publish() = %d receivers, want 1", got)
		}
	}

	for i := 0; i < 5; i++ {
		entry, err := recvTimeout(t, sub)
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		if entry.Value != float64(i) {
			t.Errorf("Recv() value = %v, want %v", entry.Value, float64(i))
		}
	}
}

func TestSubscribeAfterPublish(t *testing.T) {
	b := New(10)
	defer b.Close()

	// Entries published before Subscribe are not delivered.
	b.Publish(testEntry(1.0))

	sub := b.Subscribe()
	defer sub.Unsubscribe()

	b.Publish(testEntry(2.0))

	entry, err := recvTimeout(t, sub)
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if entry.Value != 2.0 {
		t.Errorf("Recv() value = %v, want 2.0", entry.Value)
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	b := New(10)
	defer b.Close()

	if got := b.Publish(testEntry(1.0)); got != 0 {
		t.Errorf("Publish() = %d receivers, want 0", got)
	}
}

func TestLaggedSubscriber(t *testing.T) {
	const capacity = 100
	b := New(capacity)
	defer b.Close()

	sub := b.Subscribe()
	defer sub.Unsubscribe()

	// Overrun the ring by 10 while the subscriber does not read.
	total := capacity + 10
	for i := 0; i < total; i++ {
		b.Publish(testEntry(float64(i)))
	}

	// First Recv reports the overrun once.
	_, err := recvTimeout(t, sub)
	var lag *LagError
	if !errors.As(err, &lag) {
		t.Fatalf("Recv() error = %v, want *LagError", err)
	}
	if lag.Skipped != 10 {
		t.Errorf("Skipped = %d, want 10", lag.Skipped)
	}

	// Then delivery resumes from the oldest buffered entry.
	entry, err := recvTimeout(t, sub)
	if err != nil {
		t.Fatalf("Recv() after lag error = %v", err)
	}
	if entry.Value != 10.0 {
		t.Errorf("Recv() value = %v, want 10.0", entry.Value)
	}

	// The remaining entries arrive in order with no further lag.
	for want := 11.0; want < float64(total); want++ {
		entry, err := recvTimeout(t, sub)
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		if entry.Value != want {
			t.Fatalf("Recv() value = %v, want %v", entry.Value, want)
		}
	}
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	b := New(4)
	defer b.Close()

	slow := b.Subscribe()
	defer slow.Unsubscribe()
	fast := b.Subscribe()
	defer fast.Unsubscribe()

	// Publishing far past capacity must not block even though the slow
	// subscriber never reads.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(testEntry(float64(i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on slow subscriber")
	}

	// The fast subscriber still gets the tail of the stream.
	_, err := recvTimeout(t, fast)
	var lag *LagError
	if !errors.As(err, &lag) {
		t.Fatalf("Recv() error = %v, want *LagError", err)
	}
	entry, err := recvTimeout(t, fast)
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if entry.Value != 96.0 {
		t.Errorf("Recv() value = %v, want 96.0", entry.Value)
	}
}

func TestClose(t *testing.T) {
	b := New(10)

	sub := b.Subscribe()

	b.Publish(testEntry(1.0))
	b.Close()

	// Buffered entries drain before the close surfaces.
	entry, err := recvTimeout(t, sub)
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if entry.Value != 1.0 {
		t.Errorf("Recv() value = %v, want 1.0", entry.Value)
	}

	if _, err := recvTimeout(t, sub); !errors.Is(err, ErrClosed) {
		t.Errorf("Recv() error = %v, want ErrClosed", err)
	}

	// Publish after close is a no-op.
	if got := b.Publish(testEntry(2.0)); got != 0 {
		t.Errorf("Publish() after Close = %d, want 0", got)
	}

	if b.Subscribe() != nil {
		t.Error("Subscribe() after Close should return nil")
	}
}

func TestRecvContextCancelled(t *testing.T) {
	b := New(10)
	defer b.Close()

	sub := b.Subscribe()
	defer sub.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := sub.Recv(ctx)
		errCh <- err
	}()

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Recv() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Recv() did not return after context cancellation")
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New(10)
	defer b.Close()

	sub := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", b.SubscriberCount())
	}

	sub.Unsubscribe()
	if b.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", b.SubscriberCount())
	}

	if _, err := recvTimeout(t, sub); !errors.Is(err, ErrClosed) {
		t.Errorf("Recv() after Unsubscribe error = %v, want ErrClosed", err)
	}

	// Calling again is safe.
	sub.Unsubscribe()
}

func TestFanOut(t *testing.T) {
	b := New(10)
	defer b.Close()

	a := b.Subscribe()
	defer a.Unsubscribe()
	c := b.Subscribe()
	defer c.Unsubscribe()

	if got := b.Publish(testEntry(7.0)); got != 2 {
		t.Fatalf("Publish() = %d receivers, want 2", got)
	}

	for _, sub := range []*Subscriber{a, c} {
		entry, err := recvTimeout(t, sub)
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		if entry.Value != 7.0 {
			t.Errorf("Recv() value = %v, want 7.0", entry.Value)
		}
	}
}
