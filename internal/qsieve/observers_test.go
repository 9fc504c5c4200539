package qsieve

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

// ─────────────────────────────────────────────────────────────────────────────
// ProgressSubject Tests
// ─────────────────────────────────────────────────────────────────────────────

// recordingObserver tracks updates for testing.
type recordingObserver struct {
	mu      sync.Mutex
	updates []ProgressUpdate
}

func (r *recordingObserver) Update(index int, progress float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, ProgressUpdate{Index: index, Value: progress})
}

func (r *recordingObserver) snapshot() []ProgressUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ProgressUpdate(nil), r.updates...)
}

func TestProgressSubject_RegisterUnregister(t *testing.T) {
	t.Parallel()

	subject := NewProgressSubject()
	subject.Register(nil)
	if subject.ObserverCount() != 0 {
		t.Fatalf("registering nil added an observer")
	}

	// Pointers, so the two observers compare unequal.
	o1, o2 := &recordingObserver{}, &recordingObserver{}
	subject.Register(o1)
	subject.Register(o2)
	if subject.ObserverCount() != 2 {
		t.Fatalf("expected 2 observers, got %d", subject.ObserverCount())
	}

	subject.Unregister(nil)
	subject.Unregister(o1)
	subject.Unregister(o1)
	if subject.ObserverCount() != 1 {
		t.Fatalf("expected 1 observer after unregister, got %d", subject.ObserverCount())
	}

	subject.Notify(4, 0.5)
	if got := o2.snapshot(); len(got) != 1 || got[0] != (ProgressUpdate{Index: 4, Value: 0.5}) {
		t.Errorf("remaining observer got %+v", got)
	}
	if got := o1.snapshot(); len(got) != 0 {
		t.Errorf("unregistered observer got %+v", got)
	}
}

func TestProgressSubject_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	subject := NewProgressSubject()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			subject.Register(&recordingObserver{})
		}()
		go func(idx int) {
			defer wg.Done()
			subject.Notify(idx, float64(idx)/10)
		}(i)
	}
	wg.Wait()

	if subject.ObserverCount() != 10 {
		t.Errorf("expected 10 observers, got %d", subject.ObserverCount())
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ChannelObserver Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestChannelObserver(t *testing.T) {
	t.Parallel()

	ch := make(chan ProgressUpdate, 2)
	observer := NewChannelObserver(ch)
	observer.Update(1, 0.5)
	observer.Update(2, 1.5)

	if u := <-ch; u.Index != 1 || u.Value != 0.5 {
		t.Errorf("unexpected first update: %+v", u)
	}
	if u := <-ch; u.Index != 2 || u.Value != 1 {
		t.Errorf("progress not clamped: %+v", u)
	}

	// Nil channel discards.
	NewChannelObserver(nil).Update(1, 0.5)

	full := NewChannelObserver(make(chan ProgressUpdate))
	done := make(chan struct{})
	go func() {
		full.Update(1, 0.5)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Update blocked on a full channel")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// LoggingObserver Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestLoggingObserver_Throttles(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	observer := NewLoggingObserver(zerolog.New(&buf).Level(zerolog.DebugLevel), 0.1)

	observer.Update(0, 0.1)
	if buf.Len() == 0 {
		t.Error("expected initial progress to be logged")
	}
	buf.Reset()
	observer.Update(0, 0.15)
	if buf.Len() != 0 {
		t.Error("small progress change was logged")
	}
	observer.Update(1, 0.15)
	if buf.Len() == 0 {
		t.Error("first update of another session was not logged")
	}
	buf.Reset()
	observer.Update(0, 1)
	if !bytes.Contains(buf.Bytes(), []byte("100.0%")) {
		t.Errorf("completion not logged: %q", buf.String())
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// MetricsObserver Tests
// ─────────────────────────────────────────────────────────────────────────────

// TestMetricsObserver shares the package gauge, so it does not run in
// parallel.
func TestMetricsObserver(t *testing.T) {
	observer := NewMetricsObserver()
	observer.Update(7, 0.25)
	observer.Update(7, 0.75)

	if got := testutil.ToFloat64(progressGauge.WithLabelValues("7")); got != 0.75 {
		t.Errorf("gauge = %v, want 0.75", got)
	}
	observer.Forget(7)
	if got := testutil.CollectAndCount(progressGauge); got != 0 {
		t.Errorf("%d series after Forget", got)
	}
}
