package qsieve

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// ProgressUpdate is one progress sample of a session: the fraction of the
// relation target collected so far.
type ProgressUpdate struct {
	// Index identifies the session among concurrent factorizations.
	Index int
	// Value is usable relations / target, in [0, 1].
	Value float64
}

// ─────────────────────────────────────────────────────────────────────────────
// Observer Pattern
// ─────────────────────────────────────────────────────────────────────────────

// ProgressObserver receives progress notifications from a session.
type ProgressObserver interface {
	Update(index int, progress float64)
}

// ProgressSubject fans progress notifications out to registered observers.
// It is safe for concurrent use.
type ProgressSubject struct {
	observers []ProgressObserver
	mu        sync.RWMutex
}

// NewProgressSubject creates an empty subject.
func NewProgressSubject() *ProgressSubject {
	return &ProgressSubject{}
}

// Register adds an observer. Nil is ignored.
func (s *ProgressSubject) Register(observer ProgressObserver) {
	if observer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// Unregister removes an observer if present.
func (s *ProgressSubject) Unregister(observer ProgressObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.observers {
		if o == observer {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// Notify forwards one update to every observer in registration order.
func (s *ProgressSubject) Notify(index int, progress float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.observers {
		o.Update(index, progress)
	}
}

// ObserverCount returns the number of registered observers.
func (s *ProgressSubject) ObserverCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// ─────────────────────────────────────────────────────────────────────────────
// Channel Observer
// ─────────────────────────────────────────────────────────────────────────────

// ChannelObserver forwards updates to a channel without blocking; updates
// are dropped while the channel is full.
type ChannelObserver struct {
	channel chan<- ProgressUpdate
}

// NewChannelObserver creates an observer sending to ch. A nil channel
// discards updates.
func NewChannelObserver(ch chan<- ProgressUpdate) *ChannelObserver {
	return &ChannelObserver{channel: ch}
}

// Update implements ProgressObserver.
func (o *ChannelObserver) Update(index int, progress float64) {
	if o.channel == nil {
		return
	}
	select {
	case o.channel <- ProgressUpdate{Index: index, Value: min(progress, 1)}:
	default:
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Logging Observer
// ─────────────────────────────────────────────────────────────────────────────

// LoggingObserver logs progress at debug level whenever it moved by at
// least threshold since the last logged value.
type LoggingObserver struct {
	logger    zerolog.Logger
	threshold float64
	lastLog   map[int]float64
	mu        sync.Mutex
}

// NewLoggingObserver creates a throttled logging observer. A threshold
// ≤ 0 defaults to 0.1.
func NewLoggingObserver(logger zerolog.Logger, threshold float64) *LoggingObserver {
	if threshold <= 0 {
		threshold = 0.1
	}
	return &LoggingObserver{logger: logger, threshold: threshold, lastLog: make(map[int]float64)}
}

// Update implements ProgressObserver.
func (o *LoggingObserver) Update(index int, progress float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	last, seen := o.lastLog[index]
	if seen && progress < 1 && progress-last < o.threshold {
		return
	}
	o.logger.Debug().
		Int("session", index).
		Str("percent", fmt.Sprintf("%.1f%%", progress*100)).
		Msg("relation collection progress")
	o.lastLog[index] = progress
}

// ─────────────────────────────────────────────────────────────────────────────
// Metrics Observer
// ─────────────────────────────────────────────────────────────────────────────

var progressGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "qsieve_relation_progress",
		Help: "Fraction of the relation target collected by each running session",
	},
	[]string{"session"},
)

// MetricsObserver exports progress as a Prometheus gauge.
type MetricsObserver struct {
	gauge *prometheus.GaugeVec
}

// NewMetricsObserver returns an observer backed by the package gauge.
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{gauge: progressGauge}
}

// Update implements ProgressObserver.
func (o *MetricsObserver) Update(index int, progress float64) {
	o.gauge.WithLabelValues(strconv.Itoa(index)).Set(progress)
}

// Forget removes the series of a finished session.
func (o *MetricsObserver) Forget(index int) { o.gauge.DeleteLabelValues(strconv.Itoa(index)) }
