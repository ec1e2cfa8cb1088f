package dispatcher

import (
	"sync/atomic"

	"github.com/wavecast/wavecast-go/pkg/metrics"
)

const streamCapacity = 100

// Stream is a single typed listener stream: a backpressure-buffered
// channel with capacity 100, per spec.md §4.H. Dispatch into a full
// stream is dropped rather than blocking the dispatcher (non-blocking
// dispatch is a hard requirement — a slow consumer must never stall
// delivery to other handles).
type Stream[T any] struct {
	ch       chan T
	kind     string
	isClosed int32
}

func newStream[T any](kind string) *Stream[T] {
	return &Stream[T]{ch: make(chan T, streamCapacity), kind: kind}
}

// C returns the receive channel user code ranges over.
func (s *Stream[T]) C() <-chan T { return s.ch }

func (s *Stream[T]) send(v T) {
	if s.closed() {
		return
	}
	select {
	case s.ch <- v:
	default:
		// Full: drop the incoming value. The stream's own buffer is the
		// backpressure mechanism; a consumer that falls behind loses the
		// newest values while its buffered ones are kept, and the
		// dispatcher's throughput is unaffected.
		metrics.StreamDropsTotal.WithLabelValues(s.kind).Inc()
	}
}

// Close invalidates the stream; further sends are no-ops and the
// channel is closed so a ranging consumer observes the end.
func (s *Stream[T]) Close() {
	if atomic.CompareAndSwapInt32(&s.isClosed, 0, 1) {
		close(s.ch)
	}
}

func (s *Stream[T]) closed() bool {
	return atomic.LoadInt32(&s.isClosed) == 1
}
