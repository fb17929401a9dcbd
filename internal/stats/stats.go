package stats

import (
	"sync/atomic"
	"time"
)

// Stats aggregates dispatch outcomes for one run. Counters are updated
// atomically from every in-flight dispatch; totals are only final once the
// caller has joined all of them.
type Stats struct {
	Requests uint64
	Success  uint64
	Fail     uint64
	Bytes    uint64

	byOutcome [numOutcomes]uint64

	// Request latency (microseconds)
	Latency *SafeHistogram
}

func NewStats() *Stats {
	return &Stats{
		Latency: NewSafeHistogram(),
	}
}

// Reset zeroes every counter and the latency histogram.
func (s *Stats) Reset() {
	atomic.StoreUint64(&s.Requests, 0)
	atomic.StoreUint64(&s.Success, 0)
	atomic.StoreUint64(&s.Fail, 0)
	atomic.StoreUint64(&s.Bytes, 0)
	for i := range s.byOutcome {
		atomic.StoreUint64(&s.byOutcome[i], 0)
	}
	s.Latency.Reset()
}

// Record accounts for one completed dispatch.
func (s *Stats) Record(o Outcome, bytes int64, latency time.Duration) {
	atomic.AddUint64(&s.Requests, 1)
	if o.Failed() {
		s.RecordFailure(o)
	} else {
		atomic.AddUint64(&s.Success, 1)
		atomic.AddUint64(&s.byOutcome[Success], 1)
	}
	if bytes > 0 {
		atomic.AddUint64(&s.Bytes, uint64(bytes))
	}
	s.Latency.RecordDuration(latency)
}

// RecordFailure increments the failure counter and the per-kind counter.
func (s *Stats) RecordFailure(o Outcome) {
	if o < 0 || o >= numOutcomes || o == Success {
		o = TransportFailure
	}
	atomic.AddUint64(&s.Fail, 1)
	atomic.AddUint64(&s.byOutcome[o], 1)
}

func (s *Stats) FailureCount() uint64 {
	return atomic.LoadUint64(&s.Fail)
}

func (s *Stats) RequestCount() uint64 {
	return atomic.LoadUint64(&s.Requests)
}

func (s *Stats) SuccessCount() uint64 {
	return atomic.LoadUint64(&s.Success)
}

func (s *Stats) ByteCount() uint64 {
	return atomic.LoadUint64(&s.Bytes)
}

// OutcomeCount returns how many dispatches ended with o.
func (s *Stats) OutcomeCount(o Outcome) uint64 {
	if o < 0 || o >= numOutcomes {
		return 0
	}
	return atomic.LoadUint64(&s.byOutcome[o])
}

func (s *Stats) ErrorRate() float64 {
	reqs := atomic.LoadUint64(&s.Requests)
	if reqs == 0 {
		return 0
	}
	fails := atomic.LoadUint64(&s.Fail)
	return (float64(fails) / float64(reqs)) * 100
}

func (s *Stats) GetP50() float64 {
	return float64(s.Latency.ValueAtQuantile(50)) / 1000.0 // ms
}

func (s *Stats) GetP90() float64 {
	return float64(s.Latency.ValueAtQuantile(90)) / 1000.0
}

func (s *Stats) GetP95() float64 {
	return float64(s.Latency.ValueAtQuantile(95)) / 1000.0
}

func (s *Stats) GetP99() float64 {
	return float64(s.Latency.ValueAtQuantile(99)) / 1000.0
}

// MeanMs returns the average latency in milliseconds
func (s *Stats) MeanMs() float64 {
	return s.Latency.Mean() / 1000.0
}

func (s *Stats) MaxMs() float64 {
	return float64(s.Latency.Max()) / 1000.0
}
