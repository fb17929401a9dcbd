package runner

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"echoburst/internal/stats"
)

var ErrInvalidTransition = errors.New("invalid report transition")

type State int

const (
	NotStarted State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// LatencySummary is in milliseconds.
type LatencySummary struct {
	MeanMs float64 `json:"mean_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P90Ms  float64 `json:"p90_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
	MaxMs  float64 `json:"max_ms"`
}

// Report tracks one run against one target. It is written only by the run
// driver: once by Start and once by Complete.
type Report struct {
	ID       string `json:"id"`
	TestName string `json:"test_name"`
	Target   Target `json:"target"`
	URL      string `json:"url"`
	Config   Config `json:"config"`

	State     State     `json:"state"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Batches  int    `json:"batches"`
	Requests uint64 `json:"requests"`
	Success  uint64 `json:"success"`
	Failed   uint64 `json:"failed"`

	TransportFailures uint64  `json:"transport_failures"`
	ParseFailures     uint64  `json:"parse_failures"`
	MismatchFailures  uint64  `json:"mismatch_failures"`
	ErrorRate         float64 `json:"error_rate"` // percent of requests

	Latency LatencySummary `json:"latency"`
	Aborted bool           `json:"aborted,omitempty"`
}

func NewReport(cfg Config) *Report {
	return &Report{
		ID:       uuid.New().String(),
		TestName: cfg.Target.TestName(),
		Target:   cfg.Target,
		URL:      cfg.Endpoint(),
		Config:   cfg,
		State:    NotStarted,
	}
}

// Start moves NotStarted to Running and resets s.
func (r *Report) Start(now time.Time, s *stats.Stats) error {
	if r.State != NotStarted {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, r.State)
	}
	s.Reset()
	r.StartTime = now
	r.State = Running
	return nil
}

// Complete moves Running to Completed. Call it only after every batch has
// drained; it snapshots the final counters from s.
func (r *Report) Complete(now time.Time, s *stats.Stats) error {
	if r.State != Running {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, r.State)
	}
	if now.Before(r.StartTime) {
		now = r.StartTime
	}
	r.EndTime = now
	r.State = Completed

	r.Requests = s.RequestCount()
	r.Success = s.SuccessCount()
	r.Failed = s.FailureCount()
	r.TransportFailures = s.OutcomeCount(stats.TransportFailure)
	r.ParseFailures = s.OutcomeCount(stats.ParseFailure)
	r.MismatchFailures = s.OutcomeCount(stats.MismatchFailure)
	r.ErrorRate = s.ErrorRate()
	r.Latency = LatencySummary{
		MeanMs: s.MeanMs(),
		P50Ms:  s.GetP50(),
		P90Ms:  s.GetP90(),
		P95Ms:  s.GetP95(),
		P99Ms:  s.GetP99(),
		MaxMs:  s.MaxMs(),
	}
	return nil
}

// Elapsed is zero until the report is completed.
func (r *Report) Elapsed() time.Duration {
	if r.State != Completed {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// ElapsedSeconds truncates Elapsed to whole seconds.
func (r *Report) ElapsedSeconds() int {
	return int(r.Elapsed() / time.Second)
}

// RPS is the achieved request rate over the whole run.
func (r *Report) RPS() float64 {
	secs := r.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.Requests) / secs
}
