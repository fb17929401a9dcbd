package runner

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"echoburst/internal/stats"
)

// StatsSnapshot is sent over the channel
type StatsSnapshot struct {
	Requests uint64
	Success  uint64
	Fail     uint64
	Bytes    uint64
	Inflight int64

	BatchesDone  int
	BatchesTotal int

	// Pre-calculated percentiles for the UI (cheap copy)
	P50Ms float64
	P90Ms float64
	P99Ms float64
	MaxMs float64
}

// StatsUpdateChan is the channel type
type StatsUpdateChan chan StatsSnapshot

type Runner struct {
	Cfg     Config
	Stats   *stats.Stats
	Client  *http.Client
	Results []Result
	Log     *zap.Logger
	mu      sync.Mutex

	pool        *Pool
	inflight    int64
	batchesDone int64

	// Event Channel
	Updates StatsUpdateChan
}

func NewRunner(cfg Config, updates StatsUpdateChan, log *zap.Logger) *Runner {
	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(StatsUpdateChan, 10)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Runner{
		Cfg:     cfg,
		Stats:   stats.NewStats(),
		Client:  NewHTTPClient(cfg.DispatchTimeout),
		Log:     log,
		Updates: updates,
	}
}

// Prepare generates the record pool. Run calls it when no pool exists yet.
func (r *Runner) Prepare() error {
	if err := r.Cfg.Validate(); err != nil {
		return err
	}
	r.Log.Info("generating test data", zap.Int("pool_size", r.Cfg.PoolSize))
	r.pool = GeneratePool(r.Cfg.PoolSize, r.Cfg.GenerateDelay)
	return nil
}

// UsePool replaces the record pool.
func (r *Runner) UsePool(p *Pool) {
	r.pool = p
}

func (r *Runner) Pool() *Pool {
	return r.pool
}

// Run executes the whole batch sequence and returns the completed report.
// Misconfiguration fails before any request is sent. A cancelled ctx ends
// the run after the batch in flight; the report is still completed and
// marked aborted.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if err := r.Cfg.Validate(); err != nil {
		return nil, err
	}
	if r.pool == nil {
		if err := r.Prepare(); err != nil {
			return nil, err
		}
	}
	if r.pool.Len() == 0 {
		return nil, ErrEmptyPool
	}

	report := NewReport(r.Cfg)
	if err := report.Start(time.Now(), r.Stats); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.Results = make([]Result, 0, r.Cfg.TotalRequests)
	r.mu.Unlock()
	atomic.StoreInt64(&r.batchesDone, 0)

	tickCtx, stopTicks := context.WithCancel(ctx)
	r.StartTickLoop(tickCtx, 200*time.Millisecond)

	r.Log.Info("starting run",
		zap.String("test", report.TestName),
		zap.String("url", report.URL),
		zap.Int("requests", r.Cfg.TotalRequests),
		zap.Int("batch_size", r.Cfg.BatchSize),
	)

	d := &Dispatcher{
		URL:    r.Cfg.Endpoint(),
		Client: r.Client,
		Verify: r.Cfg.VerifyResponse,
		Stats:  r.Stats,
		Log:    r.Log,
	}
	sched := Schedule{
		Total:     r.Cfg.TotalRequests,
		BatchSize: r.Cfg.BatchSize,
		Pause:     r.Cfg.BatchPause,
		OnBatch: func(index, size int) {
			atomic.StoreInt64(&r.batchesDone, int64(index))
			r.Log.Debug("batch drained", zap.Int("batch", index), zap.Int("size", size))
		},
	}

	batches, err := RunBatches(ctx, sched, func(ctx context.Context, seq int) {
		r.executeRequest(ctx, d, seq)
	})

	stopTicks()
	report.Batches = batches
	report.Aborted = err != nil
	if cerr := report.Complete(time.Now(), r.Stats); cerr != nil {
		return nil, cerr
	}
	r.sendUpdate()

	if err != nil {
		r.Log.Warn("run aborted", zap.Int("batches", batches), zap.Error(err))
		return report, err
	}
	r.Log.Info("run completed",
		zap.Uint64("failed", report.Failed),
		zap.Duration("elapsed", report.Elapsed()),
	)
	return report, nil
}

func (r *Runner) executeRequest(ctx context.Context, d *Dispatcher, seq int) {
	atomic.AddInt64(&r.inflight, 1)
	defer atomic.AddInt64(&r.inflight, -1)

	res := d.Dispatch(ctx, r.pool.Pick())
	res.Seq = seq

	r.mu.Lock()
	r.Results = append(r.Results, res)
	r.mu.Unlock()
}

// StartTickLoop starts a goroutine that pushes stats updates
func (r *Runner) StartTickLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendUpdate()
			}
		}
	}()
}

// Snapshot reads the live counters. Values are only final after Run returns.
func (r *Runner) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Requests:     r.Stats.RequestCount(),
		Success:      r.Stats.SuccessCount(),
		Fail:         r.Stats.FailureCount(),
		Bytes:        r.Stats.ByteCount(),
		Inflight:     atomic.LoadInt64(&r.inflight),
		BatchesDone:  int(atomic.LoadInt64(&r.batchesDone)),
		BatchesTotal: r.Cfg.TotalBatches(),
		P50Ms:        r.Stats.GetP50(),
		P90Ms:        r.Stats.GetP90(),
		P99Ms:        r.Stats.GetP99(),
		MaxMs:        r.Stats.MaxMs(),
	}
}

func (r *Runner) sendUpdate() {
	// Non-blocking send
	select {
	case r.Updates <- r.Snapshot():
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

// ResultsCopy returns the per-dispatch results collected so far.
func (r *Runner) ResultsCopy() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.Results))
	copy(out, r.Results)
	return out
}
