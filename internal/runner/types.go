package runner

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"echoburst/internal/stats"
)

const (
	DefaultBaseURL         = "http://localhost:5041"
	DefaultPoolSize        = 5000
	DefaultTotalRequests   = 10000
	DefaultBatchSize       = 100
	DefaultDispatchTimeout = 30 * time.Second
	DefaultBatchPause      = 5 * time.Millisecond
)

var (
	ErrUnknownTarget = errors.New("unknown target")
	ErrEmptyPool     = errors.New("record pool is empty")
	ErrInvalidConfig = errors.New("invalid config")
)

// Target is a backend variant of the person API.
type Target string

const (
	TargetInMemory Target = "in-memory"
	TargetPgSql    Target = "pg-sql"
	TargetMySql    Target = "my-sql"
	TargetRedis    Target = "redis"
)

// Targets lists every known variant in display order.
var Targets = []Target{TargetInMemory, TargetPgSql, TargetMySql, TargetRedis}

func ParseTarget(s string) (Target, error) {
	t := Target(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Targets {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTarget, s)
}

// TestName is the label used in reports.
func (t Target) TestName() string {
	switch t {
	case TargetInMemory:
		return "In Memory Test"
	case TargetPgSql:
		return "PgSql Test"
	case TargetMySql:
		return "MySql Test"
	case TargetRedis:
		return "Redis Test"
	default:
		return string(t) + " Test"
	}
}

// Path is the add-person route of the variant.
func (t Target) Path() string {
	return "/api/Person/" + string(t) + "/add-person"
}

// URL joins base with the variant route.
func (t Target) URL(base string) string {
	return strings.TrimRight(base, "/") + t.Path()
}

type Config struct {
	Target Target `json:"target"`
	// URL overrides the address derived from Target when set.
	URL string `json:"url"`

	PoolSize      int `json:"pool_size"`
	TotalRequests int `json:"total_requests"`
	BatchSize     int `json:"batch_size"`

	DispatchTimeout time.Duration `json:"dispatch_timeout"`
	BatchPause      time.Duration `json:"batch_pause"`
	GenerateDelay   time.Duration `json:"generate_delay"`

	// VerifyResponse checks person.email in every response body. When
	// false any 2xx counts as success.
	VerifyResponse bool `json:"verify_response"`

	OutPrefix string `json:"out_prefix,omitempty"`
}

// DefaultConfig mirrors the constants the tool has always shipped with.
func DefaultConfig() Config {
	return Config{
		Target:          TargetInMemory,
		PoolSize:        DefaultPoolSize,
		TotalRequests:   DefaultTotalRequests,
		BatchSize:       DefaultBatchSize,
		DispatchTimeout: DefaultDispatchTimeout,
		BatchPause:      DefaultBatchPause,
		VerifyResponse:  true,
	}
}

// Endpoint is the URL requests are sent to.
func (c Config) Endpoint() string {
	if c.URL != "" {
		return c.URL
	}
	return c.Target.URL(DefaultBaseURL)
}

// TotalBatches is ceil(TotalRequests / BatchSize).
func (c Config) TotalBatches() int {
	if c.BatchSize <= 0 || c.TotalRequests <= 0 {
		return 0
	}
	return (c.TotalRequests + c.BatchSize - 1) / c.BatchSize
}

// Validate rejects configurations that must fail before any network activity.
func (c Config) Validate() error {
	if _, err := ParseTarget(string(c.Target)); err != nil {
		return err
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("%w: %d", ErrEmptyPool, c.PoolSize)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBatchSize, c.BatchSize)
	}
	if c.TotalRequests < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTotal, c.TotalRequests)
	}
	if c.DispatchTimeout <= 0 {
		return fmt.Errorf("%w: dispatch timeout must be positive", ErrInvalidConfig)
	}
	if c.BatchPause < 0 || c.GenerateDelay < 0 {
		return fmt.Errorf("%w: pauses cannot be negative", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.Endpoint(), "http://") && !strings.HasPrefix(c.Endpoint(), "https://") {
		return fmt.Errorf("%w: url %q is not http(s)", ErrInvalidConfig, c.Endpoint())
	}
	return nil
}

// Result is the record of one dispatch.
type Result struct {
	Seq       int
	TimeStamp time.Time
	Latency   time.Duration
	Status    int
	Outcome   stats.Outcome
	Bytes     int64
	Email     string // submitted
	Echoed    string // returned by the target
	Err       error
}
