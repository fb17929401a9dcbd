package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	for _, tgt := range Targets {
		got, err := ParseTarget(string(tgt))
		require.NoError(t, err)
		assert.Equal(t, tgt, got)
	}

	got, err := ParseTarget(" Redis ")
	require.NoError(t, err)
	assert.Equal(t, TargetRedis, got)

	_, err = ParseTarget("mongo")
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestTarget_URL(t *testing.T) {
	assert.Equal(t, "http://localhost:5041/api/Person/pg-sql/add-person", TargetPgSql.URL("http://localhost:5041/"))
	assert.Equal(t, "MySql Test", TargetMySql.TestName())
	assert.Equal(t, "In Memory Test", TargetInMemory.TestName())
}

func TestConfig_Endpoint(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "http://localhost:5041/api/Person/in-memory/add-person", cfg.Endpoint())

	cfg.URL = "http://example.test/people"
	assert.Equal(t, "http://example.test/people", cfg.Endpoint())
}

func TestConfig_TotalBatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TotalRequests, cfg.BatchSize = 537, 100
	assert.Equal(t, 6, cfg.TotalBatches())
	cfg.TotalRequests = 500
	assert.Equal(t, 5, cfg.TotalBatches())
	cfg.TotalRequests = 0
	assert.Equal(t, 0, cfg.TotalBatches())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errIs  error
	}{
		{"defaults", func(*Config) {}, nil},
		{"unknown target", func(c *Config) { c.Target = "mongo" }, ErrUnknownTarget},
		{"empty pool", func(c *Config) { c.PoolSize = 0 }, ErrEmptyPool},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"negative total", func(c *Config) { c.TotalRequests = -1 }, ErrInvalidTotal},
		{"zero timeout", func(c *Config) { c.DispatchTimeout = 0 }, ErrInvalidConfig},
		{"negative pause", func(c *Config) { c.BatchPause = -time.Millisecond }, ErrInvalidConfig},
		{"bad scheme", func(c *Config) { c.URL = "ftp://host/x" }, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errIs == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.errIs)
		})
	}
}
