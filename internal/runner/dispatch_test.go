package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echoburst/internal/stats"
)

func newTestDispatcher(url string, verify bool) *Dispatcher {
	return &Dispatcher{
		URL:    url,
		Client: NewHTTPClient(5 * time.Second),
		Verify: verify,
		Stats:  stats.NewStats(),
	}
}

func TestDispatch_Outcomes(t *testing.T) {
	rec := Record{FirstName: "Ada", LastName: "Lovelace", Email: "b2c1b9c4-2e0e-4a7e-9c59-2b2f0a0c7d11"}

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()

	tests := []struct {
		name    string
		url     string
		verify  bool
		outcome stats.Outcome
		errIs   error
	}{
		{"echo", echoServer(t, nil, nil).URL, true, stats.Success, nil},
		{"mismatch", echoServer(t, nil, func(r *Record) { r.Email = "someone-else" }).URL, true, stats.MismatchFailure, ErrEmailMismatch},
		{"server error", statusServer(t, nil, http.StatusInternalServerError).URL, true, stats.TransportFailure, ErrUnexpectedStatus},
		{"too many requests", statusServer(t, nil, http.StatusTooManyRequests).URL, true, stats.TransportFailure, ErrUnexpectedStatus},
		{"connection refused", closed.URL, true, stats.TransportFailure, nil},
		{"not json", rawServer(t, "Fast response").URL, true, stats.ParseFailure, nil},
		{"no person", rawServer(t, `{"email":"x"}`).URL, true, stats.ParseFailure, ErrMissingEmail},
		{"null person", rawServer(t, `{"person":null}`).URL, true, stats.ParseFailure, ErrMissingEmail},
		{"email not a string", rawServer(t, `{"person":{"email":42}}`).URL, true, stats.ParseFailure, nil},
		{"verification off", rawServer(t, "Fast response").URL, false, stats.Success, nil},
		{"verification off still checks status", statusServer(t, nil, http.StatusBadGateway).URL, false, stats.TransportFailure, ErrUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDispatcher(tt.url, tt.verify)
			res := d.Dispatch(context.Background(), rec)

			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, rec.Email, res.Email)
			if tt.errIs != nil {
				assert.ErrorIs(t, res.Err, tt.errIs)
			}
			if tt.outcome.Failed() {
				assert.Error(t, res.Err)
				assert.Equal(t, uint64(1), d.Stats.FailureCount())
				assert.Equal(t, uint64(1), d.Stats.OutcomeCount(tt.outcome))
			} else {
				assert.NoError(t, res.Err)
				assert.Zero(t, d.Stats.FailureCount())
			}
			assert.Equal(t, uint64(1), d.Stats.RequestCount())
		})
	}
}

func TestDispatch_SendsJSONBody(t *testing.T) {
	rec := NewRecord()
	d := newTestDispatcher(echoServer(t, nil, nil).URL, true)

	res := d.Dispatch(context.Background(), rec)
	require.Equal(t, stats.Success, res.Outcome)
	assert.Equal(t, rec.Email, res.Echoed)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Positive(t, res.Bytes)
	assert.Positive(t, res.Latency)
}

func TestDispatch_Timeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer slow.Close()

	d := newTestDispatcher(slow.URL, true)
	d.Client = NewHTTPClient(50 * time.Millisecond)

	res := d.Dispatch(context.Background(), NewRecord())
	assert.Equal(t, stats.TransportFailure, res.Outcome)
	assert.Error(t, res.Err)
}
