package runner

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"echoburst/internal/stats"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrMissingEmail     = errors.New("response has no person.email")
	ErrEmailMismatch    = errors.New("response did not match input")
)

// NewHTTPClient returns the client shared by every dispatch of a run.
func NewHTTPClient(timeout time.Duration) *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	return &http.Client{
		Timeout:   timeout,
		Transport: t,
	}
}

// Dispatcher sends one record per call and classifies the response.
type Dispatcher struct {
	URL    string
	Client *http.Client
	Verify bool
	Stats  *stats.Stats
	Log    *zap.Logger
}

type echoResponse struct {
	Person *struct {
		Email *string `json:"email"`
	} `json:"person"`
}

// Dispatch posts rec to the target. Every failure is counted in d.Stats
// exactly once; nothing is retried.
func (d *Dispatcher) Dispatch(ctx context.Context, rec Record) Result {
	start := time.Now()
	res := Result{TimeStamp: start, Email: rec.Email}

	outcome := d.send(ctx, rec, &res)
	res.Outcome = outcome
	res.Latency = time.Since(start)

	d.Stats.Record(outcome, res.Bytes, res.Latency)
	if outcome.Failed() && d.Log != nil {
		d.Log.Warn("dispatch failed",
			zap.String("outcome", outcome.String()),
			zap.Int("status", res.Status),
			zap.String("email", rec.Email),
			zap.String("echoed", res.Echoed),
			zap.Error(res.Err),
		)
	}
	return res
}

func (d *Dispatcher) send(ctx context.Context, rec Record, res *Result) stats.Outcome {
	body, err := json.Marshal(rec)
	if err != nil {
		res.Err = err
		return stats.TransportFailure
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(body))
	if err != nil {
		res.Err = err
		return stats.TransportFailure
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		res.Err = err
		return stats.TransportFailure
	}
	defer resp.Body.Close()
	res.Status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n, _ := io.Copy(io.Discard, resp.Body)
		res.Bytes = n
		res.Err = fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
		return stats.TransportFailure
	}

	if !d.Verify {
		n, _ := io.Copy(io.Discard, resp.Body)
		res.Bytes = n
		return stats.Success
	}

	payload, err := io.ReadAll(resp.Body)
	res.Bytes = int64(len(payload))
	if err != nil {
		res.Err = fmt.Errorf("read response: %w", err)
		return stats.TransportFailure
	}

	email, err := echoedEmail(payload)
	if err != nil {
		res.Err = err
		return stats.ParseFailure
	}
	res.Echoed = email

	if email != rec.Email {
		res.Err = fmt.Errorf("%w: input[%s] response[%s]", ErrEmailMismatch, rec.Email, email)
		return stats.MismatchFailure
	}
	return stats.Success
}

func echoedEmail(payload []byte) (string, error) {
	var er echoResponse
	if err := json.Unmarshal(payload, &er); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if er.Person == nil || er.Person.Email == nil {
		return "", ErrMissingEmail
	}
	return *er.Person.Email, nil
}
