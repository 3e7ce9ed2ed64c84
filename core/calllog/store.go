// Package calllog persists an audit trail of every call made to an external
// provider (severity classification, routing). Each record keeps the request,
// the response or error and the observed latency.
package calllog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilianp07/erdispatch/core/logger"
)

// Record captures one provider call.
type Record struct {
	Timestamp time.Time       `json:"timestamp"`
	Provider  string          `json:"provider"`
	Request   json.RawMessage `json:"request,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`
	Error     string          `json:"error,omitempty"`
	LatencyMS int64           `json:"latency_ms"`
}

// Query defines filters for retrieving records.
type Query struct {
	Start    time.Time
	End      time.Time
	Provider string
	// FailedOnly keeps only records carrying an error.
	FailedOnly bool
}

// Match reports whether r passes the filters of q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Provider != "" && r.Provider != q.Provider {
		return false
	}
	if q.FailedOnly && r.Error == "" {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

// NewRecord builds a record for a call that started at start. Request and
// response values are JSON encoded; encoding failures are kept as the error.
func NewRecord(provider string, start time.Time, req, resp any, callErr error) Record {
	rec := Record{
		Timestamp: start,
		Provider:  provider,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if req != nil {
		if b, err := json.Marshal(req); err == nil {
			rec.Request = b
		} else {
			rec.Error = fmt.Sprintf("encode request: %v", err)
		}
	}
	if resp != nil {
		if b, err := json.Marshal(resp); err == nil {
			rec.Response = b
		}
	}
	if callErr != nil {
		rec.Error = callErr.Error()
	}
	return rec
}

// Write appends rec to store. Failures are logged and otherwise ignored so
// that auditing never breaks a dispatch.
func Write(ctx context.Context, store Store, log logger.Logger, rec Record) {
	if store == nil {
		return
	}
	if err := store.Append(ctx, rec); err != nil {
		logger.OrNop(log).Warnf("calllog append for %s failed: %v", rec.Provider, err)
	}
}
