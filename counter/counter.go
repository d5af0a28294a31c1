// Package counter implements the in-memory counter that backs the
// service's business endpoints.
package counter

import (
	"time"

	"go.uber.org/atomic"
)

// Status values reported in API response envelopes.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusIncremented Status = "incremented"
	StatusReset       Status = "reset"
	StatusError       Status = "error"
	StatusNotFound    Status = "not_found"
	StatusBadRequest  Status = "bad_request"
)

// Counter is a point-in-time snapshot of the counter state.
type Counter struct {
	// Value is the counter value at snapshot time.
	Value int64 `json:"value"`

	// LastUpdated is the time of the last mutating operation.
	LastUpdated time.Time `json:"last_updated"`

	// Description labels the counter.
	Description string `json:"description"`
}

// Service holds the live counter state. All methods are safe for
// concurrent use; state is process-local and lost on restart.
type Service struct {
	value       atomic.Int64
	lastUpdated atomic.Time
	description string
}

// NewService creates a counter initialized to zero.
func NewService(description string) *Service {
	s := &Service{description: description}
	s.lastUpdated.Store(time.Now())
	return s
}

// Count returns the current counter value.
func (s *Service) Count() int64 {
	return s.value.Load()
}

// Increment adds one to the counter and returns the new value.
func (s *Service) Increment() int64 {
	v := s.value.Inc()
	s.lastUpdated.Store(time.Now())
	return v
}

// Reset sets the counter back to zero and returns the reset value.
func (s *Service) Reset() int64 {
	s.value.Store(0)
	s.lastUpdated.Store(time.Now())
	return 0
}

// Set overwrites the counter with v and returns it.
func (s *Service) Set(v int64) int64 {
	s.value.Store(v)
	s.lastUpdated.Store(time.Now())
	return v
}

// Snapshot returns the full counter state.
func (s *Service) Snapshot() Counter {
	return Counter{
		Value:       s.value.Load(),
		LastUpdated: s.lastUpdated.Load(),
		Description: s.description,
	}
}
