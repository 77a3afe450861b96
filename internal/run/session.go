package run

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/klanavo/klanavo/internal/model"
)

// Outcome is how a run ended.
type Outcome struct {
	State   model.RunState `json:"state" yaml:"state"`
	Count   int            `json:"count" yaml:"count"`
	Message string         `json:"message" yaml:"message"`
}

// Session is one started run.
type Session struct {
	ID     uuid.UUID
	Epoch  uint64
	Params Params

	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}

	mu      sync.Mutex
	outcome Outcome
}

func newSession(epoch uint64, p Params, cancel context.CancelFunc) *Session {
	return &Session{
		ID:     uuid.New(),
		Epoch:  epoch,
		Params: p,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Done is closed when the session's worker has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Cancelled reports whether the session was cancelled.
func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}

// Outcome returns the final outcome. It is only meaningful after Done.
func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

func (s *Session) setOutcome(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcome = o
}

func (s *Session) stop() {
	s.cancelled.Store(true)
	s.cancel()
}
