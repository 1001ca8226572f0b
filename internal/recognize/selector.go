package recognize

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"
)

// SelectorState is the lifecycle state of the engine selection.
type SelectorState int

const (
	StateNotInitialized SelectorState = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s SelectorState) String() string {
	switch s {
	case StateNotInitialized:
		return "not-initialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Selector owns the process-wide choice between the primary and fallback
// engines. Selection is lazy and memoized: the first Acquire initializes the
// primary, falls back to the secondary when that fails, and every later
// Acquire returns the same engine - or the same recorded failure - without
// re-probing. Concurrent Acquires are serialized, so initialization runs at
// most once.
type Selector struct {
	mu        sync.Mutex
	state     SelectorState
	primary   Engine
	secondary Engine
	selected  Engine
	initErr   error
}

// NewSelector creates a selector over a primary and a secondary engine.
func NewSelector(primary, secondary Engine) *Selector {
	return &Selector{
		state:     StateNotInitialized,
		primary:   primary,
		secondary: secondary,
	}
}

// State reports the current lifecycle state.
func (s *Selector) State() SelectorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Acquire returns the selected engine, initializing it on first use.
// Cancellation before initialization starts leaves the selector untouched;
// an initialization failure of both engines is memoized and returned to all
// later acquirers.
func (s *Selector) Acquire(ctx context.Context) (Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateReady:
		return s.selected, nil
	case StateFailed:
		return nil, s.initErr
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.selectLocked()
}

// selectLocked initializes the primary, then the secondary, under the lock.
func (s *Selector) selectLocked() (Engine, error) {
	s.state = StateInitializing

	primErr := s.primary.Init()
	if primErr == nil {
		s.selected = s.primary
		s.state = StateReady
		return s.selected, nil
	}
	log.Printf("recognition engine %s unavailable: %v; trying %s",
		s.primary.Name(), primErr, s.secondary.Name())

	secErr := s.secondary.Init()
	if secErr == nil {
		s.selected = s.secondary
		s.state = StateReady
		return s.selected, nil
	}

	s.state = StateFailed
	s.initErr = fmt.Errorf("no recognition engine available: %s: %w; %s: %w",
		s.primary.Name(), primErr, s.secondary.Name(), secErr)
	return nil, s.initErr
}

// Recognize runs the selected engine with invocation-time fallback: when the
// selected primary fails mid-call, the secondary gets one attempt, and on
// success the memoized selection is re-pointed so later calls skip the
// broken primary. Failure is reported only when neither engine can answer.
func (s *Selector) Recognize(ctx context.Context, img image.Image) (*Result, error) {
	eng, err := s.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	res, err := eng.Recognize(ctx, img)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		// Cancellation is the caller's doing, not an engine failure.
		return nil, err
	}

	s.mu.Lock()
	fallback := s.secondary
	onPrimary := eng == s.primary
	s.mu.Unlock()
	if !onPrimary {
		return nil, err
	}

	log.Printf("recognition engine %s failed: %v; retrying with %s",
		eng.Name(), err, fallback.Name())
	if ierr := fallback.Init(); ierr != nil {
		return nil, fmt.Errorf("recognition failed: %s: %w; %s: %v",
			eng.Name(), err, fallback.Name(), ierr)
	}
	res, ferr := fallback.Recognize(ctx, img)
	if ferr != nil {
		return nil, fmt.Errorf("recognition failed: %s: %w; %s: %v",
			eng.Name(), err, fallback.Name(), ferr)
	}

	s.mu.Lock()
	s.selected = fallback
	s.mu.Unlock()
	return res, nil
}

// Close releases both engines.
func (s *Selector) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.primary.Close()
	if serr := s.secondary.Close(); err == nil {
		err = serr
	}
	return err
}
