package similarity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
)

// State is the operating mode of a Breaker.
type State int

// Breaker states.
const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// BreakerConfig tunes a Breaker. Zero values take defaults.
type BreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the breaker. Default 5.
	MaxFailures int
	// ResetTimeout is how long the breaker stays open before probing. Default 30s.
	ResetTimeout time.Duration
	// HalfOpenMax successful probes close the breaker again. Default 3.
	HalfOpenMax int
	// OnStateChange, when set, is called with the new state (under the breaker lock).
	OnStateChange func(State)
	Logger        logger.Logger
}

// Breaker wraps a Capability in a three-state circuit breaker (closed, open, half-open)
// so an unavailable backend fails fast with ErrCircuitOpen. Context cancellation by the
// caller is not counted as a backend failure.
type Breaker struct {
	next         Capability
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int
	onChange     func(State)
	log          logger.Logger
	now          func() time.Time

	mu              sync.Mutex
	state           State
	consecutiveFail int
	lastFailure     time.Time
	halfOpenCalls   int
	halfOpenFails   int
}

var (
	_ Capability = (*Breaker)(nil)
	_ Preparer   = (*Breaker)(nil)
)

// NewBreaker wraps next.
func NewBreaker(next Capability, cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &Breaker{
		next:         next,
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		onChange:     cfg.OnStateChange,
		log:          cfg.Logger,
		now:          time.Now,
		state:        StateClosed,
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Similarity implements Capability.
func (b *Breaker) Similarity(ctx context.Context, x, y string) (float64, error) {
	var v float64
	err := b.execute(ctx, func() error {
		var err error
		v, err = b.next.Similarity(ctx, x, y)
		return err
	})
	return v, err
}

// Prepare forwards to the wrapped capability when it implements Preparer.
func (b *Breaker) Prepare(ctx context.Context, texts []string) error {
	p, ok := b.next.(Preparer)
	if !ok {
		return nil
	}
	return b.execute(ctx, func() error { return p.Prepare(ctx, texts) })
}

func (b *Breaker) execute(ctx context.Context, fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.resetTimeout {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.halfOpenCalls, b.halfOpenFails = 0, 0
		b.setState(ctx, StateHalfOpen)
	case StateHalfOpen:
		if b.halfOpenCalls >= b.halfOpenMax {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
	}
	inHalfOpen := b.state == StateHalfOpen
	if inHalfOpen {
		b.halfOpenCalls++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case err == nil:
		b.recordSuccess(ctx, inHalfOpen)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// caller gave up; says nothing about the backend
		if inHalfOpen {
			b.halfOpenCalls--
		}
	default:
		b.recordFailure(ctx, inHalfOpen)
	}
	return err
}

// recordFailure must be called with b.mu held.
func (b *Breaker) recordFailure(ctx context.Context, inHalfOpen bool) {
	b.lastFailure = b.now()
	if inHalfOpen {
		b.halfOpenFails++
		b.consecutiveFail = b.maxFailures
		b.setState(ctx, StateOpen)
		return
	}
	b.consecutiveFail++
	if b.consecutiveFail >= b.maxFailures && b.state != StateOpen {
		b.setState(ctx, StateOpen)
	}
}

// recordSuccess must be called with b.mu held.
func (b *Breaker) recordSuccess(ctx context.Context, inHalfOpen bool) {
	if !inHalfOpen {
		b.consecutiveFail = 0
		return
	}
	if b.state == StateHalfOpen && b.halfOpenCalls-b.halfOpenFails >= b.halfOpenMax {
		b.consecutiveFail = 0
		b.halfOpenCalls, b.halfOpenFails = 0, 0
		b.setState(ctx, StateClosed)
	}
}

func (b *Breaker) setState(ctx context.Context, s State) {
	if b.state == s {
		return
	}
	b.state = s
	b.log.Warn(ctx, "similarity breaker state changed",
		logger.String("name", b.name), logger.String("state", s.String()),
		logger.Int("consecutive_failures", b.consecutiveFail))
	if b.onChange != nil {
		b.onChange(s)
	}
}
