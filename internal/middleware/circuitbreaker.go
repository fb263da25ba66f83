package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tanmay/mountgate/internal/app"
)

// Circuit breaker states
const (
	StateClosed   = iota // normal, requests flow through
	StateOpen            // tripped, all requests rejected
	StateHalfOpen        // testing, one request checks if the backend recovered
)

// CircuitBreaker stops forwarding to a failing mount.
// After threshold consecutive 5xx outcomes it opens and rejects requests
// until timeout passes, then lets one request through to test recovery.
type CircuitBreaker struct {
	name         string
	state        int
	failureCount int
	threshold    int
	timeout      time.Duration
	lastFailure  time.Time
	mu           sync.Mutex
	logger       *slog.Logger
}

// NewCircuitBreaker creates a circuit breaker.
// threshold = how many failures before opening (e.g., 5)
// timeout = how long to wait before trying again (e.g., 30s)
func NewCircuitBreaker(name string, threshold int, timeout time.Duration, logger *slog.Logger) *CircuitBreaker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CircuitBreaker{
		name:      name,
		state:     StateClosed,
		threshold: threshold,
		timeout:   timeout,
		logger:    logger,
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Handler returns the circuit breaker app.Handler.
func (cb *CircuitBreaker) Handler() app.Handler {
	return func(c *app.Context, next app.Next) error {
		cb.mu.Lock()
		if cb.state == StateOpen {
			if time.Since(cb.lastFailure) <= cb.timeout {
				cb.mu.Unlock()
				return app.NewError(http.StatusServiceUnavailable, "Service Unavailable")
			}
			cb.setState(StateHalfOpen)
		}
		cb.mu.Unlock()

		err := next()

		status := c.Status()
		if err != nil && !c.Written() {
			status = app.StatusOf(err)
		}

		cb.mu.Lock()
		if status >= http.StatusInternalServerError {
			cb.failureCount++
			cb.lastFailure = time.Now()
			if cb.state == StateHalfOpen || cb.failureCount >= cb.threshold {
				cb.setState(StateOpen)
			}
		} else {
			cb.failureCount = 0
			cb.setState(StateClosed)
		}
		cb.mu.Unlock()

		return err
	}
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(state int) {
	if cb.state == state {
		return
	}
	cb.logger.Warn("circuit breaker state change",
		slog.String("mount", cb.name),
		slog.Int("from", cb.state),
		slog.Int("to", state),
	)
	cb.state = state
}
