package proxy

import (
	"math/rand"
	"sync/atomic"
)

// Load balancing strategies.
const (
	StrategyRoundRobin = "round-robin"
	StrategyRandom     = "random"
)

// HealthSource reports whether a backend should receive traffic.
// *health.HealthChecker satisfies it.
type HealthSource interface {
	IsHealthy(url string) bool
}

// LoadBalancer distributes requests across the backends of one mount and
// skips backends its HealthSource reports as down.
type LoadBalancer struct {
	backends []string
	strategy string
	counter  uint64 // atomic counter for round-robin
	health   HealthSource
}

// NewLoadBalancer creates a load balancer for the given backends.
// An empty strategy means round-robin; health may be nil.
func NewLoadBalancer(backends []string, strategy string, health HealthSource) *LoadBalancer {
	if strategy == "" {
		strategy = StrategyRoundRobin
	}
	return &LoadBalancer{
		backends: backends,
		strategy: strategy,
		health:   health,
	}
}

// Next returns the backend for the next request, or "" if there are none.
func (lb *LoadBalancer) Next() string {
	healthy := lb.healthyBackends()
	if len(healthy) == 0 {
		return ""
	}

	switch lb.strategy {
	case StrategyRandom:
		return healthy[rand.Intn(len(healthy))]
	default:
		idx := atomic.AddUint64(&lb.counter, 1) - 1
		return healthy[idx%uint64(len(healthy))]
	}
}

// Backends returns the configured backends.
func (lb *LoadBalancer) Backends() []string {
	return lb.backends
}

// healthyBackends returns only backends that are currently healthy.
func (lb *LoadBalancer) healthyBackends() []string {
	if lb.health == nil {
		return lb.backends
	}

	var healthy []string
	for _, backend := range lb.backends {
		if lb.health.IsHealthy(backend) {
			healthy = append(healthy, backend)
		}
	}

	// If all backends are unhealthy, return all of them as fallback
	// and let the circuit breaker deal with the failures.
	if len(healthy) == 0 {
		return lb.backends
	}
	return healthy
}
