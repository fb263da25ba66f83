package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/tanmay/mountgate/internal/app"
)

// BackendStatus tracks the health of a single backend.
type BackendStatus struct {
	URL       string    `json:"url"`
	Mounts    []string  `json:"mounts"`
	Healthy   bool      `json:"healthy"`
	LastCheck time.Time `json:"last_check"`
}

// HealthChecker monitors the backends behind every mount.
// Results are cached by a background loop so the health endpoint never
// probes backends itself.
type HealthChecker struct {
	backends      map[string]*BackendStatus // keyed by URL, probed once however many mounts share it
	mu            sync.RWMutex
	startTime     time.Time
	client        *http.Client
	OnStateChange func(url string, isHealthy bool)
}

// NewHealthChecker creates a HealthChecker for backends grouped by mount prefix.
func NewHealthChecker(mounts map[string][]string) *HealthChecker {
	backends := make(map[string]*BackendStatus)
	for prefix, urls := range mounts {
		for _, url := range urls {
			status, ok := backends[url]
			if !ok {
				// assume healthy until first check
				status = &BackendStatus{URL: url, Healthy: true}
				backends[url] = status
			}
			status.Mounts = append(status.Mounts, prefix)
		}
	}
	for _, status := range backends {
		sort.Strings(status.Mounts)
	}

	return &HealthChecker{
		backends:  backends,
		startTime: time.Now(),
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// checkBackend makes an HTTP GET to the backend and returns true if it responds 200.
func (hc *HealthChecker) checkBackend(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := hc.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// RunChecks performs a one-time health check of all backends.
func (hc *HealthChecker) RunChecks(ctx context.Context) {
	hc.mu.RLock()
	urls := make([]string, 0, len(hc.backends))
	for url := range hc.backends {
		urls = append(urls, url)
	}
	hc.mu.RUnlock()

	for _, url := range urls {
		healthy := hc.checkBackend(ctx, url)

		hc.mu.Lock()
		status := hc.backends[url]
		wasHealthy := status.Healthy
		status.Healthy = healthy
		status.LastCheck = time.Now()
		hc.mu.Unlock()

		// Fire event outside the lock, but only if state changed
		if hc.OnStateChange != nil && wasHealthy != healthy {
			hc.OnStateChange(url, healthy)
		}
	}
}

// StartBackground checks backends every interval until ctx is cancelled.
func (hc *HealthChecker) StartBackground(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		hc.RunChecks(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hc.RunChecks(ctx)
			}
		}
	}()
}

// IsHealthy returns whether a specific backend is currently healthy.
// Unknown backends are reported as healthy so that an unmonitored backend
// is never taken out of rotation.
func (hc *HealthChecker) IsHealthy(url string) bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	if status, exists := hc.backends[url]; exists {
		return status.Healthy
	}
	return true
}

// healthResponse is the JSON structure returned by the health endpoint.
type healthResponse struct {
	Status string                     `json:"status"`
	Uptime string                     `json:"uptime"`
	Mounts map[string][]BackendStatus `json:"mounts"`
}

// Handler serves the cached health report.
// Returns 200 if all backends are healthy, 503 if any are down.
func (hc *HealthChecker) Handler() app.Handler {
	return func(c *app.Context, _ app.Next) error {
		hc.mu.RLock()
		resp := healthResponse{
			Status: "healthy",
			Uptime: time.Since(hc.startTime).Round(time.Second).String(),
			Mounts: make(map[string][]BackendStatus),
		}
		for _, status := range hc.backends {
			if !status.Healthy {
				resp.Status = "degraded"
			}
			for _, prefix := range status.Mounts {
				resp.Mounts[prefix] = append(resp.Mounts[prefix], *status)
			}
		}
		hc.mu.RUnlock()

		for _, list := range resp.Mounts {
			sort.Slice(list, func(i, j int) bool { return list[i].URL < list[j].URL })
		}

		code := http.StatusOK
		if resp.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, resp)
	}
}
