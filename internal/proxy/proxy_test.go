package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tanmay/mountgate/internal/app"
	"github.com/tanmay/mountgate/internal/mount"
)

type echo struct {
	Path   string `json:"path"`
	Prefix string `json:"prefix"`
	Query  string `json:"query"`
}

func newEcho(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(echo{
			Path:   r.URL.Path,
			Prefix: r.Header.Get(HeaderForwardedPrefix),
			Query:  r.URL.RawQuery,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fakeHealth map[string]bool

func (f fakeHealth) IsHealthy(url string) bool { return f[url] }

func TestLoadBalancerRoundRobin(t *testing.T) {
	lb := NewLoadBalancer([]string{"a", "b", "c"}, "", nil)
	var got []string
	for i := 0; i < 4; i++ {
		got = append(got, lb.Next())
	}
	want := []string{"a", "b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestLoadBalancerSkipsUnhealthy(t *testing.T) {
	lb := NewLoadBalancer([]string{"a", "b"}, StrategyRandom, fakeHealth{"a": false, "b": true})
	for i := 0; i < 10; i++ {
		if got := lb.Next(); got != "b" {
			t.Fatalf("Expected only healthy backend b, got %q", got)
		}
	}

	allDown := NewLoadBalancer([]string{"a"}, "", fakeHealth{})
	if got := allDown.Next(); got != "a" {
		t.Errorf("Expected fallback to all backends, got %q", got)
	}

	empty := NewLoadBalancer(nil, "", nil)
	if got := empty.Next(); got != "" {
		t.Errorf("Expected no backend, got %q", got)
	}
}

func TestProxyForwardsMountRelativePath(t *testing.T) {
	backend := newEcho(t)

	p, err := New(NewLoadBalancer([]string{backend.URL}, "", nil), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	root := app.New("root").Use(mount.Must(mount.Mount("/api/users", p.Handler())))

	rr := httptest.NewRecorder()
	root.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users/42?full=1", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var got echo
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Path != "/42" {
		t.Errorf("Expected backend path /42, got %q", got.Path)
	}
	if got.Prefix != "/api/users" {
		t.Errorf("Expected forwarded prefix /api/users, got %q", got.Prefix)
	}
	if got.Query != "full=1" {
		t.Errorf("Expected query to be kept, got %q", got.Query)
	}
	if rr.Header().Get(HeaderBackend) != backend.URL {
		t.Errorf("Expected backend header %q, got %q", backend.URL, rr.Header().Get(HeaderBackend))
	}
}

func TestProxyBackendDown(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	p, err := New(NewLoadBalancer([]string{url}, "", nil), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rr := httptest.NewRecorder()
	app.New("root").Use(p.Handler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", rr.Code)
	}
}

func TestProxyNoBackends(t *testing.T) {
	p, err := New(NewLoadBalancer(nil, "", nil), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rr := httptest.NewRecorder()
	app.New("root").Use(p.Handler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rr.Code)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New(NewLoadBalancer([]string{"localhost:9001"}, "", nil), nil); err == nil {
		t.Error("Expected error for backend URL without scheme")
	}
}
