package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcriptcheck/component"
	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/logger"
)

func newTestServer(checker func(context.Context) []component.Health) *Server {
	cfg := Config{Host: "127.0.0.1"}
	cfg.ApplyDefaults()
	cfg.Port = 0
	s := New(cfg, logger.NewNop())
	s.ApplyMiddleware()
	s.RegisterDefaultEndpoints("transcriptcheck", checker)
	return s
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(method, path, http.NoBody))
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []component.HealthStatus
		wantCode   int
		wantStatus string
	}{
		{"no components", nil, http.StatusOK, "healthy"},
		{"all healthy", []component.HealthStatus{component.StatusHealthy}, http.StatusOK, "healthy"},
		{"degraded cache", []component.HealthStatus{component.StatusHealthy, component.StatusDegraded}, http.StatusOK, "degraded"},
		{"ledger down", []component.HealthStatus{component.StatusDegraded, component.StatusUnhealthy}, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(func(context.Context) []component.Health {
				out := make([]component.Health, len(tt.statuses))
				for i, st := range tt.statuses {
					out[i] = component.Health{Name: "c", Status: st}
				}
				return out
			})
			rr := serve(s, http.MethodGet, "/health")
			if rr.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rr.Code, tt.wantCode)
			}
			var body struct {
				Status  string `json:"status"`
				Service string `json:"service"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tt.wantStatus || body.Service != "transcriptcheck" {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestProbes(t *testing.T) {
	down := func(context.Context) []component.Health {
		return []component.Health{{Name: "ledger", Status: component.StatusUnhealthy}}
	}
	s := newTestServer(down)
	if rr := serve(s, http.MethodGet, "/alive"); rr.Code != http.StatusOK {
		t.Errorf("/alive = %d", rr.Code)
	}
	if rr := serve(s, http.MethodGet, "/ready"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("/ready = %d, want 503", rr.Code)
	}
}

func TestMiddlewareStack(t *testing.T) {
	s := newTestServer(nil)
	s.GinEngine().GET("/boom", func(*gin.Context) { panic("boom") })
	s.GinEngine().GET("/rid", func(c *gin.Context) {
		c.String(http.StatusOK, logger.RequestIDFromContext(c.Request.Context()))
	})

	rr := serve(s, http.MethodGet, "/boom")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("panic route = %d, want 500", rr.Code)
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Error("request id header missing on recovered response")
	}

	rr = serve(s, http.MethodGet, "/rid")
	if rr.Body.String() == "" || rr.Body.String() != rr.Header().Get("X-Request-Id") {
		t.Errorf("context id %q does not match header %q", rr.Body.String(), rr.Header().Get("X-Request-Id"))
	}

	if rr := serve(s, http.MethodPost, "/alive"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /alive = %d, want 405", rr.Code)
	}
}

func TestStartStop(t *testing.T) {
	s := newTestServer(nil)
	comp := NewComponent(s)
	ctx := context.Background()

	if h := comp.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("Health before start = %s", h.Status)
	}
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer comp.Stop(ctx)

	resp, err := http.Get("http://" + s.Addr() + "/alive")
	if err != nil {
		t.Fatalf("GET /alive: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if h := comp.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("Health after start = %s", h.Status)
	}
	if d := comp.Describe(); d.Type != "server" {
		t.Errorf("Describe() = %+v", d)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Errorf("Stop() error: %v", err)
	}
}

func TestStartBindFailure(t *testing.T) {
	first := newTestServer(nil)
	if err := first.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer first.Stop(context.Background())

	cfg := Config{Host: "127.0.0.1"}
	cfg.ApplyDefaults()
	_, port, err := net.SplitHostPort(first.Addr())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Port, _ = strconv.Atoi(port)
	second := New(cfg, logger.NewNop())
	err = second.Start(context.Background())
	if !apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Fatalf("second Start() = %v, want SERVICE_UNAVAILABLE", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"port too high", Config{Port: 70000}, true},
		{"negative timeout", Config{WriteTimeout: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.HasCode(err, apperrors.ErrCodeConfiguration) {
				t.Errorf("code = %v", err)
			}
		})
	}
}

func TestRespondWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name string
		err  error
		code int
		want apperrors.ErrorCode
	}{
		{"app error", apperrors.NotFound("video", "x"), http.StatusNotFound, apperrors.ErrCodeNotFound},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, apperrors.ErrCodeInternal},
		{"wrapped", errors.Join(errors.New("ctx"), apperrors.RateLimited()), http.StatusTooManyRequests, apperrors.ErrCodeRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rr)
			RespondWithError(c, tt.err)
			if rr.Code != tt.code {
				t.Fatalf("code = %d, want %d", rr.Code, tt.code)
			}
			var body apperrors.ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Error.Code != tt.want {
				t.Errorf("error code = %s, want %s", body.Error.Code, tt.want)
			}
		})
	}
}
