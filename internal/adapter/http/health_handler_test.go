package http

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readinessBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func setupHealthRouter(h *HealthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.Liveness)
	r.GET("/health/ready", h.Readiness)
	return r
}

func getReadiness(t *testing.T, h *HealthHandler) (int, readinessBody) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	setupHealthRouter(h).ServeHTTP(w, req)

	var body readinessBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealthLiveness(t *testing.T) {
	r := setupHealthRouter(NewHealthHandler(fakePinger{err: errors.New("down")}, nil))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alive")
}

func TestReadiness_DatabaseOnly(t *testing.T) {
	code, body := getReadiness(t, NewHealthHandler(fakePinger{}, nil))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, map[string]string{"database": "healthy"}, body.Checks)
}

func TestReadiness_DatabaseDown(t *testing.T) {
	code, body := getReadiness(t, NewHealthHandler(fakePinger{err: errors.New("down")}, []string{"127.0.0.1:1"}))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", body.Status)
	assert.Equal(t, map[string]string{"database": "unhealthy"}, body.Checks)
}

func TestReadiness_BrokerReachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	code, body := getReadiness(t, NewHealthHandler(fakePinger{}, []string{ln.Addr().String()}))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body.Checks["kafka"])
}

func TestReadiness_BrokerUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	h := NewHealthHandler(fakePinger{}, []string{addr})
	h.dialTimeout = 200 * time.Millisecond
	code, body := getReadiness(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "unhealthy", body.Checks["kafka"])
}

func TestReadiness_ThroughRouter(t *testing.T) {
	r := setupTestRouter(newFakeTemplateService())

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ready")
}
