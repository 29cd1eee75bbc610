package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPush_Accepted(t *testing.T) {
	router := SetupRouter(NewHandler(NewSimulator(0, 1)))

	w := do(t, router, http.MethodPost, "/api/v1/push", `{"notification_id":7,"title":"Budget Exceeded","body":"over"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp PushResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusAccepted, resp.Status)
	assert.NotEmpty(t, resp.PushID)
	assert.Contains(t, resp.ProviderID, "PUSHSIM_")
}

func TestPush_RejectedAtFullFailureRate(t *testing.T) {
	router := SetupRouter(NewHandler(NewSimulator(1, 1)))

	w := do(t, router, http.MethodPost, "/api/v1/push", `{"notification_id":7,"title":"Budget Exceeded","body":"over"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp PushResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusRejected, resp.Status)
	assert.NotEmpty(t, resp.Error)
}

func TestPush_InvalidBody(t *testing.T) {
	router := SetupRouter(NewHandler(NewSimulator(0, 1)))

	w := do(t, router, http.MethodPost, "/api/v1/push", `{"title":"missing id"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth_CountsDeliveredAlerts(t *testing.T) {
	sim := NewSimulator(0, 1)
	router := SetupRouter(NewHandler(sim))

	do(t, router, http.MethodPost, "/api/v1/push", `{"notification_id":1,"title":"t","body":"b"}`)
	do(t, router, http.MethodPost, "/api/v1/push", `{"notification_id":1,"title":"t","body":"b"}`)
	do(t, router, http.MethodPost, "/api/v1/push", `{"notification_id":2,"title":"t","body":"b"}`)

	w := do(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 2, health.Delivered)
}
