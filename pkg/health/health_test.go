package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(context.Context) error { return nil }

func TestPreflight(t *testing.T) {
	c := NewChecker()
	c.Register("elasticsearch", PingCheck(up))
	require.NoError(t, c.Preflight(context.Background()))

	c.Register("kafka", PingCheck(func(context.Context) error { return fmt.Errorf("dial tcp: refused") }))
	c.Register("redis", PingCheck(func(context.Context) error { return fmt.Errorf("timeout") }))
	err := c.Preflight(context.Background())
	require.Error(t, err)
	assert.Equal(t, "dependencies down: kafka (dial tcp: refused), redis (timeout)", err.Error())
}

func TestRunReport(t *testing.T) {
	c := NewChecker()
	c.Register("a", PingCheck(up))
	c.Register("b", PingCheck(up))
	report := c.Run(context.Background())
	assert.Equal(t, StatusUp, report.Status)
	assert.Len(t, report.Components, 2)
	assert.NotEmpty(t, report.Components["a"].Latency)
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("postgres", PingCheck(func(context.Context) error { return fmt.Errorf("down") }))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, "down", report.Components["postgres"].Message)

	rec = httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
