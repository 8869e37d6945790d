package httpapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/handler"
	"github.com/hearthrun/hearthrun/internal/hardware"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
	"github.com/hearthrun/hearthrun/internal/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	h := handler.New(artifact.NewResolver(), hardware.Inventory{}, engine.NewRegistry(map[recipe.Engine]engine.Adapter{}), 4)
	return New(h, slog.Default())
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealthReportsNoModelLoaded(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, "GET", "/api/v1/health", nil)
	assert.Equal(t, 200, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["model_loaded"])
}

func TestGetParamsReturnsDefaults(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, "GET", "/api/v1/params", nil)
	assert.Equal(t, 200, rec.Code)

	want, err := json.Marshal(s.handler.GetParams())
	require.NoError(t, err)
	assert.JSONEq(t, string(want), rec.Body.String())
}

func TestChatCompletionsRejectsEmptyMessages(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, "POST", "/api/v1/chat/completions", map[string]any{"model": "x", "messages": []any{}})
	assert.Equal(t, 400, rec.Code)
}

func TestChatCompletionsNoModelLoaded(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, "POST", "/api/v1/chat/completions", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})
	assert.Equal(t, 503, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, hearthrunerr.NoModelLoaded, body.Kind)
}

func TestChatCompletionsUnknownModel(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, "POST", "/api/v1/chat/completions", map[string]any{
		"model":    "nonexistent",
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})
	assert.Equal(t, 404, rec.Code)
}

func TestHaltWithNothingGenerating(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, "POST", "/api/v1/halt", map[string]any{})
	assert.Equal(t, 200, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["was_generating"])
}

func TestUnloadUnknownModel(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, "POST", "/api/v1/unload", map[string]string{"model_id": "nope"})
	assert.Equal(t, 404, rec.Code)
}

func TestMetricsEndpointServesPrometheusExposition(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, "GET", "/metrics", nil)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "hearthrun_")
}
