package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGetDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	var out map[string]string
	require.NoError(t, c.get("/api/v1/health", &out))
	assert.Equal(t, "ok", out["status"])
}

func TestClientSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"kind": "UnknownModel", "message": "model \"x\" is not loaded"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.get("/api/v1/models/loaded", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UnknownModel")
}

func TestClientPostSendsBody(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.post("/api/v1/load", map[string]string{"source": "hf:org/model"}, nil))
	assert.Equal(t, "hf:org/model", received["source"])
}
