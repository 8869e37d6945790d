package artifact

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFilesReturnsAuthRequiredOn401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	h := newHFLister()
	h.baseURL = srv.URL + "/"

	_, err := h.ListFiles("org/model", "")
	require.Error(t, err)
	herr := hearthrunerr.AsError(err)
	require.NotNil(t, herr)
	assert.Equal(t, hearthrunerr.AuthRequired, herr.Kind)
	assert.Equal(t, http.StatusUnauthorized, hearthrunerr.HTTPStatus(herr.Kind))
}

func TestListFilesReturnsAuthRequiredOn403(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	h := newHFLister()
	h.baseURL = srv.URL + "/"

	_, err := h.ListFiles("org/model", "secret-token")
	require.Error(t, err)
	herr := hearthrunerr.AsError(err)
	require.NotNil(t, herr)
	assert.Equal(t, hearthrunerr.AuthRequired, herr.Kind)
}

func TestListFilesParsesSiblingsOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"org/model","siblings":[{"rfilename":"model.gguf"},{"rfilename":"README.md"}]}`))
	}))
	defer srv.Close()

	h := newHFLister()
	h.baseURL = srv.URL + "/"

	files, err := h.ListFiles("org/model", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"model.gguf", "README.md"}, files)
}
