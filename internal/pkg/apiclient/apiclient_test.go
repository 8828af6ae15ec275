package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/items", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "hello", in["name"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"42"}`))
	}))
	defer srv.Close()

	var out struct {
		ID string `json:"id"`
	}
	err := New(srv.Client(), srv.URL+"/v1/").Do(context.Background(), http.MethodPost, "/items",
		url.Values{"page": {"2"}}, map[string]string{"name": "hello"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "42", out.ID)
}

func TestDo_FailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overlapping period", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	err := New(srv.Client(), srv.URL).Do(context.Background(), http.MethodDelete, "/items/1", nil, nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	var reqErr *RequestFailedError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnprocessableEntity, reqErr.StatusCode)
	assert.Equal(t, "overlapping period", reqErr.Body)
	assert.Equal(t, http.StatusUnprocessableEntity, StatusCode(err))
}

func TestDo_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	err := New(srv.Client(), srv.URL).Do(context.Background(), http.MethodGet, "/", nil, nil, nil)

	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Zero(t, StatusCode(err))
}

func TestDo_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var out map[string]any
	err := New(srv.Client(), srv.URL).Do(context.Background(), http.MethodDelete, "/items/1", nil, nil, &out)

	require.NoError(t, err)
	assert.Nil(t, out)
}
