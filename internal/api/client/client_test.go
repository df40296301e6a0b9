package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsTokenAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/alerts/a1/acknowledge", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]bool{"acknowledged": true})
	}))
	defer srv.Close()

	ok, err := NewClient(srv.URL, "tok").AcknowledgeAlert(context.Background(), "a1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClientStatsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12", r.URL.Query().Get("hours"))
		_, _ = w.Write([]byte(`{"team_id":"t1","hours":12,"total":3,"by_severity":{"high":3}}`))
	}))
	defer srv.Close()

	stats, err := NewClient(srv.URL, "").AlertStatistics(context.Background(), "t1", 12)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
}

func TestClientValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"validation failed","errors":["at least one recipient is required"],"warnings":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").ToggleChannel(context.Background(), "c1", true)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, []string{"at least one recipient is required"}, apiErr.Errors)
}
