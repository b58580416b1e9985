package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIClientDecodesErrorBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/boom":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"Server error","detail":"disk full"}`))
		case "/slow-down":
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Too many login attempts, try again later"}`))
		default:
			http.Error(w, "404 page not found", http.StatusNotFound)
		}
	}))
	defer srv.Close()
	client := newAPIClient(srv.URL+"/", "")
	ctx := context.Background()

	err := client.request(ctx, http.MethodGet, "/boom", nil, nil)
	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusInternalServerError, apiErr.Status)
	require.Equal(t, "disk full", apiErr.Detail)
	require.EqualError(t, err, "api error (500): Server error: disk full")

	err = client.request(ctx, http.MethodPost, "/slow-down", map[string]string{"username": "a"}, nil)
	require.EqualError(t, err, "api error (429): Too many login attempts, try again later (retry after 30s)")

	err = client.request(ctx, http.MethodGet, "/missing", nil, nil)
	require.EqualError(t, err, "api error (404): 404 page not found")
}
