package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddr(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "", want: "127.0.0.1:8080"},
		{raw: "garbage", want: "127.0.0.1:8080"},
		{raw: ":9090", want: "127.0.0.1:9090"},
		{raw: "0.0.0.0:9090", want: "127.0.0.1:9090"},
		{raw: "[::]:9090", want: "127.0.0.1:9090"},
		{raw: "10.1.2.3:8080", want: "10.1.2.3:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeAddr(tt.raw))
		})
	}
}

func TestHealthy(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		healthy bool
	}{
		{name: "ok", status: http.StatusOK, body: `{"status":"ok","running":false}`, healthy: true},
		{name: "not ok body", status: http.StatusOK, body: `{"status":"degraded"}`},
		{name: "bad json", status: http.StatusOK, body: `<html>`},
		{name: "server error", status: http.StatusInternalServerError, body: `{"status":"ok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v1/health" {
					http.NotFound(w, r)
					return
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			assert.Equal(t, tt.healthy, healthy(context.Background(), srv.Client(), srv.URL))
		})
	}
}

func TestHealthy_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	assert.False(t, healthy(context.Background(), http.DefaultClient, base))
}
