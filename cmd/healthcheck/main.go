package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

const (
	defaultAddr  = "127.0.0.1:8080"
	checkTimeout = 2 * time.Second
)

func main() {
	addr := normalizeAddr(os.Getenv("GUARDIANSYNC_LISTEN_ADDR"))
	if !healthy(context.Background(), &http.Client{Timeout: checkTimeout}, "http://"+addr) {
		os.Exit(1)
	}
}

// healthy reports whether GET {base}/api/v1/health answers 200 with status "ok".
func healthy(ctx context.Context, client *http.Client, base string) bool {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	target, err := url.JoinPath(base, "/api/v1/health")
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false
	}
	return body.Status == "ok"
}

// normalizeAddr points the health check at loopback when the daemon binds all
// interfaces; the check runs inside the same container.
func normalizeAddr(raw string) string {
	if raw == "" {
		return defaultAddr
	}

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return defaultAddr
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
