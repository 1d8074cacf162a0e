// Package sankhya implements the ERPClient port against the Sankhya gateway API.
package sankhya

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ericfisherdev/guardiansync/internal/domain/model"
	"github.com/ericfisherdev/guardiansync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ERPClient = (*Client)(nil)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 16 << 20

const statusOK = "1"

// FlagTarget names the entity, primary key and column written by MarkImported.
type FlagTarget struct {
	Entity string
	PK     string
	Field  string
}

// Client talks to the Sankhya login and gateway endpoints.
type Client struct {
	http    *http.Client
	baseURL string
	creds   model.Credentials
	flag    FlagTarget
}

// NewClient creates a Client for baseURL (e.g. "https://api.sankhya.com.br")
// whose requests time out after timeout.
func NewClient(baseURL string, creds model.Credentials, flag FlagTarget, timeout time.Duration) *Client {
	return NewClientWithHTTPClient(&http.Client{Timeout: timeout}, baseURL, creds, flag)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// Tests use it to point the client at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, creds model.Credentials, flag FlagTarget) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		flag:    flag,
	}
}

type loginResponse struct {
	BearerToken string `json:"bearerToken"`
}

// Login posts the four API credentials as headers and returns the bearer token.
func (c *Client) Login(ctx context.Context) (string, error) {
	headers := http.Header{}
	headers.Set("token", c.creds.Token)
	headers.Set("appkey", c.creds.AppKey)
	headers.Set("username", c.creds.Username)
	headers.Set("password", c.creds.Password)

	var resp loginResponse
	if err := c.do(ctx, "login", http.MethodPost, c.baseURL+"/login", headers, nil, &resp); err != nil {
		return "", err
	}

	if resp.BearerToken == "" {
		return "", ErrNoToken
	}

	return resp.BearerToken, nil
}

// Logout ends the session identified by token.
func (c *Client) Logout(ctx context.Context, token string) error {
	headers := c.authHeaders(token)
	headers.Set("appkey", c.creds.AppKey)

	var resp serviceResponse
	if err := c.do(ctx, "logout", http.MethodGet, c.serviceURL("MobileLoginSP.logout"), headers, nil, &resp); err != nil {
		return err
	}

	return resp.check("logout")
}

func (c *Client) authHeaders(token string) http.Header {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)
	return headers
}

func (c *Client) serviceURL(serviceName string) string {
	q := url.Values{}
	q.Set("serviceName", serviceName)
	q.Set("outputType", "json")
	return c.baseURL + "/gateway/v1/mge/service.sbr?" + q.Encode()
}

// do sends one request and decodes a 2xx JSON body into out. Non-2xx
// responses become *APIError.
func (c *Client) do(ctx context.Context, op, method, target string, headers http.Header, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Details: formatDetails(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}

	return nil
}
