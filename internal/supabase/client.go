// Package supabase talks to the two remote Supabase surfaces this server
// depends on: the PostgREST contacts table and the GoTrue password grant.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"supadav/internal/vcard"
)

// contactColumns mirrors the remote table; everything the encoder can use
// is requested in one query.
const contactColumns = "id,uid,display_name,first_name,last_name," +
	"email,email_work,email_home," +
	"phone,phone_work,phone_mobile,phone_home," +
	"company,job_title,department," +
	"addresses,website,notes,birthday,anniversary," +
	"updated_at,etag"

// Client is a Supabase API client. The service key is used for contact
// fetches (the server makes its own access decision, so the fetch may
// bypass row level security); the anon key only ever reaches GoTrue.
type Client struct {
	baseURL    string
	serviceKey string
	anonKey    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client for the given Supabase project URL.
func New(baseURL, serviceKey, anonKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchContacts retrieves every contact row, ordered ascending by display
// name. Any transport failure or non-success status is returned as an
// error; callers must not serve a partial address book.
func (c *Client) FetchContacts(ctx context.Context) ([]vcard.ContactRecord, error) {
	q := url.Values{}
	q.Set("select", contactColumns)
	q.Set("order", "display_name.asc")
	reqURL := c.baseURL + "/rest/v1/contacts?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build contacts request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch contacts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch contacts: unexpected status %d: %s", resp.StatusCode, body)
	}

	var records []vcard.ContactRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode contacts response: %w", err)
	}

	c.logger.Debug("fetched contacts", "count", len(records))
	return records, nil
}

// VerifyPassword checks a credential pair against GoTrue's password grant.
// A 2xx response means the pair is valid. Every other outcome, including
// transport failure, degrades to false; no error escapes this call and the
// response's access token is discarded rather than cached.
func (c *Client) VerifyPassword(ctx context.Context, email, password string) bool {
	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		c.logger.Error("marshal auth payload", "error", err)
		return false
	}

	reqURL := c.baseURL + "/auth/v1/token?grant_type=password"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		c.logger.Error("build auth request", "error", err)
		return false
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("auth request failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Info("authentication rejected", "status", resp.StatusCode)
		return false
	}
	return true
}
