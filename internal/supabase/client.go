// Package supabase is a small REST client for a hosted Supabase project: PostgREST table
// queries and GoTrue password sign-in.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoRows is returned by SelectOne when the filter matched nothing.
var ErrNoRows = errors.New("supabase: no rows")

// ErrUnauthorized is returned by the auth endpoints for a missing or expired session.
var ErrUnauthorized = errors.New("supabase: unauthorized")

// Client talks to a hosted Supabase project: PostgREST tables under /rest/v1 and
// GoTrue auth under /auth/v1.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New creates a client with a bounded request timeout.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Filter is an equality predicate on one column.
type Filter struct {
	Column string
	Value  string
}

// Eq builds a Filter.
func Eq(column, value string) Filter { return Filter{Column: column, Value: value} }

// Query describes a table read.
type Query struct {
	Table   string
	Select  string
	Filters []Filter
	Order   string
	Limit   int
}

func (q Query) values() url.Values {
	v := url.Values{}
	sel := q.Select
	if sel == "" {
		sel = "*"
	}
	v.Set("select", sel)
	for _, f := range q.Filters {
		v.Add(f.Column, "eq."+f.Value)
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.Limit > 0 {
		v.Set("limit", fmt.Sprintf("%d", q.Limit))
	}
	return v
}

// Select decodes all rows matching q into dest, which must be a pointer to a slice.
func (c *Client) Select(ctx context.Context, token string, q Query, dest any) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.BaseURL, url.PathEscape(q.Table), q.values().Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.authorize(req, token)

	body, err := c.do(req, http.StatusOK)
	if err != nil {
		return fmt.Errorf("select %s: %w", q.Table, err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("select %s: decode response: %w", q.Table, err)
	}
	return nil
}

// SelectOne decodes exactly one row into dest. Zero rows yield ErrNoRows; more than one is an error.
func (c *Client) SelectOne(ctx context.Context, token string, q Query, dest any) error {
	q.Limit = 2
	var rows []json.RawMessage
	if err := c.Select(ctx, token, q, &rows); err != nil {
		return err
	}
	switch len(rows) {
	case 0:
		return ErrNoRows
	case 1:
		if err := json.Unmarshal(rows[0], dest); err != nil {
			return fmt.Errorf("select %s: decode row: %w", q.Table, err)
		}
		return nil
	default:
		return fmt.Errorf("select %s: expected a single row, got %d", q.Table, len(rows))
	}
}

// Insert writes rows (a slice) to table as one request.
func (c *Client) Insert(ctx context.Context, token, table string, rows any) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("insert %s: encode rows: %w", table, err)
	}
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.BaseURL, url.PathEscape(table))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.authorize(req, token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	if _, err := c.do(req, http.StatusCreated, http.StatusOK, http.StatusNoContent); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// Session is the token pair returned by a password sign-in.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	payload, _ := json.Marshal(map[string]string{"email": email, "password": password})
	endpoint := c.BaseURL + "/auth/v1/token?grant_type=password"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.authorize(req, "")
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	var out Session
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("sign in: decode response: %w", err)
	}
	return &out, nil
}

// User returns the account behind token, or ErrUnauthorized.
func (c *Client) User(ctx context.Context, token string) (id, email string, err error) {
	if token == "" {
		return "", "", ErrUnauthorized
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", "", err
	}
	c.authorize(req, token)

	body, err := c.do(req, http.StatusOK)
	if err != nil {
		return "", "", fmt.Errorf("get user: %w", err)
	}
	var out struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", "", fmt.Errorf("get user: decode response: %w", err)
	}
	return out.ID, out.Email, nil
}

// SignOut revokes the session behind token.
func (c *Client) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return ErrUnauthorized
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/auth/v1/logout", nil)
	if err != nil {
		return err
	}
	c.authorize(req, token)
	if _, err := c.do(req, http.StatusNoContent, http.StatusOK); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request, token string) {
	if c.APIKey != "" {
		req.Header.Set("apikey", c.APIKey)
	}
	if token == "" {
		token = c.APIKey
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) do(req *http.Request, okStatus ...int) ([]byte, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	for _, s := range okStatus {
		if resp.StatusCode == s {
			return body, nil
		}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, apiMessage(body, resp.Status))
	}
	return nil, fmt.Errorf("backend error %d: %s", resp.StatusCode, apiMessage(body, resp.Status))
}

// apiMessage extracts the human message from a PostgREST or GoTrue error body.
func apiMessage(body []byte, fallback string) string {
	var e struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(body, &e) == nil {
		for _, m := range []string{e.Message, e.Msg, e.ErrorDescription} {
			if m != "" {
				return m
			}
		}
	}
	if len(body) > 0 {
		return string(body)
	}
	return fallback
}
