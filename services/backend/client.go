// Package backend is the thin client for the hosted auth/database service:
// a row-level table API, an auth endpoint, an object storage endpoint, and a
// change-subscription channel. Operations never retry; callers decide whether
// to fall back to local data, re-fetch, or surface the error.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Error is a remote request failure carrying the HTTP status so callers can
// distinguish authorization rejections from transport problems.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend request failed with status %d", e.Status)
	}
	return fmt.Sprintf("backend request failed with status %d: %s", e.Status, e.Message)
}

// IsAuthError reports whether err is a remote authorization or row-level
// security rejection.
func IsAuthError(err error) bool {
	var be *Error
	if !errors.As(err, &be) {
		return false
	}
	return be.Status == http.StatusUnauthorized || be.Status == http.StatusForbidden
}

// TokenSource supplies the bearer token for authenticated requests. An empty
// string means the anonymous key alone is used.
type TokenSource func() string

// Client issues requests against the hosted backend.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	tokenFn    TokenSource
}

// NewClient creates a backend client for the project at baseURL.
func NewClient(baseURL, anonKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetTokenSource installs the access-token supplier used for authenticated
// table and storage requests.
func (c *Client) SetTokenSource(fn TokenSource) {
	c.tokenFn = fn
}

// BaseURL returns the backend project URL the client was configured with.
func (c *Client) BaseURL() string { return c.baseURL }

// AnonKey returns the project API key.
func (c *Client) AnonKey() string { return c.anonKey }

// From starts a query against the named table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table, selects: "*"}
}

// Query accumulates filters and ordering for one table operation.
type Query struct {
	client  *Client
	table   string
	selects string
	filters []string
	order   string
	limit   int
}

// Select restricts the columns returned by Get.
func (q *Query) Select(columns string) *Query {
	q.selects = columns
	return q
}

// Eq adds a column-equality filter.
func (q *Query) Eq(column string, value any) *Query {
	q.filters = append(q.filters, column+"=eq."+formatValue(value))
	return q
}

// In adds a column membership filter for the supplied values.
func (q *Query) In(column string, values []string) *Query {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, formatValue(v))
	}
	q.filters = append(q.filters, column+"=in.("+strings.Join(quoted, ",")+")")
	return q
}

// Order sorts results by column; ascending when asc is true.
func (q *Query) Order(column string, asc bool) *Query {
	dir := "desc"
	if asc {
		dir = "asc"
	}
	q.order = column + "." + dir
	return q
}

// Limit caps the number of rows returned by Get.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Get executes the select and decodes the resulting rows into out.
func (q *Query) Get(ctx context.Context, out any) error {
	body, err := q.client.do(ctx, http.MethodGet, q.url(true), nil, "")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s rows: %w", q.table, err)
	}
	return nil
}

// Insert adds row to the table. When out is non-nil the representation
// returned by the backend is decoded into it.
func (q *Query) Insert(ctx context.Context, row any, out any) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode %s insert: %w", q.table, err)
	}
	prefer := "return=minimal"
	if out != nil {
		prefer = "return=representation"
	}
	body, err := q.client.do(ctx, http.MethodPost, q.url(false), payload, prefer)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s insert response: %w", q.table, err)
	}
	return nil
}

// Update applies patch to every row matching the query filters.
func (q *Query) Update(ctx context.Context, patch any) error {
	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode %s update: %w", q.table, err)
	}
	_, err = q.client.do(ctx, http.MethodPatch, q.url(false), payload, "return=minimal")
	return err
}

// Delete removes every row matching the query filters.
func (q *Query) Delete(ctx context.Context) error {
	_, err := q.client.do(ctx, http.MethodDelete, q.url(false), nil, "return=minimal")
	return err
}

func (q *Query) url(includeShape bool) string {
	var sb strings.Builder
	sb.WriteString(q.client.baseURL)
	sb.WriteString("/rest/v1/")
	sb.WriteString(q.table)
	params := make([]string, 0, len(q.filters)+3)
	if includeShape {
		params = append(params, "select="+url.QueryEscape(q.selects))
	}
	params = append(params, q.filters...)
	if includeShape && q.order != "" {
		params = append(params, "order="+q.order)
	}
	if includeShape && q.limit > 0 {
		params = append(params, "limit="+strconv.Itoa(q.limit))
	}
	if len(params) > 0 {
		sb.WriteString("?")
		sb.WriteString(strings.Join(params, "&"))
	}
	return sb.String()
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, prefer string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Status: resp.StatusCode, Message: extractMessage(data)}
	}
	return data, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.anonKey)
	token := ""
	if c.tokenFn != nil {
		token = c.tokenFn()
	}
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

func extractMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Error   string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}
	switch {
	case payload.Message != "":
		return payload.Message
	case payload.Msg != "":
		return payload.Msg
	default:
		return payload.Error
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return url.QueryEscape(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return url.QueryEscape(fmt.Sprintf("%v", t))
	}
}
