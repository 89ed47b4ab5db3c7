// Package rest talks to the hosted table service over HTTPS using its
// PostgREST query dialect.
package rest

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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tutorado/internal/codec"
	"tutorado/internal/store"
	"tutorado/pkg/logger"
)

const (
	restPath       = "/rest/v1/"
	defaultTimeout = 15 * time.Second
)

// APIError is a non-2xx answer from the store.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store responded %d", e.Status)
	}
	return fmt.Sprintf("store responded %d: %s", e.Status, e.Message)
}

type Config struct {
	BaseURL string
	Key     string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	key     string
	http    *http.Client
	log     *zap.Logger
}

var _ store.Backend = (*Client)(nil)

func New(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		key:     cfg.Key,
		http:    &http.Client{Timeout: timeout},
		log:     logger.OrNop(log),
	}
}

func (c *Client) Select(ctx context.Context, table string, columns []string, order store.Order) ([]codec.Row, error) {
	q := url.Values{}
	q.Set("select", selectList(columns))
	if order.Column != "" {
		dir := "asc"
		if order.Descending {
			dir = "desc"
		}
		q.Set("order", order.Column+"."+dir)
	}

	var rows []codec.Row
	if err := c.do(ctx, http.MethodGet, table, q, nil, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) Get(ctx context.Context, table string, columns []string, id string) (codec.Row, error) {
	q := url.Values{}
	q.Set("select", selectList(columns))
	q.Set(store.KeyColumn, "eq."+id)
	q.Set("limit", "1")

	var rows []codec.Row
	if err := c.do(ctx, http.MethodGet, table, q, nil, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0], nil
}

func (c *Client) Upsert(ctx context.Context, table string, row codec.Row) (codec.Row, error) {
	q := url.Values{}
	q.Set("on_conflict", store.KeyColumn)
	headers := map[string]string{"Prefer": "resolution=merge-duplicates,return=representation"}

	var rows []codec.Row
	if err := c.do(ctx, http.MethodPost, table, q, headers, []codec.Row{row}, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("upsert into %s returned no row", table)
	}
	return rows[0], nil
}

func (c *Client) Delete(ctx context.Context, table string, id string) error {
	q := url.Values{}
	q.Set(store.KeyColumn, "eq."+id)
	return c.do(ctx, http.MethodDelete, table, q, map[string]string{"Prefer": "return=minimal"}, nil, nil)
}

func (c *Client) Insert(ctx context.Context, table string, row codec.Row) error {
	return c.do(ctx, http.MethodPost, table, nil, map[string]string{"Prefer": "return=minimal"}, row, nil)
}

func (c *Client) do(ctx context.Context, method, table string, q url.Values, headers map[string]string, body any, out any) error {
	if c.baseURL == "" || c.key == "" {
		return store.ErrNotConfigured
	}

	target := c.baseURL + restPath + url.PathEscape(table)
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", table, err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	c.log.Debug("store request",
		zap.String(logger.FieldOperation, method),
		zap.String(logger.FieldCollection, table),
		zap.String(logger.FieldRequestID, requestID),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", table, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if len(raw) > 0 && json.Unmarshal(raw, apiErr) != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

func selectList(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	return strings.Join(columns, ",")
}
