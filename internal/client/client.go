// Package client talks to the ledger JSON API and keeps the local view
// used by presentation surfaces such as ledgerctl.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Field   string
	Reason  string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		if e.Field != "" {
			return fmt.Sprintf("%s: %s: %s", e.Message, e.Field, e.Reason)
		}
		return fmt.Sprintf("%s: %s", e.Message, e.Reason)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// Is lets callers match server answers against the core sentinels.
func (e *APIError) Is(target error) bool {
	return target == core.ErrNotFound && e.Status == http.StatusNotFound
}

// IsValidation reports whether err is a 400 answer.
func IsValidation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest
}

// Client is a typed client for every ledger endpoint.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the server at baseURL, e.g.
// "http://localhost:8081" or "http://host/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Export is a downloaded CSV document.
type Export struct {
	Filename string
	Body     []byte
}

type inputBody struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details *struct {
		Field  string `json:"field"`
		Reason string `json:"reason"`
	} `json:"details"`
}

func (c *Client) List(ctx context.Context, q core.Query) ([]core.Transaction, error) {
	var out []core.Transaction
	if err := c.do(ctx, http.MethodGet, "/transactions", q.Values(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id int64) (core.Transaction, error) {
	var out core.Transaction
	err := c.do(ctx, http.MethodGet, txPath(id), nil, nil, &out)
	return out, err
}

func (c *Client) Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	var out core.Transaction
	err := c.do(ctx, http.MethodPost, "/transactions", nil, toBody(in), &out)
	return out, err
}

func (c *Client) Update(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error) {
	var out core.Transaction
	err := c.do(ctx, http.MethodPut, txPath(id), nil, toBody(in), &out)
	return out, err
}

// Delete removes id and returns the record as it was.
func (c *Client) Delete(ctx context.Context, id int64) (core.Transaction, error) {
	var out core.Transaction
	err := c.do(ctx, http.MethodDelete, txPath(id), nil, nil, &out)
	return out, err
}

func (c *Client) MonthlySummary(ctx context.Context, year, month int) (core.MonthSummary, error) {
	var out core.MonthSummary
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/summary/%d/%d", year, month), nil, nil, &out)
	return out, err
}

func (c *Client) CategoryBreakdown(ctx context.Context, year, month int) ([]core.CategoryAmount, error) {
	var out []core.CategoryAmount
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/summary/%d/%d/categories", year, month), nil, nil, &out)
	return out, err
}

func (c *Client) MonthlyTrends(ctx context.Context) ([]core.TrendPoint, error) {
	var out []core.TrendPoint
	err := c.do(ctx, http.MethodGet, "/monthly-trends", nil, nil, &out)
	return out, err
}

// Export downloads the CSV for q. year and month are both zero for an
// unscoped export.
func (c *Client) Export(ctx context.Context, q core.Query, year, month int) (*Export, error) {
	params := q.Values()
	if year != 0 || month != 0 {
		params.Set("year", strconv.Itoa(year))
		params.Set("month", strconv.Itoa(month))
	}

	resp, err := c.send(ctx, http.MethodGet, "/transactions/export-csv", params, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	filename := "export.csv"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return &Export{Filename: filename, Body: body}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&env); err == nil {
		if env.Error != "" {
			apiErr.Message = env.Error
		}
		if env.Details != nil {
			apiErr.Field = env.Details.Field
			apiErr.Reason = env.Details.Reason
		}
	}
	return apiErr
}

func toBody(in core.TransactionInput) inputBody {
	return inputBody{
		Type:        in.Type,
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
	}
}

func txPath(id int64) string {
	return "/transactions/" + strconv.FormatInt(id, 10)
}
