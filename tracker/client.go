// Package tracker talks to the claim tracking endpoint: a JSON web app that
// accepts one claim per POST and returns every stored claim on GET.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"claimdesk/apperr"
	"claimdesk/claim"
	"claimdesk/logging"
)

// DefaultTimeout bounds each tracker request.
const DefaultTimeout = 8 * time.Second

// maxBody caps how much of a list response is read.
const maxBody = 16 << 20

// ErrUnexpectedStatus reports a non-200 reply from the endpoint.
var ErrUnexpectedStatus = errors.New("tracker: unexpected status")

// Client submits and lists claims. Redirects are followed, so an Apps
// Script deployment that answers POST with a 302 is accepted once the
// final GET returns 200.
type Client struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a client for url. A non-positive timeout uses DefaultTimeout.
func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:    url,
		http:   &http.Client{Timeout: timeout},
		logger: logging.OrNop(logger),
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// Submit posts rec as JSON. Anything other than a final 200 is a
// transport error.
func (c *Client) Submit(ctx context.Context, rec claim.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("tracker: encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("tracker: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Transport("tracker: submit", err)
	}
	defer drain(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return apperr.Transport("tracker: submit", fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode))
	}
	c.logger.Debug("tracker record stored", zap.String("mobile", rec.MobileNo))
	return nil
}

// List fetches every stored claim. An empty body or empty array yields an
// empty slice; a body that is not a JSON array of objects is malformed.
func (c *Client) List(ctx context.Context) ([]claim.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("tracker: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Transport("tracker: list", err)
	}
	defer drain(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Transport("tracker: list", fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, apperr.Transport("tracker: read list", err)
	}
	return Decode(raw)
}

// Decode parses a list response. Keys are trimmed, lowercased and have
// spaces replaced by underscores before mapping; non-string values are
// stringified. A "timestamp" key stands in for a missing submitted_date.
func Decode(raw []byte) ([]claim.Record, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []claim.Record{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []map[string]any
	if err := dec.Decode(&items); err != nil {
		return nil, apperr.Malformed("tracker: decode list", err)
	}

	out := make([]claim.Record, 0, len(items))
	for _, item := range items {
		fields := make(map[string]string, len(item))
		for k, v := range item {
			fields[NormalizeKey(k)] = stringify(v)
		}
		out = append(out, fromFields(fields))
	}
	return out, nil
}

// NormalizeKey maps a column label such as " Mobile No" to "mobile_no".
func NormalizeKey(k string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k)), " ", "_")
}

func fromFields(f map[string]string) claim.Record {
	submitted := f["submitted_date"]
	if strings.TrimSpace(submitted) == "" {
		submitted = f["timestamp"]
	}
	return claim.Record{
		ID:               f["id"],
		CustomerName:     f["customer_name"],
		MobileNo:         f["mobile_no"],
		Address:          f["address"],
		Products:         f["products"],
		IssueDescription: f["issue_description"],
		Status:           claim.Status(f["status"]),
		SubmittedDate:    submitted,
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
