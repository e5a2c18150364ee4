package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fieldops/fieldsync/internal/common"
	"github.com/fieldops/fieldsync/internal/models"
	"github.com/sethvargo/go-retry"
)

// HTTPClient implements Client against the backend REST API.
// It is safe for concurrent use.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the given base URL (protocol and host,
// no trailing slash).
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// classify maps an HTTP outcome onto the engine's failure taxonomy: transport
// errors and 408/429/5xx are retryable, every other non-2xx status is
// terminal and requires manual resolution.
func classify(resp *http.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrRetryable, err)
	}
	if resp.StatusCode < 400 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	msg := fmt.Sprintf("status=%d, body=%s", resp.StatusCode, string(body))

	switch {
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", common.ErrRetryable, msg)
	default:
		return fmt.Errorf("%w: %s", common.ErrTerminal, msg)
	}
}

func (c *HTTPClient) doRequest(ctx context.Context, method, path string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.httpClient.Do(req)
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/ping", nil, nil)
	if outcome := classify(resp, err); outcome != nil {
		return outcome
	}
	resp.Body.Close()
	return nil
}

// FetchCollection retries transient failures with a bounded exponential
// backoff: reference-data reads are idempotent, so a couple of quick retries
// here beats failing an entire refresh over one dropped packet. The write
// path never does this; its retries ride the next orchestrator run.
func (c *HTTPClient) FetchCollection(ctx context.Context, collection string, scope models.Scope) ([]models.CachedEntity, error) {
	path := "/api/" + collection
	if !scope.GlobalScope {
		q := url.Values{"organizationId": {scope.OrganizationID}}
		path += "?" + q.Encode()
	}

	var items []models.CachedEntity

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
		if outcome := classify(resp, err); outcome != nil {
			if errors.Is(outcome, common.ErrRetryable) {
				return retry.RetryableError(outcome)
			}
			return outcome
		}
		defer resp.Body.Close()

		items = items[:0]
		if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
			return fmt.Errorf("failed to decode %s: %w", collection, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// createResponse is the server's reply to a create call.
type createResponse struct {
	ID string `json:"id"`
}

func (c *HTTPClient) CreateRecord(ctx context.Context, collection string, body json.RawMessage, idempotencyKey string) (string, error) {
	headers := map[string]string{common.IdempotencyKeyHeader: idempotencyKey}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/"+collection, bytes.NewReader(body), headers)
	if outcome := classify(resp, err); outcome != nil {
		return "", outcome
	}
	defer resp.Body.Close()

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode create response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: server returned no id", common.ErrTerminal)
	}
	return created.ID, nil
}

func (c *HTTPClient) Execute(ctx context.Context, op models.QueueOperation, idempotencyKey string) error {
	path := "/api/" + op.Collection
	if op.EntityID != "" {
		path += "/" + op.EntityID
	}
	method := op.Method
	if method == "" {
		method = http.MethodPost
	}

	headers := map[string]string{common.IdempotencyKeyHeader: idempotencyKey}

	resp, err := c.doRequest(ctx, method, path, bytes.NewReader(op.Body), headers)
	if outcome := classify(resp, err); outcome != nil {
		return outcome
	}
	resp.Body.Close()
	return nil
}

func (c *HTTPClient) UploadMedia(ctx context.Context, serverRecordID string, m *models.PendingMedia) error {
	path := fmt.Sprintf("/api/records/%s/media", serverRecordID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(m.Data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", m.ContentType)
	req.Header.Set("X-File-Name", m.FileName)
	req.Header.Set(common.IdempotencyKeyHeader, fmt.Sprintf("%s-media-%d", m.RecordTempID, m.ID))

	resp, err := c.httpClient.Do(req)
	if outcome := classify(resp, err); outcome != nil {
		return outcome
	}
	resp.Body.Close()
	return nil
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
