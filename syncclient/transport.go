package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"venue-backend/models"
)

// ErrNotPopulated is returned by Fetch when the server has never stored a
// document.
var ErrNotPopulated = errors.New("document_not_populated")

// FetchResult is one answer of the read endpoint. NotModified reports a
// 304; Document is nil in that case.
type FetchResult struct {
	Document    *models.Document
	Revision    int64
	UpdatedAt   time.Time
	ETag        string
	NotModified bool
}

// WriteResult mirrors the server's reconciliation result.
type WriteResult struct {
	Revision        int64             `json:"revision"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	ReassignedCodes map[string]string `json:"reassignedCodes"`
}

type Fetcher interface {
	Fetch(ctx context.Context, etag string) (*FetchResult, error)
}

type Pusher interface {
	Push(ctx context.Context, doc models.Document) (*WriteResult, error)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// HTTPTransport talks to the state API. It never retries on its own; the
// next local mutation is the retry.
type HTTPTransport struct {
	client *resty.Client
	logger *zap.Logger
}

func NewHTTPTransport(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &HTTPTransport{client: client, logger: logger}
}

func (t *HTTPTransport) Fetch(ctx context.Context, etag string) (*FetchResult, error) {
	req := t.client.R().SetContext(ctx)
	if etag != "" {
		req.SetHeader("If-None-Match", etag)
	}
	resp, err := req.Get("/api/state")
	if err != nil {
		return nil, fmt.Errorf("fetch state: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusNotModified:
		return &FetchResult{NotModified: true, ETag: resp.Header().Get("ETag")}, nil
	case http.StatusNotFound:
		// only the API's own answer means an empty store, not a wrong path
		var env envelope
		if json.Unmarshal(resp.Body(), &env) == nil && env.Error == ErrNotPopulated.Error() {
			return nil, ErrNotPopulated
		}
		return nil, fmt.Errorf("fetch state: %s", describeFailure(resp))
	case http.StatusOK:
	default:
		return nil, fmt.Errorf("fetch state: %s", describeFailure(resp))
	}

	var body struct {
		Document  models.Document `json:"document"`
		Revision  int64           `json:"revision"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	body.Document.Normalize()
	t.logger.Debug("state fetched", zap.Int64("revision", body.Revision))
	return &FetchResult{
		Document:  &body.Document,
		Revision:  body.Revision,
		UpdatedAt: body.UpdatedAt,
		ETag:      resp.Header().Get("ETag"),
	}, nil
}

func (t *HTTPTransport) Push(ctx context.Context, doc models.Document) (*WriteResult, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"document": doc}).
		Put("/api/state")
	if err != nil {
		return nil, fmt.Errorf("push state: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("push state: %s", describeFailure(resp))
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("decode write result: %w", err)
	}
	var result WriteResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return nil, fmt.Errorf("decode write result: %w", err)
	}
	return &result, nil
}

// ReserveCode asks the server for the next number of scope.
func (t *HTTPTransport) ReserveCode(ctx context.Context, scope string) (string, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetPathParam("scope", scope).
		Post("/api/sequences/{scope}/reserve")
	if err != nil {
		return "", fmt.Errorf("reserve code: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("reserve code: %s", describeFailure(resp))
	}
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return "", fmt.Errorf("decode reserve result: %w", err)
	}
	var data struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("decode reserve result: %w", err)
	}
	return data.Code, nil
}

func describeFailure(resp *resty.Response) string {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err == nil && env.Error != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode(), env.Error)
	}
	return fmt.Sprintf("status %d", resp.StatusCode())
}
