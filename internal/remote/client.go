// Package remote is the HTTP client for the classification and explanation service
// that owns the model, the explanation algorithms, and the history store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/JaimeStill/dermis/internal/methods"
)

const maxErrorBody = 64 << 10

// Client defines the calls the diagnostic core makes to the remote service.
// An empty token issues the call anonymously.
type Client interface {
	Classify(ctx context.Context, image Image, token string) (*ClassificationResult, error)
	Explain(ctx context.Context, req ExplanationRequest, token string) (*ExplanationResult, error)
	// FetchImage returns the bytes and content type of a stored image.
	// Returns ErrNotFound when the id is unknown.
	FetchImage(ctx context.Context, imageID, token string) ([]byte, string, error)
	ListHistory(ctx context.Context, token string) ([]HistorySummary, error)
	GetHistoryDetail(ctx context.Context, id, token string) (*HistoryRecord, error)
	DeleteHistory(ctx context.Context, id, token string) error
	DeleteAllHistory(ctx context.Context, token string) error
}

type client struct {
	baseURL        string
	http           *http.Client
	timeout        time.Duration
	explainTimeout time.Duration
	logger         *slog.Logger
}

// New creates a Client for the service at cfg.BaseURL.
// A nil httpClient uses http.DefaultClient.
func New(cfg *Config, httpClient *http.Client, logger *slog.Logger) Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           httpClient,
		timeout:        cfg.TimeoutDuration(),
		explainTimeout: cfg.ExplainTimeoutDuration(),
		logger:         logger.With("system", "remote"),
	}
}

func (c *client) Classify(ctx context.Context, image Image, token string) (*ClassificationResult, error) {
	if image.Empty() {
		return nil, ErrEmptyImage
	}

	body, contentType, err := multipartBody(image, nil)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.send(ctx, http.MethodPost, "/api/classify/", body, contentType, token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wire classifyResponse
	if err := decode(resp, &wire); err != nil {
		return nil, err
	}

	result := wire.result()
	if err := result.Validate(); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "image classified",
		"predicted_class", result.PredictedClass,
		"confidence", result.Confidence,
		"history_id", result.HistoryID,
	)
	return result, nil
}

func (c *client) Explain(ctx context.Context, req ExplanationRequest, token string) (*ExplanationResult, error) {
	if req.Image.Empty() {
		return nil, ErrEmptyImage
	}

	method, ok := methods.Lookup(req.Method)
	if !ok {
		return nil, methods.ErrUnknownMethod
	}

	var fields map[string]string
	if req.HistoryID != "" {
		fields = map[string]string{"history_id": req.HistoryID}
	}

	body, contentType, err := multipartBody(req.Image, fields)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx, c.explainTimeout)
	defer cancel()

	path := "/api/xai/" + url.PathEscape(method.WireID)
	resp, err := c.send(ctx, http.MethodPost, path, body, contentType, token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wire explainResponse
	if err := decode(resp, &wire); err != nil {
		return nil, err
	}

	result, err := wire.result()
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "explanation generated",
		"method", result.Method,
		"history_id", req.HistoryID,
	)
	return result, nil
}

func (c *client) FetchImage(ctx context.Context, imageID, token string) ([]byte, string, error) {
	ctx, cancel := c.withTimeout(ctx, c.timeout)
	defer cancel()

	path := "/api/xai/images/" + url.PathEscape(imageID)
	resp, err := c.send(ctx, http.MethodGet, path, nil, "", token)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &TransportError{Key: KeyNetworkError, Err: err}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}

	return data, contentType, nil
}

func (c *client) ListHistory(ctx context.Context, token string) ([]HistorySummary, error) {
	ctx, cancel := c.withTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.send(ctx, http.MethodGet, "/api/classify/histories", nil, "", token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wire []historyEntry
	if err := decode(resp, &wire); err != nil {
		return nil, err
	}

	out := make([]HistorySummary, len(wire))
	for i := range wire {
		out[i] = wire[i].summary()
	}
	return out, nil
}

func (c *client) GetHistoryDetail(ctx context.Context, id, token string) (*HistoryRecord, error) {
	ctx, cancel := c.withTimeout(ctx, c.timeout)
	defer cancel()

	path := "/api/classify/histories/" + url.PathEscape(id) + "/detail"
	resp, err := c.send(ctx, http.MethodGet, path, nil, "", token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wire historyDetail
	if err := decode(resp, &wire); err != nil {
		return nil, err
	}

	entries, err := wire.entries()
	if err != nil {
		return nil, err
	}

	record := &HistoryRecord{
		HistorySummary: wire.summary(),
		Explanations:   make([]ExplanationResult, 0, len(entries)),
	}
	for _, entry := range entries {
		res, err := entry.result()
		if err != nil {
			c.logger.WarnContext(ctx, "skipping stored explanation", "history_id", id, "error", err)
			continue
		}
		record.Explanations = append(record.Explanations, res)
	}

	return record, nil
}

func (c *client) DeleteHistory(ctx context.Context, id, token string) error {
	ctx, cancel := c.withTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.send(ctx, http.MethodDelete, "/api/classify/histories/"+url.PathEscape(id), nil, "", token)
	if err != nil {
		return err
	}
	resp.Body.Close()

	c.logger.InfoContext(ctx, "history deleted", "history_id", id)
	return nil
}

func (c *client) DeleteAllHistory(ctx context.Context, token string) error {
	ctx, cancel := c.withTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.send(ctx, http.MethodDelete, "/api/classify/histories", nil, "", token)
	if err != nil {
		return err
	}
	resp.Body.Close()

	c.logger.InfoContext(ctx, "all history deleted")
	return nil
}

func (c *client) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// send issues the request and converts transport failures and non-2xx
// responses into errors. On success the caller owns resp.Body.
func (c *client) send(
	ctx context.Context,
	method, path string,
	body io.Reader,
	contentType, token string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "remote call failed", "method", method, "path", path, "error", err)
		return nil, &TransportError{Key: KeyNetworkError, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := classifyStatus(resp.StatusCode, detailText(data))
		c.logger.WarnContext(ctx, "remote call rejected",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"error", err,
		)
		return nil, err
	}

	return resp, nil
}

func decode(resp *http.Response, v any) error {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return nil
}

func multipartBody(image Image, fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := image.Filename
	if filename == "" {
		filename = "image"
	}
	contentType := image.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(image.Data).String()
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(image.Data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
