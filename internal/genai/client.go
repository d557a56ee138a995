// Package genai is a thin HTTP client for the external generation provider.
//
// It covers the two API surfaces the backend depends on:
//
//   - content generation (plain text and JSON-schema-constrained), grounded
//     either on an explicit document cache handle or on inline document
//     bytes when no cache is available;
//   - the document cache lifecycle (create / get / extend TTL / delete).
//
// Transient failures (HTTP 429, 5xx, timeouts, connection errors) are
// retried once with exponential backoff starting at the configured base
// delay; everything else surfaces immediately. Every request carries a
// bounded per-attempt timeout.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DocumentRef tells a generation call how to reach the source document.
// Exactly one of CacheName or InlineData is set: CacheName references a
// provider-side cached document, InlineData re-submits the bytes directly
// (the fallback path when the cache is unavailable).
type DocumentRef struct {
	CacheName  string
	InlineData []byte
	MimeType   string
}

// CachedContent is the provider's view of one cached document.
type CachedContent struct {
	Name       string
	Model      string
	ExpireTime time.Time
	TokenCount int64
}

// APIError is a non-2xx provider response.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("provider api error: status=%d message=%q", e.Status, e.Message)
}

// Transient reports whether the error is worth one retry.
func (e *APIError) Transient() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// ErrEmptyResponse is returned when the provider answers 200 with no
// usable candidate.
var ErrEmptyResponse = errors.New("provider returned no candidates")

// IsTransient reports whether err is a retryable provider failure: a
// transient APIError, a timeout, or a connection-level error.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Config carries the provider settings read from the environment.
type Config struct {
	APIKey string
	// BaseURL is the API root, e.g. "https://generativelanguage.googleapis.com/v1beta".
	BaseURL string
	// Model is the generation model id, e.g. "gemini-2.0-flash".
	Model string
	// Timeout bounds each HTTP attempt.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// RetryBase is the first backoff delay; it doubles per retry.
	RetryBase time.Duration
}

// Client is the provider API consumed by the generation pipeline.
type Client interface {
	// GenerateText produces markdown/plain text for a prompt.
	GenerateText(ctx context.Context, system, user string, doc *DocumentRef) (string, error)
	// GenerateJSON produces a schema-constrained JSON document.
	GenerateJSON(ctx context.Context, system, user string, doc *DocumentRef, schema *Schema) (json.RawMessage, error)

	// CreateCachedContent uploads document bytes into the provider cache.
	CreateCachedContent(ctx context.Context, data []byte, mimeType string, ttl time.Duration) (*CachedContent, error)
	// GetCachedContent looks up an existing handle; ErrNotFound maps to a
	// 404 APIError.
	GetCachedContent(ctx context.Context, name string) (*CachedContent, error)
	// UpdateCachedContentTTL extends the validity window of a handle.
	UpdateCachedContentTTL(ctx context.Context, name string, ttl time.Duration) (*CachedContent, error)
	// DeleteCachedContent removes a handle; deleting an unknown handle is
	// not an error.
	DeleteCachedContent(ctx context.Context, name string) error
}

type client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds the HTTP-backed provider client.
func NewClient(cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("genai: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	return &client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// ---- wire types ----

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type wireContent struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema `json:"responseSchema,omitempty"`
	Temperature      float64 `json:"temperature"`
}

type generateRequest struct {
	Contents          []wireContent     `json:"contents"`
	SystemInstruction *wireContent      `json:"systemInstruction,omitempty"`
	CachedContent     string            `json:"cachedContent,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content wireContent `json:"content"`
	} `json:"candidates"`
}

type cachedContentRequest struct {
	Model    string        `json:"model"`
	Contents []wireContent `json:"contents,omitempty"`
	TTL      string        `json:"ttl,omitempty"`
}

type cachedContentResponse struct {
	Name          string    `json:"name"`
	Model         string    `json:"model"`
	ExpireTime    time.Time `json:"expireTime"`
	UsageMetadata struct {
		TotalTokenCount int64 `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// ---- generation ----

func (c *client) GenerateText(ctx context.Context, system, user string, doc *DocumentRef) (string, error) {
	req := c.buildGenerateRequest(system, user, doc, nil)
	var resp generateResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/models/%s:generateContent", c.cfg.Model), req, &resp); err != nil {
		return "", err
	}
	text, err := firstText(&resp)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *client) GenerateJSON(ctx context.Context, system, user string, doc *DocumentRef, schema *Schema) (json.RawMessage, error) {
	req := c.buildGenerateRequest(system, user, doc, schema)
	var resp generateResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/models/%s:generateContent", c.cfg.Model), req, &resp); err != nil {
		return nil, err
	}
	text, err := firstText(&resp)
	if err != nil {
		return nil, err
	}
	raw := json.RawMessage(strings.TrimSpace(text))
	if !json.Valid(raw) {
		return nil, fmt.Errorf("provider returned invalid JSON: %w", ErrEmptyResponse)
	}
	return raw, nil
}

func (c *client) buildGenerateRequest(system, user string, doc *DocumentRef, schema *Schema) *generateRequest {
	userParts := []part{}
	if doc != nil && doc.CacheName == "" && len(doc.InlineData) > 0 {
		userParts = append(userParts, part{InlineData: &inlineData{
			MimeType: doc.MimeType,
			Data:     base64.StdEncoding.EncodeToString(doc.InlineData),
		}})
	}
	userParts = append(userParts, part{Text: user})

	req := &generateRequest{
		Contents: []wireContent{{Role: "user", Parts: userParts}},
	}
	if system != "" {
		req.SystemInstruction = &wireContent{Parts: []part{{Text: system}}}
	}
	if doc != nil && doc.CacheName != "" {
		req.CachedContent = doc.CacheName
	}
	gc := &generationConfig{Temperature: 0.3}
	if schema != nil {
		gc.ResponseMIMEType = "application/json"
		gc.ResponseSchema = schema
	}
	req.GenerationConfig = gc
	return req
}

func firstText(resp *generateResponse) (string, error) {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if strings.TrimSpace(p.Text) != "" {
				return p.Text, nil
			}
		}
	}
	return "", ErrEmptyResponse
}

// ---- cache lifecycle ----

func (c *client) CreateCachedContent(ctx context.Context, data []byte, mimeType string, ttl time.Duration) (*CachedContent, error) {
	req := &cachedContentRequest{
		Model: "models/" + c.cfg.Model,
		Contents: []wireContent{{
			Role: "user",
			Parts: []part{{InlineData: &inlineData{
				MimeType: mimeType,
				Data:     base64.StdEncoding.EncodeToString(data),
			}}},
		}},
		TTL: ttlString(ttl),
	}
	var resp cachedContentResponse
	if err := c.do(ctx, http.MethodPost, "/cachedContents", req, &resp); err != nil {
		return nil, err
	}
	return resp.toCachedContent(), nil
}

func (c *client) GetCachedContent(ctx context.Context, name string) (*CachedContent, error) {
	var resp cachedContentResponse
	if err := c.do(ctx, http.MethodGet, "/"+name, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toCachedContent(), nil
}

func (c *client) UpdateCachedContentTTL(ctx context.Context, name string, ttl time.Duration) (*CachedContent, error) {
	req := &cachedContentRequest{TTL: ttlString(ttl)}
	var resp cachedContentResponse
	if err := c.do(ctx, http.MethodPatch, "/"+name, req, &resp); err != nil {
		return nil, err
	}
	return resp.toCachedContent(), nil
}

func (c *client) DeleteCachedContent(ctx context.Context, name string) error {
	err := c.do(ctx, http.MethodDelete, "/"+name, nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		// Already gone; invalidation stays idempotent.
		return nil
	}
	return err
}

func (r *cachedContentResponse) toCachedContent() *CachedContent {
	return &CachedContent{
		Name:       r.Name,
		Model:      strings.TrimPrefix(r.Model, "models/"),
		ExpireTime: r.ExpireTime,
		TokenCount: r.UsageMetadata.TotalTokenCount,
	}
}

func ttlString(ttl time.Duration) string {
	return fmt.Sprintf("%ds", int64(ttl.Seconds()))
}

// ---- transport ----

// do executes one API call with the retry policy applied. body and out may
// be nil.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.cfg.RetryBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		lastErr = c.once(ctx, method, path, payload, out)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// errorMessage pulls the human-readable message out of a provider error
// body, falling back to the raw payload (truncated).
func errorMessage(raw []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	s := string(raw)
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
