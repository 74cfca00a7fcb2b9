package driveapi

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

	"github.com/google/uuid"
)

var (
	// ErrServiceDisabled marks the distinguished failure where the document
	// API is not enabled for the project; the user has to turn it on in the
	// provider console before any retry can succeed.
	ErrServiceDisabled = errors.New("document service not enabled")
	ErrRequestFailed   = errors.New("document request failed")
)

const serviceDisabledReason = "accessNotConfigured"

// APIError carries the transport status and the structured error body the
// document API returns on failure.
type APIError struct {
	Status  int
	Reason  string
	Message string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("document api error: status=%d reason=%s message=%s", e.Status, e.Reason, e.Message)
	}
	return fmt.Sprintf("document api error: status=%d message=%s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	if target == ErrServiceDisabled {
		return e.Reason == serviceDisabledReason
	}
	return target == ErrRequestFailed
}

// StatusCode and StatusMessage let callers lift the transport status out
// of a wrapped chain without depending on this package's error type.
func (e *APIError) StatusCode() int { return e.Status }

func (e *APIError) StatusMessage() string { return e.Message }

// TokenProvider supplies the bearer credential for each request, so the
// client never holds a token of its own.
type TokenProvider func(ctx context.Context) (string, error)

// DocumentRef is one listing entry: the opaque remote identifier plus the
// modification time used to break duplicate-name ties.
type DocumentRef struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ModifiedTime time.Time `json:"modifiedTime"`
}

type ClientOptions struct {
	BaseURL       string
	UploadBaseURL string
	TokenProvider TokenProvider
	HTTPClient    *http.Client
	UserAgent     string
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
}

// Client talks to the per-user private document area: list by name, create
// metadata, fetch and replace full document bodies.
type Client struct {
	baseURL       string
	uploadBaseURL string
	tokenProvider TokenProvider
	httpClient    *http.Client
	userAgent     string
	maxRetries    int
	baseDelay     time.Duration
	maxDelay      time.Duration
}

func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://www.googleapis.com"
	}
	uploadBaseURL := strings.TrimRight(strings.TrimSpace(opts.UploadBaseURL), "/")
	if uploadBaseURL == "" {
		uploadBaseURL = baseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	return &Client{
		baseURL:       baseURL,
		uploadBaseURL: uploadBaseURL,
		tokenProvider: opts.TokenProvider,
		httpClient:    httpClient,
		userAgent:     strings.TrimSpace(opts.UserAgent),
		maxRetries:    maxRetries,
		baseDelay:     baseDelay,
		maxDelay:      maxDelay,
	}
}

// List returns the non-trashed documents carrying the well-known name in
// the private area, most recently modified first.
func (c *Client) List(ctx context.Context, name string) ([]DocumentRef, error) {
	query := url.Values{}
	query.Set("spaces", "appDataFolder")
	query.Set("q", fmt.Sprintf("name = '%s' and trashed = false", strings.ReplaceAll(name, "'", `\'`)))
	query.Set("orderBy", "modifiedTime desc")
	query.Set("fields", "files(id,name,modifiedTime)")

	body, err := c.do(ctx, http.MethodGet, c.baseURL+"/drive/v3/files?"+query.Encode(), "", nil)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Files []struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			ModifiedTime string `json:"modifiedTime"`
		} `json:"files"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	refs := make([]DocumentRef, 0, len(parsed.Files))
	for _, f := range parsed.Files {
		modified, _ := time.Parse(time.RFC3339, f.ModifiedTime)
		refs = append(refs, DocumentRef{ID: f.ID, Name: f.Name, ModifiedTime: modified})
	}
	return refs, nil
}

// CreateMetadata creates an empty document with the given name in the
// private area and returns its identifier. The body stays empty until the
// first content upload.
func (c *Client) CreateMetadata(ctx context.Context, name string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"name":    name,
		"parents": []string{"appDataFolder"},
	})
	if err != nil {
		return "", err
	}
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/drive/v3/files", "application/json", payload)
	if err != nil {
		return "", err
	}
	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("create returned no document id")
	}
	return parsed.ID, nil
}

func (c *Client) GetContent(ctx context.Context, documentID string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+"/drive/v3/files/"+url.PathEscape(documentID)+"?alt=media", "", nil)
}

// PutContent replaces the document body wholesale.
func (c *Client) PutContent(ctx context.Context, documentID string, data []byte) error {
	target := c.uploadBaseURL + "/upload/drive/v3/files/" + url.PathEscape(documentID) + "?uploadType=media"
	_, err := c.do(ctx, http.MethodPatch, target, "application/json", data)
	return err
}

func (c *Client) do(ctx context.Context, method, target, contentType string, payload []byte) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("document client is nil")
	}
	tokenProvider := c.tokenProvider
	if tokenProvider == nil {
		return nil, fmt.Errorf("token provider is required")
	}
	token, err := tokenProvider(ctx)
	if err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("bearer token is empty")
	}
	correlationID := "doc_" + uuid.NewString()

	for attempt := 0; ; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-Correlation-Id", correlationID)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries {
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return nil, waitErr
				}
				continue
			}
			return nil, err
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return respBody, nil
		}

		if (resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)) && attempt < c.maxRetries {
			if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		return nil, parseAPIError(resp.StatusCode, respBody)
	}
}

// parseAPIError understands both the nested {"error":{...}} shape the
// document API uses and a flat {code,message} body.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Message: strings.TrimSpace(string(body))}
	var nested struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Errors  []struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		apiErr.Message = nested.Error.Message
		if len(nested.Error.Errors) > 0 {
			apiErr.Reason = nested.Error.Errors[0].Reason
		}
		return apiErr
	}
	var flat struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &flat) == nil {
		if flat.Message != "" {
			apiErr.Message = flat.Message
		}
		if flat.Code != "" {
			apiErr.Reason = flat.Code
		}
	}
	return apiErr
}

func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfterSeconds(retryAfterHeader); retryAfter > 0 {
		if retryAfter > c.maxDelay {
			return c.maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	if delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}

func parseRetryAfterSeconds(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
