package driveapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func staticToken(token string) TokenProvider {
	return func(ctx context.Context) (string, error) {
		return token, nil
	}
}

func TestClientListSendsExpectedQuery(t *testing.T) {
	var capturedAuth string
	var capturedQuery map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedAuth = r.Header.Get("Authorization")
		capturedQuery = map[string]string{}
		for key := range r.URL.Query() {
			capturedQuery[key] = r.URL.Query().Get(key)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"files": []map[string]string{
				{"id": "doc_1", "name": "handy_dandy_tools_data.json", "modifiedTime": "2026-02-01T10:00:00Z"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(ClientOptions{
		BaseURL:       server.URL,
		TokenProvider: staticToken("token_abc"),
		HTTPClient:    server.Client(),
	})
	refs, err := client.List(context.Background(), "handy_dandy_tools_data.json")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if capturedAuth != "Bearer token_abc" {
		t.Fatalf("expected bearer auth, got %q", capturedAuth)
	}
	if capturedQuery["spaces"] != "appDataFolder" {
		t.Fatalf("expected appDataFolder space, got %q", capturedQuery["spaces"])
	}
	if capturedQuery["q"] != "name = 'handy_dandy_tools_data.json' and trashed = false" {
		t.Fatalf("unexpected q parameter: %q", capturedQuery["q"])
	}
	if capturedQuery["orderBy"] != "modifiedTime desc" {
		t.Fatalf("unexpected orderBy: %q", capturedQuery["orderBy"])
	}
	if len(refs) != 1 || refs[0].ID != "doc_1" {
		t.Fatalf("unexpected refs: %+v", refs)
	}
	if !refs[0].ModifiedTime.Equal(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected modified time: %v", refs[0].ModifiedTime)
	}
}

func TestClientCreateMetadataTargetsPrivateArea(t *testing.T) {
	var capturedBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&capturedBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "doc_new"})
	}))
	defer server.Close()

	client := NewClient(ClientOptions{
		BaseURL:       server.URL,
		TokenProvider: staticToken("token_abc"),
		HTTPClient:    server.Client(),
	})
	id, err := client.CreateMetadata(context.Background(), "handy_dandy_tools_data.json")
	if err != nil {
		t.Fatalf("create metadata failed: %v", err)
	}
	if id != "doc_new" {
		t.Fatalf("unexpected id: %q", id)
	}
	parents, ok := capturedBody["parents"].([]any)
	if !ok || len(parents) != 1 || parents[0] != "appDataFolder" {
		t.Fatalf("expected appDataFolder parent, got %+v", capturedBody)
	}
}

func TestClientPutContentUsesMediaUpload(t *testing.T) {
	var capturedPath string
	var capturedUploadType string
	var capturedMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedUploadType = r.URL.Query().Get("uploadType")
		capturedMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(ClientOptions{
		BaseURL:       server.URL,
		TokenProvider: staticToken("token_abc"),
		HTTPClient:    server.Client(),
	})
	if err := client.PutContent(context.Background(), "doc_1", []byte(`{"worksheets":[]}`)); err != nil {
		t.Fatalf("put content failed: %v", err)
	}
	if capturedPath != "/upload/drive/v3/files/doc_1" {
		t.Fatalf("unexpected upload path: %q", capturedPath)
	}
	if capturedUploadType != "media" {
		t.Fatalf("expected media upload, got %q", capturedUploadType)
	}
	if capturedMethod != http.MethodPatch {
		t.Fatalf("expected PATCH, got %s", capturedMethod)
	}
}

func TestClientServiceDisabledError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Access Not Configured","errors":[{"reason":"accessNotConfigured"}]}}`))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{
		BaseURL:       server.URL,
		TokenProvider: staticToken("token_abc"),
		HTTPClient:    server.Client(),
	})
	_, err := client.List(context.Background(), "handy_dandy_tools_data.json")
	if !errors.Is(err, ErrServiceDisabled) {
		t.Fatalf("expected service disabled error, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Fatalf("expected 403 api error, got %v", err)
	}
	if apiErr.StatusCode() != http.StatusForbidden || apiErr.StatusMessage() != "Access Not Configured" {
		t.Fatalf("unexpected status accessors: %d %q", apiErr.StatusCode(), apiErr.StatusMessage())
	}
}

func TestClientRetriesTransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"worksheets":[]}`))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{
		BaseURL:       server.URL,
		TokenProvider: staticToken("token_abc"),
		HTTPClient:    server.Client(),
		MaxRetries:    2,
		BaseDelay:     5 * time.Millisecond,
		MaxDelay:      20 * time.Millisecond,
	})
	body, err := client.GetContent(context.Background(), "doc_1")
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if string(body) != `{"worksheets":[]}` {
		t.Fatalf("unexpected body: %s", body)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected one retry, got %d calls", atomic.LoadInt32(&calls))
	}
}

func TestClientDoesNotRetryClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"File not found"}}`))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{
		BaseURL:       server.URL,
		TokenProvider: staticToken("token_abc"),
		HTTPClient:    server.Client(),
		MaxRetries:    3,
		BaseDelay:     time.Millisecond,
	})
	_, err := client.GetContent(context.Background(), "doc_missing")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected request failed, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected single call for 404, got %d", atomic.LoadInt32(&calls))
	}
}

func TestClientRejectsEmptyToken(t *testing.T) {
	client := NewClient(ClientOptions{
		BaseURL:       "http://unused.invalid",
		TokenProvider: staticToken("  "),
	})
	if _, err := client.GetContent(context.Background(), "doc_1"); err == nil {
		t.Fatalf("expected error for empty bearer token")
	}
}
