package tabstash

import (
	"context"
	"errors"
	"testing"
)

type fakeDocumentStore struct {
	resolveID  string
	resolveErr error
	content    []byte
	getErr     error
	putErr     error
	puts       [][]byte
}

func (d *fakeDocumentStore) Resolve(ctx context.Context) (string, error) {
	if d.resolveErr != nil {
		return "", d.resolveErr
	}
	return d.resolveID, nil
}

func (d *fakeDocumentStore) GetContent(ctx context.Context, documentID string) ([]byte, error) {
	if d.getErr != nil {
		return nil, d.getErr
	}
	return d.content, nil
}

func (d *fakeDocumentStore) PutContent(ctx context.Context, documentID string, data []byte) error {
	if d.putErr != nil {
		return d.putErr
	}
	d.puts = append(d.puts, append([]byte(nil), data...))
	return nil
}

func TestRemoteStoreLoadEmptyBody(t *testing.T) {
	store := NewRemoteStore(&fakeDocumentStore{resolveID: "doc_1", content: []byte("  ")}, nil)
	col, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if col.Worksheets == nil || len(col.Worksheets) != 0 {
		t.Fatalf("expected empty collection for blank body, got %+v", col)
	}
}

func TestRemoteStoreLoadDecodesBody(t *testing.T) {
	body := []byte(`{"worksheets":[{"id":"5","name":"remote","tabs":[]}]}`)
	store := NewRemoteStore(&fakeDocumentStore{resolveID: "doc_1", content: body}, nil)
	col, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(col.Worksheets) != 1 || col.Worksheets[0].ID != "5" {
		t.Fatalf("unexpected collection: %+v", col)
	}
}

func TestRemoteStoreLoadUnreadableBodyDegradesToEmpty(t *testing.T) {
	store := NewRemoteStore(&fakeDocumentStore{resolveID: "doc_1", content: []byte("<html>")}, nil)
	col, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("expected unreadable body to degrade, got %v", err)
	}
	if len(col.Worksheets) != 0 {
		t.Fatalf("expected empty collection, got %+v", col)
	}
}

func TestRemoteStoreLoadResolveFailure(t *testing.T) {
	store := NewRemoteStore(&fakeDocumentStore{resolveErr: errors.New("list failed")}, nil)
	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrStoreFailure) {
		t.Fatalf("expected store failure, got %v", err)
	}
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || storeErr.Op != "resolve" {
		t.Fatalf("expected resolve store error, got %v", err)
	}
}

func TestRemoteStoreSaveWritesWholeDocument(t *testing.T) {
	docs := &fakeDocumentStore{resolveID: "doc_1"}
	store := NewRemoteStore(docs, nil)
	col := Collection{Worksheets: []Worksheet{{ID: "1", Name: "w", Tabs: []Tab{}}}}

	if err := store.Save(context.Background(), col); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if len(docs.puts) != 1 {
		t.Fatalf("expected one put, got %d", len(docs.puts))
	}
	if string(docs.puts[0]) != `{"worksheets":[{"id":"1","name":"w","created":"","tabs":[]}]}` {
		t.Fatalf("unexpected document body: %s", docs.puts[0])
	}
}

func TestRemoteStoreSaveWriteFailure(t *testing.T) {
	store := NewRemoteStore(&fakeDocumentStore{resolveID: "doc_1", putErr: errors.New("denied")}, nil)
	err := store.Save(context.Background(), NewCollection())
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || storeErr.Op != "write" {
		t.Fatalf("expected write store error, got %v", err)
	}
	if storeErr.Status != 0 || storeErr.Message != "" {
		t.Fatalf("expected no transport status from plain error, got %+v", storeErr)
	}
}

type transportError struct {
	status  int
	message string
}

func (e *transportError) Error() string {
	return e.message
}

func (e *transportError) StatusCode() int { return e.status }

func (e *transportError) StatusMessage() string { return e.message }

func TestRemoteStoreSaveCarriesTransportStatus(t *testing.T) {
	cause := &transportError{status: 403, message: "insufficient permissions"}
	store := NewRemoteStore(&fakeDocumentStore{resolveID: "doc_1", putErr: cause}, nil)

	err := store.Save(context.Background(), NewCollection())
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
	if storeErr.Status != 403 || storeErr.Message != "insufficient permissions" {
		t.Fatalf("expected transport status on store error, got %+v", storeErr)
	}
	if want := "remote write failed: status=403 message=insufficient permissions"; err.Error() != want {
		t.Fatalf("unexpected error text: %q", err.Error())
	}
	if !errors.Is(err, ErrStoreFailure) {
		t.Fatalf("expected store failure, got %v", err)
	}
}

func TestRemoteStoreLoadCarriesTransportStatus(t *testing.T) {
	cause := &transportError{status: 404, message: "document gone"}
	store := NewRemoteStore(&fakeDocumentStore{resolveID: "doc_1", getErr: cause}, nil)

	_, err := store.Load(context.Background())
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || storeErr.Op != "read" {
		t.Fatalf("expected read store error, got %v", err)
	}
	if storeErr.Status != 404 || storeErr.Message != "document gone" {
		t.Fatalf("expected transport status on store error, got %+v", storeErr)
	}
}
