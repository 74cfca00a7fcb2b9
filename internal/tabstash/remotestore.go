package tabstash

import (
	"bytes"
	"context"

	"pkt.systems/pslog"
)

// DocumentStore is the remote single-file document surface the remote
// backend runs on: resolve the well-known document once per session, then
// read and replace its body wholesale.
type DocumentStore interface {
	Resolve(ctx context.Context) (string, error)
	GetContent(ctx context.Context, documentID string) ([]byte, error)
	PutContent(ctx context.Context, documentID string, data []byte) error
}

// RemoteStore persists the collection to the remote document. Reads
// tolerate an empty body and bodies already shaped like a collection;
// writes replace the entire document and report StoreError on failure.
type RemoteStore struct {
	docs   DocumentStore
	logger pslog.Logger
}

func NewRemoteStore(docs DocumentStore, logger pslog.Logger) *RemoteStore {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &RemoteStore{docs: docs, logger: logger}
}

func (s *RemoteStore) Kind() string {
	return "remote"
}

func (s *RemoteStore) Load(ctx context.Context) (Collection, error) {
	id, err := s.docs.Resolve(ctx)
	if err != nil {
		return Collection{}, newStoreError("resolve", err)
	}
	body, err := s.docs.GetContent(ctx, id)
	if err != nil {
		return Collection{}, newStoreError("read", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return NewCollection(), nil
	}
	col, err := DecodeCollection(body)
	if err != nil {
		s.logger.Warn("remote document body unreadable, treating as empty", "document", id, "err", err)
		return NewCollection(), nil
	}
	return col, nil
}

func (s *RemoteStore) Save(ctx context.Context, col Collection) error {
	id, err := s.docs.Resolve(ctx)
	if err != nil {
		return newStoreError("resolve", err)
	}
	data, err := EncodeCollection(col)
	if err != nil {
		return newStoreError("encode", err)
	}
	if err := s.docs.PutContent(ctx, id, data); err != nil {
		return newStoreError("write", err)
	}
	return nil
}
