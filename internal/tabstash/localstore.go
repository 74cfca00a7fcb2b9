package tabstash

import (
	"context"

	"pkt.systems/pslog"
)

// LocalStore persists the collection to a single slot on the local device.
// Reads favor availability: an absent or corrupt payload loads as an empty
// collection and is logged, never surfaced as an error. Writes favor
// correctness and fail with a StorageError.
type LocalStore struct {
	slot   SlotBackend
	logger pslog.Logger
}

func NewLocalStore(slot SlotBackend, logger pslog.Logger) *LocalStore {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &LocalStore{slot: slot, logger: logger}
}

func (s *LocalStore) Kind() string {
	return "local"
}

func (s *LocalStore) Load(ctx context.Context) (Collection, error) {
	data, ok, err := s.slot.Get(ctx)
	if err != nil {
		s.logger.Warn("local slot read failed, starting empty", "err", err)
		return NewCollection(), nil
	}
	if !ok || len(data) == 0 {
		return NewCollection(), nil
	}
	col, err := DecodeCollection(data)
	if err != nil {
		s.logger.Warn("local slot payload corrupt, starting empty", "err", err)
		return NewCollection(), nil
	}
	return col, nil
}

func (s *LocalStore) Save(ctx context.Context, col Collection) error {
	data, err := EncodeCollection(col)
	if err != nil {
		return &StorageError{Op: "encode", Err: err}
	}
	if err := s.slot.Set(ctx, data); err != nil {
		return &StorageError{Op: "write", Err: err}
	}
	return nil
}
