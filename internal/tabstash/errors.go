package tabstash

import (
	"errors"
	"fmt"
)

var (
	ErrWorksheetNotFound = errors.New("worksheet not found")
	ErrTabNotFound       = errors.New("tab not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidImport     = errors.New("invalid import payload")
	ErrStorageFailure    = errors.New("storage failure")
	ErrStoreFailure      = errors.New("remote store failure")
	ErrNotImplemented    = errors.New("not implemented")
)

// StorageError reports a failed write or read against the local slot.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("local storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// StoreError reports a failed remote document read or write, carrying the
// transport status when one was received.
type StoreError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("remote %s failed: status=%d message=%s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreFailure
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// newStoreError wraps a remote document failure, lifting the transport
// status out of the cause when it carried one.
func newStoreError(op string, err error) *StoreError {
	storeErr := &StoreError{Op: op, Err: err}
	var status interface {
		StatusCode() int
		StatusMessage() string
	}
	if errors.As(err, &status) {
		storeErr.Status = status.StatusCode()
		storeErr.Message = status.StatusMessage()
	}
	return storeErr
}
