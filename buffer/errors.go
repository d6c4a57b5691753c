package buffer

import (
	"fmt"
)

// ErrorCode classifies buffer pool errors
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota

	// Pool errors
	ErrCodePoolExhausted   // no free frame and no evictable frame
	ErrCodePageNotResident // operation referenced a page not currently cached
	ErrCodePagePinned      // delete attempted on a page with outstanding pins
	ErrCodeInvalidPin      // unpin attempted on a page with pin count zero
	ErrCodeInvalidPageID

	// Disk errors
	ErrCodeFlushFailed // backend write failed during eviction or explicit flush
	ErrCodeReadFailed  // backend read failed

	// Configuration errors
	ErrCodeInvalidConfig
)

// StorageError is a buffer pool error with an error code and the operation
// that produced it
type StorageError struct {
	Code    ErrorCode
	Message string
	Op      string // Operation that failed
	Err     error  // Underlying error (if any)
}

// Error implements the error interface
func (e *StorageError) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is matches errors by code, so errors.Is works against the helpers below
func (e *StorageError) Is(target error) bool {
	if t, ok := target.(*StorageError); ok {
		return e.Code == t.Code
	}
	return false
}

// NewStorageError creates a new storage error
func NewStorageError(code ErrorCode, op, message string, err error) *StorageError {
	return &StorageError{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Helper constructors for the pool's error taxonomy

func ErrPoolExhausted(op string) *StorageError {
	return NewStorageError(
		ErrCodePoolExhausted,
		op,
		"no free frame and no evictable frame in buffer pool",
		nil,
	)
}

func ErrPageNotResident(op string, pageID PageID) *StorageError {
	return NewStorageError(
		ErrCodePageNotResident,
		op,
		fmt.Sprintf("page %d is not resident in buffer pool", pageID),
		nil,
	)
}

func ErrPagePinned(op string, pageID PageID, pinCount int32) *StorageError {
	return NewStorageError(
		ErrCodePagePinned,
		op,
		fmt.Sprintf("page %d is pinned (pin count: %d)", pageID, pinCount),
		nil,
	)
}

func ErrInvalidPin(op string, pageID PageID) *StorageError {
	return NewStorageError(
		ErrCodeInvalidPin,
		op,
		fmt.Sprintf("page %d has no outstanding pins", pageID),
		nil,
	)
}

func ErrInvalidPageID(op string, pageID PageID) *StorageError {
	return NewStorageError(
		ErrCodeInvalidPageID,
		op,
		fmt.Sprintf("invalid page id %d", pageID),
		nil,
	)
}

func ErrFlushFailed(op string, pageID PageID, err error) *StorageError {
	return NewStorageError(
		ErrCodeFlushFailed,
		op,
		fmt.Sprintf("failed to flush page %d", pageID),
		err,
	)
}

func ErrReadFailed(op string, pageID PageID, err error) *StorageError {
	return NewStorageError(
		ErrCodeReadFailed,
		op,
		fmt.Sprintf("failed to read page %d", pageID),
		err,
	)
}

func ErrInvalidConfig(op, message string) *StorageError {
	return NewStorageError(ErrCodeInvalidConfig, op, message, nil)
}

// IsErrorCode checks whether an error carries a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	if se, ok := err.(*StorageError); ok {
		return se.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrCodeUnknown
func GetErrorCode(err error) ErrorCode {
	if se, ok := err.(*StorageError); ok {
		return se.Code
	}
	return ErrCodeUnknown
}
