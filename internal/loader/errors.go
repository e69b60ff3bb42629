package loader

import (
	"errors"
	"fmt"
)

// ErrCodeBatchFetchFailed identifies a failed batch fetch.
const ErrCodeBatchFetchFailed = "BATCH_FETCH_FAILED"

// BatchFetchError is delivered to every caller waiting on a batch whose
// BatchFunc failed, panicked or returned the wrong number of results.
type BatchFetchError struct {
	// Loader is the name given with WithName, if any.
	Loader string

	// Size is the number of keys in the failed batch.
	Size int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *BatchFetchError) Error() string {
	if e.Loader != "" {
		return fmt.Sprintf("%s: batch of %d keys failed (loader=%s): %v", ErrCodeBatchFetchFailed, e.Size, e.Loader, e.Err)
	}
	return fmt.Sprintf("%s: batch of %d keys failed: %v", ErrCodeBatchFetchFailed, e.Size, e.Err)
}

// Unwrap returns the underlying cause.
func (e *BatchFetchError) Unwrap() error {
	return e.Err
}

// IsBatchFetchError reports whether err is or wraps a BatchFetchError.
func IsBatchFetchError(err error) bool {
	var be *BatchFetchError
	return errors.As(err, &be)
}

// errResultCount reports a BatchFunc that broke the positional contract.
func errResultCount(want, got int) error {
	return fmt.Errorf("batch function returned %d results for %d keys", got, want)
}
