package types

import "errors"

var (
	// ErrStorageUnavailable is returned when the backing store could not
	// complete an operation after exhausting its retries.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrInvalidBatch is returned, before anything is written, for an upload
	// with duplicate key ids, too many keys or an empty public key.
	ErrInvalidBatch = errors.New("invalid pre-key batch")
)
