package usecase

import "time"

const (
	// DefaultMaxParallelRules bounds how many rule modules of one batch run at once.
	DefaultMaxParallelRules = 4

	// IdempotencyKeyTTL is how long a batch fingerprint keeps its result.
	IdempotencyKeyTTL = 24 * time.Hour

	// RunCacheTTL is how long a finished run stays in the read cache.
	RunCacheTTL = 10 * time.Minute

	// processingMarker is what IdempotencyStore holds while a run is in flight.
	processingMarker = "processing"
)
