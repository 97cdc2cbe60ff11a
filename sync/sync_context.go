package sync

// SyncContext holds shared configuration for both pipelines.
// It is immutable after construction.
type SyncContext struct {
	Config Config

	// RecordRequests enables recording of outbound API traffic for
	// replay fixtures.
	RecordRequests bool
}
