package pipeline

// Defaults for message processing.
const (
	// DefaultPersistConcurrency bounds how many drafts of one message are
	// written to the store at the same time.
	DefaultPersistConcurrency = 4
)
