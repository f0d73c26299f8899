package engine

// Config holds configuration for the engine.
type Config struct {
	// EmbedConcurrency bounds the number of in-flight upstream embedding
	// calls for one request. Zero or negative means 1 (sequential).
	EmbedConcurrency int

	// Version is reported by /api/version.
	Version string
}

func (c Config) embedConcurrency() int {
	if c.EmbedConcurrency <= 0 {
		return 1
	}
	return c.EmbedConcurrency
}

func (c Config) version() string {
	if c.Version == "" {
		return "0.0.0"
	}
	return c.Version
}
