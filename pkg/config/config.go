// Package config loads and validates environment-driven configuration for
// every component of the memory store: chunking, embedding, entity
// resolution, retrieval/graph tuning, the job queue, and data retention.
package config

// Config aggregates the configuration for every component. It is built by
// LoadFromEnv at process startup and passed down by value/pointer to the
// components that need it, following the teacher's per-component config
// struct convention (pkg/database.Config, the original pkg/config.QueueConfig).
type Config struct {
	Chunker    *ChunkerConfig
	Embedding  *EmbeddingConfig
	Entity     *EntityConfig
	Extraction *ExtractionConfig
	Retrieval  *RetrievalConfig
	Queue      *QueueConfig
	Retention  *RetentionConfig
}

// LoadFromEnv loads every component's configuration from the process
// environment, returning the first validation error encountered.
func LoadFromEnv() (*Config, error) {
	chunker, err := LoadChunkerConfigFromEnv()
	if err != nil {
		return nil, err
	}
	embedding, err := LoadEmbeddingConfigFromEnv()
	if err != nil {
		return nil, err
	}
	entity, err := LoadEntityConfigFromEnv()
	if err != nil {
		return nil, err
	}
	extraction, err := LoadExtractionConfigFromEnv()
	if err != nil {
		return nil, err
	}
	retrieval, err := LoadRetrievalConfigFromEnv()
	if err != nil {
		return nil, err
	}

	queue := DefaultQueueConfig()
	var werr error
	if queue.WorkerCount, werr = getEnvInt("WORKER_COUNT", queue.WorkerCount); werr != nil {
		return nil, werr
	}
	pollMs, werr := getEnvInt("POLL_INTERVAL_MS", int(queue.PollInterval.Milliseconds()))
	if werr != nil {
		return nil, werr
	}
	queue.PollInterval = msToDuration(pollMs)
	if queue.EventMaxAttempts, werr = getEnvInt("EVENT_MAX_ATTEMPTS", queue.EventMaxAttempts); werr != nil {
		return nil, werr
	}
	if err := queue.Validate(); err != nil {
		return nil, err
	}

	retention := DefaultRetentionConfig()

	return &Config{
		Chunker:    chunker,
		Embedding:  embedding,
		Entity:     entity,
		Extraction: extraction,
		Retrieval:  retrieval,
		Queue:      queue,
		Retention:  retention,
	}, nil
}
