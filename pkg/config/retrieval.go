package config

import "time"

// RetrievalConfig controls recall-time fusion, expansion, and graph behavior.
type RetrievalConfig struct {
	MaxDistance float64 `yaml:"max_distance"` // absolute cosine-distance cutoff
	RRFK        int     `yaml:"rrf_k"`        // reciprocal rank fusion constant

	GraphEnabled          bool          `yaml:"graph_enabled"`
	GraphQueryTimeout     time.Duration `yaml:"graph_query_timeout"`
	GraphBudgetDefault    int           `yaml:"graph_budget_default"`
	GraphBudgetMax        int           `yaml:"graph_budget_max"`
	GraphSeedLimitDefault int           `yaml:"graph_seed_limit_default"`
	GraphSeedLimitMax     int           `yaml:"graph_seed_limit_max"`

	// DefaultGraphFilters is the category allowlist used to seed graph
	// expansion when the caller does not specify graph_filters.
	DefaultGraphFilters []string `yaml:"default_graph_filters"`

	// LLMTimeout bounds any LLM/embedding call made on behalf of a request
	// (as opposed to a background job).
	LLMTimeout time.Duration `yaml:"llm_timeout"`
}

// DefaultRetrievalConfig returns the built-in retrieval defaults.
func DefaultRetrievalConfig() *RetrievalConfig {
	return &RetrievalConfig{
		MaxDistance:           0.35,
		RRFK:                  60,
		GraphEnabled:          true,
		GraphQueryTimeout:     500 * time.Millisecond,
		GraphBudgetDefault:    10,
		GraphBudgetMax:        50,
		GraphSeedLimitDefault: 1,
		GraphSeedLimitMax:     20,
		DefaultGraphFilters:   []string{"Decision", "Commitment", "QualityRisk"},
		LLMTimeout:            30 * time.Second,
	}
}

// LoadRetrievalConfigFromEnv loads retrieval configuration from the environment.
func LoadRetrievalConfigFromEnv() (*RetrievalConfig, error) {
	cfg := DefaultRetrievalConfig()
	var err error
	if cfg.MaxDistance, err = getEnvFloat("RETRIEVAL_MAX_DISTANCE", cfg.MaxDistance); err != nil {
		return nil, err
	}
	if cfg.GraphEnabled, err = getEnvBool("GRAPH_ENABLED", cfg.GraphEnabled); err != nil {
		return nil, err
	}
	timeoutMs, err := getEnvInt("GRAPH_QUERY_TIMEOUT_MS", int(cfg.GraphQueryTimeout/time.Millisecond))
	if err != nil {
		return nil, err
	}
	cfg.GraphQueryTimeout = time.Duration(timeoutMs) * time.Millisecond

	if cfg.GraphBudgetDefault, err = getEnvInt("GRAPH_BUDGET_DEFAULT", cfg.GraphBudgetDefault); err != nil {
		return nil, err
	}
	if cfg.GraphBudgetMax, err = getEnvInt("GRAPH_BUDGET_MAX", cfg.GraphBudgetMax); err != nil {
		return nil, err
	}
	if cfg.GraphSeedLimitDefault, err = getEnvInt("GRAPH_SEED_LIMIT_DEFAULT", cfg.GraphSeedLimitDefault); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the retrieval configuration for internal consistency.
func (c *RetrievalConfig) Validate() error {
	if c.MaxDistance <= 0 {
		return NewValidationError("retrieval", "max_distance", ErrInvalidValue)
	}
	if c.RRFK < 1 {
		return NewValidationError("retrieval", "rrf_k", ErrInvalidValue)
	}
	if c.GraphBudgetMax < c.GraphBudgetDefault {
		return NewValidationError("retrieval", "graph_budget_max", ErrInvalidValue)
	}
	return nil
}
