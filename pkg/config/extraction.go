package config

import "time"

// ExtractionConfig controls the two-phase event extractor.
type ExtractionConfig struct {
	// ExtractModel is the LLM used for Phase A (per-chunk extraction).
	ExtractModel string `yaml:"extract_model"`

	// CanonicalizeModel is the LLM used for Phase B (cross-chunk
	// canonicalization). May be the same model as ExtractModel.
	CanonicalizeModel string `yaml:"canonicalize_model"`

	// LLMTimeout bounds a single Phase A or Phase B LLM call.
	LLMTimeout time.Duration `yaml:"llm_timeout"`

	// ShortTurnSkipTokens: conversation-context turns below this
	// token count may skip the extract_events job entirely (Open Question
	// decision; see SPEC_FULL.md). 0 disables the skip.
	ShortTurnSkipTokens int `yaml:"short_turn_skip_tokens"`

	// CategoryAutonormalize maps known plural/variant event categories to
	// their canonical singular form at validation time (e.g. "Commitments"
	// -> "Commitment"). Unknown categories always pass through unchanged.
	CategoryAutonormalize bool `yaml:"category_autonormalize"`

	// MaxNarrativeWords bounds narrative length accepted from the LLM;
	// over-long narratives are truncated rather than rejected.
	MaxNarrativeWords int `yaml:"max_narrative_words"`

	// MaxQuoteWords bounds evidence quote length (spec: <= 25 words).
	MaxQuoteWords int `yaml:"max_quote_words"`
}

// DefaultExtractionConfig returns the built-in extraction defaults.
func DefaultExtractionConfig() *ExtractionConfig {
	return &ExtractionConfig{
		ExtractModel:          "gpt-4o-mini",
		CanonicalizeModel:     "gpt-4o-mini",
		LLMTimeout:            30 * time.Second,
		ShortTurnSkipTokens:   100,
		CategoryAutonormalize: true,
		MaxNarrativeWords:     60,
		MaxQuoteWords:         25,
	}
}

// LoadExtractionConfigFromEnv loads extraction configuration from the
// environment.
func LoadExtractionConfigFromEnv() (*ExtractionConfig, error) {
	cfg := DefaultExtractionConfig()
	cfg.ExtractModel = getEnvOrDefault("EXTRACTION_MODEL", cfg.ExtractModel)
	cfg.CanonicalizeModel = getEnvOrDefault("CANONICALIZE_MODEL", cfg.CanonicalizeModel)

	timeoutMs, err := getEnvInt("LLM_TIMEOUT_MS", int(cfg.LLMTimeout.Milliseconds()))
	if err != nil {
		return nil, err
	}
	cfg.LLMTimeout = msToDuration(timeoutMs)

	if cfg.ShortTurnSkipTokens, err = getEnvInt("SHORT_TURN_SKIP_TOKENS", cfg.ShortTurnSkipTokens); err != nil {
		return nil, err
	}
	if cfg.CategoryAutonormalize, err = getEnvBool("EVENT_CATEGORY_AUTONORMALIZE", cfg.CategoryAutonormalize); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the extraction configuration for internal consistency.
func (c *ExtractionConfig) Validate() error {
	if c.ExtractModel == "" || c.CanonicalizeModel == "" {
		return NewValidationError("extraction", "model", ErrMissingRequiredField)
	}
	if c.LLMTimeout <= 0 {
		return NewValidationError("extraction", "llm_timeout", ErrInvalidValue)
	}
	if c.ShortTurnSkipTokens < 0 {
		return NewValidationError("extraction", "short_turn_skip_tokens", ErrInvalidValue)
	}
	if c.MaxNarrativeWords < 1 || c.MaxQuoteWords < 1 {
		return NewValidationError("extraction", "max_words", ErrInvalidValue)
	}
	return nil
}
