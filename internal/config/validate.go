package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateWordPress(); err != nil {
		return err
	}
	if err := c.validateCuration(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Workers <= 0 {
		return errors.New("pipeline.workers must be positive")
	}
	if c.Pipeline.Limit <= 0 {
		return errors.New("pipeline.limit must be positive")
	}
	if c.Pipeline.SignificanceThreshold < 0 || c.Pipeline.SignificanceThreshold > 10 {
		return errors.New("pipeline.significance_threshold must be between 0 and 10")
	}
	return nil
}

func (c *Config) validateProviders() error {
	for capability, providers := range map[string][]Provider{
		"judge":    c.Providers.Judge,
		"generate": c.Providers.Generate,
		"revise":   c.Providers.Revise,
	} {
		for i, p := range providers {
			if p.Name == "" {
				return fmt.Errorf("providers.%s[%d].name must be set", capability, i)
			}
			if p.BaseURL == "" {
				return fmt.Errorf("providers.%s[%d].base_url must be set", capability, i)
			}
			if p.Model == "" {
				return fmt.Errorf("providers.%s[%d].model must be set", capability, i)
			}
			if p.APIKeyEnv == "" {
				return fmt.Errorf("providers.%s[%d].api_key_env must be set", capability, i)
			}
		}
	}
	return nil
}

func (c *Config) validateScoring() error {
	weights := map[string]float64{
		"scoring.relevance_weight":             c.Scoring.RelevanceWeight,
		"scoring.scale_weight":                 c.Scoring.ScaleWeight,
		"scoring.impact_weight":                c.Scoring.ImpactWeight,
		"scoring.novelty_weight":               c.Scoring.NoveltyWeight,
		"scoring.credibility_weight":           c.Scoring.CredibilityWeight,
		"scoring.editorial_impact_weight":      c.Scoring.EditorialImpactWeight,
		"scoring.editorial_novelty_weight":     c.Scoring.EditorialNoveltyWeight,
		"scoring.editorial_credibility_weight": c.Scoring.EditorialCredibilityWeight,
		"scoring.editorial_potential_weight":   c.Scoring.EditorialPotentialWeight,
		"scoring.editorial_positivity_weight":  c.Scoring.EditorialPositivityWeight,
	}
	for key, value := range weights {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	if c.Scoring.FinalPower <= 0 {
		return errors.New("scoring.final_power must be positive")
	}
	if c.Scoring.EditorialPower <= 0 {
		return errors.New("scoring.editorial_power must be positive")
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if c.Generation.MinSourceChars <= 0 {
		return errors.New("generation.min_source_chars must be positive")
	}
	if c.Generation.MinOverlapCount <= 0 {
		return errors.New("generation.min_overlap_count must be positive")
	}
	if c.Generation.MinOverlapRatio <= 0 || c.Generation.MinOverlapRatio > 1 {
		return errors.New("generation.min_overlap_ratio must be between 0 and 1")
	}
	if c.Generation.DuplicateSimilarity < 0 || c.Generation.DuplicateSimilarity > 1 {
		return errors.New("generation.duplicate_similarity must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateWordPress() error {
	if strings.TrimSpace(c.WordPress.BaseURL) == "" {
		return nil
	}
	if c.WordPress.TimeoutSeconds <= 0 {
		return errors.New("wordpress.timeout_seconds must be positive")
	}
	for name, id := range c.WordPress.CategoryMap {
		if id <= 0 {
			return fmt.Errorf("wordpress.category_map[%q] must be a positive category id", name)
		}
	}
	return nil
}

func (c *Config) validateCuration() error {
	if c.Curation.BreakingThreshold < 0 || c.Curation.BreakingThreshold > 10 {
		return errors.New("curation.breaking_threshold must be between 0 and 10")
	}
	if c.Curation.FeaturedThreshold < 0 || c.Curation.FeaturedThreshold > 10 {
		return errors.New("curation.featured_threshold must be between 0 and 10")
	}
	if c.Curation.FeaturedThreshold > c.Curation.BreakingThreshold {
		return errors.New("curation.featured_threshold must not exceed curation.breaking_threshold")
	}
	if c.Curation.WindowHours <= 0 {
		return errors.New("curation.window_hours must be positive")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if !c.Audio.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Audio.BaseURL) == "" {
		return errors.New("audio.base_url must be set when audio.enabled is true")
	}
	for _, h := range c.Audio.Highlights {
		switch h {
		case "BREAKING", "FEATURED":
		default:
			return fmt.Errorf("audio.highlights contains unknown tier %q", h)
		}
	}
	return nil
}
