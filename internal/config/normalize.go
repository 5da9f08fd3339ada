package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeProviders()
	c.normalizeGeneration()
	c.normalizeWordPress()
	c.normalizeCuration()
	c.normalizeAudio()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		c.Paths.MediaDir = defaultMediaDir
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SourcesFile) == "" {
		c.Paths.SourcesFile = defaultSourcesFile
	}
	if c.Paths.SourcesFile, err = expandPath(c.Paths.SourcesFile); err != nil {
		return fmt.Errorf("paths.sources_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.EnvFile) != "" {
		if c.Paths.EnvFile, err = expandPath(c.Paths.EnvFile); err != nil {
			return fmt.Errorf("paths.env_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = defaultWorkers
	}
	if c.Pipeline.Limit <= 0 {
		c.Pipeline.Limit = defaultLimit
	}
	if c.Pipeline.SignificanceThreshold < 0 {
		c.Pipeline.SignificanceThreshold = 0
	}
	if c.Pipeline.SignificanceThreshold > 10 {
		c.Pipeline.SignificanceThreshold = 10
	}
}

func (c *Config) normalizeProviders() {
	c.Providers.Judge = normalizeProviderList(c.Providers.Judge)
	c.Providers.Generate = normalizeProviderList(c.Providers.Generate)
	c.Providers.Revise = normalizeProviderList(c.Providers.Revise)
}

func normalizeProviderList(providers []Provider) []Provider {
	out := providers[:0]
	for _, p := range providers {
		p.Name = strings.TrimSpace(p.Name)
		p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
		p.Model = strings.TrimSpace(p.Model)
		p.APIKeyEnv = strings.TrimSpace(p.APIKeyEnv)
		if p.TimeoutSeconds <= 0 {
			p.TimeoutSeconds = defaultProviderTimeoutSeconds
		}
		if p.MaxAttempts <= 0 {
			p.MaxAttempts = defaultProviderMaxAttempts
		}
		if p.BackoffSeconds <= 0 {
			p.BackoffSeconds = defaultProviderBackoffSeconds
		}
		out = append(out, p)
	}
	return out
}

func (c *Config) normalizeGeneration() {
	if c.Generation.MinSourceChars <= 0 {
		c.Generation.MinSourceChars = defaultMinSourceChars
	}
	if c.Generation.MinOverlapCount <= 0 {
		c.Generation.MinOverlapCount = defaultMinOverlapCount
	}
	if c.Generation.MinOverlapRatio <= 0 {
		c.Generation.MinOverlapRatio = defaultMinOverlapRatio
	}
}

func (c *Config) normalizeWordPress() {
	c.WordPress.BaseURL = strings.TrimRight(strings.TrimSpace(c.WordPress.BaseURL), "/")
	if strings.TrimSpace(c.WordPress.UsernameEnv) == "" {
		c.WordPress.UsernameEnv = defaultWordPressUsernameEnv
	}
	if strings.TrimSpace(c.WordPress.PasswordEnv) == "" {
		c.WordPress.PasswordEnv = defaultWordPressPasswordEnv
	}
	if c.WordPress.TimeoutSeconds <= 0 {
		c.WordPress.TimeoutSeconds = defaultWordPressTimeoutSeconds
	}
	if c.WordPress.ThrottleSeconds < 0 {
		c.WordPress.ThrottleSeconds = 0
	}
}

func (c *Config) normalizeCuration() {
	if c.Curation.WindowHours <= 0 {
		c.Curation.WindowHours = defaultCurationWindowHours
	}
	if c.Curation.BreakingLimit <= 0 {
		c.Curation.BreakingLimit = defaultCurationBreakingLimit
	}
	if c.Curation.FeaturedLimit <= 0 {
		c.Curation.FeaturedLimit = defaultCurationFeaturedLimit
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.BaseURL = strings.TrimRight(strings.TrimSpace(c.Audio.BaseURL), "/")
	c.Audio.Language = strings.ToLower(strings.TrimSpace(c.Audio.Language))
	if c.Audio.Language == "" {
		c.Audio.Language = defaultAudioLanguage
	}
	if c.Audio.TimeoutSeconds <= 0 {
		c.Audio.TimeoutSeconds = defaultAudioTimeoutSeconds
	}
	highlights := make([]string, 0, len(c.Audio.Highlights))
	seen := make(map[string]struct{}, len(c.Audio.Highlights))
	for _, h := range c.Audio.Highlights {
		normalized := strings.ToUpper(strings.TrimSpace(h))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		highlights = append(highlights, normalized)
	}
	if len(highlights) == 0 {
		highlights = []string{"BREAKING", "FEATURED"}
	}
	c.Audio.Highlights = highlights
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
