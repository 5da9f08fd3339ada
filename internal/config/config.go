package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file location configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	LogDir      string `toml:"log_dir"`
	MediaDir    string `toml:"media_dir"`
	SourcesFile string `toml:"sources_file"`
	EnvFile     string `toml:"env_file"`
}

// Pipeline contains batch sizing and concurrency settings shared by all stages.
type Pipeline struct {
	Workers               int     `toml:"workers"`
	Limit                 int     `toml:"limit"`
	SignificanceThreshold float64 `toml:"significance_threshold"`
}

// Provider describes one model backend for a capability. Ordered lists of
// these form the fallback chain; the API key is read from the named
// environment variable, never from the config file.
type Provider struct {
	Name           string  `toml:"name"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	APIKeyEnv      string  `toml:"api_key_env"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxAttempts    int     `toml:"max_attempts"`
	BackoffSeconds float64 `toml:"backoff_seconds"`
}

// Providers holds the per-capability fallback chains.
type Providers struct {
	Judge    []Provider `toml:"judge"`
	Generate []Provider `toml:"generate"`
	Revise   []Provider `toml:"revise"`
}

// Scoring contains the weights and normalization powers for the significance
// and editorial scores. All weights must be non-negative so higher sub-scores
// never lower a result.
type Scoring struct {
	RelevanceWeight   float64 `toml:"relevance_weight"`
	ScaleWeight       float64 `toml:"scale_weight"`
	ImpactWeight      float64 `toml:"impact_weight"`
	NoveltyWeight     float64 `toml:"novelty_weight"`
	CredibilityWeight float64 `toml:"credibility_weight"`
	FinalPower        float64 `toml:"final_power"`

	EditorialImpactWeight      float64 `toml:"editorial_impact_weight"`
	EditorialNoveltyWeight     float64 `toml:"editorial_novelty_weight"`
	EditorialCredibilityWeight float64 `toml:"editorial_credibility_weight"`
	EditorialPotentialWeight   float64 `toml:"editorial_potential_weight"`
	EditorialPositivityWeight  float64 `toml:"editorial_positivity_weight"`
	EditorialPower             float64 `toml:"editorial_power"`
}

// Generation contains the source-fidelity gate thresholds for drafting.
type Generation struct {
	MinSourceChars  int     `toml:"min_source_chars"`
	MinOverlapCount int     `toml:"min_overlap_count"`
	MinOverlapRatio float64 `toml:"min_overlap_ratio"`
	// DuplicateSimilarity is the cosine similarity at or above which a new
	// draft body is flagged as a near duplicate. Zero disables the check.
	DuplicateSimilarity float64 `toml:"duplicate_similarity"`
}

// Revision controls the editorial checklist behavior.
type Revision struct {
	Strict bool `toml:"strict"`
}

// WordPress contains the publishing backend settings. Credentials come from
// the environment variables named here.
type WordPress struct {
	BaseURL            string         `toml:"base_url"`
	UsernameEnv        string         `toml:"username_env"`
	PasswordEnv        string         `toml:"password_env"`
	DefaultCategoryID  int            `toml:"default_category_id"`
	CategoryMap        map[string]int `toml:"category_map"`
	BreakingCategoryID int            `toml:"breaking_category_id"`
	FeaturedCategoryID int            `toml:"featured_category_id"`
	ThrottleSeconds    float64        `toml:"throttle_seconds"`
	TimeoutSeconds     int            `toml:"timeout_seconds"`
}

// Curation contains the highlight tier thresholds and recency window.
type Curation struct {
	WindowHours       int     `toml:"window_hours"`
	BreakingThreshold float64 `toml:"breaking_threshold"`
	FeaturedThreshold float64 `toml:"featured_threshold"`
	BreakingLimit     int     `toml:"breaking_limit"`
	FeaturedLimit     int     `toml:"featured_limit"`
	SyncCategories    bool    `toml:"sync_categories"`
}

// Audio contains the derived-media synthesis settings.
type Audio struct {
	Enabled        bool     `toml:"enabled"`
	BaseURL        string   `toml:"base_url"`
	Language       string   `toml:"language"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	Highlights     []string `toml:"highlights"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the pipeline.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Pipeline   Pipeline   `toml:"pipeline"`
	Providers  Providers  `toml:"providers"`
	Scoring    Scoring    `toml:"scoring"`
	Generation Generation `toml:"generation"`
	Revision   Revision   `toml:"revision"`
	WordPress  WordPress  `toml:"wordpress"`
	Curation   Curation   `toml:"curation"`
	Audio      Audio      `toml:"audio"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/newswire/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized, and any configured
// .env file has been loaded into the process environment.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.loadEnvFile(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("newswire.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadEnvFile reads the optional dotenv file into the process environment.
// Existing environment variables win over file entries.
func (c *Config) loadEnvFile() error {
	path := strings.TrimSpace(c.Paths.EnvFile)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}

// EnsureDirectories creates the directories required for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Audio.Enabled && strings.TrimSpace(c.Paths.MediaDir) != "" {
		if err := os.MkdirAll(c.Paths.MediaDir, 0o755); err != nil {
			return fmt.Errorf("create media directory %q: %w", c.Paths.MediaDir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "newswire.db")
}

// LockPath returns the single-writer lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "newswire.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ProvidersFor returns the ordered fallback chain for a capability name.
func (c *Config) ProvidersFor(capability string) []Provider {
	switch strings.ToLower(strings.TrimSpace(capability)) {
	case "judge":
		return c.Providers.Judge
	case "generate":
		return c.Providers.Generate
	case "revise":
		return c.Providers.Revise
	default:
		return nil
	}
}
