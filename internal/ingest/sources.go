package ingest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"newswire/internal/services"
)

// Source kinds supported by the ingestion adapters.
const (
	KindRSS  = "rss"
	KindHTML = "html"
)

// Source describes one configured feed or listing page.
type Source struct {
	Name      string    `yaml:"name"`
	Kind      string    `yaml:"kind"`
	URL       string    `yaml:"url"`
	Selectors Selectors `yaml:"selectors"`
}

// Selectors are the goquery selectors for HTML listing pages. Item scopes one
// entry; the rest are resolved relative to it.
type Selectors struct {
	Item    string `yaml:"item"`
	Title   string `yaml:"title"`
	Link    string `yaml:"link"`
	Summary string `yaml:"summary"`
	Time    string `yaml:"time"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads and validates the sources definition file.
func LoadSources(path string) ([]Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ingestion", "load sources", path, err)
	}
	var parsed sourcesFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ingestion", "parse sources", path, err)
	}
	seen := make(map[string]struct{}, len(parsed.Sources))
	for i := range parsed.Sources {
		src := &parsed.Sources[i]
		src.Name = strings.TrimSpace(src.Name)
		src.Kind = strings.ToLower(strings.TrimSpace(src.Kind))
		src.URL = strings.TrimSpace(src.URL)
		if err := validateSource(*src); err != nil {
			return nil, err
		}
		if _, dup := seen[src.Name]; dup {
			return nil, services.Wrap(services.ErrConfiguration, "ingestion", "parse sources",
				fmt.Sprintf("duplicate source name %q", src.Name), nil)
		}
		seen[src.Name] = struct{}{}
	}
	return parsed.Sources, nil
}

func validateSource(src Source) error {
	fail := func(msg string) error {
		return services.Wrap(services.ErrConfiguration, "ingestion", "parse sources", msg, nil)
	}
	if src.Name == "" {
		return fail("source missing name")
	}
	if src.URL == "" {
		return fail(fmt.Sprintf("source %q missing url", src.Name))
	}
	switch src.Kind {
	case KindRSS:
	case KindHTML:
		if src.Selectors.Item == "" || src.Selectors.Link == "" {
			return fail(fmt.Sprintf("source %q needs item and link selectors", src.Name))
		}
	default:
		return fail(fmt.Sprintf("source %q has unknown kind %q", src.Name, src.Kind))
	}
	return nil
}

// FilterSources narrows to a single named source; an empty name keeps all.
func FilterSources(sources []Source, name string) []Source {
	name = strings.TrimSpace(name)
	if name == "" {
		return sources
	}
	var matched []Source
	for _, src := range sources {
		if strings.EqualFold(src.Name, name) {
			matched = append(matched, src)
		}
	}
	return matched
}
