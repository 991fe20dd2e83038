package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/brewcrawl/internal/link"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".brewcrawl"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// BreweryConfig holds the settings of one brewery in the config file.
type BreweryConfig struct {
	// Seed is the brewery page to start from.
	Seed string `yaml:"seed,omitempty"`

	// Cookie is sent with every request, e.g. "name=value; other=value".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxCount limits the beers extracted.
	MaxCount int `yaml:"maxCount,omitempty"`

	// MaxPages limits the brewery pages crawled.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Sentinel fills fields a record lacks.
	Sentinel string `yaml:"sentinel,omitempty"`

	// CrawlDelay is the pause between requests, e.g. "500ms".
	CrawlDelay time.Duration `yaml:"crawlDelay,omitempty"`

	// SkipFailures records failing beers instead of aborting. A pointer
	// so that a brewery can turn off a default of true.
	SkipFailures *bool `yaml:"skipFailures,omitempty"`
}

// File represents the structure of the .brewcrawl configuration file.
type File struct {
	// Defaults apply to every brewery.
	Defaults BreweryConfig `yaml:"defaults,omitempty"`

	// Breweries maps brewery names (the /brewers/<name>/ segment) to
	// their settings.
	Breweries map[string]BreweryConfig `yaml:"breweries,omitempty"`
}

// GetBreweryConfig returns the settings for a brewery, merged over the
// defaults.
func (cf *File) GetBreweryConfig(name string) BreweryConfig {
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	bc, ok := cf.Breweries[name]
	if !ok {
		return result
	}
	if bc.Seed != "" {
		result.Seed = bc.Seed
	}
	if bc.Cookie != "" {
		result.Cookie = bc.Cookie
	}
	if len(bc.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(bc.Headers))
		}
		for k, v := range bc.Headers {
			result.Headers[k] = v
		}
	}
	if bc.MaxCount != 0 {
		result.MaxCount = bc.MaxCount
	}
	if bc.MaxPages != 0 {
		result.MaxPages = bc.MaxPages
	}
	if bc.Sentinel != "" {
		result.Sentinel = bc.Sentinel
	}
	if bc.CrawlDelay != 0 {
		result.CrawlDelay = bc.CrawlDelay
	}
	if bc.SkipFailures != nil {
		result.SkipFailures = bc.SkipFailures
	}
	return result
}

// ResolveBrewery returns the brewery settings for seedURL. When seedURL is
// empty and the file names exactly one brewery, that brewery is used.
func (cf *File) ResolveBrewery(seedURL string) BreweryConfig {
	if seedURL == "" && len(cf.Breweries) == 1 {
		for name := range cf.Breweries {
			return cf.GetBreweryConfig(name)
		}
	}
	name, err := link.ExtractBreweryName(seedURL)
	if err != nil {
		return cf.GetBreweryConfig("")
	}
	return cf.GetBreweryConfig(name)
}

// LoadConfigFile loads brewery settings from a YAML file.
// A missing file yields ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cf.Breweries == nil {
		cf.Breweries = make(map[string]BreweryConfig)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. configPath, if given
//  2. .brewcrawl in the current directory
//  3. .brewcrawl in the user's home directory
//  4. config.yaml in the XDG config directory
//
// It returns "" when no file exists.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
