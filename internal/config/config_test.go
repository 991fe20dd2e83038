package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{name: "BaseURL", got: cfg.BaseURL, want: "http://www.ratebeer.com"},
		{name: "SeedURL", got: cfg.SeedURL, want: "http://www.ratebeer.com/brewers/brewdog/8534/"},
		{name: "Timeout", got: cfg.Timeout, want: 30 * time.Second},
		{name: "MaxBodySize", got: cfg.MaxBodySize, want: int64(5 * 1024 * 1024)},
		{name: "Retries", got: cfg.Retries, want: 0},
		{name: "RetryWait", got: cfg.RetryWait, want: time.Second},
		{name: "CrawlDelay", got: cfg.CrawlDelay, want: time.Duration(0)},
		{name: "RespectRobots", got: cfg.RespectRobots, want: false},
		{name: "ProxyAddress", got: cfg.ProxyAddress, want: ""},
		{name: "Sentinel", got: cfg.Sentinel, want: "NA"},
		{name: "MaxCount", got: cfg.MaxCount, want: 0},
		{name: "SkipFailures", got: cfg.SkipFailures, want: false},
		{name: "LinksFile", got: cfg.LinksFile, want: "brewery_beer_links.json"},
		{name: "RawFile", got: cfg.RawFile, want: "beers_raw.json"},
		{name: "OutputFile", got: cfg.OutputFile, want: "beers.json"},
		{name: "DBDir", got: cfg.DBDir, want: XDGDataDir()},
		{name: "SaveToDB", got: cfg.SaveToDB, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("default %s mismatch (-want +got):\n%s", tt.name, diff)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "defaults are valid", modify: func(*Config) {}},
		{name: "empty seed", modify: func(c *Config) { c.SeedURL = "" }, wantErr: ErrNoSeed},
		{name: "seed without brewers segment", modify: func(c *Config) { c.SeedURL = "http://www.ratebeer.com/beer/x/1/" }, wantErr: ErrInvalidSeed},
		{name: "relative seed", modify: func(c *Config) { c.SeedURL = "/brewers/acme/1/" }},
		{name: "base url without scheme", modify: func(c *Config) { c.BaseURL = "www.ratebeer.com" }, wantErr: ErrInvalidBaseURL},
		{name: "ftp base url", modify: func(c *Config) { c.BaseURL = "ftp://example.com" }, wantErr: ErrInvalidBaseURL},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative retries", modify: func(c *Config) { c.Retries = -1 }, wantErr: ErrInvalidRetries},
		{name: "negative crawl delay", modify: func(c *Config) { c.CrawlDelay = -time.Second }, wantErr: ErrInvalidCrawlDelay},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, wantErr: ErrInvalidMaxBodySize},
		{name: "negative max count", modify: func(c *Config) { c.MaxCount = -5 }, wantErr: ErrInvalidMaxCount},
		{name: "empty sentinel", modify: func(c *Config) { c.Sentinel = "" }, wantErr: ErrEmptySentinel},
		{
			name: "proxy with snapshot",
			modify: func(c *Config) {
				c.ProxyAddress = "127.0.0.1:9050"
				c.SnapshotDir = "testdata"
			},
			wantErr: ErrConflictingSources,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateSettings(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.SeedURL = ""
	if err := cfg.ValidateSettings(); err != nil {
		t.Errorf("ValidateSettings() without seed error = %v, want nil", err)
	}

	cfg.Timeout = 0
	if err := cfg.ValidateSettings(); !errors.Is(err, ErrInvalidTimeout) {
		t.Errorf("ValidateSettings() error = %v, want ErrInvalidTimeout", err)
	}
}

func boolPtr(b bool) *bool { return &b }

func TestFileGetBreweryConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: BreweryConfig{
			Sentinel: "n/a",
			Headers:  map[string]string{"Accept-Language": "en"},
			MaxCount: 10,
		},
		Breweries: map[string]BreweryConfig{
			"brewdog": {
				Seed:         "http://www.ratebeer.com/brewers/brewdog/8534/",
				Cookie:       "session=abc",
				Headers:      map[string]string{"X-Test": "1"},
				MaxCount:     3,
				SkipFailures: boolPtr(true),
			},
		},
	}

	t.Run("unknown brewery gets defaults", func(t *testing.T) {
		t.Parallel()

		got := cf.GetBreweryConfig("other")
		if diff := cmp.Diff(cf.Defaults, got); diff != "" {
			t.Errorf("GetBreweryConfig() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("brewery overrides defaults", func(t *testing.T) {
		t.Parallel()

		got := cf.GetBreweryConfig("brewdog")
		want := BreweryConfig{
			Seed:         "http://www.ratebeer.com/brewers/brewdog/8534/",
			Cookie:       "session=abc",
			Headers:      map[string]string{"Accept-Language": "en", "X-Test": "1"},
			MaxCount:     3,
			Sentinel:     "n/a",
			SkipFailures: boolPtr(true),
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("GetBreweryConfig() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("merging does not modify defaults", func(t *testing.T) {
		t.Parallel()

		_ = cf.GetBreweryConfig("brewdog")
		if _, ok := cf.Defaults.Headers["X-Test"]; ok {
			t.Error("brewery headers leaked into defaults")
		}
	})

	t.Run("resolve by seed url", func(t *testing.T) {
		t.Parallel()

		got := cf.ResolveBrewery("/brewers/brewdog/8534/")
		if got.Cookie != "session=abc" {
			t.Errorf("Cookie = %q", got.Cookie)
		}
	})

	t.Run("resolve single brewery without seed", func(t *testing.T) {
		t.Parallel()

		got := cf.ResolveBrewery("")
		if got.Seed != "http://www.ratebeer.com/brewers/brewdog/8534/" {
			t.Errorf("Seed = %q", got.Seed)
		}
	})
}

func TestConfigApplyBrewery(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.SkipFailures = true
	cfg.ApplyBrewery(BreweryConfig{
		Seed:         "/brewers/acme/1/",
		Cookie:       "a=b",
		Headers:      map[string]string{"X-Test": "1"},
		MaxCount:     7,
		MaxPages:     2,
		Sentinel:     "-",
		CrawlDelay:   time.Second,
		SkipFailures: boolPtr(false),
	})

	if cfg.SeedURL != "/brewers/acme/1/" || cfg.Cookie != "a=b" || cfg.MaxCount != 7 || cfg.MaxPages != 2 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Sentinel != "-" || cfg.CrawlDelay != time.Second || cfg.Headers["X-Test"] != "1" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.SkipFailures {
		t.Error("expected brewery to turn SkipFailures off")
	}

	before := *cfg
	cfg.ApplyBrewery(BreweryConfig{})
	if cfg.SeedURL != before.SeedURL || cfg.MaxCount != before.MaxCount {
		t.Error("empty brewery config should not change settings")
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads defaults and breweries", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".brewcrawl")
		content := `defaults:
  sentinel: "n/a"
  crawlDelay: 500ms
breweries:
  brewdog:
    seed: http://www.ratebeer.com/brewers/brewdog/8534/
    cookie: "session=abc"
    maxCount: 5
    skipFailures: true
    headers:
      X-Test: "1"
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile() error = %v", err)
		}
		if cf.Defaults.CrawlDelay != 500*time.Millisecond {
			t.Errorf("CrawlDelay = %v, want 500ms", cf.Defaults.CrawlDelay)
		}
		bc := cf.GetBreweryConfig("brewdog")
		if bc.MaxCount != 5 || bc.Sentinel != "n/a" || bc.Headers["X-Test"] != "1" {
			t.Errorf("unexpected brewery config: %+v", bc)
		}
		if bc.SkipFailures == nil || !*bc.SkipFailures {
			t.Error("expected skipFailures true")
		}
	})

	t.Run("empty file yields empty brewery map", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".brewcrawl")
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatal(err)
		}
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile() error = %v", err)
		}
		if cf.Breweries == nil {
			t.Error("expected non-nil Breweries map")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("LoadConfigFile() error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".brewcrawl")
		if err := os.WriteFile(path, []byte("breweries: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := LoadConfigFile(path)
		if err == nil || !strings.Contains(err.Error(), path) {
			t.Errorf("LoadConfigFile() error = %v, want parse error naming the file", err)
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path that exists", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("defaults: {}\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile() = %q, want %q", got, path)
		}
	})

	t.Run("explicit path that does not exist", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing")); got != "" {
			t.Errorf("FindConfigFile() = %q, want empty", got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if !strings.HasSuffix(XDGDataDir(), AppName) {
		t.Errorf("XDGDataDir() = %q", XDGDataDir())
	}
	if !strings.HasSuffix(XDGConfigDir(), AppName) {
		t.Errorf("XDGConfigDir() = %q", XDGConfigDir())
	}
}
