package application

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"gridbill/internal/aggregation"
	"gridbill/internal/validation"
)

// SiteConfig is the per-site reconciliation configuration: corruption
// thresholds, column rules, indent-level fallbacks, and export settings.
type SiteConfig struct {
	Thresholds   validation.Thresholds             `yaml:"thresholds"`
	Columns      map[string]aggregation.ColumnRule `yaml:"columns"`
	IndentLevels map[string]int                    `yaml:"indent_levels"`
	ExportDir    string                            `yaml:"export_dir"`
}

// Config holds defaults plus per-site overrides.
type Config struct {
	Defaults SiteConfig            `yaml:"defaults"`
	Sites    map[string]SiteConfig `yaml:"sites"`
}

// LoadConfig loads reconciliation config from the yaml file named by
// RECONCILE_CONFIG, falling back to built-in defaults when unset.
func LoadConfig() (Config, error) {
	cfg := Config{
		Defaults: SiteConfig{
			Thresholds: validation.DefaultThresholds(),
			Columns: map[string]aggregation.ColumnRule{
				"kwh": {Included: true, Operation: aggregation.OpSum, Factor: 1},
				"kva": {Included: true, Operation: aggregation.OpMax, Factor: 1},
			},
			ExportDir: filepath.FromSlash("var/reports/reconciliation"),
		},
	}

	if path := os.Getenv("RECONCILE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if cfg.Defaults.Thresholds == (validation.Thresholds{}) {
		cfg.Defaults.Thresholds = validation.DefaultThresholds()
	}
	return cfg, nil
}

// ForSite resolves the effective config for a site, overlaying the site's
// overrides on the defaults.
func (c Config) ForSite(siteID string) SiteConfig {
	effective := c.Defaults
	site, ok := c.Sites[siteID]
	if !ok {
		return effective
	}
	if site.Thresholds != (validation.Thresholds{}) {
		effective.Thresholds = site.Thresholds
	}
	if len(site.Columns) > 0 {
		effective.Columns = site.Columns
	}
	if len(site.IndentLevels) > 0 {
		effective.IndentLevels = site.IndentLevels
	}
	if site.ExportDir != "" {
		effective.ExportDir = site.ExportDir
	}
	return effective
}

// Settings converts the configured column rules into engine settings.
func (sc SiteConfig) Settings() aggregation.Settings {
	return aggregation.Settings{Columns: sc.Columns}.Clone()
}
