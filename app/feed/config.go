package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/firewatch/geofeed/app/source"
)

// Config describes one watched feed source. The name is derived from the
// config filename (without the .yml extension).
type Config struct {
	Name     string
	URL      string         `yaml:"url"`
	Format   string         `yaml:"format"`
	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled      bool     `yaml:"enabled"`
	ScanInterval int      `yaml:"scan_interval"` // seconds
	RadiusKm     float64  `yaml:"radius_km"`
	Categories   []string `yaml:"categories"`
	Timeout      int      `yaml:"timeout"` // seconds
}

type ConfigCache struct {
	watchesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(watchesDir string) *ConfigCache {
	return &ConfigCache{
		watchesDir: watchesDir,
		cache:      make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.watchesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.watchesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		watchName := fileName[:len(fileName)-4] // Remove .yml extension

		config, err := cc.LoadConfig(watchName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "source", watchName, "enabled", config.Settings.Enabled,
			"scan_interval", config.Settings.ScanInterval, "radius_km", config.Settings.RadiusKm)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(watchName string) (*Config, error) {
	configFile := cc.getConfigFilePath(watchName)
	watchConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	// Set source name from parameter
	watchConfig.Name = watchName

	if err := cc.validateConfig(watchConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[watchConfig.Name] = watchConfig

	return watchConfig, nil
}

func (cc *ConfigCache) GetConfig(watchName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	watchConfig, ok := cc.cache[watchName]
	if !ok {
		return nil, fmt.Errorf("watch config with name '%s' not found", watchName)
	}
	return watchConfig, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var watchConfig Config
	if err := yaml.Unmarshal(data, &watchConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if watchConfig.Format == "" {
		watchConfig.Format = source.FormatGeoJSON
	}
	if watchConfig.Settings.ScanInterval == 0 {
		watchConfig.Settings.ScanInterval = 300
	}
	if watchConfig.Settings.RadiusKm == 0 {
		watchConfig.Settings.RadiusKm = 20.0
	}
	if watchConfig.Settings.Timeout == 0 {
		watchConfig.Settings.Timeout = 15
	}

	return &watchConfig, nil
}

func (cc *ConfigCache) validateConfig(watchConfig *Config) error {
	if watchConfig == nil {
		return fmt.Errorf("watchConfig is nil")
	}

	requiredFields := map[string]string{
		"source name": watchConfig.Name,
		"source URL":  watchConfig.URL,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if watchConfig.Format != source.FormatGeoJSON && watchConfig.Format != source.FormatGeoRSS {
		return fmt.Errorf("invalid format: %s", watchConfig.Format)
	}

	if watchConfig.Settings.ScanInterval < 0 {
		return fmt.Errorf("scan interval must be non-negative")
	}
	if watchConfig.Settings.RadiusKm < 0 {
		return fmt.Errorf("radius must be non-negative")
	}
	if watchConfig.Settings.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	for _, category := range watchConfig.Settings.Categories {
		if !source.IsValidCategory(category) {
			return fmt.Errorf("invalid category: %s (valid: %v)", category, source.ValidCategories)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(watchName string) string {
	return filepath.Join(cc.watchesDir, watchName+".yml")
}
