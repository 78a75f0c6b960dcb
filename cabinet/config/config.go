package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/file-cabinet/cabinet"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Cabinet CabinetConfig `mapstructure:"cabinet"`
}

// CabinetConfig stores cabinet specific configurations.
type CabinetConfig struct {
	TargetDir          string            `mapstructure:"targetDir"`
	CacheDir           string            `mapstructure:"cacheDir"`
	VaultDir           string            `mapstructure:"vaultDir"`
	Index              IndexConfig       `mapstructure:"index"`
	Compression        CompressionConfig `mapstructure:"compression"`
	Catalog            CatalogConfig     `mapstructure:"catalog"`
	Cache              CacheConfig       `mapstructure:"cache"`
	Ingest             IngestConfig      `mapstructure:"ingest"`
	ScanTimeoutMinutes int               `mapstructure:"scanTimeoutMinutes"`
}

// IndexConfig stores the in-memory index settings. Order is fixed for the
// life of the index and persisted alongside the catalog.
type IndexConfig struct {
	Order         int  `mapstructure:"order"`
	StrictInserts bool `mapstructure:"strictInserts"`
}

// CompressionConfig stores the store-side codec settings.
type CompressionConfig struct {
	MinFileBytes int64      `mapstructure:"minFileBytes"`
	Zstd         ZstdConfig `mapstructure:"zstd"`
}

// ZstdConfig enables the alternative zstd codec for vault writes.
type ZstdConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Level   int  `mapstructure:"level"`
}

// CatalogConfig stores catalog database connection details.
type CatalogConfig struct {
	DSN  string `mapstructure:"dsn"`
	Type string `mapstructure:"type"`
}

// CacheConfig stores the read-through vault cache settings.
type CacheConfig struct {
	MaxBytes    int64 `mapstructure:"maxBytes"`
	NumCounters int64 `mapstructure:"numCounters"`
}

// IngestConfig stores directory scan settings.
type IngestConfig struct {
	Workers     int    `mapstructure:"workers"`
	MaxDepth    int    `mapstructure:"maxDepth"`
	IgnoreFile  string `mapstructure:"ignoreFile"`
	ExtractExif bool   `mapstructure:"extractExif"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("..")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Set default values
	viper.SetDefault("cabinet.targetDir", ".")
	viper.SetDefault("cabinet.cacheDir", internal.DefaultCacheDir)
	viper.SetDefault("cabinet.vaultDir", internal.DefaultVaultDir)
	viper.SetDefault("cabinet.index.order", internal.DefaultTreeOrder)
	viper.SetDefault("cabinet.index.strictInserts", false)
	viper.SetDefault("cabinet.compression.minFileBytes", 64)
	viper.SetDefault("cabinet.compression.zstd.enabled", false)
	viper.SetDefault("cabinet.compression.zstd.level", 3)
	viper.SetDefault("cabinet.catalog.dsn", internal.DefaultCatalogDSN)
	viper.SetDefault("cabinet.catalog.type", internal.DefaultCatalogType)
	viper.SetDefault("cabinet.cache.maxBytes", 64<<20)
	viper.SetDefault("cabinet.cache.numCounters", 1_000_000)
	viper.SetDefault("cabinet.ingest.workers", 8)
	viper.SetDefault("cabinet.ingest.maxDepth", 0)
	viper.SetDefault("cabinet.ingest.ignoreFile", internal.DefaultIgnoreFile)
	viper.SetDefault("cabinet.ingest.extractExif", true)
	viper.SetDefault("cabinet.scanTimeoutMinutes", 10)

	viper.AutomaticEnv()                                   // Read in environment variables that match
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // Replace dots with underscores in env var names e.g. cabinet.index.order becomes CABINET_INDEX_ORDER

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; defaults will be used. This is not an
			// error for the application to halt on.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	err := viper.Unmarshal(&AppConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}
