package config

import (
	"os"
	"path/filepath"
	"testing"

	internal "github.com/ZanzyTHEbar/file-cabinet/cabinet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	// Save original directory
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	// Create temporary directory for testing
	tempDir, err := os.MkdirTemp("", "cabinet-config-test-*")
	require.NoError(suite.T(), err)
	suite.tempDir = tempDir

	// Change to temp directory so the search path never finds a real config
	err = os.Chdir(tempDir)
	require.NoError(suite.T(), err)
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}

	if suite.tempDir != "" {
		os.RemoveAll(suite.tempDir)
	}
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), ".", cfg.Cabinet.TargetDir)
	assert.Equal(suite.T(), internal.DefaultCacheDir, cfg.Cabinet.CacheDir)
	assert.Equal(suite.T(), internal.DefaultVaultDir, cfg.Cabinet.VaultDir)
	assert.Equal(suite.T(), internal.DefaultTreeOrder, cfg.Cabinet.Index.Order)
	assert.False(suite.T(), cfg.Cabinet.Index.StrictInserts)
	assert.Equal(suite.T(), internal.DefaultCatalogDSN, cfg.Cabinet.Catalog.DSN)
	assert.Equal(suite.T(), internal.DefaultCatalogType, cfg.Cabinet.Catalog.Type)
	assert.Equal(suite.T(), int64(64), cfg.Cabinet.Compression.MinFileBytes)
	assert.False(suite.T(), cfg.Cabinet.Compression.Zstd.Enabled)
	assert.Equal(suite.T(), 8, cfg.Cabinet.Ingest.Workers)
	assert.Equal(suite.T(), internal.DefaultIgnoreFile, cfg.Cabinet.Ingest.IgnoreFile)
	assert.Equal(suite.T(), 10, cfg.Cabinet.ScanTimeoutMinutes)
}

func (suite *ConfigTestSuite) TestLoadConfigWithFile() {
	configContent := `
cabinet:
  targetDir: "./test-target"
  cacheDir: "./test-cache"
  vaultDir: "./test-vault"
  index:
    order: 8
    strictInserts: true
  compression:
    minFileBytes: 128
    zstd:
      enabled: true
      level: 7
  catalog:
    dsn: "test.db"
    type: "sqlite3"
  ingest:
    workers: 2
    maxDepth: 3
    extractExif: false
  scanTimeoutMinutes: 5
`

	configFile := filepath.Join(suite.tempDir, "config.yaml")
	err := os.WriteFile(configFile, []byte(configContent), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), "./test-target", cfg.Cabinet.TargetDir)
	assert.Equal(suite.T(), "./test-cache", cfg.Cabinet.CacheDir)
	assert.Equal(suite.T(), "./test-vault", cfg.Cabinet.VaultDir)
	assert.Equal(suite.T(), 8, cfg.Cabinet.Index.Order)
	assert.True(suite.T(), cfg.Cabinet.Index.StrictInserts)
	assert.Equal(suite.T(), int64(128), cfg.Cabinet.Compression.MinFileBytes)
	assert.True(suite.T(), cfg.Cabinet.Compression.Zstd.Enabled)
	assert.Equal(suite.T(), 7, cfg.Cabinet.Compression.Zstd.Level)
	assert.Equal(suite.T(), "test.db", cfg.Cabinet.Catalog.DSN)
	assert.Equal(suite.T(), 2, cfg.Cabinet.Ingest.Workers)
	assert.Equal(suite.T(), 3, cfg.Cabinet.Ingest.MaxDepth)
	assert.False(suite.T(), cfg.Cabinet.Ingest.ExtractExif)
	assert.Equal(suite.T(), 5, cfg.Cabinet.ScanTimeoutMinutes)
}

func (suite *ConfigTestSuite) TestLoadConfigInvalidFile() {
	// An explicit path that does not exist is an error, unlike the search
	// path fallback
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigMalformedFile() {
	malformedContent := `
cabinet:
  targetDir: "./test-target"
  invalid_yaml: [unclosed bracket
`

	configFile := filepath.Join(suite.tempDir, "malformed.yaml")
	err := os.WriteFile(configFile, []byte(malformedContent), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestAppConfigGlobal() {
	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	// AppConfig should be set
	assert.Equal(suite.T(), cfg.Cabinet.TargetDir, AppConfig.Cabinet.TargetDir)
	assert.Equal(suite.T(), cfg.Cabinet.Index.Order, AppConfig.Cabinet.Index.Order)
}

// TestConfigTypes tests the configuration type definitions
func TestConfigTypes(t *testing.T) {
	config := Config{}
	assert.IsType(t, CabinetConfig{}, config.Cabinet)

	cabinetConfig := CabinetConfig{}
	assert.IsType(t, IndexConfig{}, cabinetConfig.Index)
	assert.IsType(t, CompressionConfig{}, cabinetConfig.Compression)
	assert.IsType(t, CatalogConfig{}, cabinetConfig.Catalog)
	assert.IsType(t, CacheConfig{}, cabinetConfig.Cache)
	assert.IsType(t, IngestConfig{}, cabinetConfig.Ingest)

	catalogConfig := CatalogConfig{}
	assert.IsType(t, "", catalogConfig.DSN)
	assert.IsType(t, "", catalogConfig.Type)

	indexConfig := IndexConfig{}
	assert.IsType(t, 0, indexConfig.Order)
	assert.IsType(t, false, indexConfig.StrictInserts)
}

// BenchmarkLoadConfig benchmarks config loading performance
func BenchmarkLoadConfig(b *testing.B) {
	for i := 0; i < b.N; i++ {
		cfg, err := LoadConfig("")
		if err != nil {
			b.Fatal(err)
		}
		_ = cfg
	}
}
