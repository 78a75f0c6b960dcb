package internal

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	// DefaultConfigPath is the default path to the config file
	DefaultAppName          = "cabinet"
	DefaultAppCMDShortCut   = "cab"
	DefaultConfigPath       = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultCacheDir         = filepath.Join(DefaultConfigPath, ".cache")
	DefaultVaultDir         = filepath.Join(DefaultConfigPath, "vault")
	DefaultCatalogPath      = filepath.Join(DefaultConfigPath, "catalog.db")
	DefaultIgnoreFile       = ".cabinetignore"
	DefaultGlobalConfigFile = filepath.Join(DefaultConfigPath, "config.yaml")

	// Default Database settings
	DefaultCatalogDSN  = "" // empty selects DefaultCatalogPath under the config directory
	DefaultCatalogType = "sqlite3"

	// Default B+ tree fan-out for the ordered index
	DefaultTreeOrder = 32
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current working directory if home directory is unavailable
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			// Last resort - use tmp directory
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
