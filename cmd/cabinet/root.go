package main

import (
	"fmt"
	"log/slog"
	"os"

	internal "github.com/ZanzyTHEbar/file-cabinet/cabinet"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/catalog"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/config"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/ports"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/storage"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/trees"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Global scope flags.
var (
	cfgFile string
	verbose bool

	term ports.Interactor = ports.NewTerminal()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   internal.DefaultAppName,
	Short: "Keep a compressed, searchable cabinet of your files",
	Long: `Cabinet indexes files into two coordinated trees: a balanced name tree
for exact lookups and an ordered tree for range listings. File contents can
be stored compressed in a content vault, and the whole index persists to a
local catalog database between runs.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		fmt.Sprintf("config file (default is %s)", internal.DefaultGlobalConfigFile))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	logger := internal.GetLogger()

	if _, err := config.LoadConfig(cfgFile); err != nil {
		logger.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug().Str("path", used).Msg("configuration loaded")
	}
}

// appLogger returns the logger handed to library components, honoring the
// global verbose flag.
func appLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openIndex connects to the configured catalog and rebuilds the in-memory
// index from it. The caller owns the returned catalog handle.
func openIndex(cmd *cobra.Command) (*catalog.Catalog, *trees.MultiIndex) {
	cfg := config.AppConfig.Cabinet

	cat, err := catalog.NewCatalog(cfg.Catalog.DSN)
	ExitOnErr(cmd, "open catalog: %w", err)

	opts := []trees.IndexOption{trees.WithLogger(appLogger())}
	if cfg.Index.Order > 0 {
		opts = append(opts, trees.WithOrder(cfg.Index.Order))
	}
	if cfg.Index.StrictInserts {
		opts = append(opts, trees.WithStrictInserts())
	}

	index, err := cat.LoadIndex(opts...)
	if err != nil {
		cat.Close()
		ExitOnErr(cmd, "load index: %w", err)
	}
	return cat, index
}

// openVault opens the content vault with the configured codec and cache.
func openVault(cmd *cobra.Command) *storage.Vault {
	cfg := config.AppConfig.Cabinet

	opts := []storage.VaultOption{
		storage.WithMinCompressBytes(cfg.Compression.MinFileBytes),
		storage.WithVaultLogger(appLogger()),
	}

	if cfg.Compression.Zstd.Enabled {
		codec, err := storage.NewZstdCodec(cfg.Compression.Zstd.Level)
		ExitOnErr(cmd, "init zstd codec: %w", err)
		opts = append(opts, storage.WithVaultCodec(codec))
	}

	if cache, err := storage.NewCache(cfg.Cache.MaxBytes, cfg.Cache.NumCounters); err == nil {
		opts = append(opts, storage.WithVaultCache(cache))
	}

	vault, err := storage.NewVault(cfg.VaultDir, opts...)
	ExitOnErr(cmd, "open vault: %w", err)
	return vault
}
