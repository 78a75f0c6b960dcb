package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/file-cabinet/cabinet/config"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/ingest"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "Walk a directory tree and index every file in it",
	Long: `Scan traverses a directory breadth-first with a bounded worker pool and
indexes every file it finds. Per-directory ignore files are honored, and
capture timestamps are pulled from EXIF data when enabled. The defaults
come from the configured target directory.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) {
	cfg := config.AppConfig.Cabinet

	target := cfg.TargetDir
	if len(args) > 0 {
		target = args[0]
	}

	cat, index := openIndex(cmd)
	defer cat.Close()

	scanner := ingest.NewScanner(
		ingest.WithWorkers(cfg.Ingest.Workers),
		ingest.WithMaxDepth(cfg.Ingest.MaxDepth),
		ingest.WithExifExtraction(cfg.Ingest.ExtractExif),
		ingest.WithIgnoreFileName(cfg.Ingest.IgnoreFile),
		ingest.WithScannerLogger(appLogger()),
	)

	ctx := context.Background()
	if cfg.ScanTimeoutMinutes > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.ScanTimeoutMinutes)*time.Minute)
		defer cancel()
	}

	term.StartSpinner(fmt.Sprintf("scanning %s", target))
	stats, err := scanner.Scan(ctx, target, index)
	if err != nil {
		term.StopSpinner(false, "scan aborted")
		ExitOnErr(cmd, "scan: %w", err)
	}
	term.StopSpinner(true, fmt.Sprintf("indexed %d files from %d directories in %s",
		stats.FilesIndexed, stats.DirsProcessed, stats.Duration.Round(time.Millisecond)))

	if stats.FilesIgnored > 0 {
		term.Output(fmt.Sprintf("skipped %d ignored paths", stats.FilesIgnored))
	}
	if stats.ErrorsFound > 0 {
		term.Warning(fmt.Sprintf("%d paths could not be indexed", stats.ErrorsFound))
	}

	ExitOnErr(cmd, "persist index: %w", cat.SaveIndex(index))
	term.Output(fmt.Sprintf("catalog now holds %d entries", index.Size()))
}
