package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/file-cabinet/cabinet/config"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/ingest"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory and keep the index current",
	Long: `Watch re-indexes files as they are created or written, persisting the
index to the catalog in the background. Removed files stay indexed until
the next scan rebuilds the index. Stop with ctrl-c.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	cfg := config.AppConfig.Cabinet

	target := cfg.TargetDir
	if len(args) > 0 {
		target = args[0]
	}

	cat, index := openIndex(cmd)
	defer cat.Close()

	watcher, err := ingest.NewWatcher(index, ingest.WithWatchLogger(appLogger()))
	ExitOnErr(cmd, "create watcher: %w", err)
	defer watcher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ExitOnErr(cmd, "watch: %w", watcher.Start(ctx, target))
	term.Output(fmt.Sprintf("watching %s, press ctrl-c to stop", target))

	dirty := false
	saveTicker := time.NewTicker(5 * time.Second)
	defer saveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			if dirty {
				if err := cat.SaveIndex(index); err != nil {
					term.Error("persist index", err)
				}
			}
			term.Output("watch stopped")
			return

		case path := <-watcher.Indexed():
			dirty = true
			term.Output(fmt.Sprintf("indexed %s", path))

		case <-saveTicker.C:
			if !dirty {
				continue
			}
			if err := cat.SaveIndex(index); err != nil {
				term.Error("persist index", err)
				continue
			}
			dirty = false
		}
	}
}
