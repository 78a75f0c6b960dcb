package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/file-cabinet/cabinet/catalog"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/config"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/ingest"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/trees"

	"github.com/spf13/cobra"
)

const exifFlag = "exif"

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index and catalog statistics",
	Args:  cobra.NoArgs,
	Run:   runStats,
}

var infoCmd = &cobra.Command{
	Use:   "info <path>",
	Short: "Show the catalog record for a path",
	Args:  cobra.ExactArgs(1),
	Run:   runInfo,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <path>",
	Short: "Restore stored file contents from the vault",
	Args:  cobra.ExactArgs(1),
	Run:   runRestore,
}

func init() {
	infoCmd.Flags().Bool(exifFlag, false, "also print EXIF tags read from the file")
	restoreCmd.Flags().StringP(outputFlag, "o", "", "output file (default base name in current directory)")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(restoreCmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cat, index := openIndex(cmd)
	defer cat.Close()

	id, err := cat.CatalogID()
	ExitOnErr(cmd, "read catalog id: %w", err)
	count, err := cat.CountEntries()
	ExitOnErr(cmd, "count entries: %w", err)

	collector := trees.NewMetricsCollector()
	ExitOnErr(cmd, "collect metrics: %w", collector.UpdateMetrics(cmd.Context(), index))
	metrics := collector.Snapshot()

	term.Output(fmt.Sprintf("catalog %s", id))
	term.Table([]string{"Metric", "Value"}, [][]string{
		{"indexed entries", strconv.FormatInt(metrics.TotalEntries, 10)},
		{"persisted entries", strconv.FormatInt(count, 10)},
		{"total size", strconv.FormatInt(metrics.TotalSize, 10)},
		{"stored in vault", strconv.FormatInt(metrics.StoredCount, 10)},
		{"compressed", strconv.FormatInt(metrics.CompressedCount, 10)},
		{"ordered tree order", strconv.Itoa(index.Order())},
		{"name tree height", strconv.Itoa(metrics.NameTreeHeight)},
		{"ordered tree height", strconv.Itoa(metrics.OrderedHeight)},
	})
}

func runInfo(cmd *cobra.Command, args []string) {
	cat, err := catalog.NewCatalog(config.AppConfig.Cabinet.Catalog.DSN)
	ExitOnErr(cmd, "open catalog: %w", err)
	defer cat.Close()

	entry, err := cat.GetEntry(args[0])
	ExitOnErr(cmd, "", err)

	stored := "-"
	if entry.StoredAt != "" {
		stored = entry.StoredAt
	}
	captured := "-"
	if !entry.CapturedAt.IsZero() {
		captured = entry.CapturedAt.Format(time.RFC3339)
	}

	term.Table([]string{"Field", "Value"}, [][]string{
		{"name", entry.Name},
		{"path", entry.Path},
		{"size", strconv.FormatInt(entry.Size, 10)},
		{"extension", entry.Extension},
		{"compressed", yesNo(entry.Compressed)},
		{"stored ref", stored},
		{"modified", entry.ModifiedAt.Format(time.RFC3339)},
		{"captured", captured},
	})

	if withExif, _ := cmd.Flags().GetBool(exifFlag); withExif {
		tags := ingest.ExtractTags(entry.Path)
		if len(tags) == 0 {
			term.Warning("no EXIF data found")
			return
		}

		names := make([]string, 0, len(tags))
		for name := range tags {
			names = append(names, name)
		}
		sort.Strings(names)

		rows := make([][]string, 0, len(names))
		for _, name := range names {
			rows = append(rows, []string{name, tags[name]})
		}
		term.Table([]string{"Tag", "Value"}, rows)
	}
}

func runRestore(cmd *cobra.Command, args []string) {
	cat, err := catalog.NewCatalog(config.AppConfig.Cabinet.Catalog.DSN)
	ExitOnErr(cmd, "open catalog: %w", err)
	defer cat.Close()

	entry, err := cat.GetEntry(args[0])
	ExitOnErr(cmd, "", err)

	if entry.StoredAt == "" {
		ExitOnErr(cmd, "", fmt.Errorf("%s is indexed without stored contents, re-add it with --%s", entry.Path, storeFlag))
	}

	vault := openVault(cmd)
	defer vault.Close()

	data, err := vault.Get(entry.StoredAt)
	ExitOnErr(cmd, "retrieve content: %w", err)

	outPath, _ := cmd.Flags().GetString(outputFlag)
	if outPath == "" {
		outPath = filepath.Base(entry.Path)
	}
	ExitOnErr(cmd, "write output: %w", os.WriteFile(outPath, data, 0o644))

	term.Output(fmt.Sprintf("restored %s (%d bytes) to %s", entry.Path, len(data), outPath))
}
