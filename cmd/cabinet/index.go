package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ZanzyTHEbar/file-cabinet/cabinet/config"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/ingest"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/storage"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/trees"

	"github.com/spf13/cobra"
)

const (
	storeFlag  = "store"
	prefixFlag = "prefix"
	dirFlag    = "dir"
	extFlag    = "ext"
	fromFlag   = "from"
	toFlag     = "to"
)

var addCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Index one or more files",
	Long: `Add registers files in both index trees and persists the result to the
catalog. With --store the file contents are also written to the content
vault, compressed when that pays off.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runAdd,
}

var findCmd = &cobra.Command{
	Use:   "find <name>",
	Short: "Look up a file by its exact name",
	Args:  cobra.ExactArgs(1),
	Run:   runFind,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed files in path order",
	Long: `List walks the ordered tree and prints entries sorted by path. The
selection can be narrowed to a path range, a directory's direct children,
a path prefix, or a set of extensions.`,
	Args: cobra.NoArgs,
	Run:  runList,
}

func init() {
	addCmd.Flags().Bool(storeFlag, false, "store file contents in the vault")

	listCmd.Flags().String(prefixFlag, "", "only paths under this prefix")
	listCmd.Flags().String(dirFlag, "", "only direct children of this directory")
	listCmd.Flags().StringSlice(extFlag, nil, "only these extensions, e.g. .txt,.pdf")
	listCmd.Flags().String(fromFlag, "", "range start path (inclusive)")
	listCmd.Flags().String(toFlag, "", "range end path (inclusive)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(listCmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	cat, index := openIndex(cmd)
	defer cat.Close()

	store, _ := cmd.Flags().GetBool(storeFlag)

	var vault *storage.Vault
	if store {
		vault = openVault(cmd)
		defer vault.Close()
	}

	for _, path := range args {
		info, err := os.Stat(path)
		ExitOnErr(cmd, "stat input: %w", err)
		if info.IsDir() {
			ExitOnErr(cmd, "", fmt.Errorf("%s is a directory, use the scan command", path))
		}

		entry := trees.NewEntry(path, info.Size())
		entry.ModifiedAt = info.ModTime()
		if config.AppConfig.Cabinet.Ingest.ExtractExif && ingest.IsImageExtension(entry.Extension) {
			entry.CapturedAt = ingest.CaptureTime(path)
		}

		if store {
			data, err := os.ReadFile(path)
			ExitOnErr(cmd, "read input: %w", err)

			ref, compressed, err := vault.Put(data)
			ExitOnErr(cmd, "store content: %w", err)
			entry.StoredAt = ref
			entry.Compressed = compressed
		}

		ExitOnErr(cmd, "index entry: %w", index.IndexFile(entry))
		term.Output(fmt.Sprintf("indexed %s", entry.Path))
	}

	ExitOnErr(cmd, "persist index: %w", cat.SaveIndex(index))
}

func runFind(cmd *cobra.Command, args []string) {
	cat, index := openIndex(cmd)
	defer cat.Close()

	entry, err := index.FindByName(args[0])
	ExitOnErr(cmd, "", err)

	printEntries([]*trees.Entry{entry})
}

func runList(cmd *cobra.Command, args []string) {
	cat, index := openIndex(cmd)
	defer cat.Close()

	prefix, _ := cmd.Flags().GetString(prefixFlag)
	dir, _ := cmd.Flags().GetString(dirFlag)
	exts, _ := cmd.Flags().GetStringSlice(extFlag)
	from, _ := cmd.Flags().GetString(fromFlag)
	to, _ := cmd.Flags().GetString(toFlag)

	var entries []*trees.Entry
	switch {
	case dir != "":
		entries = index.ListDirectory(dir)
	case prefix != "":
		entries = index.ListByPrefix(prefix)
	case len(exts) > 0:
		entries = index.FindByExtension(exts...)
	case from != "" || to != "":
		if from == "" || to == "" {
			ExitOnErr(cmd, "", fmt.Errorf("--%s and --%s must be used together", fromFlag, toFlag))
		}
		entries = index.ListRange(from, to)
	default:
		entries = index.ListAll()
	}

	if len(entries) == 0 {
		term.Output("no entries")
		return
	}
	printEntries(entries)
}

func printEntries(entries []*trees.Entry) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		stored := "-"
		if e.StoredAt != "" {
			stored = e.StoredAt
		}
		rows = append(rows, []string{
			e.Name,
			e.Path,
			strconv.FormatInt(e.Size, 10),
			e.Extension,
			yesNo(e.Compressed),
			stored,
		})
	}
	term.Table([]string{"Name", "Path", "Size", "Ext", "Compressed", "Stored"}, rows)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
