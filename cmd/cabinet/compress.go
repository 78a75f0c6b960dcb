package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/file-cabinet/cabinet/config"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/huffman"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/storage"

	"github.com/cheggaaa/pb"
	"github.com/spf13/cobra"
)

const (
	outputFlag     = "output"
	algoFlag       = "algo"
	noProgressFlag = "no-progress"

	algoHuffman = "huffman"
	algoZstd    = "zstd"

	compressedSuffix   = ".fch"
	decompressedSuffix = "_dec"
)

var compressCmd = &cobra.Command{
	Use:   "compress <file>",
	Short: "Compress a file into a self-describing archive",
	Args:  cobra.ExactArgs(1),
	Run:   runCompress,
}

var decompressCmd = &cobra.Command{
	Use:   "decompress <file>",
	Short: "Restore a file from a compressed archive",
	Long: `Decompress restores the original bytes from an archive produced by the
compress command. The archive format is detected from its header, so both
huffman and zstd archives decompress without naming the algorithm.`,
	Args: cobra.ExactArgs(1),
	Run:  runDecompress,
}

func init() {
	compressCmd.Flags().StringP(outputFlag, "o", "", "output file (default <file>"+compressedSuffix+")")
	compressCmd.Flags().String(algoFlag, algoHuffman, "compression algorithm: huffman or zstd")
	compressCmd.Flags().Bool(noProgressFlag, false, "do not show progress bar")

	decompressCmd.Flags().StringP(outputFlag, "o", "", "output file (default strips "+compressedSuffix+", else <stem>"+decompressedSuffix+"<ext>)")
	decompressCmd.Flags().Bool(noProgressFlag, false, "do not show progress bar")

	rootCmd.AddCommand(compressCmd)
	rootCmd.AddCommand(decompressCmd)
}

func runCompress(cmd *cobra.Command, args []string) {
	inPath := args[0]
	outPath, _ := cmd.Flags().GetString(outputFlag)
	if outPath == "" {
		outPath = inPath + compressedSuffix
	}

	data := readFileWithProgress(cmd, inPath)

	var encoded []byte
	var err error

	algo, _ := cmd.Flags().GetString(algoFlag)
	switch algo {
	case algoHuffman:
		encoded, err = huffman.Compress(data)
	case algoZstd:
		codec, cerr := storage.NewZstdCodec(config.AppConfig.Cabinet.Compression.Zstd.Level)
		ExitOnErr(cmd, "init zstd codec: %w", cerr)
		defer codec.Close()
		encoded, err = codec.Encode(data)
	default:
		ExitOnErr(cmd, "", fmt.Errorf("unknown compression algorithm %q", algo))
	}
	ExitOnErr(cmd, "compress: %w", err)

	ExitOnErr(cmd, "write output: %w", os.WriteFile(outPath, encoded, 0o644))

	term.Output(fmt.Sprintf("[%s] %d -> %d bytes (%.1f%%), wrote %s",
		filepath.Base(inPath), len(data), len(encoded), ratioPercent(len(encoded), len(data)), outPath))
}

func runDecompress(cmd *cobra.Command, args []string) {
	inPath := args[0]
	outPath, _ := cmd.Flags().GetString(outputFlag)
	if outPath == "" {
		if strings.HasSuffix(inPath, compressedSuffix) {
			outPath = strings.TrimSuffix(inPath, compressedSuffix)
		} else {
			ext := filepath.Ext(inPath)
			outPath = strings.TrimSuffix(inPath, ext) + decompressedSuffix + ext
		}
	}

	data := readFileWithProgress(cmd, inPath)

	var decoded []byte
	var err error

	switch {
	case huffman.IsEncoded(data):
		decoded, err = huffman.Decompress(data)
	default:
		codec, cerr := storage.NewZstdCodec(0)
		ExitOnErr(cmd, "init zstd codec: %w", cerr)
		defer codec.Close()
		if !codec.Sniff(data) {
			ExitOnErr(cmd, "", fmt.Errorf("%s is not a recognized archive: %w", inPath, huffman.ErrCorruptStream))
		}
		decoded, err = codec.Decode(data)
	}
	ExitOnErr(cmd, "decompress: %w", err)

	ExitOnErr(cmd, "write output: %w", os.WriteFile(outPath, decoded, 0o644))

	term.Output(fmt.Sprintf("[%s] restored %d bytes, wrote %s",
		filepath.Base(inPath), len(decoded), outPath))
}

// readFileWithProgress reads a whole file, rendering a progress bar on the
// command output unless disabled.
func readFileWithProgress(cmd *cobra.Command, path string) []byte {
	f, err := os.Open(path)
	ExitOnErr(cmd, "open input: %w", err)
	defer f.Close()

	noProgress, _ := cmd.Flags().GetBool(noProgressFlag)

	var reader io.Reader = f
	var bar *pb.ProgressBar

	if fi, err := f.Stat(); err == nil && fi.Size() > 0 && !noProgress {
		bar = pb.New64(fi.Size())
		bar.Output = cmd.OutOrStdout()
		bar.Start()
		reader = bar.NewProxyReader(f)
	}

	data, err := io.ReadAll(reader)
	if bar != nil {
		bar.Finish()
	}
	ExitOnErr(cmd, "read input: %w", err)
	return data
}

func ratioPercent(stored, original int) float64 {
	if original == 0 {
		return 0
	}
	return float64(stored) / float64(original) * 100
}
