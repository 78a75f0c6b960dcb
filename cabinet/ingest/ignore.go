package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	internal "github.com/ZanzyTHEbar/file-cabinet/cabinet"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreChecker reports whether a path is excluded from ingestion.
type IgnoreChecker interface {
	MatchesPath(path string) bool
}

// LoadIgnoreFile loads the default ignore file for a directory. A missing
// file yields a nil checker, which excludes nothing.
func LoadIgnoreFile(dir string) (IgnoreChecker, error) {
	return LoadIgnoreFileNamed(dir, internal.DefaultIgnoreFile)
}

// LoadIgnoreFileNamed loads ignore patterns from a named file inside dir.
func LoadIgnoreFileNamed(dir, name string) (IgnoreChecker, error) {
	ignorePath := filepath.Join(dir, name)

	if _, err := os.Stat(ignorePath); err == nil {
		ignored, err := ignore.CompileIgnoreFile(ignorePath)
		if err != nil {
			return nil, fmt.Errorf("error reading %s file: %w", name, err)
		}
		return ignored, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("error checking for %s file: %w", name, err)
	}

	return nil, nil
}
