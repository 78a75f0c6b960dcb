package trees

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Entry represents one indexed file or directory. It is the unit of storage
// shared by every member index: the name tree keys it by Name, the ordered
// tree and path index by Path.
type Entry struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	StoredAt   string    `json:"storedAt,omitempty"`
	Extension  string    `json:"extension,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt"`
	CapturedAt time.Time `json:"capturedAt,omitempty"`
}

// NewEntry builds an entry from a path, deriving the name and extension.
func NewEntry(path string, size int64) *Entry {
	normalized := NormalizePath(path)
	return &Entry{
		Name:      filepath.Base(normalized),
		Path:      normalized,
		Size:      size,
		Extension: strings.ToLower(filepath.Ext(normalized)),
	}
}

// Validate reports whether the entry can be indexed. Both keys must be
// non-empty; the path must survive normalization.
func (e *Entry) Validate() error {
	if e == nil {
		return fmt.Errorf("nil entry: %w", ErrMalformedKey)
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("empty name for path %q: %w", e.Path, ErrMalformedKey)
	}
	if strings.TrimSpace(e.Path) == "" {
		return fmt.Errorf("empty path for name %q: %w", e.Name, ErrMalformedKey)
	}
	return nil
}

// NormalizePath gives every ordering key the same shape: forward slashes,
// cleaned of . and .. elements, no trailing slash except the root itself.
func NormalizePath(path string) string {
	// First replace backslashes with forward slashes (for Windows paths)
	normalized := strings.ReplaceAll(path, "\\", "/")

	normalized = filepath.ToSlash(filepath.Clean(normalized))

	// Remove trailing slash unless it's the root
	if len(normalized) > 1 && strings.HasSuffix(normalized, "/") {
		normalized = strings.TrimSuffix(normalized, "/")
	}

	return normalized
}
