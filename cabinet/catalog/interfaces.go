package catalog

import (
	"database/sql"

	"github.com/ZanzyTHEbar/file-cabinet/cabinet/trees"
)

// ICatalog is the interface for catalog persistence operations
type ICatalog interface {
	Connect(dsn string) (*sql.DB, error)
	Close() error
	InitSchema() error
	// Identity and metadata
	CatalogID() (string, error)
	SetMeta(key, value string) error
	GetMeta(key string) (string, error)
	// Entry methods
	SaveEntry(entry *trees.Entry) error
	GetEntry(path string) (*trees.Entry, error)
	CountEntries() (int64, error)
	// Index methods
	SaveIndex(index *trees.MultiIndex) error
	LoadIndex(opts ...trees.IndexOption) (*trees.MultiIndex, error)
	// Backup method
	Backup() (string, error)
}

var _ ICatalog = (*Catalog)(nil)
