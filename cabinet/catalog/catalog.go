package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/file-cabinet/cabinet"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/trees"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"
)

const (
	metaCatalogID = "catalog_id"
	metaTreeOrder = "tree_order"
)

// Catalog persists the index so a restart can rebuild both trees without
// rescanning the filesystem. It records the ordered tree's fan-out alongside
// the entries: replaying them in ascending path order reproduces the same
// tree shape.
type Catalog struct {
	db *sql.DB
}

// ConnectToDB opens a libsql database handle for the given DSN. Plain file
// paths are wrapped in a file: URL; DSNs that already carry a scheme pass
// through untouched.
func ConnectToDB(dsn string) (*sql.DB, error) {
	url := dsn
	if !strings.HasPrefix(url, "file:") && !strings.Contains(url, "://") {
		url = "file:" + url
	}

	db, err := sql.Open("libsql", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach catalog database: %w", err)
	}
	return db, nil
}

// NewCatalog opens or initializes the catalog database. An empty DSN selects
// the default location under the config directory.
func NewCatalog(dsn string) (*Catalog, error) {
	if dsn == "" {
		// Ensure the config directory exists
		if err := os.MkdirAll(internal.DefaultConfigPath, 0o755); err != nil {
			return nil, fmt.Errorf("could not create config directory: %v", err)
		}
		dsn = internal.DefaultCatalogPath
	}

	slog.Info("Catalog database path:", "dsn", dsn)

	db, err := ConnectToDB(dsn)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{db: db}
	if err := cat.init(); err != nil {
		db.Close()
		return nil, err
	}
	if err := cat.ensureCatalogID(); err != nil {
		db.Close()
		return nil, err
	}
	return cat, nil
}

// init sets up the catalog tables.
func (c *Catalog) init() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS cabinet_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create cabinet_meta table: %w", err)
	}

	_, err = c.db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		path TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		compressed INTEGER NOT NULL DEFAULT 0,
		stored_at TEXT NOT NULL DEFAULT '',
		extension TEXT NOT NULL DEFAULT '',
		modified_at TEXT NOT NULL DEFAULT '',
		captured_at TEXT NOT NULL DEFAULT ''
	)`)
	if err != nil {
		return fmt.Errorf("failed to create entries table: %w", err)
	}

	return nil
}

// ensureCatalogID stamps a fresh catalog with a unique identity.
func (c *Catalog) ensureCatalogID() error {
	_, err := c.GetMeta(metaCatalogID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return c.SetMeta(metaCatalogID, uuid.New().String())
}

// CatalogID returns the identity stamped on this catalog at creation.
func (c *Catalog) CatalogID() (string, error) {
	return c.GetMeta(metaCatalogID)
}

// SetMeta stores a key/value pair in the metadata table, replacing any
// previous value.
func (c *Catalog) SetMeta(key, value string) error {
	_, err := c.db.Exec(`INSERT INTO cabinet_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// GetMeta retrieves a metadata value. A missing key surfaces as
// sql.ErrNoRows for callers to branch on.
func (c *Catalog) GetMeta(key string) (string, error) {
	var value string
	err := c.db.QueryRow("SELECT value FROM cabinet_meta WHERE key = ?", key).Scan(&value)
	return value, err
}

// SaveEntry upserts a single entry, keyed by its normalized path.
func (c *Catalog) SaveEntry(entry *trees.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	_, err := c.db.Exec(`INSERT INTO entries (path, name, size, compressed, stored_at, extension, modified_at, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			size = excluded.size,
			compressed = excluded.compressed,
			stored_at = excluded.stored_at,
			extension = excluded.extension,
			modified_at = excluded.modified_at,
			captured_at = excluded.captured_at`,
		trees.NormalizePath(entry.Path), entry.Name, entry.Size, boolToInt(entry.Compressed),
		entry.StoredAt, entry.Extension, formatTime(entry.ModifiedAt), formatTime(entry.CapturedAt))
	if err != nil {
		return fmt.Errorf("failed to persist entry %q: %w", entry.Path, err)
	}
	return nil
}

// GetEntry retrieves a single entry by its path.
func (c *Catalog) GetEntry(path string) (*trees.Entry, error) {
	row := c.db.QueryRow(`SELECT path, name, size, compressed, stored_at, extension, modified_at, captured_at
		FROM entries WHERE path = ?`, trees.NormalizePath(path))

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("path %q: %w", path, trees.ErrKeyNotFound)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CountEntries returns the number of persisted entries.
func (c *Catalog) CountEntries() (int64, error) {
	var count int64
	err := c.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count)
	return count, err
}

// SaveIndex replaces the persisted state with the given index: its tree
// order plus every entry it holds, written in one transaction.
func (c *Catalog) SaveIndex(index *trees.MultiIndex) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be a no-op if transaction is committed

	_, err = tx.Exec(`INSERT INTO cabinet_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaTreeOrder, strconv.Itoa(index.Order()))
	if err != nil {
		return fmt.Errorf("failed to persist tree order: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return fmt.Errorf("failed to clear stale entries: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO entries (path, name, size, compressed, stored_at, extension, modified_at, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	entries := index.ListAll()
	for _, entry := range entries {
		_, err := stmt.Exec(entry.Path, entry.Name, entry.Size, boolToInt(entry.Compressed),
			entry.StoredAt, entry.Extension, formatTime(entry.ModifiedAt), formatTime(entry.CapturedAt))
		if err != nil {
			return fmt.Errorf("failed to persist entry %q: %w", entry.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("Index persisted", "entries", len(entries), "order", index.Order())
	return nil
}

// LoadIndex rebuilds an index from the persisted state. The stored tree
// order always wins over caller options so the rebuilt ordered tree has the
// same shape parameters as the one that was saved; entries replay in
// ascending path order.
func (c *Catalog) LoadIndex(opts ...trees.IndexOption) (*trees.MultiIndex, error) {
	order := 0
	value, err := c.GetMeta(metaTreeOrder)
	switch {
	case err == nil:
		order, err = strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("stored tree order %q is not a number: %w", value, err)
		}
	case errors.Is(err, sql.ErrNoRows):
		// Nothing persisted yet; the caller's options decide the order
	default:
		return nil, err
	}
	if order > 0 {
		opts = append(opts, trees.WithOrder(order))
	}

	index, err := trees.NewMultiIndex(opts...)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.Query(`SELECT path, name, size, compressed, stored_at, extension, modified_at, captured_at
		FROM entries ORDER BY path ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if err := index.IndexFile(entry); err != nil {
			return nil, fmt.Errorf("failed to replay entry %q: %w", entry.Path, err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	slog.Info("Index rebuilt from catalog", "entries", count, "order", index.Order())
	return index, nil
}

// Backup creates a backup of the catalog database.
// It returns the path to the backup file and any error that occurred during the process.
func (c *Catalog) Backup() (string, error) {
	if c.db == nil {
		return "", fmt.Errorf("cannot backup: database connection is nil")
	}

	backupDir := filepath.Join(internal.DefaultConfigPath, "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create backup directory: %v", err)
	}

	// Generate unique backup filename with timestamp
	timestamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(backupDir, fmt.Sprintf("catalog_backup_%s.db", timestamp))

	// VACUUM INTO is SQLite specific and writes a compacted copy
	_, err := c.db.Exec(fmt.Sprintf("VACUUM INTO '%s'", backupPath))
	if err != nil {
		return "", fmt.Errorf("backup failed: %v", err)
	}

	slog.Info("Catalog backup created successfully", "path", backupPath)
	return backupPath, nil
}

// Connect implements ICatalog.Connect
func (c *Catalog) Connect(dsn string) (*sql.DB, error) {
	var err error
	c.db, err = ConnectToDB(dsn)
	return c.db, err
}

// InitSchema implements ICatalog.InitSchema
func (c *Catalog) InitSchema() error {
	return c.init()
}

// Close closes the catalog database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*trees.Entry, error) {
	var (
		entry      trees.Entry
		compressed int
		modifiedAt string
		capturedAt string
	)
	err := row.Scan(&entry.Path, &entry.Name, &entry.Size, &compressed,
		&entry.StoredAt, &entry.Extension, &modifiedAt, &capturedAt)
	if err != nil {
		return nil, err
	}

	entry.Compressed = compressed != 0
	if entry.ModifiedAt, err = parseTime(modifiedAt); err != nil {
		return nil, fmt.Errorf("failed to parse modified_at for %q: %w", entry.Path, err)
	}
	if entry.CapturedAt, err = parseTime(capturedAt); err != nil {
		return nil, fmt.Errorf("failed to parse captured_at for %q: %w", entry.Path, err)
	}
	return &entry, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
