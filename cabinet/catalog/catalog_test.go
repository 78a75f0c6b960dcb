package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/file-cabinet/cabinet/trees"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCatalogIntegration tests the actual Catalog implementation against a
// real database file
func TestCatalogIntegration(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "cabinet_test_catalog_*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	cat, err := NewCatalog(filepath.Join(tempDir, "test_catalog.db"))
	require.NoError(t, err)
	defer cat.Close()

	t.Run("CatalogID", func(t *testing.T) {
		id, err := cat.CatalogID()
		require.NoError(t, err)

		parsed, err := uuid.Parse(id)
		require.NoError(t, err, "Catalog identity should be a valid UUID")
		assert.NotEqual(t, uuid.Nil, parsed)

		// The identity is stamped once and never changes
		again, err := cat.CatalogID()
		require.NoError(t, err)
		assert.Equal(t, id, again)
	})

	t.Run("MetaRoundTrip", func(t *testing.T) {
		require.NoError(t, cat.SetMeta("flavor", "huffman"))

		value, err := cat.GetMeta("flavor")
		require.NoError(t, err)
		assert.Equal(t, "huffman", value)

		// Replacing a key keeps the latest value
		require.NoError(t, cat.SetMeta("flavor", "zstd"))
		value, err = cat.GetMeta("flavor")
		require.NoError(t, err)
		assert.Equal(t, "zstd", value)

		_, err = cat.GetMeta("never-set")
		assert.Error(t, err)
	})

	t.Run("EntryRoundTrip", func(t *testing.T) {
		entry := trees.NewEntry("/docs/manual.pdf", 4096)
		entry.Compressed = true
		entry.StoredAt = "/vault/ab/1234"
		entry.ModifiedAt = time.Now()

		require.NoError(t, cat.SaveEntry(entry))

		loaded, err := cat.GetEntry("/docs/manual.pdf")
		require.NoError(t, err)
		assert.Equal(t, entry.Path, loaded.Path)
		assert.Equal(t, entry.Name, loaded.Name)
		assert.Equal(t, entry.Size, loaded.Size)
		assert.True(t, loaded.Compressed)
		assert.Equal(t, entry.StoredAt, loaded.StoredAt)
		assert.Equal(t, ".pdf", loaded.Extension)
		assert.WithinDuration(t, entry.ModifiedAt, loaded.ModifiedAt, time.Second)
		assert.True(t, loaded.CapturedAt.IsZero(), "Unset timestamps stay zero through a round trip")
	})

	t.Run("EntryUpsert", func(t *testing.T) {
		first := trees.NewEntry("/docs/draft.txt", 10)
		require.NoError(t, cat.SaveEntry(first))

		second := trees.NewEntry("/docs/draft.txt", 999)
		require.NoError(t, cat.SaveEntry(second))

		loaded, err := cat.GetEntry("/docs/draft.txt")
		require.NoError(t, err)
		assert.Equal(t, int64(999), loaded.Size, "Upsert should replace the previous row")
	})

	t.Run("EntryMiss", func(t *testing.T) {
		_, err := cat.GetEntry("/no/such/file")
		assert.ErrorIs(t, err, trees.ErrKeyNotFound)
	})

	t.Run("MalformedEntryRejected", func(t *testing.T) {
		err := cat.SaveEntry(&trees.Entry{Name: "", Path: "/bad"})
		assert.ErrorIs(t, err, trees.ErrMalformedKey)
	})

	t.Run("CountEntries", func(t *testing.T) {
		count, err := cat.CountEntries()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, int64(2), "Earlier subtests persisted entries")
	})

	t.Run("Backup", func(t *testing.T) {
		backupPath, err := cat.Backup()
		require.NoError(t, err)
		assert.NotEmpty(t, backupPath)

		// Verify backup file exists
		_, err = os.Stat(backupPath)
		assert.NoError(t, err)
		os.Remove(backupPath)
	})
}

// TestCatalogIndexPersistence tests the save and rebuild cycle for the full
// index
func TestCatalogIndexPersistence(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "cabinet_test_index_*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	cat, err := NewCatalog(filepath.Join(tempDir, "index_catalog.db"))
	require.NoError(t, err)
	defer cat.Close()

	t.Run("EmptyCatalogYieldsEmptyIndex", func(t *testing.T) {
		index, err := cat.LoadIndex()
		require.NoError(t, err)
		assert.Equal(t, int64(0), index.Size())
		assert.Equal(t, trees.DefaultOrder, index.Order(), "No persisted order falls back to the default")
	})

	t.Run("SaveAndRebuild", func(t *testing.T) {
		original, err := trees.NewMultiIndex(trees.WithOrder(4))
		require.NoError(t, err)

		paths := []string{
			"/music/song.mp3",
			"/docs/a.txt",
			"/docs/b.txt",
			"/photos/cat.jpg",
			"/photos/dog.jpg",
		}
		for i, path := range paths {
			entry := trees.NewEntry(path, int64(100*(i+1)))
			entry.ModifiedAt = time.Now()
			if i%2 == 0 {
				entry.Compressed = true
				entry.StoredAt = "/vault/stub"
			}
			require.NoError(t, original.IndexFile(entry))
		}

		require.NoError(t, cat.SaveIndex(original))

		// Rebuild and compare: the stored order beats caller options
		rebuilt, err := cat.LoadIndex(trees.WithOrder(16))
		require.NoError(t, err)
		assert.Equal(t, 4, rebuilt.Order(), "Persisted tree order wins over caller options")
		assert.Equal(t, original.Size(), rebuilt.Size())

		wantAll := original.ListAll()
		gotAll := rebuilt.ListAll()
		require.Len(t, gotAll, len(wantAll))
		for i := range wantAll {
			assert.Equal(t, wantAll[i].Path, gotAll[i].Path, "Rebuilt listing order at position %d", i)
			assert.Equal(t, wantAll[i].Compressed, gotAll[i].Compressed)
			assert.Equal(t, wantAll[i].StoredAt, gotAll[i].StoredAt)
		}

		// Every query surface works on the rebuilt index
		entry, err := rebuilt.FindByName("cat.jpg")
		require.NoError(t, err)
		assert.Equal(t, "/photos/cat.jpg", entry.Path)

		assert.Len(t, rebuilt.FindByExtension(".jpg"), 2)
		assert.Len(t, rebuilt.ListDirectory("/docs"), 2)
		assert.Empty(t, rebuilt.Validate())
	})

	t.Run("SaveReplacesPreviousState", func(t *testing.T) {
		smaller, err := trees.NewMultiIndex(trees.WithOrder(4))
		require.NoError(t, err)
		require.NoError(t, smaller.IndexFile(trees.NewEntry("/only/file.txt", 1)))

		require.NoError(t, cat.SaveIndex(smaller))

		count, err := cat.CountEntries()
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "Save must replace, not append")

		rebuilt, err := cat.LoadIndex()
		require.NoError(t, err)
		assert.Equal(t, int64(1), rebuilt.Size())
	})
}
