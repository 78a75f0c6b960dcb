package trees

import (
	"fmt"
	"sync"
	"testing"
	"time"

	assertlib "github.com/ZanzyTHEbar/assert-lib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiIndex(t *testing.T) {
	tests := []struct {
		name string
		test func(t *testing.T)
	}{
		{"CoordinatedIndexing", testMICoordinatedIndexing},
		{"AtomicRejection", testMIAtomicRejection},
		{"StrictDuplicates", testMIStrictDuplicates},
		{"SharedNamesAcrossDirectories", testMISharedNames},
		{"UpdateMovesExtensionBit", testMIUpdateExtension},
		{"RangeQueries", testMIRangeQueries},
		{"DirectoryAndPrefixQueries", testMIDirectoryQueries},
		{"ExtensionQueries", testMIExtensionQueries},
		{"ConcurrentAccess", testMIConcurrentAccess},
		{"StatsTracking", testMIStatsTracking},
		{"ClearResets", testMIClearResets},
		{"AssertHandlerIntegration", testMIAssertHandler},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.test)
	}
}

func testMICoordinatedIndexing(t *testing.T) {
	mi, err := NewMultiIndex(WithOrder(4))
	require.NoError(t, err)
	assert.Equal(t, 4, mi.Order())

	paths := []string{
		"/home/user/notes.txt",
		"/home/user/photos/trip.jpg",
		"/home/user/photos/cat.jpg",
		"/var/log/system.log",
		"/home/user/archive.tar",
	}
	for i, path := range paths {
		require.NoError(t, mi.IndexFile(createTestEntry(path, int64(100*(i+1)))), "Should index %q", path)
	}

	assert.Equal(t, int64(5), mi.Size())

	// Exact-name lookup routes to the name tree
	entry, err := mi.FindByName("notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "/home/user/notes.txt", entry.Path)

	_, err = mi.FindByName("missing.txt")
	assert.ErrorIs(t, err, ErrKeyNotFound, "A miss is a normal outcome, not a failure")

	// Full listing routes to the ordered tree and comes back path-sorted
	all := mi.ListAll()
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Path, all[i].Path, "Listing order at position %d", i)
	}

	nameHeight, orderedHeight := mi.Heights()
	assert.Greater(t, nameHeight, 0)
	assert.Greater(t, orderedHeight, 0)
	assert.Empty(t, mi.Validate(), "All member indexes should agree")
}

func testMIAtomicRejection(t *testing.T) {
	mi, err := NewMultiIndex(WithOrder(4))
	require.NoError(t, err)

	seed := createTestEntry("/ok/seed.txt", 1)
	require.NoError(t, mi.IndexFile(seed))

	// Each rejected entry must leave every member index untouched
	rejects := []*Entry{
		nil,
		{Name: "", Path: "/bad/unnamed"},
		{Name: "orphan.txt", Path: ""},
		{Name: "   ", Path: "/bad/blank"},
	}
	for i, bad := range rejects {
		err := mi.IndexFile(bad)
		assert.ErrorIs(t, err, ErrMalformedKey, "Reject case %d", i)
	}

	assert.Equal(t, int64(1), mi.Size(), "Rejections must not change the index")
	assert.Len(t, mi.ListAll(), 1)

	_, err = mi.FindByName("orphan.txt")
	assert.ErrorIs(t, err, ErrKeyNotFound, "No partial registration may survive a rejection")
	assert.Empty(t, mi.ListByPrefix("/bad"), "No path fragments may survive a rejection")
	assert.Empty(t, mi.Validate())
}

func testMIStrictDuplicates(t *testing.T) {
	mi, err := NewMultiIndex(WithOrder(4), WithStrictInserts())
	require.NoError(t, err)

	require.NoError(t, mi.IndexFile(createTestEntry("/docs/spec.txt", 10)))

	// Same path again
	err = mi.IndexFile(createTestEntry("/docs/spec.txt", 20))
	assert.ErrorIs(t, err, ErrDuplicateKey, "Strict mode rejects a re-used path")

	// Same name under another directory
	err = mi.IndexFile(createTestEntry("/backup/spec.txt", 10))
	assert.ErrorIs(t, err, ErrDuplicateKey, "Strict mode rejects a re-used name")

	assert.Equal(t, int64(1), mi.Size(), "Rejected duplicates must not be registered")

	entry, err := mi.FindByName("spec.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(10), entry.Size, "The original entry survives unchanged")

	// A genuinely new key is still accepted
	require.NoError(t, mi.IndexFile(createTestEntry("/docs/notes.md", 5)))
	assert.Equal(t, int64(2), mi.Size())
	assert.Empty(t, mi.Validate())
}

func testMISharedNames(t *testing.T) {
	mi, err := NewMultiIndex(WithOrder(4))
	require.NoError(t, err)

	older := createTestEntry("/2023/report.pdf", 100)
	newer := createTestEntry("/2024/report.pdf", 200)
	require.NoError(t, mi.IndexFile(older))
	require.NoError(t, mi.IndexFile(newer))

	// Two paths, one shared filename: the ordered tree keeps both, the
	// name tree resolves to the most recently indexed one
	assert.Equal(t, int64(2), mi.Size())

	entry, err := mi.FindByName("report.pdf")
	require.NoError(t, err)
	assert.Same(t, newer, entry)

	all := mi.ListAll()
	require.Len(t, all, 2)
	assert.Equal(t, "/2023/report.pdf", all[0].Path)
	assert.Equal(t, "/2024/report.pdf", all[1].Path)
	assert.Empty(t, mi.Validate())
}

func testMIUpdateExtension(t *testing.T) {
	mi, err := NewMultiIndex(WithOrder(4))
	require.NoError(t, err)

	require.NoError(t, mi.IndexFile(createTestEntry("/media/holiday.jpg", 2048)))
	require.Len(t, mi.FindByExtension(".jpg"), 1)

	// Re-indexing the same path with a new stored form must move the
	// bitmap bit, not duplicate it
	converted := createTestEntry("/media/holiday.jpg", 512)
	converted.Extension = ".avif"
	converted.Compressed = true
	require.NoError(t, mi.IndexFile(converted))

	assert.Equal(t, int64(1), mi.Size(), "Update in place must not grow the index")
	assert.Empty(t, mi.FindByExtension(".jpg"), "Old extension bit should be dropped")

	hits := mi.FindByExtension(".avif")
	require.Len(t, hits, 1)
	assert.Same(t, converted, hits[0])
	assert.Empty(t, mi.Validate())
}

func testMIRangeQueries(t *testing.T) {
	mi, err := NewMultiIndex(WithOrder(4))
	require.NoError(t, err)

	for i := 0; i < 26; i++ {
		path := fmt.Sprintf("/library/%c.txt", 'a'+i)
		require.NoError(t, mi.IndexFile(createTestEntry(path, int64(i))))
	}

	got := mi.ListRange("/library/f.txt", "/library/j.txt")
	require.Len(t, got, 5, "Range bounds are inclusive")
	assert.Equal(t, "/library/f.txt", got[0].Path)
	assert.Equal(t, "/library/j.txt", got[4].Path)

	assert.Empty(t, mi.ListRange("/library/zz", "/library/zzz"), "Empty range is a normal outcome")

	// The lazy form can stop early and resume from the last key seen
	it := mi.Scan("/library/a.txt", "/library/z.txt")
	var last string
	for i := 0; i < 10; i++ {
		entry, ok := it.Next()
		require.True(t, ok)
		last = entry.Path
	}
	require.NoError(t, mi.IndexFile(createTestEntry("/library/zz.txt", 1)),
		"A parked iterator must not block the writer")

	resumed := mi.ListRange(last, "/library/z.txt")
	require.NotEmpty(t, resumed)
	assert.Equal(t, last, resumed[0].Path, "Resume repeats the pivot key")
	assert.Len(t, resumed, 17, "Resume covers the rest of the range")
}

func testMIDirectoryQueries(t *testing.T) {
	mi, err := NewMultiIndex(WithOrder(4))
	require.NoError(t, err)

	paths := []string{
		"/projects/readme.md",
		"/projects/todo.txt",
		"/projects/app/main.go",
		"/projects/app/util.go",
		"/projects/app/deep/nested.go",
		"/other/file.txt",
	}
	for _, path := range paths {
		require.NoError(t, mi.IndexFile(createTestEntry(path, 1)))
	}

	// Direct children only: files below subdirectories are excluded
	children := mi.ListDirectory("/projects")
	require.Len(t, children, 2)
	assert.Equal(t, "/projects/readme.md", children[0].Path)
	assert.Equal(t, "/projects/todo.txt", children[1].Path)

	// Prefix queries reach the whole subtree
	subtree := mi.ListByPrefix("/projects")
	assert.Len(t, subtree, 5)

	assert.Empty(t, mi.ListDirectory("/nonexistent"))
	assert.Empty(t, mi.ListByPrefix("/nonexistent"))
}

func testMIExtensionQueries(t *testing.T) {
	mi, err := NewMultiIndex(WithOrder(4))
	require.NoError(t, err)

	paths := []string{
		"/mix/a.txt", "/mix/b.txt", "/mix/c.md",
		"/mix/d.jpg", "/mix/e.JPG", "/mix/plain",
	}
	for _, path := range paths {
		require.NoError(t, mi.IndexFile(createTestEntry(path, 1)))
	}

	assert.Len(t, mi.FindByExtension(".txt"), 2)
	assert.Len(t, mi.FindByExtension(".md"), 1)
	assert.Len(t, mi.FindByExtension(".jpg"), 2, "Extension matching is case-insensitive")
	assert.Len(t, mi.FindByExtension(".txt", ".md"), 3, "Multiple extensions union their hits")
	assert.Empty(t, mi.FindByExtension(".zip"))
	assert.Empty(t, mi.FindByExtension())
}

func testMIConcurrentAccess(t *testing.T) {
	mi, err := NewMultiIndex(WithOrder(8))
	require.NoError(t, err)

	const writers = 4
	const perWriter = 50

	var wg sync.WaitGroup
	errCh := make(chan error, writers*perWriter)

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				path := fmt.Sprintf("/concurrent/w%d/file%03d.txt", w, i)
				if err := mi.IndexFile(createTestEntry(path, int64(i))); err != nil {
					errCh <- err
				}
			}
		}(w)
	}

	// Readers hammer every query path while the writers run
	for r := 0; r < writers; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				mi.FindByName(fmt.Sprintf("file%03d.txt", i%perWriter))
				mi.ListRange("/concurrent/w0", "/concurrent/w9")
				mi.ListDirectory(fmt.Sprintf("/concurrent/w%d", r))
				mi.FindByExtension(".txt")
			}
		}(r)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("Concurrent insert failed: %v", err)
	}

	assert.Equal(t, int64(writers*perWriter), mi.Size())
	assert.Empty(t, mi.Validate(), "Invariants should hold after concurrent load")
}

func testMIStatsTracking(t *testing.T) {
	mi, err := NewMultiIndex(WithOrder(4))
	require.NoError(t, err)

	require.NoError(t, mi.IndexFile(createTestEntry("/s/a.txt", 1)))
	require.NoError(t, mi.IndexFile(createTestEntry("/s/b.txt", 2)))
	require.NoError(t, mi.IndexFile(createTestEntry("/s/c.md", 3)))

	mi.FindByName("a.txt")
	mi.FindByName("missing")
	mi.ListRange("/s/a.txt", "/s/c.md")
	mi.ListAll()
	mi.ListDirectory("/s")
	mi.FindByExtension(".txt")

	stats := mi.GetStats()
	assert.Equal(t, int64(9), stats.TotalOperations)
	assert.Equal(t, int64(2), stats.NameQueries)
	assert.Equal(t, int64(2), stats.RangeQueries)
	assert.Equal(t, int64(1), stats.DirectoryQueries)
	assert.Equal(t, int64(1), stats.ExtensionQueries)
}

func testMIClearResets(t *testing.T) {
	mi, err := NewMultiIndex(WithOrder(4))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, mi.IndexFile(createTestEntry(fmt.Sprintf("/c/file%d.txt", i), 1)))
	}
	require.Equal(t, int64(10), mi.Size())

	mi.Clear()

	assert.Equal(t, int64(0), mi.Size())
	assert.Empty(t, mi.ListAll())
	assert.Empty(t, mi.FindByExtension(".txt"))
	assert.Equal(t, 4, mi.Order(), "Clear keeps the configured order")

	_, err = mi.FindByName("file3.txt")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Empty(t, mi.Validate())

	// The cleared coordinator accepts new entries
	require.NoError(t, mi.IndexFile(createTestEntry("/c/fresh.txt", 1)))
	assert.Equal(t, int64(1), mi.Size())
}

func testMIAssertHandler(t *testing.T) {
	mi, err := NewMultiIndex(WithOrder(4), WithAssertHandler(assertlib.NewAssertHandler()))
	require.NoError(t, err)

	// With assertions armed, a healthy sequence of mutations stays silent
	for i := 0; i < 20; i++ {
		require.NoError(t, mi.IndexFile(createTestEntry(fmt.Sprintf("/armed/f%02d.txt", i), 1)))
	}
	require.NoError(t, mi.IndexFile(createTestEntry("/armed/f00.txt", 99)))

	assert.Equal(t, int64(20), mi.Size())
	assert.Empty(t, mi.Validate())
}

// createTestEntry builds an entry with deterministic metadata for index tests
func createTestEntry(path string, size int64) *Entry {
	entry := NewEntry(path, size)
	entry.ModifiedAt = time.Unix(1700000000, 0).UTC()
	return entry
}

// Benchmark tests for performance validation

func BenchmarkMultiIndexInsert(b *testing.B) {
	mi, _ := NewMultiIndex()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mi.IndexFile(createTestEntry(fmt.Sprintf("/bench/file%09d.txt", i), 1))
	}
}

func BenchmarkMultiIndexFindByName(b *testing.B) {
	mi, _ := NewMultiIndex()
	for i := 0; i < 10000; i++ {
		mi.IndexFile(createTestEntry(fmt.Sprintf("/bench/file%05d.txt", i), 1))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mi.FindByName(fmt.Sprintf("file%05d.txt", i%10000))
	}
}

func BenchmarkMultiIndexListRange(b *testing.B) {
	mi, _ := NewMultiIndex()
	for i := 0; i < 10000; i++ {
		mi.IndexFile(createTestEntry(fmt.Sprintf("/bench/file%05d.txt", i), 1))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mi.ListRange("/bench/file02000.txt", "/bench/file02100.txt")
	}
}
