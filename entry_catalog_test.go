package fluentzip

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func fileEntry(key string, size int64) *FileEntry {
	return &FileEntry{
		Name:       BaseName(key),
		ParentPath: ParentKey(key),
		Key:        key,
		Size:       size,
	}
}

func buildIndex(keys ...string) (*FolderTree, *EntryCatalog) {
	tree := NewFolderTree()
	entries := make([]*FileEntry, 0, len(keys))
	for _, key := range keys {
		tree.EnsurePath(ParentKey(key))
		entries = append(entries, fileEntry(key, 1))
	}
	catalog := NewEntryCatalog()
	catalog.Rebuild(entries)
	return tree, catalog
}

func names(entries []*FileEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func hitPaths(hits []SearchHit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.IsFolder {
			out = append(out, h.FullPath+"/")
			continue
		}
		out = append(out, h.FullPath)
	}
	return out
}

func TestEntriesUnderIsOneLevel(t *testing.T) {
	t.Parallel()

	_, catalog := buildIndex("docs/a.txt", "docs/b.txt", "docs/deep/c.txt", "root.txt")

	require.Equal(t, []string{"a.txt", "b.txt"}, names(catalog.EntriesUnder("docs")))
	require.Equal(t, []string{"c.txt"}, names(catalog.EntriesUnder("docs/deep")))
	require.Equal(t, []string{"root.txt"}, names(catalog.EntriesUnder("")))
	require.Empty(t, catalog.EntriesUnder("missing"))
}

func TestRebuildDuplicateKeyLastWins(t *testing.T) {
	t.Parallel()

	catalog := NewEntryCatalog()
	catalog.Rebuild([]*FileEntry{
		fileEntry("a.txt", 1),
		fileEntry("b.txt", 2),
		fileEntry("a.txt", 3),
		nil,
	})

	require.Equal(t, 2, catalog.Len())
	entry, ok := catalog.Lookup("a.txt")
	require.True(t, ok)
	require.EqualValues(t, 3, entry.Size)
	require.Equal(t, []string{"a.txt", "b.txt"}, names(catalog.Entries()))
	require.Len(t, catalog.EntriesUnder(""), 2)
}

func TestSearchOrderFilesThenFolders(t *testing.T) {
	t.Parallel()

	tree, catalog := buildIndex("Report/q1.txt", "misc/report.doc", "misc/other.bin")
	tree.EnsurePath("archive/reports")

	hits := catalog.Search("REPORT", tree)
	require.Equal(t, []string{
		"Report/q1.txt",
		"misc/report.doc",
		"Report/",
		"archive/reports/",
	}, hitPaths(hits))

	require.Nil(t, catalog.Search("   ", tree))
	require.Nil(t, catalog.Search("", tree))
	require.Equal(t, []string{"Report/q1.txt", "misc/report.doc"}, hitPaths(catalog.Search("report", nil)))
}

func TestSearchMatchesFullPath(t *testing.T) {
	t.Parallel()

	tree, catalog := buildIndex("src/main/app.go")

	hits := catalog.Search("main/app", tree)
	require.Equal(t, []string{"src/main/app.go"}, hitPaths(hits))
	require.NotNil(t, hits[0].Entry)

	folderHits := catalog.Search("src/main", tree)
	require.Equal(t, []string{"src/main/app.go", "src/main/"}, hitPaths(folderHits))
	require.Nil(t, folderHits[1].Entry)
	require.Equal(t, "src", folderHits[1].ParentPath)
}

func TestSearchGlob(t *testing.T) {
	t.Parallel()

	tree, catalog := buildIndex("docs/a.txt", "docs/img/b.png", "c.txt")

	hits, err := catalog.SearchGlob("**/*.txt", tree)
	require.NoError(t, err)
	require.Equal(t, []string{"docs/a.txt", "c.txt"}, hitPaths(hits))

	hits, err = catalog.SearchGlob("docs/*", tree)
	require.NoError(t, err)
	require.Equal(t, []string{"docs/a.txt", "docs/img/"}, hitPaths(hits))

	_, err = catalog.SearchGlob("docs/[", tree)
	require.True(t, IsErrorType(err, ErrInvalidPath))
}

func TestSearchFuzzy(t *testing.T) {
	t.Parallel()

	_, catalog := buildIndex("cmd/main.go", "docs/readme.md", "internal/manager.go")

	hits := catalog.SearchFuzzy("mgo")
	require.NotEmpty(t, hits)
	for _, h := range hits {
		require.False(t, h.IsFolder)
		require.NotEqual(t, "docs/readme.md", h.FullPath)
	}
	require.Nil(t, catalog.SearchFuzzy(" "))
}

func TestRebuildIsAtomicForReaders(t *testing.T) {
	t.Parallel()

	small := []*FileEntry{fileEntry("a/1", 1)}
	large := []*FileEntry{fileEntry("b/1", 1), fileEntry("b/2", 1), fileEntry("b/3", 1)}
	catalog := NewEntryCatalog()
	catalog.Rebuild(small)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if i%2 == 0 {
				catalog.Rebuild(large)
			} else {
				catalog.Rebuild(small)
			}
		}
	}()

	for i := 0; i < 500; i++ {
		entries := catalog.Entries()
		require.Contains(t, []int{1, 3}, len(entries))
		// 同一快照内的条目不会混合
		prefix := entries[0].Key[:1]
		for _, e := range entries {
			require.Equal(t, prefix, e.Key[:1])
		}
	}
	wg.Wait()
}

func TestFileEntryDisplay(t *testing.T) {
	t.Parallel()

	e := &FileEntry{CRC: 0xBEEF, Attributes: 0x21}
	require.Equal(t, "0x0000BEEF", e.CRCString())
	require.Equal(t, "RA", e.AttributeString())

	empty := &FileEntry{}
	require.Equal(t, "-", empty.CRCString())
	require.Equal(t, "-", empty.AttributeString())
}
