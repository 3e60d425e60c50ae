package fluentzip

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func collectPaths(tree *FolderTree) []string {
	var paths []string
	for node := range tree.EnumerateSubtree(tree.Root()) {
		paths = append(paths, node.FullPath)
	}
	return paths
}

func TestEnsurePathIdempotent(t *testing.T) {
	t.Parallel()

	tree := NewFolderTree()
	first := tree.EnsurePath("a/b/c")
	require.Equal(t, "c", first.Name)
	require.Equal(t, "a/b/c", first.FullPath)
	require.Equal(t, 3, tree.Len())

	second := tree.EnsurePath("a/b/c")
	require.Same(t, first, second)
	require.Equal(t, 3, tree.Len())

	require.Same(t, tree.Root(), tree.EnsurePath(""))
	require.Same(t, tree.FindByFullPath("a"), tree.EnsurePath("a"))
}

func TestEnsurePathOrderIndependent(t *testing.T) {
	t.Parallel()

	paths := []string{"x/y", "a", "a/b", "x", "a/b", "x/y/z", "a"}
	want := []string{"", "a", "a/b", "x", "x/y", "x/y/z"}

	forward := NewFolderTree()
	for _, p := range paths {
		forward.EnsurePath(p)
	}
	reverse := NewFolderTree()
	for _, p := range slices.Backward(paths) {
		reverse.EnsurePath(p)
	}

	for _, tree := range []*FolderTree{forward, reverse} {
		got := collectPaths(tree)
		slices.Sort(got)
		require.Equal(t, want, got)
		require.Equal(t, len(want)-1, tree.Len())
	}
}

func TestEnsurePathCaseInsensitiveChildren(t *testing.T) {
	t.Parallel()

	tree := NewFolderTree()
	docs := tree.EnsurePath("Docs")
	require.Same(t, docs, tree.EnsurePath("docs"))
	require.Len(t, tree.Root().Children(), 1)

	// 首次出现的大小写胜出
	child := tree.EnsurePath("DOCS/img")
	require.Equal(t, "Docs/img", child.FullPath)
}

func TestFindByFullPath(t *testing.T) {
	t.Parallel()

	tree := NewFolderTree()
	tree.EnsurePath("a/b/c")
	tree.EnsurePath("ab")

	require.Same(t, tree.Root(), tree.FindByFullPath(""))
	require.Equal(t, "a/b", tree.FindByFullPath("a/b").FullPath)
	require.Equal(t, "ab", tree.FindByFullPath("ab").FullPath)
	require.Nil(t, tree.FindByFullPath("a/b/c/d"))
	require.Nil(t, tree.FindByFullPath("b"))
}

func TestParentIndex(t *testing.T) {
	t.Parallel()

	tree := NewFolderTree()
	tree.EnsurePath("a/b")

	parent, ok := tree.Parent("a/b")
	require.True(t, ok)
	require.Equal(t, "a", parent)

	parent, ok = tree.Parent("a")
	require.True(t, ok)
	require.Equal(t, "", parent)

	_, ok = tree.Parent("")
	require.False(t, ok)
}

func TestEnumerateSubtreeRestartable(t *testing.T) {
	t.Parallel()

	tree := NewFolderTree()
	tree.EnsurePath("a/b")
	tree.EnsurePath("a/c")
	tree.EnsurePath("d")

	want := []string{"", "a", "a/b", "a/c", "d"}
	require.Equal(t, want, collectPaths(tree))
	require.Equal(t, want, collectPaths(tree))

	var sub []string
	for node := range tree.EnumerateSubtree(tree.FindByFullPath("a")) {
		sub = append(sub, node.FullPath)
	}
	require.Equal(t, []string{"a", "a/b", "a/c"}, sub)

	// 提前停止
	var firstTwo []string
	for node := range tree.EnumerateSubtree(tree.Root()) {
		firstTwo = append(firstTwo, node.FullPath)
		if len(firstTwo) == 2 {
			break
		}
	}
	require.Equal(t, []string{"", "a"}, firstTwo)

	for range tree.EnumerateSubtree(nil) {
		t.Fatal("nil node yields nothing")
	}
}
