package fluentzip

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	encryptedzip "github.com/yeka/zip"
)

func newTestEngine() *ZipMutationEngine {
	return NewZipMutationEngine(MutationOptions{})
}

func requireNoTempFiles(t *testing.T, archivePath string) {
	t.Helper()
	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(archivePath), "fz_*"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestRewriteRemoveAndAdd(t *testing.T) {
	t.Parallel()

	archivePath := writeTestZip(t, "",
		zipFile{"docs/a.txt", "alpha"},
		zipFile{"docs/b.txt", "bravo"},
		zipFile{"img/c.png", "png"},
	)

	var progress progressLog
	err := newTestEngine().Rewrite(context.Background(), archivePath,
		[]PendingAddition{AdditionFromBytes("docs/new.txt", []byte("hi"))},
		NewRemovalSet("docs/a.txt"),
		progress.callback())
	require.NoError(t, err)

	contents, order := readTestZip(t, archivePath)
	require.Equal(t, []string{"docs/b.txt", "img/c.png", "docs/new.txt"}, order)
	require.Equal(t, "bravo", contents["docs/b.txt"])
	require.Equal(t, "png", contents["img/c.png"])
	require.Equal(t, "hi", contents["docs/new.txt"])

	require.Equal(t, []int64{1, 2, 3}, progress.current)
	current, total := progress.last()
	require.Equal(t, total, current)
	requireNoTempFiles(t, archivePath)
}

func TestRewriteFolderRule(t *testing.T) {
	t.Parallel()

	// 零字节的 a/b 是目录标记，随目录一起删除
	archivePath := writeTestZip(t, "",
		zipFile{"a/b", ""},
		zipFile{"a/b/x.txt", "x"},
		zipFile{"a/b/y/z.txt", "z"},
		zipFile{"a/bc.txt", "keep"},
		zipFile{"top.txt", "keep"},
	)

	err := newTestEngine().Rewrite(context.Background(), archivePath,
		[]PendingAddition{
			AdditionFromBytes("a/b/late.txt", []byte("swallowed")),
			AdditionFromBytes("a/other.txt", []byte("kept")),
		},
		NewRemovalSet("a/b/"),
		nil)
	require.NoError(t, err)

	contents, order := readTestZip(t, archivePath)
	require.Equal(t, []string{"a/bc.txt", "top.txt", "a/other.txt"}, order)
	require.Equal(t, "kept", contents["a/other.txt"])
}

func TestRewriteFolderRuleKeepsSameNamedFile(t *testing.T) {
	t.Parallel()

	archivePath := writeTestZip(t, "",
		zipFile{"a/b", "real content"},
		zipFile{"a/b/x.txt", "x"},
		zipFile{"keep.txt", "keep"},
	)

	err := newTestEngine().Rewrite(context.Background(), archivePath, nil, NewRemovalSet("a/b/"), nil)
	require.NoError(t, err)

	contents, order := readTestZip(t, archivePath)
	require.Equal(t, []string{"a/b", "keep.txt"}, order)
	require.Equal(t, "real content", contents["a/b"])
}

func TestRewriteOverwrite(t *testing.T) {
	t.Parallel()

	archivePath := writeTestZip(t, "", zipFile{"docs/a.txt", "old"}, zipFile{"b.txt", "b"})

	// 没有精确删除时原条目优先
	err := newTestEngine().Rewrite(context.Background(), archivePath,
		[]PendingAddition{AdditionFromBytes("docs/a.txt", []byte("ignored"))}, NewRemovalSet(), nil)
	require.NoError(t, err)
	contents, _ := readTestZip(t, archivePath)
	require.Equal(t, "old", contents["docs/a.txt"])

	err = newTestEngine().Rewrite(context.Background(), archivePath,
		[]PendingAddition{AdditionFromBytes("docs/a.txt", []byte("new"))}, NewRemovalSet("docs/a.txt"), nil)
	require.NoError(t, err)
	contents, order := readTestZip(t, archivePath)
	require.Equal(t, "new", contents["docs/a.txt"])
	require.Equal(t, []string{"b.txt", "docs/a.txt"}, order)
}

func TestRewritePreservesBytesAndComment(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 64<<10)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	archivePath := writeTestZip(t, "keep me", zipFile{"bin/data.bin", string(payload)}, zipFile{"drop.txt", "x"})

	err := newTestEngine().Rewrite(context.Background(), archivePath, nil, NewRemovalSet("drop.txt"), nil)
	require.NoError(t, err)

	contents, order := readTestZip(t, archivePath)
	require.Equal(t, []string{"bin/data.bin"}, order)
	require.Equal(t, string(payload), contents["bin/data.bin"])

	raw, err := ReadZipComment(archivePath)
	require.NoError(t, err)
	require.Equal(t, "keep me", string(raw))
}

func TestRewriteDropsDirectoryEntries(t *testing.T) {
	t.Parallel()

	archivePath := writeTestZip(t, "", zipFile{"empty/", ""}, zipFile{"a.txt", "a"})

	var progress progressLog
	err := newTestEngine().Rewrite(context.Background(), archivePath, nil, NewRemovalSet(), progress.callback())
	require.NoError(t, err)

	_, order := readTestZip(t, archivePath)
	require.Equal(t, []string{"a.txt"}, order)
	require.Equal(t, []int64{1}, progress.current)
	require.Equal(t, []int64{1}, progress.total)
}

func TestRewriteEmptyResult(t *testing.T) {
	t.Parallel()

	archivePath := writeTestZip(t, "", zipFile{"a.txt", "a"})

	var progress progressLog
	err := newTestEngine().Rewrite(context.Background(), archivePath, nil, NewRemovalSet("a.txt"), progress.callback())
	require.NoError(t, err)

	_, order := readTestZip(t, archivePath)
	require.Empty(t, order)
	require.Equal(t, []int64{0}, progress.current)
	require.Equal(t, []int64{0}, progress.total)
}

func TestRewriteFailureLeavesSourceUntouched(t *testing.T) {
	t.Parallel()

	failing := PendingAddition{
		Key: "broken.txt",
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("disk unplugged")
		},
	}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name      string
		ctx       context.Context
		additions []PendingAddition
		want      ErrorType
	}{
		{"addition open fails", context.Background(), []PendingAddition{failing}, ErrIOFailure},
		{"cancelled", cancelled, []PendingAddition{AdditionFromBytes("n.txt", []byte("n"))}, ErrCancelled},
		{"traversal key", context.Background(), []PendingAddition{AdditionFromBytes("../evil.txt", []byte("x"))}, ErrInvalidPath},
		{"missing content", context.Background(), []PendingAddition{{Key: "nil.txt"}}, ErrInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			archivePath := writeTestZip(t, "", zipFile{"a.txt", "alpha"}, zipFile{"b.txt", "bravo"})
			before := fileHash(t, archivePath)

			err := newTestEngine().Rewrite(tt.ctx, archivePath, tt.additions, NewRemovalSet("a.txt"), nil)
			require.True(t, IsErrorType(err, tt.want), "got %v", err)
			require.Equal(t, before, fileHash(t, archivePath))
			requireNoTempFiles(t, archivePath)
		})
	}
}

func TestRewriteMissingArchive(t *testing.T) {
	t.Parallel()

	err := newTestEngine().Rewrite(context.Background(), filepath.Join(t.TempDir(), "gone.zip"), nil, NewRemovalSet("a"), nil)
	require.True(t, IsErrorType(err, ErrNotFound))
}

func TestRewriteCopiesEncryptedEntriesRaw(t *testing.T) {
	t.Parallel()

	archivePath := filepath.Join(t.TempDir(), "secret.zip")
	out, err := os.Create(archivePath)
	require.NoError(t, err)
	w := encryptedzip.NewWriter(out)
	secret, err := w.Encrypt("secret.txt", "golang", encryptedzip.AES256Encryption)
	require.NoError(t, err)
	_, err = secret.Write([]byte("top secret"))
	require.NoError(t, err)
	plain, err := w.Create("plain.txt")
	require.NoError(t, err)
	_, err = plain.Write([]byte("public"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, out.Close())

	err = newTestEngine().Rewrite(context.Background(), archivePath,
		[]PendingAddition{AdditionFromBytes("added.txt", []byte("new"))}, NewRemovalSet("plain.txt"), nil)
	require.NoError(t, err)

	r, err := encryptedzip.OpenReader(archivePath)
	require.NoError(t, err)
	defer r.Close()
	require.Len(t, r.File, 2)

	f := r.File[0]
	require.Equal(t, "secret.txt", f.Name)
	require.True(t, f.IsEncrypted())
	f.SetPassword("golang")
	rc, err := f.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	require.Equal(t, "top secret", string(data))
	require.Equal(t, "added.txt", r.File[1].Name)
}
