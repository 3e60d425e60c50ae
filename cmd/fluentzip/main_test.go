package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	fluentzip "github.com/SUlTlUS/FluentZip"
)

// setupWorkspace writes a sample archive and a config pointing at temp dirs.
func setupWorkspace(t *testing.T) (archivePath, configPath string) {
	t.Helper()
	dir := t.TempDir()

	archivePath = filepath.Join(dir, "sample.zip")
	out, err := os.Create(archivePath)
	require.NoError(t, err)
	w := zip.NewWriter(out)
	for _, entry := range [][2]string{
		{"docs/a.txt", "alpha"},
		{"docs/b.txt", "bravo"},
		{"img/c.png", "png"},
		{"readme.md", "hello"},
	} {
		f, err := w.Create(entry[0])
		require.NoError(t, err)
		_, err = f.Write([]byte(entry[1]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, out.Close())

	configPath = filepath.Join(dir, "config.yaml")
	config := "recent_file: " + filepath.Join(dir, "recent.yaml") + "\ntemp_dir: " + dir + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o600))
	return archivePath, configPath
}

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestCommands(t *testing.T) {
	archivePath, configPath := setupWorkspace(t)

	out, err := run(t, configPath, "ls", archivePath, "docs")
	require.NoError(t, err)
	require.Contains(t, out, "a.txt")
	require.Contains(t, out, "b.txt")

	out, err = run(t, configPath, "search", archivePath, "TXT")
	require.NoError(t, err)
	require.Equal(t, "docs/a.txt\ndocs/b.txt\n", out)

	_, err = run(t, configPath, "search", archivePath, "nothing-like-this")
	require.True(t, fluentzip.IsErrorType(err, fluentzip.ErrNoMatch))

	local := filepath.Join(t.TempDir(), "new.txt")
	require.NoError(t, os.WriteFile(local, []byte("new"), 0o644))
	out, err = run(t, configPath, "add", archivePath, local, "--to", "docs")
	require.NoError(t, err)
	require.Contains(t, out, "archive now has 5 files")

	out, err = run(t, configPath, "rm", archivePath, "docs")
	require.NoError(t, err)
	require.Equal(t, "removed 3 files\n", out)

	out, err = run(t, configPath, "recent")
	require.NoError(t, err)
	require.Contains(t, out, archivePath)

	out, err = run(t, configPath, "recent", "--forget", archivePath)
	require.NoError(t, err)
	require.NotContains(t, out, archivePath)

	out, err = run(t, configPath, "config")
	require.NoError(t, err)
	require.Contains(t, out, "recent_file: "+filepath.Join(filepath.Dir(configPath), "recent.yaml"))

	_, err = run(t, configPath, "ls", filepath.Join(t.TempDir(), "missing.zip"))
	require.Equal(t, 3, exitCode(err))
	require.Contains(t, describeError(err), "not found: ")

	_, err = run(t, configPath, "ls", archivePath, "no-such-folder")
	require.Equal(t, "nothing matched: no-such-folder", describeError(err))
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{fluentzip.NewArchiveError(fluentzip.ErrNotFound, "x", "", nil), 3},
		{fluentzip.NewArchiveError(fluentzip.ErrFormatUnsupported, "x", "", nil), 4},
		{fluentzip.NewArchiveError(fluentzip.ErrNoMatch, "x", "", nil), 5},
		{fluentzip.NewArchiveError(fluentzip.ErrCancelled, "x", "", context.Canceled), 130},
		{fluentzip.NewArchiveError(fluentzip.ErrToolFailure, "x", "", nil), 1},
		{errors.New("plain"), 1},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, exitCode(tt.err), tt.err.Error())
	}
}

func TestTrimSlash(t *testing.T) {
	t.Parallel()

	require.Equal(t, "docs", trimSlash("docs//"))
	require.Equal(t, "", trimSlash("/"))
	require.Equal(t, "a/b", trimSlash("a/b"))
}

func TestDescribeError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "not found",
			err:  fluentzip.NewArchiveError(fluentzip.ErrNotFound, "压缩包不存在", "/a.zip", os.ErrNotExist),
			want: "not found: /a.zip: file does not exist",
		},
		{
			name: "tool exit",
			err: fluentzip.NewArchiveError(fluentzip.ErrToolFailure, "7-Zip退出码 2", "/a.7z",
				&fluentzip.ToolExitError{Code: 2, Stderr: "E_FAIL"}),
			want: "7-Zip failed: /a.7z: exit status 2: E_FAIL",
		},
		{
			name: "cancelled",
			err:  fluentzip.NewArchiveError(fluentzip.ErrCancelled, "操作已取消", "/a.zip", context.Canceled),
			want: "cancelled: /a.zip",
		},
		{
			name: "no path",
			err:  fluentzip.NewArchiveError(fluentzip.ErrNoMatch, "nothing matched", "", nil),
			want: "nothing matched",
		},
		{
			name: "plain",
			err:  errors.New("unknown flag: --bogus"),
			want: "unknown flag: --bogus",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, describeError(tt.err))
		})
	}
}
