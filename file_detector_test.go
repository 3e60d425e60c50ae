package fluentzip

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectFromBytes(t *testing.T) {
	t.Parallel()

	d := NewFormatDetector()
	tests := []struct {
		name string
		data []byte
		want ArchiveFormat
	}{
		{"zip local header", []byte("PK\x03\x04rest"), FormatZip},
		{"empty zip", []byte("PK\x05\x06"), FormatZip},
		{"rar4", []byte("Rar!\x1a\x07\x00"), FormatRar},
		{"rar5", []byte("Rar!\x1a\x07\x01\x00"), FormatRar},
		{"7z", []byte("7z\xbc\xaf\x27\x1c\x00\x04"), FormatSevenZip},
		{"short", []byte("PK"), FormatUnsupported},
		{"gzip", []byte{0x1f, 0x8b, 0x08}, FormatUnsupported},
		{"nil", nil, FormatUnsupported},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, d.DetectFromBytes(tt.data), tt.name)
	}
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, data, 0o644))
		return p
	}

	d := NewFormatDetector()
	tests := []struct {
		path string
		want ArchiveFormat
	}{
		// 魔数优先于扩展名
		{write("renamed.zip", []byte("7z\xbc\xaf\x27\x1c\x00\x04")), FormatSevenZip},
		{write("disguised.bin", []byte("Rar!\x1a\x07\x01\x00")), FormatRar},
		{write("sfx.ZIP", []byte("MZ\x90\x00")), FormatZip},
		{write("empty.7z", nil), FormatSevenZip},
		{write("notes.txt", []byte("hello")), FormatUnsupported},
	}
	for _, tt := range tests {
		got, err := d.DetectFormat(tt.path)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, tt.path)
	}

	_, err := d.DetectFormat(filepath.Join(dir, "missing.zip"))
	require.True(t, IsErrorType(err, ErrNotFound))
}

func TestFormatCapabilities(t *testing.T) {
	t.Parallel()

	require.True(t, FormatZip.Writable())
	require.True(t, FormatZip.Deletable())
	require.True(t, FormatSevenZip.Writable())
	require.True(t, FormatSevenZip.Deletable())
	require.False(t, FormatRar.Writable())
	require.False(t, FormatRar.Deletable())
	require.False(t, FormatUnsupported.Writable())
	require.False(t, ArchiveFormat("tar").Deletable())

	require.Equal(t, FormatRar, FormatFromExtension("/x/Y.RAR"))
	require.Equal(t, FormatUnsupported, FormatFromExtension("archive"))
}
