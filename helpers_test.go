package fluentzip

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/xxh3"
)

// zipFile 测试用条目
type zipFile struct {
	name string
	body string
}

// writeTestZip 在临时目录中生成ZIP并返回路径
func writeTestZip(t *testing.T, comment string, files ...zipFile) string {
	t.Helper()

	archivePath := filepath.Join(t.TempDir(), "sample.zip")
	out, err := os.Create(archivePath)
	require.NoError(t, err)
	defer out.Close()

	w := zip.NewWriter(out)
	for _, f := range files {
		method := zip.Deflate
		if f.body == "" {
			method = zip.Store
		}
		entry, err := w.CreateHeader(&zip.FileHeader{Name: f.name, Method: method})
		require.NoError(t, err)
		_, err = entry.Write([]byte(f.body))
		require.NoError(t, err)
	}
	if comment != "" {
		require.NoError(t, w.SetComment(comment))
	}
	require.NoError(t, w.Close())
	return archivePath
}

// readTestZip 读出全部条目内容，键为条目名
func readTestZip(t *testing.T, archivePath string) (map[string]string, []string) {
	t.Helper()

	r, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	defer r.Close()

	contents := make(map[string]string, len(r.File))
	order := make([]string, 0, len(r.File))
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		contents[f.Name] = string(data)
		order = append(order, f.Name)
	}
	return contents, order
}

// fileHash 文件内容的xxh3摘要，用于确认文件未被改动
func fileHash(t *testing.T, path string) uint64 {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return xxh3.Hash(data)
}

// progressLog 记录进度回调
type progressLog struct {
	current []int64
	total   []int64
}

func (p *progressLog) callback() ProgressCallback {
	return func(current, total int64, _ string) {
		p.current = append(p.current, current)
		p.total = append(p.total, total)
	}
}

func (p *progressLog) last() (int64, int64) {
	if len(p.current) == 0 {
		return -1, -1
	}
	return p.current[len(p.current)-1], p.total[len(p.total)-1]
}
