package fluentzip

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// RemoveDuplicateStrings 去除重复项，保持首次出现的顺序
func RemoveDuplicateStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}
	return result
}

// tempName 生成 fz_<prefix><uuid><ext> 形式的临时文件名
func tempName(prefix, ext string) string {
	id := uuid.New()
	return fmt.Sprintf("fz_%s%x%s", prefix, id[:], ext)
}

// ensureDirectoryExists 确保目录存在
func ensureDirectoryExists(dirPath string) error {
	if dirPath == "" {
		return nil
	}
	return os.MkdirAll(dirPath, 0o755)
}

// removeIfExists 删除文件，不存在时不报错
func removeIfExists(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("remove %s: %w", path, err)
}

// copyFile 把 src 复制为新文件 dst 并落盘，dst 已存在时失败
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// absPath 返回绝对路径，失败时原样返回
func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// systemJunkFiles 操作系统生成的附属文件（小写）
var systemJunkFiles = map[string]struct{}{
	"thumbs.db":    {},
	"desktop.ini":  {},
	".ds_store":    {},
	"__macosx":     {},
	".appledouble": {},
	".lsoverride":  {},
}

// isSystemJunkFile 添加目录时跳过的系统附属文件
func isSystemJunkFile(filename string) bool {
	_, junk := systemJunkFiles[strings.ToLower(filepath.Base(filename))]
	return junk
}
