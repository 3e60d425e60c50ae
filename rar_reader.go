package fluentzip

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/nwaples/rardecode/v2"
)

// rarSource 基于rardecode的RAR条目源
// RAR只能顺序读取，计数和遍历各自重新打开文件。
type rarSource struct {
	path     string
	password string
}

// openRarSource 打开RAR文件并确定可用密码
func openRarSource(archivePath string, opts sourceOptions) (entrySource, error) {
	s := &rarSource{path: archivePath}

	password, err := newPasswordCascade(opts.passwords).open(archivePath, func(password string) error {
		file, reader, openErr := s.open(password)
		if openErr != nil {
			return openErr
		}
		defer file.Close()
		// 读取第一个头部以确认密码可用
		if _, nextErr := reader.Next(); nextErr != nil && !errors.Is(nextErr, io.EOF) {
			return nextErr
		}
		return nil
	})
	if err != nil {
		return nil, handleRarError(err, archivePath)
	}

	s.password = password
	return s, nil
}

// open 打开文件并创建读取器
func (s *rarSource) open(password string) (*os.File, *rardecode.Reader, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, nil, err
	}

	var reader *rardecode.Reader
	if password == "" {
		reader, err = rardecode.NewReader(file)
	} else {
		reader, err = rardecode.NewReader(file, rardecode.Password(password))
	}
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	return file, reader, nil
}

// Count 顺序扫描所有头部计数
func (s *rarSource) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.scan(ctx, func(*rardecode.FileHeader) error {
		count++
		return nil
	})
	return count, err
}

// Walk 重新打开并遍历条目
func (s *rarSource) Walk(ctx context.Context, fn func(archiveEntry) error) error {
	return s.scan(ctx, func(header *rardecode.FileHeader) error {
		entry := archiveEntry{
			Key:            header.Name,
			IsDir:          header.IsDir,
			Size:           header.UnPackedSize,
			CompressedSize: header.PackedSize,
			Modified:       header.ModificationTime,
			Attributes:     uint32(header.Attributes),
			Method:         "RAR",
			Encrypted:      header.Encrypted,
			Solid:          header.Solid,
		}
		if header.Encrypted {
			entry.EncryptionMethod = "AES"
		}
		if s.password != "" {
			entry.HeaderEncrypted = true
		}
		return fn(entry)
	})
}

// scan 遍历RAR头部
func (s *rarSource) scan(ctx context.Context, fn func(*rardecode.FileHeader) error) error {
	file, reader, err := s.open(s.password)
	if err != nil {
		return handleRarError(err, s.path)
	}
	defer file.Close()

	for {
		if err := ctx.Err(); err != nil {
			return cancelledError(s.path, err)
		}
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return NewArchiveError(ErrParseFailure, "读取RAR条目失败", s.path, err)
		}
		if err := fn(header); err != nil {
			return err
		}
	}
}

// Close RAR源不持有打开的文件
func (s *rarSource) Close() error {
	return nil
}

// handleRarError 处理RAR相关错误
func handleRarError(err error, path string) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*ArchiveError); ok {
		return err
	}

	errorMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errorMsg, "no such file"):
		return NewArchiveError(ErrNotFound, "RAR文件不存在", path, err)
	case strings.Contains(errorMsg, "password"), strings.Contains(errorMsg, "encrypted"):
		return NewArchiveError(ErrParseFailure, "RAR文件需要密码", path, err)
	default:
		return NewArchiveError(ErrParseFailure, "无法解析RAR文件", path, err)
	}
}
