package fluentzip

import (
	"context"
	"strings"

	"github.com/bodgit/sevenzip"
)

// sevenZipSource 基于bodgit/sevenzip的7z条目源
type sevenZipSource struct {
	path      string
	reader    *sevenzip.ReadCloser
	encrypted bool
}

// openSevenZipSource 打开7z文件，头部加密时依次尝试密码
func openSevenZipSource(archivePath string, opts sourceOptions) (entrySource, error) {

	var reader *sevenzip.ReadCloser
	usedPassword, err := newPasswordCascade(opts.passwords).open(archivePath, func(password string) error {
		var openErr error
		reader, openErr = openSevenZipWithPassword(archivePath, password)
		return openErr
	})
	if err != nil {
		return nil, handle7zError(err, archivePath)
	}

	return &sevenZipSource{
		path:      archivePath,
		reader:    reader,
		encrypted: usedPassword != "",
	}, nil
}

// openSevenZipWithPassword 使用密码打开7z文件
func openSevenZipWithPassword(archivePath, password string) (*sevenzip.ReadCloser, error) {
	if password != "" {
		return sevenzip.OpenReaderWithPassword(archivePath, password)
	}
	return sevenzip.OpenReader(archivePath)
}

// Count 返回条目总数
func (s *sevenZipSource) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, cancelledError(s.path, err)
	}
	return len(s.reader.File), nil
}

// Walk 遍历条目
func (s *sevenZipSource) Walk(ctx context.Context, fn func(archiveEntry) error) error {
	for _, file := range s.reader.File {
		if err := ctx.Err(); err != nil {
			return cancelledError(s.path, err)
		}

		info := file.FileInfo()
		entry := archiveEntry{
			Key:             file.Name,
			IsDir:           info.IsDir(),
			Size:            info.Size(),
			CompressedSize:  -1,
			Modified:        file.Modified,
			CRC:             file.CRC32,
			Attributes:      file.Attributes,
			Method:          "7z",
			HeaderEncrypted: s.encrypted,
		}
		if s.encrypted {
			entry.Encrypted = true
			entry.EncryptionMethod = "AES-256"
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}

// Close 关闭读取器
func (s *sevenZipSource) Close() error {
	return s.reader.Close()
}

// handle7zError 处理7Z相关错误
func handle7zError(err error, path string) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*ArchiveError); ok {
		return err
	}

	errorMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errorMsg, "no such file"):
		return NewArchiveError(ErrNotFound, "7Z文件不存在", path, err)
	case strings.Contains(errorMsg, "unsupported"):
		return NewArchiveError(ErrFormatUnsupported, "不支持的7Z格式或压缩方法", path, err)
	default:
		return NewArchiveError(ErrParseFailure, "无法解析7Z文件", path, err)
	}
}
