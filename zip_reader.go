package fluentzip

import (
	"context"
	"strings"
	"unicode/utf8"

	encryptedzip "github.com/yeka/zip"
)

const (
	// zipFlagEncrypted 通用标志位0：加密
	zipFlagEncrypted = 0x1
	// zipFlagUTF8 通用标志位11：文件名为UTF-8
	zipFlagUTF8 = 0x800
	// zipMethodAES WinZip AES 方法号
	zipMethodAES = 99
)

// zipSource 基于yeka/zip的ZIP条目源
type zipSource struct {
	path   string
	reader *encryptedzip.ReadCloser
	names  EncodingHandler
}

// openZipSource 打开ZIP文件
func openZipSource(archivePath string, opts sourceOptions) (entrySource, error) {
	reader, err := encryptedzip.OpenReader(archivePath)
	if err != nil {
		return nil, handleZipError(err, archivePath)
	}
	return &zipSource{path: archivePath, reader: reader, names: opts.names}, nil
}

// Count 返回条目总数
func (s *zipSource) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, cancelledError(s.path, err)
	}
	return len(s.reader.File), nil
}

// Walk 遍历条目，复用计数时打开的读取器
func (s *zipSource) Walk(ctx context.Context, fn func(archiveEntry) error) error {
	for _, file := range s.reader.File {
		if err := ctx.Err(); err != nil {
			return cancelledError(s.path, err)
		}
		if err := fn(s.toEntry(file)); err != nil {
			return err
		}
	}
	return nil
}

// toEntry 转换为通用条目信息
func (s *zipSource) toEntry(file *encryptedzip.File) archiveEntry {
	name := file.Name
	// 未声明UTF-8且不是合法UTF-8时按本地编码解码
	if file.Flags&zipFlagUTF8 == 0 && !utf8.ValidString(name) {
		name, _ = s.names.DecodeEntryName(name)
	}

	entry := archiveEntry{
		Key:            name,
		IsDir:          strings.HasSuffix(name, "/") || file.FileInfo().IsDir(),
		Size:           int64(file.UncompressedSize64),
		CompressedSize: int64(file.CompressedSize64),
		Modified:       file.ModTime(),
		CRC:            file.CRC32,
		Attributes:     file.ExternalAttrs,
		Method:         zipMethodName(file.Method),
		Encrypted:      file.Flags&zipFlagEncrypted != 0,
	}
	if entry.Encrypted {
		entry.EncryptionMethod = "ZipCrypto"
		if file.Method == zipMethodAES {
			entry.EncryptionMethod = "AES"
		}
	}
	return entry
}

// Close 关闭读取器
func (s *zipSource) Close() error {
	return s.reader.Close()
}

// zipMethodName 压缩方法号转名称
func zipMethodName(method uint16) string {
	switch method {
	case 0:
		return "Store"
	case 8:
		return "Deflate"
	case 9:
		return "Deflate64"
	case 12:
		return "BZip2"
	case 14:
		return "LZMA"
	case 93:
		return "Zstd"
	case 95:
		return "XZ"
	case 98:
		return "PPMd"
	case zipMethodAES:
		return "AES"
	default:
		return "Unknown"
	}
}

// handleZipError 处理ZIP相关错误
func handleZipError(err error, path string) error {
	if err == nil {
		return nil
	}

	errorMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errorMsg, "no such file"):
		return NewArchiveError(ErrNotFound, "ZIP文件不存在", path, err)
	case strings.Contains(errorMsg, "not a valid zip"), strings.Contains(errorMsg, "corrupt"):
		return NewArchiveError(ErrParseFailure, "无法解析ZIP文件", path, err)
	case strings.Contains(errorMsg, "unsupported"):
		return NewArchiveError(ErrFormatUnsupported, "不支持的ZIP特性", path, err)
	default:
		return NewArchiveError(ErrParseFailure, "无法打开ZIP文件", path, err)
	}
}
