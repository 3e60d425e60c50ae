package fluentzip

import (
	"context"
	"strings"
	"time"
)

// archiveEntry 读取库给出的单个条目信息
type archiveEntry struct {
	Key              string
	IsDir            bool
	Size             int64
	CompressedSize   int64
	Modified         time.Time
	CRC              uint32
	Attributes       uint32
	Method           string
	Encrypted        bool
	EncryptionMethod string
	Solid            bool
	HeaderEncrypted  bool
	Split            bool
}

// extraInfo 组合附加信息
func (e archiveEntry) extraInfo() string {
	var parts []string
	if e.Solid {
		parts = append(parts, "Solid")
	}
	if e.Split {
		parts = append(parts, "Split")
	}
	if e.HeaderEncrypted {
		parts = append(parts, "Encrypted headers")
	}
	return strings.Join(parts, " | ")
}

// entrySource 条目枚举接口
type entrySource interface {
	// Count 返回条目总数
	Count(ctx context.Context) (int, error)

	// Walk 按压缩包原生顺序遍历条目
	Walk(ctx context.Context, fn func(archiveEntry) error) error

	// Close 释放资源
	Close() error
}

// sourceOptions 打开条目源的选项
type sourceOptions struct {
	passwords []string
	names     EncodingHandler
}

// openEntrySource 按格式打开条目源
func openEntrySource(format ArchiveFormat, archivePath string, opts sourceOptions) (entrySource, error) {
	if opts.names == nil {
		opts.names = NewEncodingHandler()
	}

	switch format {
	case FormatZip:
		return openZipSource(archivePath, opts)
	case FormatSevenZip:
		return openSevenZipSource(archivePath, opts)
	case FormatRar:
		return openRarSource(archivePath, opts)
	case FormatUnsupported:
		return nil, NewArchiveError(ErrFormatUnsupported, "不支持的压缩格式", archivePath, nil)
	default:
		return nil, NewArchiveError(ErrFormatUnsupported, "未知的压缩格式: "+format.String(), archivePath, nil)
	}
}
