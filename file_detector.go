package fluentzip

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FormatDetector 格式检测器接口
type FormatDetector interface {
	// DetectFormat 检测文件格式（魔数优先，扩展名兜底）
	DetectFormat(filePath string) (ArchiveFormat, error)

	// DetectFromBytes 从文件头字节检测格式
	DetectFromBytes(data []byte) ArchiveFormat
}

// signature 文件头魔数
type signature struct {
	format ArchiveFormat
	magic  []byte
}

// signatures 按匹配顺序排列的魔数表
var signatures = []signature{
	{FormatZip, []byte("PK\x03\x04")},           // 本地文件头
	{FormatZip, []byte("PK\x05\x06")},           // 空包只有目录结束记录
	{FormatZip, []byte("PK\x07\x08")},           // 分卷标记
	{FormatRar, []byte("Rar!\x1a\x07\x00")},     // RAR 4.x
	{FormatRar, []byte("Rar!\x1a\x07\x01\x00")}, // RAR 5.x
	{FormatSevenZip, []byte("7z\xbc\xaf\x27\x1c")},
}

// extensionFormats 扩展名到格式的映射
var extensionFormats = map[string]ArchiveFormat{
	".zip": FormatZip,
	".7z":  FormatSevenZip,
	".rar": FormatRar,
}

// headerProbeSize 检测时读取的文件头字节数
const headerProbeSize = 16

type defaultFormatDetector struct{}

// NewFormatDetector 创建格式检测器
func NewFormatDetector() FormatDetector {
	return defaultFormatDetector{}
}

// DetectFormat 检测文件格式
// 空ZIP或自解压包等魔数不在开头的情况按扩展名判断。
func (d defaultFormatDetector) DetectFormat(filePath string) (ArchiveFormat, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FormatUnsupported, NewArchiveError(ErrNotFound, "文件不存在", filePath, err)
		}
		return FormatUnsupported, NewArchiveError(ErrIOFailure, "无法读取文件", filePath, err)
	}
	defer file.Close()

	header := make([]byte, headerProbeSize)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return FormatUnsupported, NewArchiveError(ErrIOFailure, "无法读取文件头", filePath, err)
	}

	if format := d.DetectFromBytes(header[:n]); format != FormatUnsupported {
		return format, nil
	}
	return FormatFromExtension(filePath), nil
}

// DetectFromBytes 从字节数组检测格式
func (defaultFormatDetector) DetectFromBytes(data []byte) ArchiveFormat {
	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.format
		}
	}
	return FormatUnsupported
}

// FormatFromExtension 只根据扩展名判断格式，决定会话的写入/删除能力
func FormatFromExtension(filePath string) ArchiveFormat {
	if format, ok := extensionFormats[strings.ToLower(filepath.Ext(filePath))]; ok {
		return format
	}
	return FormatUnsupported
}
