package fluentzip

import (
	"errors"
	"fmt"
)

// ArchiveFormat 压缩格式枚举（封闭集合）
type ArchiveFormat string

const (
	FormatZip         ArchiveFormat = "zip"
	FormatSevenZip    ArchiveFormat = "7z"
	FormatRar         ArchiveFormat = "rar"
	FormatUnsupported ArchiveFormat = "unsupported"
)

// String 返回格式字符串
func (f ArchiveFormat) String() string {
	return string(f)
}

// Writable 是否支持添加条目
func (f ArchiveFormat) Writable() bool {
	switch f {
	case FormatZip, FormatSevenZip:
		return true
	case FormatRar, FormatUnsupported:
		return false
	default:
		return false
	}
}

// Deletable 是否支持删除条目（RAR为只读格式）
func (f ArchiveFormat) Deletable() bool {
	switch f {
	case FormatZip, FormatSevenZip:
		return true
	case FormatRar, FormatUnsupported:
		return false
	default:
		return false
	}
}

// ArchiveError 压缩包操作错误
type ArchiveError struct {
	Type    ErrorType
	Message string
	Path    string
	Cause   error
}

// Error 实现error接口
func (e *ArchiveError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s (path: %s)", msg, e.Path)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap 返回原始错误
func (e *ArchiveError) Unwrap() error {
	return e.Cause
}

// ErrorType 错误类型枚举
type ErrorType string

const (
	// ErrNotFound 压缩包或外部工具不存在
	ErrNotFound ErrorType = "NOT_FOUND"

	// ErrFormatUnsupported 该格式不支持请求的写入/删除
	ErrFormatUnsupported ErrorType = "FORMAT_UNSUPPORTED"

	// ErrParseFailure 压缩包结构无法读取
	ErrParseFailure ErrorType = "PARSE_FAILURE"

	// ErrToolFailure 外部进程启动失败或非零退出
	ErrToolFailure ErrorType = "TOOL_FAILURE"

	// ErrCancelled 操作被取消
	ErrCancelled ErrorType = "CANCELLED"

	// ErrNoMatch 删除/搜索没有匹配任何条目
	ErrNoMatch ErrorType = "NO_MATCH"

	// ErrInvalidPath 无效的条目路径
	ErrInvalidPath ErrorType = "INVALID_PATH"

	// ErrIOFailure 临时文件或替换过程的I/O错误
	ErrIOFailure ErrorType = "IO_FAILURE"

	// ErrInternalError 内部错误
	ErrInternalError ErrorType = "INTERNAL_ERROR"
)

// String 返回错误类型字符串
func (et ErrorType) String() string {
	return string(et)
}

// NewArchiveError 创建压缩包错误
func NewArchiveError(errType ErrorType, message, path string, cause error) *ArchiveError {
	return &ArchiveError{
		Type:    errType,
		Message: message,
		Path:    path,
		Cause:   cause,
	}
}

// IsErrorType 判断错误链中是否包含指定类型的ArchiveError
func IsErrorType(err error, errType ErrorType) bool {
	var archiveErr *ArchiveError
	if errors.As(err, &archiveErr) {
		return archiveErr.Type == errType
	}
	return false
}

// cancelledError 将context错误包装为CANCELLED
func cancelledError(path string, cause error) *ArchiveError {
	return NewArchiveError(ErrCancelled, "操作已取消", path, cause)
}
