package fluentzip

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FormatMutationManager 按格式分派写入/删除操作
type FormatMutationManager interface {
	// MutateByFormat 对指定格式的压缩包执行新增和删除
	MutateByFormat(ctx context.Context, format ArchiveFormat, archivePath string,
		additions []PendingAddition, removals *RemovalSet, progress ProgressCallback) error

	// ValidateMutation 检查该格式是否支持请求的操作
	ValidateMutation(format ArchiveFormat, adding, removing bool) error

	// GetWritableFormats 支持写入的格式
	GetWritableFormats() []ArchiveFormat
}

// defaultFormatMutationManager 默认实现
type defaultFormatMutationManager struct {
	zipEngine *ZipMutationEngine
	sevenZip  *SevenZipTool
}

// NewFormatMutationManager 创建分派器
func NewFormatMutationManager(zipEngine *ZipMutationEngine, sevenZip *SevenZipTool) FormatMutationManager {
	return &defaultFormatMutationManager{
		zipEngine: zipEngine,
		sevenZip:  sevenZip,
	}
}

// ValidateMutation 检查格式能力
func (m *defaultFormatMutationManager) ValidateMutation(format ArchiveFormat, adding, removing bool) error {
	return checkCapabilities(format, "", adding, removing)
}

func checkCapabilities(format ArchiveFormat, archivePath string, adding, removing bool) error {
	if adding && !format.Writable() {
		return NewArchiveError(ErrFormatUnsupported,
			fmt.Sprintf("%s 格式不支持添加条目", format), archivePath, nil)
	}
	if removing && !format.Deletable() {
		return NewArchiveError(ErrFormatUnsupported,
			fmt.Sprintf("%s 格式不支持删除条目", format), archivePath, nil)
	}
	return nil
}

// MutateByFormat 根据格式执行修改
func (m *defaultFormatMutationManager) MutateByFormat(
	ctx context.Context,
	format ArchiveFormat,
	archivePath string,
	additions []PendingAddition,
	removals *RemovalSet,
	progress ProgressCallback,
) error {
	if err := checkCapabilities(format, archivePath, len(additions) > 0, removals.Len() > 0); err != nil {
		return err
	}

	switch format {
	case FormatZip:
		if m.zipEngine == nil {
			return NewArchiveError(ErrInternalError, "ZIP重写引擎未初始化", archivePath, nil)
		}
		return m.zipEngine.Rewrite(ctx, archivePath, additions, removals, progress)

	case FormatSevenZip:
		if m.sevenZip == nil {
			return NewArchiveError(ErrInternalError, "7-Zip适配器未初始化", archivePath, nil)
		}
		return m.mutateWithTool(ctx, archivePath, additions, removals, progress)

	case FormatRar, FormatUnsupported:
		return NewArchiveError(ErrFormatUnsupported,
			fmt.Sprintf("%s 格式没有写入处理器", format), archivePath, nil)

	default:
		return NewArchiveError(ErrFormatUnsupported,
			fmt.Sprintf("未知的压缩格式: %s", format), archivePath, nil)
	}
}

// mutateWithTool 在同目录的副本上先删除后添加，全部成功后替换源文件
// 同键的删除+添加即为覆盖；有新增时删除规则未命中任何条目不视为错误。
// 进度以工具调用次数计。
func (m *defaultFormatMutationManager) mutateWithTool(
	ctx context.Context,
	archivePath string,
	additions []PendingAddition,
	removals *RemovalSet,
	progress ProgressCallback,
) error {
	var total, done int64
	if removals.Len() > 0 {
		total++
	}
	if len(additions) > 0 {
		total++
	}
	reporter := NewSimpleProgressReporter(progress)
	if total == 0 {
		reporter.OnEntryProgress(0, 0, "")
		return nil
	}

	workPath := filepath.Join(filepath.Dir(archivePath), tempName("", filepath.Ext(archivePath)))
	if err := copyFile(archivePath, workPath); err != nil {
		_ = removeIfExists(workPath)
		if errors.Is(err, os.ErrNotExist) {
			return NewArchiveError(ErrNotFound, "压缩包不存在", archivePath, err)
		}
		return NewArchiveError(ErrIOFailure, "无法创建工作副本", archivePath, err)
	}
	defer func() { _ = removeIfExists(workPath) }()

	if removals.Len() > 0 {
		err := m.sevenZip.DeleteEntries(ctx, workPath, removals)
		if err != nil && !(len(additions) > 0 && IsErrorType(err, ErrNoMatch)) {
			return withPath(err, archivePath)
		}
		done++
		reporter.OnEntryProgress(done, total, "")
	}
	if len(additions) > 0 {
		if err := m.sevenZip.AddEntries(ctx, workPath, additions); err != nil {
			return withPath(err, archivePath)
		}
		done++
		reporter.OnEntryProgress(done, total, "")
	}

	if err := ctx.Err(); err != nil {
		return cancelledError(archivePath, err)
	}
	if err := os.Rename(workPath, archivePath); err != nil {
		return NewArchiveError(ErrIOFailure, "无法替换原压缩包", archivePath, err)
	}
	return nil
}

// withPath 把工作副本上的错误改为指向源压缩包
func withPath(err error, archivePath string) error {
	var archiveErr *ArchiveError
	if errors.As(err, &archiveErr) {
		copied := *archiveErr
		copied.Path = archivePath
		return &copied
	}
	return err
}

// GetWritableFormats 获取支持写入的格式列表
func (m *defaultFormatMutationManager) GetWritableFormats() []ArchiveFormat {
	var formats []ArchiveFormat
	for _, format := range []ArchiveFormat{FormatZip, FormatSevenZip, FormatRar, FormatUnsupported} {
		if format.Writable() {
			formats = append(formats, format)
		}
	}
	return formats
}
