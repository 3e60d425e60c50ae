package fluentzip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/SUlTlUS/FluentZip/internal/logging"
)

// PendingAddition 待写入的条目，内容在写入时才打开
type PendingAddition struct {
	Key  string
	Open func() (io.ReadCloser, error)
}

// AdditionFromFile 以本地文件作为条目内容
func AdditionFromFile(key, localPath string) PendingAddition {
	return PendingAddition{
		Key: NormalizeKey(key),
		Open: func() (io.ReadCloser, error) {
			return os.Open(localPath)
		},
	}
}

// AdditionFromBytes 以内存数据作为条目内容
func AdditionFromBytes(key string, data []byte) PendingAddition {
	return PendingAddition{
		Key: NormalizeKey(key),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// MutationOptions 重写选项
type MutationOptions struct {
	Names  EncodingHandler
	Logger *zap.Logger
}

// ZipMutationEngine ZIP复制重写引擎
// 新包写到源文件同目录的临时文件，成功后整体替换源文件；任何失败都不触碰源文件。
type ZipMutationEngine struct {
	names  EncodingHandler
	logger *zap.Logger
}

// NewZipMutationEngine 创建重写引擎
func NewZipMutationEngine(opts MutationOptions) *ZipMutationEngine {
	if opts.Names == nil {
		opts.Names = NewEncodingHandler()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Named("zip-rewrite")
	}
	return &ZipMutationEngine{names: opts.Names, logger: opts.Logger}
}

// rewriteStep 计划中的一个写入步骤，source 和 addition 二选一
type rewriteStep struct {
	key      string
	source   *zip.File
	addition *PendingAddition
}

// Rewrite 按 源条目 - 删除规则 + 新增条目 生成新包并替换源文件
func (e *ZipMutationEngine) Rewrite(
	ctx context.Context,
	sourcePath string,
	additions []PendingAddition,
	removals *RemovalSet,
	progress ProgressCallback,
) error {
	start := time.Now()

	info, err := os.Stat(sourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewArchiveError(ErrNotFound, "压缩包不存在", sourcePath, err)
		}
		return NewArchiveError(ErrIOFailure, "无法访问压缩包", sourcePath, err)
	}
	validator := NewKeyValidator()
	for _, addition := range additions {
		if err := validator.ValidateKey(addition.Key); err != nil {
			return err
		}
		if addition.Open == nil {
			return NewArchiveError(ErrInvalidPath, "新增条目缺少内容", addition.Key, nil)
		}
	}

	reader, err := zip.OpenReader(sourcePath)
	if err != nil {
		return NewArchiveError(ErrParseFailure, "无法打开或解析压缩包", sourcePath, err)
	}
	readerClosed := false
	defer func() {
		if !readerClosed {
			reader.Close()
		}
	}()

	plan := e.plan(reader.File, additions, removals)

	tempPath := filepath.Join(filepath.Dir(sourcePath), tempName("", ".zip"))
	defer func() {
		if err := removeIfExists(tempPath); err != nil {
			e.logger.Warn("remove temp archive", zap.String("path", tempPath), zap.Error(err))
		}
	}()

	if err := e.writePlan(ctx, sourcePath, tempPath, info.Mode().Perm(), reader.Comment, plan, progress); err != nil {
		e.logger.Warn("zip rewrite aborted", zap.String("path", sourcePath), zap.Error(err))
		return err
	}

	// 替换前必须先释放源文件句柄
	reader.Close()
	readerClosed = true

	if err := os.Rename(tempPath, sourcePath); err != nil {
		return NewArchiveError(ErrIOFailure, "无法替换原压缩包", sourcePath, err)
	}

	e.logger.Info("zip rewrite done",
		zap.String("path", sourcePath),
		zap.Int("written", len(plan)),
		zap.Int("additions", len(additions)),
		zap.Int("removal_rules", removals.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// plan 计算写入步骤；len(plan) 即进度总数
func (e *ZipMutationEngine) plan(files []*zip.File, additions []PendingAddition, removals *RemovalSet) []rewriteStep {
	written := make(map[string]struct{}, len(files)+len(additions))
	steps := make([]rewriteStep, 0, len(files)+len(additions))

	for _, file := range files {
		key := NormalizeKey(e.entryName(file))
		if isZipDir(file) || removals.Matches(key) || isRemovedPseudoDir(file, key, removals) {
			continue
		}
		if _, dup := written[key]; dup {
			continue
		}
		written[key] = struct{}{}
		steps = append(steps, rewriteStep{key: key, source: file})
	}

	for i := range additions {
		key := NormalizeKey(additions[i].Key)
		// 精确删除 + 同键新增 = 覆盖；只有目录规则会吞掉新增
		if removals.coversSubtree(key) {
			continue
		}
		if _, dup := written[key]; dup {
			continue
		}
		written[key] = struct{}{}
		steps = append(steps, rewriteStep{key: key, addition: &additions[i]})
	}
	return steps
}

// writePlan 把计划写入临时文件并落盘
func (e *ZipMutationEngine) writePlan(
	ctx context.Context,
	sourcePath, tempPath string,
	perm os.FileMode,
	comment string,
	plan []rewriteStep,
	progress ProgressCallback,
) error {
	out, err := os.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return NewArchiveError(ErrIOFailure, "无法创建临时文件", tempPath, err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)
	if comment != "" {
		if err := writer.SetComment(comment); err != nil {
			return NewArchiveError(ErrIOFailure, "无法写入压缩包注释", tempPath, err)
		}
	}

	reporter := NewSimpleProgressReporter(progress)
	total := int64(len(plan))
	for i, step := range plan {
		if err := ctx.Err(); err != nil {
			return cancelledError(sourcePath, err)
		}

		if step.source != nil {
			err = e.copyEntry(writer, step)
		} else {
			err = e.addEntry(writer, step)
		}
		if err != nil {
			return err
		}
		reporter.OnEntryProgress(int64(i+1), total, step.key)
	}
	if total == 0 {
		reporter.OnEntryProgress(0, 0, "")
	}

	if err := writer.Close(); err != nil {
		return NewArchiveError(ErrIOFailure, "无法完成新压缩包", tempPath, err)
	}
	if err := out.Sync(); err != nil {
		return NewArchiveError(ErrIOFailure, "无法刷新临时文件", tempPath, err)
	}
	if err := out.Close(); err != nil {
		return NewArchiveError(ErrIOFailure, "无法关闭临时文件", tempPath, err)
	}
	return nil
}

// copyEntry 复制保留的源条目
// 加密条目按原始字节复制，无需密码；其余解压后用Deflate重新写入。
func (e *ZipMutationEngine) copyEntry(writer *zip.Writer, step rewriteStep) error {
	file := step.source
	if file.Flags&zipFlagEncrypted != 0 {
		if err := writer.Copy(file); err != nil {
			return NewArchiveError(ErrIOFailure, "复制加密条目失败", step.key, err)
		}
		return nil
	}

	src, err := file.Open()
	if err != nil {
		return NewArchiveError(ErrParseFailure, "无法读取源条目", step.key, err)
	}
	defer src.Close()

	dst, err := writer.CreateHeader(&zip.FileHeader{
		Name:           step.key,
		Method:         zip.Deflate,
		Modified:       file.Modified,
		ExternalAttrs:  file.ExternalAttrs,
		CreatorVersion: file.CreatorVersion,
	})
	if err != nil {
		return NewArchiveError(ErrIOFailure, "无法创建条目", step.key, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return NewArchiveError(ErrIOFailure, "写入条目失败", step.key, err)
	}
	return nil
}

// addEntry 写入新增条目
func (e *ZipMutationEngine) addEntry(writer *zip.Writer, step rewriteStep) error {
	src, err := step.addition.Open()
	if err != nil {
		return NewArchiveError(ErrIOFailure, "无法打开新增内容", step.key, err)
	}
	defer src.Close()

	dst, err := writer.CreateHeader(&zip.FileHeader{
		Name:     step.key,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return NewArchiveError(ErrIOFailure, "无法创建条目", step.key, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return NewArchiveError(ErrIOFailure, fmt.Sprintf("写入新增条目失败: %s", step.key), step.key, err)
	}
	return nil
}

// entryName 未声明UTF-8的旧编码文件名按本地编码解码
func (e *ZipMutationEngine) entryName(file *zip.File) string {
	if file.Flags&zipFlagUTF8 == 0 && !utf8.ValidString(file.Name) {
		name, _ := e.names.DecodeEntryName(file.Name)
		return name
	}
	return file.Name
}

// isRemovedPseudoDir 零字节、无扩展名的目录标记随同名目录规则一起删除
func isRemovedPseudoDir(file *zip.File, key string, removals *RemovalSet) bool {
	return file.UncompressedSize64 == 0 && !hasExtension(BaseName(key)) && removals.coversSubtree(key+"/")
}

func isZipDir(file *zip.File) bool {
	return strings.HasSuffix(file.Name, "/") || file.FileInfo().IsDir()
}
