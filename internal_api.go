package fluentzip

import (
	"context"

	"go.uber.org/zap"
)

// openInternal 打开压缩包内部实现
func openInternal(ctx context.Context, archivePath string, options Options) (*Archive, error) {
	if err := statArchive(archivePath); err != nil {
		return nil, err
	}
	archivePath = absPath(archivePath)

	archive := newArchive(archivePath, options)
	if err := archive.Reload(ctx); err != nil {
		return nil, err
	}

	// 最近文件记录失败不影响打开
	if options.Recent != nil {
		if err := options.Recent.Record(archivePath); err != nil {
			archive.logger.Warn("record recent file", zap.String("path", archivePath), zap.Error(err))
		}
	}
	return archive, nil
}

// isSupportedInternal 检查文件是否支持浏览 (内部函数)
func isSupportedInternal(archivePath string) (bool, string) {
	format, err := NewFormatDetector().DetectFormat(archivePath)
	if err != nil || format == FormatUnsupported {
		return false, ""
	}
	return true, format.String()
}
