package fluentzip

import (
	"context"
)

// Open 打开并加载压缩包 - 主要入口点
//
// 参数:
//
//	ctx: 取消信号，加载过程中逐条目检查
//	archivePath: 压缩包路径
//	options: 打开选项(可以为nil使用默认设置)
//
// 返回:
//
//	Archive: 已加载的压缩包文档
//	error: 错误信息(*ArchiveError)
//
// 功能:
//   - 自动检测压缩包格式(ZIP/7Z/RAR)
//   - 头部加密的7Z/RAR依次尝试提供的密码
//   - 构建目录树与条目目录，读取ZIP注释
//   - 成功后记录到最近文件列表
func Open(ctx context.Context, archivePath string, options *Options) (*Archive, error) {
	if options == nil {
		options = &Options{}
	}
	return openInternal(ctx, archivePath, *options)
}

// List 列出压缩包内全部文件条目
//
// 参数:
//
//	ctx: 取消信号
//	archivePath: 压缩包路径
//	passwords: 密码列表
//
// 返回:
//
//	[]*FileEntry: 按压缩包顺序的文件条目(不含目录)
//	error: 错误信息
func List(ctx context.Context, archivePath string, passwords []string) ([]*FileEntry, error) {
	archive, err := Open(ctx, archivePath, &Options{Passwords: passwords})
	if err != nil {
		return nil, err
	}
	return archive.Catalog().Entries(), nil
}

// ReadComment 读取ZIP压缩包注释
//
// 返回:
//
//	string: 解码后的注释，没有注释时为空
//	error: 文件无法读取时的错误
func ReadComment(archivePath string) (string, error) {
	raw, err := ReadZipComment(archivePath)
	if err != nil {
		return "", NewArchiveError(ErrIOFailure, "无法读取压缩包注释", archivePath, err)
	}
	return DecodeComment(raw), nil
}

// IsSupported 检查文件是否可以浏览
//
// 返回:
//
//	bool: 是否支持
//	string: 格式名称
func IsSupported(archivePath string) (bool, string) {
	return isSupportedInternal(archivePath)
}

// GetSupportedFormats 获取可浏览的格式列表
func GetSupportedFormats() []string {
	return []string{FormatZip.String(), FormatSevenZip.String(), FormatRar.String()}
}

// GetWritableFormats 获取可写入的格式列表
func GetWritableFormats() []string {
	var formats []string
	for _, format := range NewFormatMutationManager(nil, nil).GetWritableFormats() {
		formats = append(formats, format.String())
	}
	return formats
}
