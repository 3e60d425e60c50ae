package fluentzip

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/SUlTlUS/FluentZip/internal/logging"
)

// LoadState 加载流程状态
type LoadState int32

const (
	LoadIdle LoadState = iota
	LoadCounting
	LoadIngesting
	LoadReady
	LoadFailed
)

// String 返回状态名称
func (s LoadState) String() string {
	switch s {
	case LoadIdle:
		return "idle"
	case LoadCounting:
		return "counting"
	case LoadIngesting:
		return "ingesting"
	case LoadReady:
		return "ready"
	case LoadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LoadOptions 加载选项
type LoadOptions struct {
	Format    ArchiveFormat    // 为空时自动检测
	Passwords []string         // 打开加密7z/RAR时依次尝试
	Progress  ProgressCallback // 每个条目之后回调
	Encoding  EncodingHandler  // 条目名和注释解码
	Logger    *zap.Logger
}

// LoadResult 加载结果，只有成功时才会产生
type LoadResult struct {
	Session ArchiveSession
	Tree    *FolderTree
	Entries []*FileEntry
}

// LoadPipeline 一次完整的压缩包加载
// 每个实例只运行一次：Idle -> Counting -> Ingesting -> Ready，任一步失败进入Failed。
type LoadPipeline struct {
	path   string
	opts   LoadOptions
	logger *zap.Logger

	state atomic.Int32
	err   error
}

// NewLoadPipeline 创建加载流程
func NewLoadPipeline(archivePath string, opts LoadOptions) *LoadPipeline {
	if opts.Encoding == nil {
		opts.Encoding = NewEncodingHandler()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Named("load")
	}
	return &LoadPipeline{
		path:   archivePath,
		opts:   opts,
		logger: logger,
	}
}

// State 当前状态
func (p *LoadPipeline) State() LoadState {
	return LoadState(p.state.Load())
}

// Err 失败原因，仅在Failed状态下非空
func (p *LoadPipeline) Err() error {
	if p.State() != LoadFailed {
		return nil
	}
	return p.err
}

// Run 执行加载
func (p *LoadPipeline) Run(ctx context.Context) (*LoadResult, error) {
	if !p.state.CompareAndSwap(int32(LoadIdle), int32(LoadCounting)) {
		return nil, NewArchiveError(ErrInternalError, "加载流程只能运行一次", p.path, nil)
	}

	start := time.Now()
	result, err := p.run(ctx)
	if err != nil {
		p.err = err
		p.state.Store(int32(LoadFailed))
		p.logger.Warn("load failed", zap.String("path", p.path), zap.Error(err))
		return nil, err
	}

	p.state.Store(int32(LoadReady))
	p.logger.Info("load ready",
		zap.String("path", p.path),
		zap.Int("entries", len(result.Entries)),
		zap.Int("folders", result.Tree.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (p *LoadPipeline) run(ctx context.Context) (*LoadResult, error) {
	if _, err := os.Stat(p.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewArchiveError(ErrNotFound, "压缩包不存在", p.path, err)
		}
		return nil, NewArchiveError(ErrIOFailure, "无法访问压缩包", p.path, err)
	}

	format := p.opts.Format
	if format == "" {
		detected, err := NewFormatDetector().DetectFormat(p.path)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	// Counting
	src, err := openEntrySource(format, p.path, sourceOptions{
		passwords: p.opts.Passwords,
		names:     p.opts.Encoding,
	})
	if err != nil {
		return nil, openFailure(p.path, err)
	}
	defer src.Close()

	total, err := src.Count(ctx)
	if err != nil {
		return nil, openFailure(p.path, err)
	}

	// Ingesting
	p.state.Store(int32(LoadIngesting))
	ingest := newIngestState(int64(total), NewSimpleProgressReporter(p.opts.Progress))
	if err := src.Walk(ctx, ingest.add); err != nil {
		return nil, openFailure(p.path, err)
	}
	ingest.finish()

	session := ArchiveSession{
		Path:       p.path,
		Format:     format,
		Writable:   FormatFromExtension(p.path).Writable(),
		Deletable:  FormatFromExtension(p.path).Deletable(),
		EntryCount: len(ingest.keys),
	}
	if format == FormatZip {
		session.Comment = p.readComment()
	}

	return &LoadResult{
		Session: session,
		Tree:    ingest.tree,
		Entries: ingest.entries,
	}, nil
}

// readComment 读取ZIP注释，失败时记为空注释
func (p *LoadPipeline) readComment() string {
	raw, err := ReadZipComment(p.path)
	if err != nil {
		p.logger.Warn("read zip comment", zap.String("path", p.path), zap.Error(err))
		return ""
	}
	return p.opts.Encoding.DecodeComment(raw)
}

// openFailure 统一包装为“无法打开/解析压缩包”，保留已分类的错误
func openFailure(path string, err error) error {
	var archiveErr *ArchiveError
	if errors.As(err, &archiveErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cancelledError(path, err)
	}
	return NewArchiveError(ErrParseFailure, "无法打开或解析压缩包", path, err)
}

// ingestState 单次加载中正在构建的树和条目
type ingestState struct {
	tree      *FolderTree
	entries   []*FileEntry
	keys      map[string]struct{}
	total     int64
	processed int64
	reporter  ProgressReporter
}

func newIngestState(total int64, reporter ProgressReporter) *ingestState {
	return &ingestState{
		tree:     NewFolderTree(),
		keys:     make(map[string]struct{}),
		total:    total,
		reporter: reporter,
	}
}

// add 处理一个条目并报告进度
func (s *ingestState) add(e archiveEntry) error {
	key := NormalizeKey(e.Key)
	trimmed := strings.TrimRight(key, "/")

	switch {
	case e.IsDir:
		s.tree.EnsurePath(trimmed)
	case trimmed == "":
	default:
		parent := s.tree.EnsurePath(ParentKey(key))
		name := BaseName(key)
		// 伪目录标记：零字节、无扩展名且同名目录已存在
		pseudoDir := e.Size == 0 && !hasExtension(name) && s.tree.lookupFold(trimmed) != nil
		if !pseudoDir {
			s.keys[key] = struct{}{}
			s.entries = append(s.entries, &FileEntry{
				Name:              name,
				ParentPath:        parent.FullPath,
				Key:               key,
				RawKey:            e.Key,
				Size:              e.Size,
				CompressedSize:    e.CompressedSize,
				Modified:          e.Modified,
				CRC:               e.CRC,
				Attributes:        e.Attributes,
				CompressionMethod: e.Method,
				Encrypted:         e.Encrypted,
				EncryptionMethod:  e.EncryptionMethod,
				ExtraInfo:         e.extraInfo(),
			})
		}
	}

	s.processed++
	s.reporter.OnEntryProgress(s.processed, s.total, key)
	return nil
}

// finish 空压缩包只报告一次 (0, 0)
func (s *ingestState) finish() {
	if s.processed == 0 {
		s.reporter.OnEntryProgress(0, s.total, "")
	}
}
