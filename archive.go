package fluentzip

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/SUlTlUS/FluentZip/internal/logging"
)

// ArchiveSession 当前打开文档的会话信息，每次重新加载整体替换
type ArchiveSession struct {
	Path       string
	Format     ArchiveFormat
	Comment    string
	Writable   bool
	Deletable  bool
	EntryCount int
}

// RecentFilesSink 记录最近打开的文件
type RecentFilesSink interface {
	Record(path string) error
}

// RecentFilesSource 读取最近打开的文件列表
type RecentFilesSource interface {
	List() ([]string, error)
}

// Options 打开压缩包的选项
type Options struct {
	Passwords        []string
	LoadProgress     ProgressCallback
	MutationProgress ProgressCallback
	Tool             ToolOptions
	Encoding         EncodingHandler
	Recent           RecentFilesSink
	Logger           *zap.Logger
}

// archiveState 一次成功加载产生的不可变视图
type archiveState struct {
	session ArchiveSession
	tree    *FolderTree
	catalog *EntryCatalog
}

// Archive 打开的压缩包文档
// 读取树和目录是无锁的；Reload 和 Apply 互斥执行。
type Archive struct {
	path    string
	opts    Options
	logger  *zap.Logger
	manager FormatMutationManager

	mu    sync.Mutex
	state atomic.Pointer[archiveState]
}

// newArchive 创建未加载的文档
func newArchive(archivePath string, opts Options) *Archive {
	if opts.Encoding == nil {
		opts.Encoding = NewEncodingHandler()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Named("archive")
	}
	if opts.Tool.Logger == nil {
		opts.Tool.Logger = opts.Logger.Named("7zip")
	}

	engine := NewZipMutationEngine(MutationOptions{
		Names:  opts.Encoding,
		Logger: opts.Logger.Named("zip-rewrite"),
	})
	return &Archive{
		path:    archivePath,
		opts:    opts,
		logger:  opts.Logger,
		manager: NewFormatMutationManager(engine, NewSevenZipTool(opts.Tool)),
	}
}

// Reload 重新读取压缩包并整体替换索引；失败时保留原有索引
func (a *Archive) Reload(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reloadLocked(ctx)
}

func (a *Archive) reloadLocked(ctx context.Context) error {
	pipeline := NewLoadPipeline(a.path, LoadOptions{
		Passwords: a.opts.Passwords,
		Progress:  a.opts.LoadProgress,
		Encoding:  a.opts.Encoding,
		Logger:    a.logger.Named("load"),
	})
	result, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	catalog := NewEntryCatalog()
	catalog.Rebuild(result.Entries)
	a.state.Store(&archiveState{
		session: result.Session,
		tree:    result.Tree,
		catalog: catalog,
	})
	return nil
}

func (a *Archive) current() *archiveState {
	if s := a.state.Load(); s != nil {
		return s
	}
	return &archiveState{tree: NewFolderTree(), catalog: NewEntryCatalog()}
}

// Path 压缩包路径
func (a *Archive) Path() string {
	return a.path
}

// Session 当前会话信息
func (a *Archive) Session() ArchiveSession {
	return a.current().session
}

// Tree 当前目录树
func (a *Archive) Tree() *FolderTree {
	return a.current().tree
}

// Catalog 当前条目目录
func (a *Archive) Catalog() *EntryCatalog {
	return a.current().catalog
}

// SingleRoot 所有条目都位于同一个顶层目录下时返回该目录名
func (a *Archive) SingleRoot() (string, bool) {
	state := a.current()
	roots := make(map[string]struct{})
	for _, entry := range state.catalog.Entries() {
		if entry.ParentPath == "" {
			return "", false
		}
		roots[RootSegment(entry.Key)] = struct{}{}
	}
	for _, child := range state.tree.Root().Children() {
		roots[child.Name] = struct{}{}
	}
	if len(roots) != 1 {
		return "", false
	}
	for root := range roots {
		return root, root != ""
	}
	return "", false
}

// Apply 把修改写回压缩包，成功后重新加载
// 写入失败时压缩包和内存索引都保持不变。
func (a *Archive) Apply(ctx context.Context, changes *ChangeSet) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if changes == nil || changes.Empty() {
		return nil
	}
	state := a.state.Load()
	if state == nil {
		return NewArchiveError(ErrInternalError, "压缩包尚未加载", a.path, nil)
	}
	session := state.session

	additions := changes.Additions()
	removals := NewRemovalSet(changes.Removals().Keys()...)

	if len(additions) > 0 && !session.Writable {
		return NewArchiveError(ErrFormatUnsupported, "该格式不支持添加条目", a.path, nil)
	}
	if removals.Len() > 0 && !session.Deletable {
		return NewArchiveError(ErrFormatUnsupported, "该格式不支持删除条目", a.path, nil)
	}
	if removals.Len() > 0 && len(additions) == 0 && !a.anyRemovalMatches(state, removals) {
		return NewArchiveError(ErrNoMatch, "没有匹配的条目", a.path, nil)
	}

	// ZIP重写时同键新增需先删除旧条目；7-Zip的更新命令本身会覆盖
	if session.Format == FormatZip {
		for _, addition := range additions {
			if _, exists := state.catalog.Lookup(addition.Key); exists {
				removals.Add(addition.Key)
			}
		}
	}

	a.logger.Info("apply changes",
		zap.String("path", a.path),
		zap.String("format", session.Format.String()),
		zap.Int("additions", len(additions)),
		zap.Int("removal_rules", removals.Len()))

	if err := a.manager.MutateByFormat(ctx, session.Format, a.path, additions, removals, a.opts.MutationProgress); err != nil {
		return err
	}
	return a.reloadLocked(ctx)
}

// anyRemovalMatches 删除规则是否命中当前加载的条目或目录
func (a *Archive) anyRemovalMatches(state *archiveState, removals *RemovalSet) bool {
	for _, entry := range state.catalog.Entries() {
		if removals.Matches(entry.Key) {
			return true
		}
	}
	for node := range state.tree.EnumerateSubtree(state.tree.Root()) {
		if node.FullPath != "" && (removals.Matches(node.FullPath) || removals.Matches(node.FullPath+"/")) {
			return true
		}
	}
	return false
}

// ChangeSet 一次修改事务中排队的新增与删除
type ChangeSet struct {
	additions []PendingAddition
	removals  *RemovalSet
}

// NewChangeSet 创建空的修改集合
func NewChangeSet() *ChangeSet {
	return &ChangeSet{removals: NewRemovalSet()}
}

// AddFile 把本地文件加入到压缩包内的 folder 目录下
func (c *ChangeSet) AddFile(folder, diskPath string) *ChangeSet {
	return c.add(AdditionFromFile(joinKey(folder, filepath.Base(diskPath)), diskPath))
}

// AddDirectory 递归加入本地目录，目录名本身作为 folder 下的子目录
// 跳过 .DS_Store、Thumbs.db 等系统附属文件。
func (c *ChangeSet) AddDirectory(folder, diskDir string) error {
	root := joinKey(folder, filepath.Base(filepath.Clean(diskDir)))
	return filepath.WalkDir(diskDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if isSystemJunkFile(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(diskDir, p)
		if err != nil {
			return err
		}
		c.add(AdditionFromFile(joinKey(root, filepath.ToSlash(rel)), p))
		return nil
	})
}

// AddBytes 以内存数据新增条目
func (c *ChangeSet) AddBytes(key string, data []byte) *ChangeSet {
	return c.add(AdditionFromBytes(key, data))
}

func (c *ChangeSet) add(addition PendingAddition) *ChangeSet {
	c.additions = append(c.additions, addition)
	return c
}

// Remove 删除单个条目
func (c *ChangeSet) Remove(key string) *ChangeSet {
	c.removals.Add(strings.TrimRight(NormalizeKey(key), "/"))
	return c
}

// RemoveFolder 删除目录及其下全部条目
func (c *ChangeSet) RemoveFolder(folder string) *ChangeSet {
	trimmed := strings.Trim(NormalizeKey(folder), "/")
	if trimmed != "" {
		c.removals.Add(trimmed + "/")
	}
	return c
}

// Additions 排队的新增条目
func (c *ChangeSet) Additions() []PendingAddition {
	return append([]PendingAddition(nil), c.additions...)
}

// Removals 排队的删除规则
func (c *ChangeSet) Removals() *RemovalSet {
	return c.removals
}

// Empty 是否没有任何修改
func (c *ChangeSet) Empty() bool {
	return len(c.additions) == 0 && c.removals.Len() == 0
}

// joinKey 连接压缩包内目录和名称
func joinKey(folder, name string) string {
	folder = strings.Trim(NormalizeKey(folder), "/")
	name = strings.TrimPrefix(NormalizeKey(name), "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// statArchive 打开前确认文件存在
func statArchive(archivePath string) error {
	info, err := os.Stat(archivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewArchiveError(ErrNotFound, "压缩包不存在", archivePath, err)
		}
		return NewArchiveError(ErrIOFailure, "无法访问压缩包", archivePath, err)
	}
	if info.IsDir() {
		return NewArchiveError(ErrInvalidPath, "路径是目录而不是压缩包", archivePath, nil)
	}
	return nil
}
