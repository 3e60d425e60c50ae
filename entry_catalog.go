package fluentzip

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sahilm/fuzzy"
)

// FileEntry 文件条目（非目录），构造后不再修改
type FileEntry struct {
	Name              string    // 文件名
	ParentPath        string    // 所在目录（规范化键）
	Key               string    // 规范化后的完整键
	RawKey            string    // 压缩包中的原始键
	Size              int64     // 原始大小
	CompressedSize    int64     // 压缩后大小，未知时为-1
	Modified          time.Time // 修改时间
	CRC               uint32    // CRC32，0表示未知
	Attributes        uint32    // 属性位（DOS低字节，Unix模式在高16位）
	CompressionMethod string    // 压缩方法
	Encrypted         bool      // 是否加密
	EncryptionMethod  string    // 加密方法
	ExtraInfo         string    // 附加信息，以 " | " 分隔
	IsFolder          bool      // 是否为目录
}

// CRCString 显示用CRC
func (e *FileEntry) CRCString() string {
	if e.CRC == 0 {
		return "-"
	}
	return fmt.Sprintf("0x%08X", e.CRC)
}

// AttributeString 显示用的DOS属性字母
func (e *FileEntry) AttributeString() string {
	var b strings.Builder
	for _, attr := range []struct {
		bit    uint32
		letter byte
	}{
		{0x01, 'R'},
		{0x02, 'H'},
		{0x04, 'S'},
		{0x10, 'D'},
		{0x20, 'A'},
	} {
		if e.Attributes&attr.bit != 0 {
			b.WriteByte(attr.letter)
		}
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

// SearchHit 搜索结果
type SearchHit struct {
	Name       string
	FullPath   string
	ParentPath string
	IsFolder   bool
	Entry      *FileEntry // 目录结果为nil
}

// catalogSnapshot 不可变的目录快照
type catalogSnapshot struct {
	entries  []*FileEntry
	byKey    map[string]int
	byParent map[string][]int
}

var emptySnapshot = &catalogSnapshot{
	byKey:    map[string]int{},
	byParent: map[string][]int{},
}

// EntryCatalog 扁平文件条目集合
// Rebuild 整体替换快照，读者只会看到旧快照或新快照。
type EntryCatalog struct {
	snapshot atomic.Pointer[catalogSnapshot]
}

// NewEntryCatalog 创建空目录
func NewEntryCatalog() *EntryCatalog {
	c := &EntryCatalog{}
	c.snapshot.Store(emptySnapshot)
	return c
}

// Rebuild 用新的条目序列替换整个目录
// 相同键出现多次时后者覆盖前者，位置保持首次出现的位置。
func (c *EntryCatalog) Rebuild(entries []*FileEntry) {
	c.snapshot.Store(buildSnapshot(entries))
}

func buildSnapshot(entries []*FileEntry) *catalogSnapshot {
	snap := &catalogSnapshot{
		entries:  make([]*FileEntry, 0, len(entries)),
		byKey:    make(map[string]int, len(entries)),
		byParent: make(map[string][]int),
	}
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if idx, ok := snap.byKey[entry.Key]; ok {
			snap.entries[idx] = entry
			continue
		}
		idx := len(snap.entries)
		snap.entries = append(snap.entries, entry)
		snap.byKey[entry.Key] = idx
		snap.byParent[entry.ParentPath] = append(snap.byParent[entry.ParentPath], idx)
	}
	return snap
}

func (c *EntryCatalog) current() *catalogSnapshot {
	if snap := c.snapshot.Load(); snap != nil {
		return snap
	}
	return emptySnapshot
}

// Len 条目数量
func (c *EntryCatalog) Len() int {
	return len(c.current().entries)
}

// Entries 按目录顺序返回全部条目
func (c *EntryCatalog) Entries() []*FileEntry {
	return append([]*FileEntry(nil), c.current().entries...)
}

// Lookup 按规范化键查找
func (c *EntryCatalog) Lookup(key string) (*FileEntry, bool) {
	snap := c.current()
	idx, ok := snap.byKey[key]
	if !ok {
		return nil, false
	}
	return snap.entries[idx], true
}

// EntriesUnder 返回 ParentPath 精确等于 parentPath 的条目（只有一层）
func (c *EntryCatalog) EntriesUnder(parentPath string) []*FileEntry {
	snap := c.current()
	indexes := snap.byParent[parentPath]
	result := make([]*FileEntry, 0, len(indexes))
	for _, idx := range indexes {
		result = append(result, snap.entries[idx])
	}
	return result
}

// Search 不区分大小写的子串搜索
// 先按目录顺序返回文件，再按树的先序返回目录（不含根）；空查询无结果。
func (c *EntryCatalog) Search(query string, tree *FolderTree) []SearchHit {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	needle := strings.ToLower(query)
	contains := func(name, parent string) bool {
		return strings.Contains(strings.ToLower(name), needle) ||
			strings.Contains(strings.ToLower(parent+"/"+name), needle)
	}

	var hits []SearchHit
	for _, entry := range c.current().entries {
		if contains(entry.Name, entry.ParentPath) {
			hits = append(hits, fileHit(entry))
		}
	}
	if tree == nil {
		return hits
	}
	for node := range tree.EnumerateSubtree(tree.Root()) {
		if node.FullPath == "" {
			continue
		}
		parent, _ := tree.Parent(node.FullPath)
		if contains(node.Name, parent) {
			hits = append(hits, folderHit(node, parent))
		}
	}
	return hits
}

// SearchGlob 用 doublestar 模式匹配完整键，结果顺序与 Search 相同
func (c *EntryCatalog) SearchGlob(pattern string, tree *FolderTree) ([]SearchHit, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, NewArchiveError(ErrInvalidPath, "无效的匹配模式", pattern, doublestar.ErrBadPattern)
	}

	var hits []SearchHit
	for _, entry := range c.current().entries {
		if ok, _ := doublestar.Match(pattern, entry.Key); ok {
			hits = append(hits, fileHit(entry))
		}
	}
	if tree == nil {
		return hits, nil
	}
	for node := range tree.EnumerateSubtree(tree.Root()) {
		if node.FullPath == "" {
			continue
		}
		if ok, _ := doublestar.Match(pattern, node.FullPath); ok {
			parent, _ := tree.Parent(node.FullPath)
			hits = append(hits, folderHit(node, parent))
		}
	}
	return hits, nil
}

// SearchFuzzy 按模糊匹配得分排序的文件结果
func (c *EntryCatalog) SearchFuzzy(query string) []SearchHit {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	entries := c.current().entries
	keys := make([]string, len(entries))
	for i, entry := range entries {
		keys[i] = entry.Key
	}

	matches := fuzzy.Find(query, keys)
	hits := make([]SearchHit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, fileHit(entries[m.Index]))
	}
	return hits
}

func fileHit(entry *FileEntry) SearchHit {
	return SearchHit{
		Name:       entry.Name,
		FullPath:   entry.Key,
		ParentPath: entry.ParentPath,
		Entry:      entry,
	}
}

func folderHit(node *FolderNode, parent string) SearchHit {
	return SearchHit{
		Name:       node.Name,
		FullPath:   node.FullPath,
		ParentPath: parent,
		IsFolder:   true,
	}
}
