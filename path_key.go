package fluentzip

import (
	"path"
	"strings"
)

// NormalizeKey 规范化压缩包条目键
// 反斜杠统一为正斜杠，去掉开头的一个斜杠，其余（包括结尾斜杠）保持不变。
func NormalizeKey(raw string) string {
	key := strings.ReplaceAll(raw, `\`, "/")
	return strings.TrimPrefix(key, "/")
}

// RootSegment 返回键的第一段，用于判断压缩包是否只有一个顶层目录
func RootSegment(key string) string {
	trimmed := strings.Trim(strings.TrimSpace(key), "/")
	if trimmed == "" {
		return ""
	}
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}

// ParentKey 返回最后一个斜杠之前的部分，没有斜杠时返回空（根目录）
func ParentKey(key string) string {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[:idx]
	}
	return ""
}

// BaseName 返回去掉结尾斜杠后的最后一段
func BaseName(key string) string {
	trimmed := strings.TrimRight(key, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// hasExtension 文件名是否带扩展名
func hasExtension(name string) bool {
	return path.Ext(name) != ""
}

// RemovalSet 待删除键集合
// 以 "/" 结尾的键表示删除该目录本身及其下所有条目，其余为精确匹配。
type RemovalSet struct {
	keys []string
	seen map[string]struct{}
}

// NewRemovalSet 创建删除集合
func NewRemovalSet(keys ...string) *RemovalSet {
	rs := &RemovalSet{seen: make(map[string]struct{}, len(keys))}
	for _, key := range keys {
		rs.Add(key)
	}
	return rs
}

// Add 添加一个删除规则，空键被忽略
func (rs *RemovalSet) Add(key string) {
	key = NormalizeKey(key)
	if strings.TrimSpace(key) == "" {
		return
	}
	if rs.seen == nil {
		rs.seen = make(map[string]struct{})
	}
	if _, ok := rs.seen[key]; ok {
		return
	}
	rs.seen[key] = struct{}{}
	rs.keys = append(rs.keys, key)
}

// Len 规则数量
func (rs *RemovalSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.keys)
}

// Keys 按添加顺序返回规则
func (rs *RemovalSet) Keys() []string {
	if rs == nil {
		return nil
	}
	return append([]string(nil), rs.keys...)
}

// Matches 键是否命中任意删除规则（精确或前缀）
func (rs *RemovalSet) Matches(key string) bool {
	if rs == nil {
		return false
	}
	if _, ok := rs.seen[key]; ok {
		return true
	}
	for _, rule := range rs.keys {
		if matchesPrefixRule(key, rule) {
			return true
		}
	}
	return false
}

// coversSubtree 键是否落在某个目录规则之下
func (rs *RemovalSet) coversSubtree(key string) bool {
	if rs == nil {
		return false
	}
	for _, rule := range rs.keys {
		if matchesPrefixRule(key, rule) {
			return true
		}
	}
	return false
}

// matchesPrefixRule 目录规则 "a/b/" 命中自身以及以 "a/b/" 开头的键，不命中文件 "a/b"
func matchesPrefixRule(key, rule string) bool {
	return strings.HasSuffix(rule, "/") && strings.HasPrefix(key, rule)
}
