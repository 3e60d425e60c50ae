package fluentzip

import (
	"iter"
	"strings"
)

// FolderNode 目录节点
type FolderNode struct {
	Name     string
	FullPath string

	children []*FolderNode
	byName   map[string]*FolderNode // 小写名称 -> 子节点
}

// Children 返回子目录（按首次插入顺序）
func (n *FolderNode) Children() []*FolderNode {
	return append([]*FolderNode(nil), n.children...)
}

// child 按名称（不区分大小写）查找子节点
func (n *FolderNode) child(name string) *FolderNode {
	return n.byName[strings.ToLower(name)]
}

// FolderTree 由扁平键构建的目录树
// 父子关系记录在显式索引中，节点不持有父指针。
// 只由加载流程单协程构建，发布后只读。
type FolderTree struct {
	root    *FolderNode
	parents map[string]string // 子路径 -> 父路径
}

// NewFolderTree 创建只有根节点的目录树
func NewFolderTree() *FolderTree {
	return &FolderTree{
		root:    newFolderNode("", ""),
		parents: make(map[string]string),
	}
}

func newFolderNode(name, fullPath string) *FolderNode {
	return &FolderNode{
		Name:     name,
		FullPath: fullPath,
		byName:   make(map[string]*FolderNode),
	}
}

// Root 返回根节点
func (t *FolderTree) Root() *FolderNode {
	return t.root
}

// EnsurePath 逐段创建缺失的目录并返回终端节点
// path 需已规范化且去掉结尾斜杠；重复调用不会创建新节点。
func (t *FolderTree) EnsurePath(path string) *FolderNode {
	node := t.root
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		next := node.child(segment)
		if next == nil {
			fullPath := segment
			if node.FullPath != "" {
				fullPath = node.FullPath + "/" + segment
			}
			next = newFolderNode(segment, fullPath)
			node.children = append(node.children, next)
			node.byName[strings.ToLower(segment)] = next
			t.parents[fullPath] = node.FullPath
		}
		node = next
	}
	return node
}

// FindByFullPath 精确匹配查找，空路径返回根节点
func (t *FolderTree) FindByFullPath(path string) *FolderNode {
	return findByFullPath(t.root, path)
}

func findByFullPath(node *FolderNode, path string) *FolderNode {
	if node == nil {
		return nil
	}
	if node.FullPath == path {
		return node
	}
	for _, child := range node.children {
		if path != child.FullPath && !strings.HasPrefix(path, child.FullPath+"/") {
			continue
		}
		if found := findByFullPath(child, path); found != nil {
			return found
		}
	}
	return nil
}

// lookupFold 按 EnsurePath 的规则逐段查找，忽略大小写
func (t *FolderTree) lookupFold(path string) *FolderNode {
	node := t.root
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		if node = node.child(segment); node == nil {
			return nil
		}
	}
	return node
}

// Parent 返回目录的父路径
func (t *FolderTree) Parent(path string) (string, bool) {
	parent, ok := t.parents[path]
	return parent, ok
}

// Len 目录数量（不含根）
func (t *FolderTree) Len() int {
	return len(t.parents)
}

// EnumerateSubtree 深度优先（先序）遍历 node 及其全部子目录
// 每次调用返回独立的序列，可重复遍历。
func (t *FolderTree) EnumerateSubtree(node *FolderNode) iter.Seq[*FolderNode] {
	return func(yield func(*FolderNode) bool) {
		if node == nil {
			return
		}
		walkSubtree(node, yield)
	}
}

func walkSubtree(node *FolderNode, yield func(*FolderNode) bool) bool {
	if !yield(node) {
		return false
	}
	for _, child := range node.children {
		if !walkSubtree(child, yield) {
			return false
		}
	}
	return true
}
