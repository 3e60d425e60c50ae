package fluentzip

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"unicode"
)

// KeyValidator 条目键安全验证器接口
type KeyValidator interface {
	// ValidateKey 验证条目键可以安全地落到本地暂存目录
	ValidateKey(key string) error

	// SafeJoin 将条目键连接到基础目录下
	SafeJoin(baseDir, key string) (string, error)
}

// defaultKeyValidator 默认条目键验证器
type defaultKeyValidator struct {
	windowsRules  bool
	maxPathLength int
}

// NewKeyValidator 创建条目键验证器，Windows上额外检查保留名称和非法字符
func NewKeyValidator() KeyValidator {
	return &defaultKeyValidator{
		windowsRules:  runtime.GOOS == "windows",
		maxPathLength: 4096,
	}
}

// ValidateKey 验证条目键
func (v *defaultKeyValidator) ValidateKey(key string) error {
	normalized := NormalizeKey(key)
	if strings.TrimSpace(strings.Trim(normalized, "/")) == "" {
		return NewArchiveError(ErrInvalidPath, "条目键不能为空", key, nil)
	}
	if len(normalized) > v.maxPathLength {
		return NewArchiveError(ErrInvalidPath,
			fmt.Sprintf("条目键长度超过限制 (%d > %d)", len(normalized), v.maxPathLength), key, nil)
	}
	if strings.HasPrefix(normalized, "/") || filepath.VolumeName(normalized) != "" || hasDriveLetter(normalized) {
		return NewArchiveError(ErrInvalidPath, "不允许绝对路径", key, nil)
	}

	if err := v.checkTraversal(normalized); err != nil {
		return err
	}
	if err := v.checkCharacters(normalized); err != nil {
		return err
	}
	if v.windowsRules {
		return v.checkReservedNames(normalized)
	}
	return nil
}

// SafeJoin 安全地连接路径
func (v *defaultKeyValidator) SafeJoin(baseDir, key string) (string, error) {
	if err := v.ValidateKey(key); err != nil {
		return "", err
	}

	result := filepath.Join(baseDir, filepath.FromSlash(NormalizeKey(key)))

	// 最终验证
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", NewArchiveError(ErrInvalidPath, "无法解析基础目录", baseDir, err)
	}
	absResult, err := filepath.Abs(result)
	if err != nil {
		return "", NewArchiveError(ErrInvalidPath, "无法解析目标路径", key, err)
	}
	rel, err := filepath.Rel(absBase, absResult)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", NewArchiveError(ErrInvalidPath, "路径连接后超出基础目录", key, err)
	}
	return result, nil
}

// checkTraversal 检查 "." 和 ".." 路径段
func (v *defaultKeyValidator) checkTraversal(key string) error {
	for _, segment := range strings.Split(strings.TrimRight(key, "/"), "/") {
		switch segment {
		case "..":
			return NewArchiveError(ErrInvalidPath, "检测到路径遍历: ..", key, nil)
		case ".", "":
			return NewArchiveError(ErrInvalidPath, "条目键包含空路径段", key, nil)
		}
	}
	return nil
}

// checkCharacters 检查控制字符及Windows非法字符
func (v *defaultKeyValidator) checkCharacters(key string) error {
	for _, char := range key {
		if unicode.IsControl(char) {
			return NewArchiveError(ErrInvalidPath,
				fmt.Sprintf("条目键包含控制字符: U+%04X", char), key, nil)
		}
		if v.windowsRules && strings.ContainsRune(`<>:"|?*`, char) {
			return NewArchiveError(ErrInvalidPath,
				fmt.Sprintf("条目键包含非法字符: %c", char), key, nil)
		}
	}
	return nil
}

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// checkReservedNames 检查Windows保留名称
func (v *defaultKeyValidator) checkReservedNames(key string) error {
	for _, component := range strings.Split(key, "/") {
		name := strings.ToUpper(component)
		if dot := strings.Index(name, "."); dot > 0 {
			name = name[:dot]
		}
		if _, reserved := reservedNames[name]; reserved {
			return NewArchiveError(ErrInvalidPath,
				fmt.Sprintf("条目键包含Windows保留名称: %s", name), key, nil)
		}
	}
	return nil
}

func hasDriveLetter(key string) bool {
	return len(key) >= 2 && key[1] == ':' &&
		((key[0] >= 'a' && key[0] <= 'z') || (key[0] >= 'A' && key[0] <= 'Z'))
}

// PathSafeJoin 使用默认验证器连接条目键
func PathSafeJoin(baseDir, key string) (string, error) {
	return NewKeyValidator().SafeJoin(baseDir, key)
}
