package fluentzip

import (
	"errors"
	"strings"
)

// passwordErrorHints 读取库在密码错误或缺失时的报错片段
var passwordErrorHints = []string{
	"password",
	"encrypted",
	"checksum error",
	"bad key",
}

// passwordCascade 按顺序尝试候选密码打开头部加密的压缩包
type passwordCascade struct {
	candidates []string
}

// newPasswordCascade 空密码总是第一个候选，之后是去重的用户密码
func newPasswordCascade(userPasswords []string) *passwordCascade {
	return &passwordCascade{
		candidates: RemoveDuplicateStrings(append([]string{""}, userPasswords...)),
	}
}

// open 用候选密码依次调用 attempt，返回第一个成功的密码
// 非密码类错误立即返回；候选全部失败时报告最后一个密码错误。
func (c *passwordCascade) open(archivePath string, attempt func(password string) error) (string, error) {
	var lastErr error
	for _, password := range c.candidates {
		err := attempt(password)
		if err == nil {
			return password, nil
		}
		if !isPasswordError(err) {
			return "", err
		}
		lastErr = err
	}
	return "", NewArchiveError(ErrParseFailure, "没有可用的密码打开压缩包", archivePath, lastErr)
}

// isPasswordError 是否为密码相关错误
func isPasswordError(err error) bool {
	if err == nil {
		return false
	}
	var archiveErr *ArchiveError
	if errors.As(err, &archiveErr) && archiveErr.Cause != nil {
		err = archiveErr.Cause
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range passwordErrorHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
