package fluentzip

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SUlTlUS/FluentZip/internal/logging"
)

const (
	defaultToolName         = "7za"
	listingPathPrefix       = "Path = "
	listingFolderPrefix     = "Folder = "
	listingAttributesPrefix = "Attributes = "
	listingSeparator        = "----------"
	stagingWorkers          = 4
	toolWaitDelay           = 2 * time.Second
)

// ToolExitError 7-Zip以非零退出码结束
type ToolExitError struct {
	Code   int
	Stderr string
}

func (e *ToolExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return fmt.Sprintf("exit status %d: %s", e.Code, e.Stderr)
}

// ToolOptions 外部7-Zip工具选项
type ToolOptions struct {
	BaseDir        string // 探测目录，默认为可执行文件所在目录
	ExecutableName string // 默认 7za
	TempDir        string // 列表文件和暂存目录位置，默认系统临时目录
	Logger         *zap.Logger
}

// toolResult 一次进程调用的结果
type toolResult struct {
	stdout   []byte
	stderr   []byte
	exitCode int
}

// commandRunner 进程执行接口
type commandRunner interface {
	run(ctx context.Context, dir, name string, args ...string) (toolResult, error)
}

// execRunner 基于os/exec的执行器
type execRunner struct {
	waitDelay time.Duration
}

func (r execRunner) run(ctx context.Context, dir, name string, args ...string) (toolResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = r.waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	result := toolResult{stdout: stdout.Bytes(), stderr: stderr.Bytes()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.exitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, runErr
	}
	return result, nil
}

// SevenZipTool 通过命令行7-Zip处理没有原生写入支持的格式
type SevenZipTool struct {
	baseDir   string
	name      string
	tempDir   string
	goos      string
	goarch    string
	lookPath  func(string) (string, error)
	runner    commandRunner
	validator KeyValidator
	logger    *zap.Logger
}

// NewSevenZipTool 创建外部工具适配器
func NewSevenZipTool(opts ToolOptions) *SevenZipTool {
	if opts.BaseDir == "" {
		if exe, err := os.Executable(); err == nil {
			opts.BaseDir = filepath.Dir(exe)
		}
	}
	if opts.ExecutableName == "" {
		opts.ExecutableName = defaultToolName
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Named("7zip")
	}
	return &SevenZipTool{
		baseDir:   opts.BaseDir,
		name:      opts.ExecutableName,
		tempDir:   opts.TempDir,
		goos:      runtime.GOOS,
		goarch:    runtime.GOARCH,
		lookPath:  exec.LookPath,
		runner:    execRunner{waitDelay: toolWaitDelay},
		validator: NewKeyValidator(),
		logger:    opts.Logger,
	}
}

// archFolder 架构子目录名
func (t *SevenZipTool) archFolder() string {
	switch t.goarch {
	case "arm64":
		return "arm64"
	case "amd64":
		return "x64"
	default:
		return ""
	}
}

func (t *SevenZipTool) executable(name string) string {
	if t.goos == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name + ".exe"
	}
	return name
}

// Candidates 按探测顺序返回候选路径（不含PATH查找）
func (t *SevenZipTool) Candidates() []string {
	exe := t.executable(t.name)
	arch := t.archFolder()

	var candidates []string
	if arch != "" {
		candidates = append(candidates, filepath.Join(t.baseDir, arch, exe))
	}
	candidates = append(candidates, filepath.Join(t.baseDir, exe))
	if arch != "" {
		candidates = append(candidates, filepath.Join(t.baseDir, "Assets", "SevenZip", arch, exe))
	}
	candidates = append(candidates, filepath.Join(t.baseDir, "Assets", "SevenZip", exe))
	return candidates
}

// Locate 查找7-Zip可执行文件
func (t *SevenZipTool) Locate() (string, error) {
	if t.baseDir != "" {
		for _, candidate := range t.Candidates() {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}

	for _, name := range RemoveDuplicateStrings([]string{t.name, "7za", "7z", "7zz"}) {
		if found, err := t.lookPath(name); err == nil {
			return found, nil
		}
	}
	return "", NewArchiveError(ErrNotFound, "找不到7-Zip命令行工具", t.name, nil)
}

// invoke 定位并运行工具，非零退出码一律视为失败
func (t *SevenZipTool) invoke(ctx context.Context, tool, dir, archivePath string, args ...string) (toolResult, error) {
	start := time.Now()
	result, err := t.runner.run(ctx, dir, tool, args...)

	fields := []zap.Field{
		zap.String("tool", tool),
		zap.String("command", args[0]),
		zap.Int("exit_code", result.exitCode),
		zap.Int("stderr_bytes", len(result.stderr)),
		zap.Duration("elapsed", time.Since(start)),
	}
	switch {
	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		t.logger.Info("7-zip cancelled", fields...)
		return result, cancelledError(archivePath, err)
	case err != nil:
		t.logger.Warn("7-zip failed to start", append(fields, zap.Error(err))...)
		return result, NewArchiveError(ErrToolFailure, "无法启动7-Zip", archivePath, err)
	case result.exitCode != 0:
		t.logger.Warn("7-zip exited with error", fields...)
		exitErr := &ToolExitError{Code: result.exitCode, Stderr: strings.TrimSpace(string(result.stderr))}
		return result, NewArchiveError(ErrToolFailure, fmt.Sprintf("7-Zip退出码 %d", result.exitCode), archivePath, exitErr)
	}
	t.logger.Debug("7-zip done", fields...)
	return result, nil
}

// ListEntries 列出压缩包内全部条目键
func (t *SevenZipTool) ListEntries(ctx context.Context, archivePath string) ([]string, error) {
	tool, err := t.Locate()
	if err != nil {
		return nil, err
	}
	return t.list(ctx, tool, archivePath)
}

func (t *SevenZipTool) list(ctx context.Context, tool, archivePath string) ([]string, error) {
	result, err := t.invoke(ctx, tool, "", archivePath, "l", "-slt", absPath(archivePath))
	if err != nil {
		return nil, err
	}
	return parseListing(result.stdout), nil
}

// DeleteEntries 删除匹配删除规则的条目
func (t *SevenZipTool) DeleteEntries(ctx context.Context, archivePath string, removals *RemovalSet) error {
	tool, err := t.Locate()
	if err != nil {
		return err
	}
	if removals.Len() == 0 {
		return NewArchiveError(ErrNoMatch, "没有要删除的条目", archivePath, nil)
	}

	keys, err := t.list(ctx, tool, archivePath)
	if err != nil {
		return err
	}
	resolved := resolveRemovals(keys, removals)
	if len(resolved) == 0 {
		return NewArchiveError(ErrNoMatch, "没有匹配的条目", archivePath, nil)
	}

	if err := ensureDirectoryExists(t.tempDir); err != nil {
		return NewArchiveError(ErrIOFailure, "无法创建临时目录", t.tempDir, err)
	}
	listFile := filepath.Join(t.tempDir, tempName("del_", ".txt"))
	defer func() {
		if err := removeIfExists(listFile); err != nil {
			t.logger.Warn("remove list file", zap.String("path", listFile), zap.Error(err))
		}
	}()
	if err := os.WriteFile(listFile, []byte(strings.Join(resolved, "\n")), 0o600); err != nil {
		return NewArchiveError(ErrIOFailure, "无法写入删除列表", listFile, err)
	}

	t.logger.Info("7-zip delete", zap.String("path", archivePath), zap.Int("entries", len(resolved)))
	_, err = t.invoke(ctx, tool, "", archivePath, "d", absPath(archivePath), "@"+listFile, "-r", "-y")
	return err
}

// AddEntries 通过暂存目录添加或更新条目
func (t *SevenZipTool) AddEntries(ctx context.Context, archivePath string, additions []PendingAddition) error {
	tool, err := t.Locate()
	if err != nil {
		return err
	}
	if len(additions) == 0 {
		return nil
	}

	staged := make([]PendingAddition, 0, len(additions))
	seen := make(map[string]struct{}, len(additions))
	for _, addition := range additions {
		if err := t.validator.ValidateKey(addition.Key); err != nil {
			return err
		}
		if addition.Open == nil {
			return NewArchiveError(ErrInvalidPath, "新增条目缺少内容", addition.Key, nil)
		}
		key := strings.TrimRight(NormalizeKey(addition.Key), "/")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		staged = append(staged, PendingAddition{Key: key, Open: addition.Open})
	}

	if err := ensureDirectoryExists(t.tempDir); err != nil {
		return NewArchiveError(ErrIOFailure, "无法创建临时目录", t.tempDir, err)
	}
	stagingDir := filepath.Join(t.tempDir, tempName("add_", ""))
	if err := os.Mkdir(stagingDir, 0o700); err != nil {
		return NewArchiveError(ErrIOFailure, "无法创建暂存目录", stagingDir, err)
	}
	defer func() {
		if err := os.RemoveAll(stagingDir); err != nil {
			t.logger.Warn("remove staging dir", zap.String("path", stagingDir), zap.Error(err))
		}
	}()

	if err := t.stage(ctx, stagingDir, staged); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cancelledError(archivePath, ctxErr)
		}
		return err
	}

	t.logger.Info("7-zip update", zap.String("path", archivePath), zap.Int("entries", len(staged)))
	_, err = t.invoke(ctx, tool, stagingDir, archivePath, "u", absPath(archivePath), "*", "-r", "-y")
	return err
}

// stage 并发地把新增内容写入暂存目录
func (t *SevenZipTool) stage(ctx context.Context, stagingDir string, additions []PendingAddition) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stagingWorkers)

	for _, addition := range additions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			target, err := t.validator.SafeJoin(stagingDir, addition.Key)
			if err != nil {
				return err
			}
			return materialize(target, addition)
		})
	}
	return g.Wait()
}

// materialize 把单个条目内容写到目标文件
func materialize(target string, addition PendingAddition) error {
	if err := ensureDirectoryExists(filepath.Dir(target)); err != nil {
		return NewArchiveError(ErrIOFailure, "无法创建暂存子目录", target, err)
	}

	src, err := addition.Open()
	if err != nil {
		return NewArchiveError(ErrIOFailure, "无法打开新增内容", addition.Key, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return NewArchiveError(ErrIOFailure, "无法创建暂存文件", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return NewArchiveError(ErrIOFailure, "写入暂存文件失败", target, err)
	}
	if err := dst.Close(); err != nil {
		return NewArchiveError(ErrIOFailure, "关闭暂存文件失败", target, err)
	}
	return nil
}

// parseListing 解析 `l -slt` 输出中的条目块
// 目录条目（Folder = + 或属性以 D 开头）的键以 "/" 结尾。
func parseListing(output []byte) []string {
	var keys []string
	afterSeparator := !bytes.Contains(output, []byte(listingSeparator))

	pending, folder := "", false
	flush := func() {
		if pending != "" {
			if folder {
				pending += "/"
			}
			keys = append(keys, pending)
		}
		pending, folder = "", false
	}

	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !afterSeparator {
			afterSeparator = strings.HasPrefix(line, listingSeparator)
			continue
		}
		if value, ok := strings.CutPrefix(line, listingPathPrefix); ok {
			flush()
			pending = strings.TrimRight(NormalizeKey(strings.TrimSpace(value)), "/")
			continue
		}
		if value, ok := strings.CutPrefix(line, listingFolderPrefix); ok {
			folder = folder || strings.TrimSpace(value) == "+"
		} else if value, ok := strings.CutPrefix(line, listingAttributesPrefix); ok {
			folder = folder || strings.HasPrefix(strings.TrimSpace(value), "D")
		}
	}
	flush()
	return RemoveDuplicateStrings(keys)
}

// resolveRemovals 把删除规则解析为实际存在的条目名，目录名不带结尾的 "/"
func resolveRemovals(keys []string, removals *RemovalSet) []string {
	var resolved []string
	for _, key := range keys {
		name := strings.TrimSuffix(key, "/")
		if removals.Matches(key) || (name != key && removals.Matches(name)) {
			resolved = append(resolved, name)
		}
	}
	return resolved
}
