package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	fluentzip "github.com/SUlTlUS/FluentZip"
	"github.com/SUlTlUS/FluentZip/internal/config"
	"github.com/SUlTlUS/FluentZip/internal/logging"
	"github.com/SUlTlUS/FluentZip/internal/recent"
)

var cfg *config.Config

var (
	_ fluentzip.RecentFilesSink   = (*recent.Store)(nil)
	_ fluentzip.RecentFilesSource = (*recent.Store)(nil)
)

var rootCmd = &cobra.Command{
	Use:           "fluentzip",
	Short:         "Browse and edit ZIP, 7z and RAR archives",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			loaded.Log.Level = level
		}
		if passwords, _ := cmd.Flags().GetStringSlice("password"); len(passwords) > 0 {
			loaded.Passwords = append(passwords, loaded.Passwords...)
		}
		cfg = loaded
		return logging.Init(cfg.Log)
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config.yaml (default: user config dir)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringSliceP("password", "p", nil, "Password to try for encrypted archives (repeatable)")
	rootCmd.PersistentFlags().Bool("progress", false, "Print progress to stderr")
}

// recentStore opens the configured recent-files list.
func recentStore() *recent.Store {
	return recent.NewOSStore(cfg.RecentFile, cfg.RecentMax)
}

// openArchive loads path with the configured passwords, tool and recent list.
func openArchive(cmd *cobra.Command, path string) (*fluentzip.Archive, error) {
	opts := &fluentzip.Options{
		Passwords: cfg.Passwords,
		Tool: fluentzip.ToolOptions{
			BaseDir:        cfg.ToolDir,
			ExecutableName: cfg.ToolName,
			TempDir:        cfg.TempDir,
		},
		Recent: recentStore(),
		Logger: logging.L(),
	}
	if show, _ := cmd.Flags().GetBool("progress"); show {
		opts.LoadProgress = progressPrinter(cmd, "load")
		opts.MutationProgress = progressPrinter(cmd, "write")
	}
	return fluentzip.Open(cmd.Context(), path, opts)
}

func progressPrinter(cmd *cobra.Command, label string) fluentzip.ProgressCallback {
	return func(current, total int64, name string) {
		percent := 100.0
		if total > 0 {
			percent = float64(current) * 100 / float64(total)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "\r%s %5.1f%% (%d/%d)", label, percent, current, total)
		if current >= total {
			fmt.Fprintln(cmd.ErrOrStderr())
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.L().Debug("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "fluentzip:", describeError(err))
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps error types to distinct process exit codes.
func exitCode(err error) int {
	switch {
	case fluentzip.IsErrorType(err, fluentzip.ErrNotFound):
		return 3
	case fluentzip.IsErrorType(err, fluentzip.ErrFormatUnsupported):
		return 4
	case fluentzip.IsErrorType(err, fluentzip.ErrNoMatch):
		return 5
	case fluentzip.IsErrorType(err, fluentzip.ErrCancelled):
		return 130
	default:
		return 1
	}
}

var errorSummaries = map[fluentzip.ErrorType]string{
	fluentzip.ErrNotFound:          "not found",
	fluentzip.ErrFormatUnsupported: "unsupported archive format",
	fluentzip.ErrParseFailure:      "cannot read archive",
	fluentzip.ErrToolFailure:       "7-Zip failed",
	fluentzip.ErrCancelled:         "cancelled",
	fluentzip.ErrNoMatch:           "nothing matched",
	fluentzip.ErrInvalidPath:       "invalid path",
	fluentzip.ErrIOFailure:         "i/o error",
	fluentzip.ErrInternalError:     "internal error",
}

// describeError renders archive errors in English for the terminal.
func describeError(err error) string {
	var archiveErr *fluentzip.ArchiveError
	if !errors.As(err, &archiveErr) {
		return err.Error()
	}

	summary, ok := errorSummaries[archiveErr.Type]
	if !ok {
		summary = strings.ToLower(string(archiveErr.Type))
	}
	parts := []string{summary}
	if archiveErr.Path != "" {
		parts = append(parts, archiveErr.Path)
	}
	if cause := archiveErr.Cause; cause != nil && !errors.Is(cause, context.Canceled) {
		var nested *fluentzip.ArchiveError
		if errors.As(cause, &nested) {
			parts = append(parts, describeError(nested))
		} else {
			parts = append(parts, cause.Error())
		}
	}
	return strings.Join(parts, ": ")
}
