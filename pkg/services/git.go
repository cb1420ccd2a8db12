package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DiffKind tells which comparison produced a diff.
type DiffKind string

const (
	DiffUnsaved DiffKind = "unsaved" // Export preview differs from the file on disk
	DiffGit     DiffKind = "git"     // File on disk differs from HEAD
	DiffNone    DiffKind = "none"
)

// ThemeRepo publishes exported patterns from the theme's git checkout.
type ThemeRepo struct {
	Dir       string
	Remote    string
	Branch    string
	UserName  string
	UserEmail string
	Logger    *zap.Logger
}

func (r ThemeRepo) git(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	return cmd
}

// runWithToken runs git with the remote replaced by a token-authenticated URL.
// The returned output never contains the token.
func (r ThemeRepo) runWithToken(ctx context.Context, token string, args ...string) (string, error) {
	outURL, err := r.git(ctx, "remote", "get-url", r.Remote).Output()
	if err != nil {
		return "Failed to get remote url", err
	}
	remoteURL := strings.TrimSpace(string(outURL))
	u, err := url.Parse(remoteURL)
	if err != nil {
		return "Invalid remote url", err
	}
	u.User = url.UserPassword("oauth2", token)
	authenticatedURL := u.String()

	newArgs := make([]string, len(args))
	copy(newArgs, args)
	for i, v := range newArgs {
		if v == r.Remote {
			newArgs[i] = authenticatedURL
		}
	}
	output, err := r.git(ctx, newArgs...).CombinedOutput()
	return redact(string(output), token, authenticatedURL, remoteURL), err
}

func redact(output, token, authenticatedURL, remoteURL string) string {
	safeLog := strings.ReplaceAll(output, authenticatedURL, remoteURL)
	if token != "" {
		safeLog = strings.ReplaceAll(safeLog, token, "***")
	}
	return safeLog
}

// Sync pulls the remote branch into the theme checkout.
func (r ThemeRepo) Sync(ctx context.Context, token string) (string, error) {
	return r.runWithToken(ctx, token, "pull", r.Remote, r.Branch)
}

// Publish commits every change under the theme directory and pushes it.
func (r ThemeRepo) Publish(ctx context.Context, token string) (string, error) {
	if out, err := r.git(ctx, "add", ".").CombinedOutput(); err != nil {
		return string(out), err
	}
	msg := fmt.Sprintf("Update patterns: %s", time.Now().Format("2006-01-02 15:04:05"))
	commit := r.git(ctx,
		"-c", "user.name="+r.UserName,
		"-c", "user.email="+r.UserEmail,
		"commit", "-m", msg,
	)
	if out, err := commit.CombinedOutput(); err != nil && r.Logger != nil {
		// Nothing to commit still pushes earlier local commits.
		r.Logger.Debug("git commit", zap.String("output", strings.TrimSpace(string(out))))
	}
	return r.runWithToken(ctx, token, "push", r.Remote, r.Branch)
}

// Diff compares a rendered export with the file on disk, falling back to the
// file's uncommitted changes against HEAD. rel is relative to Dir.
func (r ThemeRepo) Diff(ctx context.Context, current, proposed []byte, rel string) (string, DiffKind, error) {
	f1, err := writeTemp("diff_old_*", current)
	if err != nil {
		return "", DiffNone, err
	}
	defer os.Remove(f1)
	f2, err := writeTemp("diff_new_*", proposed)
	if err != nil {
		return "", DiffNone, err
	}
	defer os.Remove(f2)

	output, err := exec.CommandContext(ctx, "git", "diff", "--no-index", f1, f2).CombinedOutput()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		diffStr := string(output)
		diffStr = strings.ReplaceAll(diffStr, f1, "Saved")
		diffStr = strings.ReplaceAll(diffStr, f2, "Editor")
		return diffStr, DiffUnsaved, nil
	}
	if err != nil {
		return "", DiffNone, fmt.Errorf("git diff: %w", err)
	}

	outGit, _ := r.git(ctx, "diff", "HEAD", "--", rel).CombinedOutput()
	if len(outGit) > 0 {
		return string(outGit), DiffGit, nil
	}
	return "", DiffNone, nil
}

func writeTemp(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fsError("create", pattern, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fsError("write", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fsError("close", f.Name(), err)
	}
	return f.Name(), nil
}
