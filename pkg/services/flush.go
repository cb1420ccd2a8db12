package services

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Flusher invalidates the site's routing cache after patterns change on disk.
type Flusher interface {
	Flush(ctx context.Context) error
}

// FlushFunc adapts a function to Flusher.
type FlushFunc func(ctx context.Context) error

func (f FlushFunc) Flush(ctx context.Context) error { return f(ctx) }

// CommandFlusher runs a shell command such as "wp rewrite flush" in the site directory.
// An empty command does nothing.
type CommandFlusher struct {
	Command string
	Dir     string
	Logger  *zap.Logger
}

func (f CommandFlusher) Flush(ctx context.Context) error {
	args := strings.Fields(f.Command)
	if len(args) == 0 {
		return nil
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = f.Dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("flush rewrite rules: %w: %s", err, strings.TrimSpace(string(output)))
	}
	if f.Logger != nil {
		f.Logger.Debug("rewrite rules flushed", zap.String("output", strings.TrimSpace(string(output))))
	}
	return nil
}
