// Package osname resolves a human-readable operating system product name.
package osname

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
)

// maxNameLen rejects command output that is clearly not a product name.
const maxNameLen = 50

// Resolver returns an OS name. It never fails; implementations fall back to a
// generic answer.
type Resolver interface {
	Resolve(ctx context.Context) string
}

// Static always resolves to the same name.
type Static string

// Resolve returns s.
func (s Static) Resolve(context.Context) string { return string(s) }

type runner func(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error)

// CommandResolver asks a platform-specific command for the product name and
// falls back to the gopsutil platform string.
type CommandResolver struct {
	timeout  time.Duration
	logger   *slog.Logger
	run      runner
	fallback func(ctx context.Context) string
}

// New returns a CommandResolver. If logger is nil, a discard logger is used.
func New(timeout time.Duration, logger *slog.Logger) *CommandResolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CommandResolver{
		timeout:  timeout,
		logger:   logger,
		run:      runCmd,
		fallback: Generic,
	}
}

// Resolve runs the product-name command once.
func (r *CommandResolver) Resolve(ctx context.Context) string {
	name, args := productCommand()
	out, err := r.run(ctx, r.timeout, name, args...)
	out = strings.TrimSpace(out)
	switch {
	case err != nil:
		r.logger.Debug("os name command failed, using fallback", "command", name, "error", err)
	case out == "":
		r.logger.Debug("os name command returned nothing, using fallback", "command", name)
	case len(out) > maxNameLen:
		r.logger.Debug("os name command output too long, using fallback", "command", name, "len", len(out))
	default:
		return out
	}
	return r.fallback(ctx)
}

// Generic builds a name from gopsutil host info, or GOOS if that fails.
func Generic(ctx context.Context) string {
	info, err := host.InfoWithContext(ctx)
	if err != nil || info.Platform == "" {
		return runtime.GOOS
	}
	if info.PlatformVersion != "" {
		return fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
	}
	return info.Platform
}

func runCmd(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, name, args...)
	hideWindow(cmd)
	out, err := cmd.Output()
	if ctx.Err() == context.DeadlineExceeded {
		return "", ctx.Err()
	}
	return string(out), err
}
