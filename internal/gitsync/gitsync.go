// Package gitsync pushes the knowledge base directory to a GitHub repository.
package gitsync

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"curator/internal/config"
	"curator/internal/logging"
	"curator/internal/services"
)

// CommandRunner executes one git invocation in dir and returns the combined
// output. Injected so tests can run without a git binary.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) (string, error)

func defaultRunner(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// Agent mirrors the knowledge base directory to the configured remote. All
// failures carry the sync fault marker so callers can degrade instead of
// aborting the run.
type Agent struct {
	repoDir   string
	repoURL   string
	token     string
	userName  string
	userEmail string
	binary    string
	branch    string
	run       CommandRunner
	logger    *slog.Logger
}

// Option adjusts agent construction.
type Option func(*Agent)

// WithRunner replaces the git command runner.
func WithRunner(run CommandRunner) Option {
	return func(a *Agent) { a.run = run }
}

// New returns a sync agent for cfg's knowledge base directory.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Agent {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Agent{
		repoDir:   cfg.Paths.KnowledgeBaseDir,
		repoURL:   cfg.GitHub.RepoURL,
		token:     cfg.GitHub.Token,
		userName:  cfg.GitHub.UserName,
		userEmail: cfg.GitHub.UserEmail,
		binary:    cfg.GitBinary(),
		branch:    "main",
		run:       defaultRunner,
		logger:    logger.With(logging.String(logging.FieldComponent, "gitsync")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sync commits everything under the knowledge base directory and pushes it.
// A diverged remote is merged first; merge conflicts on README.md resolve to
// the local side since the README is regenerated from the catalog every run.
func (a *Agent) Sync(ctx context.Context, message string) error {
	if err := a.ensureRepo(ctx); err != nil {
		return a.fault("ensure-repo", err)
	}
	if _, err := a.git(ctx, "add", "-A"); err != nil {
		return a.fault("add", err)
	}
	status, err := a.git(ctx, "status", "--porcelain")
	if err != nil {
		return a.fault("status", err)
	}
	if strings.TrimSpace(status) != "" {
		if _, err := a.git(ctx, "commit", "-m", message); err != nil {
			return a.fault("commit", err)
		}
	}
	if err := a.pull(ctx); err != nil {
		return a.fault("pull", err)
	}
	if _, err := a.git(ctx, "push", "-u", "origin", a.branch); err != nil {
		return a.fault("push", err)
	}
	a.logger.Info("knowledge base synced", logging.String("remote", a.repoURL))
	return nil
}

func (a *Agent) ensureRepo(ctx context.Context) error {
	remote := a.authenticatedURL()
	if _, err := os.Stat(filepath.Join(a.repoDir, ".git")); err == nil {
		_, err := a.git(ctx, "remote", "set-url", "origin", remote)
		return err
	}
	if _, err := a.git(ctx, "init", "-b", a.branch); err != nil {
		return err
	}
	if _, err := a.git(ctx, "remote", "add", "origin", remote); err != nil {
		return err
	}
	if a.userName != "" {
		if _, err := a.git(ctx, "config", "user.name", a.userName); err != nil {
			return err
		}
	}
	if a.userEmail != "" {
		if _, err := a.git(ctx, "config", "user.email", a.userEmail); err != nil {
			return err
		}
	}
	return nil
}

// pull merges the remote branch. An empty or unborn remote is fine; a README
// conflict is resolved by keeping the local copy and committing the merge.
func (a *Agent) pull(ctx context.Context) error {
	_, err := a.git(ctx, "pull", "--no-rebase", "origin", a.branch)
	if err == nil {
		return nil
	}
	msg := err.Error()
	// An unborn remote branch has nothing to merge yet.
	if strings.Contains(msg, "couldn't find remote ref") {
		return nil
	}
	if !strings.Contains(msg, "CONFLICT") {
		return err
	}
	if !strings.Contains(msg, "README.md") {
		return err
	}
	if _, err := a.git(ctx, "checkout", "--ours", "README.md"); err != nil {
		return err
	}
	if _, err := a.git(ctx, "add", "README.md"); err != nil {
		return err
	}
	if _, err := a.git(ctx, "commit", "--no-edit"); err != nil {
		return err
	}
	a.logger.Warn("resolved README merge conflict with local copy")
	return nil
}

func (a *Agent) git(ctx context.Context, args ...string) (string, error) {
	return a.run(ctx, a.repoDir, a.binary, args...)
}

func (a *Agent) fault(op string, err error) error {
	return services.Wrap(services.ErrSync, "sync", op, "git sync failed", err)
}

// authenticatedURL embeds the token as userinfo for HTTPS remotes.
func (a *Agent) authenticatedURL() string {
	if a.token == "" {
		return a.repoURL
	}
	parsed, err := url.Parse(a.repoURL)
	if err != nil || !strings.HasPrefix(parsed.Scheme, "http") {
		return a.repoURL
	}
	parsed.User = url.User(a.token)
	return parsed.String()
}
