/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package runcontext assembles everything a fix run needs from the action
// inputs and the GitHub Actions environment, once, at process start.
package runcontext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"chainguard.dev/eoffix/commitgate"
	"chainguard.dev/eoffix/ignore"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"github.com/sethvargo/go-envconfig"
)

// PullRequestEvent is the only event a run acts on.
const PullRequestEvent = "pull_request"

// ErrNotPullRequest is returned by Load when the triggering event is not a
// pull request.
var ErrNotPullRequest = errors.New("this action will only work on pull requests")

// ConfigError reports missing or malformed configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config holds the action inputs and the Actions environment.
type Config struct {
	Token          string `env:"INPUT_GH_TOKEN,required"`
	IgnorePatterns string `env:"INPUT_IGNORE_FILE_PATTERNS"`
	CommitMessage  string `env:"INPUT_COMMIT_MESSAGE,default=Fix formatting"`
	CommitAuthor   string `env:"INPUT_COMMIT_AUTHOR"`
	Concurrency    int    `env:"INPUT_CONCURRENCY,default=0"`
	FailOnMissing  bool   `env:"INPUT_FAIL_ON_MISSING,default=false"`

	Repository  string `env:"GITHUB_REPOSITORY"`
	ServerURL   string `env:"GITHUB_SERVER_URL,default=https://github.com"`
	APIURL      string `env:"GITHUB_API_URL,default=https://api.github.com"`
	Actor       string `env:"GITHUB_ACTOR"`
	EventName   string `env:"GITHUB_EVENT_NAME"`
	EventPath   string `env:"GITHUB_EVENT_PATH"`
	Workspace   string `env:"GITHUB_WORKSPACE,default=."`
	StepSummary string `env:"GITHUB_STEP_SUMMARY"`

	PushgatewayURL string `env:"METRICS_PUSHGATEWAY_URL"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`
}

// Level returns the configured log level, falling back to info.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// RunContext is the resolved configuration of a single run.
type RunContext struct {
	Config

	Owner  string
	Repo   string
	Number int
	// Branch is the head branch of the pull request.
	Branch string
	// Ignores holds the configured patterns followed by the built-in ones.
	Ignores  ignore.List
	Identity commitgate.Identity
}

// ReadFileFunc reads the event payload.
type ReadFileFunc func(name string) ([]byte, error)

// Load builds a RunContext from lookuper. It returns a *ConfigError for bad
// configuration and ErrNotPullRequest when the event is not a pull request.
func Load(ctx context.Context, lookuper envconfig.Lookuper, readFile ReadFileFunc) (*RunContext, error) {
	log := clog.FromContext(ctx)

	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("processing config: %w", err)}
	}
	// required only checks that the variable is present.
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, &ConfigError{Err: errors.New("INPUT_GH_TOKEN is empty")}
	}

	patterns, err := ignore.ParseList(cfg.IgnorePatterns)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	log.Infof("Ignore file patterns: %q", patterns.Strings())

	if cfg.EventName != PullRequestEvent {
		return nil, fmt.Errorf("event %q: %w", cfg.EventName, ErrNotPullRequest)
	}

	owner, repo, ok := strings.Cut(cfg.Repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, &ConfigError{Err: fmt.Errorf("GITHUB_REPOSITORY %q is not of the form owner/repo", cfg.Repository)}
	}
	if cfg.Concurrency < 0 {
		return nil, &ConfigError{Err: fmt.Errorf("concurrency must not be negative, got %d", cfg.Concurrency)}
	}

	pr, err := loadPullRequest(cfg.EventPath, readFile)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if head := pr.GetHead().GetRepo().GetFullName(); head != "" && head != cfg.Repository {
		log.Warnf("Pull request head is in %s, pushing to %s", head, cfg.Repository)
	}

	identity := commitgate.ActorIdentity(cfg.Actor)
	if cfg.CommitAuthor != "" {
		identity = commitgate.BotIdentity(cfg.CommitAuthor)
	} else if cfg.Actor == "" {
		return nil, &ConfigError{Err: errors.New("GITHUB_ACTOR is not set and no commit author was given")}
	}

	return &RunContext{
		Config:   cfg,
		Owner:    owner,
		Repo:     repo,
		Number:   pr.GetNumber(),
		Branch:   pr.GetHead().GetRef(),
		Ignores:  ignore.WithBuiltins(patterns),
		Identity: identity,
	}, nil
}

func loadPullRequest(path string, readFile ReadFileFunc) (*github.PullRequest, error) {
	if path == "" {
		return nil, errors.New("GITHUB_EVENT_PATH is not set")
	}
	payload, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading event payload: %w", err)
	}

	ev, err := github.ParseWebHook(PullRequestEvent, payload)
	if err != nil {
		return nil, fmt.Errorf("parsing event payload: %w", err)
	}
	pre, ok := ev.(*github.PullRequestEvent)
	if !ok {
		return nil, fmt.Errorf("unexpected event payload type %T", ev)
	}

	pr := pre.GetPullRequest()
	if pr == nil {
		return nil, errors.New("event payload has no pull_request")
	}
	if pr.GetNumber() <= 0 {
		return nil, errors.New("event payload has no pull request number")
	}
	if pr.GetHead().GetRef() == "" {
		return nil, errors.New("event payload has no head ref")
	}
	return pr, nil
}
