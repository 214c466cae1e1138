/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package diffsource fetches the unified diff of a pull request from the
// GitHub API.
package diffsource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

// PublicAPIURL is the API endpoint of github.com.
const PublicAPIURL = "https://api.github.com"

// Source returns the diff of a pull request.
type Source struct {
	client *github.Client
}

// New returns a Source authenticated with tokenSource. An apiURL other than
// the github.com endpoint is treated as a GitHub Enterprise Server.
func New(ctx context.Context, tokenSource oauth2.TokenSource, apiURL string) (*Source, error) {
	if tokenSource == nil {
		return nil, errors.New("token source cannot be nil")
	}

	client := github.NewClient(oauth2.NewClient(ctx, tokenSource))

	apiURL = strings.TrimSuffix(apiURL, "/")
	if apiURL != "" && apiURL != PublicAPIURL {
		var err error
		if client, err = client.WithEnterpriseURLs(apiURL, apiURL); err != nil {
			return nil, fmt.Errorf("configuring enterprise url %q: %w", apiURL, err)
		}
	}
	return &Source{client: client}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *github.Client) *Source {
	return &Source{client: client}
}

// Diff returns the unified diff of pull request number in owner/repo.
func (s *Source) Diff(ctx context.Context, owner, repo string, number int) (string, error) {
	clog.FromContext(ctx).Infof("Fetching diff for %s/%s#%d", owner, repo, number)

	raw, _, err := s.client.PullRequests.GetRaw(ctx, owner, repo, number, github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", fmt.Errorf("fetching diff for %s/%s#%d: %w", owner, repo, number, err)
	}
	return raw, nil
}
