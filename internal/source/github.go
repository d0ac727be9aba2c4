package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v66/github"

	"dryad/internal/contextutil"
)

// ErrUpstreamUnavailable is returned when the source-control provider cannot
// be reached or refuses a request. Nothing has been written when it is
// returned, so the caller can simply retry later.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// TreeEntry is one file (blob) of a recursive tree listing.
type TreeEntry struct {
	Path    string
	BlobSHA string
	Size    int64
}

// GitHubProvider reads commits, trees and blobs through the GitHub REST API.
type GitHubProvider struct {
	client *github.Client
}

// NewGitHubProvider creates a provider. token may be empty for public
// repositories. apiURL selects a GitHub Enterprise server; empty means github.com.
func NewGitHubProvider(token, apiURL string) (*GitHubProvider, error) {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if apiURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
	}
	return NewGitHubProviderWithClient(client), nil
}

// NewGitHubProviderWithClient wraps an existing go-github client.
func NewGitHubProviderWithClient(client *github.Client) *GitHubProvider {
	return &GitHubProvider{client: client}
}

// HeadCommit returns the sha of the newest commit on branch.
func (p *GitHubProvider) HeadCommit(ctx context.Context, org, repo, branch string) (string, error) {
	commits, _, err := p.client.Repositories.ListCommits(ctx, org, repo, &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("%w: list commits of %s/%s@%s: %w", ErrUpstreamUnavailable, org, repo, branch, err)
	}
	if len(commits) == 0 || commits[0].GetSHA() == "" {
		return "", fmt.Errorf("%w: branch %s of %s/%s has no commits", ErrUpstreamUnavailable, branch, org, repo)
	}
	return commits[0].GetSHA(), nil
}

// ListTree returns every blob in the tree of commit, recursively.
// Directories and submodule entries are omitted.
func (p *GitHubProvider) ListTree(ctx context.Context, org, repo, commit string) ([]TreeEntry, error) {
	logger := contextutil.LoggerFromContext(ctx)

	tree, _, err := p.client.Git.GetTree(ctx, org, repo, commit, true)
	if err != nil {
		return nil, fmt.Errorf("%w: get tree %s of %s/%s: %w", ErrUpstreamUnavailable, commit, org, repo, err)
	}
	if tree.GetTruncated() {
		logger.WarnContext(ctx, "tree listing truncated by GitHub, some files will not be indexed",
			"commit", commit, "entries", len(tree.Entries))
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.GetType() != "blob" {
			continue
		}
		entries = append(entries, TreeEntry{
			Path:    e.GetPath(),
			BlobSHA: e.GetSHA(),
			Size:    int64(e.GetSize()),
		})
	}
	return entries, nil
}

// FetchBlob returns the raw content of a blob.
func (p *GitHubProvider) FetchBlob(ctx context.Context, org, repo, blobSHA string) ([]byte, error) {
	content, _, err := p.client.Git.GetBlobRaw(ctx, org, repo, blobSHA)
	if err != nil {
		return nil, fmt.Errorf("%w: get blob %s of %s/%s: %w", ErrUpstreamUnavailable, blobSHA, org, repo, err)
	}
	return content, nil
}
