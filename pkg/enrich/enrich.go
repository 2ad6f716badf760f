// Package enrich looks up source-repository health signals — archived
// status, star count, last push — for a package's declared repository URL,
// so the engine can flag an abandoned dependency alongside its version and
// vulnerability status. It understands github.com and gitlab.com URLs; any
// other host degrades to a no-op lookup.
package enrich

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/go-github/v74/github"
	gitlab "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/oauth2"
)

// Health is the repository-health snapshot joined onto a version.Info.
type Health struct {
	Archived   bool
	Stars      int
	OpenIssues int
	PushedAt   time.Time
}

// Client resolves repository URLs against GitHub's and GitLab's APIs.
// Both clients read their access tokens from the environment (GITHUB_TOKEN,
// GITLAB_TOKEN); an absent token still works against public repositories, just at a lower
// rate limit.
type Client struct {
	github *github.Client
	gitlab *gitlab.Client
}

// NewClient builds a Client. GitLab support is best-effort: a malformed or
// unreachable GITLAB_TOKEN/GITLAB_BASE_URL pair leaves gitlab lookups
// disabled rather than failing construction.
func NewClient() *Client {
	c := &Client{}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		c.github = github.NewClient(oauth2.NewClient(context.Background(), ts))
	} else {
		c.github = github.NewClient(nil)
	}

	if token := os.Getenv("GITLAB_TOKEN"); token != "" {
		baseURL := os.Getenv("GITLAB_BASE_URL")
		opts := []gitlab.ClientOptionFunc{}
		if baseURL != "" {
			opts = append(opts, gitlab.WithBaseURL(baseURL))
		}
		if gl, err := gitlab.NewClient(token, opts...); err == nil {
			c.gitlab = gl
		}
	}

	return c
}

// Enrich resolves repoURL's health. It returns (nil, nil) for a URL that
// doesn't identify a github.com or gitlab.com project rather than an
// error, since most ecosystems' declared repository fields are optional
// and frequently point elsewhere (a monorepo subdirectory, a homepage).
func (c *Client) Enrich(ctx context.Context, repoURL string) (*Health, error) {
	host, owner, repo := splitRepoURL(repoURL)
	switch host {
	case "github.com":
		return c.enrichGitHub(ctx, owner, repo)
	case "gitlab.com":
		return c.enrichGitLab(ctx, owner, repo)
	default:
		return nil, nil
	}
}

func (c *Client) enrichGitHub(ctx context.Context, owner, repo string) (*Health, error) {
	r, _, err := c.github.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("enrich: github %s/%s: %w", owner, repo, err)
	}
	return &Health{
		Archived:   r.GetArchived(),
		Stars:      r.GetStargazersCount(),
		OpenIssues: r.GetOpenIssuesCount(),
		PushedAt:   r.GetPushedAt().Time,
	}, nil
}

func (c *Client) enrichGitLab(ctx context.Context, owner, repo string) (*Health, error) {
	if c.gitlab == nil {
		return nil, nil
	}
	proj, _, err := c.gitlab.Projects.GetProject(owner+"/"+repo, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("enrich: gitlab %s/%s: %w", owner, repo, err)
	}
	h := &Health{
		Archived:   proj.Archived,
		Stars:      proj.StarCount,
		OpenIssues: proj.OpenIssuesCount,
	}
	if proj.LastActivityAt != nil {
		h.PushedAt = *proj.LastActivityAt
	}
	return h, nil
}

// splitRepoURL parses a declared repository URL into (host, owner, repo).
// It accepts both "https://github.com/owner/repo" and the bare
// "github.com/owner/repo" form manifests sometimes carry, and tolerates a
// trailing ".git" or path segments beyond the repo name.
func splitRepoURL(repoURL string) (host, owner, repo string) {
	trimmed := repoURL
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", "", ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", ""
	}
	repo = strings.TrimSuffix(parts[1], ".git")
	return u.Host, parts[0], repo
}
