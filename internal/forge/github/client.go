// Package github implements forge.Client with the go-github library against
// the GitHub REST API (or any server speaking it, e.g. GitHub Enterprise or a
// test double).
package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/hayeah/ghcat/internal/forge"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

// rawMediaType makes the contents API return the file body instead of the
// base64 JSON wrapper.
const rawMediaType = "application/vnd.github.v3.raw"

// NewClient creates an unauthenticated *github.Client. Pass baseURL="" for the
// public API.
func NewClient(baseURL string) (*gogithub.Client, error) {
	c := gogithub.NewClient(nil)
	if baseURL == "" || strings.TrimSuffix(baseURL, "/") == DefaultAPIURL {
		return c, nil
	}

	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
	}
	c.BaseURL = u
	return c, nil
}

// Adapter wraps a go-github client and implements forge.Client.
type Adapter struct {
	gh     *gogithub.Client
	logger *slog.Logger
}

var _ forge.Client = (*Adapter)(nil)

// New creates an Adapter.
func New(gh *gogithub.Client, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{gh: gh, logger: logger}
}

// DefaultBranch returns the repository's default_branch.
func (a *Adapter) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	r, resp, err := a.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", wrapError(fmt.Sprintf("get repository %s/%s", owner, repo), err)
	}
	a.logRate(resp)

	branch := r.GetDefaultBranch()
	if branch == "" {
		return "", fmt.Errorf("repository %s/%s has no default branch", owner, repo)
	}
	return branch, nil
}

// Tree lists the whole tree of branch with a single recursive call.
func (a *Adapter) Tree(ctx context.Context, owner, repo, branch string) ([]forge.TreeEntry, error) {
	tree, resp, err := a.gh.Git.GetTree(ctx, owner, repo, branch, true)
	if err != nil {
		return nil, wrapError(fmt.Sprintf("get tree %s/%s@%s", owner, repo, branch), err)
	}
	a.logRate(resp)

	if tree.GetTruncated() {
		a.logger.Warn("tree listing truncated by the API, some files are missing",
			"owner", owner, "repo", repo, "branch", branch, "entries", len(tree.Entries))
	}

	entries := make([]forge.TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entries = append(entries, forge.TreeEntry{
			Path: e.GetPath(),
			Type: e.GetType(),
			SHA:  e.GetSHA(),
			Size: e.GetSize(),
		})
	}
	return entries, nil
}

// RawContent fetches one file through the contents API using raw content
// negotiation.
func (a *Adapter) RawContent(ctx context.Context, owner, repo, path string) (string, error) {
	u := fmt.Sprintf("repos/%s/%s/contents/%s", url.PathEscape(owner), url.PathEscape(repo), escapePath(path))
	req, err := a.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request for %s: %w", path, err)
	}
	req.Header.Set("Accept", rawMediaType)

	var buf bytes.Buffer
	resp, err := a.gh.Do(ctx, req, &buf)
	if err != nil {
		return "", wrapError(fmt.Sprintf("get contents %s", path), err)
	}
	a.logRate(resp)

	return buf.String(), nil
}

// logRate records the quota headers of a successful response. They are
// diagnostic only.
func (a *Adapter) logRate(resp *gogithub.Response) {
	if resp == nil {
		return
	}
	a.logger.Debug("github rate limit",
		"remaining", resp.Rate.Remaining,
		"limit", resp.Rate.Limit,
		"reset", resp.Rate.Reset.Time)
}

// escapePath escapes each segment of a repository path, keeping separators.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// wrapError adds op context and turns 403/429 rejections into
// forge.RateLimitError.
func wrapError(op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)

	status, retryAfter, advised := inspect(err)
	if forge.IsRateLimitStatus(status) {
		return &forge.RateLimitError{StatusCode: status, RetryAfter: retryAfter, Advised: advised, Err: wrapped}
	}
	return wrapped
}

// inspect digs the HTTP status and any advised wait out of a go-github error.
func inspect(err error) (int, time.Duration, bool) {
	var abuse *gogithub.AbuseRateLimitError
	if errors.As(err, &abuse) {
		status := statusOf(abuse.Response, http.StatusForbidden)
		if abuse.RetryAfter != nil {
			return status, max(*abuse.RetryAfter, 0), true
		}
		wait, advised := retryAfterHeader(abuse.Response)
		return status, wait, advised
	}

	var limit *gogithub.RateLimitError
	if errors.As(err, &limit) {
		wait, advised := retryAfterHeader(limit.Response)
		return statusOf(limit.Response, http.StatusForbidden), wait, advised
	}

	var resp *gogithub.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil {
		wait, advised := retryAfterHeader(resp.Response)
		return resp.Response.StatusCode, wait, advised
	}

	return 0, 0, false
}

func statusOf(resp *http.Response, fallback int) int {
	if resp == nil || resp.StatusCode == 0 {
		return fallback
	}
	return resp.StatusCode
}

// retryAfterHeader parses Retry-After as delta-seconds or an HTTP date. A
// date already in the past advises no wait at all. Unparseable values count as
// absent.
func retryAfterHeader(resp *http.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0), true
	}
	return 0, false
}
