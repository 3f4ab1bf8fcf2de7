// Package forge defines the port the orchestrator uses to read a remote
// repository: its default branch, its recursive file tree and raw file
// contents. Adapters live in sub-packages.
package forge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Entry types reported by the tree listing.
const (
	TypeBlob = "blob"
	TypeTree = "tree"
)

// TreeEntry is one node of a recursive tree listing.
type TreeEntry struct {
	Path string
	Type string // "blob", "tree", "commit" (submodule), ...
	SHA  string
	Size int
}

// IsBlob reports whether the entry is a regular file.
func (e TreeEntry) IsBlob() bool { return e.Type == TypeBlob }

// Client is the repository content API the orchestrator depends on.
type Client interface {
	// DefaultBranch resolves the repository's primary branch.
	DefaultBranch(ctx context.Context, owner, repo string) (string, error)
	// Tree lists every entry reachable from branch, recursively, in one call.
	Tree(ctx context.Context, owner, repo, branch string) ([]TreeEntry, error)
	// RawContent returns the raw text of the file at path on the default branch.
	RawContent(ctx context.Context, owner, repo, path string) (string, error)
}

// RateLimitError marks a request the server rejected for exceeding its quota
// (HTTP 403 or 429). Advised is set when the server sent a usable Retry-After,
// which may be zero.
type RateLimitError struct {
	StatusCode int
	RetryAfter time.Duration
	Advised    bool
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("rate limited (HTTP %d)", e.StatusCode)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// IsRateLimitStatus reports whether status is treated as a rate-limit rejection.
func IsRateLimitStatus(status int) bool {
	return status == http.StatusForbidden || status == http.StatusTooManyRequests
}

// RateLimitWait reports whether err carries a rate-limit rejection and, if the
// server advised one, the wait it asked for.
func RateLimitWait(err error) (wait time.Duration, advised, limited bool) {
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		return 0, false, false
	}
	return rl.RetryAfter, rl.Advised, true
}

// ParseRepoURL extracts owner and repository name from a repository URL such
// as "https://github.com/owner/repo.git". The last two path segments are used,
// so "owner/repo" works too.
func ParseRepoURL(rawURL string) (owner, repo string, err error) {
	trimmed := strings.TrimSpace(rawURL)
	trimmed = strings.TrimRight(trimmed, "/")
	trimmed = strings.TrimSuffix(trimmed, ".git")

	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("invalid repository URL %q: expected .../<owner>/<repo>", rawURL)
	}

	owner, repo = parts[len(parts)-2], parts[len(parts)-1]
	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid repository URL %q: expected .../<owner>/<repo>", rawURL)
	}
	return owner, repo, nil
}
