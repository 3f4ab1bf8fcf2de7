package concat

import (
	"context"
	"time"

	"github.com/hayeah/ghcat/internal/forge"
	"github.com/hayeah/ghcat/internal/retry"
)

// pacedClient waits a fixed interval after every successful call so that
// consecutive requests stay spaced out. Failed calls are not paced; the retry
// wait covers them.
type pacedClient struct {
	forge.Client
	interval time.Duration
	sleep    retry.SleepFunc
}

func (c *pacedClient) pause(ctx context.Context) error {
	if c.interval <= 0 {
		return nil
	}
	return c.sleep(ctx, c.interval)
}

func (c *pacedClient) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	branch, err := c.Client.DefaultBranch(ctx, owner, repo)
	if err != nil {
		return "", err
	}
	return branch, c.pause(ctx)
}

func (c *pacedClient) Tree(ctx context.Context, owner, repo, branch string) ([]forge.TreeEntry, error) {
	entries, err := c.Client.Tree(ctx, owner, repo, branch)
	if err != nil {
		return nil, err
	}
	return entries, c.pause(ctx)
}

func (c *pacedClient) RawContent(ctx context.Context, owner, repo, path string) (string, error) {
	content, err := c.Client.RawContent(ctx, owner, repo, path)
	if err != nil {
		return "", err
	}
	return content, c.pause(ctx)
}
