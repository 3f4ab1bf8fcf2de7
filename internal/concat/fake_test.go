package concat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hayeah/ghcat/internal/forge"
)

// fakeForge serves a fixed repository. Queued errors are returned, one per
// call, before the call is allowed to succeed.
type fakeForge struct {
	mu sync.Mutex

	branch string
	tree   []forge.TreeEntry
	files  map[string]string

	branchErrs []error
	treeErrs   []error
	fileErrs   map[string][]error

	calls []string
}

func newFakeForge(tree []forge.TreeEntry, files map[string]string) *fakeForge {
	return &fakeForge{
		branch:   "main",
		tree:     tree,
		files:    files,
		fileErrs: map[string][]error{},
	}
}

func (f *fakeForge) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (f *fakeForge) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	f.record("branch")
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := pop(&f.branchErrs); err != nil {
		return "", err
	}
	return f.branch, nil
}

func (f *fakeForge) Tree(ctx context.Context, owner, repo, branch string) ([]forge.TreeEntry, error) {
	f.record("tree")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := pop(&f.treeErrs); err != nil {
		return nil, err
	}
	return f.tree, nil
}

func (f *fakeForge) RawContent(ctx context.Context, owner, repo, path string) (string, error) {
	f.record("file:" + path)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	errs := f.fileErrs[path]
	err := pop(&errs)
	f.fileErrs[path] = errs
	if err != nil {
		return "", err
	}
	content, ok := f.files[path]
	if !ok {
		return "", fmt.Errorf("get contents %s: 404 Not Found", path)
	}
	return content, nil
}

func (f *fakeForge) fileCalls() []string {
	var out []string
	for _, c := range f.calls {
		if len(c) > 5 && c[:5] == "file:" {
			out = append(out, c[5:])
		}
	}
	return out
}

// sleeper records waits instead of sleeping.
type sleeper struct {
	waits []time.Duration
}

func (s *sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

// without returns the waits that are not the pacing interval.
func (s *sleeper) without(d time.Duration) []time.Duration {
	var out []time.Duration
	for _, w := range s.waits {
		if w != d {
			out = append(out, w)
		}
	}
	return out
}

type states struct {
	all []State
}

func (s *states) Report(st State) { s.all = append(s.all, st) }

func (s *states) progress() []string {
	var out []string
	for _, st := range s.all {
		if st.Phase == Running {
			out = append(out, st.Progress)
		}
	}
	return out
}

func (s *states) last() State { return s.all[len(s.all)-1] }

func newTestOrchestrator(f forge.Client) (*Orchestrator, *sleeper) {
	o := NewOrchestrator(f, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := &sleeper{}
	o.Sleep = s.Sleep
	return o, s
}

func blob(path string) forge.TreeEntry { return forge.TreeEntry{Path: path, Type: forge.TypeBlob} }
func dir(path string) forge.TreeEntry  { return forge.TreeEntry{Path: path, Type: forge.TypeTree} }

var errFlaky = errors.New("connection reset by peer")

// rateLimited builds a rejection with Retry-After advice of after.
func rateLimited(status int, after time.Duration) error {
	return &forge.RateLimitError{StatusCode: status, RetryAfter: after, Advised: true, Err: errors.New("API rate limit exceeded")}
}

// rateLimitedNoAdvice builds a rejection that carried no Retry-After.
func rateLimitedNoAdvice(status int) error {
	return &forge.RateLimitError{StatusCode: status, Err: errors.New("API rate limit exceeded")}
}
