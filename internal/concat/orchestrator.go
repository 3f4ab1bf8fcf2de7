// Package concat fetches the selected files of a remote repository and joins
// them into a single text document, pacing requests and retrying failures so
// that the run survives the forge's rate limits.
package concat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path"
	"strings"
	"time"

	"github.com/hayeah/ghcat/ignore"
	"github.com/hayeah/ghcat/internal/forge"
	"github.com/hayeah/ghcat/internal/retry"
	"github.com/hayeah/ghcat/internal/selection"
)

// Defaults for a new Orchestrator.
const (
	DefaultMaxFiles         = 60
	DefaultRunAttempts      = 3
	DefaultFileAttempts     = 3
	DefaultPaceInterval     = time.Second
	DefaultErrorBackoff     = 5 * time.Second
	DefaultRateLimitBackoff = 60 * time.Second
)

// Request describes one run. An empty Mode means minimal.
type Request struct {
	RepoURL   string
	Blacklist selection.PatternList
	Whitelist selection.PatternList
	Mode      selection.Mode
}

// NewRequest builds a Request from the raw user inputs: pattern lists as
// newline separated text and the mode name.
func NewRequest(repoURL, blacklist, whitelist, mode string) (Request, error) {
	m, err := selection.ParseMode(mode)
	if err != nil {
		return Request{}, err
	}
	return Request{
		RepoURL:   repoURL,
		Blacklist: selection.ParsePatternList(blacklist),
		Whitelist: selection.ParsePatternList(whitelist),
		Mode:      m,
	}, nil
}

func (r Request) policy() (selection.Policy, error) {
	mode := r.Mode
	if mode == "" {
		mode = selection.ModeMinimal
	}
	mode, err := selection.ParseMode(string(mode))
	if err != nil {
		return selection.Policy{}, err
	}
	return selection.NewPolicy(mode, r.Whitelist, r.Blacklist), nil
}

// Plan is the outcome of resolving and filtering a repository without
// fetching any file content.
type Plan struct {
	Owner   string
	Repo    string
	Branch  string
	Files   []forge.TreeEntry
	Ignored []string // selected paths dropped by the repository's .gitignore rules
	Rules   []string // .gitignore files governing the selection

	// Fetches is the number of content requests a run needs before any file
	// is dropped: the selected files plus Rules. It is what MaxFiles bounds.
	Fetches int
}

// Orchestrator drives runs against a forge.Client. The exported fields may be
// adjusted before the first run; they must not change while one is in flight.
type Orchestrator struct {
	MaxFiles         int
	RunAttempts      int
	FileAttempts     int
	PaceInterval     time.Duration
	ErrorBackoff     time.Duration
	RateLimitBackoff time.Duration
	RespectGitignore bool
	Sleep            retry.SleepFunc

	client forge.Client
	logger *slog.Logger
}

// NewOrchestrator creates an Orchestrator with the default limits.
func NewOrchestrator(client forge.Client, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		MaxFiles:         DefaultMaxFiles,
		RunAttempts:      DefaultRunAttempts,
		FileAttempts:     DefaultFileAttempts,
		PaceInterval:     DefaultPaceInterval,
		ErrorBackoff:     DefaultErrorBackoff,
		RateLimitBackoff: DefaultRateLimitBackoff,
		Sleep:            retry.Sleep,
		client:           client,
		logger:           logger,
	}
}

// Run resolves the repository, selects files and fetches each one, returning
// the concatenated document. rep (may be nil) observes progress and receives
// exactly one final Succeeded or Failed state.
func (o *Orchestrator) Run(ctx context.Context, req Request, rep Reporter) (*Document, error) {
	if rep == nil {
		rep = discardReporter{}
	}

	doc, err := o.run(ctx, req, rep)
	if err != nil {
		o.logger.Error("run failed", "repo", req.RepoURL, "error", err)
		rep.Report(State{Phase: Failed, Err: err})
		return nil, err
	}

	o.logger.Info("run finished", "repo", req.RepoURL, "files", len(doc.Files), "failed", len(doc.Failures()))
	rep.Report(State{Phase: Succeeded, Document: doc})
	return doc, nil
}

// Plan performs the resolve and filter steps of Run under the same retry
// policy. The file limit is not enforced, but when it is exceeded the
// .gitignore rules are not fetched and Files is left unfiltered.
func (o *Orchestrator) Plan(ctx context.Context, req Request, rep Reporter) (*Plan, error) {
	if rep == nil {
		rep = discardReporter{}
	}

	owner, repo, err := forge.ParseRepoURL(req.RepoURL)
	if err != nil {
		return nil, err
	}
	policy, err := req.policy()
	if err != nil {
		return nil, err
	}

	c := o.paced()
	return withRunRetries(ctx, o, rep, func(ctx context.Context) (*Plan, error) {
		return o.plan(ctx, c, owner, repo, policy, rep, false)
	})
}

func (o *Orchestrator) run(ctx context.Context, req Request, rep Reporter) (*Document, error) {
	owner, repo, err := forge.ParseRepoURL(req.RepoURL)
	if err != nil {
		return nil, err
	}
	policy, err := req.policy()
	if err != nil {
		return nil, err
	}

	o.logger.Info("run started", "owner", owner, "repo", repo, "mode", policy.Mode)

	c := o.paced()
	return withRunRetries(ctx, o, rep, func(ctx context.Context) (*Document, error) {
		p, err := o.plan(ctx, c, owner, repo, policy, rep, true)
		if err != nil {
			return nil, err
		}

		files, err := o.fetchFiles(ctx, c, p, rep)
		if err != nil {
			return nil, err
		}
		return &Document{Owner: owner, Repo: repo, Branch: p.Branch, Files: files}, nil
	})
}

// withRunRetries runs one whole attempt of a run up to RunAttempts times.
func withRunRetries[T any](ctx context.Context, o *Orchestrator, rep Reporter, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := retry.Value(ctx, retry.Policy{
		MaxAttempts: o.RunAttempts,
		Classify:    o.classifyRun,
		Sleep:       o.sleep(),
		OnRetry: func(attempt int, err error, wait time.Duration) {
			o.logger.Warn("run attempt failed", "attempt", attempt, "wait", wait, "error", err)
			if _, _, limited := forge.RateLimitWait(err); limited {
				progress(rep, "API rate limit exceeded. Waiting %s before retry %d...", seconds(wait), attempt)
			} else {
				progress(rep, "Error occurred. Retrying in %s... (Attempt %d of %d)", seconds(wait), attempt, o.RunAttempts)
			}
		},
	}, func(ctx context.Context, attempt int) (T, error) {
		o.logger.Debug("run attempt", "attempt", attempt)
		return fn(ctx)
	})

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return v, &RunFailedError{Attempts: exhausted.Attempts, Err: exhausted.Err}
	}
	return v, err
}

// plan resolves and selects. With guard set, a selection needing more than
// MaxFiles content requests fails before any of them is made.
func (o *Orchestrator) plan(ctx context.Context, c forge.Client, owner, repo string, policy selection.Policy, rep Reporter, guard bool) (*Plan, error) {
	progress(rep, "Fetching repository information...")
	branch, err := c.DefaultBranch(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("default branch", "branch", branch)

	progress(rep, "Fetching file tree...")
	tree, err := c.Tree(ctx, owner, repo, branch)
	if err != nil {
		return nil, err
	}

	p := &Plan{
		Owner:  owner,
		Repo:   repo,
		Branch: branch,
		Files:  selection.Select(policy, tree, describeEntry),
	}
	if o.RespectGitignore {
		p.Rules = governingRules(tree, p.Files)
	}
	p.Fetches = len(p.Files) + len(p.Rules)

	over := p.Fetches > o.MaxFiles
	switch {
	case over && guard:
		return nil, &TooManyFilesError{Count: p.Fetches, Limit: o.MaxFiles}
	case len(p.Rules) == 0:
		// no rules to apply
	case over:
		o.logger.Warn("selection exceeds the file limit, .gitignore rules not applied", "fetches", p.Fetches, "limit", o.MaxFiles)
	default:
		if err := o.dropIgnored(ctx, c, p, rep); err != nil {
			return nil, err
		}
	}

	o.logger.Info("files selected", "tree", len(tree), "selected", len(p.Files), "ignored", len(p.Ignored))
	return p, nil
}

func describeEntry(e forge.TreeEntry) (string, bool) { return e.Path, e.IsBlob() }

// governingRules returns the .gitignore blobs in tree whose directory holds at
// least one selected file, in tree order.
func governingRules(tree, selected []forge.TreeEntry) []string {
	var rules []string
	for _, e := range tree {
		if !e.IsBlob() || !ignore.IsIgnoreFile(e.Path) {
			continue
		}
		dir := path.Dir(e.Path)
		for _, f := range selected {
			if dir == "." || strings.HasPrefix(f.Path, dir+"/") {
				rules = append(rules, e.Path)
				break
			}
		}
	}
	return rules
}

// dropIgnored fetches p.Rules and removes the selected files they ignore.
// Unreadable .gitignore files are skipped.
func (o *Orchestrator) dropIgnored(ctx context.Context, c forge.Client, p *Plan, rep Reporter) error {
	contents := make(map[string]string, len(p.Rules))
	for i, rule := range p.Rules {
		progress(rep, "Fetching ignore rules %d of %d: %s", i+1, len(p.Rules), rule)
		res, err := o.fetchFile(ctx, c, p.Owner, p.Repo, rule, rep)
		if err != nil {
			return err
		}
		if res.Failed() {
			o.logger.Warn("skipping unreadable .gitignore", "path", rule, "error", res.Err)
			continue
		}
		contents[rule] = res.Content
	}

	ig, err := ignore.FromFiles(contents)
	if err != nil {
		return err
	}

	kept := make([]forge.TreeEntry, 0, len(p.Files))
	for _, e := range p.Files {
		if ig.IsIgnored(e.Path, false) {
			p.Ignored = append(p.Ignored, e.Path)
			continue
		}
		kept = append(kept, e)
	}
	p.Files = kept
	return nil
}

// fetchFiles fetches the planned files one at a time, in order. The only
// error it returns is cancellation; exhausted files become placeholders.
func (o *Orchestrator) fetchFiles(ctx context.Context, c forge.Client, p *Plan, rep Reporter) ([]FileResult, error) {
	results := make([]FileResult, 0, len(p.Files))
	for i, e := range p.Files {
		progress(rep, "Processing file %d of %d: %s", i+1, len(p.Files), e.Path)
		res, err := o.fetchFile(ctx, c, p.Owner, p.Repo, e.Path, rep)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (o *Orchestrator) fetchFile(ctx context.Context, c forge.Client, owner, repo, path string, rep Reporter) (FileResult, error) {
	attempts := 0
	content, err := retry.Value(ctx, retry.Policy{
		MaxAttempts: o.FileAttempts,
		Classify:    o.backoff,
		Sleep:       o.sleep(),
		OnRetry: func(attempt int, err error, wait time.Duration) {
			o.logger.Warn("file fetch failed", "path", path, "attempt", attempt, "wait", wait, "error", err)
			progress(rep, "Error fetching %s. Retrying in %s... (Attempt %d of %d)", path, seconds(wait), attempt, o.FileAttempts)
		},
	}, func(ctx context.Context, attempt int) (string, error) {
		attempts = attempt
		return c.RawContent(ctx, owner, repo, path)
	})

	if err == nil {
		if looksBinary(content) {
			o.logger.Warn("file looks binary, included as is", "path", path)
		}
		return FileResult{Path: path, Content: content, Attempts: attempts}, nil
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		o.logger.Error("giving up on file", "path", path, "attempts", exhausted.Attempts, "error", exhausted.Err)
		return FileResult{Path: path, Err: exhausted.Err, Attempts: exhausted.Attempts}, nil
	}
	return FileResult{}, err
}

// backoff decides the wait before retrying a failed remote call: the advised
// Retry-After (even zero) or RateLimitBackoff for rate limits, ErrorBackoff
// otherwise. Cancellation is final.
func (o *Orchestrator) backoff(err error) (time.Duration, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	if wait, advised, limited := forge.RateLimitWait(err); limited {
		if !advised {
			wait = o.RateLimitBackoff
		}
		return wait, true
	}
	return o.ErrorBackoff, true
}

func (o *Orchestrator) classifyRun(err error) (time.Duration, bool) {
	var tooMany *TooManyFilesError
	if errors.As(err, &tooMany) {
		return 0, false
	}
	return o.backoff(err)
}

func (o *Orchestrator) sleep() retry.SleepFunc {
	if o.Sleep == nil {
		return retry.Sleep
	}
	return o.Sleep
}

func (o *Orchestrator) paced() forge.Client {
	return &pacedClient{Client: o.client, interval: o.PaceInterval, sleep: o.sleep()}
}

func progress(rep Reporter, format string, args ...any) {
	rep.Report(State{Phase: Running, Progress: fmt.Sprintf(format, args...)})
}

// seconds renders a wait the way progress messages show it.
func seconds(d time.Duration) string {
	s := int64(math.Ceil(d.Seconds()))
	if s == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", s)
}
