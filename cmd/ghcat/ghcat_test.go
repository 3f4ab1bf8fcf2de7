package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hayeah/ghcat/internal/concat"
	"github.com/hayeah/ghcat/internal/config"
	"github.com/hayeah/ghcat/internal/metrics"
	"github.com/hayeah/ghcat/internal/selection"
)

// fakeGitHub serves a tiny repository over the REST endpoints the adapter uses.
func fakeGitHub(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/demo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"name":"demo","default_branch":"main"}`)
	})
	mux.HandleFunc("/repos/octo/demo/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"sha":"abc","truncated":false,"tree":[
			{"path":"README.md","type":"blob"},
			{"path":"src","type":"tree"},
			{"path":"src/a.ts","type":"blob"},
			{"path":"src/b.ts","type":"blob"}
		]}`)
	})
	mux.HandleFunc("/repos/octo/demo/contents/", func(w http.ResponseWriter, r *http.Request) {
		p := strings.TrimPrefix(r.URL.Path, "/repos/octo/demo/contents/")
		content, ok := files[p]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Not Found"}`)
			return
		}
		fmt.Fprint(w, content)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// testPipeline builds the real pipeline against srv with pacing and backoff
// disabled and logs captured.
func testPipeline(t *testing.T, cfg *config.Config, srv *httptest.Server) (*Pipeline, *bytes.Buffer) {
	t.Helper()
	cfg.APIURL = srv.URL
	cfg.Merge(config.Defaults())
	require.NoError(t, cfg.Validate())

	pipe, err := BuildPipeline(cfg)
	require.NoError(t, err)

	var logs bytes.Buffer
	pipe.LogSink.w = &logs
	pipe.Orchestrator.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return pipe, &logs
}

func TestCatRunner(t *testing.T) {
	srv := fakeGitHub(t, map[string]string{"src/a.ts": "export const a = 1", "src/b.ts": "export const b = 2"})
	cfg := &config.Config{Mode: "full", Blacklist: []string{"README.md"}}
	pipe, _ := testPipeline(t, cfg, srv)

	var stdout, stderr bytes.Buffer
	r := &CatRunner{
		Args:     CatCmd{SelectArgs: SelectArgs{RepoURL: "https://github.com/octo/demo"}, Metrics: true},
		Pipeline: pipe,
		Exporter: &exporter{Stdout: &stdout, Stderr: &stderr, Dir: t.TempDir()},
	}
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, "// src/a.ts\nexport const a = 1\n\n// src/b.ts\nexport const b = 2\n\n", stdout.String())
	assert.Contains(t, stderr.String(), "Summary: 2 files")
}

func TestCatRunnerPlaceholder(t *testing.T) {
	srv := fakeGitHub(t, map[string]string{"src/a.ts": "A"})
	cfg := &config.Config{Mode: "full", Blacklist: []string{"README.md"}}
	pipe, logs := testPipeline(t, cfg, srv)

	var stdout bytes.Buffer
	r := &CatRunner{
		Args:     CatCmd{SelectArgs: SelectArgs{RepoURL: "octo/demo"}},
		Pipeline: pipe,
		Exporter: &exporter{Stdout: &stdout, Stderr: &bytes.Buffer{}},
	}
	require.NoError(t, r.Run(context.Background()))

	assert.True(t, strings.HasPrefix(stdout.String(), "// src/a.ts\nA\n\n// Error fetching src/b.ts after 3 attempts. Last error: "))
	assert.Contains(t, logs.String(), "file replaced by error placeholder")
}

func TestCatRunnerTooManyFiles(t *testing.T) {
	srv := fakeGitHub(t, nil)
	cfg := &config.Config{Mode: "full", Blacklist: []string{"README.md"}, MaxFiles: 1}
	pipe, _ := testPipeline(t, cfg, srv)

	r := &CatRunner{
		Args:     CatCmd{SelectArgs: SelectArgs{RepoURL: "octo/demo"}},
		Pipeline: pipe,
		Exporter: &exporter{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}},
	}
	err := r.Run(context.Background())

	var tooMany *concat.TooManyFilesError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, 2, tooMany.Count)
}

func TestLsRunner(t *testing.T) {
	srv := fakeGitHub(t, nil)
	cfg := &config.Config{Whitelist: []string{"src/*"}, MaxFiles: 1}
	pipe, logs := testPipeline(t, cfg, srv)

	var stdout bytes.Buffer
	r := &LsRunner{
		Args:     LsCmd{SelectArgs{RepoURL: "octo/demo"}},
		Pipeline: pipe,
		Stdout:   &stdout,
	}
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, "src/a.ts\nsrc/b.ts\n", stdout.String())
	assert.Contains(t, logs.String(), "selection exceeds the file limit")
}

func TestCatCmdLoadConfig(t *testing.T) {
	dir := t.TempDir()
	profile := filepath.Join(dir, "profile.toml")
	require.NoError(t, os.WriteFile(profile, []byte(`
mode = "full"
whitelist = ["lib/*"]
max_files = 20
token_estimator = "tiktoken"
`), 0o644))
	excludes := filepath.Join(dir, "excludes.txt")
	require.NoError(t, os.WriteFile(excludes, []byte("*.lock\n\n  vendor/  \n"), 0o644))

	cmd := CatCmd{
		SelectArgs: SelectArgs{
			RepoURL:     "octo/demo",
			Exclude:     []string{"dist/"},
			ExcludeFile: excludes,
			Mode:        "minimal",
			ConfigPath:  profile,
		},
		TokenEstimator: "simple",
	}
	cfg, err := cmd.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "minimal", cfg.Mode, "flag wins over profile")
	assert.Equal(t, []string{"dist/", "*.lock", "vendor/"}, cfg.Blacklist)
	assert.Equal(t, []string{"lib/*"}, cfg.Whitelist, "profile fills what flags leave unset")
	assert.Equal(t, 20, cfg.MaxFiles)
	assert.Equal(t, "simple", cfg.TokenEstimator)
	assert.Equal(t, "https://api.github.com", cfg.APIURL, "default")

	cmd.Mode = "sideways"
	_, err = cmd.LoadConfig()
	assert.Error(t, err)

	cmd.Mode = ""
	cmd.ConfigPath = filepath.Join(dir, "missing.toml")
	_, err = cmd.LoadConfig()
	assert.Error(t, err, "explicit profile must exist")
}

func TestDefaultBlacklistWhenNoExcludes(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cmd := LsCmd{SelectArgs{RepoURL: "octo/demo"}}
	flags, err := cmd.flagConfig()
	require.NoError(t, err)
	cfg, err := cmd.resolve(flags)
	require.NoError(t, err)

	assert.Equal(t, []string(selection.DefaultBlacklist), cfg.Blacklist)
	assert.Equal(t, "minimal", cfg.Mode)
}

func TestExport(t *testing.T) {
	doc := &concat.Document{Files: []concat.FileResult{{Path: "a.go", Content: "package a"}}}
	want := "// a.go\npackage a\n\n"

	t.Run("stdout by default", func(t *testing.T) {
		var stdout bytes.Buffer
		e := &exporter{Stdout: &stdout, Stderr: &bytes.Buffer{}}
		require.NoError(t, e.Export(doc, CatCmd{}))
		assert.Equal(t, want, stdout.String())
	})

	t.Run("file, download and clipboard", func(t *testing.T) {
		dir := t.TempDir()
		var copied string
		var stdout, stderr bytes.Buffer
		e := &exporter{
			Stdout:    &stdout,
			Stderr:    &stderr,
			Dir:       dir,
			Clipboard: func(s string) error { copied = s; return nil },
		}
		out := filepath.Join(dir, "out.txt")
		require.NoError(t, e.Export(doc, CatCmd{Output: out, Copy: true, Download: true}))

		assert.Empty(t, stdout.String())
		assert.Equal(t, want, copied)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, want, string(data))

		data, err = os.ReadFile(filepath.Join(dir, concat.DownloadFilename))
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
		assert.Contains(t, stderr.String(), "Output copied to clipboard")
	})

	t.Run("clipboard failure", func(t *testing.T) {
		e := &exporter{
			Stdout:    &bytes.Buffer{},
			Stderr:    &bytes.Buffer{},
			Clipboard: func(string) error { return errors.New("no display") },
		}
		err := e.Export(doc, CatCmd{Copy: true})
		assert.ErrorContains(t, err, "failed to copy to clipboard")
	})
}

func TestProgressModel(t *testing.T) {
	cancelled := false
	m := newProgressModel("octo/demo", func() { cancelled = true })

	next, cmd := m.Update(stateMsg(concat.State{Phase: concat.Running, Progress: "Fetching file tree..."}))
	m = next.(progressModel)
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Fetching file tree...")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(progressModel)
	assert.True(t, cancelled)
	assert.Contains(t, m.View(), "Cancelling...")

	doc := &concat.Document{Owner: "octo", Repo: "demo", Branch: "main", Files: []concat.FileResult{
		{Path: "a.go", Content: "A"},
		{Path: "b.go", Err: errors.New("boom"), Attempts: 3},
	}}
	next, _ = m.Update(stateMsg(concat.State{Phase: concat.Succeeded, Document: doc}))
	m = next.(progressModel)
	next, cmd = m.Update(finishedMsg{})
	m = next.(progressModel)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "Fetched 2 files from octo/demo@main (1 failed)")

	failed, _ := newProgressModel("x", func() {}).Update(finishedMsg{err: errors.New("failed after 3 attempts: boom")})
	assert.Contains(t, failed.View(), "failed after 3 attempts: boom")
}

func TestLogSink(t *testing.T) {
	var out bytes.Buffer
	s := &LogSink{w: &out}

	fmt.Fprint(s, "one\n")
	s.Hold()
	fmt.Fprint(s, "two\n")
	assert.Equal(t, "one\n", out.String())

	require.NoError(t, s.Release())
	assert.Equal(t, "one\ntwo\n", out.String())
	require.NoError(t, s.Release())
}

func TestMetricsProvidersAreLazy(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	counter := ProvideCounter(&config.Config{TokenEstimator: "bpe"}, logger)
	assert.Empty(t, logs.String(), "counter is not built until asked for")
	assert.IsType(t, metrics.SimpleCounter{}, counter())
	assert.Contains(t, logs.String(), "token estimator unavailable")

	built := 0
	factory := ProvideMetrics(func() metrics.Counter { built++; return metrics.SimpleCounter{} })
	assert.Zero(t, built)

	c := factory()
	c.Add(metrics.KindFile, "a.go", "abcdefgh")
	c.Wait()
	assert.Equal(t, 1, built)
	assert.Equal(t, 2, c.Total().Tokens)
}

func TestBuildPipeline(t *testing.T) {
	cfg := config.Defaults()
	pipe, err := BuildPipeline(cfg)
	require.NoError(t, err)

	assert.Same(t, cfg, pipe.Config)
	assert.NotNil(t, pipe.Logger)
	assert.NotNil(t, pipe.LogSink)
	assert.NotNil(t, pipe.Metrics)
	assert.Equal(t, cfg.MaxFiles, pipe.Orchestrator.MaxFiles)
}

func TestRunnerRequiresSubcommand(t *testing.T) {
	assert.Error(t, NewRunner(Args{}).Run(context.Background()))
}
