package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hayeah/ghcat/internal/concat"
)

// LsCmd defines the command-line arguments for the ls subcommand
type LsCmd struct {
	SelectArgs
}

// LsRunner encapsulates the state and behavior for the ls subcommand
type LsRunner struct {
	Args        LsCmd
	Pipeline    *Pipeline
	Stdout      io.Writer
	Interactive bool
}

// NewLsRunner creates and initializes a new LsRunner
func NewLsRunner(cmd LsCmd) (*LsRunner, error) {
	flags, err := cmd.flagConfig()
	if err != nil {
		return nil, err
	}
	cfg, err := cmd.resolve(flags)
	if err != nil {
		return nil, err
	}
	pipe, err := BuildPipeline(cfg)
	if err != nil {
		return nil, err
	}
	return &LsRunner{
		Args:        cmd,
		Pipeline:    pipe,
		Stdout:      os.Stdout,
		Interactive: isTerminal(),
	}, nil
}

// Run prints the selected paths in tree order
func (r *LsRunner) Run(ctx context.Context) error {
	req := buildRequest(r.Args.RepoURL, r.Pipeline.Config)

	plan, err := withProgress(ctx, r.Pipeline, r.Interactive, req.RepoURL,
		func(ctx context.Context, rep concat.Reporter) (*concat.Plan, error) {
			return r.Pipeline.Orchestrator.Plan(ctx, req, rep)
		})
	if err != nil {
		return err
	}

	for _, f := range plan.Files {
		fmt.Fprintln(r.Stdout, f.Path)
	}

	logger := r.Pipeline.Logger
	if len(plan.Ignored) > 0 {
		logger.Info("dropped by .gitignore", "count", len(plan.Ignored))
	}
	if limit := r.Pipeline.Orchestrator.MaxFiles; plan.Fetches > limit {
		logger.Warn("selection exceeds the file limit, cat will refuse it", "fetches", plan.Fetches, "limit", limit)
	}
	return nil
}
