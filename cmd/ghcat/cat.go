package main

import (
	"context"

	"github.com/hayeah/ghcat/internal/concat"
	"github.com/hayeah/ghcat/internal/config"
	"github.com/hayeah/ghcat/internal/selection"
)

// CatCmd contains the arguments for the 'cat' subcommand
type CatCmd struct {
	SelectArgs
	// Output is '-' for stdout or a file path. Without it, and without
	// --copy or --download, the document goes to stdout.
	Output         string `arg:"-o,--output" help:"Output destination: '-' for stdout or a file path"`
	Copy           bool   `arg:"-c,--copy" help:"Copy the document to the clipboard"`
	Download       bool   `arg:"-d,--download" help:"Save the document as concatenated_files.txt in the current directory"`
	Metrics        bool   `arg:"--metrics" help:"Print a token breakdown to stderr"`
	TokenEstimator string `arg:"--token-estimator" help:"Token count estimator to use: 'simple' (size/4) or 'tiktoken'"`
}

// LoadConfig resolves the run configuration: flags, then profile, then defaults.
func (cmd *CatCmd) LoadConfig() (*config.Config, error) {
	flags, err := cmd.flagConfig()
	if err != nil {
		return nil, err
	}
	flags.TokenEstimator = cmd.TokenEstimator
	return cmd.resolve(flags)
}

// CatRunner runs one fetch and exports the document
type CatRunner struct {
	Args        CatCmd
	Pipeline    *Pipeline
	Exporter    *exporter
	Interactive bool
}

// NewCatRunner resolves configuration and builds the pipeline
func NewCatRunner(cmd CatCmd) (*CatRunner, error) {
	cfg, err := cmd.LoadConfig()
	if err != nil {
		return nil, err
	}
	pipe, err := BuildPipeline(cfg)
	if err != nil {
		return nil, err
	}
	return &CatRunner{
		Args:        cmd,
		Pipeline:    pipe,
		Exporter:    newExporter(),
		Interactive: isTerminal(),
	}, nil
}

// Run fetches the document and delivers it
func (r *CatRunner) Run(ctx context.Context) error {
	req := buildRequest(r.Args.RepoURL, r.Pipeline.Config)

	doc, err := withProgress(ctx, r.Pipeline, r.Interactive, req.RepoURL,
		func(ctx context.Context, rep concat.Reporter) (*concat.Document, error) {
			return r.Pipeline.Orchestrator.Run(ctx, req, rep)
		})
	if err != nil {
		return err
	}

	for _, f := range doc.Failures() {
		r.Pipeline.Logger.Warn("file replaced by error placeholder", "path", f.Path, "attempts", f.Attempts)
	}

	if err := r.Exporter.Export(doc, r.Args); err != nil {
		return err
	}

	if r.Args.Metrics {
		return PrintTokenBreakdown(r.Pipeline.Metrics(), doc, termWidth, r.Exporter.Stderr)
	}
	return nil
}

func buildRequest(repoURL string, cfg *config.Config) concat.Request {
	return concat.Request{
		RepoURL:   repoURL,
		Blacklist: selection.NewPatternList(cfg.Blacklist...),
		Whitelist: selection.NewPatternList(cfg.Whitelist...),
		Mode:      cfg.SelectionMode(),
	}
}

