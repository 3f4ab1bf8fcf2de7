package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/hayeah/ghcat/internal/concat"
	"github.com/hayeah/ghcat/internal/config"
	"github.com/hayeah/ghcat/internal/forge"
	"github.com/hayeah/ghcat/internal/forge/github"
	"github.com/hayeah/ghcat/internal/logging"
	"github.com/hayeah/ghcat/internal/metrics"
)

// Pipeline groups the services a command needs.
type Pipeline struct {
	Config       *config.Config
	Logger       *slog.Logger
	LogSink      *LogSink
	Orchestrator *concat.Orchestrator
	Metrics      MetricsFactory
}

// LogSink is the writer behind the logger. While held, log lines are buffered
// so they don't tear through the progress view; Release writes them out.
type LogSink struct {
	mu   sync.Mutex
	w    io.Writer
	held *bytes.Buffer
}

func (s *LogSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held != nil {
		return s.held.Write(p)
	}
	return s.w.Write(p)
}

// Hold starts buffering.
func (s *LogSink) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held == nil {
		s.held = &bytes.Buffer{}
	}
}

// Release flushes buffered lines and stops buffering.
func (s *LogSink) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held == nil {
		return nil
	}
	_, err := s.held.WriteTo(s.w)
	s.held = nil
	return err
}

func ProvideLogSink() *LogSink { return &LogSink{w: os.Stderr} }

func ProvideLogger(sink *LogSink) *slog.Logger { return logging.New(sink) }

func ProvideGitHubClient(cfg *config.Config) (*gogithub.Client, error) {
	return github.NewClient(cfg.APIURL)
}

func ProvideForge(gh *gogithub.Client, logger *slog.Logger) forge.Client {
	return github.New(gh, logger)
}

func ProvideOrchestrator(client forge.Client, cfg *config.Config, logger *slog.Logger) *concat.Orchestrator {
	o := concat.NewOrchestrator(client, logger)
	o.MaxFiles = cfg.MaxFiles
	o.RespectGitignore = cfg.RespectGitignore
	return o
}

// CounterFactory builds the token counter on first use. Loading the tiktoken
// encoding may hit the network, so only --metrics pays for it.
type CounterFactory func() metrics.Counter

// ProvideCounter falls back to the simple estimator when the tiktoken
// encoding cannot be loaded.
func ProvideCounter(cfg *config.Config, logger *slog.Logger) CounterFactory {
	return func() metrics.Counter {
		c, err := metrics.NewCounter(cfg.TokenEstimator)
		if err != nil {
			logger.Warn("token estimator unavailable, using simple", "estimator", cfg.TokenEstimator, "error", err)
			return metrics.SimpleCounter{}
		}
		return c
	}
}

// MetricsFactory starts a Collector. Its workers run until the Collector's
// Wait.
type MetricsFactory func() *metrics.Collector

func ProvideMetrics(counter CounterFactory) MetricsFactory {
	return func() *metrics.Collector {
		return metrics.NewCollector(counter(), runtime.NumCPU())
	}
}
