//go:build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/hayeah/ghcat/internal/config"
)

func BuildPipeline(cfg *config.Config) (*Pipeline, error) {
	panic(wire.Build(
		ProvideLogSink,
		ProvideLogger,
		ProvideGitHubClient,
		ProvideForge,
		ProvideOrchestrator,
		ProvideCounter,
		ProvideMetrics,
		wire.Struct(new(Pipeline), "*"),
	))
}
