package main

import (
	"fmt"
	"os"

	"github.com/hayeah/ghcat/internal/config"
	"github.com/hayeah/ghcat/internal/selection"
)

// SelectArgs are the flags shared by every command that selects files.
type SelectArgs struct {
	RepoURL          string   `arg:"positional,required" placeholder:"REPO-URL" help:"Repository URL, e.g. https://github.com/owner/repo"`
	Exclude          []string `arg:"-x,--exclude,separate" help:"Blacklist pattern (repeatable); replaces the default blacklist"`
	Include          []string `arg:"-i,--include,separate" help:"Whitelist pattern (repeatable)"`
	ExcludeFile      string   `arg:"--exclude-file" help:"Read blacklist patterns from a file, one per line"`
	IncludeFile      string   `arg:"--include-file" help:"Read whitelist patterns from a file, one per line"`
	Mode             string   `arg:"--mode,env:GHCAT_MODE" help:"Selection mode: 'minimal' (whitelist minus blacklist) or 'full' (everything minus blacklist)"`
	RespectGitignore bool     `arg:"--respect-gitignore" help:"Also drop files ignored by the repository's .gitignore files"`
	APIURL           string   `arg:"--api-url,env:GHCAT_API_URL" help:"GitHub REST API base URL"`
	ConfigPath       string   `arg:"--config" help:"Profile to load (default .ghcat.toml if present)"`
}

// flagConfig is the configuration layer given on the command line.
func (a *SelectArgs) flagConfig() (*config.Config, error) {
	blacklist, err := patterns(a.Exclude, a.ExcludeFile)
	if err != nil {
		return nil, err
	}
	whitelist, err := patterns(a.Include, a.IncludeFile)
	if err != nil {
		return nil, err
	}
	return &config.Config{
		APIURL:           a.APIURL,
		Mode:             a.Mode,
		Blacklist:        blacklist,
		Whitelist:        whitelist,
		RespectGitignore: a.RespectGitignore,
	}, nil
}

// resolve merges flags over the profile over the defaults and validates the
// result.
func (a *SelectArgs) resolve(flags *config.Config) (*config.Config, error) {
	path, explicit := a.ConfigPath, a.ConfigPath != ""
	if !explicit {
		path = config.DefaultPath
	}
	profile, err := config.Load(path, explicit)
	if err != nil {
		return nil, err
	}

	flags.Merge(profile)
	flags.Merge(config.Defaults())
	if err := flags.Validate(); err != nil {
		return nil, err
	}
	return flags, nil
}

// patterns joins repeated flag values with the lines of an optional file.
func patterns(values []string, file string) ([]string, error) {
	list := selection.NewPatternList(values...)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read pattern file %s: %w", file, err)
		}
		list = append(list, selection.ParsePatternList(string(data))...)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list, nil
}
