package ignore

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileName is the name git reads ignore rules from.
const FileName = ".gitignore"

// Ignore encapsulates gitignore pattern matching functionality
type Ignore struct {
	matcher gitignore.Matcher
	count   int
}

// New reads every .gitignore found in fs, nested ones scoped to their directory.
func New(fs billy.Filesystem) (*Ignore, error) {
	patterns, err := gitignore.ReadPatterns(fs, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read gitignore patterns: %w", err)
	}
	return &Ignore{
		matcher: gitignore.NewMatcher(patterns),
		count:   len(patterns),
	}, nil
}

// FromFiles builds an Ignore from .gitignore contents keyed by their
// slash-separated repository path, without touching the disk.
func FromFiles(files map[string]string) (*Ignore, error) {
	fs := memfs.New()
	for p, content := range files {
		if !IsIgnoreFile(p) {
			return nil, fmt.Errorf("not a %s file: %s", FileName, p)
		}
		if err := util.WriteFile(fs, p, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", p, err)
		}
	}
	return New(fs)
}

// IsIgnoreFile reports whether a repository path names a .gitignore.
func IsIgnoreFile(p string) bool {
	return path.Base(p) == FileName
}

// Len is the number of patterns loaded.
func (ig *Ignore) Len() int { return ig.count }

// IsIgnored checks a slash-separated repository path against the loaded rules.
func (ig *Ignore) IsIgnored(p string, isDir bool) bool {
	p = strings.Trim(p, "/")
	if p == "" {
		return false
	}
	parts := strings.Split(p, "/")
	if isDir && parts[len(parts)-1] == ".git" {
		return true
	}
	return ig.matcher.Match(parts, isDir)
}
