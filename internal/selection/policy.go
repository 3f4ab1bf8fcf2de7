package selection

import (
	"fmt"
	"strings"
)

// Mode decides how the whitelist takes part in selection.
type Mode string

const (
	// ModeMinimal selects only whitelisted paths that are not blacklisted.
	ModeMinimal Mode = "minimal"
	// ModeFull selects every path that is not blacklisted.
	ModeFull Mode = "full"
)

// ParseMode parses "minimal" or "full" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeMinimal:
		return ModeMinimal, nil
	case ModeFull:
		return ModeFull, nil
	default:
		return "", fmt.Errorf("unknown selection mode %q: expected %q or %q", s, ModeMinimal, ModeFull)
	}
}

// Policy is the per-run inclusion rule built from the two pattern lists.
type Policy struct {
	Mode      Mode
	Whitelist PatternSet
	Blacklist PatternSet
}

// NewPolicy compiles both lists for mode.
func NewPolicy(mode Mode, whitelist, blacklist PatternList) Policy {
	return Policy{
		Mode:      mode,
		Whitelist: Compile(whitelist),
		Blacklist: Compile(blacklist),
	}
}

// Includes reports whether a file at path is selected. It says nothing about
// directories; callers only ask about blobs.
func (p Policy) Includes(path string) bool {
	if p.Blacklist.Match(path) {
		return false
	}
	if p.Mode == ModeFull {
		return true
	}
	return p.Whitelist.Match(path)
}

// Select returns the entries admitted by p, keeping their original order.
// describe reports an entry's path and whether it is a blob; non-blob entries
// are never selected.
func Select[E any](p Policy, entries []E, describe func(E) (path string, blob bool)) []E {
	var selected []E
	for _, e := range entries {
		path, blob := describe(e)
		if !blob {
			continue
		}
		if p.Includes(path) {
			selected = append(selected, e)
		}
	}
	return selected
}
