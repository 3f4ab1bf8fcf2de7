package selection

import "strings"

// PatternList is an ordered list of raw patterns, one per line of user input.
// Entries are trimmed and never empty.
type PatternList []string

// ParsePatternList splits text into lines, trims each one and drops blanks.
func ParsePatternList(text string) PatternList {
	return NewPatternList(strings.Split(text, "\n")...)
}

// NewPatternList trims lines and drops the empty ones.
func NewPatternList(lines ...string) PatternList {
	list := make(PatternList, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		list = append(list, line)
	}
	return list
}

// String joins the list back into newline separated text.
func (l PatternList) String() string {
	return strings.Join(l, "\n")
}

// DefaultBlacklist excludes dependency trees, build output, lock files, media
// and other files that are rarely useful in a prompt.
var DefaultBlacklist = PatternList{
	"node_modules/",
	".git/",
	"dist/",
	"build/",
	".next/",
	"public/",
	"*.test.*",
	"*.spec.*",
	"*.min.*",
	"*.map",
	"*.lock",
	"package-lock.json",
	"yarn.lock",
	"README.md",
	"LICENSE",
	".gitignore",
	".env*",
	"*.log",
	"*.svg",
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.ico",
	"requirements.txt",
	"PRIVACY.md",
	"pnpm-lock.yaml",
	"**/components/ui/**",
}
