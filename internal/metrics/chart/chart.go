// Package chart turns collected metrics into an ASCII token breakdown. It
// never touches stdout or the terminal itself; width and writer are passed in.
package chart

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/hayeah/ghcat/internal/metrics"
)

// Options controls layout and I/O behaviour.
type Options struct {
	BarWidth     int        // 0 = auto (35% of term, at most 30)
	FillRune     rune       // default '█'
	ThresholdPct float64    // directories below this share collapse into dir/**
	TermWidth    func() int // injected; must return columns
	Writer       io.Writer
}

// DefaultOptions returns the layout used by the CLI.
func DefaultOptions(termWidthFn func() int, w io.Writer) Options {
	return Options{
		FillRune:     '█',
		ThresholdPct: 1,
		TermWidth:    termWidthFn,
		Writer:       w,
	}
}

// Print writes the breakdown of c to opt.Writer.
func Print(c *metrics.Collector, opt Options) error {
	items := c.Items()
	files, total := collectFileTokens(items)
	root := buildDirTree(files)
	buckets := collapseSmallDirs(root, total, opt.ThresholdPct)
	entries := withFailures(buckets, items)
	for _, ln := range layoutChart(entries, total, len(files), opt) {
		if _, err := fmt.Fprintln(opt.Writer, ln); err != nil {
			return err
		}
	}
	return nil
}

type fileToken struct {
	Path   string
	Tokens int
}

// collectFileTokens returns the fetched files and the token total of every
// block, placeholders included.
func collectFileTokens(items map[metrics.Key]metrics.Item) ([]fileToken, int) {
	var (
		out   []fileToken
		total int
	)
	for k, v := range items {
		total += v.Tokens
		if k.Kind == metrics.KindFile {
			out = append(out, fileToken{Path: k.Path, Tokens: v.Tokens})
		}
	}
	return out, total
}

type dirNode struct {
	Name     string
	IsFile   bool
	Tokens   int
	Children map[string]*dirNode
}

func buildDirTree(files []fileToken) *dirNode {
	root := &dirNode{Name: ".", Children: map[string]*dirNode{}}
	for _, f := range files {
		parts := strings.Split(f.Path, "/")
		cur := root
		for i, part := range parts {
			child, ok := cur.Children[part]
			if !ok {
				child = &dirNode{Name: part, IsFile: i == len(parts)-1, Children: map[string]*dirNode{}}
				cur.Children[part] = child
			}
			cur = child
		}
		cur.Tokens = f.Tokens
	}
	rollUp(root)
	return root
}

func rollUp(n *dirNode) int {
	if n.IsFile {
		return n.Tokens
	}
	sum := 0
	for _, c := range n.Children {
		sum += rollUp(c)
	}
	n.Tokens = sum
	return sum
}

type bucket struct {
	Label  string
	Tokens int
}

// collapseSmallDirs lists files individually, except that children below the
// threshold share of total are summed into one "dir/**" bucket.
func collapseSmallDirs(root *dirNode, total int, thresholdPct float64) []bucket {
	var out []bucket
	thresh := float64(total) * thresholdPct / 100

	var walk func(n *dirNode, dir string)
	walk = func(n *dirNode, dir string) {
		cur := dir
		if n != root {
			cur = path.Join(dir, n.Name)
		}
		if n.IsFile {
			out = append(out, bucket{Label: cur, Tokens: n.Tokens})
			return
		}

		var small int
		for _, c := range n.Children {
			if float64(c.Tokens) < thresh {
				small += c.Tokens
			} else {
				walk(c, cur)
			}
		}
		if small > 0 {
			out = append(out, bucket{Label: path.Join(cur, "**"), Tokens: small})
		}
	}
	walk(root, "")
	return out
}

type entry struct {
	Label  string
	Tokens int
	Pct    float64
}

func withFailures(buckets []bucket, items map[metrics.Key]metrics.Item) []entry {
	total := 0
	for _, v := range items {
		total += v.Tokens
	}

	var out []entry
	for _, b := range buckets {
		out = append(out, entry{Label: b.Label, Tokens: b.Tokens, Pct: pct(b.Tokens, total)})
	}
	for k, v := range items {
		if k.Kind == metrics.KindFile {
			continue
		}
		out = append(out, entry{Label: k.String(), Tokens: v.Tokens, Pct: pct(v.Tokens, total)})
	}
	return out
}

func layoutChart(entries []entry, total, fileCount int, opt Options) []string {
	if len(entries) == 0 || total == 0 {
		return []string{"No tokens recorded"}
	}
	const pctW, tokensW, gapW = 6, 6, 2

	// smallest first, ties by label so output is stable
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Tokens != entries[j].Tokens {
			return entries[i].Tokens < entries[j].Tokens
		}
		return entries[i].Label < entries[j].Label
	})

	width := 80
	if opt.TermWidth != nil {
		width = opt.TermWidth()
	}
	barW := opt.BarWidth
	if barW <= 0 {
		barW = min(int(float64(width)*0.35), 30)
	}
	keyW := max(width-(barW+pctW+tokensW+gapW*3), 8)

	maxTokens := 0
	for _, e := range entries {
		maxTokens = max(maxTokens, e.Tokens)
	}

	fill := opt.FillRune
	if fill == 0 {
		fill = '█'
	}

	var lines []string
	for _, e := range entries {
		barLen := 0
		if maxTokens > 0 {
			barLen = int(float64(e.Tokens)/float64(maxTokens)*float64(barW) + 0.5)
		}
		if barLen == 0 && e.Tokens > 0 {
			barLen = 1
		}
		bar := strings.Repeat(string(fill), barLen)
		lines = append(lines, fmt.Sprintf("%-*s  %5.1f%%  %*d  %-*s",
			barW, bar, e.Pct, tokensW, e.Tokens, keyW, trimPrefix(e.Label, keyW)))
	}

	lines = append(lines, fmt.Sprintf("%-*s  %5.1f%%  %*d  %-*s",
		barW, strings.Repeat("─", barW), 100.0, tokensW, total, keyW, "TOTAL"))
	lines = append(lines, fmt.Sprintf("\nSummary: %d files, %d tokens", fileCount, total))
	return lines
}

// trimPrefix keeps the last max-1 runes of s behind an ellipsis.
func trimPrefix(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return "…" + string(r[len(r)-max+1:])
}

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}
