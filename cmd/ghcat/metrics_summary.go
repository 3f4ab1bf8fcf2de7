package main

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/hayeah/ghcat/internal/concat"
	"github.com/hayeah/ghcat/internal/metrics"
	"github.com/hayeah/ghcat/internal/metrics/chart"
)

// termWidth returns the width of the terminal, or 80 as a fallback.
func termWidth() int {
	width, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// PrintTokenBreakdown measures every block of doc and charts the result.
func PrintTokenBreakdown(c *metrics.Collector, doc *concat.Document, width func() int, w io.Writer) error {
	for _, f := range doc.Files {
		kind := metrics.KindFile
		if f.Failed() {
			kind = metrics.KindFailed
		}
		c.Add(kind, f.Path, f.Block())
	}
	c.Wait()
	return chart.Print(c, chart.DefaultOptions(width, w))
}
