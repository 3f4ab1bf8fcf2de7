package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"

	"github.com/hayeah/ghcat/internal/concat"
)

// exporter delivers a finished document to the destinations chosen on the
// command line.
type exporter struct {
	Stdout    io.Writer
	Stderr    io.Writer
	Clipboard func(string) error
	Dir       string // where --download writes
}

func newExporter() *exporter {
	return &exporter{
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Clipboard: clipboard.WriteAll,
		Dir:       ".",
	}
}

// Export writes doc to every destination in args. With no destination at all
// the document goes to stdout.
func (e *exporter) Export(doc *concat.Document, args CatCmd) error {
	toStdout := args.Output == "-" || (args.Output == "" && !args.Copy && !args.Download)

	if toStdout {
		if _, err := doc.WriteTo(e.Stdout); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else if args.Output != "" {
		if err := writeFile(args.Output, doc); err != nil {
			return err
		}
		fmt.Fprintf(e.Stderr, "Output written to %s\n", args.Output)
	}

	if args.Download {
		path := filepath.Join(e.Dir, concat.DownloadFilename)
		if err := writeFile(path, doc); err != nil {
			return err
		}
		fmt.Fprintf(e.Stderr, "Saved %s\n", path)
	}

	if args.Copy {
		if err := e.Clipboard(doc.String()); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		fmt.Fprintln(e.Stderr, "Output copied to clipboard")
	}
	return nil
}

func writeFile(path string, doc *concat.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	if _, err := doc.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
