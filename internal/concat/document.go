package concat

import (
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DownloadFilename is the file name used when the document is saved.
const DownloadFilename = "concatenated_files.txt"

// FileResult is the outcome for one selected file: its content, or the last
// error after the retry budget ran out.
type FileResult struct {
	Path     string
	Content  string
	Err      error
	Attempts int
}

// Failed reports whether the file could not be fetched.
func (f FileResult) Failed() bool { return f.Err != nil }

// Block renders the file's section of the document.
func (f FileResult) Block() string {
	if f.Failed() {
		return fmt.Sprintf("// Error fetching %s after %d attempts. Last error: %s\n\n", f.Path, f.Attempts, f.Err)
	}
	return "// " + f.Path + "\n" + f.Content + "\n\n"
}

// Document is the concatenation of every selected file, in tree order.
type Document struct {
	Owner  string
	Repo   string
	Branch string
	Files  []FileResult
}

// WriteTo writes every file block to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, f := range d.Files {
		n, err := io.WriteString(w, f.Block())
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
	}
	return total, nil
}

func (d *Document) String() string {
	var sb strings.Builder
	_, _ = d.WriteTo(&sb)
	return sb.String()
}

// Failures returns the files that were replaced by an error placeholder.
func (d *Document) Failures() []FileResult {
	var out []FileResult
	for _, f := range d.Files {
		if f.Failed() {
			out = append(out, f)
		}
	}
	return out
}

// looksBinary samples the first 100 runes and reports whether more than 10%
// of them are not printable text.
func looksBinary(content string) bool {
	const sampleSize = 100
	var nonPrintable, total int
	for i := 0; i < len(content) && total < sampleSize; {
		r, size := utf8.DecodeRuneInString(content[i:])
		if r == utf8.RuneError || (!unicode.IsPrint(r) && !unicode.IsSpace(r)) {
			nonPrintable++
		}
		i += size
		total++
	}
	if total == 0 {
		return false
	}
	return float64(nonPrintable)/float64(total) > 0.1
}
