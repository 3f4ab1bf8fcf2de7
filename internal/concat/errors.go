package concat

import "fmt"

// TooManyFilesError aborts a run whose selection exceeds the file limit.
// It is never retried and no content is fetched.
type TooManyFilesError struct {
	Count int
	Limit int
}

func (e *TooManyFilesError) Error() string {
	return fmt.Sprintf("Too many files to process (%d selected, limit %d). Please use a more specific whitelist or blacklist.", e.Count, e.Limit)
}

// RunFailedError is returned when every attempt of a run failed.
type RunFailedError struct {
	Attempts int
	Err      error
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %s", e.Attempts, e.Err)
}

func (e *RunFailedError) Unwrap() error { return e.Err }
