package assert

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Assert is a wrapper around assert.Assertions and testing.T
type Assert struct {
	*assert.Assertions
	T *testing.T
}

// New creates a new Assert object
func New(t *testing.T) *Assert {
	return &Assert{
		Assertions: assert.New(t),
		T:          t,
	}
}

// EqualToFixture compares text with the fixture file
// fixtures/<test name>_<fixtureName>.txt. With GEN_FIXTURE=true the fixture is
// (re)written from text instead and the comparison is skipped.
func (a *Assert) EqualToFixture(fixtureName string, text string) {
	a.T.Helper()
	a.compareFixture(fixtureName+".txt", text)
}

// EqualToJSONFixture is EqualToFixture for the indented JSON encoding of result.
func (a *Assert) EqualToJSONFixture(fixtureName string, result any) {
	a.T.Helper()
	resultJSON, err := json.MarshalIndent(result, "", "  ")
	if !a.NoError(err, "Failed to marshal result to JSON") {
		return
	}
	a.compareFixture(fixtureName+".json", string(resultJSON)+"\n")
}

func (a *Assert) compareFixture(fileName, actual string) {
	a.T.Helper()

	// subtest names contain "/"
	testName := strings.ReplaceAll(a.T.Name(), "/", "_")
	fixturePath := filepath.Join("fixtures", fmt.Sprintf("%s_%s", testName, fileName))

	if os.Getenv("GEN_FIXTURE") == "true" {
		err := os.MkdirAll(filepath.Dir(fixturePath), 0o755)
		a.NoError(err, "Failed to create fixture directory")
		err = os.WriteFile(fixturePath, []byte(actual), 0o644)
		a.NoError(err, "Failed to write fixture file")
		return
	}

	expected, err := os.ReadFile(fixturePath)
	if !a.NoError(err, "Failed to read fixture file (run with GEN_FIXTURE=true to create it)") {
		return
	}
	a.Equal(string(expected), actual, "Result does not match fixture %s", fixturePath)
}
