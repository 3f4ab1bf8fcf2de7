package metrics

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultTiktokenModel selects the encoding used by the tiktoken estimator.
const DefaultTiktokenModel = "gpt-3.5-turbo"

// Counter measures a piece of text.
type Counter interface {
	// Count returns the number of bytes, tokens, and lines in the given text
	Count(text string) (bytes, tokens, lines int)
}

// NewCounter returns the Counter for an estimator name: "simple" or
// "tiktoken".
func NewCounter(estimator string) (Counter, error) {
	switch estimator {
	case "", "simple":
		return SimpleCounter{}, nil
	case "tiktoken":
		return NewTiktokenCounter(DefaultTiktokenModel)
	default:
		return nil, fmt.Errorf("unknown token estimator: %s", estimator)
	}
}

// SimpleCounter estimates tokens as bytes/4.
type SimpleCounter struct{}

func (SimpleCounter) Count(text string) (int, int, int) {
	return len(text), len(text) / 4, countLines(text)
}

// TiktokenCounter counts tokens with a model's BPE encoding.
type TiktokenCounter struct {
	mu  sync.Mutex
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the encoding for model. Loading may download the
// BPE ranks on first use.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("unsupported model for tiktoken: %s: %w", model, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) (int, int, int) {
	c.mu.Lock()
	tokens := len(c.enc.Encode(strings.TrimSpace(text), nil, nil))
	c.mu.Unlock()
	return len(text), tokens, countLines(text)
}

func countLines(text string) int {
	return strings.Count(text, "\n") + 1
}
