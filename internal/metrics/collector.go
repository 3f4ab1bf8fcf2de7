package metrics

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Kinds of measured blocks.
const (
	KindFile   = "file"   // fetched file
	KindFailed = "failed" // error placeholder
)

// Key identifies one measured block of the output.
type Key struct {
	Kind string
	Path string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Kind, k.Path)
}

// Item is the measurement of one block.
type Item struct {
	Bytes  int `json:"bytes"`
	Tokens int `json:"tokens"`
	Lines  int `json:"lines"`
}

// Add accumulates another measurement into m.
func (m *Item) Add(o Item) {
	m.Bytes += o.Bytes
	m.Tokens += o.Tokens
	m.Lines += o.Lines
}

type job struct {
	key  Key
	text string
}

// Collector measures blocks on a pool of workers. Add blocks, then Wait
// before reading results.
type Collector struct {
	mu    sync.Mutex // guards items
	items map[Key]Item

	sendMu sync.RWMutex // guards jobs; held shared by Add, exclusively by Wait
	jobs   chan job

	wg      sync.WaitGroup
	counter Counter
}

// NewCollector starts workers goroutines measuring with counter.
func NewCollector(counter Counter, workers int) *Collector {
	if workers < 1 {
		workers = 1
	}
	c := &Collector{
		jobs:    make(chan job, workers*2),
		items:   make(map[Key]Item),
		counter: counter,
	}
	c.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go c.worker()
	}
	return c
}

func (c *Collector) worker() {
	defer c.wg.Done()
	for j := range c.jobs {
		bytes, tokens, lines := c.counter.Count(j.text)

		c.mu.Lock()
		item := c.items[j.key]
		item.Add(Item{Bytes: bytes, Tokens: tokens, Lines: lines})
		c.items[j.key] = item
		c.mu.Unlock()
	}
}

// Add queues text for measurement under kind and path. It panics if called
// after Wait.
func (c *Collector) Add(kind, path, text string) {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.jobs == nil {
		panic("metrics: Collector.Add called after Wait")
	}
	c.jobs <- job{key: Key{Kind: kind, Path: path}, text: text}
}

// Wait stops accepting work and blocks until every queued block is measured.
// It may be called more than once.
func (c *Collector) Wait() {
	c.sendMu.Lock()
	if c.jobs != nil {
		close(c.jobs)
		c.jobs = nil
	}
	c.sendMu.Unlock()
	c.wg.Wait()
}

// Items returns a copy of the measurements.
func (c *Collector) Items() map[Key]Item {
	c.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[Key]Item, len(c.items))
	for k, v := range c.items {
		out[k] = v
	}
	return out
}

// SumBy totals the measurements of one kind.
func (c *Collector) SumBy(kind string) Item {
	var sum Item
	for k, v := range c.Items() {
		if k.Kind == kind {
			sum.Add(v)
		}
	}
	return sum
}

// Total sums every measurement.
func (c *Collector) Total() Item {
	var sum Item
	for _, v := range c.Items() {
		sum.Add(v)
	}
	return sum
}

// MarshalJSON encodes the measurements keyed by "kind:path".
func (c *Collector) MarshalJSON() ([]byte, error) {
	items := c.Items()
	out := make(map[string]Item, len(items))
	for k, v := range items {
		out[k.String()] = v
	}
	return json.Marshal(out)
}
