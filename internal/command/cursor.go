package command

import "sync"

// Cursor is a wraparound position in a collection that may change between
// calls. -1 means no position.
type Cursor struct {
	mu  sync.Mutex
	pos int
}

func newCursor() *Cursor {
	return &Cursor{pos: -1}
}

// Step moves the cursor by dir within a collection of size n. An empty
// collection leaves the cursor untouched and reports false.
func (c *Cursor) Step(n int, dir int) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 {
		return c.pos, false
	}
	c.pos += dir
	if c.pos < 0 {
		c.pos = n - 1
	}
	if c.pos >= n {
		c.pos = 0
	}
	return c.pos, true
}

// Position returns the current index.
func (c *Cursor) Position() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// Reset clears the position.
func (c *Cursor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = -1
}
