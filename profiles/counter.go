package profiles

import "sync"

// LoadCounter counts how many times each profile is entered along the
// current load chain. One counter is created per resolution and passed down
// through every dependency load.
type LoadCounter struct {
	mu    sync.Mutex
	count map[string]int
}

// NewLoadCounter returns an empty counter.
func NewLoadCounter() *LoadCounter {
	return &LoadCounter{count: map[string]int{}}
}

// CounterKey returns the key identifying a profile in a [LoadCounter].
func CounterKey(typ, name string) string { return typ + ":" + name }

// Enter increments the count of key and returns the new count together with
// a function that resets it to zero. The reset must run when the load of key
// exits, whether it succeeded or not.
func (c *LoadCounter) Enter(key string) (int, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count == nil {
		c.count = map[string]int{}
	}

	c.count[key]++
	n := c.count[key]

	return n, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.count[key] = 0
	}
}

// Count returns the current count of key.
func (c *LoadCounter) Count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.count[key]
}
