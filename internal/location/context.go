package location

import "sync"

// Context is the single owner of a session's location selection. Readers call Get;
// only explicit user selection goes through Set or Clear. Subscribers are told about
// every change, after the lock is released.
type Context struct {
	mu      sync.RWMutex
	current string
	subs    map[int]func(string)
	nextID  int
}

func NewContext(initial string) *Context {
	return &Context{current: Canonical(initial), subs: make(map[int]func(string))}
}

// Get returns the active selection; empty means unset.
func (c *Context) Get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Set stores the canonical form of name and notifies subscribers if it changed.
func (c *Context) Set(name string) {
	c.update(Canonical(name))
}

func (c *Context) Clear() {
	c.update("")
}

func (c *Context) update(next string) {
	c.mu.Lock()
	if next == c.current {
		c.mu.Unlock()
		return
	}
	c.current = next
	subs := make([]func(string), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// Subscribe registers fn for change notifications and returns its cancel func.
func (c *Context) Subscribe(fn func(string)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}
