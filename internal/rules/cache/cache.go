package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/awmpietro/shunting-action-validator/internal/rules/guard"
)

type call struct {
	done  chan struct{}
	chain *guard.Chain
	err   error
}

// InMemory caches compiled guard chains by the sha256 of their DOT source.
// Once max entries are stored new chains are compiled but not kept.
type InMemory struct {
	mu       sync.RWMutex
	max      int
	items    map[string]*guard.Chain
	inflight map[string]*call
}

func NewInMemory(max int) *InMemory {
	if max < 0 {
		max = 0
	}
	return &InMemory{
		max:      max,
		items:    make(map[string]*guard.Chain, max),
		inflight: map[string]*call{},
	}
}

// GetOrCompute returns the cached chain for dot or runs fn once for all
// concurrent callers of the same key. Errors and panics are returned to every
// waiter and never cached.
func (c *InMemory) GetOrCompute(dot string, fn func() (*guard.Chain, error)) (*guard.Chain, error) {
	key := hash(dot)

	c.mu.RLock()
	if v, ok := c.items[key]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	if v, ok := c.items[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-cl.done
		return cl.chain, cl.err
	}

	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	cl.chain, cl.err = run(fn)

	c.mu.Lock()
	delete(c.inflight, key)
	if cl.err == nil && len(c.items) < c.max {
		c.items[key] = cl.chain
	}
	c.mu.Unlock()
	close(cl.done)

	return cl.chain, cl.err
}

func (c *InMemory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func run(fn func() (*guard.Chain, error)) (chain *guard.Chain, err error) {
	defer func() {
		if r := recover(); r != nil {
			chain, err = nil, fmt.Errorf("guard compilation panicked: %v", r)
		}
	}()
	return fn()
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
