package cache

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"excelinsights/domain/insight"
)

type entry struct {
	answer  insight.Answer
	expires time.Time
}

// expiry is a pending expiration. It is stale once the key was overwritten
// with a different deadline.
type expiry struct {
	key     string
	expires time.Time
}

type expiryQueue []expiry

func (q expiryQueue) Len() int            { return len(q) }
func (q expiryQueue) Less(i, j int) bool  { return q[i].expires.Before(q[j].expires) }
func (q expiryQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *expiryQueue) Push(x interface{}) { *q = append(*q, x.(expiry)) }
func (q *expiryQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}

// MemoryCache is a process-local answer cache. Expired entries are removed
// on every write, so keys that are never read again do not accumulate.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	queue   expiryQueue
	now     func() time.Time
}

func NewMemory() *MemoryCache {
	return &MemoryCache{entries: make(map[string]entry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*insight.Answer, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	answer := e.answer
	return &answer, true, nil
}

// Set stores answer; a non-positive ttl never expires.
func (c *MemoryCache) Set(_ context.Context, key string, answer *insight.Answer, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.evictExpired(now)

	e := entry{answer: *answer}
	if ttl > 0 {
		e.expires = now.Add(ttl)
		heap.Push(&c.queue, expiry{key: key, expires: e.expires})
	}
	c.entries[key] = e
	return nil
}

func (c *MemoryCache) evictExpired(now time.Time) {
	for len(c.queue) > 0 && !now.Before(c.queue[0].expires) {
		x := heap.Pop(&c.queue).(expiry)
		if e, ok := c.entries[x.key]; ok && e.expires.Equal(x.expires) {
			delete(c.entries, x.key)
		}
	}
}

// Len returns the number of stored entries. Entries that expired since the
// last write are still counted.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
