package tally

import (
	"strconv"
	"sync"
	"time"
)

type cachedRecord struct {
	vote     *VoteData
	cachedAt time.Time
}

// RecordCache keeps recently read vote records in memory so the API
// does not re-read the record tree on every request.
type RecordCache struct {
	mu      sync.RWMutex
	records map[string]cachedRecord // "repo#number" → record
	ttl     time.Duration
}

// NewRecordCache creates a record cache
func NewRecordCache(ttl time.Duration) *RecordCache {
	if ttl == 0 {
		ttl = 5 * time.Minute // Default 5 minutes
	}

	return &RecordCache{
		records: make(map[string]cachedRecord),
		ttl:     ttl,
	}
}

func cacheKey(repoName string, number int) string {
	return repoName + "#" + strconv.Itoa(number)
}

// Update adds or refreshes a record in the cache
func (c *RecordCache) Update(vote *VoteData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records[cacheKey(vote.RepoName, vote.Number)] = cachedRecord{
		vote:     vote,
		cachedAt: time.Now(),
	}
}

// Get retrieves a record from cache
func (c *RecordCache) Get(repoName string, number int) (*VoteData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, exists := c.records[cacheKey(repoName, number)]
	if !exists {
		return nil, false
	}

	// Check if expired
	if time.Since(rec.cachedAt) > c.ttl {
		return nil, false
	}

	return rec.vote, true
}

// CleanExpired removes expired records from cache
func (c *RecordCache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, rec := range c.records {
		if time.Since(rec.cachedAt) > c.ttl {
			delete(c.records, key)
			removed++
		}
	}

	return removed
}

// Count returns the number of cached records
func (c *RecordCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.records)
}
