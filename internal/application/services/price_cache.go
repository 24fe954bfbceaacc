package services

import (
	"sync/atomic"

	"github.com/flow-84/crypto-portfolio-v2/internal/domain/entities"
)

// PriceCache holds the latest known quotes in memory, insertion-ordered.
// Readers grab an immutable snapshot and never block writers; writers build
// a fresh snapshot and swap it in atomically, so no partially written entry
// is ever visible.
type PriceCache struct {
	snap atomic.Pointer[cacheSnapshot]
}

type cacheSnapshot struct {
	order  []string
	quotes map[string]entities.Quote
}

func emptySnapshot() *cacheSnapshot {
	return &cacheSnapshot{
		order:  []string{},
		quotes: map[string]entities.Quote{},
	}
}

// NewPriceCache creates an empty price cache
func NewPriceCache() *PriceCache {
	c := &PriceCache{}
	c.snap.Store(emptySnapshot())
	return c
}

// Entries returns all cached quotes in insertion order
func (c *PriceCache) Entries() []entities.Quote {
	snap := c.snap.Load()
	entries := make([]entities.Quote, 0, len(snap.order))
	for _, id := range snap.order {
		entries = append(entries, snap.quotes[id])
	}
	return entries
}

// Lookup returns the cached quote for a coin id, if present
func (c *PriceCache) Lookup(coinID string) (entities.Quote, bool) {
	snap := c.snap.Load()
	q, ok := snap.quotes[coinID]
	return q, ok
}

// Len returns the number of cached quotes
func (c *PriceCache) Len() int {
	return len(c.snap.Load().order)
}

// ReplaceAll atomically swaps the whole cache content
func (c *PriceCache) ReplaceAll(quotes []entities.Quote) {
	next := &cacheSnapshot{
		order:  make([]string, 0, len(quotes)),
		quotes: make(map[string]entities.Quote, len(quotes)),
	}
	for _, q := range quotes {
		if _, seen := next.quotes[q.CoinID]; !seen {
			next.order = append(next.order, q.CoinID)
		}
		next.quotes[q.CoinID] = q
	}
	c.snap.Store(next)
}

// UpdateOne replaces a single quote, leaving all other entries untouched.
// A coin not yet cached is appended at the end of the insertion order.
func (c *PriceCache) UpdateOne(quote entities.Quote) {
	prev := c.snap.Load()

	next := &cacheSnapshot{
		order:  prev.order,
		quotes: make(map[string]entities.Quote, len(prev.quotes)+1),
	}
	for id, q := range prev.quotes {
		next.quotes[id] = q
	}
	if _, exists := prev.quotes[quote.CoinID]; !exists {
		next.order = append(append([]string{}, prev.order...), quote.CoinID)
	}
	next.quotes[quote.CoinID] = quote

	c.snap.Store(next)
}

// Remove drops a single quote from the cache
func (c *PriceCache) Remove(coinID string) {
	prev := c.snap.Load()
	if _, exists := prev.quotes[coinID]; !exists {
		return
	}

	next := &cacheSnapshot{
		order:  make([]string, 0, len(prev.order)-1),
		quotes: make(map[string]entities.Quote, len(prev.quotes)-1),
	}
	for _, id := range prev.order {
		if id == coinID {
			continue
		}
		next.order = append(next.order, id)
		next.quotes[id] = prev.quotes[id]
	}

	c.snap.Store(next)
}

// Clear drops all cached quotes
func (c *PriceCache) Clear() {
	c.snap.Store(emptySnapshot())
}
