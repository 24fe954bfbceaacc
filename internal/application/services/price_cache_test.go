package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/flow-84/crypto-portfolio-v2/internal/domain/entities"
	"github.com/flow-84/crypto-portfolio-v2/internal/testutil"
)

func TestPriceCache_ReplaceAll(t *testing.T) {
	now := time.Now()

	t.Run("preserves insertion order", func(t *testing.T) {
		cache := NewPriceCache()
		cache.ReplaceAll([]entities.Quote{
			testutil.CreateTestQuote(testutil.BitcoinID, "50000", now),
			testutil.CreateTestQuote(testutil.EthereumID, "3000", now),
			testutil.CreateTestQuote(testutil.DogecoinID, "0.08", now),
		})

		entries := cache.Entries()
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}

		want := []string{testutil.BitcoinID, testutil.EthereumID, testutil.DogecoinID}
		for i, id := range want {
			if entries[i].CoinID != id {
				t.Errorf("entry %d: expected %s, got %s", i, id, entries[i].CoinID)
			}
		}
	})

	t.Run("swaps content wholesale", func(t *testing.T) {
		cache := NewPriceCache()
		cache.ReplaceAll([]entities.Quote{
			testutil.CreateTestQuote(testutil.BitcoinID, "50000", now),
		})
		cache.ReplaceAll([]entities.Quote{
			testutil.CreateTestQuote(testutil.EthereumID, "3000", now),
		})

		if _, ok := cache.Lookup(testutil.BitcoinID); ok {
			t.Error("expected bitcoin to be gone after replace")
		}
		if _, ok := cache.Lookup(testutil.EthereumID); !ok {
			t.Error("expected ethereum to be cached")
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		quotes := []entities.Quote{
			testutil.CreateTestQuote(testutil.BitcoinID, "50000", now),
			testutil.CreateTestQuote(testutil.EthereumID, "3000", now),
		}

		cache := NewPriceCache()
		cache.ReplaceAll(quotes)
		once := cache.Entries()

		cache.ReplaceAll(quotes)
		twice := cache.Entries()

		if len(once) != len(twice) {
			t.Fatalf("expected same length, got %d and %d", len(once), len(twice))
		}
		for i := range once {
			if once[i] != twice[i] {
				t.Errorf("entry %d differs after replay: %+v vs %+v", i, once[i], twice[i])
			}
		}
	})
}

func TestPriceCache_UpdateOne(t *testing.T) {
	now := time.Now()

	t.Run("leaves other entries untouched", func(t *testing.T) {
		cache := NewPriceCache()
		cache.ReplaceAll([]entities.Quote{
			testutil.CreateTestQuote(testutil.BitcoinID, "50000", now),
			testutil.CreateTestQuote(testutil.EthereumID, "3000", now),
		})

		cache.UpdateOne(testutil.CreateTestQuote(testutil.BitcoinID, "51000", now))

		btc, _ := cache.Lookup(testutil.BitcoinID)
		if btc.USD.String() != "51000" {
			t.Errorf("expected updated price 51000, got %s", btc.USD.String())
		}

		eth, ok := cache.Lookup(testutil.EthereumID)
		if !ok || eth.USD.String() != "3000" {
			t.Errorf("expected ethereum untouched at 3000, got %+v", eth)
		}
	})

	t.Run("appends unknown coin at the end", func(t *testing.T) {
		cache := NewPriceCache()
		cache.ReplaceAll([]entities.Quote{
			testutil.CreateTestQuote(testutil.BitcoinID, "50000", now),
		})

		cache.UpdateOne(testutil.CreateTestQuote(testutil.DogecoinID, "0.08", now))

		entries := cache.Entries()
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[1].CoinID != testutil.DogecoinID {
			t.Errorf("expected dogecoin appended last, got %s", entries[1].CoinID)
		}
	})
}

func TestPriceCache_Remove(t *testing.T) {
	now := time.Now()

	cache := NewPriceCache()
	cache.ReplaceAll([]entities.Quote{
		testutil.CreateTestQuote(testutil.BitcoinID, "50000", now),
		testutil.CreateTestQuote(testutil.EthereumID, "3000", now),
	})

	cache.Remove(testutil.BitcoinID)

	if _, ok := cache.Lookup(testutil.BitcoinID); ok {
		t.Error("expected bitcoin removed")
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", cache.Len())
	}

	// Removing an unknown coin is a no-op
	cache.Remove("unknown")
	if cache.Len() != 1 {
		t.Errorf("expected 1 entry after removing unknown coin, got %d", cache.Len())
	}
}

func TestPriceCache_Clear(t *testing.T) {
	cache := NewPriceCache()
	cache.ReplaceAll([]entities.Quote{
		testutil.CreateTestQuote(testutil.BitcoinID, "50000", time.Now()),
	})

	cache.Clear()

	if cache.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", cache.Len())
	}
	if entries := cache.Entries(); len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestPriceCache_ConcurrentAccess(t *testing.T) {
	cache := NewPriceCache()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.UpdateOne(testutil.CreateTestQuote(fmt.Sprintf("coin-%d", i), "1", now))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				for _, e := range cache.Entries() {
					if e.CoinID == "" {
						t.Error("read a torn entry")
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}
