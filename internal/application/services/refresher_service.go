package services

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/flow-84/crypto-portfolio-v2/internal/config"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/entities"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/marketdata"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/repositories"
)

var (
	refreshCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_refresh_cycles_total",
		Help: "Total number of completed batch refresh cycles",
	})
	refreshSkipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_refresh_skips_total",
		Help: "Total number of refresh triggers skipped by the call gate",
	})
	refreshErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_refresh_errors_total",
		Help: "Total number of failed refresh cycles",
	})
	quotesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_quotes_fetched_total",
		Help: "Total number of quotes fetched from the feed",
	})
	cachedQuotes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "price_cache_entries",
		Help: "Number of quotes currently cached",
	})
)

// RefresherService keeps the price cache in sync with the feed. It runs a
// periodic full-batch refresh and serves on-demand single-coin fetches after
// holdings mutations. All of its errors are contained; the next tick retries.
type RefresherService struct {
	store  repositories.PortfolioRepository
	feed   marketdata.Source
	cache  *PriceCache
	gate   *CallGate
	cfg    config.RefreshConfig
	logger *zap.Logger

	single singleflight.Group
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRefresherService creates a new refresher service
func NewRefresherService(
	store repositories.PortfolioRepository,
	feed marketdata.Source,
	cache *PriceCache,
	gate *CallGate,
	cfg config.RefreshConfig,
	logger *zap.Logger,
) *RefresherService {
	return &RefresherService{
		store:  store,
		feed:   feed,
		cache:  cache,
		gate:   gate,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start begins the periodic refresh loop
func (s *RefresherService) Start(ctx context.Context) {
	s.logger.Info("Starting price refresher",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("cache_duration", s.cfg.CacheDuration),
	)

	s.wg.Add(1)
	go s.runRefreshLoop(ctx)
}

// Stop gracefully stops the refresher
func (s *RefresherService) Stop() {
	s.logger.Info("Stopping price refresher")
	close(s.stopCh)
	s.wg.Wait()
}

// runRefreshLoop drives the periodic full-batch refresh
func (s *RefresherService) runRefreshLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// Rebuild the cache immediately on start
	s.RefreshAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.RefreshAll(ctx)
		}
	}
}

// RefreshAll performs one full refresh cycle: load the current holdings,
// fetch a batch of quotes through the call gate and swap the cache wholesale.
// An empty portfolio clears the cache and persists the empty list. Failures
// are logged and swallowed; the next tick retries.
func (s *RefresherService) RefreshAll(ctx context.Context) {
	holdings, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("Failed to load holdings for refresh", zap.Error(err))
		refreshErrorsTotal.Inc()
		return
	}

	if len(holdings) == 0 {
		// Empty portfolio implies no stale cache
		s.cache.Clear()
		cachedQuotes.Set(0)
		if err := s.store.Save(ctx, []entities.Holding{}); err != nil {
			s.logger.Warn("Failed to persist empty holdings list", zap.Error(err))
		}
		return
	}

	ids := coinIDs(holdings)

	var quotes map[string]entities.Quote
	ran, err := s.gate.Attempt(ctx, func(ctx context.Context) error {
		var ferr error
		quotes, ferr = s.feed.GetMarketData(ctx, ids)
		return ferr
	})
	if !ran {
		s.logger.Debug("Refresh skipped, previous batch call too recent")
		refreshSkipsTotal.Inc()
		return
	}
	if err != nil {
		s.logger.Error("Batch refresh failed", zap.Error(err))
		refreshErrorsTotal.Inc()
		return
	}

	// Keep the holdings order; coins the feed did not return stay uncached
	entries := make([]entities.Quote, 0, len(quotes))
	for _, h := range holdings {
		if q, ok := quotes[h.CoinID]; ok {
			entries = append(entries, q)
		}
	}
	s.cache.ReplaceAll(entries)

	refreshCyclesTotal.Inc()
	quotesFetchedTotal.Add(float64(len(entries)))
	cachedQuotes.Set(float64(s.cache.Len()))

	s.logger.Info("Refreshed price cache",
		zap.Int("holdings", len(holdings)),
		zap.Int("quotes", len(entries)),
	)
}

// NotifyHoldingAdded triggers an asynchronous single-coin fetch for a coin
// that was just added to the portfolio.
func (s *RefresherService) NotifyHoldingAdded(coinID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.FetchCoin(context.Background(), coinID)
	}()
}

// NotifyHoldingRemoved drops the cached quote for a removed coin
func (s *RefresherService) NotifyHoldingRemoved(coinID string) {
	s.cache.Remove(coinID)
	cachedQuotes.Set(float64(s.cache.Len()))
}

// FetchCoin fetches the quote for a single coin through the call gate and
// updates only that coin's cache entry and stored holding. Concurrent calls
// for the same id collapse into one fetch. A skip by the gate is a normal
// outcome: a full refresh just ran or is about to.
func (s *RefresherService) FetchCoin(ctx context.Context, coinID string) {
	_, _, _ = s.single.Do(coinID, func() (interface{}, error) {
		var quotes map[string]entities.Quote
		ran, err := s.gate.Attempt(ctx, func(ctx context.Context) error {
			var ferr error
			quotes, ferr = s.feed.GetMarketData(ctx, []string{coinID})
			return ferr
		})
		if !ran {
			s.logger.Debug("Single-coin fetch skipped", zap.String("coin_id", coinID))
			refreshSkipsTotal.Inc()
			return nil, nil
		}
		if err != nil {
			s.logger.Warn("Single-coin fetch failed",
				zap.String("coin_id", coinID),
				zap.Error(err),
			)
			refreshErrorsTotal.Inc()
			return nil, nil
		}

		quote, ok := quotes[coinID]
		if !ok {
			s.logger.Warn("Feed returned no quote for coin", zap.String("coin_id", coinID))
			return nil, nil
		}

		s.cache.UpdateOne(quote)
		quotesFetchedTotal.Inc()
		cachedQuotes.Set(float64(s.cache.Len()))

		s.persistQuote(ctx, quote)
		return nil, nil
	})
}

// persistQuote writes a freshly fetched quote into the stored holding,
// leaving all other entries untouched.
func (s *RefresherService) persistQuote(ctx context.Context, quote entities.Quote) {
	holdings, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("Failed to load holdings for price write-back", zap.Error(err))
		return
	}

	updated := false
	for i := range holdings {
		if holdings[i].CoinID != quote.CoinID {
			continue
		}
		holdings[i].Name = quote.Name
		holdings[i].Symbol = quote.Symbol
		holdings[i].LastPrice = &entities.PricePoint{
			USD:        quote.USD,
			ObservedAt: quote.ObservedAt,
		}
		updated = true
		break
	}
	if !updated {
		// Holding was removed while the fetch was in flight
		return
	}

	if err := s.store.Save(ctx, holdings); err != nil {
		s.logger.Warn("Failed to persist price write-back",
			zap.String("coin_id", quote.CoinID),
			zap.Error(err),
		)
	}
}

// coinIDs extracts the coin id set from a holdings list, in order
func coinIDs(holdings []entities.Holding) []string {
	ids := make([]string, len(holdings))
	for i, h := range holdings {
		ids[i] = h.CoinID
	}
	return ids
}
