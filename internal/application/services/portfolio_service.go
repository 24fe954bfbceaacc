package services

import (
	"context"
	"errors"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/flow-84/crypto-portfolio-v2/internal/config"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/entities"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/marketdata"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/repositories"
)

var (
	// ErrInvalidCoinID indicates a malformed coin identifier
	ErrInvalidCoinID = errors.New("invalid coin id")
	// ErrInvalidAmount indicates a missing or non-positive amount
	ErrInvalidAmount = errors.New("amount must be a positive number")
	// ErrHoldingNotFound indicates the coin is not in the portfolio
	ErrHoldingNotFound = errors.New("holding not found")
	// ErrPriceUnavailable indicates no fresh cached price for the coin
	ErrPriceUnavailable = errors.New("price not available")
)

var coinIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

const notAvailable = "N/A"

// PortfolioService answers portfolio reads from the stored holdings and the
// in-memory price cache, mutates the holdings list, and drives the
// asynchronous reconciliation pass that brings store and cache back into
// agreement after a read.
type PortfolioService struct {
	store     repositories.PortfolioRepository
	cache     *PriceCache
	feed      marketdata.Source
	gate      *CallGate
	refresher *RefresherService
	cfg       config.RefreshConfig
	logger    *zap.Logger

	// at most one reconciliation pass runs at a time
	reconciling atomic.Bool

	// overridable in tests
	now  func() time.Time
	pace func(ctx context.Context, d time.Duration) error
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(
	store repositories.PortfolioRepository,
	cache *PriceCache,
	feed marketdata.Source,
	gate *CallGate,
	refresher *RefresherService,
	cfg config.RefreshConfig,
	logger *zap.Logger,
) *PortfolioService {
	return &PortfolioService{
		store:     store,
		cache:     cache,
		feed:      feed,
		gate:      gate,
		refresher: refresher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		pace:      sleepCtx,
	}
}

// HoldingRowDTO is the API representation of one portfolio row
type HoldingRowDTO struct {
	CoinID string `json:"coin_id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Amount string `json:"amount"`
	Price  string `json:"price"`
	Value  string `json:"value"`
	Cached bool   `json:"cached"`
}

// PortfolioViewDTO is the API representation of the portfolio
type PortfolioViewDTO struct {
	Holdings   []HoldingRowDTO `json:"holdings"`
	TotalValue string          `json:"total_value"`
	UpdatedAt  string          `json:"updated_at"`
}

// PortfolioViewResponse wraps the portfolio view for API response
type PortfolioViewResponse struct {
	Data PortfolioViewDTO `json:"data"`
}

// HoldingResponse wraps a single holding row for API response
type HoldingResponse struct {
	Data HoldingRowDTO `json:"data"`
}

// PriceDTO is the API representation of a single cached price
type PriceDTO struct {
	CoinID string `json:"coin_id"`
	Price  string `json:"price"`
	Value  string `json:"value"`
}

// PriceResponse wraps a single price for API response
type PriceResponse struct {
	Data PriceDTO `json:"data"`
}

// GetPortfolioView merges the stored holdings with the latest cached quotes.
// It never touches the network: rows without a cache entry come back with
// price and value marked unavailable, and a store failure degrades to an
// empty portfolio rather than an error.
func (s *PortfolioService) GetPortfolioView(ctx context.Context) *PortfolioViewResponse {
	holdings, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("Failed to load holdings, serving empty portfolio", zap.Error(err))
		holdings = nil
	}

	rows := make([]HoldingRowDTO, 0, len(holdings))
	total := decimal.Zero

	for _, h := range holdings {
		row := HoldingRowDTO{
			CoinID: h.CoinID,
			Name:   displayName(h),
			Symbol: h.Symbol,
			Amount: h.Amount.String(),
			Price:  notAvailable,
			Value:  notAvailable,
		}

		if quote, ok := s.cache.Lookup(h.CoinID); ok {
			value := h.Amount.Mul(quote.USD)
			row.Name = quote.Name
			row.Symbol = quote.Symbol
			row.Price = formatUSD(quote.USD)
			row.Value = formatUSD(value)
			row.Cached = true
			total = total.Add(value)
		}

		rows = append(rows, row)
	}

	return &PortfolioViewResponse{
		Data: PortfolioViewDTO{
			Holdings:   rows,
			TotalValue: total.StringFixed(2),
			UpdatedAt:  s.now().UTC().Format(time.RFC3339),
		},
	}
}

// GetPrice returns the cached price and position value for a coin, or
// ErrPriceUnavailable if no fresh cache entry exists.
func (s *PortfolioService) GetPrice(ctx context.Context, coinID string) (*PriceResponse, error) {
	if !coinIDPattern.MatchString(coinID) {
		return nil, ErrInvalidCoinID
	}

	quote, ok := s.cache.Lookup(coinID)
	if !ok || !quote.Fresh(s.now(), s.cfg.CacheDuration) {
		return nil, ErrPriceUnavailable
	}

	dto := PriceDTO{
		CoinID: coinID,
		Price:  formatUSD(quote.USD),
		Value:  notAvailable,
	}

	holdings, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("Failed to load holdings for price value", zap.Error(err))
	} else {
		for _, h := range holdings {
			if h.CoinID == coinID {
				dto.Value = formatUSD(h.Amount.Mul(quote.USD))
				break
			}
		}
	}

	return &PriceResponse{Data: dto}, nil
}

// AddHolding adds a coin to the portfolio, merging the amount into an
// existing entry for the same coin id, and triggers an asynchronous
// single-coin price fetch for it.
func (s *PortfolioService) AddHolding(ctx context.Context, coinID, amount string) (*HoldingResponse, error) {
	if !coinIDPattern.MatchString(coinID) {
		return nil, ErrInvalidCoinID
	}

	qty, err := decimal.NewFromString(amount)
	if err != nil || !qty.IsPositive() {
		return nil, ErrInvalidAmount
	}

	holdings, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	merged := false
	saved := entities.Holding{CoinID: coinID, Amount: qty}
	for i := range holdings {
		if holdings[i].CoinID == coinID {
			holdings[i].Amount = holdings[i].Amount.Add(qty)
			saved = holdings[i]
			merged = true
			break
		}
	}
	if !merged {
		holdings = append(holdings, saved)
	}

	if err := s.store.Save(ctx, holdings); err != nil {
		return nil, err
	}

	s.logger.Info("Holding saved",
		zap.String("coin_id", coinID),
		zap.String("amount", qty.String()),
		zap.Bool("merged", merged),
	)

	if s.refresher != nil {
		s.refresher.NotifyHoldingAdded(coinID)
	}

	row := HoldingRowDTO{
		CoinID: saved.CoinID,
		Name:   displayName(saved),
		Symbol: saved.Symbol,
		Amount: saved.Amount.String(),
		Price:  notAvailable,
		Value:  notAvailable,
	}
	if quote, ok := s.cache.Lookup(coinID); ok {
		row.Name = quote.Name
		row.Symbol = quote.Symbol
		row.Price = formatUSD(quote.USD)
		row.Value = formatUSD(saved.Amount.Mul(quote.USD))
		row.Cached = true
	}

	return &HoldingResponse{Data: row}, nil
}

// RemoveHolding deletes a coin from the portfolio. Removing an unknown coin
// is a not-found outcome and leaves the stored list unmodified.
func (s *PortfolioService) RemoveHolding(ctx context.Context, coinID string) error {
	if !coinIDPattern.MatchString(coinID) {
		return ErrInvalidCoinID
	}

	holdings, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	remaining := make([]entities.Holding, 0, len(holdings))
	for _, h := range holdings {
		if h.CoinID != coinID {
			remaining = append(remaining, h)
		}
	}
	if len(remaining) == len(holdings) {
		return ErrHoldingNotFound
	}

	if err := s.store.Save(ctx, remaining); err != nil {
		return err
	}

	s.logger.Info("Holding removed", zap.String("coin_id", coinID))

	if s.refresher != nil {
		s.refresher.NotifyHoldingRemoved(coinID)
	}

	return nil
}

// StartReconciliation spawns a detached reconciliation pass. The caller has
// already responded to the client; the pass runs with its own context and
// error containment.
func (s *PortfolioService) StartReconciliation() {
	go s.Reconcile(context.Background())
}

// Reconcile re-reads the stored holdings, fetches one gated batch of quotes,
// refreshes every holding whose cached price is missing or stale (with a
// fixed pacing delay between them), persists the merged list and replaces
// the price cache wholesale with it. At most one pass runs at a time.
//
// A pass that started before a concurrent add/remove and finishes after it
// can overwrite that mutation: the persisted list is last-writer-wins.
func (s *PortfolioService) Reconcile(ctx context.Context) {
	if !s.reconciling.CompareAndSwap(false, true) {
		return
	}
	defer s.reconciling.Store(false)

	holdings, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("Reconciliation aborted, failed to load holdings", zap.Error(err))
		return
	}
	if len(holdings) == 0 {
		return
	}

	var quotes map[string]entities.Quote
	ran, err := s.gate.Attempt(ctx, func(ctx context.Context) error {
		var ferr error
		quotes, ferr = s.feed.GetMarketData(ctx, coinIDs(holdings))
		return ferr
	})
	if !ran {
		// A batch call just ran; nothing newer to merge
		return
	}
	if err != nil {
		s.logger.Warn("Reconciliation batch call failed", zap.Error(err))
		return
	}

	now := s.now()
	updated := 0
	for i := range holdings {
		cached, ok := s.cache.Lookup(holdings[i].CoinID)
		if ok && cached.Fresh(now, s.cfg.CacheDuration) {
			// Already in agreement; carry the fresh quote into the list
			applyQuote(&holdings[i], cached)
			continue
		}

		quote, have := quotes[holdings[i].CoinID]
		if !have {
			continue
		}

		// Deliberate rate shaping between per-holding updates
		if err := s.pace(ctx, s.cfg.PacingDelay); err != nil {
			s.logger.Warn("Reconciliation cancelled", zap.Error(err))
			return
		}

		applyQuote(&holdings[i], quote)
		updated++
	}

	if err := s.store.Save(ctx, holdings); err != nil {
		s.logger.Warn("Failed to persist reconciled holdings", zap.Error(err))
		return
	}

	entries := make([]entities.Quote, 0, len(holdings))
	for _, h := range holdings {
		if h.LastPrice == nil {
			continue
		}
		entries = append(entries, entities.Quote{
			CoinID:     h.CoinID,
			USD:        h.LastPrice.USD,
			Name:       h.Name,
			Symbol:     h.Symbol,
			ObservedAt: h.LastPrice.ObservedAt,
		})
	}
	s.cache.ReplaceAll(entries)
	cachedQuotes.Set(float64(s.cache.Len()))

	s.logger.Info("Reconciliation pass completed",
		zap.Int("holdings", len(holdings)),
		zap.Int("refreshed", updated),
	)
}

// applyQuote writes a quote's price, timestamp, name and symbol into a holding
func applyQuote(h *entities.Holding, q entities.Quote) {
	h.Name = q.Name
	h.Symbol = q.Symbol
	h.LastPrice = &entities.PricePoint{
		USD:        q.USD,
		ObservedAt: q.ObservedAt,
	}
}

// displayName falls back to the coin id until a name has been fetched
func displayName(h entities.Holding) string {
	if h.Name != "" {
		return h.Name
	}
	return h.CoinID
}

// formatUSD renders a dollar figure with tiered precision: 2 decimals from
// $1 up, 4 decimals from $0.0001 up, 8 decimals below that.
func formatUSD(d decimal.Decimal) string {
	abs := d.Abs()
	switch {
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return d.StringFixed(2)
	case abs.GreaterThanOrEqual(decimal.New(1, -4)):
		return d.StringFixed(4)
	default:
		return d.StringFixed(8)
	}
}
