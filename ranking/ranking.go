package ranking

import (
	"fmt"
	"sort"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// QUOTE RANKING STRATEGIES
// ═══════════════════════════════════════════════════════════════════════════════
//
// Side-aware scoring over an unordered quote set. The sort is stable, so
// equal scores keep their arrival order; that is the only ordering claim.
//
// ═══════════════════════════════════════════════════════════════════════════════

// RankedQuote pairs a quote with its rank (1 = best) and score.
type RankedQuote struct {
	Quote *domain.Quote `json:"quote"`
	Rank  int           `json:"rank"`
	Score float64       `json:"score"`
}

// IsBest reports whether this quote ranked first.
func (r RankedQuote) IsBest() bool { return r.Rank == 1 }

func (r RankedQuote) String() string {
	return fmt.Sprintf("RankedQuote(#%d score=%.4f quote=%s)", r.Rank, r.Score, r.Quote)
}

// Strategy scores and orders quotes for a side.
type Strategy interface {
	// Rank returns the quotes ordered best-first. Empty input yields empty output.
	Rank(quotes []*domain.Quote, side types.OrderSide) []RankedQuote

	// Name returns the strategy identifier.
	Name() string
}

type scored struct {
	index int
	score float64
}

func buildRanked(quotes []*domain.Quote, entries []scored) []RankedQuote {
	// Stable sort by descending score; ties keep input order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].score > entries[j].score
	})

	out := make([]RankedQuote, len(entries))
	for rank, e := range entries {
		out[rank] = RankedQuote{Quote: quotes[e.index], Rank: rank + 1, Score: e.score}
	}
	return out
}

// BestPrice ranks purely on price: lower wins for Buy, higher wins for Sell.
type BestPrice struct{}

// NewBestPrice returns the best-price strategy.
func NewBestPrice() BestPrice { return BestPrice{} }

// Rank implements Strategy.
func (BestPrice) Rank(quotes []*domain.Quote, side types.OrderSide) []RankedQuote {
	if len(quotes) == 0 {
		return nil
	}

	entries := make([]scored, len(quotes))
	for i, q := range quotes {
		price, _ := q.Price.Decimal().Float64()
		score := price
		if side.IsBuy() {
			score = -price
		}
		entries[i] = scored{index: i, score: score}
	}
	return buildRanked(quotes, entries)
}

// Name implements Strategy.
func (BestPrice) Name() string { return "BestPrice" }

// WeightedScore combines normalized price and quantity factors.
type WeightedScore struct {
	PriceWeight    float64
	QuantityWeight float64
}

// NewWeightedScore returns a weighted strategy with the default 0.7/0.3 split.
func NewWeightedScore() WeightedScore {
	return WeightedScore{PriceWeight: 0.7, QuantityWeight: 0.3}
}

// NewWeightedScoreWith returns a weighted strategy with custom weights.
func NewWeightedScoreWith(priceWeight, quantityWeight float64) WeightedScore {
	return WeightedScore{PriceWeight: priceWeight, QuantityWeight: quantityWeight}
}

// Rank implements Strategy. Price and quantity are normalized to [0,1] across
// the candidate set with 1 at the favorable end; a degenerate range (all
// candidates equal) falls back to a range of 1, neutralizing that factor.
func (w WeightedScore) Rank(quotes []*domain.Quote, side types.OrderSide) []RankedQuote {
	if len(quotes) == 0 {
		return nil
	}

	prices := make([]float64, len(quotes))
	quantities := make([]float64, len(quotes))
	for i, q := range quotes {
		prices[i], _ = q.Price.Decimal().Float64()
		quantities[i], _ = q.Quantity.Decimal().Float64()
	}

	minPrice, maxPrice := prices[0], prices[0]
	minQty, maxQty := quantities[0], quantities[0]
	for i := 1; i < len(quotes); i++ {
		if prices[i] < minPrice {
			minPrice = prices[i]
		}
		if prices[i] > maxPrice {
			maxPrice = prices[i]
		}
		if quantities[i] < minQty {
			minQty = quantities[i]
		}
		if quantities[i] > maxQty {
			maxQty = quantities[i]
		}
	}

	priceRange := maxPrice - minPrice
	if priceRange == 0 {
		priceRange = 1.0
	}
	qtyRange := maxQty - minQty
	if qtyRange == 0 {
		qtyRange = 1.0
	}

	entries := make([]scored, len(quotes))
	for i := range quotes {
		var priceScore float64
		if side.IsBuy() {
			priceScore = (maxPrice - prices[i]) / priceRange
		} else {
			priceScore = (prices[i] - minPrice) / priceRange
		}
		qtyScore := (quantities[i] - minQty) / qtyRange

		entries[i] = scored{
			index: i,
			score: w.PriceWeight*priceScore + w.QuantityWeight*qtyScore,
		}
	}
	return buildRanked(quotes, entries)
}

// Name implements Strategy.
func (WeightedScore) Name() string { return "WeightedScore" }
