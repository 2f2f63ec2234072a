package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ─────────────────────────────────────────────────────────────────────────────
// LiquidityClassification
// ─────────────────────────────────────────────────────────────────────────────

// LiquidityClassification selects which price-bounds tolerance band applies.
type LiquidityClassification uint8

const (
	// Liquid instruments get the tightest tolerance band.
	Liquid LiquidityClassification = iota
	// SemiLiquid instruments get a moderate tolerance band.
	SemiLiquid
	// Illiquid instruments get the widest tolerance band.
	Illiquid
)

func (l LiquidityClassification) String() string {
	switch l {
	case Liquid:
		return "LIQUID"
	case SemiLiquid:
		return "SEMI_LIQUID"
	case Illiquid:
		return "ILLIQUID"
	default:
		return "LIQUID"
	}
}

// ParseLiquidityClassification parses a tier tag.
func ParseLiquidityClassification(s string) (LiquidityClassification, error) {
	switch strings.ReplaceAll(strings.ToUpper(s), "-", "_") {
	case "LIQUID":
		return Liquid, nil
	case "SEMI_LIQUID", "SEMILIQUID":
		return SemiLiquid, nil
	case "ILLIQUID":
		return Illiquid, nil
	default:
		return Liquid, &ParseEnumError{Enum: "LiquidityClassification", Value: s}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ReferencePriceSource
// ─────────────────────────────────────────────────────────────────────────────

// ReferencePriceSource identifies where a reference price came from.
// Sources are ordered: CLOB mid → theoretical → Chainlink index.
type ReferencePriceSource uint8

const (
	// ClobMid is the central limit order book mid-price, highest priority.
	ClobMid ReferencePriceSource = iota
	// Theoretical is a model-derived price, second priority.
	Theoretical
	// ChainlinkIndex is the on-chain oracle index, the last fallback.
	ChainlinkIndex
)

// Priority returns the source's rank in the fallback chain (lower wins).
func (s ReferencePriceSource) Priority() uint8 { return uint8(s) }

func (s ReferencePriceSource) String() string {
	switch s {
	case ClobMid:
		return "CLOB_MID"
	case Theoretical:
		return "THEORETICAL"
	case ChainlinkIndex:
		return "CHAINLINK_INDEX"
	default:
		return "CLOB_MID"
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// PriceBoundsConfig
// ─────────────────────────────────────────────────────────────────────────────

// PriceBoundsConfig holds the maximum fractional deviation per liquidity tier
// (0.05 = ±5%).
type PriceBoundsConfig struct {
	LiquidTolerance     decimal.Decimal
	SemiLiquidTolerance decimal.Decimal
	IlliquidTolerance   decimal.Decimal
}

// DefaultPriceBounds returns the default tolerance bands: 5%, 7.5%, 10%.
func DefaultPriceBounds() PriceBoundsConfig {
	return PriceBoundsConfig{
		LiquidTolerance:     decimal.RequireFromString("0.05"),
		SemiLiquidTolerance: decimal.RequireFromString("0.075"),
		IlliquidTolerance:   decimal.RequireFromString("0.10"),
	}
}

// ToleranceFor returns the tolerance band for the given tier.
func (c PriceBoundsConfig) ToleranceFor(tier LiquidityClassification) decimal.Decimal {
	switch tier {
	case SemiLiquid:
		return c.SemiLiquidTolerance
	case Illiquid:
		return c.IlliquidTolerance
	default:
		return c.LiquidTolerance
	}
}
