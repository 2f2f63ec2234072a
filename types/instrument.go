package types

import (
	"errors"
	"strings"
)

var errEmptySymbol = errors.New("symbol must not be empty")

// Symbol is a normalized instrument symbol, e.g. "BTC/USD".
type Symbol string

// NewSymbol trims, upper-cases and validates a symbol string.
func NewSymbol(s string) (Symbol, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", errEmptySymbol
	}
	return Symbol(strings.ToUpper(trimmed)), nil
}

// MustSymbol is a test/constant helper that panics on invalid input.
func MustSymbol(s string) Symbol {
	sym, err := NewSymbol(s)
	if err != nil {
		panic(err)
	}
	return sym
}

func (s Symbol) String() string { return string(s) }

// Instrument is a tradable instrument: symbol, asset class and how it settles.
// Instruments are immutable values; two are equal iff all components match.
type Instrument struct {
	Symbol     Symbol           `json:"symbol"`
	AssetClass AssetClass       `json:"asset_class"`
	Settlement SettlementMethod `json:"settlement"`
}

// NewInstrument builds an instrument value.
func NewInstrument(symbol Symbol, class AssetClass, settlement SettlementMethod) Instrument {
	return Instrument{Symbol: symbol, AssetClass: class, Settlement: settlement}
}

// Equal reports component-wise equality.
func (i Instrument) Equal(other Instrument) bool {
	return i.Symbol == other.Symbol &&
		i.AssetClass == other.AssetClass &&
		i.Settlement == other.Settlement
}

func (i Instrument) String() string {
	return i.Symbol.String() + " " + i.AssetClass.String()
}
