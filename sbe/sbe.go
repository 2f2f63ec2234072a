// Package sbe holds fixed-width binary helpers for the engine's wire types:
// UUIDs as two little-endian u64 halves and decimals as an i64 mantissa plus
// i8 exponent.
package sbe

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BufferTooSmallError reports an encode/decode buffer shorter than the type.
type BufferTooSmallError struct {
	Needed    int
	Available int
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("buffer too small: need %d bytes, have %d", e.Needed, e.Available)
}

// ValueOutOfRangeError reports a value that does not fit the wire type.
type ValueOutOfRangeError struct {
	What string
}

func (e *ValueOutOfRangeError) Error() string {
	return "value out of range: " + e.What
}

// ─────────────────────────────────────────────────────────────────────────────
// UUID
// ─────────────────────────────────────────────────────────────────────────────

// UUIDSize is the encoded size of a UUID: two u64 halves.
const UUIDSize = 16

// UUID is the wire form of a UUID.
type UUID struct {
	High uint64
	Low  uint64
}

// UUIDFrom splits a uuid.UUID into its wire halves.
func UUIDFrom(u uuid.UUID) UUID {
	return UUID{
		High: binary.LittleEndian.Uint64(u[0:8]),
		Low:  binary.LittleEndian.Uint64(u[8:16]),
	}
}

// ToUUID reassembles the uuid.UUID.
func (u UUID) ToUUID() uuid.UUID {
	var out uuid.UUID
	binary.LittleEndian.PutUint64(out[0:8], u.High)
	binary.LittleEndian.PutUint64(out[8:16], u.Low)
	return out
}

// Encode writes the wire form into the buffer.
func (u UUID) Encode(buf []byte) error {
	if len(buf) < UUIDSize {
		return &BufferTooSmallError{Needed: UUIDSize, Available: len(buf)}
	}
	binary.LittleEndian.PutUint64(buf[0:8], u.High)
	binary.LittleEndian.PutUint64(buf[8:16], u.Low)
	return nil
}

// DecodeUUID reads a wire UUID from the buffer.
func DecodeUUID(buf []byte) (UUID, error) {
	if len(buf) < UUIDSize {
		return UUID{}, &BufferTooSmallError{Needed: UUIDSize, Available: len(buf)}
	}
	return UUID{
		High: binary.LittleEndian.Uint64(buf[0:8]),
		Low:  binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Decimal
// ─────────────────────────────────────────────────────────────────────────────

// DecimalSize is the encoded size of a decimal: i64 mantissa + i8 exponent.
const DecimalSize = 9

// Decimal is the wire form of a decimal: mantissa × 10^exponent.
type Decimal struct {
	Mantissa int64
	Exponent int8
}

// DecimalFrom converts a decimal.Decimal whose coefficient fits an i64.
func DecimalFrom(d decimal.Decimal) (Decimal, error) {
	mantissa := d.Coefficient()
	if !mantissa.IsInt64() {
		return Decimal{}, &ValueOutOfRangeError{What: "mantissa exceeds i64"}
	}
	exponent := d.Exponent()
	if exponent < math.MinInt8 || exponent > math.MaxInt8 {
		return Decimal{}, &ValueOutOfRangeError{What: "exponent exceeds i8"}
	}
	return Decimal{Mantissa: mantissa.Int64(), Exponent: int8(exponent)}, nil
}

// ToDecimal reassembles the decimal.Decimal.
func (d Decimal) ToDecimal() decimal.Decimal {
	return decimal.New(d.Mantissa, int32(d.Exponent))
}

// Encode writes the wire form into the buffer.
func (d Decimal) Encode(buf []byte) error {
	if len(buf) < DecimalSize {
		return &BufferTooSmallError{Needed: DecimalSize, Available: len(buf)}
	}
	binary.LittleEndian.PutUint64(buf[0:8], uint64(d.Mantissa))
	buf[8] = byte(d.Exponent)
	return nil
}

// DecodeDecimal reads a wire decimal from the buffer.
func DecodeDecimal(buf []byte) (Decimal, error) {
	if len(buf) < DecimalSize {
		return Decimal{}, &BufferTooSmallError{Needed: DecimalSize, Available: len(buf)}
	}
	return Decimal{
		Mantissa: int64(binary.LittleEndian.Uint64(buf[0:8])),
		Exponent: int8(buf[8]),
	}, nil
}
