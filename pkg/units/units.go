// Package units converts raw byte counts for presentation.
//
// Binary (GiB/TiB, divide by 1024^n) and decimal (GB/TB, divide by
// 1000^n) units are both material to downstream reports and are never
// interchangeable. Callers accumulate raw bytes and convert exactly
// once at the edge; rounding happens here and nowhere else.
package units

import "github.com/shopspring/decimal"

const (
	KiB int64 = 1 << 10
	MiB int64 = 1 << 20
	GiB int64 = 1 << 30
	TiB int64 = 1 << 40

	KB int64 = 1e3
	MB int64 = 1e6
	GB int64 = 1e9
	TB int64 = 1e12
)

// places is the presentation precision for all size columns.
const places = 2

func convert(bytes, unit int64) decimal.Decimal {
	return decimal.NewFromInt(bytes).DivRound(decimal.NewFromInt(unit), places)
}

// ToGiB converts bytes to binary gigabytes, rounded to two places.
func ToGiB(bytes int64) decimal.Decimal { return convert(bytes, GiB) }

// ToTiB converts bytes to binary terabytes, rounded to two places.
func ToTiB(bytes int64) decimal.Decimal { return convert(bytes, TiB) }

// ToGB converts bytes to decimal gigabytes, rounded to two places.
func ToGB(bytes int64) decimal.Decimal { return convert(bytes, GB) }

// ToTB converts bytes to decimal terabytes, rounded to two places.
func ToTB(bytes int64) decimal.Decimal { return convert(bytes, TB) }

// FromGiB returns the exact byte count for a whole number of GiB, the
// unit provider APIs use for disk and volume sizes.
func FromGiB(n int64) int64 { return n * GiB }

// FromGB returns the exact byte count for a whole number of decimal GB.
func FromGB(n int64) int64 { return n * GB }
