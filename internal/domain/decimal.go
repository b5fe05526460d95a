package domain

import "github.com/shopspring/decimal"

func init() {
	// Pool price math chains divisions (sqrt ratio squared, unit
	// conversions, inversions); the library default of 16 fractional
	// digits loses significance on sub-1e-10 raw prices.
	decimal.DivisionPrecision = 40
}
