// Package riskparams holds the admin-tunable knobs that govern credit
// issuance. It mirrors the flat, plain-struct shape the teacher uses
// for chaincfg.Params: a single value object with no behavior beyond
// validation, swapped in as a whole by the credit manager's
// setRiskConfig operation.
package riskparams

import "fmt"

// RiskParameters governs how the credit manager converts verified
// payout evidence into a credit limit. All Bps fields are basis points
// (0..10_000). See spec.md §3 for field semantics.
type RiskParameters struct {
	ConfirmationsRequired    uint32 // informational at the manager level
	AdvanceRateBps           uint32
	WindowSeconds            uint32
	NewBorrowerPeriodSeconds uint32
	NewBorrowerCap           uint64
	GlobalCap                uint64 // 0 = unlimited
	MinPayoutSats            uint64
	BtcPriceUsd              uint64 // fixed-point, 8 fractional digits

	MinPayoutCountForFullCredit uint64
	LargePayoutThresholdSats    uint64 // 0 disables the discount
	LargePayoutDiscountBps      uint32

	// StablecoinDecimals is the number of fractional decimal digits
	// the stablecoin's smallest unit represents (6 in spec.md's
	// worked examples). It is not itself named in spec.md §3 but is
	// required to make the fixed-point credit-limit conversion
	// (§4.5, §9) concrete rather than hardcoded.
	StablecoinDecimals uint8
}

// MaxBps is the maximum valid value for any basis-points field.
const MaxBps = 10_000

// Validate rejects risk parameter sets that cannot produce sane credit
// limits. It never mutates the receiver.
func (p RiskParameters) Validate() error {
	if p.AdvanceRateBps > MaxBps {
		return fmt.Errorf("riskparams: advanceRateBps %d exceeds %d", p.AdvanceRateBps, MaxBps)
	}
	if p.LargePayoutDiscountBps > MaxBps {
		return fmt.Errorf("riskparams: largePayoutDiscountBps %d exceeds %d", p.LargePayoutDiscountBps, MaxBps)
	}
	if p.WindowSeconds == 0 {
		return fmt.Errorf("riskparams: windowSeconds must be non-zero")
	}
	if p.BtcPriceUsd == 0 {
		return fmt.Errorf("riskparams: btcPriceUsd must be non-zero")
	}
	if p.StablecoinDecimals > 18 {
		return fmt.Errorf("riskparams: stablecoinDecimals %d is implausible", p.StablecoinDecimals)
	}
	return nil
}

// Default returns the parameter set used by spec.md's worked scenarios
// S1/S2: 50% advance rate, $50,000 BTC, a 30-day window and
// new-borrower period, a 10,000-unit new-borrower cap, and a 6-decimal
// stablecoin.
func Default() RiskParameters {
	const day = 24 * 60 * 60
	return RiskParameters{
		ConfirmationsRequired:       6,
		AdvanceRateBps:              5_000,
		WindowSeconds:               30 * day,
		NewBorrowerPeriodSeconds:    30 * day,
		NewBorrowerCap:              10_000_000_000, // 10,000 units at 6 decimals
		GlobalCap:                   0,
		MinPayoutSats:               10_000,
		BtcPriceUsd:                 50_000 * 1e8,
		MinPayoutCountForFullCredit: 1,
		LargePayoutThresholdSats:    0,
		LargePayoutDiscountBps:      0,
		StablecoinDecimals:          6,
	}
}
