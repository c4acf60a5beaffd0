// Package config loads operator-tunable settings — the RiskParameters
// admin surface, the vault's fixed APR, and the data directory the
// goleveldb-backed stores live in — from an argv-shaped flag set,
// using jessevdk/go-flags the way a node's startup configuration
// normally would. There is no CLI entry point here (RPC/CLI wrappers
// are out of scope per spec.md §1): LoadFromArgs is called directly
// by whatever process embeds the core.
package config

import (
	"github.com/hashcredit/core/internal/riskparams"
	"github.com/jessevdk/go-flags"
)

// RiskParameterFlags mirrors riskparams.RiskParameters plus the
// handful of settings that live outside it (vault APR, data
// directory, oracle chain ID), in the long/short-flag struct-tag
// style the teacher's go.mod carries go-flags for.
type RiskParameterFlags struct {
	DataDir string `long:"datadir" description:"directory for durable checkpoint and credit state"`

	ConfirmationsRequired    uint32 `long:"confirmations" default:"6"`
	AdvanceRateBps           uint32 `long:"advance-rate-bps" default:"5000"`
	WindowSeconds            uint32 `long:"window-seconds" default:"2592000"`
	NewBorrowerPeriodSeconds uint32 `long:"new-borrower-period-seconds" default:"2592000"`
	NewBorrowerCap           uint64 `long:"new-borrower-cap" default:"10000000000"`
	GlobalCap                uint64 `long:"global-cap" default:"0"`
	MinPayoutSats            uint64 `long:"min-payout-sats" default:"10000"`
	BtcPriceUsd              uint64 `long:"btc-price-usd" default:"5000000000000"`

	MinPayoutCountForFullCredit uint64 `long:"min-payout-count-for-full-credit" default:"1"`
	LargePayoutThresholdSats    uint64 `long:"large-payout-threshold-sats" default:"0"`
	LargePayoutDiscountBps      uint32 `long:"large-payout-discount-bps" default:"0"`
	StablecoinDecimals          uint8  `long:"stablecoin-decimals" default:"6"`

	VaultFixedAprBps uint32 `long:"vault-apr-bps" default:"1000"`
	OracleChainID    uint32 `long:"oracle-chain-id" default:"1"`
}

// LoadFromArgs parses an argv-shaped argument list into a
// RiskParameterFlags, returning the derived RiskParameters together
// with the parsed flags, which carry the vault APR, data directory,
// and oracle chain ID.
func LoadFromArgs(args []string) (riskparams.RiskParameters, *RiskParameterFlags, error) {
	var f RiskParameterFlags
	parser := flags.NewParser(&f, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return riskparams.RiskParameters{}, nil, err
	}

	params := riskparams.RiskParameters{
		ConfirmationsRequired:       f.ConfirmationsRequired,
		AdvanceRateBps:              f.AdvanceRateBps,
		WindowSeconds:               f.WindowSeconds,
		NewBorrowerPeriodSeconds:    f.NewBorrowerPeriodSeconds,
		NewBorrowerCap:              f.NewBorrowerCap,
		GlobalCap:                   f.GlobalCap,
		MinPayoutSats:               f.MinPayoutSats,
		BtcPriceUsd:                 f.BtcPriceUsd,
		MinPayoutCountForFullCredit: f.MinPayoutCountForFullCredit,
		LargePayoutThresholdSats:    f.LargePayoutThresholdSats,
		LargePayoutDiscountBps:      f.LargePayoutDiscountBps,
		StablecoinDecimals:          f.StablecoinDecimals,
	}
	if err := params.Validate(); err != nil {
		return riskparams.RiskParameters{}, nil, err
	}
	return params, &f, nil
}
