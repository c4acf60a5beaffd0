// Package vault implements LiquidityVault: a share-accounted,
// single-asset pool with fixed-APR interest accrual that exposes
// deposit/withdraw to LPs and borrow/repay-on-behalf only to the
// configured CreditManager, per spec.md §4.6.
//
// Grounded on settlement/channels/channel.go's single-ledger-owner
// balance accounting (here generalized from payment-channel balances
// to LP share accounting) and settlement/iso20022/bridge.go's
// external-asset bridge pattern (generalized into AssetToken).
package vault

import (
	"errors"
	"math/big"
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/hashcredit/core/internal/eventlog"
	"github.com/hashcredit/core/internal/model"
	"github.com/hashcredit/core/internal/reentry"
)

var log = btclog.Disabled

// UseLogger sets the package-level logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// SecondsPerYear is the divisor spec.md's interest formulas use
// throughout (365 * 86400, no leap-year adjustment).
const SecondsPerYear = 365 * 86400

// Sentinel errors (spec.md §7, kind 3).
var (
	ErrInsufficientLiquidity = errors.New("vault: insufficient liquid balance")
	ErrInsufficientShares    = errors.New("vault: insufficient shares")
	ErrUnauthorized          = errors.New("vault: caller is not the configured manager")
	ErrZeroAmount            = errors.New("vault: amount must be non-zero")
	ErrZeroShares            = errors.New("vault: shares must be non-zero")
)

// Vault is the LiquidityVault. The zero value is not usable; construct
// with New.
type Vault struct {
	mu    sync.Mutex
	guard reentry.Guard
	sink  *eventlog.Sink

	asset   AssetToken
	state   model.VaultState
	manager string // authorized CreditManager caller identity
	owner   string
}

// New constructs a Vault over asset, owned by owner, with the given
// fixed borrow APR (basis points).
func New(asset AssetToken, owner string, fixedAprBps uint32, now uint32) *Vault {
	return &Vault{
		asset: asset,
		state: model.VaultState{
			SharesOf:             make(map[string]uint64),
			FixedBorrowAprBps:    fixedAprBps,
			LastAccrualTimestamp: now,
		},
		owner: owner,
	}
}

// SetSink attaches an event sink.
func (v *Vault) SetSink(sink *eventlog.Sink) { v.sink = sink }

// SetManager designates the only caller authorized to invoke
// BorrowFunds/RepayFunds. Admin-only by convention of the caller.
func (v *Vault) SetManager(manager string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.manager = manager
}

// SetFixedAPR updates the fixed borrow APR in basis points. Admin-only
// by convention of the caller.
func (v *Vault) SetFixedAPR(bps uint32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.FixedBorrowAprBps = bps
}

// TransferOwnership reassigns the admin identity.
func (v *Vault) TransferOwnership(newOwner string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.owner = newOwner
}

// accrueLocked applies lazy interest accrual up through now. Callers
// must hold v.mu.
func (v *Vault) accrueLocked(now uint32) {
	delta := pendingInterest(v.state.TotalBorrowed, v.state.FixedBorrowAprBps, v.state.LastAccrualTimestamp, now)
	v.state.AccumulatedInterest += delta
	v.state.LastAccrualTimestamp = now
}

// pendingInterest computes totalBorrowed * aprBps * (now-since) /
// (10_000 * SecondsPerYear) in a wide integer type to avoid overflow,
// per spec.md §9's "wide integer type" note.
func pendingInterest(totalBorrowed uint64, aprBps uint32, since, now uint32) uint64 {
	if now <= since || totalBorrowed == 0 || aprBps == 0 {
		return 0
	}
	elapsed := uint64(now - since)

	num := new(big.Int).SetUint64(totalBorrowed)
	num.Mul(num, big.NewInt(int64(aprBps)))
	num.Mul(num, new(big.Int).SetUint64(elapsed))

	den := big.NewInt(int64(10_000) * SecondsPerYear)
	num.Div(num, den)
	return num.Uint64()
}

// totalAssetsLocked returns the vault's total asset value as of now:
// cash on hand, plus outstanding principal, plus interest already
// booked, plus interest that would accrue between the last accrual
// and now if accrueLocked were called right now. Callers must hold
// v.mu.
func (v *Vault) totalAssetsLocked(now uint32) uint64 {
	pending := pendingInterest(v.state.TotalBorrowed, v.state.FixedBorrowAprBps, v.state.LastAccrualTimestamp, now)
	return v.state.CashBalance + v.state.TotalBorrowed + v.state.AccumulatedInterest + pending
}

// TotalAssets is the public, non-mutating form of the totalAssets()
// identity from spec.md §4.6.
func (v *Vault) TotalAssets(now uint32) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.totalAssetsLocked(now)
}

// SharesOf returns holder's current share balance.
func (v *Vault) SharesOf(holder string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.SharesOf[holder]
}

// TotalShares returns the sum of all outstanding shares.
func (v *Vault) TotalShares() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.TotalShares
}

// Deposit pulls amount of the vault's asset from lp and mints shares
// such that lp's post-deposit claim on assets equals their
// contribution (1:1 for the very first deposit), per spec.md §4.6 and
// the P7 ownership invariant.
func (v *Vault) Deposit(lp string, amount uint64, now uint32) (uint64, error) {
	if err := v.guard.Enter(); err != nil {
		return 0, err
	}
	defer v.guard.Exit()

	if amount == 0 {
		return 0, ErrZeroAmount
	}

	v.mu.Lock()
	v.accrueLocked(now)
	assetsBefore := v.totalAssetsLocked(now)
	var shares uint64
	if v.state.TotalShares == 0 || assetsBefore == 0 {
		shares = amount
	} else {
		shares = mulDiv(amount, v.state.TotalShares, assetsBefore)
	}
	v.mu.Unlock()

	// Inbound pull happens before the state mutation: an in-memory
	// LedgerAsset never calls back into the vault, so there is no
	// reentrancy hazard in pulling first, and a failed pull leaves no
	// state to unwind.
	if err := v.asset.TransferFrom(lp, vaultAccount, amount); err != nil {
		return 0, err
	}

	v.mu.Lock()
	v.state.CashBalance += amount
	v.state.SharesOf[lp] += shares
	v.state.TotalShares += shares
	v.mu.Unlock()

	v.emit("Deposited", map[string]any{"lp": lp, "amount": amount, "shares": shares})
	log.Debugf("deposit: lp=%s amount=%d shares=%d", lp, amount, shares)
	return shares, nil
}

// Withdraw burns shares and pushes out the proportional share of
// assets, failing ErrInsufficientShares or ErrInsufficientLiquidity
// per spec.md §4.6.
func (v *Vault) Withdraw(lp string, shares uint64, now uint32) (uint64, error) {
	if err := v.guard.Enter(); err != nil {
		return 0, err
	}
	defer v.guard.Exit()

	if shares == 0 {
		return 0, ErrZeroShares
	}

	v.mu.Lock()
	v.accrueLocked(now)

	if v.state.SharesOf[lp] < shares {
		v.mu.Unlock()
		return 0, ErrInsufficientShares
	}

	assets := v.totalAssetsLocked(now)
	amount := mulDiv(shares, assets, v.state.TotalShares)

	if v.state.CashBalance < amount {
		v.mu.Unlock()
		return 0, ErrInsufficientLiquidity
	}

	v.state.SharesOf[lp] -= shares
	v.state.TotalShares -= shares
	v.state.CashBalance -= amount
	v.mu.Unlock()

	if err := v.asset.Transfer(lp, amount); err != nil {
		return 0, err
	}

	v.emit("Withdrawn", map[string]any{"lp": lp, "amount": amount, "shares": shares})
	return amount, nil
}

// BorrowFunds lends amount to borrower on behalf of the configured
// CreditManager (identified by callerID). Manager-only.
func (v *Vault) BorrowFunds(callerID, borrower string, amount uint64, now uint32) error {
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()

	v.mu.Lock()
	if callerID != v.manager {
		v.mu.Unlock()
		return ErrUnauthorized
	}
	if amount == 0 {
		v.mu.Unlock()
		return ErrZeroAmount
	}

	v.accrueLocked(now)
	if v.state.CashBalance < amount {
		v.mu.Unlock()
		return ErrInsufficientLiquidity
	}

	v.state.CashBalance -= amount
	v.state.TotalBorrowed += amount
	v.mu.Unlock()

	if err := v.asset.Transfer(borrower, amount); err != nil {
		return err
	}

	v.emit("FundsBorrowed", map[string]any{"borrower": borrower, "amount": amount})
	return nil
}

// RepayFunds pulls amount from the configured CreditManager (which has
// already pulled it from the borrower) and applies it first to
// accumulated interest, then to outstanding principal, clamped at
// totalBorrowed. Manager-only.
func (v *Vault) RepayFunds(callerID string, amount uint64, now uint32) error {
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()

	v.mu.Lock()
	if callerID != v.manager {
		v.mu.Unlock()
		return ErrUnauthorized
	}
	if amount == 0 {
		v.mu.Unlock()
		return ErrZeroAmount
	}
	v.mu.Unlock()

	if err := v.asset.TransferFrom(callerID, vaultAccount, amount); err != nil {
		return err
	}

	v.mu.Lock()
	v.accrueLocked(now)

	interestPortion := amount
	if interestPortion > v.state.AccumulatedInterest {
		interestPortion = v.state.AccumulatedInterest
	}
	v.state.AccumulatedInterest -= interestPortion

	principalPortion := amount - interestPortion
	if principalPortion > v.state.TotalBorrowed {
		principalPortion = v.state.TotalBorrowed
	}
	v.state.TotalBorrowed -= principalPortion

	v.state.CashBalance += amount
	v.mu.Unlock()

	v.emit("FundsRepaid", map[string]any{"amount": amount, "interestPortion": interestPortion, "principalPortion": principalPortion})
	return nil
}

// BorrowAprBps returns the vault's current fixed borrow APR in basis
// points, read by the CreditManager's interest formula.
func (v *Vault) BorrowAprBps() uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.FixedBorrowAprBps
}

func (v *Vault) emit(name string, fields map[string]any) {
	if v.sink != nil {
		v.sink.Emit(name, fields)
	}
}

// mulDiv computes a*b/den using a wide integer type to avoid uint64
// overflow on the intermediate product.
func mulDiv(a, b, den uint64) uint64 {
	if den == 0 {
		return 0
	}
	num := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	num.Div(num, new(big.Int).SetUint64(den))
	return num.Uint64()
}
