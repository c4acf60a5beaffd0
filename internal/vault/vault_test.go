package vault

import (
	"testing"

	"github.com/hashcredit/core/internal/eventlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const managerID = "credit-manager"

func newTestVault(t *testing.T, now uint32) (*Vault, *LedgerAsset) {
	t.Helper()
	asset := NewLedgerAsset()
	v := New(asset, "admin", 1000, now) // 10% fixed APR
	v.SetManager(managerID)
	v.SetSink(eventlog.New())
	return v, asset
}

func TestFirstDepositMintsOneToOne(t *testing.T) {
	v, asset := newTestVault(t, 1_000)
	asset.Credit("lp1", 10_000)

	shares, err := v.Deposit("lp1", 10_000, 1_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), shares)
	assert.Equal(t, uint64(10_000), v.TotalShares())
	assert.Equal(t, uint64(10_000), v.TotalAssets(1_000))
}

func TestWithdrawInsufficientSharesRejected(t *testing.T) {
	v, asset := newTestVault(t, 1_000)
	asset.Credit("lp1", 10_000)
	_, err := v.Deposit("lp1", 10_000, 1_000)
	require.NoError(t, err)

	_, err = v.Withdraw("lp1", 10_001, 1_000)
	assert.ErrorIs(t, err, ErrInsufficientShares)
}

func TestWithdrawInsufficientLiquidityRejected(t *testing.T) {
	v, asset := newTestVault(t, 1_000)
	asset.Credit("lp1", 10_000)
	_, err := v.Deposit("lp1", 10_000, 1_000)
	require.NoError(t, err)

	require.NoError(t, v.BorrowFunds(managerID, "borrower1", 10_000, 1_000))

	_, err = v.Withdraw("lp1", 5_000, 1_000)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestBorrowFundsUnauthorizedRejected(t *testing.T) {
	v, asset := newTestVault(t, 1_000)
	asset.Credit("lp1", 10_000)
	_, err := v.Deposit("lp1", 10_000, 1_000)
	require.NoError(t, err)

	err = v.BorrowFunds("not-the-manager", "borrower1", 1_000, 1_000)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

// TestShareOwnershipInvariant is property P7: the sum of all holders'
// shares always equals TotalShares, across deposits, a borrow/repay
// cycle that changes the share price, and a withdrawal.
func TestShareOwnershipInvariant(t *testing.T) {
	v, asset := newTestVault(t, 0)
	asset.Credit("lp1", 100_000)
	asset.Credit("lp2", 50_000)
	asset.Credit(managerID, 1_000_000)

	_, err := v.Deposit("lp1", 100_000, 0)
	require.NoError(t, err)

	require.NoError(t, v.BorrowFunds(managerID, "borrower1", 40_000, 0))

	oneYear := uint32(SecondsPerYear)
	require.NoError(t, v.RepayFunds(managerID, 44_000, oneYear)) // 40_000 principal + 4_000 interest (10% APR)

	shares2, err := v.Deposit("lp2", 50_000, oneYear)
	require.NoError(t, err)
	assert.Greater(t, shares2, uint64(0))

	sum := v.SharesOf("lp1") + v.SharesOf("lp2")
	assert.Equal(t, v.TotalShares(), sum)

	_, err = v.Withdraw("lp1", v.SharesOf("lp1")/2, oneYear)
	require.NoError(t, err)

	sum = v.SharesOf("lp1") + v.SharesOf("lp2")
	assert.Equal(t, v.TotalShares(), sum)
}

// TestShareDilutionSafety is scenario S6: a second LP depositing after
// the vault has accrued interest must receive fewer shares per unit of
// the asset than the first LP did, because the share price has risen,
// and the first LP's redeemable value must reflect the accrued
// interest without any loss to dilution.
func TestShareDilutionSafety(t *testing.T) {
	v, asset := newTestVault(t, 0)
	asset.Credit("lp1", 100_000)
	asset.Credit(managerID, 1_000_000)

	shares1, err := v.Deposit("lp1", 100_000, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(100_000), shares1)

	require.NoError(t, v.BorrowFunds(managerID, "borrower1", 100_000, 0))

	oneYear := uint32(SecondsPerYear)
	// 10% APR for one year on 100_000 borrowed accrues 10_000 interest,
	// lazily, without any explicit accrue call from the test.
	assetsBeforeSecondDeposit := v.TotalAssets(oneYear)
	assert.Equal(t, uint64(110_000), assetsBeforeSecondDeposit)

	asset.Credit("lp2", 110_000)
	shares2, err := v.Deposit("lp2", 110_000, oneYear)
	require.NoError(t, err)

	// lp2 contributed the same value lp1's entire stake is now worth,
	// so lp2 must receive the same share count lp1 originally holds —
	// never more, regardless of deposit ordering.
	assert.Equal(t, shares1, shares2)

	require.NoError(t, v.RepayFunds(managerID, 110_000, oneYear))

	redeemed1, err := v.Withdraw("lp1", shares1, oneYear)
	require.NoError(t, err)
	assert.Equal(t, uint64(110_000), redeemed1)

	redeemed2, err := v.Withdraw("lp2", shares2, oneYear)
	require.NoError(t, err)
	assert.Equal(t, uint64(110_000), redeemed2)
}

func TestRepayFundsAppliesInterestBeforePrincipal(t *testing.T) {
	v, asset := newTestVault(t, 0)
	asset.Credit("lp1", 100_000)
	asset.Credit(managerID, 1_000_000)

	shares, err := v.Deposit("lp1", 100_000, 0)
	require.NoError(t, err)
	require.NoError(t, v.BorrowFunds(managerID, "borrower1", 100_000, 0))

	oneYear := uint32(SecondsPerYear)
	// 10_000 interest has accrued; a partial repayment must not destroy
	// or create value, only move it from the borrower side to cash.
	require.NoError(t, v.RepayFunds(managerID, 5_000, oneYear))
	assert.Equal(t, uint64(110_000), v.TotalAssets(oneYear))
	// The whole 5_000 went to interest; principal is untouched.
	assert.Equal(t, uint64(5_000), v.state.AccumulatedInterest)
	assert.Equal(t, uint64(100_000), v.state.TotalBorrowed)

	// The remaining 5_000 interest plus the full 100_000 principal
	// clears the debt entirely.
	require.NoError(t, v.RepayFunds(managerID, 105_000, oneYear))
	assert.Equal(t, uint64(110_000), v.TotalAssets(oneYear))

	redeemed, err := v.Withdraw("lp1", shares, oneYear)
	require.NoError(t, err)
	assert.Equal(t, uint64(110_000), redeemed)
}
