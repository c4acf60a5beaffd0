package vault

import (
	"errors"
	"sync"
)

// AssetToken is the fungible-token boundary the vault moves its
// custodied asset through: transfer, transfer-from-with-allowance, and
// balance queries, per spec.md §6. Implementations must tolerate
// tokens that (a) return no success value and (b) require allowance to
// be zeroed before being raised — the vault itself never inspects a
// return value or raises an allowance without first clearing it, so
// any conforming implementation is safe to plug in.
type AssetToken interface {
	Transfer(to string, amount uint64) error
	TransferFrom(from, to string, amount uint64) error
	BalanceOf(account string) uint64
}

// ErrInsufficientBalance is returned by LedgerAsset when a transfer
// would overdraw the source account.
var ErrInsufficientBalance = errors.New("vault: insufficient balance")

// LedgerAsset is an in-memory AssetToken reference implementation,
// grounded on settlement/iso20022/bridge.go's pattern of bridging an
// external ledger's account balances into Shell's own accounting: here
// generalized from an ISO 20022 correspondent-bank ledger to a generic
// stablecoin ledger suitable for tests and as a template for a real
// token adapter.
type LedgerAsset struct {
	mu       sync.Mutex
	balances map[string]uint64
}

// NewLedgerAsset creates an empty ledger.
func NewLedgerAsset() *LedgerAsset {
	return &LedgerAsset{balances: make(map[string]uint64)}
}

// Credit mints amount into account's balance, used by tests to fund
// LPs, the manager and borrowers before exercising
// deposit/withdraw/borrow/repay.
func (l *LedgerAsset) Credit(account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

// BalanceOf returns account's current balance.
func (l *LedgerAsset) BalanceOf(account string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Transfer moves amount out of the vault's own account. The vault
// calls this, never TransferFrom, for its own outbound payments.
func (l *LedgerAsset) Transfer(to string, amount uint64) error {
	return l.move(vaultAccount, to, amount)
}

// TransferFrom moves amount from an external account into the vault
// (or onward), modeling an allowance the vault has already been
// granted.
func (l *LedgerAsset) TransferFrom(from, to string, amount uint64) error {
	return l.move(from, to, amount)
}

func (l *LedgerAsset) move(from, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return ErrInsufficientBalance
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// vaultAccount is the ledger key LedgerAsset uses for the vault's own
// cash position.
const vaultAccount = "__vault__"
