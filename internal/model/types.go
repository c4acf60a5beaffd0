// Package model holds the entities shared across HashCredit's core
// components: checkpoints, payout evidence, SPV proof envelopes, and
// borrower bookkeeping records.
package model

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// Borrower identifies a registered account. It is opaque to the core;
// verifier adapters and the credit manager agree on its meaning only
// through the registration calls they each expose.
type Borrower [20]byte

// Hash reuses chainhash.Hash, the same 32-byte sha256d digest type the
// rest of the pack standardizes on, rather than a redundant local
// array type. Values are stored and compared in internal (raw sha256d)
// byte order; display-order conversion happens only at the external
// boundary, never inside the core.
type Hash = chainhash.Hash

// Checkpoint anchors a Bitcoin block height to a block hash and the
// difficulty target in force for that height's epoch.
type Checkpoint struct {
	Height     uint32
	BlockHash  Hash
	ChainWork  [32]byte // 256-bit cumulative work, informational
	Timestamp  uint32
	Bits       uint32
}

// PayoutEvidence is the normalized output of any VerifierAdapter: a
// claim that a specific transaction output paid a specific borrower.
type PayoutEvidence struct {
	Borrower       Borrower
	Txid           Hash
	Vout           uint32
	AmountSats     uint64
	BlockHeight    uint32
	BlockTimestamp uint32
}

// PayoutKey is the replay-identity of a payout: (txid, vout).
type PayoutKey struct {
	Txid Hash
	Vout uint32
}

// SpvProof is the envelope a prover submits to SpvVerifier.VerifyPayout.
type SpvProof struct {
	CheckpointHeight uint32
	Headers          [][]byte // 80-byte raw headers, checkpointHeight+1 .. tip
	TxBlockIndex     uint32
	RawTx            []byte
	MerkleProof      []Hash
	TxIndex          uint32
	OutputIndex      uint32
	Borrower         Borrower
}

// BorrowerStatus is the lifecycle state of a registered borrower.
type BorrowerStatus int

const (
	StatusUnregistered BorrowerStatus = iota
	StatusActive
	StatusFrozen
)

func (s BorrowerStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusFrozen:
		return "frozen"
	default:
		return "unregistered"
	}
}

// PayoutRecord is one entry in a borrower's bounded payout history.
type PayoutRecord struct {
	TxidKey             Hash
	Vout                uint32
	EffectiveAmountSats uint64
	Timestamp           uint32
}

// BorrowerRecord is the manager's view of a single borrower's credit
// state. The credit manager is the exclusive mutator of this type and
// of the PayoutHistory ring it carries.
type BorrowerRecord struct {
	Status                  BorrowerStatus
	BtcPayoutKeyHash        Hash
	TotalRevenueSats        uint64
	TrailingRevenueSats     uint64
	CreditLimit             uint64
	CurrentDebt             uint64
	AccruedInterestSats     uint64 // interest booked but not yet capitalized/paid
	LastDebtUpdateTimestamp uint32
	CreatedAt               uint32
	PayoutCount             uint64
	PayoutHistory           []PayoutRecord
}

// VaultState is the LiquidityVault's accounting ledger. The vault is
// the exclusive mutator of this type.
type VaultState struct {
	Asset                string
	TotalShares          uint64
	SharesOf             map[string]uint64
	TotalBorrowed        uint64
	AccumulatedInterest  uint64
	LastAccrualTimestamp uint32
	FixedBorrowAprBps    uint32
	CashBalance          uint64 // asset units held directly by the vault
}
