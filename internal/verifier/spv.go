package verifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/decred/dcrd/lru"
	"github.com/hashcredit/core/internal/btcspv"
	"github.com/hashcredit/core/internal/checkpoint"
	"github.com/hashcredit/core/internal/model"
)

var log = btclog.Disabled

// UseLogger sets the package-level logger for both verifier
// implementations in this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// Evidence-soundness and input-validation sentinel errors for SPV
// verification (spec.md §7, kinds 1 and 2).
var (
	ErrHeaderChainTooShort       = errors.New("spv: header chain shorter than MinConfirmations")
	ErrHeaderChainTooLong        = errors.New("spv: header chain longer than MaxHeaderChain")
	ErrMerkleProofTooLong        = errors.New("spv: merkle proof longer than MaxMerkleDepth")
	ErrTxTooLarge                = errors.New("spv: rawTx longer than MaxTxSize")
	ErrTxBlockIndexOutOfRange    = errors.New("spv: txBlockIndex out of range")
	ErrInvalidCheckpoint         = errors.New("spv: no checkpoint at the claimed height")
	ErrRetargetBoundaryCrossing  = errors.New("spv: header chain crosses a difficulty retarget boundary")
	ErrDifficultyMismatch        = errors.New("spv: header bits do not match the anchoring checkpoint")
	ErrInsufficientWork          = errors.New("spv: header hash does not satisfy its claimed target")
	ErrPrevHashMismatch          = errors.New("spv: header does not link to the prior block hash")
	ErrInsufficientConfirmations = errors.New("spv: fewer than MinConfirmations blocks below tip")
	ErrInvalidMerkleProof        = errors.New("spv: merkle proof does not reach the claimed root")
	ErrUnsupportedScript         = errors.New("spv: output script is neither P2WPKH nor P2PKH")
	ErrBorrowerNotRegistered     = errors.New("spv: borrower has no registered pubkey hash")
	ErrPubkeyHashMismatch        = errors.New("spv: output pubkey hash does not match the registered borrower")
)

// pubkeyHashCacheSize bounds the read-through LRU cache in front of
// the authoritative borrower pubkey-hash map. It is purely a hot-path
// optimization: a cache miss falls through to the authoritative map,
// so eviction never changes a verification result.
const pubkeyHashCacheSize = 4096

// SpvVerifier implements Adapter by validating an SPV proof envelope
// against a CheckpointStore, per spec.md §4.3. It holds per-borrower
// pubkey-hash bindings because those are verifier-specific, not
// because SpvVerifier tracks payout replay (it does not).
type SpvVerifier struct {
	mu         sync.RWMutex
	checkpoint *checkpoint.Store
	pubkeyHash map[model.Borrower][20]byte
	cache      *lru.Map[model.Borrower, [20]byte]
}

// NewSpvVerifier constructs a verifier anchored on the given
// checkpoint store.
func NewSpvVerifier(store *checkpoint.Store) *SpvVerifier {
	return &SpvVerifier{
		checkpoint: store,
		pubkeyHash: make(map[model.Borrower][20]byte),
		cache:      lru.NewMap[model.Borrower, [20]byte](pubkeyHashCacheSize),
	}
}

// SetBorrowerPubkeyHash records the 20-byte pubkey hash a borrower's
// registered Bitcoin payout script must commit to. Admin-only by
// convention of the caller; this package does not itself enforce
// authorization.
func (v *SpvVerifier) SetBorrowerPubkeyHash(borrower model.Borrower, hash [20]byte) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.pubkeyHash[borrower] = hash
	v.cache.Put(borrower, hash)
}

// GetBorrowerPubkeyHash returns the pubkey hash registered for
// borrower, or the zero hash if none is registered.
func (v *SpvVerifier) GetBorrowerPubkeyHash(borrower model.Borrower) [20]byte {
	if hash, ok := v.cache.Get(borrower); ok {
		return hash
	}

	v.mu.RLock()
	hash := v.pubkeyHash[borrower]
	v.mu.RUnlock()

	v.cache.Put(borrower, hash)
	return hash
}

// EncodeProof serializes an SpvProof to the byte envelope VerifyPayout
// expects. Encoding is JSON, matching the wire-payload convention the
// teacher's liquidity package uses for attestor request/response
// bodies; exact serialization is left to the implementer per spec.md
// §6 provided the §3 field widths are preserved.
func EncodeProof(p model.SpvProof) ([]byte, error) {
	return json.Marshal(p)
}

// VerifyPayout implements spec.md §4.3's nine-step algorithm. It has
// no wall-clock timeout: freshness is enforced structurally by
// MinConfirmations and checkpoint recency, not by a deadline (unlike
// SignedOracleVerifier). It does not accept testnet-style
// reduced-difficulty headers; every header must carry exactly the
// anchoring checkpoint's bits.
func (v *SpvVerifier) VerifyPayout(proofBytes []byte) (model.PayoutEvidence, error) {
	var proof model.SpvProof
	if err := json.Unmarshal(proofBytes, &proof); err != nil {
		return model.PayoutEvidence{}, fmt.Errorf("spv: decode proof: %w", err)
	}

	// Step 1: structural bounds.
	if len(proof.Headers) < btcspv.MinConfirmations {
		return model.PayoutEvidence{}, ErrHeaderChainTooShort
	}
	if len(proof.Headers) > btcspv.MaxHeaderChain {
		return model.PayoutEvidence{}, ErrHeaderChainTooLong
	}
	if len(proof.MerkleProof) > btcspv.MaxMerkleDepth {
		return model.PayoutEvidence{}, ErrMerkleProofTooLong
	}
	if len(proof.RawTx) == 0 || len(proof.RawTx) > btcspv.MaxTxSize {
		return model.PayoutEvidence{}, ErrTxTooLarge
	}
	if proof.TxBlockIndex >= uint32(len(proof.Headers)) {
		return model.PayoutEvidence{}, ErrTxBlockIndexOutOfRange
	}

	// Step 2: look up the anchoring checkpoint.
	cp, err := v.checkpoint.Get(proof.CheckpointHeight)
	if err != nil {
		return model.PayoutEvidence{}, fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}

	// Step 3: epoch confinement (P3).
	targetHeight := proof.CheckpointHeight + uint32(len(proof.Headers))
	if proof.CheckpointHeight/btcspv.RetargetInterval != targetHeight/btcspv.RetargetInterval {
		return model.PayoutEvidence{}, ErrRetargetBoundaryCrossing
	}

	// Step 4: walk the header chain from the checkpoint.
	prior := cp.BlockHash
	var txBlockMerkleRoot [32]byte
	var txBlockTimestamp uint32
	for i, raw := range proof.Headers {
		h, err := btcspv.ParseHeader(raw)
		if err != nil {
			return model.PayoutEvidence{}, err
		}
		if h.PrevHash != [32]byte(prior) {
			return model.PayoutEvidence{}, fmt.Errorf("%w at index %d", ErrPrevHashMismatch, i)
		}
		if h.Bits != cp.Bits {
			return model.PayoutEvidence{}, fmt.Errorf("%w at index %d: want %08x got %08x", ErrDifficultyMismatch, i, cp.Bits, h.Bits)
		}

		headerHash := btcspv.HashHeader(raw)
		target := btcspv.BitsToTarget(h.Bits)
		if !btcspv.WorkBelowOrEqualTarget(headerHash, target) {
			return model.PayoutEvidence{}, fmt.Errorf("%w at index %d", ErrInsufficientWork, i)
		}

		if uint32(i) == proof.TxBlockIndex {
			txBlockMerkleRoot = h.MerkleRoot
			txBlockTimestamp = h.Timestamp
		}

		prior = model.Hash(headerHash)
	}

	// Step 5: confirmation depth (P6).
	depth := uint32(len(proof.Headers)) - proof.TxBlockIndex
	if depth < btcspv.MinConfirmations {
		return model.PayoutEvidence{}, ErrInsufficientConfirmations
	}
	blockHeight := proof.CheckpointHeight + 1 + proof.TxBlockIndex

	// Step 6: merkle inclusion.
	txid := btcspv.Sha256d(proof.RawTx)
	siblings := make([][32]byte, len(proof.MerkleProof))
	for i, s := range proof.MerkleProof {
		siblings[i] = [32]byte(s)
	}
	if !btcspv.VerifyMerkleProof(txid, txBlockMerkleRoot, siblings, proof.TxIndex) {
		return model.PayoutEvidence{}, ErrInvalidMerkleProof
	}

	// Step 7: locate the named output.
	out, err := btcspv.ParseTxOutputAt(proof.RawTx, proof.OutputIndex)
	if err != nil {
		return model.PayoutEvidence{}, fmt.Errorf("spv: locate output: %w", err)
	}

	// Step 8: script must commit to the registered borrower.
	hash, scriptType := btcspv.ExtractPubkeyHash(out.Script)
	if scriptType == btcspv.ScriptUnsupported {
		return model.PayoutEvidence{}, ErrUnsupportedScript
	}

	registered := v.GetBorrowerPubkeyHash(proof.Borrower)
	var zero [20]byte
	if registered == zero {
		return model.PayoutEvidence{}, ErrBorrowerNotRegistered
	}
	if hash != registered {
		return model.PayoutEvidence{}, ErrPubkeyHashMismatch
	}

	// Step 9: emit evidence.
	evidence := model.PayoutEvidence{
		Borrower:       proof.Borrower,
		Txid:           model.Hash(txid),
		Vout:           proof.OutputIndex,
		AmountSats:     out.ValueSats,
		BlockHeight:    blockHeight,
		BlockTimestamp: txBlockTimestamp,
	}
	log.Debugf("spv proof verified for borrower %x: %d sats at height %d", proof.Borrower, evidence.AmountSats, blockHeight)
	return evidence, nil
}
