package verifier

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/hashcredit/core/internal/model"
)

// Sentinel errors for SignedOracleVerifier (spec.md §4.4, §7).
var (
	ErrDeadlineExpired  = errors.New("oracle: payload deadline has passed")
	ErrInvalidSignature = errors.New("oracle: signature does not recover to the authorized signer")
)

// OraclePayload is the typed-data message an authorized relayer
// signs, matching PayoutEvidence's fields plus a deadline (spec.md
// §4.4).
type OraclePayload struct {
	Borrower       model.Borrower `json:"borrower"`
	Txid           model.Hash     `json:"txid"`
	Vout           uint32         `json:"vout"`
	AmountSats     uint64         `json:"amountSats"`
	BlockHeight    uint32         `json:"blockHeight"`
	BlockTimestamp uint32         `json:"blockTimestamp"`
	Deadline       uint32         `json:"deadline"`
}

// SignedOraclePayout is the full envelope: payload plus a
// DER-encoded signature over its typed-data hash, and the current
// time the relayer claims (used only to check the deadline — the
// oracle verifier has no independent clock of its own).
type SignedOraclePayout struct {
	Payload   OraclePayload `json:"payload"`
	Signature []byte        `json:"signature"`
	Now       uint32        `json:"now"`
}

// SignedOracleVerifier implements Adapter by verifying the signature
// on a typed-data message against a configured authorized signer's
// public key. It is the MVP/fallback VerifierAdapter: a single
// trusted relayer stands in for the full SPV proof chain. Stateless
// with respect to replay, same as SpvVerifier.
//
// Grounded on liquidity/attestor.go's verifyAttestorSignature /
// hashResponseData flow, generalized from market-making attestations
// to payout attestations and from a set of weighted attestors to a
// single configured signer.
type SignedOracleVerifier struct {
	mu               sync.RWMutex
	chainID          uint32
	authorizedSigner *btcec.PublicKey
}

// NewSignedOracleVerifier constructs a verifier bound to chainID (the
// typed-data domain separator that prevents cross-chain replay) and
// an initially configured authorized signer.
func NewSignedOracleVerifier(chainID uint32, authorizedSigner *btcec.PublicKey) *SignedOracleVerifier {
	return &SignedOracleVerifier{chainID: chainID, authorizedSigner: authorizedSigner}
}

// SetAuthorizedSigner replaces the signer whose signatures are
// accepted. Admin-only by convention of the caller.
func (v *SignedOracleVerifier) SetAuthorizedSigner(signer *btcec.PublicKey) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.authorizedSigner = signer
}

// typedDataHash binds the chain identifier to the payload fields,
// exactly as liquidity/attestor.go's hashResponseData concatenates
// fixed-width fields before hashing, so a signature produced for one
// chain cannot be replayed on another. Delegates the digest itself to
// chainhash.DoubleHashB rather than btcspv.Sha256d, since this hash
// never enters a Header/merkle structure and is consumed immediately
// as a byte slice by ecdsa.Verify.
func typedDataHash(chainID uint32, p OraclePayload) []byte {
	buf := make([]byte, 0, 4+20+32+4+8+4+4+4)

	var chainBuf [4]byte
	binary.BigEndian.PutUint32(chainBuf[:], chainID)
	buf = append(buf, chainBuf[:]...)
	buf = append(buf, p.Borrower[:]...)
	buf = append(buf, p.Txid[:]...)

	var field [8]byte
	binary.BigEndian.PutUint32(field[:4], p.Vout)
	buf = append(buf, field[:4]...)

	binary.BigEndian.PutUint64(field[:], p.AmountSats)
	buf = append(buf, field[:]...)

	binary.BigEndian.PutUint32(field[:4], p.BlockHeight)
	buf = append(buf, field[:4]...)
	binary.BigEndian.PutUint32(field[:4], p.BlockTimestamp)
	buf = append(buf, field[:4]...)
	binary.BigEndian.PutUint32(field[:4], p.Deadline)
	buf = append(buf, field[:4]...)

	return chainhash.DoubleHashB(buf)
}

// EncodeOraclePayout serializes a SignedOraclePayout to the byte
// envelope VerifyPayout expects.
func EncodeOraclePayout(p SignedOraclePayout) ([]byte, error) {
	return json.Marshal(p)
}

// VerifyPayout verifies the signature over the typed-data hash against
// the configured authorized signer's public key and accepts iff it is
// valid and the payload's deadline has not passed.
func (v *SignedOracleVerifier) VerifyPayout(proofBytes []byte) (model.PayoutEvidence, error) {
	var envelope SignedOraclePayout
	if err := json.Unmarshal(proofBytes, &envelope); err != nil {
		return model.PayoutEvidence{}, fmt.Errorf("oracle: decode proof: %w", err)
	}

	if envelope.Payload.Deadline < envelope.Now {
		return model.PayoutEvidence{}, ErrDeadlineExpired
	}

	signature, err := ecdsa.ParseSignature(envelope.Signature)
	if err != nil {
		return model.PayoutEvidence{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	hash := typedDataHash(v.chainID, envelope.Payload)

	v.mu.RLock()
	authorized := v.authorizedSigner
	v.mu.RUnlock()

	if authorized == nil || !signature.Verify(hash, authorized) {
		return model.PayoutEvidence{}, ErrInvalidSignature
	}

	return model.PayoutEvidence{
		Borrower:       envelope.Payload.Borrower,
		Txid:           envelope.Payload.Txid,
		Vout:           envelope.Payload.Vout,
		AmountSats:     envelope.Payload.AmountSats,
		BlockHeight:    envelope.Payload.BlockHeight,
		BlockTimestamp: envelope.Payload.BlockTimestamp,
	}, nil
}
