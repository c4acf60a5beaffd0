// Package btcspv implements the pure Bitcoin primitives the SPV
// verifier builds on: double-SHA256, compact-target decoding, header
// parsing, CompactSize varint reading, script pubkey-hash extraction,
// and merkle branch verification. Every function here is stateless and
// allocation-light, following the shape of the teacher's
// blockchain/merkle.go (branch hashing, built on chainhash.Hash /
// chainhash.DoubleHashRaw) and the standard CompactToBig algorithm
// demonstrated in EXCCoin-exccd's standalone package.
//
// All hashes in this package are internal (raw sha256d) byte order.
// Conversion to or from Bitcoin's conventional display order is a
// responsibility of the external prover, never performed here.
package btcspv

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Protocol-level structural bounds from spec.md §4.3.
const (
	MinConfirmations = 6
	MaxHeaderChain   = 144
	MaxMerkleDepth   = 20
	MaxTxSize        = 4096

	// HeaderSize is the fixed width of a serialized Bitcoin block
	// header.
	HeaderSize = 80

	// RetargetInterval is the number of blocks sharing one difficulty
	// epoch.
	RetargetInterval = 2016
)

// Sentinel errors for input-validation failures (spec.md §7, kind 1).
var (
	ErrInvalidHeaderSize = errors.New("btcspv: header is not 80 bytes")
)

// Sha256d returns sha256(sha256(b)), Bitcoin's canonical double hash,
// delegating to chainhash.DoubleHashH rather than re-deriving the
// double-SHA256 construction from crypto/sha256 in-house.
func Sha256d(b []byte) [32]byte {
	return chainhash.DoubleHashH(b)
}

// BitsToTarget decodes the 32-bit compact "bits" representation into a
// 256-bit target using Bitcoin's standard rule: the low 23 bits are
// the mantissa, bit 23 is the sign, and the high byte is the byte-wise
// exponent. An exponent of 3 or less right-shifts the mantissa;
// anything larger left-shifts it by 8*(exponent-3). A set sign bit
// yields a negative (hence never-satisfiable) target.
func BitsToTarget(bits uint32) *big.Int {
	exponent := bits >> 24
	mantissa := bits & 0x007fffff
	negative := bits&0x00800000 != 0

	target := new(big.Int)
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		target.SetUint64(uint64(mantissa))
	} else {
		target.SetUint64(uint64(mantissa))
		target.Lsh(target, uint(8*(exponent-3)))
	}

	if negative && target.Sign() != 0 {
		target.Neg(target)
	}
	return target
}

// Header is a parsed 80-byte Bitcoin block header. PrevHash and
// MerkleRoot are in internal byte order.
type Header struct {
	Version    int32
	PrevHash   [32]byte
	MerkleRoot [32]byte
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

// ParseHeader decodes an 80-byte raw header. It fails with
// ErrInvalidHeaderSize if raw is not exactly HeaderSize bytes.
func ParseHeader(raw []byte) (Header, error) {
	if len(raw) != HeaderSize {
		return Header{}, fmt.Errorf("%w: got %d bytes", ErrInvalidHeaderSize, len(raw))
	}

	var h Header
	h.Version = int32(leUint32(raw[0:4]))
	copy(h.PrevHash[:], raw[4:36])
	copy(h.MerkleRoot[:], raw[36:68])
	h.Timestamp = leUint32(raw[68:72])
	h.Bits = leUint32(raw[72:76])
	h.Nonce = leUint32(raw[76:80])
	return h, nil
}

// HashHeader returns sha256d(raw) interpreted as the block hash in
// internal byte order. raw must be the original 80-byte serialization;
// callers that only have a parsed Header should keep the raw bytes
// around for this purpose.
func HashHeader(raw []byte) [32]byte {
	return Sha256d(raw)
}

// WorkBelowOrEqualTarget reports whether hash, interpreted
// little-endian as a 256-bit integer (i.e. reversed from its internal
// big-endian-free byte storage), is at most target. Bitcoin block
// hashes are compared as little-endian integers: byte 31 is the most
// significant.
func WorkBelowOrEqualTarget(hash [32]byte, target *big.Int) bool {
	reversed := make([]byte, 32)
	for i := 0; i < 32; i++ {
		reversed[i] = hash[31-i]
	}
	hashInt := new(big.Int).SetBytes(reversed)
	return hashInt.Cmp(target) <= 0
}

// ReadVarInt decodes a Bitcoin CompactSize integer starting at offset,
// returning the decoded value and the offset of the first byte after
// it. It implements the single-byte / 0xfd+u16 / 0xfe+u32 / 0xff+u64
// encoding.
func ReadVarInt(b []byte, offset int) (uint64, int, error) {
	if offset >= len(b) {
		return 0, 0, fmt.Errorf("btcspv: varint offset %d out of range (len %d)", offset, len(b))
	}

	prefix := b[offset]
	switch {
	case prefix < 0xfd:
		return uint64(prefix), offset + 1, nil
	case prefix == 0xfd:
		if offset+3 > len(b) {
			return 0, 0, errors.New("btcspv: truncated u16 varint")
		}
		return uint64(leUint16(b[offset+1 : offset+3])), offset + 3, nil
	case prefix == 0xfe:
		if offset+5 > len(b) {
			return 0, 0, errors.New("btcspv: truncated u32 varint")
		}
		return uint64(leUint32(b[offset+1 : offset+5])), offset + 5, nil
	default: // 0xff
		if offset+9 > len(b) {
			return 0, 0, errors.New("btcspv: truncated u64 varint")
		}
		return leUint64(b[offset+1 : offset+9]), offset + 9, nil
	}
}

// VerifyMerkleProof walks an ordered sibling list from a leaf to a
// claimed root. At each level, if index is even the sibling is the
// right child (hash(current||sibling)); if odd, the sibling is the
// left child (hash(sibling||current)). index is halved after each
// level. An empty sibling list is accepted iff leaf already equals
// root (a single-transaction block).
//
// The per-level combine step mirrors blockchain/merkle.go's
// HashMerkleBranches: concatenate the two child hashes into one
// chainhash.HashSize*2 buffer and double-hash it through
// chainhash.DoubleHashRaw.
func VerifyMerkleProof(leaf [32]byte, root [32]byte, siblings [][32]byte, index uint32) bool {
	current := leaf
	for _, sibling := range siblings {
		var buf [chainhash.HashSize * 2]byte
		if index&1 == 0 {
			copy(buf[:chainhash.HashSize], current[:])
			copy(buf[chainhash.HashSize:], sibling[:])
		} else {
			copy(buf[:chainhash.HashSize], sibling[:])
			copy(buf[chainhash.HashSize:], current[:])
		}
		current = chainhash.DoubleHashRaw(func(w io.Writer) error {
			_, err := w.Write(buf[:])
			return err
		})
		index >>= 1
	}
	return current == root
}

func leUint16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
