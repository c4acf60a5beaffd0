// Package verifier implements the VerifierAdapter boundary: a tagged
// capability set {VerifyPayout} that the credit manager calls without
// awareness of the concrete evidence source, per spec.md §4.3/§4.4 and
// the dynamic-dispatch-to-capability-set translation noted in §9.
package verifier

import "github.com/hashcredit/core/internal/model"

// Adapter converts an opaque, adapter-specific proof envelope into
// PayoutEvidence, or fails. Implementations are stateless with respect
// to payout replay — the credit manager owns processedPayouts, never
// the adapter (see spec.md §9's replay-set-hoisting note: a verifier
// holding its own replay cache would let a third party grief future
// honest submissions by calling VerifyPayout directly).
type Adapter interface {
	VerifyPayout(proof []byte) (model.PayoutEvidence, error)
}
