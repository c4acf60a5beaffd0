// Package credit implements CreditManager: the owner of borrower
// credit state and the single authority that marks payouts as
// processed. It consumes a verifier.Adapter for payout evidence and a
// vault.Vault for borrow/repay routing, per spec.md §4.5.
//
// The trailing-window ledger with ring-buffer eviction is grounded on
// liquidity/reward.go's and liquidity/alliance.go's epoch/attestation
// bookkeeping (bounded history, windowed aggregation). The one-shot
// processed-payout semantics are grounded on
// settlement/claimable/claimable.go's claim-once balance semantics,
// generalized from claimable balances to processed payout keys.
package credit

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/hashcredit/core/internal/eventlog"
	"github.com/hashcredit/core/internal/model"
	"github.com/hashcredit/core/internal/reentry"
	"github.com/hashcredit/core/internal/riskparams"
	"github.com/hashcredit/core/internal/vault"
	"github.com/hashcredit/core/internal/verifier"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

var log = btclog.Disabled

// UseLogger sets the package-level logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// ManagerCallerID is the identity the manager presents to the vault's
// manager-only operations. The vault must be configured with
// vault.SetManager(ManagerCallerID) for borrow/repay routing to
// succeed.
const ManagerCallerID = "credit-manager"

// MaxPayoutRecords bounds each borrower's payout history ring, per
// spec.md §3's payoutHistory / §9's "bounded per-borrower history"
// note.
const MaxPayoutRecords = 128

// SecondsPerYear matches vault.SecondsPerYear; the manager's
// per-borrower interest formula and the vault's aggregate interest
// formula must agree on this constant for the two ledgers to stay
// reconciled (spec.md §4.5/§4.6, verified by scenario S5).
const SecondsPerYear = vault.SecondsPerYear

const maxBps = 10_000

// Sentinel errors, spec.md §7 kinds 1/3/4.
var (
	ErrBorrowerAlreadyRegistered = errors.New("credit: borrower already registered")
	ErrBorrowerNotRegistered     = errors.New("credit: borrower not registered")
	ErrBorrowerNotActive         = errors.New("credit: borrower is not active")
	ErrExceedsCreditLimit        = errors.New("credit: amount exceeds available credit limit")
	ErrUnauthorized              = errors.New("credit: unauthorized caller")
	ErrPaused                    = errors.New("credit: manager is paused")
	ErrZeroAmount                = errors.New("credit: amount must be non-zero")
	ErrPayoutAlreadyProcessed    = errors.New("credit: payout already processed")
	ErrPayoutNotFound            = errors.New("credit: payout record not found")
)

const (
	payoutKeyPrefix   = "payout/"
	borrowerKeyPrefix = "borrower/"
)

// Manager is the CreditManager. The zero value is not usable;
// construct with Open or OpenInMemory.
type Manager struct {
	mu    sync.Mutex
	guard reentry.Guard

	db        *leveldb.DB
	borrowers map[model.Borrower]*model.BorrowerRecord
	processed map[model.PayoutKey]bool

	verifier verifier.Adapter
	vault    *vault.Vault
	asset    vault.AssetToken
	params   riskparams.RiskParameters
	sink     *eventlog.Sink

	paused       bool
	owner        string
	poolRegistry string
}

// Open opens (creating if absent) a goleveldb database at dir and
// reconstructs the borrower registry and processed-payout set from
// its contents. asset must be the same AssetToken the vault custodies,
// since Repay pulls from the borrower into ManagerCallerID's account
// before forwarding into the vault's repay-on-behalf path.
func Open(dir string, v verifier.Adapter, vlt *vault.Vault, asset vault.AssetToken, params riskparams.RiskParameters, sink *eventlog.Sink, owner string) (*Manager, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	m, err := newManager(db, v, vlt, asset, params, sink, owner)
	if err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// OpenInMemory opens a Manager backed by in-memory goleveldb storage,
// for tests and short-lived processes.
func OpenInMemory(v verifier.Adapter, vlt *vault.Vault, asset vault.AssetToken, params riskparams.RiskParameters, sink *eventlog.Sink, owner string) (*Manager, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return newManager(db, v, vlt, asset, params, sink, owner)
}

func newManager(db *leveldb.DB, v verifier.Adapter, vlt *vault.Vault, asset vault.AssetToken, params riskparams.RiskParameters, sink *eventlog.Sink, owner string) (*Manager, error) {
	m := &Manager{
		db:        db,
		borrowers: make(map[model.Borrower]*model.BorrowerRecord),
		processed: make(map[model.PayoutKey]bool),
		verifier:  v,
		asset:     asset,
		vault:     vlt,
		params:    params,
		sink:      sink,
		owner:     owner,
	}
	if err := m.loadAll(); err != nil {
		return nil, err
	}
	return m, nil
}

// Close releases the underlying database handle.
func (m *Manager) Close() error {
	return m.db.Close()
}

func (m *Manager) loadAll() error {
	iter := m.db.NewIterator(nil, nil)
	defer iter.Release()

	for iter.Next() {
		key := iter.Key()
		switch {
		case len(key) > len(borrowerKeyPrefix) && string(key[:len(borrowerKeyPrefix)]) == borrowerKeyPrefix:
			var b model.Borrower
			copy(b[:], key[len(borrowerKeyPrefix):])
			var rec model.BorrowerRecord
			if err := json.Unmarshal(iter.Value(), &rec); err != nil {
				return err
			}
			m.borrowers[b] = &rec
		case len(key) > len(payoutKeyPrefix) && string(key[:len(payoutKeyPrefix)]) == payoutKeyPrefix:
			pk, err := decodePayoutKey(key[len(payoutKeyPrefix):])
			if err != nil {
				return err
			}
			m.processed[pk] = true
		}
	}
	return iter.Error()
}

func borrowerDBKey(b model.Borrower) []byte {
	return append([]byte(borrowerKeyPrefix), b[:]...)
}

func payoutDBKey(pk model.PayoutKey) []byte {
	key := make([]byte, len(payoutKeyPrefix)+32+4)
	n := copy(key, payoutKeyPrefix)
	n += copy(key[n:], pk.Txid[:])
	binary.BigEndian.PutUint32(key[n:], pk.Vout)
	return key
}

func decodePayoutKey(raw []byte) (model.PayoutKey, error) {
	if len(raw) != 32+4 {
		return model.PayoutKey{}, errors.New("credit: malformed payout key")
	}
	var pk model.PayoutKey
	copy(pk.Txid[:], raw[:32])
	pk.Vout = binary.BigEndian.Uint32(raw[32:])
	return pk, nil
}

// borrowerAccountID is the string identity the vault's AssetToken
// ledger uses for a borrower, the hex encoding of the opaque 20-byte
// borrower identifier.
func borrowerAccountID(b model.Borrower) string {
	return hex.EncodeToString(b[:])
}

func (m *Manager) putBorrower(b model.Borrower, rec *model.BorrowerRecord) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return m.db.Put(borrowerDBKey(b), buf, nil)
}

func (m *Manager) markProcessed(pk model.PayoutKey) error {
	m.processed[pk] = true
	return m.db.Put(payoutDBKey(pk), []byte{1}, nil)
}

func (m *Manager) emit(name string, fields map[string]any) {
	if m.sink != nil {
		m.sink.Emit(name, fields)
	}
}

// RegisterBorrower activates a new borrower. Admin-only by convention
// of the caller.
func (m *Manager) RegisterBorrower(b model.Borrower, btcPayoutKeyHash model.Hash, now uint32) error {
	if err := m.guard.Enter(); err != nil {
		return err
	}
	defer m.guard.Exit()

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.borrowers[b]; ok && existing.Status != model.StatusUnregistered {
		return ErrBorrowerAlreadyRegistered
	}

	rec := &model.BorrowerRecord{
		Status:                  model.StatusActive,
		BtcPayoutKeyHash:        btcPayoutKeyHash,
		CreatedAt:               now,
		LastDebtUpdateTimestamp: now,
	}
	if err := m.putBorrower(b, rec); err != nil {
		return err
	}
	m.borrowers[b] = rec

	m.emit("BorrowerRegistered", map[string]any{"borrower": b, "createdAt": now})
	log.Infof("borrower %x registered", b[:])
	return nil
}

// SubmitPayout verifies proofBytes through the configured adapter and
// applies the resulting evidence to the named borrower's ledger, per
// spec.md §4.5's eight-step algorithm.
func (m *Manager) SubmitPayout(proofBytes []byte, now uint32) error {
	if err := m.guard.Enter(); err != nil {
		return err
	}
	defer m.guard.Exit()

	m.mu.Lock()
	paused := m.paused
	m.mu.Unlock()
	if paused {
		return ErrPaused
	}

	evidence, err := m.verifier.VerifyPayout(proofBytes)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.borrowers[evidence.Borrower]
	if !ok || rec.Status == model.StatusUnregistered {
		return ErrBorrowerNotRegistered
	}
	if evidence.AmountSats == 0 {
		return ErrZeroAmount
	}

	key := model.PayoutKey{Txid: evidence.Txid, Vout: evidence.Vout}
	if m.processed[key] {
		return ErrPayoutAlreadyProcessed
	}
	// Replay is locked before any further work, even for a payout that
	// turns out to be below the minimum: resubmission must never be
	// able to re-trigger credit effects.
	if err := m.markProcessed(key); err != nil {
		return err
	}

	if evidence.AmountSats < m.params.MinPayoutSats {
		m.emit("PayoutBelowMinimum", map[string]any{
			"borrower":   evidence.Borrower,
			"amountSats": evidence.AmountSats,
		})
		return nil
	}

	effectiveAmount := evidence.AmountSats
	if m.params.LargePayoutThresholdSats > 0 && evidence.AmountSats >= m.params.LargePayoutThresholdSats {
		effectiveAmount = mulDivU64(evidence.AmountSats, uint64(m.params.LargePayoutDiscountBps), maxBps)
	}

	rec.TotalRevenueSats += evidence.AmountSats
	rec.PayoutCount++
	rec.PayoutHistory = append(rec.PayoutHistory, model.PayoutRecord{
		TxidKey:             evidence.Txid,
		Vout:                evidence.Vout,
		EffectiveAmountSats: effectiveAmount,
		Timestamp:           evidence.BlockTimestamp,
	})

	if len(rec.PayoutHistory) > MaxPayoutRecords {
		evicted := len(rec.PayoutHistory) - MaxPayoutRecords
		rec.PayoutHistory = rec.PayoutHistory[evicted:]
		m.emit("PayoutRecordsEvicted", map[string]any{"borrower": evidence.Borrower, "evicted": evicted})
	}

	prunedTo := 0
	for prunedTo < len(rec.PayoutHistory) && rec.PayoutHistory[prunedTo].Timestamp+m.params.WindowSeconds < now {
		prunedTo++
	}
	if prunedTo > 0 {
		rec.PayoutHistory = rec.PayoutHistory[prunedTo:]
		m.emit("PayoutWindowPruned", map[string]any{"borrower": evidence.Borrower, "pruned": prunedTo})
	}

	var trailing uint64
	for _, r := range rec.PayoutHistory {
		trailing += r.EffectiveAmountSats
	}
	rec.TrailingRevenueSats = trailing

	raw := rawCreditLimit(trailing, m.params.BtcPriceUsd, m.params.AdvanceRateBps, m.params.StablecoinDecimals)

	var limit uint64
	if now-rec.CreatedAt < m.params.NewBorrowerPeriodSeconds || rec.PayoutCount < m.params.MinPayoutCountForFullCredit {
		limit = minU64(m.params.NewBorrowerCap, raw)
	} else {
		limit = raw
	}
	if m.params.GlobalCap > 0 && limit > m.params.GlobalCap {
		limit = m.params.GlobalCap
	}
	rec.CreditLimit = limit

	if err := m.putBorrower(evidence.Borrower, rec); err != nil {
		return err
	}

	m.emit("PayoutSubmitted", map[string]any{
		"borrower":        evidence.Borrower,
		"effectiveAmount": effectiveAmount,
		"trailingRevenue": trailing,
	})
	m.emit("CreditLimitUpdated", map[string]any{"borrower": evidence.Borrower, "creditLimit": limit})
	return nil
}

// rawCreditLimit converts trailing satoshi revenue into raw stablecoin
// smallest units, before new-borrower/global caps are applied:
// trailingRevenueSats * btcPriceUsd * advanceRateBps /
// (1e8 * 1e8 * 10_000) * 10^stablecoinDecimals, all in a wide integer
// type per spec.md §9's "wide integer type" note, verified against
// scenarios S1/S2.
func rawCreditLimit(trailingRevenueSats, btcPriceUsd uint64, advanceRateBps uint32, stablecoinDecimals uint8) uint64 {
	num := new(big.Int).SetUint64(trailingRevenueSats)
	num.Mul(num, new(big.Int).SetUint64(btcPriceUsd))
	num.Mul(num, big.NewInt(int64(advanceRateBps)))
	num.Mul(num, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(stablecoinDecimals)), nil))

	den := new(big.Int).Mul(big.NewInt(100_000_000), big.NewInt(100_000_000))
	den.Mul(den, big.NewInt(maxBps))

	num.Div(num, den)
	return num.Uint64()
}

// freshInterestAccrual computes the interest that has accrued on
// principal since `since`, the manager-side counterpart of
// vault.pendingInterest: principal * aprBps * elapsed /
// (10_000 * SecondsPerYear).
func freshInterestAccrual(principal uint64, aprBps uint32, since, now uint32) uint64 {
	if now <= since || principal == 0 || aprBps == 0 {
		return 0
	}
	elapsed := uint64(now - since)
	num := new(big.Int).SetUint64(principal)
	num.Mul(num, big.NewInt(int64(aprBps)))
	num.Mul(num, new(big.Int).SetUint64(elapsed))
	den := big.NewInt(int64(maxBps) * SecondsPerYear)
	num.Div(num, den)
	return num.Uint64()
}

// GetAccruedInterest returns the interest owed but not yet capitalized
// or repaid: settled-unpaid interest carried from a prior partial
// repayment, plus interest accrued since lastDebtUpdateTimestamp.
func (m *Manager) GetAccruedInterest(b model.Borrower, now uint32) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.borrowers[b]
	if !ok {
		return 0, ErrBorrowerNotRegistered
	}
	return rec.AccruedInterestSats + freshInterestAccrual(rec.CurrentDebt, m.vault.BorrowAprBps(), rec.LastDebtUpdateTimestamp, now), nil
}

// GetCurrentDebt returns outstanding principal plus accrued interest.
func (m *Manager) GetCurrentDebt(b model.Borrower, now uint32) (uint64, error) {
	m.mu.Lock()
	rec, ok := m.borrowers[b]
	m.mu.Unlock()
	if !ok {
		return 0, ErrBorrowerNotRegistered
	}

	accrued, err := m.GetAccruedInterest(b, now)
	if err != nil {
		return 0, err
	}
	return rec.CurrentDebt + accrued, nil
}

// GetAvailableCredit returns max(0, creditLimit - getCurrentDebt).
func (m *Manager) GetAvailableCredit(b model.Borrower, now uint32) (uint64, error) {
	m.mu.Lock()
	limit := uint64(0)
	rec, ok := m.borrowers[b]
	if ok {
		limit = rec.CreditLimit
	}
	m.mu.Unlock()
	if !ok {
		return 0, ErrBorrowerNotRegistered
	}

	debt, err := m.GetCurrentDebt(b, now)
	if err != nil {
		return 0, err
	}
	if debt >= limit {
		return 0, nil
	}
	return limit - debt, nil
}

// Borrow capitalizes any accrued interest into principal, then draws
// amount against remaining available credit. The caller is the
// borrower.
func (m *Manager) Borrow(b model.Borrower, amount uint64, now uint32) error {
	if err := m.guard.Enter(); err != nil {
		return err
	}
	defer m.guard.Exit()

	if amount == 0 {
		return ErrZeroAmount
	}

	m.mu.Lock()
	paused := m.paused
	m.mu.Unlock()
	if paused {
		return ErrPaused
	}

	m.mu.Lock()
	rec, ok := m.borrowers[b]
	if !ok {
		m.mu.Unlock()
		return ErrBorrowerNotRegistered
	}
	if rec.Status != model.StatusActive {
		m.mu.Unlock()
		return ErrBorrowerNotActive
	}

	accrued := rec.AccruedInterestSats + freshInterestAccrual(rec.CurrentDebt, m.vault.BorrowAprBps(), rec.LastDebtUpdateTimestamp, now)
	rec.CurrentDebt += accrued
	rec.AccruedInterestSats = 0
	rec.LastDebtUpdateTimestamp = now

	if rec.CurrentDebt+amount > rec.CreditLimit {
		m.mu.Unlock()
		return ErrExceedsCreditLimit
	}
	rec.CurrentDebt += amount

	if err := m.putBorrower(b, rec); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	if err := m.vault.BorrowFunds(ManagerCallerID, borrowerAccountID(b), amount, now); err != nil {
		return err
	}

	m.emit("Borrowed", map[string]any{"borrower": b, "amount": amount})
	return nil
}

// Repay pays up to accruedInterest first, then principal, clamped at
// outstanding debt, and forwards only the amount actually applied into
// the vault. The caller is the borrower.
func (m *Manager) Repay(b model.Borrower, amount uint64, now uint32) (uint64, error) {
	if err := m.guard.Enter(); err != nil {
		return 0, err
	}
	defer m.guard.Exit()

	if amount == 0 {
		return 0, ErrZeroAmount
	}

	m.mu.Lock()
	if m.paused {
		m.mu.Unlock()
		return 0, ErrPaused
	}
	rec, ok := m.borrowers[b]
	if !ok {
		m.mu.Unlock()
		return 0, ErrBorrowerNotRegistered
	}

	fresh := freshInterestAccrual(rec.CurrentDebt, m.vault.BorrowAprBps(), rec.LastDebtUpdateTimestamp, now)
	owedInterest := rec.AccruedInterestSats + fresh
	rec.LastDebtUpdateTimestamp = now

	interestPaid := minU64(owedInterest, amount)
	owedInterest -= interestPaid

	remainder := amount - interestPaid
	principalPaid := minU64(remainder, rec.CurrentDebt)

	rec.AccruedInterestSats = owedInterest
	rec.CurrentDebt -= principalPaid

	if err := m.putBorrower(b, rec); err != nil {
		m.mu.Unlock()
		return 0, err
	}
	m.mu.Unlock()

	actuallyPaid := interestPaid + principalPaid
	if actuallyPaid > 0 {
		// Pull only the amount actually applied to debt from the
		// borrower — never the raw requested amount, which may exceed
		// outstanding debt — then forward it into the vault's
		// repay-on-behalf path.
		if err := m.asset.TransferFrom(borrowerAccountID(b), ManagerCallerID, actuallyPaid); err != nil {
			return 0, err
		}
		if err := m.vault.RepayFunds(ManagerCallerID, actuallyPaid, now); err != nil {
			return 0, err
		}
	}

	m.emit("Repaid", map[string]any{"borrower": b, "amount": actuallyPaid})
	return actuallyPaid, nil
}

// FreezeBorrower moves a borrower to Frozen: borrow is rejected,
// repay and submitPayout are still accepted. Admin-only by convention
// of the caller.
func (m *Manager) FreezeBorrower(b model.Borrower) error {
	return m.setStatus(b, model.StatusFrozen, "BorrowerFrozen")
}

// UnfreezeBorrower moves a borrower back to Active. Admin-only by
// convention of the caller.
func (m *Manager) UnfreezeBorrower(b model.Borrower) error {
	return m.setStatus(b, model.StatusActive, "BorrowerUnfrozen")
}

func (m *Manager) setStatus(b model.Borrower, status model.BorrowerStatus, event string) error {
	if err := m.guard.Enter(); err != nil {
		return err
	}
	defer m.guard.Exit()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.borrowers[b]
	if !ok {
		return ErrBorrowerNotRegistered
	}
	rec.Status = status
	if err := m.putBorrower(b, rec); err != nil {
		return err
	}
	m.emit(event, map[string]any{"borrower": b})
	return nil
}

// Pause blocks submitPayout, borrow, and repay. Admin-only by
// convention of the caller.
func (m *Manager) Pause() {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
	m.emit("Paused", nil)
}

// Unpause lifts a prior Pause. Admin-only by convention of the caller.
func (m *Manager) Unpause() {
	m.mu.Lock()
	m.paused = false
	m.mu.Unlock()
	m.emit("Unpaused", nil)
}

// SetVerifier swaps the VerifierAdapter. Admin-only by convention of
// the caller.
func (m *Manager) SetVerifier(v verifier.Adapter) {
	m.mu.Lock()
	m.verifier = v
	m.mu.Unlock()
	m.emit("VerifierChanged", nil)
}

// SetVault swaps the LiquidityVault. Admin-only by convention of the
// caller.
func (m *Manager) SetVault(v *vault.Vault) {
	m.mu.Lock()
	m.vault = v
	m.mu.Unlock()
	m.emit("VaultChanged", nil)
}

// SetRiskConfig replaces the risk parameter set wholesale. Admin-only
// by convention of the caller.
func (m *Manager) SetRiskConfig(params riskparams.RiskParameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.params = params
	m.mu.Unlock()
	m.emit("RiskConfigChanged", nil)
	return nil
}

// SetPoolRegistry records the identifier of the external pool registry
// this manager reports to. Opaque to the core. Admin-only by
// convention of the caller.
func (m *Manager) SetPoolRegistry(registry string) {
	m.mu.Lock()
	m.poolRegistry = registry
	m.mu.Unlock()
	m.emit("PoolRegistryChanged", map[string]any{"poolRegistry": registry})
}

// IsPayoutProcessed reports whether (txid, vout) has already been
// applied (or recorded-and-ignored) by SubmitPayout.
func (m *Manager) IsPayoutProcessed(key model.PayoutKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[key]
}

// GetBorrowerInfo returns a copy of the borrower's record.
func (m *Manager) GetBorrowerInfo(b model.Borrower) (model.BorrowerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.borrowers[b]
	if !ok {
		return model.BorrowerRecord{}, ErrBorrowerNotRegistered
	}
	return *rec, nil
}

// GetPayoutHistoryCount returns the number of PayoutRecords currently
// retained for b (after ring eviction and window pruning).
func (m *Manager) GetPayoutHistoryCount(b model.Borrower) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.borrowers[b]
	if !ok {
		return 0, ErrBorrowerNotRegistered
	}
	return len(rec.PayoutHistory), nil
}

// GetPayoutRecord returns the i-th retained PayoutRecord for b.
func (m *Manager) GetPayoutRecord(b model.Borrower, i int) (model.PayoutRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.borrowers[b]
	if !ok {
		return model.PayoutRecord{}, ErrBorrowerNotRegistered
	}
	if i < 0 || i >= len(rec.PayoutHistory) {
		return model.PayoutRecord{}, ErrPayoutNotFound
	}
	return rec.PayoutHistory[i], nil
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func mulDivU64(a, bpsNum, bpsDen uint64) uint64 {
	num := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(bpsNum))
	num.Div(num, new(big.Int).SetUint64(bpsDen))
	return num.Uint64()
}
