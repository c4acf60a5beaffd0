// Package reentry implements the non-reentrant call guard each core
// component uses to serialize its externally entered operations, the
// Go-native replacement for the contract-inheritance reentrancy mixins
// and pausable patterns noted in spec.md §9.
package reentry

import (
	"errors"
	"sync"
)

// ErrReentrantCall is returned by Enter when the guard is already held.
var ErrReentrantCall = errors.New("reentry: reentrant call rejected")

// Guard is a single non-reentrant lock. One instance belongs to each
// component that exposes externally entered operations (CreditManager,
// LiquidityVault); the manager's own guard and the vault's guard are
// distinct objects, so the manager may legally call into the vault
// without tripping its own guard, while a second concurrent caller of
// either component is still rejected.
type Guard struct {
	mu   sync.Mutex
	held bool
}

// Enter acquires the guard for the duration of one outermost call. It
// returns ErrReentrantCall if the guard is already held.
func (g *Guard) Enter() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held {
		return ErrReentrantCall
	}
	g.held = true
	return nil
}

// Exit releases the guard. Callers must defer Exit immediately after a
// successful Enter so the guard is released on every exit path,
// including panics and early returns.
func (g *Guard) Exit() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.held = false
}
