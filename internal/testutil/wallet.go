package testutil

import (
	"context"
	"sync"
)

// StubWallet is a scriptable WalletProvider.
type StubWallet struct {
	mu       sync.Mutex
	selected string
	accounts []string
	err      error
	requests int

	// Gate, when non-nil, blocks RequestAccounts until closed. Used to hold
	// a connect attempt in flight.
	Gate chan struct{}
}

// NewStubWallet creates a wallet that will authorize the given accounts.
func NewStubWallet(accounts ...string) *StubWallet {
	return &StubWallet{accounts: accounts}
}

// SetSelected makes an address visible to silent auto-connect.
func (w *StubWallet) SetSelected(address string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selected = address
}

// SetError makes RequestAccounts fail.
func (w *StubWallet) SetError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
}

// SetAccounts replaces the authorized account list.
func (w *StubWallet) SetAccounts(accounts ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accounts = accounts
}

// RequestCount reports how many times RequestAccounts was called.
func (w *StubWallet) RequestCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requests
}

func (w *StubWallet) SelectedAddress(_ context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selected, nil
}

func (w *StubWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	w.mu.Lock()
	w.requests++
	gate := w.Gate
	accounts := append([]string(nil), w.accounts...)
	err := w.err
	w.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
