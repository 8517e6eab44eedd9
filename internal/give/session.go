package give

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// SessionStatus is the connection state of the wallet session.
type SessionStatus int

const (
	StatusDisconnected SessionStatus = iota
	StatusConnecting
	StatusConnected
	StatusConnectionFailed
)

func (s SessionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusConnectionFailed:
		return "connection failed"
	default:
		return fmt.Sprintf("SessionStatus(%d)", int(s))
	}
}

// Role is the authorization classification derived from ledger facts.
// The two flags are independent: an address can be both the platform owner
// and an active charity. Roles are never stored; they are recomputed from
// the ledger whenever the account changes.
type Role struct {
	IsAdmin   bool
	IsCharity bool
}

// SessionState is the externally visible session: who is acting now, and
// with what derived role.
type SessionState struct {
	Status  SessionStatus
	Account string
	Role    Role

	// RoleDegraded is true when the connection succeeded but the role
	// lookup did not; the role then defaults to the least-privileged set.
	RoleDegraded bool
}

// Connected reports whether the session has an account to act with.
func (s SessionState) Connected() bool { return s.Status == StatusConnected }

// Session owns the wallet-connection state machine: connect, silent resume,
// and reaction to external account changes, deriving roles by
// cross-referencing the connected address against the ledger.
//
// There is no disconnect: external wallet tooling owns revocation, and the
// session only reacts to it via OnAccountsChanged with an empty list.
type Session struct {
	gateway Gateway
	wallet  WalletProvider
	logger  Logger

	mu          sync.Mutex
	state       SessionState
	connectDone chan struct{} // non-nil while a Connect is in flight
}

// NewSession creates a disconnected session. Call Resume once at startup to
// pick up an already-authorized wallet account without prompting.
func NewSession(gateway Gateway, wallet WalletProvider, logger Logger) *Session {
	return &Session{
		gateway: gateway,
		wallet:  wallet,
		logger:  logger,
	}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Resume attempts one silent reconnect: if the wallet environment already
// reports an authorized address, the session connects to it without
// prompting. Otherwise the session stays disconnected. Resume never fails
// the session; it is an optimization, not a requirement.
func (s *Session) Resume(ctx context.Context) SessionState {
	address, err := s.wallet.SelectedAddress(ctx)
	if err != nil || address == "" {
		if err != nil {
			s.logger.Debug("no resumable wallet session", "error", err)
		}
		return s.State()
	}

	s.setStatus(StatusConnecting)
	st := s.establish(ctx, address)
	s.setState(st)
	return st
}

// Connect requests account access from the wallet provider and, on success,
// derives the account's roles from the ledger.
//
// A declined request or an empty account list fails the connection. A failed
// role lookup does not: the session still connects, with the
// least-privileged role and RoleDegraded set, because a reachable wallet
// with an unreachable ledger is still a usable session.
//
// Connect is idempotent under concurrency: a call that arrives while another
// Connect is in flight waits for that attempt and returns its result instead
// of racing a second round of role queries.
func (s *Session) Connect(ctx context.Context) (SessionState, error) {
	s.mu.Lock()
	if s.connectDone != nil {
		done := s.connectDone
		s.mu.Unlock()
		select {
		case <-done:
			return s.State(), nil
		case <-ctx.Done():
			return s.State(), ctx.Err()
		}
	}
	done := make(chan struct{})
	s.connectDone = done
	s.state.Status = StatusConnecting
	s.mu.Unlock()

	accounts, err := s.wallet.RequestAccounts(ctx)
	if err != nil {
		s.finishConnect(done, SessionState{Status: StatusConnectionFailed})
		return s.State(), fmt.Errorf("requesting wallet accounts: %w", err)
	}
	if len(accounts) == 0 {
		s.finishConnect(done, SessionState{Status: StatusConnectionFailed})
		return s.State(), errors.New("wallet returned no accounts")
	}

	st := s.establish(ctx, accounts[0])
	s.finishConnect(done, st)
	s.logger.Info("wallet connected",
		"account", st.Account,
		"admin", st.Role.IsAdmin,
		"charity", st.Role.IsCharity,
		"degraded", st.RoleDegraded)
	return st, nil
}

// OnAccountsChanged is the inbound notification forwarded from the wallet
// provider when the available accounts change. An empty list disconnects
// the session outright. A new primary address re-derives roles for it; the
// same address is a no-op.
func (s *Session) OnAccountsChanged(ctx context.Context, addresses []string) SessionState {
	if len(addresses) == 0 {
		s.setState(SessionState{Status: StatusDisconnected})
		s.logger.Info("wallet revoked all accounts")
		return s.State()
	}

	next := addresses[0]
	s.mu.Lock()
	if s.state.Status == StatusConnected && strings.EqualFold(s.state.Account, next) {
		st := s.state
		s.mu.Unlock()
		return st
	}
	s.state.Status = StatusConnecting
	s.mu.Unlock()

	st := s.establish(ctx, next)
	s.setState(st)
	s.logger.Info("wallet account changed", "account", st.Account, "admin", st.Role.IsAdmin)
	return st
}

// establish derives roles for the given address and returns the connected
// state. Role lookup failures fall back to no roles with RoleDegraded set.
func (s *Session) establish(ctx context.Context, address string) SessionState {
	role, degraded := s.deriveRole(ctx, address)
	return SessionState{
		Status:       StatusConnected,
		Account:      address,
		Role:         role,
		RoleDegraded: degraded,
	}
}

// deriveRole cross-references the address against the ledger's owner and
// charity registry. Any lookup failure degrades to the least-privileged
// role rather than failing the connection.
func (s *Session) deriveRole(ctx context.Context, address string) (Role, bool) {
	owner, err := s.gateway.GetOwner(ctx)
	if err != nil {
		s.logger.Warn("role lookup degraded", "account", address, "error", err)
		return Role{}, true
	}
	charity, err := s.gateway.GetCharity(ctx, address)
	if err != nil {
		s.logger.Warn("role lookup degraded", "account", address, "error", err)
		return Role{}, true
	}
	return Role{
		IsAdmin:   strings.EqualFold(owner, address),
		IsCharity: charity != nil && charity.IsActive,
	}, false
}

func (s *Session) setStatus(status SessionStatus) {
	s.mu.Lock()
	s.state.Status = status
	s.mu.Unlock()
}

func (s *Session) setState(st SessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) finishConnect(done chan struct{}, st SessionState) {
	s.mu.Lock()
	s.state = st
	s.connectDone = nil
	s.mu.Unlock()
	close(done)
}
