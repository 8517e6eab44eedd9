package give_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"givechain/internal/give"
	"givechain/internal/ledger"
	"givechain/internal/testutil"
)

func newSeededSession(t *testing.T, wallet give.WalletProvider) (*give.Session, *testutil.ScriptedGateway) {
	t.Helper()
	gateway := testutil.NewScriptedGateway(testutil.SeededLedger(t, testutil.FixedClock()))
	return give.NewSession(gateway, wallet, give.NewNopLogger()), gateway
}

func TestConnect_DerivesRoles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		account string
		want    give.Role
	}{
		{"owner is admin", testutil.Owner, give.Role{IsAdmin: true}},
		{"approved charity", testutil.CharityOne, give.Role{IsCharity: true}},
		{"plain donor", testutil.DonorOne, give.Role{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, _ := newSeededSession(t, testutil.NewStubWallet(tt.account))

			st, err := session.Connect(context.Background())
			if err != nil {
				t.Fatalf("Connect() error = %v", err)
			}
			if st.Status != give.StatusConnected {
				t.Fatalf("Status = %v, want connected", st.Status)
			}
			if st.Account != tt.account {
				t.Errorf("Account = %q, want %q", st.Account, tt.account)
			}
			if st.Role != tt.want {
				t.Errorf("Role = %+v, want %+v", st.Role, tt.want)
			}
			if st.RoleDegraded {
				t.Errorf("RoleDegraded = true, want false")
			}
		})
	}
}

func TestConnect_OwnerMatchIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	owner := "0xAbCdEf0123456789aBcDeF0123456789abcdef01"
	gateway := ledger.NewMemoryLedger(owner, testutil.FixedClock())
	wallet := testutil.NewStubWallet("0xABCDEF0123456789ABCDEF0123456789ABCDEF01")
	session := give.NewSession(gateway, wallet, give.NewNopLogger())

	st, err := session.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !st.Role.IsAdmin {
		t.Errorf("IsAdmin = false, want true for case-variant owner address")
	}
}

func TestConnect_Declined(t *testing.T) {
	t.Parallel()

	wallet := testutil.NewStubWallet()
	wallet.SetError(errors.New("user rejected the request"))
	session, _ := newSeededSession(t, wallet)

	if _, err := session.Connect(context.Background()); err == nil {
		t.Fatalf("Connect() succeeded, want error on declined request")
	}
	if st := session.State(); st.Status != give.StatusConnectionFailed {
		t.Errorf("Status = %v, want connection failed", st.Status)
	}
	if session.State().Connected() {
		t.Errorf("Connected() = true, want false")
	}
}

func TestConnect_NoAccounts(t *testing.T) {
	t.Parallel()

	session, _ := newSeededSession(t, testutil.NewStubWallet())

	if _, err := session.Connect(context.Background()); err == nil {
		t.Fatalf("Connect() succeeded, want error on empty account list")
	}
	if st := session.State(); st.Status != give.StatusConnectionFailed {
		t.Errorf("Status = %v, want connection failed", st.Status)
	}
}

func TestConnect_RoleLookupDegrades(t *testing.T) {
	t.Parallel()

	session, gateway := newSeededSession(t, testutil.NewStubWallet(testutil.Owner))
	gateway.FailOwner(errors.New("rpc timeout"))

	st, err := session.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v, want degraded connection", err)
	}

	// The wallet was reachable, so the session connects; the role falls back
	// to least privilege until something re-derives it.
	if st.Status != give.StatusConnected {
		t.Errorf("Status = %v, want connected", st.Status)
	}
	if !st.RoleDegraded {
		t.Errorf("RoleDegraded = false, want true")
	}
	if st.Role != (give.Role{}) {
		t.Errorf("Role = %+v, want least privilege", st.Role)
	}
}

func TestConnect_ConcurrentCallsShareOneAttempt(t *testing.T) {
	t.Parallel()

	wallet := testutil.NewStubWallet(testutil.Owner)
	wallet.Gate = make(chan struct{})
	session, _ := newSeededSession(t, wallet)

	const callers = 4
	states := make([]give.SessionState, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st, err := session.Connect(context.Background())
			if err != nil {
				t.Errorf("Connect() error = %v", err)
			}
			states[i] = st
		}(i)
	}

	// Let the in-flight attempt finish once every caller is launched.
	close(wallet.Gate)
	wg.Wait()

	if n := wallet.RequestCount(); n != 1 {
		t.Errorf("RequestAccounts calls = %d, want 1", n)
	}
	for i, st := range states {
		if st.Status != give.StatusConnected {
			t.Errorf("caller %d Status = %v, want connected", i, st.Status)
		}
	}
}

func TestResume_SilentReconnect(t *testing.T) {
	t.Parallel()

	wallet := testutil.NewStubWallet(testutil.CharityOne)
	wallet.SetSelected(testutil.CharityOne)
	session, _ := newSeededSession(t, wallet)

	st := session.Resume(context.Background())

	if st.Status != give.StatusConnected {
		t.Fatalf("Status = %v, want connected", st.Status)
	}
	if !st.Role.IsCharity {
		t.Errorf("IsCharity = false, want true")
	}
	// Resume never prompts.
	if n := wallet.RequestCount(); n != 0 {
		t.Errorf("RequestAccounts calls = %d, want 0", n)
	}
}

func TestResume_NothingToResume(t *testing.T) {
	t.Parallel()

	session, _ := newSeededSession(t, testutil.NewStubWallet(testutil.Owner))

	st := session.Resume(context.Background())

	if st.Status != give.StatusDisconnected {
		t.Errorf("Status = %v, want disconnected", st.Status)
	}
}

func TestOnAccountsChanged_EmptyDisconnects(t *testing.T) {
	t.Parallel()

	session, _ := newSeededSession(t, testutil.NewStubWallet(testutil.Owner))
	if _, err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	st := session.OnAccountsChanged(context.Background(), nil)

	if st.Status != give.StatusDisconnected {
		t.Errorf("Status = %v, want disconnected", st.Status)
	}
	if st.Account != "" {
		t.Errorf("Account = %q, want empty", st.Account)
	}
	if st.Role != (give.Role{}) {
		t.Errorf("Role = %+v, want cleared", st.Role)
	}
}

func TestOnAccountsChanged_SameAccountIsNoOp(t *testing.T) {
	t.Parallel()

	session, gateway := newSeededSession(t, testutil.NewStubWallet(testutil.Owner))
	if _, err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	before := gateway.Calls("GetOwner")

	st := session.OnAccountsChanged(context.Background(), []string{testutil.Owner})

	if st.Status != give.StatusConnected {
		t.Errorf("Status = %v, want connected", st.Status)
	}
	if after := gateway.Calls("GetOwner"); after != before {
		t.Errorf("GetOwner calls = %d, want %d (no re-derivation)", after, before)
	}
}

func TestOnAccountsChanged_NewAccountRederivesRoles(t *testing.T) {
	t.Parallel()

	session, _ := newSeededSession(t, testutil.NewStubWallet(testutil.Owner))
	st, err := session.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !st.Role.IsAdmin {
		t.Fatalf("precondition: owner should be admin")
	}

	st = session.OnAccountsChanged(context.Background(), []string{testutil.DonorOne})

	if st.Account != testutil.DonorOne {
		t.Errorf("Account = %q, want %q", st.Account, testutil.DonorOne)
	}
	if st.Role.IsAdmin {
		t.Errorf("IsAdmin = true, want false after switching away from the owner")
	}
}
