package testutil

import (
	"context"
	"math/big"
	"testing"
	"time"

	"givechain/internal/give"
	"givechain/internal/ledger"
)

// Well-known addresses for tests.
const (
	Owner      = "0x1111111111111111111111111111111111111111"
	CharityOne = "0x2222222222222222222222222222222222222222"
	CharityTwo = "0x3333333333333333333333333333333333333333"
	DonorOne   = "0x4444444444444444444444444444444444444444"
	DonorTwo   = "0x5555555555555555555555555555555555555555"
)

// Ether converts a display amount into minor units, failing the test on
// malformed input.
func Ether(t testing.TB, display string) *big.Int {
	t.Helper()
	amount, err := give.ParseAmount(display)
	if err != nil {
		t.Fatalf("Ether(%q): %v", display, err)
	}
	return amount
}

// SeededLedger builds a memory ledger with two approved charities, three
// campaigns and a few donations:
//
//	CharityOne #0 "Clean Water Wells" goal 10, raised 3.5 (two donors)
//	CharityOne #1 "School Supplies"   goal 5,  raised 0, deadline in 10 days
//	CharityTwo #0 "Mobile Food Bank"  goal 2,  raised 0.5 (DonorOne again)
//
// Deadlines are 30, 10 and 30 days past the clock's current time, so tests
// can expire campaigns by advancing a StubClock.
func SeededLedger(t testing.TB, clock give.Clock) *ledger.MemoryLedger {
	t.Helper()
	ctx := context.Background()
	l := ledger.NewMemoryLedger(Owner, clock)

	near := clock.Now().Add(10 * 24 * time.Hour).Unix()
	far := clock.Now().Add(30 * 24 * time.Hour).Unix()

	steps := []func() error{
		func() error {
			return l.SubmitCharityRequest(ctx, CharityOne, "Water For All", "Clean water projects", "ipfs://water")
		},
		func() error {
			return l.SubmitCharityRequest(ctx, CharityTwo, "Feeding Hands", "Community food programs", "ipfs://food")
		},
		func() error { return l.ApproveCharityRequest(ctx, Owner, 0) },
		func() error { return l.ApproveCharityRequest(ctx, Owner, 1) },
		func() error {
			return l.CreateCampaign(ctx, CharityOne, "Clean Water Wells", "Drill wells", Ether(t, "10"), far)
		},
		func() error {
			return l.CreateCampaign(ctx, CharityOne, "School Supplies", "Books and kits", Ether(t, "5"), near)
		},
		func() error {
			return l.CreateCampaign(ctx, CharityTwo, "Mobile Food Bank", "Meals on wheels", Ether(t, "2"), far)
		},
		func() error { return l.Donate(ctx, DonorOne, CharityOne, 0, Ether(t, "2.5"), "keep digging") },
		func() error { return l.Donate(ctx, DonorTwo, CharityOne, 0, Ether(t, "1"), "") },
		func() error { return l.Donate(ctx, DonorOne, CharityTwo, 0, Ether(t, "0.5"), "great work") },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("seeding ledger, step %d: %v", i, err)
		}
	}
	return l
}
