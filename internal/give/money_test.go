package give_test

import (
	"errors"
	"math/big"
	"testing"

	"givechain/internal/give"
)

func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string // minor units, decimal
	}{
		{"0", "0"},
		{"1", "1000000000000000000"},
		{"1.25", "1250000000000000000"},
		{"0.5", "500000000000000000"},
		{".5", "500000000000000000"},
		{"2.", "2000000000000000000"},
		{"0.000000000000000001", "1"},
		{"10.000000000000000001", "10000000000000000001"},
		{" 3 ", "3000000000000000000"},
		{"1000000", "1000000000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := give.ParseAmount(tt.in)
			if err != nil {
				t.Fatalf("ParseAmount(%q) error = %v", tt.in, err)
			}
			want, _ := new(big.Int).SetString(tt.want, 10)
			if got.Cmp(want) != 0 {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, want)
			}
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"   ",
		"-1",
		"+1",
		"abc",
		"1e18",
		"1.2.3",
		".",
		"1,5",
		"0.0000000000000000001", // 19 fractional digits
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			if _, err := give.ParseAmount(in); !errors.Is(err, give.ErrInvalidAmount) {
				t.Errorf("ParseAmount(%q) error = %v, want ErrInvalidAmount", in, err)
			}
		})
	}
}

func TestFormatAmount_RoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"0",
		"1",
		"1.25",
		"0.000000000000000001",
		"123456789.987654321",
		"10.000000000000000001",
	}

	for _, in := range inputs {
		minor, err := give.ParseAmount(in)
		if err != nil {
			t.Fatalf("ParseAmount(%q) error = %v", in, err)
		}
		formatted := give.FormatAmount(minor)
		back, err := give.ParseAmount(formatted)
		if err != nil {
			t.Fatalf("ParseAmount(FormatAmount(%q)) error = %v", in, err)
		}
		if back.Cmp(minor) != 0 {
			t.Errorf("round trip of %q: got %s via %q, want %s", in, back, formatted, minor)
		}
	}
}

func TestFormatAmount_TrimsTrailingZeros(t *testing.T) {
	t.Parallel()

	minor, _ := give.ParseAmount("1.500")
	if got := give.FormatAmount(minor); got != "1.5" {
		t.Errorf("FormatAmount = %q, want %q", got, "1.5")
	}
	minor, _ = give.ParseAmount("2.000")
	if got := give.FormatAmount(minor); got != "2" {
		t.Errorf("FormatAmount = %q, want %q", got, "2")
	}
}

func TestDisplayAmount(t *testing.T) {
	t.Parallel()

	minor, _ := give.ParseAmount("1.23456789")

	if got := give.DisplayAmount(minor, 4); got != "1.2345" {
		t.Errorf("DisplayAmount(4) = %q, want %q", got, "1.2345")
	}
	if got := give.DisplayAmount(minor, 0); got != "1" {
		t.Errorf("DisplayAmount(0) = %q, want %q", got, "1")
	}
	if got := give.DisplayAmount(nil, 2); got != "0.00" {
		t.Errorf("DisplayAmount(nil, 2) = %q, want %q", got, "0.00")
	}
}

func TestProgressPercent(t *testing.T) {
	t.Parallel()

	ether := func(s string) *big.Int {
		t.Helper()
		v, err := give.ParseAmount(s)
		if err != nil {
			t.Fatalf("ParseAmount(%q) error = %v", s, err)
		}
		return v
	}

	tests := []struct {
		name   string
		raised *big.Int
		goal   *big.Int
		want   float64
	}{
		{"quarter", ether("2.5"), ether("10"), 25},
		{"exact goal", ether("10"), ether("10"), 100},
		{"overfunded caps", ether("15"), ether("10"), 100},
		{"zero raised", ether("0"), ether("10"), 0},
		{"zero goal", ether("5"), ether("0"), 0},
		{"nil goal", ether("5"), nil, 0},
		{"nil raised", nil, ether("10"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := give.ProgressPercent(tt.raised, tt.goal); got != tt.want {
				t.Errorf("ProgressPercent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgressPercent_ExactBeyondFloat(t *testing.T) {
	t.Parallel()

	// Values near 10^18 lose integer precision as float64; the comparison
	// against the goal must still be exact.
	goal, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	raised := new(big.Int).Sub(goal, big.NewInt(1))

	if got := give.ProgressPercent(raised, goal); got >= 100 {
		t.Errorf("ProgressPercent just below goal = %v, want < 100", got)
	}
	if got := give.ProgressPercent(goal, goal); got != 100 {
		t.Errorf("ProgressPercent at goal = %v, want 100", got)
	}
}

func TestDaysRemaining(t *testing.T) {
	t.Parallel()

	const day = int64(86400)
	now := int64(1700000000)

	tests := []struct {
		name     string
		deadline int64
		want     int64
	}{
		{"ten days", now + 10*day, 10},
		{"partial day floors", now + day + 3600, 1},
		{"under a day", now + 3600, 0},
		{"now", now, 0},
		{"past clamps to zero", now - 5*day, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := give.DaysRemaining(tt.deadline, now); got != tt.want {
				t.Errorf("DaysRemaining = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTruncateAddress(t *testing.T) {
	t.Parallel()

	long := "0x4444444444444444444444444444444444444444"
	if got := give.TruncateAddress(long); got != "0x4444...4444" {
		t.Errorf("TruncateAddress = %q, want %q", got, "0x4444...4444")
	}
	if got := give.TruncateAddress("0x1234"); got != "0x1234" {
		t.Errorf("TruncateAddress(short) = %q, want unchanged", got)
	}
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	// 2025-03-10 12:00:00 UTC
	if got := give.FormatDate(1741608000); got != "Mar 10, 2025" {
		t.Errorf("FormatDate = %q, want %q", got, "Mar 10, 2025")
	}
}
