package give

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// AmountDecimals is the minor-unit exponent of the ledger's currency
// (wei per ether).
const AmountDecimals = 18

const secondsPerDay = 86400

// unitScale is 10^AmountDecimals.
var unitScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(AmountDecimals), nil)

// ParseAmount converts a human display amount ("1.25") into minor units.
// It fails with ErrInvalidAmount on non-numeric input, negative input, or
// more fractional digits than the minor-unit exponent supports. The result
// is exact; no floating point is involved.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidAmount)
	}
	if s[0] == '-' || s[0] == '+' {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	if intPart == "" && fracPart == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if len(fracPart) > AmountDecimals {
		return nil, fmt.Errorf("%w: more than %d fractional digits in %q", ErrInvalidAmount, AmountDecimals, s)
	}

	amount := new(big.Int)
	if intPart != "" {
		if _, ok := amount.SetString(intPart, 10); !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	amount.Mul(amount, unitScale)

	if fracPart != "" {
		// Pad the fraction to the full exponent: "25" -> 25 * 10^16.
		frac, ok := new(big.Int).SetString(fracPart, 10)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		shift := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(AmountDecimals-len(fracPart))), nil)
		amount.Add(amount, frac.Mul(frac, shift))
	}

	return amount, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatAmount converts minor units into the shortest exact display string.
// ParseAmount(FormatAmount(x)) == x for every non-negative x.
func FormatAmount(minor *big.Int) string {
	whole, frac := splitAmount(minor)
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// DisplayAmount converts minor units into a display string truncated to the
// given number of fractional digits. Only this final truncation loses
// precision; the integer value itself is never rounded.
func DisplayAmount(minor *big.Int, places int) string {
	whole, frac := splitAmount(minor)
	if places <= 0 {
		return whole
	}
	if places > AmountDecimals {
		places = AmountDecimals
	}
	return whole + "." + frac[:places]
}

// splitAmount returns the whole-unit digits and the full zero-padded
// fractional digits of a minor-unit amount.
func splitAmount(minor *big.Int) (string, string) {
	if minor == nil {
		return "0", strings.Repeat("0", AmountDecimals)
	}
	abs := new(big.Int).Abs(minor)
	whole, rem := new(big.Int).QuoRem(abs, unitScale, new(big.Int))
	digits := whole.String()
	if minor.Sign() < 0 {
		digits = "-" + digits
	}
	return digits, fmt.Sprintf("%0*s", AmountDecimals, rem.String())
}

// DaysRemaining returns the whole days between now and the deadline,
// clamped to zero for past deadlines.
func DaysRemaining(deadline, now int64) int64 {
	if deadline <= now {
		return 0
	}
	return (deadline - now) / secondsPerDay
}

// ProgressPercent returns how far a campaign is toward its goal, in
// [0, 100]. A zero goal reports 0; overfunded campaigns cap at 100.
func ProgressPercent(raised, goal *big.Int) float64 {
	if goal == nil || goal.Sign() <= 0 || raised == nil || raised.Sign() <= 0 {
		return 0
	}
	if raised.Cmp(goal) >= 0 {
		return 100
	}
	pct := new(big.Rat).SetFrac(new(big.Int).Mul(raised, big.NewInt(100)), goal)
	f, _ := pct.Float64()
	return f
}

// TruncateAddress shortens a hex address for display: 0x1234...abcd.
func TruncateAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// FormatDate renders a ledger timestamp as a short calendar date.
func FormatDate(timestamp int64) string {
	return time.Unix(timestamp, 0).UTC().Format("Jan 2, 2006")
}
