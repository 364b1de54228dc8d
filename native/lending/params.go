package lending

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"kaiadefi/core/types"
)

// TermRate binds a loan term to its daily interest rate.
type TermRate struct {
	Days         uint64
	DailyRateBps uint64
}

// Params configures the lending engine.
type Params struct {
	BorrowAsset        string
	BorrowDecimals     uint8
	CollateralAsset    string
	CollateralDecimals uint8
	CollateralRatioBps uint64
	MinLoanAmount      *uint256.Int
	Terms              []TermRate
	// LenientRepayment closes a loan for whatever the borrower can pay
	// instead of requiring the full amount due.
	LenientRepayment bool
}

// DefaultTerms are the 7, 14 and 30 day terms at 0.22%, 0.24% and 0.27% per
// day.
func DefaultTerms() []TermRate {
	return []TermRate{
		{Days: 7, DailyRateBps: 22},
		{Days: 14, DailyRateBps: 24},
		{Days: 30, DailyRateBps: 27},
	}
}

// DefaultParams lends 18-decimal KAIA against 6-decimal USDT at a 70%
// collateral ratio with a 1 KAIA minimum.
func DefaultParams() Params {
	return Params{
		BorrowAsset:        "KAIA",
		BorrowDecimals:     18,
		CollateralAsset:    "USDT",
		CollateralDecimals: 6,
		CollateralRatioBps: 7_000,
		MinLoanAmount:      types.Units(1, 18),
		Terms:              DefaultTerms(),
	}
}

// Clone returns a deep copy of the parameters.
func (p Params) Clone() Params {
	out := p
	out.MinLoanAmount = types.CloneAmount(p.MinLoanAmount)
	out.Terms = append([]TermRate(nil), p.Terms...)
	return out
}

// Validate checks the parameters for internal consistency.
func (p Params) Validate() error {
	if strings.TrimSpace(p.BorrowAsset) == "" || strings.TrimSpace(p.CollateralAsset) == "" {
		return fmt.Errorf("lending: borrow and collateral assets required")
	}
	if p.BorrowDecimals > types.MaxDecimals || p.CollateralDecimals > types.MaxDecimals {
		return fmt.Errorf("lending: decimals above %d", types.MaxDecimals)
	}
	if p.CollateralRatioBps == 0 || p.CollateralRatioBps > basisPoints {
		return fmt.Errorf("lending: collateral ratio must be within (0, %d] bps", basisPoints)
	}
	if p.MinLoanAmount == nil || p.MinLoanAmount.IsZero() {
		return fmt.Errorf("lending: minimum loan amount must be positive")
	}
	if len(p.Terms) == 0 {
		return fmt.Errorf("lending: at least one term required")
	}
	// Longer terms must cost strictly more per day.
	var prev TermRate
	for i, term := range p.Terms {
		if term.Days == 0 {
			return fmt.Errorf("lending: term days must be positive")
		}
		if term.DailyRateBps == 0 {
			return fmt.Errorf("lending: %d day term needs a daily rate", term.Days)
		}
		if i > 0 {
			if term.Days == prev.Days {
				return fmt.Errorf("lending: duplicate %d day term", term.Days)
			}
			if term.Days < prev.Days {
				return fmt.Errorf("lending: terms must be listed by ascending days (%d after %d)", term.Days, prev.Days)
			}
			if term.DailyRateBps <= prev.DailyRateBps {
				return fmt.Errorf("lending: %d day rate %d bps must exceed the %d day rate %d bps",
					term.Days, term.DailyRateBps, prev.Days, prev.DailyRateBps)
			}
		}
		prev = term
	}
	return nil
}

func (p Params) term(days uint64) (TermRate, bool) {
	for _, term := range p.Terms {
		if term.Days == days {
			return term, true
		}
	}
	return TermRate{}, false
}
