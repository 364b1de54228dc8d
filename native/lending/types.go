package lending

import (
	"github.com/holiman/uint256"

	"kaiadefi/core/types"
)

// Loan status strings reported by views.
const (
	StatusActive     = "active"
	StatusRepaid     = "repaid"
	StatusLiquidated = "liquidated"
)

// Loan is a single borrow position. A closed loan keeps its slot in the
// borrower's list; IsRepaid distinguishes repayment from liquidation.
type Loan struct {
	KaiaAmount       *uint256.Int
	CollateralAmount *uint256.Int
	DailyRateBps     uint64
	TermDays         uint64
	BorrowTime       uint64
	DueTime          uint64
	IsActive         bool
	IsRepaid         bool
	RepaidAmount     *uint256.Int
	ClosedAt         uint64
}

// Status reports active, repaid or liquidated.
func (l *Loan) Status() string {
	switch {
	case l == nil:
		return ""
	case l.IsActive:
		return StatusActive
	case l.IsRepaid:
		return StatusRepaid
	default:
		return StatusLiquidated
	}
}

// Clone returns a deep copy of the loan.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	out := *l
	out.KaiaAmount = types.CloneAmount(l.KaiaAmount)
	out.CollateralAmount = types.CloneAmount(l.CollateralAmount)
	out.RepaidAmount = types.CloneAmount(l.RepaidAmount)
	return &out
}

// Pool aggregates the lending ledger's process-wide state.
type Pool struct {
	// Reserve is the borrow asset available for new loans.
	Reserve *uint256.Int
	// ExchangeRate is the borrow asset per collateral asset, scaled by 1e18.
	ExchangeRate *uint256.Int
	// TotalOutstanding is the principal of all active loans.
	TotalOutstanding *uint256.Int
	// TotalLiquidated is the principal closed by liquidation and never
	// returned to the reserve.
	TotalLiquidated *uint256.Int
}

// Clone returns a deep copy of the pool, normalising nil amounts to zero.
func (p *Pool) Clone() *Pool {
	if p == nil {
		p = &Pool{}
	}
	return &Pool{
		Reserve:          types.CloneAmount(p.Reserve),
		ExchangeRate:     types.CloneAmount(p.ExchangeRate),
		TotalOutstanding: types.CloneAmount(p.TotalOutstanding),
		TotalLiquidated:  types.CloneAmount(p.TotalLiquidated),
	}
}

// LoanView is a loan enriched with values derived at read time.
type LoanView struct {
	Index    uint64
	Loan     *Loan
	Interest *uint256.Int
	TotalDue *uint256.Int
	Status   string
	Overdue  bool
}
