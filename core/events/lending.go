package events

import (
	"github.com/holiman/uint256"

	"kaiadefi/core/types"
	"kaiadefi/crypto"
)

const (
	// TypeLoanTaken is emitted when a borrower draws from the reserve.
	TypeLoanTaken = "lending.loanTaken"
	// TypeLoanRepaid is emitted when a loan is closed by its borrower.
	TypeLoanRepaid = "lending.loanRepaid"
	// TypeLoanLiquidated is emitted when an overdue loan is force-closed.
	TypeLoanLiquidated = "lending.loanLiquidated"
	// TypeExchangeRateUpdated is emitted when the operator sets the KAIA/USDT rate.
	TypeExchangeRateUpdated = "lending.exchangeRateUpdated"
	// TypeReserveUpdated is emitted whenever the KAIA reserve is funded.
	TypeReserveUpdated = "lending.reserveUpdated"
)

// LoanTaken captures a newly opened loan.
type LoanTaken struct {
	Borrower         crypto.Address
	LoanIndex        uint64
	KaiaAmount       *uint256.Int
	CollateralAmount *uint256.Int
	DailyRateBps     uint64
	TermDays         uint64
	DueTime          uint64
	Timestamp        uint64
}

// EventType satisfies the Event interface.
func (LoanTaken) EventType() string { return TypeLoanTaken }

// Event converts the structured payload into a broadcastable event.
func (e LoanTaken) Event() *types.Event {
	return &types.Event{Type: TypeLoanTaken, Attributes: map[string]string{
		"borrower":         formatAddress(e.Borrower),
		"loanIndex":        formatUint(e.LoanIndex),
		"kaiaAmount":       formatAmount(e.KaiaAmount),
		"collateralAmount": formatAmount(e.CollateralAmount),
		"dailyRate":        formatUint(e.DailyRateBps),
		"termDays":         formatUint(e.TermDays),
		"dueTime":          formatUint(e.DueTime),
		"timestamp":        formatUint(e.Timestamp),
	}}
}

// LoanRepaid captures a closed loan. Paid may fall short of Principal+Interest
// only when lenient repayment is enabled.
type LoanRepaid struct {
	Borrower  crypto.Address
	LoanIndex uint64
	Principal *uint256.Int
	Interest  *uint256.Int
	Paid      *uint256.Int
	Timestamp uint64
}

// EventType satisfies the Event interface.
func (LoanRepaid) EventType() string { return TypeLoanRepaid }

// Event converts the structured payload into a broadcastable event.
func (e LoanRepaid) Event() *types.Event {
	return &types.Event{Type: TypeLoanRepaid, Attributes: map[string]string{
		"borrower":  formatAddress(e.Borrower),
		"loanIndex": formatUint(e.LoanIndex),
		"principal": formatAmount(e.Principal),
		"interest":  formatAmount(e.Interest),
		"paid":      formatAmount(e.Paid),
		"timestamp": formatUint(e.Timestamp),
	}}
}

// LoanLiquidated captures the forced closure of an overdue loan.
type LoanLiquidated struct {
	Borrower   crypto.Address
	Liquidator crypto.Address
	LoanIndex  uint64
	KaiaAmount *uint256.Int
	Interest   *uint256.Int
	Timestamp  uint64
}

// EventType satisfies the Event interface.
func (LoanLiquidated) EventType() string { return TypeLoanLiquidated }

// Event converts the structured payload into a broadcastable event.
func (e LoanLiquidated) Event() *types.Event {
	return &types.Event{Type: TypeLoanLiquidated, Attributes: map[string]string{
		"borrower":   formatAddress(e.Borrower),
		"liquidator": formatAddress(e.Liquidator),
		"loanIndex":  formatUint(e.LoanIndex),
		"kaiaAmount": formatAmount(e.KaiaAmount),
		"interest":   formatAmount(e.Interest),
		"timestamp":  formatUint(e.Timestamp),
	}}
}

type ExchangeRateUpdated struct {
	Rate      *uint256.Int
	Timestamp uint64
}

func (ExchangeRateUpdated) EventType() string { return TypeExchangeRateUpdated }

func (e ExchangeRateUpdated) Event() *types.Event {
	return &types.Event{Type: TypeExchangeRateUpdated, Attributes: map[string]string{
		"rate":      formatAmount(e.Rate),
		"timestamp": formatUint(e.Timestamp),
	}}
}

// ReserveUpdated reports the amount added and the resulting reserve.
type ReserveUpdated struct {
	Amount    *uint256.Int
	Reserve   *uint256.Int
	Timestamp uint64
}

func (ReserveUpdated) EventType() string { return TypeReserveUpdated }

func (e ReserveUpdated) Event() *types.Event {
	return &types.Event{Type: TypeReserveUpdated, Attributes: map[string]string{
		"amount":    formatAmount(e.Amount),
		"reserve":   formatAmount(e.Reserve),
		"timestamp": formatUint(e.Timestamp),
	}}
}
