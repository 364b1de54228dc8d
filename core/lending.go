package core

import (
	"context"

	"github.com/holiman/uint256"

	"kaiadefi/crypto"
	"kaiadefi/native/lending"
)

// Borrow opens a loan for user against their staked collateral and returns
// the loan index.
func (l *Ledger) Borrow(ctx context.Context, user crypto.Address, amount *uint256.Int, termDays uint64) (uint64, error) {
	var index uint64
	err := l.execute(ctx, "borrow", user, func(s *session) error {
		var err error
		index, err = s.lending.Borrow(user, amount, termDays)
		return err
	})
	return index, err
}

// Repay settles a loan and returns the amount collected.
func (l *Ledger) Repay(ctx context.Context, user crypto.Address, index uint64) (*uint256.Int, error) {
	var paid *uint256.Int
	err := l.execute(ctx, "repay", user, func(s *session) error {
		var err error
		paid, err = s.lending.Repay(user, index)
		return err
	})
	return paid, err
}

// Liquidate closes an overdue loan of borrower. Any caller may liquidate.
func (l *Ledger) Liquidate(ctx context.Context, caller, borrower crypto.Address, index uint64) error {
	return l.execute(ctx, "liquidate", caller, func(s *session) error {
		return s.lending.Liquidate(caller, borrower, index)
	})
}

func (l *Ledger) UpdateExchangeRate(ctx context.Context, caller crypto.Address, rate *uint256.Int) error {
	return l.execute(ctx, "updateExchangeRate", caller, func(s *session) error {
		return s.lending.UpdateExchangeRate(caller, rate)
	})
}

// AddReserve moves operator funds into the lending reserve and returns the new
// reserve.
func (l *Ledger) AddReserve(ctx context.Context, caller crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	var reserve *uint256.Int
	err := l.execute(ctx, "addReserve", caller, func(s *session) error {
		var err error
		reserve, err = s.lending.AddReserve(caller, amount)
		return err
	})
	return reserve, err
}

func (l *Ledger) CalculateInterest(user crypto.Address, index uint64) (*uint256.Int, error) {
	return viewValue(l, func(s *session) (*uint256.Int, error) {
		return s.lending.CalculateInterest(user, index)
	})
}

func (l *Ledger) MaxBorrowAmount(user crypto.Address) (*uint256.Int, error) {
	return viewValue(l, func(s *session) (*uint256.Int, error) {
		return s.lending.MaxBorrowAmount(user)
	})
}

// CollateralFor returns the staked value that backs a loan of amount at the
// current exchange rate.
func (l *Ledger) CollateralFor(amount *uint256.Int) (*uint256.Int, error) {
	return viewValue(l, func(s *session) (*uint256.Int, error) {
		return s.lending.CollateralFor(amount)
	})
}

func (l *Ledger) Loans(user crypto.Address) ([]lending.LoanView, error) {
	return viewValue(l, func(s *session) ([]lending.LoanView, error) {
		return s.lending.Loans(user)
	})
}

func (l *Ledger) ActiveLoans(user crypto.Address) ([]lending.LoanView, error) {
	return viewValue(l, func(s *session) ([]lending.LoanView, error) {
		return s.lending.ActiveLoans(user)
	})
}

func (l *Ledger) HasActiveLoans(user crypto.Address) (bool, error) {
	return viewValue(l, func(s *session) (bool, error) {
		return s.lending.HasActiveLoans(user)
	})
}

func (l *Ledger) TotalBorrowed(user crypto.Address) (*uint256.Int, error) {
	return viewValue(l, func(s *session) (*uint256.Int, error) {
		return s.lending.TotalBorrowed(user)
	})
}

// OverdueLoans lists every active loan past its due time across borrowers.
func (l *Ledger) OverdueLoans() ([]lending.OverdueLoan, error) {
	return viewValue(l, func(s *session) ([]lending.OverdueLoan, error) {
		return s.lending.OverdueLoans()
	})
}

func (l *Ledger) LendingPool() (*lending.Pool, error) {
	return viewValue(l, func(s *session) (*lending.Pool, error) {
		return s.lending.Pool()
	})
}
