package state

import (
	"kaiadefi/crypto"
	"kaiadefi/native/lending"
)

// LendingPool returns the lending totals, zero-valued before genesis.
func (t *Txn) LendingPool() (*lending.Pool, error) {
	pool := new(lending.Pool)
	ok, err := t.KVGet(lendingPoolKeyBytes, pool)
	if err != nil {
		return nil, err
	}
	if !ok {
		return (*lending.Pool)(nil).Clone(), nil
	}
	return pool.Clone(), nil
}

func (t *Txn) PutLendingPool(pool *lending.Pool) error {
	return t.KVPut(lendingPoolKeyBytes, pool.Clone())
}

// LendingLoans returns the append-only loan list of addr.
func (t *Txn) LendingLoans(addr crypto.Address) ([]*lending.Loan, error) {
	var loans []*lending.Loan
	if _, err := t.KVGet(lendingLoansKey(addr), &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

func (t *Txn) PutLendingLoans(addr crypto.Address, loans []*lending.Loan) error {
	stored := make([]*lending.Loan, 0, len(loans))
	for _, loan := range loans {
		stored = append(stored, loan.Clone())
	}
	return t.KVPut(lendingLoansKey(addr), stored)
}

// LendingBorrowers lists every address that ever borrowed, in first-borrow
// order.
func (t *Txn) LendingBorrowers() ([]crypto.Address, error) {
	var borrowers []crypto.Address
	if _, err := t.KVGet(lendingBorrowersKeyBytes, &borrowers); err != nil {
		return nil, err
	}
	return borrowers, nil
}

// AddLendingBorrower appends addr to the borrower index unless present.
func (t *Txn) AddLendingBorrower(addr crypto.Address) error {
	borrowers, err := t.LendingBorrowers()
	if err != nil {
		return err
	}
	for _, existing := range borrowers {
		if existing == addr {
			return nil
		}
	}
	return t.KVPut(lendingBorrowersKeyBytes, append(borrowers, addr))
}
