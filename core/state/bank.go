package state

import (
	"github.com/holiman/uint256"

	"kaiadefi/crypto"
)

// Balance returns the balance of addr in asset; missing records read as zero.
func (t *Txn) Balance(asset string, addr crypto.Address) (*uint256.Int, error) {
	return t.amount(balanceKey(asset, addr))
}

// SetBalance overwrites the balance of addr in asset. Zero balances are
// deleted.
func (t *Txn) SetBalance(asset string, addr crypto.Address, amount *uint256.Int) error {
	return t.putAmount(balanceKey(asset, addr), amount)
}

// Allowance returns how much spender may pull from owner.
func (t *Txn) Allowance(asset string, owner, spender crypto.Address) (*uint256.Int, error) {
	return t.amount(allowanceKey(asset, owner, spender))
}

// SetAllowance overwrites the allowance of spender over owner.
func (t *Txn) SetAllowance(asset string, owner, spender crypto.Address, amount *uint256.Int) error {
	return t.putAmount(allowanceKey(asset, owner, spender), amount)
}

func (t *Txn) amount(key []byte) (*uint256.Int, error) {
	out := new(uint256.Int)
	if _, err := t.KVGet(key, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Txn) putAmount(key []byte, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return t.KVDelete(key)
	}
	return t.KVPut(key, amount)
}
