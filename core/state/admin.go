package state

import (
	"kaiadefi/crypto"
)

// Operator returns the address allowed to run administrative operations.
func (t *Txn) Operator() (crypto.Address, error) {
	var operator crypto.Address
	if _, err := t.KVGet(adminOperatorKeyBytes, &operator); err != nil {
		return crypto.Address{}, err
	}
	return operator, nil
}

func (t *Txn) SetOperator(operator crypto.Address) error {
	return t.KVPut(adminOperatorKeyBytes, operator)
}

// IsPaused reports whether module rejects gated operations. Unreadable flags
// count as paused.
func (t *Txn) IsPaused(module string) bool {
	var paused bool
	if _, err := t.KVGet(pauseKey(module), &paused); err != nil {
		return true
	}
	return paused
}

func (t *Txn) SetPaused(module string, paused bool) error {
	if !paused {
		return t.KVDelete(pauseKey(module))
	}
	return t.KVPut(pauseKey(module), true)
}

// GenesisTime returns when genesis was applied; ok is false on a fresh
// database.
func (t *Txn) GenesisTime() (uint64, bool, error) {
	var ts uint64
	ok, err := t.KVGet(adminGenesisKeyBytes, &ts)
	return ts, ok, err
}

func (t *Txn) MarkGenesis(ts uint64) error {
	return t.KVPut(adminGenesisKeyBytes, ts)
}
