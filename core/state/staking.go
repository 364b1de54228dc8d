package state

import (
	"kaiadefi/crypto"
	"kaiadefi/native/staking"
)

// StakingPool returns the staking totals, zero-valued before genesis.
func (t *Txn) StakingPool() (*staking.Pool, error) {
	pool := new(staking.Pool)
	ok, err := t.KVGet(stakingPoolKeyBytes, pool)
	if err != nil {
		return nil, err
	}
	if !ok {
		return (*staking.Pool)(nil).Clone(), nil
	}
	return pool.Clone(), nil
}

func (t *Txn) PutStakingPool(pool *staking.Pool) error {
	return t.KVPut(stakingPoolKeyBytes, pool.Clone())
}

// StakingNode loads a node by id.
func (t *Txn) StakingNode(id uint64) (*staking.Node, bool, error) {
	node := new(staking.Node)
	ok, err := t.KVGet(stakingNodeKey(id), node)
	if err != nil || !ok {
		return nil, ok, err
	}
	return node, true, nil
}

func (t *Txn) PutStakingNode(node *staking.Node) error {
	return t.KVPut(stakingNodeKey(node.ID), node.Clone())
}

// StakingPositions returns every stake position of addr in index order.
func (t *Txn) StakingPositions(addr crypto.Address) ([]*staking.Stake, error) {
	var stakes []*staking.Stake
	if _, err := t.KVGet(stakingPositionsKey(addr), &stakes); err != nil {
		return nil, err
	}
	return stakes, nil
}

func (t *Txn) PutStakingPositions(addr crypto.Address, stakes []*staking.Stake) error {
	stored := make([]*staking.Stake, 0, len(stakes))
	for _, stake := range stakes {
		stored = append(stored, stake.Clone())
	}
	return t.KVPut(stakingPositionsKey(addr), stored)
}
