package core

import (
	"context"

	"github.com/holiman/uint256"

	"kaiadefi/crypto"
	"kaiadefi/native/staking"
)

// Stake opens a staking position for user and returns its index.
func (l *Ledger) Stake(ctx context.Context, user crypto.Address, amount *uint256.Int, nodeID uint64) (uint64, error) {
	var index uint64
	err := l.execute(ctx, "stake", user, func(s *session) error {
		var err error
		index, err = s.staking.Stake(user, amount, nodeID)
		return err
	})
	return index, err
}

// Withdraw returns principal from a position. A zero amount withdraws the
// whole position.
func (l *Ledger) Withdraw(ctx context.Context, user crypto.Address, index uint64, amount *uint256.Int) (*uint256.Int, error) {
	var withdrawn *uint256.Int
	err := l.execute(ctx, "withdraw", user, func(s *session) error {
		var err error
		withdrawn, err = s.staking.Withdraw(user, index, amount)
		return err
	})
	return withdrawn, err
}

// ClaimRewards pays out every accrued reward of user.
func (l *Ledger) ClaimRewards(ctx context.Context, user crypto.Address) (*uint256.Int, error) {
	var paid *uint256.Int
	err := l.execute(ctx, "claimRewards", user, func(s *session) error {
		var err error
		paid, err = s.staking.ClaimRewards(user)
		return err
	})
	return paid, err
}

func (l *Ledger) AddNode(ctx context.Context, caller crypto.Address, spec staking.NodeSpec) (uint64, error) {
	var id uint64
	err := l.execute(ctx, "addNode", caller, func(s *session) error {
		var err error
		id, err = s.staking.AddNode(caller, spec)
		return err
	})
	return id, err
}

func (l *Ledger) UpdateNode(ctx context.Context, caller crypto.Address, id uint64, spec staking.NodeSpec) error {
	return l.execute(ctx, "updateNode", caller, func(s *session) error {
		return s.staking.UpdateNode(caller, id, spec)
	})
}

// AddRewards moves operator funds into the reward pool and returns the new
// pool balance.
func (l *Ledger) AddRewards(ctx context.Context, caller crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	var pool *uint256.Int
	err := l.execute(ctx, "addRewards", caller, func(s *session) error {
		var err error
		pool, err = s.staking.AddRewards(caller, amount)
		return err
	})
	return pool, err
}

// Reward returns the reward user could claim now.
func (l *Ledger) Reward(user crypto.Address) (*uint256.Int, error) {
	return viewValue(l, func(s *session) (*uint256.Int, error) {
		return s.staking.Reward(user)
	})
}

func (l *Ledger) Node(id uint64) (*staking.Node, error) {
	return viewValue(l, func(s *session) (*staking.Node, error) {
		return s.staking.Node(id)
	})
}

func (l *Ledger) Nodes() ([]*staking.Node, error) {
	return viewValue(l, func(s *session) ([]*staking.Node, error) {
		return s.staking.Nodes()
	})
}

// ActiveNodes lists the nodes accepting stakes in registration order.
func (l *Ledger) ActiveNodes() ([]*staking.Node, error) {
	return viewValue(l, func(s *session) ([]*staking.Node, error) {
		return s.staking.ActiveNodes()
	})
}

func (l *Ledger) StakingPool() (*staking.Pool, error) {
	return viewValue(l, func(s *session) (*staking.Pool, error) {
		return s.staking.Pool()
	})
}

func (l *Ledger) StakedAmount(user crypto.Address) (*uint256.Int, error) {
	return viewValue(l, func(s *session) (*uint256.Int, error) {
		return s.staking.StakedAmount(user)
	})
}

func (l *Ledger) StakeHistory(user crypto.Address) ([]staking.StakeView, error) {
	return viewValue(l, func(s *session) ([]staking.StakeView, error) {
		return s.staking.StakeHistory(user)
	})
}
