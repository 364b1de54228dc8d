package staking

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"kaiadefi/core/types"
)

// Node is a staking target with its own yield, rating and capacity. Nodes are
// never deleted, only deactivated.
type Node struct {
	ID             uint64
	Name           string
	AnnualRateBps  uint64
	SecurityRating uint64
	IsActive       bool
	TotalStaked    *uint256.Int
	MaxCapacity    *uint256.Int
	CreatedAt      uint64
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.TotalStaked = types.CloneAmount(n.TotalStaked)
	out.MaxCapacity = types.CloneAmount(n.MaxCapacity)
	return &out
}

// Available reports how much more the node accepts before hitting capacity.
func (n *Node) Available() *uint256.Int {
	if n == nil || n.MaxCapacity == nil {
		return new(uint256.Int)
	}
	staked := types.CloneAmount(n.TotalStaked)
	if staked.Gt(n.MaxCapacity) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(n.MaxCapacity, staked)
}

// NodeSpec carries operator-supplied node parameters.
type NodeSpec struct {
	Name           string
	AnnualRateBps  uint64
	SecurityRating uint64
	IsActive       bool
	MaxCapacity    *uint256.Int
}

// Stake is a single position opened by one stake call. StakeTime is the
// accrual checkpoint; PendingReward holds reward crystallised by withdrawals
// and not yet claimed. A fully withdrawn position keeps its slot with a zero
// amount so indices stay stable.
type Stake struct {
	Amount        *uint256.Int
	NodeID        uint64
	StakeTime     uint64
	PendingReward *uint256.Int
	CreatedAt     uint64
}

// Active reports whether the position still holds principal.
func (s *Stake) Active() bool {
	return s != nil && s.Amount != nil && !s.Amount.IsZero()
}

// Clone returns a deep copy of the stake.
func (s *Stake) Clone() *Stake {
	if s == nil {
		return nil
	}
	out := *s
	out.Amount = types.CloneAmount(s.Amount)
	out.PendingReward = types.CloneAmount(s.PendingReward)
	return &out
}

// Pool aggregates process-wide staking totals.
type Pool struct {
	TotalStaked  *uint256.Int
	RewardPool   *uint256.Int
	TotalClaimed *uint256.Int
	NodeCount    uint64
}

// Clone returns a deep copy of the pool, normalising nil amounts to zero.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return &Pool{TotalStaked: new(uint256.Int), RewardPool: new(uint256.Int), TotalClaimed: new(uint256.Int)}
	}
	return &Pool{
		TotalStaked:  types.CloneAmount(p.TotalStaked),
		RewardPool:   types.CloneAmount(p.RewardPool),
		TotalClaimed: types.CloneAmount(p.TotalClaimed),
		NodeCount:    p.NodeCount,
	}
}

// Params configures the staking engine.
type Params struct {
	// Asset is the symbol of the staked token, which also funds rewards.
	Asset    string
	MinStake *uint256.Int
}

// DefaultParams stakes 6-decimal USDT with a 10 USDT minimum.
func DefaultParams() Params {
	return Params{Asset: "USDT", MinStake: types.Units(10, 6)}
}

// Validate checks the parameters for internal consistency.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Asset) == "" {
		return fmt.Errorf("staking: asset required")
	}
	if p.MinStake == nil || p.MinStake.IsZero() {
		return fmt.Errorf("staking: minimum stake must be positive")
	}
	return nil
}

// StakeView is a stake position enriched with its claimable reward.
type StakeView struct {
	Index  uint64
	Stake  *Stake
	Reward *uint256.Int
}
