package events

import (
	"strconv"

	"github.com/holiman/uint256"

	"kaiadefi/core/types"
	"kaiadefi/crypto"
)

const (
	// TypeStaked is emitted when a user opens a stake position against a node.
	TypeStaked = "staking.staked"
	// TypeWithdrawn is emitted when principal leaves a stake position.
	TypeWithdrawn = "staking.withdrawn"
	// TypeRewardClaimed is emitted when accrued rewards are paid from the pool.
	TypeRewardClaimed = "staking.rewardClaimed"
	// TypeNodeAdded is emitted when the operator registers a node.
	TypeNodeAdded = "staking.nodeAdded"
	// TypeNodeUpdated is emitted when the operator changes node parameters.
	TypeNodeUpdated = "staking.nodeUpdated"
	// TypeRewardsAdded is emitted when the operator funds the reward pool.
	TypeRewardsAdded = "staking.rewardsAdded"
)

// Staked captures a new stake position.
type Staked struct {
	User       crypto.Address
	Amount     *uint256.Int
	NodeID     uint64
	StakeIndex uint64
	Timestamp  uint64
}

// EventType satisfies the Event interface.
func (Staked) EventType() string { return TypeStaked }

// Event converts the structured payload into a broadcastable event.
func (e Staked) Event() *types.Event {
	return &types.Event{Type: TypeStaked, Attributes: map[string]string{
		"user":       formatAddress(e.User),
		"amount":     formatAmount(e.Amount),
		"nodeId":     formatUint(e.NodeID),
		"stakeIndex": formatUint(e.StakeIndex),
		"timestamp":  formatUint(e.Timestamp),
	}}
}

// Withdrawn captures principal returned from a stake position. Remaining is
// the principal left in the position.
type Withdrawn struct {
	User       crypto.Address
	Amount     *uint256.Int
	Remaining  *uint256.Int
	NodeID     uint64
	StakeIndex uint64
	Timestamp  uint64
}

// EventType satisfies the Event interface.
func (Withdrawn) EventType() string { return TypeWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e Withdrawn) Event() *types.Event {
	return &types.Event{Type: TypeWithdrawn, Attributes: map[string]string{
		"user":       formatAddress(e.User),
		"amount":     formatAmount(e.Amount),
		"remaining":  formatAmount(e.Remaining),
		"nodeId":     formatUint(e.NodeID),
		"stakeIndex": formatUint(e.StakeIndex),
		"timestamp":  formatUint(e.Timestamp),
	}}
}

// RewardClaimed captures a reward payout.
type RewardClaimed struct {
	User      crypto.Address
	Amount    *uint256.Int
	Timestamp uint64
}

// EventType satisfies the Event interface.
func (RewardClaimed) EventType() string { return TypeRewardClaimed }

// Event converts the structured payload into a broadcastable event.
func (e RewardClaimed) Event() *types.Event {
	return &types.Event{Type: TypeRewardClaimed, Attributes: map[string]string{
		"user":      formatAddress(e.User),
		"amount":    formatAmount(e.Amount),
		"timestamp": formatUint(e.Timestamp),
	}}
}

type NodeAdded struct {
	NodeID         uint64
	Name           string
	AnnualRateBps  uint64
	SecurityRating uint64
	MaxCapacity    *uint256.Int
}

func (NodeAdded) EventType() string { return TypeNodeAdded }

func (e NodeAdded) Event() *types.Event {
	return &types.Event{Type: TypeNodeAdded, Attributes: map[string]string{
		"nodeId":         formatUint(e.NodeID),
		"name":           e.Name,
		"annualRate":     formatUint(e.AnnualRateBps),
		"securityRating": formatUint(e.SecurityRating),
		"maxCapacity":    formatAmount(e.MaxCapacity),
	}}
}

type NodeUpdated struct {
	NodeID         uint64
	AnnualRateBps  uint64
	SecurityRating uint64
	IsActive       bool
	MaxCapacity    *uint256.Int
}

func (NodeUpdated) EventType() string { return TypeNodeUpdated }

func (e NodeUpdated) Event() *types.Event {
	return &types.Event{Type: TypeNodeUpdated, Attributes: map[string]string{
		"nodeId":         formatUint(e.NodeID),
		"annualRate":     formatUint(e.AnnualRateBps),
		"securityRating": formatUint(e.SecurityRating),
		"isActive":       strconv.FormatBool(e.IsActive),
		"maxCapacity":    formatAmount(e.MaxCapacity),
	}}
}

// RewardsAdded captures an operator top-up of the reward pool.
type RewardsAdded struct {
	Operator   crypto.Address
	Amount     *uint256.Int
	RewardPool *uint256.Int
	Timestamp  uint64
}

func (RewardsAdded) EventType() string { return TypeRewardsAdded }

func (e RewardsAdded) Event() *types.Event {
	return &types.Event{Type: TypeRewardsAdded, Attributes: map[string]string{
		"operator":   formatAddress(e.Operator),
		"amount":     formatAmount(e.Amount),
		"rewardPool": formatAmount(e.RewardPool),
		"timestamp":  formatUint(e.Timestamp),
	}}
}
