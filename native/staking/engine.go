package staking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	coreerrors "kaiadefi/core/errors"
	"kaiadefi/core/events"
	"kaiadefi/core/types"
	"kaiadefi/crypto"
	nativecommon "kaiadefi/native/common"
)

var (
	errNilState       = errors.New("staking engine: state not configured")
	errNilTokens      = errors.New("staking engine: token ledger not configured")
	errRewardOverflow = errors.New("staking engine: reward overflow")
	errNodeMissing    = errors.New("staking engine: node record missing")
)

// Coded failures surfaced to callers.
var (
	ErrBelowMinimum       = coreerrors.New(coreerrors.KindValidation, "BelowMinimum", "Amount below minimum stake")
	ErrInvalidNode        = coreerrors.New(coreerrors.KindValidation, "InvalidNode", "Invalid node ID")
	ErrNodeInactive       = coreerrors.New(coreerrors.KindState, "NodeInactive", "Node is not active")
	ErrCapacityExceeded   = coreerrors.New(coreerrors.KindCapacity, "CapacityExceeded", "Node capacity exceeded")
	ErrInvalidIndex       = coreerrors.New(coreerrors.KindValidation, "InvalidIndex", "Invalid stake index")
	ErrInsufficientStaked = coreerrors.New(coreerrors.KindValidation, "InsufficientStaked", "Insufficient staked amount")
	ErrNoRewards          = coreerrors.New(coreerrors.KindState, "NoRewards", "No rewards to claim")
	ErrPoolExhausted      = coreerrors.New(coreerrors.KindCapacity, "PoolExhausted", "Insufficient reward pool")
	ErrInvalidRating      = coreerrors.New(coreerrors.KindValidation, "InvalidRating", "Invalid security rating")
	ErrInvalidNodeName    = coreerrors.New(coreerrors.KindValidation, "InvalidNodeName", "Node name required")
	ErrInvalidCapacity    = coreerrors.New(coreerrors.KindValidation, "InvalidCapacity", "Node capacity must be positive")
)

const moduleName = nativecommon.ModuleStaking

type engineState interface {
	StakingPool() (*Pool, error)
	PutStakingPool(pool *Pool) error
	StakingNode(id uint64) (*Node, bool, error)
	PutStakingNode(node *Node) error
	StakingPositions(addr crypto.Address) ([]*Stake, error)
	PutStakingPositions(addr crypto.Address, stakes []*Stake) error
}

type tokenLedger interface {
	Transfer(asset string, from, to crypto.Address, amount *uint256.Int) error
	TransferFrom(asset string, spender, from, to crypto.Address, amount *uint256.Int) error
}

// Engine applies staking state transitions. It is not safe for concurrent use;
// callers serialise operations and discard state on error.
type Engine struct {
	state         engineState
	tokens        tokenLedger
	params        Params
	moduleAddress crypto.Address
	pauses        nativecommon.PauseView
	operators     nativecommon.OperatorView
	emitter       events.Emitter
	now           uint64
}

// NewEngine constructs a staking engine holding funds at moduleAddr.
func NewEngine(moduleAddr crypto.Address, params Params) *Engine {
	params.Asset = strings.ToUpper(strings.TrimSpace(params.Asset))
	params.MinStake = types.CloneAmount(params.MinStake)
	return &Engine{moduleAddress: moduleAddr, params: params, emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokens wires the asset ledger used to move principal and rewards.
func (e *Engine) SetTokens(tokens tokenLedger) { e.tokens = tokens }

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

func (e *Engine) SetOperators(v nativecommon.OperatorView) {
	if e == nil {
		return
	}
	e.operators = v
}

// SetEmitter configures the event sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetNow records the unix timestamp used for accrual.
func (e *Engine) SetNow(ts uint64) { e.now = ts }

// Params returns the engine configuration.
func (e *Engine) Params() Params {
	out := e.params
	out.MinStake = types.CloneAmount(e.params.MinStake)
	return out
}

// ModuleAddress returns the account holding staked principal and the reward
// pool.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

func (e *Engine) ready() error {
	if e.state == nil {
		return errNilState
	}
	if e.tokens == nil {
		return errNilTokens
	}
	return nil
}

// Stake opens a new position of amount against nodeID, pulling the funds from
// user through the approved allowance. It returns the position index.
func (e *Engine) Stake(user crypto.Address, amount *uint256.Int, nodeID uint64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if amount == nil || amount.Lt(e.params.MinStake) || amount.IsZero() {
		return 0, ErrBelowMinimum
	}
	pool, err := e.pool()
	if err != nil {
		return 0, err
	}
	if nodeID >= pool.NodeCount {
		return 0, ErrInvalidNode
	}
	node, err := e.node(nodeID)
	if err != nil {
		return 0, err
	}
	if !node.IsActive {
		return 0, ErrNodeInactive
	}
	nodeTotal, overflow := new(uint256.Int).AddOverflow(node.TotalStaked, amount)
	if overflow || nodeTotal.Gt(node.MaxCapacity) {
		return 0, coreerrors.Wrap(ErrCapacityExceeded, "node %d has %s available", nodeID, node.Available().Dec())
	}
	poolTotal, overflow := new(uint256.Int).AddOverflow(pool.TotalStaked, amount)
	if overflow {
		return 0, ErrCapacityExceeded
	}
	stakes, err := e.state.StakingPositions(user)
	if err != nil {
		return 0, err
	}

	if err := e.tokens.TransferFrom(e.params.Asset, e.moduleAddress, user, e.moduleAddress, amount); err != nil {
		return 0, coreerrors.Wrap(coreerrors.ErrTransferFailed, "%v", err)
	}

	index := uint64(len(stakes))
	stakes = append(stakes, &Stake{
		Amount:        new(uint256.Int).Set(amount),
		NodeID:        nodeID,
		StakeTime:     e.now,
		PendingReward: new(uint256.Int),
		CreatedAt:     e.now,
	})
	node.TotalStaked = nodeTotal
	pool.TotalStaked = poolTotal
	if err := e.state.PutStakingPositions(user, stakes); err != nil {
		return 0, err
	}
	if err := e.state.PutStakingNode(node); err != nil {
		return 0, err
	}
	if err := e.state.PutStakingPool(pool); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.Staked{User: user, Amount: new(uint256.Int).Set(amount), NodeID: nodeID, StakeIndex: index, Timestamp: e.now})
	return index, nil
}

// Withdraw returns principal from the position at index. A zero amount
// withdraws the whole position. Reward accrued so far is crystallised into the
// position and stays claimable.
func (e *Engine) Withdraw(user crypto.Address, index uint64, amount *uint256.Int) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	stakes, err := e.state.StakingPositions(user)
	if err != nil {
		return nil, err
	}
	if index >= uint64(len(stakes)) {
		return nil, ErrInvalidIndex
	}
	stake := stakes[index]
	if !stake.Active() {
		return nil, ErrInsufficientStaked
	}
	if amount == nil || amount.IsZero() {
		amount = new(uint256.Int).Set(stake.Amount)
	}
	if amount.Gt(stake.Amount) {
		return nil, coreerrors.Wrap(ErrInsufficientStaked, "position holds %s", stake.Amount.Dec())
	}
	node, err := e.node(stake.NodeID)
	if err != nil {
		return nil, err
	}
	pool, err := e.pool()
	if err != nil {
		return nil, err
	}
	reward, err := positionReward(stake, node, e.now)
	if err != nil {
		return nil, err
	}

	if err := e.tokens.Transfer(e.params.Asset, e.moduleAddress, user, amount); err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrTransferFailed, "%v", err)
	}

	stake.PendingReward = reward
	stake.StakeTime = e.now
	stake.Amount = new(uint256.Int).Sub(stake.Amount, amount)
	node.TotalStaked = subFloor(node.TotalStaked, amount)
	pool.TotalStaked = subFloor(pool.TotalStaked, amount)
	if err := e.state.PutStakingPositions(user, stakes); err != nil {
		return nil, err
	}
	if err := e.state.PutStakingNode(node); err != nil {
		return nil, err
	}
	if err := e.state.PutStakingPool(pool); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Withdrawn{
		User:       user,
		Amount:     new(uint256.Int).Set(amount),
		Remaining:  new(uint256.Int).Set(stake.Amount),
		NodeID:     stake.NodeID,
		StakeIndex: index,
		Timestamp:  e.now,
	})
	return amount, nil
}

// Reward sums the claimable reward across every position of user.
func (e *Engine) Reward(user crypto.Address) (*uint256.Int, error) {
	views, err := e.StakeHistory(user)
	if err != nil {
		return nil, err
	}
	total := new(uint256.Int)
	for _, view := range views {
		var overflow bool
		if total, overflow = total.AddOverflow(total, view.Reward); overflow {
			return nil, errRewardOverflow
		}
	}
	return total, nil
}

// ClaimRewards pays the full claimable reward of user out of the reward pool
// and restarts accrual on every position.
func (e *Engine) ClaimRewards(user crypto.Address) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	stakes, err := e.state.StakingPositions(user)
	if err != nil {
		return nil, err
	}
	nodes := make(map[uint64]*Node)
	total := new(uint256.Int)
	for _, stake := range stakes {
		node, ok := nodes[stake.NodeID]
		if !ok {
			if node, err = e.node(stake.NodeID); err != nil {
				return nil, err
			}
			nodes[stake.NodeID] = node
		}
		reward, err := positionReward(stake, node, e.now)
		if err != nil {
			return nil, err
		}
		var overflow bool
		if total, overflow = total.AddOverflow(total, reward); overflow {
			return nil, errRewardOverflow
		}
	}
	if total.IsZero() {
		return nil, ErrNoRewards
	}
	pool, err := e.pool()
	if err != nil {
		return nil, err
	}
	if pool.RewardPool.Lt(total) {
		return nil, coreerrors.Wrap(ErrPoolExhausted, "reward %s exceeds pool %s", total.Dec(), pool.RewardPool.Dec())
	}

	if err := e.tokens.Transfer(e.params.Asset, e.moduleAddress, user, total); err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrTransferFailed, "%v", err)
	}

	for _, stake := range stakes {
		stake.PendingReward = new(uint256.Int)
		stake.StakeTime = e.now
	}
	pool.RewardPool = new(uint256.Int).Sub(pool.RewardPool, total)
	pool.TotalClaimed = new(uint256.Int).Add(pool.TotalClaimed, total)
	if err := e.state.PutStakingPositions(user, stakes); err != nil {
		return nil, err
	}
	if err := e.state.PutStakingPool(pool); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.RewardClaimed{User: user, Amount: new(uint256.Int).Set(total), Timestamp: e.now})
	return total, nil
}

// AddNode registers a node under the next sequential id.
func (e *Engine) AddNode(caller crypto.Address, spec NodeSpec) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := nativecommon.RequireOperator(e.operators, caller); err != nil {
		return 0, err
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return 0, ErrInvalidNodeName
	}
	if err := validateNodeSpec(spec); err != nil {
		return 0, err
	}
	pool, err := e.pool()
	if err != nil {
		return 0, err
	}
	node := &Node{
		ID:             pool.NodeCount,
		Name:           name,
		AnnualRateBps:  spec.AnnualRateBps,
		SecurityRating: spec.SecurityRating,
		IsActive:       spec.IsActive,
		TotalStaked:    new(uint256.Int),
		MaxCapacity:    new(uint256.Int).Set(spec.MaxCapacity),
		CreatedAt:      e.now,
	}
	pool.NodeCount++
	if err := e.state.PutStakingNode(node); err != nil {
		return 0, err
	}
	if err := e.state.PutStakingPool(pool); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.NodeAdded{
		NodeID:         node.ID,
		Name:           node.Name,
		AnnualRateBps:  node.AnnualRateBps,
		SecurityRating: node.SecurityRating,
		MaxCapacity:    new(uint256.Int).Set(node.MaxCapacity),
	})
	return node.ID, nil
}

// UpdateNode replaces the rate, rating, activity flag and capacity of a node.
// The name is immutable. A new rate applies to all reward not yet
// crystallised.
func (e *Engine) UpdateNode(caller crypto.Address, id uint64, spec NodeSpec) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.RequireOperator(e.operators, caller); err != nil {
		return err
	}
	pool, err := e.pool()
	if err != nil {
		return err
	}
	if id >= pool.NodeCount {
		return ErrInvalidNode
	}
	if err := validateNodeSpec(spec); err != nil {
		return err
	}
	node, err := e.node(id)
	if err != nil {
		return err
	}
	node.AnnualRateBps = spec.AnnualRateBps
	node.SecurityRating = spec.SecurityRating
	node.IsActive = spec.IsActive
	node.MaxCapacity = new(uint256.Int).Set(spec.MaxCapacity)
	if err := e.state.PutStakingNode(node); err != nil {
		return err
	}
	e.emitter.Emit(events.NodeUpdated{
		NodeID:         node.ID,
		AnnualRateBps:  node.AnnualRateBps,
		SecurityRating: node.SecurityRating,
		IsActive:       node.IsActive,
		MaxCapacity:    new(uint256.Int).Set(node.MaxCapacity),
	})
	return nil
}

func validateNodeSpec(spec NodeSpec) error {
	if spec.SecurityRating < MinRating || spec.SecurityRating > MaxRating {
		return ErrInvalidRating
	}
	if spec.MaxCapacity == nil || spec.MaxCapacity.IsZero() {
		return ErrInvalidCapacity
	}
	return nil
}

// AddRewards moves amount from the operator into the reward pool.
func (e *Engine) AddRewards(caller crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.RequireOperator(e.operators, caller); err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, coreerrors.ErrInvalidAmount
	}
	pool, err := e.pool()
	if err != nil {
		return nil, err
	}
	next, overflow := new(uint256.Int).AddOverflow(pool.RewardPool, amount)
	if overflow {
		return nil, errRewardOverflow
	}
	if err := e.tokens.TransferFrom(e.params.Asset, e.moduleAddress, caller, e.moduleAddress, amount); err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrTransferFailed, "%v", err)
	}
	pool.RewardPool = next
	if err := e.state.PutStakingPool(pool); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.RewardsAdded{Operator: caller, Amount: new(uint256.Int).Set(amount), RewardPool: new(uint256.Int).Set(next), Timestamp: e.now})
	return next, nil
}

// FundRewardPool credits the reward pool for funds already held by the module
// account. Genesis uses it after minting.
func (e *Engine) FundRewardPool(amount *uint256.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	pool, err := e.pool()
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(pool.RewardPool, amount)
	if overflow {
		return errRewardOverflow
	}
	pool.RewardPool = next
	return e.state.PutStakingPool(pool)
}

// EmergencyWithdraw sweeps amount of any asset held by the module account to
// the operator. Ledger totals are left untouched.
func (e *Engine) EmergencyWithdraw(caller crypto.Address, asset string, amount *uint256.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.RequireOperator(e.operators, caller); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return coreerrors.ErrInvalidAmount
	}
	if err := e.tokens.Transfer(asset, e.moduleAddress, caller, amount); err != nil {
		return coreerrors.Wrap(coreerrors.ErrTransferFailed, "%v", err)
	}
	e.emitter.Emit(events.EmergencyWithdrawal{Module: moduleName, Asset: asset, Operator: caller, Amount: new(uint256.Int).Set(amount), Timestamp: e.now})
	return nil
}

// Pool returns the staking totals.
func (e *Engine) Pool() (*Pool, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.pool()
}

// NodeCount returns the number of registered nodes.
func (e *Engine) NodeCount() (uint64, error) {
	pool, err := e.Pool()
	if err != nil {
		return 0, err
	}
	return pool.NodeCount, nil
}

// Node returns a single node by id.
func (e *Engine) Node(id uint64) (*Node, error) {
	count, err := e.NodeCount()
	if err != nil {
		return nil, err
	}
	if id >= count {
		return nil, ErrInvalidNode
	}
	return e.node(id)
}

// Nodes returns every node in id order.
func (e *Engine) Nodes() ([]*Node, error) {
	count, err := e.NodeCount()
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, count)
	for id := uint64(0); id < count; id++ {
		node, err := e.node(id)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// ActiveNodes returns the active nodes preserving insertion order.
func (e *Engine) ActiveNodes() ([]*Node, error) {
	nodes, err := e.Nodes()
	if err != nil {
		return nil, err
	}
	active := nodes[:0]
	for _, node := range nodes {
		if node.IsActive {
			active = append(active, node)
		}
	}
	return active, nil
}

// StakedAmount sums the principal of every position held by user.
func (e *Engine) StakedAmount(user crypto.Address) (*uint256.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	stakes, err := e.state.StakingPositions(user)
	if err != nil {
		return nil, err
	}
	total := new(uint256.Int)
	for _, stake := range stakes {
		if stake.Active() {
			total.Add(total, stake.Amount)
		}
	}
	return total, nil
}

// StakeHistory lists every position of user, including fully withdrawn ones,
// with its claimable reward.
func (e *Engine) StakeHistory(user crypto.Address) ([]StakeView, error) {
	if e.state == nil {
		return nil, errNilState
	}
	stakes, err := e.state.StakingPositions(user)
	if err != nil {
		return nil, err
	}
	nodes := make(map[uint64]*Node)
	views := make([]StakeView, 0, len(stakes))
	for i, stake := range stakes {
		node, ok := nodes[stake.NodeID]
		if !ok {
			if node, err = e.node(stake.NodeID); err != nil {
				return nil, err
			}
			nodes[stake.NodeID] = node
		}
		reward, err := positionReward(stake, node, e.now)
		if err != nil {
			return nil, err
		}
		views = append(views, StakeView{Index: uint64(i), Stake: stake, Reward: reward})
	}
	return views, nil
}

func (e *Engine) pool() (*Pool, error) {
	pool, err := e.state.StakingPool()
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

func (e *Engine) node(id uint64) (*Node, error) {
	node, ok, err := e.state.StakingNode(id)
	if err != nil {
		return nil, err
	}
	if !ok || node == nil {
		return nil, fmt.Errorf("%w: %d", errNodeMissing, id)
	}
	node = node.Clone()
	return node, nil
}

func subFloor(a, b *uint256.Int) *uint256.Int {
	a = types.CloneAmount(a)
	if b == nil || a.Lt(b) {
		return new(uint256.Int)
	}
	return a.Sub(a, b)
}
