package core

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"kaiadefi/core/types"
	"kaiadefi/crypto"
	"kaiadefi/native/lending"
	"kaiadefi/native/staking"
)

// Allocation credits an account at genesis.
type Allocation struct {
	Address crypto.Address
	Asset   string
	Amount  *uint256.Int
}

// Genesis describes the initial ledger state.
type Genesis struct {
	Operator     crypto.Address
	Nodes        []staking.NodeSpec
	Alloc        []Allocation
	RewardPool   *uint256.Int
	Reserve      *uint256.Int
	ExchangeRate *uint256.Int
}

// DefaultGenesis registers the three launch nodes and leaves the pools empty.
func DefaultGenesis(operator crypto.Address) *Genesis {
	return &Genesis{
		Operator: operator,
		Nodes: []staking.NodeSpec{
			{Name: "Kaia Wave Node", AnnualRateBps: 600, SecurityRating: 5, IsActive: true, MaxCapacity: types.Units(1_000_000, 6)},
			{Name: "Kaia Storm Node", AnnualRateBps: 550, SecurityRating: 4, IsActive: true, MaxCapacity: types.Units(500_000, 6)},
			{Name: "Kaia Thunder Node", AnnualRateBps: 700, SecurityRating: 3, IsActive: true, MaxCapacity: types.Units(250_000, 6)},
		},
		ExchangeRate: lending.DefaultExchangeRate(),
	}
}

// Validate checks the genesis document before it is applied.
func (g *Genesis) Validate() error {
	if g == nil {
		return fmt.Errorf("genesis: document required")
	}
	if g.Operator == (crypto.Address{}) {
		return fmt.Errorf("genesis: operator required")
	}
	if g.ExchangeRate != nil && g.ExchangeRate.IsZero() {
		return fmt.Errorf("genesis: exchange rate must be positive")
	}
	for i, alloc := range g.Alloc {
		if alloc.Address == (crypto.Address{}) {
			return fmt.Errorf("genesis: alloc %d: address required", i)
		}
		if alloc.Amount == nil || alloc.Amount.IsZero() {
			return fmt.Errorf("genesis: alloc %d: amount must be positive", i)
		}
	}
	return nil
}

// InitGenesis applies g once. It reports false without touching state when the
// ledger was already initialised.
func (l *Ledger) InitGenesis(ctx context.Context, g *Genesis) (bool, error) {
	if err := g.Validate(); err != nil {
		return false, err
	}
	applied := false
	err := l.execute(ctx, "genesis", g.Operator, func(s *session) error {
		if _, done, err := s.txn.GenesisTime(); err != nil || done {
			return err
		}
		if err := s.txn.SetOperator(g.Operator); err != nil {
			return err
		}
		for _, spec := range g.Nodes {
			if _, err := s.staking.AddNode(g.Operator, spec); err != nil {
				return fmt.Errorf("genesis: node %q: %w", spec.Name, err)
			}
		}
		for _, alloc := range g.Alloc {
			if err := s.bank.Mint(alloc.Asset, alloc.Address, alloc.Amount); err != nil {
				return fmt.Errorf("genesis: alloc %s: %w", alloc.Address.Hex(), err)
			}
		}
		if g.RewardPool != nil && !g.RewardPool.IsZero() {
			if err := s.bank.Mint(l.params.Staking.Asset, l.stakingAddr, g.RewardPool); err != nil {
				return err
			}
			if err := s.staking.FundRewardPool(g.RewardPool); err != nil {
				return err
			}
		}
		reserve := types.CloneAmount(g.Reserve)
		if !reserve.IsZero() {
			if err := s.bank.Mint(l.params.Lending.BorrowAsset, l.lendingAddr, reserve); err != nil {
				return err
			}
		}
		rate := g.ExchangeRate
		if rate == nil {
			rate = lending.DefaultExchangeRate()
		}
		if err := s.lending.Bootstrap(rate, reserve); err != nil {
			return err
		}
		applied = true
		return s.txn.MarkGenesis(s.now)
	})
	return applied, err
}

// GenesisTime reports when genesis was applied.
func (l *Ledger) GenesisTime() (uint64, bool, error) {
	var (
		ts uint64
		ok bool
	)
	err := l.view(func(s *session) error {
		var err error
		ts, ok, err = s.txn.GenesisTime()
		return err
	})
	return ts, ok, err
}
