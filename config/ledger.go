package config

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"kaiadefi/core"
	"kaiadefi/core/types"
	"kaiadefi/crypto"
	"kaiadefi/native/bank"
	"kaiadefi/native/lending"
	"kaiadefi/native/staking"
)

// Params converts the file into ledger parameters.
func (c *Config) Params() (core.Params, error) {
	var params core.Params
	decimals := make(map[string]uint8, len(c.Assets))
	for _, asset := range c.Assets {
		symbol := bank.NormalizeSymbol(asset.Symbol)
		params.Assets = append(params.Assets, bank.Asset{Symbol: symbol, Decimals: asset.Decimals})
		decimals[symbol] = asset.Decimals
	}

	stakeAsset := bank.NormalizeSymbol(c.Staking.Asset)
	minStake, err := parseAmount("Staking.MinStake", c.Staking.MinStake, decimals[stakeAsset])
	if err != nil {
		return params, err
	}
	params.Staking = staking.Params{Asset: stakeAsset, MinStake: minStake}

	borrowAsset := bank.NormalizeSymbol(c.Lending.BorrowAsset)
	collateralAsset := bank.NormalizeSymbol(c.Lending.CollateralAsset)
	minLoan, err := parseAmount("Lending.MinLoanAmount", c.Lending.MinLoanAmount, decimals[borrowAsset])
	if err != nil {
		return params, err
	}
	terms := make([]lending.TermRate, 0, len(c.Lending.Terms))
	for _, term := range c.Lending.Terms {
		terms = append(terms, lending.TermRate{Days: term.Days, DailyRateBps: term.DailyRateBps})
	}
	params.Lending = lending.Params{
		BorrowAsset:        borrowAsset,
		BorrowDecimals:     decimals[borrowAsset],
		CollateralAsset:    collateralAsset,
		CollateralDecimals: decimals[collateralAsset],
		CollateralRatioBps: c.Lending.CollateralRatioBps,
		MinLoanAmount:      minLoan,
		Terms:              terms,
		LenientRepayment:   c.Lending.LenientRepayment,
	}
	return params, nil
}

// ToGenesis converts the Genesis section into a ledger genesis document.
func (c *Config) ToGenesis() (*core.Genesis, error) {
	params, err := c.Params()
	if err != nil {
		return nil, err
	}
	g, err := c.genesis(params)
	if err != nil {
		return nil, err
	}
	if g.Operator == (crypto.Address{}) {
		return nil, fmt.Errorf("config: Operator required (or set %s)", OperatorEnv)
	}
	return g, nil
}

func (c *Config) genesis(params core.Params) (*core.Genesis, error) {
	g := &core.Genesis{}
	if operator := strings.TrimSpace(c.Operator); operator != "" {
		addr, err := crypto.ParseAddress(operator)
		if err != nil {
			return nil, fmt.Errorf("config: Operator: %w", err)
		}
		g.Operator = addr
	}

	stakeDecimals := params.Lending.CollateralDecimals
	rate, err := parseAmount("Genesis.ExchangeRate", c.Genesis.ExchangeRate, 18)
	if err != nil {
		return nil, err
	}
	if rate.IsZero() {
		rate = lending.DefaultExchangeRate()
	}
	g.ExchangeRate = rate
	if g.RewardPool, err = parseAmount("Genesis.RewardPool", c.Genesis.RewardPool, stakeDecimals); err != nil {
		return nil, err
	}
	if g.Reserve, err = parseAmount("Genesis.Reserve", c.Genesis.Reserve, params.Lending.BorrowDecimals); err != nil {
		return nil, err
	}

	for i, node := range c.Genesis.Nodes {
		capacity, err := parseAmount(fmt.Sprintf("Genesis.Nodes[%d].MaxCapacity", i), node.MaxCapacity, stakeDecimals)
		if err != nil {
			return nil, err
		}
		g.Nodes = append(g.Nodes, staking.NodeSpec{
			Name:           strings.TrimSpace(node.Name),
			AnnualRateBps:  node.AnnualRateBps,
			SecurityRating: node.SecurityRating,
			IsActive:       !node.Inactive,
			MaxCapacity:    capacity,
		})
	}

	decimals := make(map[string]uint8, len(params.Assets))
	for _, asset := range params.Assets {
		decimals[asset.Symbol] = asset.Decimals
	}
	for i, alloc := range c.Genesis.Alloc {
		field := fmt.Sprintf("Genesis.Alloc[%d]", i)
		addr, err := crypto.ParseAddress(strings.TrimSpace(alloc.Address))
		if err != nil {
			return nil, fmt.Errorf("config: %s.Address: %w", field, err)
		}
		symbol := bank.NormalizeSymbol(alloc.Asset)
		dec, ok := decimals[symbol]
		if !ok {
			return nil, fmt.Errorf("config: %s.Asset: unknown asset %q", field, alloc.Asset)
		}
		amount, err := parseAmount(field+".Amount", alloc.Amount, dec)
		if err != nil {
			return nil, err
		}
		g.Alloc = append(g.Alloc, core.Allocation{Address: addr, Asset: symbol, Amount: amount})
	}
	return g, nil
}

func parseAmount(field, value string, decimals uint8) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return new(uint256.Int), nil
	}
	amount, err := types.ParseUnits(value, decimals)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", field, err)
	}
	return amount, nil
}
