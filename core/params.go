package core

import (
	"fmt"

	"kaiadefi/core/types"
	"kaiadefi/native/bank"
	"kaiadefi/native/lending"
	"kaiadefi/native/staking"
)

// Params groups the configuration of every ledger module.
type Params struct {
	Assets  []bank.Asset
	Staking staking.Params
	Lending lending.Params
}

// DefaultParams registers USDT (6 decimals) and KAIA (18 decimals) with the
// default staking and lending parameters.
func DefaultParams() Params {
	return Params{
		Assets: []bank.Asset{
			{Symbol: "USDT", Decimals: 6},
			{Symbol: "KAIA", Decimals: 18},
		},
		Staking: staking.DefaultParams(),
		Lending: lending.DefaultParams(),
	}
}

// Validate checks each module and that the modules agree on their assets.
func (p Params) Validate() error {
	if err := p.Staking.Validate(); err != nil {
		return err
	}
	if err := p.Lending.Validate(); err != nil {
		return err
	}
	registered := make(map[string]uint8, len(p.Assets))
	for _, asset := range p.Assets {
		symbol := bank.NormalizeSymbol(asset.Symbol)
		if symbol == "" {
			return fmt.Errorf("core: asset symbol required")
		}
		if asset.Decimals > types.MaxDecimals {
			return fmt.Errorf("core: asset %s decimals above %d", symbol, types.MaxDecimals)
		}
		if _, dup := registered[symbol]; dup {
			return fmt.Errorf("core: duplicate asset %s", symbol)
		}
		registered[symbol] = asset.Decimals
	}
	staked := bank.NormalizeSymbol(p.Staking.Asset)
	if _, ok := registered[staked]; !ok {
		return fmt.Errorf("core: staking asset %s not registered", staked)
	}
	collateral := bank.NormalizeSymbol(p.Lending.CollateralAsset)
	if collateral != staked {
		return fmt.Errorf("core: collateral asset %s must be the staked asset %s", collateral, staked)
	}
	if dec := registered[collateral]; dec != p.Lending.CollateralDecimals {
		return fmt.Errorf("core: collateral decimals %d do not match asset %s (%d)", p.Lending.CollateralDecimals, collateral, dec)
	}
	borrow := bank.NormalizeSymbol(p.Lending.BorrowAsset)
	dec, ok := registered[borrow]
	if !ok {
		return fmt.Errorf("core: borrow asset %s not registered", borrow)
	}
	if dec != p.Lending.BorrowDecimals {
		return fmt.Errorf("core: borrow decimals %d do not match asset %s (%d)", p.Lending.BorrowDecimals, borrow, dec)
	}
	return nil
}

func (p Params) decimals(symbol string) uint8 {
	symbol = bank.NormalizeSymbol(symbol)
	for _, asset := range p.Assets {
		if bank.NormalizeSymbol(asset.Symbol) == symbol {
			return asset.Decimals
		}
	}
	return 0
}
