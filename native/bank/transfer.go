package bank

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	coreerrors "kaiadefi/core/errors"
	"kaiadefi/core/events"
	"kaiadefi/crypto"
)

var (
	errNilState = errors.New("bank: state not configured")

	ErrUnknownAsset          = coreerrors.New(coreerrors.KindValidation, "UnknownAsset", "unknown asset")
	ErrInsufficientBalance   = coreerrors.New(coreerrors.KindTransfer, "InsufficientBalance", "insufficient balance")
	ErrInsufficientAllowance = coreerrors.New(coreerrors.KindTransfer, "InsufficientAllowance", "insufficient allowance")
	ErrBalanceOverflow       = coreerrors.New(coreerrors.KindTransfer, "BalanceOverflow", "balance overflow")
)

// Asset describes a fungible token tracked by the ledger.
type Asset struct {
	Symbol   string
	Decimals uint8
}

type engineState interface {
	Balance(asset string, addr crypto.Address) (*uint256.Int, error)
	SetBalance(asset string, addr crypto.Address, amount *uint256.Int) error
	Allowance(asset string, owner, spender crypto.Address) (*uint256.Int, error)
	SetAllowance(asset string, owner, spender crypto.Address, amount *uint256.Int) error
}

// Ledger moves registered assets between accounts with ERC-20 style
// allowance semantics.
type Ledger struct {
	state   engineState
	assets  map[string]Asset
	emitter events.Emitter
}

// NewLedger registers the supplied assets.
func NewLedger(assets ...Asset) *Ledger {
	l := &Ledger{assets: make(map[string]Asset, len(assets)), emitter: events.NoopEmitter{}}
	for _, asset := range assets {
		symbol := NormalizeSymbol(asset.Symbol)
		if symbol == "" {
			continue
		}
		asset.Symbol = symbol
		l.assets[symbol] = asset
	}
	return l
}

// SetState wires the ledger to the external persistence layer.
func (l *Ledger) SetState(state engineState) { l.state = state }

// SetEmitter configures the sink for transfer and approval events.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	l.emitter = emitter
}

// NormalizeSymbol upper-cases and trims an asset symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Asset returns the metadata for a registered asset.
func (l *Ledger) Asset(symbol string) (Asset, error) {
	asset, ok := l.assets[NormalizeSymbol(symbol)]
	if !ok {
		return Asset{}, coreerrors.Wrap(ErrUnknownAsset, "%q", symbol)
	}
	return asset, nil
}

// Assets lists registered assets.
func (l *Ledger) Assets() []Asset {
	out := make([]Asset, 0, len(l.assets))
	for _, asset := range l.assets {
		out = append(out, asset)
	}
	return out
}

// BalanceOf returns the balance of addr in asset.
func (l *Ledger) BalanceOf(symbol string, addr crypto.Address) (*uint256.Int, error) {
	asset, err := l.Asset(symbol)
	if err != nil {
		return nil, err
	}
	if l.state == nil {
		return nil, errNilState
	}
	return l.state.Balance(asset.Symbol, addr)
}

// Allowance returns how much spender may still pull from owner.
func (l *Ledger) Allowance(symbol string, owner, spender crypto.Address) (*uint256.Int, error) {
	asset, err := l.Asset(symbol)
	if err != nil {
		return nil, err
	}
	if l.state == nil {
		return nil, errNilState
	}
	return l.state.Allowance(asset.Symbol, owner, spender)
}

// Approve sets the allowance of spender over owner's balance, replacing any
// previous value.
func (l *Ledger) Approve(symbol string, owner, spender crypto.Address, amount *uint256.Int) error {
	asset, err := l.Asset(symbol)
	if err != nil {
		return err
	}
	if l.state == nil {
		return errNilState
	}
	if amount == nil {
		amount = new(uint256.Int)
	}
	if err := l.state.SetAllowance(asset.Symbol, owner, spender, amount); err != nil {
		return err
	}
	l.emitter.Emit(events.Approval{Asset: asset.Symbol, Owner: owner, Spender: spender, Amount: new(uint256.Int).Set(amount)})
	return nil
}

// Transfer moves amount from one account to another. A zero amount is a
// no-op.
func (l *Ledger) Transfer(symbol string, from, to crypto.Address, amount *uint256.Int) error {
	asset, err := l.Asset(symbol)
	if err != nil {
		return err
	}
	if l.state == nil {
		return errNilState
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	return l.move(asset.Symbol, from, to, amount)
}

// TransferFrom moves amount out of from on behalf of spender, consuming the
// allowance.
func (l *Ledger) TransferFrom(symbol string, spender, from, to crypto.Address, amount *uint256.Int) error {
	asset, err := l.Asset(symbol)
	if err != nil {
		return err
	}
	if l.state == nil {
		return errNilState
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	allowance, err := l.state.Allowance(asset.Symbol, from, spender)
	if err != nil {
		return err
	}
	if allowance.Lt(amount) {
		return coreerrors.Wrap(ErrInsufficientAllowance, "allowance %s below %s", allowance.Dec(), amount.Dec())
	}
	if err := l.move(asset.Symbol, from, to, amount); err != nil {
		return err
	}
	remaining := new(uint256.Int).Sub(allowance, amount)
	return l.state.SetAllowance(asset.Symbol, from, spender, remaining)
}

// Spendable reports how much spender could pull from owner right now: the
// smaller of allowance and balance.
func (l *Ledger) Spendable(symbol string, owner, spender crypto.Address) (*uint256.Int, error) {
	balance, err := l.BalanceOf(symbol, owner)
	if err != nil {
		return nil, err
	}
	allowance, err := l.Allowance(symbol, owner, spender)
	if err != nil {
		return nil, err
	}
	if allowance.Lt(balance) {
		return allowance, nil
	}
	return balance, nil
}

// Mint credits new units to an account. Only genesis and the operator faucet
// call it.
func (l *Ledger) Mint(symbol string, to crypto.Address, amount *uint256.Int) error {
	asset, err := l.Asset(symbol)
	if err != nil {
		return err
	}
	if l.state == nil {
		return errNilState
	}
	if amount == nil || amount.IsZero() {
		return coreerrors.ErrInvalidAmount
	}
	balance, err := l.state.Balance(asset.Symbol, to)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return ErrBalanceOverflow
	}
	if err := l.state.SetBalance(asset.Symbol, to, next); err != nil {
		return err
	}
	l.emitter.Emit(events.Transfer{Asset: asset.Symbol, To: to, Amount: new(uint256.Int).Set(amount)})
	return nil
}

func (l *Ledger) move(symbol string, from, to crypto.Address, amount *uint256.Int) error {
	fromBalance, err := l.state.Balance(symbol, from)
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return coreerrors.Wrap(ErrInsufficientBalance, "%s holds %s %s, needs %s", from.Hex(), fromBalance.Dec(), symbol, amount.Dec())
	}
	if from != to {
		toBalance, err := l.state.Balance(symbol, to)
		if err != nil {
			return err
		}
		credited, overflow := new(uint256.Int).AddOverflow(toBalance, amount)
		if overflow {
			return ErrBalanceOverflow
		}
		if err := l.state.SetBalance(symbol, from, new(uint256.Int).Sub(fromBalance, amount)); err != nil {
			return fmt.Errorf("bank: debit %s: %w", from.Hex(), err)
		}
		if err := l.state.SetBalance(symbol, to, credited); err != nil {
			return fmt.Errorf("bank: credit %s: %w", to.Hex(), err)
		}
	}
	l.emitter.Emit(events.Transfer{Asset: symbol, From: from, To: to, Amount: new(uint256.Int).Set(amount)})
	return nil
}
