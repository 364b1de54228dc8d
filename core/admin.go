package core

import (
	"context"

	"github.com/holiman/uint256"

	coreerrors "kaiadefi/core/errors"
	"kaiadefi/core/events"
	"kaiadefi/crypto"
	"kaiadefi/native/bank"
	nativecommon "kaiadefi/native/common"
)

var (
	ErrInvalidModule   = coreerrors.New(coreerrors.KindValidation, "InvalidModule", "Unknown module")
	ErrNotPaused       = coreerrors.New(coreerrors.KindState, "ExpectedPause", "Module is not paused")
	ErrInvalidOperator = coreerrors.New(coreerrors.KindValidation, "InvalidOperator", "Operator must be a non-zero address")
)

// Modules lists the modules that can be paused or swept.
func Modules() []string {
	return []string{nativecommon.ModuleStaking, nativecommon.ModuleLending}
}

func validModule(module string) error {
	for _, m := range Modules() {
		if m == module {
			return nil
		}
	}
	return coreerrors.Wrap(ErrInvalidModule, "%q", module)
}

// Pause stops module from accepting gated operations.
func (l *Ledger) Pause(ctx context.Context, caller crypto.Address, module string) error {
	return l.setPaused(ctx, caller, module, true)
}

// Unpause resumes module.
func (l *Ledger) Unpause(ctx context.Context, caller crypto.Address, module string) error {
	return l.setPaused(ctx, caller, module, false)
}

func (l *Ledger) setPaused(ctx context.Context, caller crypto.Address, module string, paused bool) error {
	op := "unpause"
	if paused {
		op = "pause"
	}
	return l.execute(ctx, op, caller, func(s *session) error {
		if err := validModule(module); err != nil {
			return err
		}
		if err := nativecommon.RequireOperator(s.txn, caller); err != nil {
			return err
		}
		current := s.txn.IsPaused(module)
		switch {
		case paused && current:
			return coreerrors.Wrap(coreerrors.ErrModulePaused, "%s already paused", module)
		case !paused && !current:
			return coreerrors.Wrap(ErrNotPaused, "%s", module)
		}
		if err := s.txn.SetPaused(module, paused); err != nil {
			return err
		}
		s.buffer.Emit(events.PauseToggled{Module: module, Operator: caller, Paused: paused, Timestamp: s.now})
		return nil
	})
}

// IsPaused reports whether module rejects gated operations.
func (l *Ledger) IsPaused(module string) bool {
	paused, _ := viewValue(l, func(s *session) (bool, error) {
		return s.txn.IsPaused(module), nil
	})
	return paused
}

// EmergencyWithdraw sweeps amount of asset from the module account to the
// operator without touching ledger totals.
func (l *Ledger) EmergencyWithdraw(ctx context.Context, caller crypto.Address, module, asset string, amount *uint256.Int) error {
	return l.execute(ctx, "emergencyWithdraw", caller, func(s *session) error {
		switch module {
		case nativecommon.ModuleStaking:
			return s.staking.EmergencyWithdraw(caller, bank.NormalizeSymbol(asset), amount)
		case nativecommon.ModuleLending:
			return s.lending.EmergencyWithdraw(caller, bank.NormalizeSymbol(asset), amount)
		default:
			return coreerrors.Wrap(ErrInvalidModule, "%q", module)
		}
	})
}

// Operator returns the address holding administrative rights.
func (l *Ledger) Operator() (crypto.Address, error) {
	return viewValue(l, func(s *session) (crypto.Address, error) {
		return s.txn.Operator()
	})
}

// TransferOperator hands administrative rights to next.
func (l *Ledger) TransferOperator(ctx context.Context, caller, next crypto.Address) error {
	return l.execute(ctx, "transferOperator", caller, func(s *session) error {
		if err := nativecommon.RequireOperator(s.txn, caller); err != nil {
			return err
		}
		if next == (crypto.Address{}) {
			return ErrInvalidOperator
		}
		if err := s.txn.SetOperator(next); err != nil {
			return err
		}
		s.buffer.Emit(events.OperatorTransferred{Previous: caller, Next: next, Timestamp: s.now})
		return nil
	})
}

// Approve sets the allowance spender may pull from owner.
func (l *Ledger) Approve(ctx context.Context, owner, spender crypto.Address, asset string, amount *uint256.Int) error {
	return l.execute(ctx, "approve", owner, func(s *session) error {
		return s.bank.Approve(asset, owner, spender, amount)
	})
}

// Transfer moves amount of asset between accounts.
func (l *Ledger) Transfer(ctx context.Context, from, to crypto.Address, asset string, amount *uint256.Int) error {
	return l.execute(ctx, "transfer", from, func(s *session) error {
		if amount == nil || amount.IsZero() {
			return coreerrors.ErrInvalidAmount
		}
		return s.bank.Transfer(asset, from, to, amount)
	})
}

// Mint credits freshly issued funds to an account. Only the operator may mint;
// deployments use it as a test faucet.
func (l *Ledger) Mint(ctx context.Context, caller, to crypto.Address, asset string, amount *uint256.Int) error {
	return l.execute(ctx, "mint", caller, func(s *session) error {
		if err := nativecommon.RequireOperator(s.txn, caller); err != nil {
			return err
		}
		return s.bank.Mint(asset, to, amount)
	})
}

func (l *Ledger) Balance(asset string, addr crypto.Address) (*uint256.Int, error) {
	return viewValue(l, func(s *session) (*uint256.Int, error) {
		return s.bank.BalanceOf(asset, addr)
	})
}

func (l *Ledger) Allowance(asset string, owner, spender crypto.Address) (*uint256.Int, error) {
	return viewValue(l, func(s *session) (*uint256.Int, error) {
		return s.bank.Allowance(asset, owner, spender)
	})
}

// Assets lists the registered assets.
func (l *Ledger) Assets() []bank.Asset {
	return append([]bank.Asset(nil), l.params.Assets...)
}
