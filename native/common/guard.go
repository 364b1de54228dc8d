package common

import (
	coreerrors "kaiadefi/core/errors"
)

// Module names used for pause flags and module accounts.
const (
	ModuleStaking = "staking"
	ModuleLending = "lending"
)

// PauseView reports whether a module currently rejects gated operations.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when module is paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return coreerrors.Wrap(coreerrors.ErrModulePaused, "%s paused", module)
	}
	return nil
}
