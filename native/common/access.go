package common

import (
	coreerrors "kaiadefi/core/errors"
	"kaiadefi/crypto"
)

// OperatorView exposes the address allowed to run administrative operations.
type OperatorView interface {
	Operator() (crypto.Address, error)
}

// RequireOperator fails with an authorization error unless caller is the
// configured operator. An unset operator rejects everyone.
func RequireOperator(v OperatorView, caller crypto.Address) error {
	if v == nil {
		return coreerrors.Wrap(coreerrors.ErrUnauthorized, "operator not configured")
	}
	operator, err := v.Operator()
	if err != nil {
		return err
	}
	if operator == crypto.ZeroAddress || operator != caller {
		return coreerrors.Wrap(coreerrors.ErrUnauthorized, "%s is not the operator", caller.Hex())
	}
	return nil
}
