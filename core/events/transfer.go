package events

import (
	"github.com/holiman/uint256"

	"kaiadefi/core/types"
	"kaiadefi/crypto"
)

const (
	// TypeTransfer is emitted for every asset balance movement. Mints carry the
	// zero address as sender.
	TypeTransfer = "token.transfer"
	// TypeApproval is emitted when an owner sets a spender allowance.
	TypeApproval = "token.approval"
)

type Transfer struct {
	Asset  string
	From   crypto.Address
	To     crypto.Address
	Amount *uint256.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"from":   formatAddress(e.From),
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}
	if asset := normalizeAsset(e.Asset); asset != "" {
		attrs["asset"] = asset
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}

type Approval struct {
	Asset   string
	Owner   crypto.Address
	Spender crypto.Address
	Amount  *uint256.Int
}

func (Approval) EventType() string { return TypeApproval }

func (e Approval) Event() *types.Event {
	return &types.Event{Type: TypeApproval, Attributes: map[string]string{
		"asset":   normalizeAsset(e.Asset),
		"owner":   formatAddress(e.Owner),
		"spender": formatAddress(e.Spender),
		"amount":  formatAmount(e.Amount),
	}}
}
