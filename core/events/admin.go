package events

import (
	"strconv"

	"github.com/holiman/uint256"

	"kaiadefi/core/types"
	"kaiadefi/crypto"
)

const (
	// TypePauseToggled is emitted when the operator pauses or resumes a module.
	TypePauseToggled = "admin.pauseToggled"
	// TypeEmergencyWithdrawal is emitted when the operator sweeps module funds.
	TypeEmergencyWithdrawal = "admin.emergencyWithdrawal"
	// TypeOperatorTransferred is emitted when operator rights move to a new
	// address.
	TypeOperatorTransferred = "admin.operatorTransferred"
)

type PauseToggled struct {
	Module    string
	Operator  crypto.Address
	Paused    bool
	Timestamp uint64
}

func (PauseToggled) EventType() string { return TypePauseToggled }

func (e PauseToggled) Event() *types.Event {
	return &types.Event{Type: TypePauseToggled, Attributes: map[string]string{
		"module":    e.Module,
		"operator":  formatAddress(e.Operator),
		"paused":    strconv.FormatBool(e.Paused),
		"timestamp": formatUint(e.Timestamp),
	}}
}

type EmergencyWithdrawal struct {
	Module    string
	Asset     string
	Operator  crypto.Address
	Amount    *uint256.Int
	Timestamp uint64
}

func (EmergencyWithdrawal) EventType() string { return TypeEmergencyWithdrawal }

func (e EmergencyWithdrawal) Event() *types.Event {
	return &types.Event{Type: TypeEmergencyWithdrawal, Attributes: map[string]string{
		"module":    e.Module,
		"asset":     normalizeAsset(e.Asset),
		"operator":  formatAddress(e.Operator),
		"amount":    formatAmount(e.Amount),
		"timestamp": formatUint(e.Timestamp),
	}}
}

type OperatorTransferred struct {
	Previous  crypto.Address
	Next      crypto.Address
	Timestamp uint64
}

func (OperatorTransferred) EventType() string { return TypeOperatorTransferred }

func (e OperatorTransferred) Event() *types.Event {
	return &types.Event{Type: TypeOperatorTransferred, Attributes: map[string]string{
		"previous":  formatAddress(e.Previous),
		"next":      formatAddress(e.Next),
		"timestamp": formatUint(e.Timestamp),
	}}
}
