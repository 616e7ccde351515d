package events

import (
	"math/big"
	"strconv"

	"vaultengine/core/types"
)

const (
	TypeVaultEventCreated         = "vault.event.created"
	TypeVaultEventStatusChanged   = "vault.event.status"
	TypeVaultEventScheduleUpdated = "vault.event.schedule"
	TypeVaultRedeemed             = "vault.redeemed"
	TypeVaultWithdrawn            = "vault.withdrawn"
	TypeVaultAdminsUpdated        = "vault.admins.updated"
	TypeVaultCreated              = "vault.factory.created"
	TypeVaultImplementation       = "vault.factory.implementation"
)

// EventCreated is emitted when an admin registers a new distribution event.
type EventCreated struct {
	Vault     [20]byte
	ID        uint64
	Root      [32]byte
	StartTime int64
	AssetKind string
}

func (EventCreated) EventType() string { return TypeVaultEventCreated }

func (e EventCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultEventCreated,
		Attributes: map[string]string{
			"vault":     formatAddress(e.Vault),
			"id":        formatUint(e.ID),
			"root":      formatHash(e.Root),
			"startTime": formatInt(e.StartTime),
			"assetKind": e.AssetKind,
		},
	}
}

// EventStatusChanged is emitted whenever an admin toggles activation.
type EventStatusChanged struct {
	Vault  [20]byte
	ID     uint64
	Active bool
}

func (EventStatusChanged) EventType() string { return TypeVaultEventStatusChanged }

func (e EventStatusChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultEventStatusChanged,
		Attributes: map[string]string{
			"vault":  formatAddress(e.Vault),
			"id":     formatUint(e.ID),
			"active": strconv.FormatBool(e.Active),
		},
	}
}

// EventScheduleUpdated is emitted when the start time of an event moves.
type EventScheduleUpdated struct {
	Vault     [20]byte
	ID        uint64
	StartTime int64
}

func (EventScheduleUpdated) EventType() string { return TypeVaultEventScheduleUpdated }

func (e EventScheduleUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultEventScheduleUpdated,
		Attributes: map[string]string{
			"vault":     formatAddress(e.Vault),
			"id":        formatUint(e.ID),
			"startTime": formatInt(e.StartTime),
		},
	}
}

// Redeemed records a successful entitlement redemption.
type Redeemed struct {
	Vault     [20]byte
	ID        uint64
	Index     uint64
	Recipient [20]byte
	Submitter [20]byte
	AssetID   *big.Int
	Amount    *big.Int
	Quantity  *big.Int
}

func (Redeemed) EventType() string { return TypeVaultRedeemed }

func (e Redeemed) Event() *types.Event {
	attrs := map[string]string{
		"vault":     formatAddress(e.Vault),
		"id":        formatUint(e.ID),
		"index":     formatUint(e.Index),
		"recipient": formatAddress(e.Recipient),
		"assetId":   formatAmount(e.AssetID),
		"amount":    formatAmount(e.Amount),
		"quantity":  formatAmount(e.Quantity),
	}
	if e.Submitter != e.Recipient && e.Submitter != ([20]byte{}) {
		attrs["submitter"] = formatAddress(e.Submitter)
	}
	return &types.Event{Type: TypeVaultRedeemed, Attributes: attrs}
}

// Withdrawn records an administrative withdrawal of vault holdings.
type Withdrawn struct {
	Vault    [20]byte
	Kind     string
	Contract [20]byte
	AssetID  *big.Int
	Amount   *big.Int
	To       [20]byte
}

func (Withdrawn) EventType() string { return TypeVaultWithdrawn }

func (e Withdrawn) Event() *types.Event {
	attrs := map[string]string{
		"vault":    formatAddress(e.Vault),
		"kind":     e.Kind,
		"contract": formatAddress(e.Contract),
		"amount":   formatAmount(e.Amount),
		"to":       formatAddress(e.To),
	}
	if e.AssetID != nil {
		attrs["assetId"] = formatAmount(e.AssetID)
	}
	return &types.Event{Type: TypeVaultWithdrawn, Attributes: attrs}
}

// AdminsUpdated records a change to the admin role set.
type AdminsUpdated struct {
	Vault   [20]byte
	Admins  [][20]byte
	Enabled bool
}

func (AdminsUpdated) EventType() string { return TypeVaultAdminsUpdated }

func (e AdminsUpdated) Event() *types.Event {
	attrs := map[string]string{
		"vault":   formatAddress(e.Vault),
		"enabled": strconv.FormatBool(e.Enabled),
		"count":   strconv.Itoa(len(e.Admins)),
	}
	for i, admin := range e.Admins {
		attrs["admin."+strconv.Itoa(i)] = formatAddress(admin)
	}
	return &types.Event{Type: TypeVaultAdminsUpdated, Attributes: attrs}
}

// VaultCreated is emitted by the factory for every new instance.
type VaultCreated struct {
	Factory [20]byte
	Vault   [20]byte
	Owner   [20]byte
	Salt    [32]byte
	Version string
}

func (VaultCreated) EventType() string { return TypeVaultCreated }

func (e VaultCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultCreated,
		Attributes: map[string]string{
			"factory": formatAddress(e.Factory),
			"vault":   formatAddress(e.Vault),
			"owner":   formatAddress(e.Owner),
			"salt":    formatHash(e.Salt),
			"version": e.Version,
		},
	}
}

// ImplementationUpdated is emitted when the factory switches the logic
// descriptor bound to future instances.
type ImplementationUpdated struct {
	Factory  [20]byte
	Previous string
	Version  string
	Policy   string
}

func (ImplementationUpdated) EventType() string { return TypeVaultImplementation }

func (e ImplementationUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultImplementation,
		Attributes: map[string]string{
			"factory":  formatAddress(e.Factory),
			"previous": e.Previous,
			"version":  e.Version,
			"policy":   e.Policy,
		},
	}
}
