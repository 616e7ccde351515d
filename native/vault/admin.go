package vault

import (
	"fmt"
	"log/slog"
	"math/big"

	"vaultengine/core/events"
)

// CreateEvent registers a distribution event. Events start inactive; admins
// activate them with SetEventStatus once the vault is funded.
func (v *Vault) CreateEvent(caller [20]byte, params EventParams) (*DistributionEvent, error) {
	if v == nil || v.state == nil {
		return nil, errNilState
	}
	if err := v.requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := SanitizeEventParams(params); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists, err := v.state.EventGet(params.ID); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateEventID, params.ID)
	}
	evt := &DistributionEvent{
		ID:            params.ID,
		StartTime:     params.StartTime,
		Root:          params.Root,
		AssetKind:     params.AssetKind,
		AssetContract: params.AssetContract,
		PayoutToken:   params.PayoutToken,
		CreatedAt:     v.now(),
	}
	if err := v.state.EventPut(evt); err != nil {
		return nil, err
	}
	v.metrics.ObserveEventCreated()
	v.logger.Info("distribution event created",
		slog.Uint64("event", evt.ID),
		slog.String("root", evt.Root.Hex()),
		slog.String("assetKind", evt.AssetKind.String()),
		slog.Int64("startTime", evt.StartTime))
	v.emit(events.EventCreated{
		Vault:     v.meta.Address,
		ID:        evt.ID,
		Root:      evt.Root,
		StartTime: evt.StartTime,
		AssetKind: evt.AssetKind.String(),
	})
	out := *evt
	return &out, nil
}

// SetEventStatus activates or deactivates an event. Setting the current
// status again is a no-op that still succeeds.
func (v *Vault) SetEventStatus(caller [20]byte, id uint64, active bool) error {
	if v == nil || v.state == nil {
		return errNilState
	}
	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	evt, err := v.loadEvent(id)
	if err != nil {
		return err
	}
	if evt.Active == active {
		return nil
	}
	evt.Active = active
	if err := v.state.EventPut(evt); err != nil {
		return err
	}
	v.logger.Info("distribution event status changed", slog.Uint64("event", id), slog.Bool("active", active))
	v.emit(events.EventStatusChanged{Vault: v.meta.Address, ID: id, Active: active})
	return nil
}

// SetEventStartTime moves the redemption window of an existing event.
func (v *Vault) SetEventStartTime(caller [20]byte, id uint64, start int64) error {
	if v == nil || v.state == nil {
		return errNilState
	}
	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	if start < 0 {
		return fmt.Errorf("%w: negative start time", ErrInvalidEvent)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	evt, err := v.loadEvent(id)
	if err != nil {
		return err
	}
	if evt.StartTime == start {
		return nil
	}
	evt.StartTime = start
	if err := v.state.EventPut(evt); err != nil {
		return err
	}
	v.emit(events.EventScheduleUpdated{Vault: v.meta.Address, ID: id, StartTime: start})
	return nil
}

// SetAdmins grants or revokes the admin role. Owner only.
func (v *Vault) SetAdmins(caller [20]byte, admins [][20]byte, enabled bool) error {
	if v == nil || v.state == nil {
		return errNilState
	}
	if err := v.requireOwner(caller); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, admin := range admins {
		if admin == ([20]byte{}) {
			return fmt.Errorf("vault: zero admin address")
		}
	}
	for _, admin := range admins {
		if err := v.state.AdminPut(admin, enabled); err != nil {
			return err
		}
	}
	v.emit(events.AdminsUpdated{Vault: v.meta.Address, Admins: append([][20]byte(nil), admins...), Enabled: enabled})
	return nil
}

// Event returns a copy of the stored event.
func (v *Vault) Event(id uint64) (*DistributionEvent, error) {
	if v == nil || v.state == nil {
		return nil, errNilState
	}
	return v.loadEvent(id)
}

// Events lists every event in ascending id order.
func (v *Vault) Events() ([]*DistributionEvent, error) {
	if v == nil || v.state == nil {
		return nil, errNilState
	}
	ids, err := v.state.EventIDs()
	if err != nil {
		return nil, err
	}
	out := make([]*DistributionEvent, 0, len(ids))
	for _, id := range ids {
		evt, err := v.loadEvent(id)
		if err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, nil
}

// Withdraw moves fungible holdings out of the vault. Owner only and
// independent of claim state.
func (v *Vault) Withdraw(caller, token [20]byte, amount *big.Int, to [20]byte) error {
	if err := v.checkWithdraw(caller, amount); err != nil {
		return err
	}
	if err := v.adapter.TransferFungible(token, to, amount); err != nil {
		return err
	}
	v.emitWithdrawn("fungible", token, nil, amount, to)
	return nil
}

// WithdrawUniqueAsset returns a unique asset held by the vault.
func (v *Vault) WithdrawUniqueAsset(caller, contract [20]byte, tokenID *big.Int, to [20]byte) error {
	if err := v.checkWithdraw(caller, big.NewInt(1)); err != nil {
		return err
	}
	if err := v.adapter.TransferUniqueAsset(contract, tokenID, to); err != nil {
		return err
	}
	v.emitWithdrawn("unique", contract, tokenID, big.NewInt(1), to)
	return nil
}

// WithdrawSemiFungible returns quantity units of assetID held by the vault.
func (v *Vault) WithdrawSemiFungible(caller, contract [20]byte, assetID, quantity *big.Int, to [20]byte) error {
	if err := v.checkWithdraw(caller, quantity); err != nil {
		return err
	}
	if err := v.adapter.TransferSemiFungible(contract, assetID, quantity, to); err != nil {
		return err
	}
	v.emitWithdrawn("semi-fungible", contract, assetID, quantity, to)
	return nil
}

func (v *Vault) checkWithdraw(caller [20]byte, amount *big.Int) error {
	if v == nil || v.state == nil {
		return errNilState
	}
	if err := v.requireOwner(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (v *Vault) emitWithdrawn(kind string, contract [20]byte, assetID, amount *big.Int, to [20]byte) {
	v.logger.Info("vault withdrawal", slog.String("kind", kind), slog.String("amount", amount.String()))
	v.emit(events.Withdrawn{
		Vault:    v.meta.Address,
		Kind:     kind,
		Contract: contract,
		AssetID:  assetID,
		Amount:   new(big.Int).Set(amount),
		To:       to,
	})
}
