package vault

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"vaultengine/core/events"
	"vaultengine/native/vault/commitment"
	"vaultengine/observability/logging"
)

// Redeem claims record from event eventID on behalf of caller. The claim flag
// is set before any asset moves and cleared again if a transfer fails, so a
// failed redemption leaves the claim table untouched. The one exception is
// ErrSettlementIncomplete: the payout could not be taken back, so the claim
// is kept.
func (v *Vault) Redeem(caller [20]byte, eventID uint64, record EntitlementRecord, proof []common.Hash) (*RedeemResult, error) {
	result, err := v.redeem(caller, eventID, record, proof)
	if v != nil && v.metrics != nil {
		v.metrics.ObserveRedemption(Outcome(err))
	}
	if err != nil {
		if v != nil && v.logger != nil {
			v.logger.Debug("redemption rejected",
				slog.Uint64("event", eventID),
				slog.Uint64("index", record.Index),
				slog.String("reason", Outcome(err)),
				slog.String("error", err.Error()))
		}
		return nil, err
	}
	v.logger.Info("entitlement redeemed",
		slog.Uint64("event", eventID),
		slog.Uint64("index", record.Index),
		logging.MaskIdentity("recipient", record.Recipient))
	return result, nil
}

func (v *Vault) redeem(caller [20]byte, eventID uint64, record EntitlementRecord, proof []common.Hash) (*RedeemResult, error) {
	if v == nil || v.state == nil {
		return nil, errNilState
	}
	evt, err := v.loadEvent(eventID)
	if err != nil {
		return nil, err
	}
	if !evt.Active {
		return nil, fmt.Errorf("%w: %d", ErrEventInactive, eventID)
	}
	now := v.now()
	if now < evt.StartTime {
		return nil, fmt.Errorf("%w: starts at %d", ErrTooEarly, evt.StartTime)
	}

	unlock := v.claims.lock(claimKey{event: eventID, index: record.Index})
	defer unlock()

	claimed, err := v.state.ClaimGet(eventID, record.Index)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, fmt.Errorf("%w: event %d index %d", ErrAlreadyClaimed, eventID, record.Index)
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if !commitment.Verify(proof, record, evt.Root) {
		return nil, ErrInvalidProof
	}
	if v.meta.Logic.Policy == PolicyRecipientOnly && caller != record.Recipient {
		return nil, ErrRecipientMismatch
	}

	if err := v.state.ClaimPut(eventID, record.Index); err != nil {
		return nil, err
	}
	if err := v.settle(evt, record); err != nil {
		if errors.Is(err, ErrSettlementIncomplete) {
			return nil, err
		}
		if rollbackErr := v.state.ClaimDelete(eventID, record.Index); rollbackErr != nil {
			return nil, errors.Join(err, fmt.Errorf("vault: roll back claim: %w", rollbackErr))
		}
		return nil, err
	}

	result := &RedeemResult{
		EventID:    eventID,
		Index:      record.Index,
		Recipient:  record.Recipient,
		AssetKind:  evt.AssetKind,
		AssetID:    new(big.Int).Set(record.AssetID),
		Amount:     new(big.Int).Set(record.Amount),
		Quantity:   v.transferQuantity(evt.AssetKind, record),
		RedeemedAt: now,
	}
	v.emit(events.Redeemed{
		Vault:     v.meta.Address,
		ID:        eventID,
		Index:     record.Index,
		Recipient: record.Recipient,
		Submitter: caller,
		AssetID:   result.AssetID,
		Amount:    result.Amount,
		Quantity:  result.Quantity,
	})
	return result, nil
}

// settle checks the asset leg, pays the payout leg and then moves the asset.
// If the asset transfer still fails the payout is reverted before the error
// is returned.
func (v *Vault) settle(evt *DistributionEvent, record EntitlementRecord) error {
	if err := v.checkAsset(evt, record); err != nil {
		return err
	}
	if err := v.adapter.TransferFungible(evt.PayoutToken, record.Recipient, record.Amount); err != nil {
		return err
	}
	var assetErr error
	switch evt.AssetKind {
	case AssetUnique:
		assetErr = v.adapter.TransferUniqueAsset(evt.AssetContract, record.AssetID, record.Recipient)
	case AssetSemiFungible:
		assetErr = v.adapter.TransferSemiFungible(evt.AssetContract, record.AssetID, record.Quantity, record.Recipient)
	default:
		assetErr = fmt.Errorf("%w: unsupported asset kind %s", ErrTransferFailed, evt.AssetKind)
	}
	if assetErr == nil {
		return nil
	}
	if err := v.adapter.RevertFungible(evt.PayoutToken, record.Recipient, record.Amount); err != nil {
		v.logger.Error("payout revert failed",
			slog.Uint64("event", evt.ID),
			slog.Uint64("index", record.Index),
			slog.String("error", err.Error()))
		return errors.Join(assetErr, fmt.Errorf("%w: revert payout: %w", ErrSettlementIncomplete, err))
	}
	return assetErr
}

func (v *Vault) checkAsset(evt *DistributionEvent, record EntitlementRecord) error {
	switch evt.AssetKind {
	case AssetUnique:
		return v.adapter.CheckUniqueAsset(evt.AssetContract, record.AssetID)
	case AssetSemiFungible:
		return v.adapter.CheckSemiFungible(evt.AssetContract, record.AssetID, record.Quantity)
	default:
		return fmt.Errorf("%w: unsupported asset kind %s", ErrTransferFailed, evt.AssetKind)
	}
}

func (v *Vault) transferQuantity(kind AssetKind, record EntitlementRecord) *big.Int {
	if kind == AssetUnique || record.Quantity == nil {
		return big.NewInt(1)
	}
	return new(big.Int).Set(record.Quantity)
}

// IsRedeemed reports whether index of event eventID has been claimed.
func (v *Vault) IsRedeemed(eventID, index uint64) (bool, error) {
	if v == nil || v.state == nil {
		return false, errNilState
	}
	if _, err := v.loadEvent(eventID); err != nil {
		return false, err
	}
	return v.state.ClaimGet(eventID, index)
}
