package vault

import (
	"errors"

	"vaultengine/native/vault/assets"
)

var (
	ErrUnknownEvent      = errors.New("vault: unknown event")
	ErrEventInactive     = errors.New("vault: event inactive")
	ErrTooEarly          = errors.New("vault: event not started")
	ErrAlreadyClaimed    = errors.New("vault: entitlement already claimed")
	ErrInvalidProof      = errors.New("vault: invalid proof")
	ErrInvalidRecord     = errors.New("vault: invalid entitlement record")
	ErrRecipientMismatch = errors.New("vault: caller is not the recipient")
	ErrDuplicateEventID  = errors.New("vault: event id already exists")
	ErrEmptyCommitment   = errors.New("vault: empty commitment root")
	ErrTransferFailed    = assets.ErrTransferFailed
	ErrUnauthorized      = errors.New("vault: unauthorized")
	ErrInvalidEvent      = errors.New("vault: invalid event")
	ErrInvalidAmount     = errors.New("vault: amount must be positive")
	ErrVaultNotFound     = errors.New("vault: instance not found")

	// ErrSettlementIncomplete marks a redemption whose payout reached the
	// recipient but could not be reverted after the asset leg failed. The
	// claim stays recorded so the payout cannot be collected twice.
	ErrSettlementIncomplete = errors.New("vault: settlement incomplete")

	errNilState = errors.New("vault: state not configured")
)

var outcomes = []struct {
	err   error
	label string
}{
	{ErrUnknownEvent, "unknown_event"},
	{ErrEventInactive, "inactive"},
	{ErrTooEarly, "too_early"},
	{ErrAlreadyClaimed, "already_claimed"},
	{ErrInvalidRecord, "invalid_record"},
	{ErrInvalidProof, "invalid_proof"},
	{ErrRecipientMismatch, "recipient_mismatch"},
	{ErrSettlementIncomplete, "settlement_incomplete"},
	{ErrTransferFailed, "transfer_failed"},
}

// Outcome maps a redemption error onto a stable metrics label.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	for _, o := range outcomes {
		if errors.Is(err, o.err) {
			return o.label
		}
	}
	return "error"
}
