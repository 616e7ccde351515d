package assets

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	errNilResolver = errors.New("assets: resolver not configured")
	// ErrNotReversible is returned when a payout ledger cannot unwind a
	// transfer.
	ErrNotReversible = errors.New("assets: ledger does not support reverting transfers")
)

// Adapter moves assets held by a single vault address.
type Adapter struct {
	resolver Resolver
	holder   [20]byte
}

// NewAdapter binds resolver to the identity whose holdings are moved.
func NewAdapter(resolver Resolver, holder [20]byte) *Adapter {
	return &Adapter{resolver: resolver, holder: holder}
}

// Holder returns the identity the adapter debits.
func (a *Adapter) Holder() [20]byte { return a.holder }

// TransferFungible moves amount of token from the holder to to. A zero
// amount is a no-op.
func (a *Adapter) TransferFungible(token, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: negative amount", ErrTransferFailed)
	}
	ledger, err := a.fungible(token)
	if err != nil {
		return err
	}
	if err := ledger.Transfer(a.holder, to, amount); err != nil {
		return fmt.Errorf("%w: fungible: %w", ErrTransferFailed, err)
	}
	return nil
}

// TransferUniqueAsset hands tokenID to to. The holder must own it.
func (a *Adapter) TransferUniqueAsset(contract [20]byte, tokenID *big.Int, to [20]byte) error {
	if tokenID == nil || tokenID.Sign() < 0 {
		return fmt.Errorf("%w: invalid token id", ErrTransferFailed)
	}
	registry, err := a.unique(contract)
	if err != nil {
		return err
	}
	if err := registry.Transfer(a.holder, to, tokenID); err != nil {
		return fmt.Errorf("%w: unique asset %s: %w", ErrTransferFailed, tokenID, err)
	}
	return nil
}

// TransferSemiFungible moves quantity units of assetID to to.
func (a *Adapter) TransferSemiFungible(contract [20]byte, assetID, quantity *big.Int, to [20]byte) error {
	if assetID == nil || assetID.Sign() < 0 {
		return fmt.Errorf("%w: invalid asset id", ErrTransferFailed)
	}
	if quantity == nil || quantity.Sign() <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrTransferFailed)
	}
	registry, err := a.semiFungible(contract)
	if err != nil {
		return err
	}
	if err := registry.Transfer(a.holder, to, assetID, quantity); err != nil {
		return fmt.Errorf("%w: semi-fungible asset %s: %w", ErrTransferFailed, assetID, err)
	}
	return nil
}

// CheckUniqueAsset reports whether the holder owns tokenID, without moving it.
func (a *Adapter) CheckUniqueAsset(contract [20]byte, tokenID *big.Int) error {
	if tokenID == nil || tokenID.Sign() < 0 {
		return fmt.Errorf("%w: invalid token id", ErrTransferFailed)
	}
	registry, err := a.unique(contract)
	if err != nil {
		return err
	}
	owner, err := registry.OwnerOf(tokenID)
	if err != nil {
		return fmt.Errorf("%w: %w: unique asset %s: %w", ErrTransferFailed, ErrInsufficientHoldings, tokenID, err)
	}
	if owner != a.holder {
		return fmt.Errorf("%w: %w: unique asset %s held elsewhere", ErrTransferFailed, ErrInsufficientHoldings, tokenID)
	}
	return nil
}

// CheckSemiFungible reports whether the holder has at least quantity units
// of assetID, without moving them.
func (a *Adapter) CheckSemiFungible(contract [20]byte, assetID, quantity *big.Int) error {
	if assetID == nil || assetID.Sign() < 0 {
		return fmt.Errorf("%w: invalid asset id", ErrTransferFailed)
	}
	if quantity == nil || quantity.Sign() <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrTransferFailed)
	}
	registry, err := a.semiFungible(contract)
	if err != nil {
		return err
	}
	have, err := registry.BalanceOf(a.holder, assetID)
	if err != nil {
		return fmt.Errorf("%w: semi-fungible asset %s: %w", ErrTransferFailed, assetID, err)
	}
	if have == nil || have.Cmp(quantity) < 0 {
		return fmt.Errorf("%w: %w: have %s of %s, need %s", ErrTransferFailed, ErrInsufficientHoldings, amountString(have), assetID, quantity)
	}
	return nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func (a *Adapter) fungible(contract [20]byte) (FungibleLedger, error) {
	if a == nil || a.resolver == nil {
		return nil, fmt.Errorf("%w: %w", ErrTransferFailed, errNilResolver)
	}
	ledger, err := a.resolver.Fungible(contract)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return ledger, nil
}

func (a *Adapter) unique(contract [20]byte) (UniqueAssetRegistry, error) {
	if a == nil || a.resolver == nil {
		return nil, fmt.Errorf("%w: %w", ErrTransferFailed, errNilResolver)
	}
	registry, err := a.resolver.Unique(contract)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return registry, nil
}

func (a *Adapter) semiFungible(contract [20]byte) (SemiFungibleRegistry, error) {
	if a == nil || a.resolver == nil {
		return nil, fmt.Errorf("%w: %w", ErrTransferFailed, errNilResolver)
	}
	registry, err := a.resolver.SemiFungible(contract)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return registry, nil
}

// RevertFungible undoes a payout made by TransferFungible. It returns
// ErrNotReversible when the ledger cannot unwind transfers.
func (a *Adapter) RevertFungible(token, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	ledger, err := a.fungible(token)
	if err != nil {
		return err
	}
	reverter, ok := ledger.(Reverter)
	if !ok {
		return ErrNotReversible
	}
	return reverter.RevertTransfer(a.holder, to, amount)
}
