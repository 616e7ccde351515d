// Package assets adapts external asset ledgers to the vault's redemption
// and withdrawal paths.
package assets

import (
	"errors"
	"math/big"
)

var (
	// ErrTransferFailed wraps every ledger failure surfaced by the adapter.
	ErrTransferFailed = errors.New("assets: transfer failed")
	// ErrUnknownContract is returned when a contract reference is not
	// registered with the resolver.
	ErrUnknownContract = errors.New("assets: unknown contract")
	// ErrInsufficientHoldings is returned by the Check methods when the
	// holder cannot cover a transfer.
	ErrInsufficientHoldings = errors.New("assets: insufficient holdings")
)

// FungibleLedger is the balance ledger backing payout tokens.
type FungibleLedger interface {
	BalanceOf(owner [20]byte) (*big.Int, error)
	Transfer(from, to [20]byte, amount *big.Int) error
	Approve(owner, spender [20]byte, amount *big.Int) error
	Allowance(owner, spender [20]byte) (*big.Int, error)
	TransferFrom(spender, from, to [20]byte, amount *big.Int) error
}

// UniqueAssetRegistry tracks single-owner assets.
type UniqueAssetRegistry interface {
	OwnerOf(tokenID *big.Int) ([20]byte, error)
	Transfer(from, to [20]byte, tokenID *big.Int) error
	Mint(to [20]byte, tokenID *big.Int) error
}

// SemiFungibleRegistry tracks balances per asset identifier.
type SemiFungibleRegistry interface {
	BalanceOf(owner [20]byte, id *big.Int) (*big.Int, error)
	Transfer(from, to [20]byte, id, amount *big.Int) error
	Mint(to [20]byte, id, amount *big.Int, data []byte) error
}

// Reverter is implemented by fungible ledgers that can unwind a transfer the
// vault made earlier in the same operation, the way a reverted call frame
// discards its balance changes. RevertTransfer moves amount from to back to
// from without consulting allowances.
type Reverter interface {
	RevertTransfer(from, to [20]byte, amount *big.Int) error
}

// Resolver maps contract references onto ledger implementations.
type Resolver interface {
	Fungible(contract [20]byte) (FungibleLedger, error)
	Unique(contract [20]byte) (UniqueAssetRegistry, error)
	SemiFungible(contract [20]byte) (SemiFungibleRegistry, error)
}
