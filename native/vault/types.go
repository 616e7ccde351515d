package vault

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"vaultengine/native/vault/commitment"
)

// EntitlementRecord is one committed right to redeem.
type EntitlementRecord = commitment.Entitlement

// AssetKind selects the transfer performed for an event's asset leg.
type AssetKind uint8

const (
	AssetUnknown AssetKind = iota
	AssetUnique
	AssetSemiFungible
)

// Valid reports whether the kind is a supported asset model.
func (k AssetKind) Valid() bool {
	switch k {
	case AssetUnique, AssetSemiFungible:
		return true
	default:
		return false
	}
}

func (k AssetKind) String() string {
	switch k {
	case AssetUnique:
		return "unique"
	case AssetSemiFungible:
		return "semi-fungible"
	default:
		return "unknown"
	}
}

// ParseAssetKind accepts the String form as well as the ERC standard names.
func ParseAssetKind(value string) (AssetKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "unique", "erc721", "nft":
		return AssetUnique, nil
	case "semi-fungible", "semifungible", "erc1155":
		return AssetSemiFungible, nil
	default:
		return AssetUnknown, fmt.Errorf("vault: unsupported asset kind %q", value)
	}
}

// RedeemPolicy decides who may submit a redemption for a record.
type RedeemPolicy uint8

const (
	// PolicyRecipientOnly requires the caller to be the record's recipient.
	PolicyRecipientOnly RedeemPolicy = iota
	// PolicyRelayerAllowed lets any caller submit; assets still go to the
	// record's recipient.
	PolicyRelayerAllowed
)

func (p RedeemPolicy) Valid() bool {
	return p == PolicyRecipientOnly || p == PolicyRelayerAllowed
}

func (p RedeemPolicy) String() string {
	switch p {
	case PolicyRecipientOnly:
		return "recipient-only"
	case PolicyRelayerAllowed:
		return "relayer-allowed"
	default:
		return "unknown"
	}
}

// ParseRedeemPolicy parses the String form. An empty value yields the
// recipient-only default.
func ParseRedeemPolicy(value string) (RedeemPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "recipient-only":
		return PolicyRecipientOnly, nil
	case "relayer-allowed":
		return PolicyRelayerAllowed, nil
	default:
		return 0, fmt.Errorf("vault: unsupported redeem policy %q", value)
	}
}

// Logic is the immutable behaviour descriptor a vault is bound to when it is
// created. Vaults never re-resolve it.
type Logic struct {
	Version string
	Policy  RedeemPolicy
}

// Meta is the persisted identity of a vault instance.
type Meta struct {
	Address   [20]byte
	Owner     [20]byte
	Logic     Logic
	CreatedAt int64
}

// DistributionEvent is one batch of entitlements behind a single root.
type DistributionEvent struct {
	ID            uint64
	StartTime     int64
	Root          common.Hash
	AssetKind     AssetKind
	AssetContract [20]byte
	PayoutToken   [20]byte
	Active        bool
	CreatedAt     int64
}

// EventParams carries the admin-supplied fields of CreateEvent.
type EventParams struct {
	ID            uint64
	StartTime     int64
	Root          common.Hash
	AssetKind     AssetKind
	AssetContract [20]byte
	PayoutToken   [20]byte
}

// RedeemResult describes a completed redemption.
type RedeemResult struct {
	EventID    uint64
	Index      uint64
	Recipient  [20]byte
	AssetKind  AssetKind
	AssetID    *big.Int
	Amount     *big.Int
	Quantity   *big.Int
	RedeemedAt int64
}

// SanitizeEventParams validates params before an event is stored.
func SanitizeEventParams(p EventParams) error {
	if p.Root == (common.Hash{}) {
		return ErrEmptyCommitment
	}
	if !p.AssetKind.Valid() {
		return fmt.Errorf("%w: asset kind %d", ErrInvalidEvent, p.AssetKind)
	}
	if p.AssetContract == ([20]byte{}) {
		return fmt.Errorf("%w: asset contract required", ErrInvalidEvent)
	}
	if p.PayoutToken == ([20]byte{}) {
		return fmt.Errorf("%w: payout token required", ErrInvalidEvent)
	}
	if p.StartTime < 0 {
		return fmt.Errorf("%w: negative start time", ErrInvalidEvent)
	}
	return nil
}
