package commitment

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	ErrNilField      = errors.New("commitment: entitlement field must not be nil")
	ErrNegativeField = errors.New("commitment: entitlement field must be non-negative")
	ErrFieldOverflow = errors.New("commitment: entitlement field exceeds 256 bits")
)

// leafSize is the packed width of an entitlement: four uint256 words plus a
// raw 20-byte address.
const leafSize = 32 + 20 + 32 + 32 + 32

// Entitlement is a single recipient's right within one distribution event.
// Amount is paid in the event's payout token; Quantity only parameterises
// semi-fungible transfers.
type Entitlement struct {
	Index     uint64
	Recipient [20]byte
	AssetID   *big.Int
	Amount    *big.Int
	Quantity  *big.Int
}

// Clone returns a deep copy of the entitlement.
func (e Entitlement) Clone() Entitlement {
	out := e
	out.AssetID = cloneInt(e.AssetID)
	out.Amount = cloneInt(e.Amount)
	out.Quantity = cloneInt(e.Quantity)
	return out
}

// Validate checks that every numeric field is present and representable as
// a uint256.
func (e Entitlement) Validate() error {
	fields := []struct {
		name  string
		value *big.Int
	}{{"assetId", e.AssetID}, {"amount", e.Amount}, {"quantity", e.Quantity}}
	for _, f := range fields {
		if err := checkWord(f.value); err != nil {
			return fmt.Errorf("%w (%s)", err, f.name)
		}
	}
	return nil
}

// Encode packs the entitlement the way Solidity's abi.encodePacked lays out
// (uint256 index, address recipient, uint256 assetId, uint256 amount,
// uint256 quantity).
func (e Entitlement) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, leafSize)
	index := uint256.NewInt(e.Index).Bytes32()
	buf = append(buf, index[:]...)
	buf = append(buf, e.Recipient[:]...)
	for _, v := range []*big.Int{e.AssetID, e.Amount, e.Quantity} {
		word, _ := uint256.FromBig(v)
		packed := word.Bytes32()
		buf = append(buf, packed[:]...)
	}
	return buf, nil
}

// LeafHash returns keccak256 of the packed entitlement.
func LeafHash(e Entitlement) (common.Hash, error) {
	encoded, err := e.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

func checkWord(v *big.Int) error {
	if v == nil {
		return ErrNilField
	}
	if v.Sign() < 0 {
		return ErrNegativeField
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return ErrFieldOverflow
	}
	return nil
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
