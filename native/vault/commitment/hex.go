package commitment

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseHash decodes a 0x-prefixed (or bare) 32-byte hex digest.
func ParseHash(value string) (common.Hash, error) {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	if len(trimmed) != 2*common.HashLength {
		return common.Hash{}, fmt.Errorf("commitment: hash must be %d hex chars, got %d", 2*common.HashLength, len(trimmed))
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return common.Hash{}, fmt.Errorf("commitment: decode hash: %w", err)
	}
	return common.BytesToHash(raw), nil
}

// ParseProof decodes a hex-encoded proof as produced by merkletreejs'
// getHexProof.
func ParseProof(values []string) ([]common.Hash, error) {
	proof := make([]common.Hash, 0, len(values))
	for i, v := range values {
		h, err := ParseHash(v)
		if err != nil {
			return nil, fmt.Errorf("proof[%d]: %w", i, err)
		}
		proof = append(proof, h)
	}
	return proof, nil
}

// FormatProof renders proof as 0x-prefixed hex strings.
func FormatProof(proof []common.Hash) []string {
	out := make([]string, len(proof))
	for i, h := range proof {
		out[i] = h.Hex()
	}
	return out
}
