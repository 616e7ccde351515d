package events

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"vaultengine/crypto"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatHash(h [32]byte) string {
	return "0x" + strings.ToLower(hex.EncodeToString(h[:]))
}

func formatAddress(addr [20]byte) string {
	return crypto.FromArray(addr).String()
}
