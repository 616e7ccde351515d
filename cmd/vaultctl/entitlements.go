package main

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	gethmath "github.com/ethereum/go-ethereum/common/math"
	"gopkg.in/yaml.v3"

	"vaultengine/crypto"
	"vaultengine/native/vault/commitment"
)

// entitlementEntry is one row of an entitlement file. Numeric fields are
// strings so 256-bit values survive JSON and YAML decoding; decimal and
// 0x-prefixed hex are accepted.
type entitlementEntry struct {
	Index     uint64 `yaml:"index"`
	Recipient string `yaml:"recipient"`
	AssetID   string `yaml:"assetId"`
	Amount    string `yaml:"amount"`
	Quantity  string `yaml:"quantity"`
}

type entitlementFile struct {
	Entitlements []entitlementEntry `yaml:"entitlements"`
}

// loadEntitlements reads a JSON or YAML entitlement file. JSON is decoded by
// the YAML parser since every JSON document is valid YAML. Both a bare list
// and an object with an "entitlements" key are accepted.
func loadEntitlements(path string) ([]commitment.Entitlement, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries, err := decodeEntries(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: no entitlements", path)
	}
	out := make([]commitment.Entitlement, 0, len(entries))
	seen := make(map[uint64]struct{}, len(entries))
	for i, entry := range entries {
		record, err := entry.record()
		if err != nil {
			return nil, fmt.Errorf("%s: entitlement %d: %w", path, i, err)
		}
		if _, dup := seen[record.Index]; dup {
			return nil, fmt.Errorf("%s: %w: %d", path, commitment.ErrDuplicateIndex, record.Index)
		}
		seen[record.Index] = struct{}{}
		out = append(out, record)
	}
	return out, nil
}

func decodeEntries(raw []byte) ([]entitlementEntry, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var entries []entitlementEntry
		if err := root.Decode(&entries); err != nil {
			return nil, err
		}
		return entries, nil
	}
	var file entitlementFile
	if err := root.Decode(&file); err != nil {
		return nil, err
	}
	return file.Entitlements, nil
}

func (e entitlementEntry) record() (commitment.Entitlement, error) {
	recipient, err := crypto.ParseIdentity(e.Recipient)
	if err != nil {
		return commitment.Entitlement{}, fmt.Errorf("recipient: %w", err)
	}
	assetID, err := parseAmount("assetId", e.AssetID)
	if err != nil {
		return commitment.Entitlement{}, err
	}
	amount, err := parseAmount("amount", e.Amount)
	if err != nil {
		return commitment.Entitlement{}, err
	}
	quantity, err := parseAmount("quantity", e.Quantity)
	if err != nil {
		return commitment.Entitlement{}, err
	}
	record := commitment.Entitlement{
		Index:     e.Index,
		Recipient: recipient,
		AssetID:   assetID,
		Amount:    amount,
		Quantity:  quantity,
	}
	if err := record.Validate(); err != nil {
		return commitment.Entitlement{}, err
	}
	return record, nil
}

// parseAmount treats an empty field as zero. Values are decimal unless they
// carry a 0x prefix, so leading zeros never switch the base.
func parseAmount(field, value string) (*big.Int, error) {
	v, ok := gethmath.ParseBig256(strings.TrimSpace(value))
	if !ok {
		return nil, fmt.Errorf("%s: invalid integer %q", field, value)
	}
	return v, nil
}
