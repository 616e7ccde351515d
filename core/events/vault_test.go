package events

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"vaultengine/crypto"
)

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func TestRedeemedAttributes(t *testing.T) {
	evt := Redeemed{
		Vault:     addr(1),
		ID:        9,
		Index:     3,
		Recipient: addr(2),
		Submitter: addr(2),
		AssetID:   big.NewInt(3),
		Amount:    big.NewInt(120),
		Quantity:  big.NewInt(1),
	}
	payload := evt.Event()
	require.Equal(t, TypeVaultRedeemed, payload.Type)
	require.Equal(t, evt.EventType(), payload.Type)
	require.Equal(t, crypto.FromArray(addr(1)).String(), payload.Attributes["vault"])
	require.Equal(t, "9", payload.Attributes["id"])
	require.Equal(t, "3", payload.Attributes["index"])
	require.Equal(t, "120", payload.Attributes["amount"])
	require.NotContains(t, payload.Attributes, "submitter")

	evt.Submitter = addr(7)
	require.Equal(t, crypto.FromArray(addr(7)).String(), evt.Event().Attributes["submitter"])
}

func TestEventCreatedFormatsRoot(t *testing.T) {
	var root [32]byte
	root[0] = 0xAB
	payload := EventCreated{Vault: addr(1), ID: 1, Root: root, StartTime: -1, AssetKind: "unique"}.Event()
	require.Equal(t, "0xab00000000000000000000000000000000000000000000000000000000000000", payload.Attributes["root"])
	require.Equal(t, "-1", payload.Attributes["startTime"])
}

func TestWithdrawnOmitsAssetIDForFungible(t *testing.T) {
	payload := Withdrawn{Vault: addr(1), Kind: "fungible", Contract: addr(3), Amount: big.NewInt(5), To: addr(4)}.Event()
	require.NotContains(t, payload.Attributes, "assetId")
	payload = Withdrawn{Vault: addr(1), Kind: "unique", Contract: addr(3), AssetID: big.NewInt(8), Amount: big.NewInt(1), To: addr(4)}.Event()
	require.Equal(t, "8", payload.Attributes["assetId"])
}

func TestAdminsUpdatedListsAdmins(t *testing.T) {
	payload := AdminsUpdated{Vault: addr(1), Admins: [][20]byte{addr(5), addr(6)}, Enabled: true}.Event()
	require.Equal(t, "2", payload.Attributes["count"])
	require.Equal(t, crypto.FromArray(addr(6)).String(), payload.Attributes["admin.1"])
	require.Equal(t, "true", payload.Attributes["enabled"])
}

func TestCollectorIsolatesPayloads(t *testing.T) {
	c := &Collector{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Emit(EventStatusChanged{Vault: addr(1), ID: uint64(i), Active: true})
		}(i)
	}
	wg.Wait()
	c.Emit(nil)
	require.Len(t, c.Events(), 8)
	require.Len(t, c.OfType(TypeVaultEventStatusChanged), 8)
	require.Empty(t, c.OfType(TypeVaultRedeemed))

	got := c.Events()
	got[0].Attributes["active"] = "mutated"
	require.Equal(t, "true", c.Events()[0].Attributes["active"])

	var nilCollector *Collector
	nilCollector.Emit(EventStatusChanged{})
	require.Nil(t, nilCollector.Events())
}
