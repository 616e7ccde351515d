package factory_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"vaultengine/core/events"
	"vaultengine/core/state"
	"vaultengine/native/vault"
	"vaultengine/native/vault/assets/memledger"
	"vaultengine/native/vault/commitment"
	"vaultengine/native/vault/factory"
	"vaultengine/storage"
)

func id(b byte) [20]byte {
	var out [20]byte
	out[0] = 0x42
	out[19] = b
	return out
}

var (
	factoryAddr = id(0xF0)
	owner       = id(0x01)
	alice       = id(0x0A)
	bob         = id(0x0B)
)

type fixture struct {
	db       *storage.MemDB
	registry *state.FactoryStore
	ledgers  *memledger.Registry
	factory  *factory.Factory
	events   *events.Collector
}

func newFixture(t *testing.T, impl factory.Implementation) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	registry, err := state.NewFactoryStore(db, factoryAddr)
	require.NoError(t, err)
	ledgers := memledger.NewRegistry()
	f, err := factory.New(factoryAddr, owner, impl, registry, ledgers)
	require.NoError(t, err)
	collector := &events.Collector{}
	f.SetEmitter(collector)
	f.SetNowFunc(func() int64 { return 1_000 })
	return &fixture{db: db, registry: registry, ledgers: ledgers, factory: f, events: collector}
}

func v1() factory.Implementation {
	return factory.Implementation{Version: "1.0.0", Policy: vault.PolicyRecipientOnly}
}

func TestNewRejectsInvalidImplementation(t *testing.T) {
	registry, err := state.NewFactoryStore(storage.NewMemDB(), factoryAddr)
	require.NoError(t, err)
	_, err = factory.New(factoryAddr, owner, factory.Implementation{Version: "one"}, registry, memledger.NewRegistry())
	require.ErrorIs(t, err, factory.ErrInvalidVersion)
	_, err = factory.New(factoryAddr, [20]byte{}, v1(), registry, memledger.NewRegistry())
	require.ErrorIs(t, err, factory.ErrInvalidAdmin)
}

func TestCreateVaultDeterministicAddress(t *testing.T) {
	fx := newFixture(t, v1())
	salt := [32]byte{1}

	expected := fx.factory.VaultAddress(alice, salt, fx.factory.Implementation())
	v, err := fx.factory.CreateVault(alice, alice, salt)
	require.NoError(t, err)
	require.Equal(t, expected, v.Address())
	require.Equal(t, alice, v.Owner())
	require.Equal(t, v1(), v.Logic())

	again, err := fx.factory.Vault(expected)
	require.NoError(t, err)
	require.Same(t, v, again)

	_, err = fx.factory.CreateVault(bob, alice, salt)
	require.ErrorIs(t, err, factory.ErrVaultExists)

	other, err := fx.factory.CreateVault(alice, alice, [32]byte{2})
	require.NoError(t, err)
	require.NotEqual(t, v.Address(), other.Address())

	bobs, err := fx.factory.CreateVault(bob, bob, salt)
	require.NoError(t, err)
	require.NotEqual(t, v.Address(), bobs.Address())

	list, err := fx.factory.Vaults()
	require.NoError(t, err)
	require.Equal(t, [][20]byte{v.Address(), other.Address(), bobs.Address()}, list)

	created := fx.events.OfType(events.TypeVaultCreated)
	require.Len(t, created, 3)
	require.Equal(t, "1.0.0", created[0].Attributes["version"])
}

func TestCreateVaultRejectsZeroAdmin(t *testing.T) {
	fx := newFixture(t, v1())
	_, err := fx.factory.CreateVault(alice, [20]byte{}, [32]byte{})
	require.ErrorIs(t, err, factory.ErrInvalidAdmin)
}

func TestSetImplementation(t *testing.T) {
	fx := newFixture(t, v1())

	err := fx.factory.SetImplementation(alice, factory.Implementation{Version: "2.0.0"})
	require.ErrorIs(t, err, factory.ErrUnauthorized)

	err = fx.factory.SetImplementation(owner, factory.Implementation{Version: "1.0.0"})
	require.ErrorIs(t, err, factory.ErrVersionNotNewer)
	err = fx.factory.SetImplementation(owner, factory.Implementation{Version: "0.9.0"})
	require.ErrorIs(t, err, factory.ErrVersionNotNewer)
	err = fx.factory.SetImplementation(owner, factory.Implementation{Version: "v2"})
	require.ErrorIs(t, err, factory.ErrInvalidVersion)

	oldVault, err := fx.factory.CreateVault(alice, alice, [32]byte{9})
	require.NoError(t, err)

	v2 := factory.Implementation{Version: "1.1.0", Policy: vault.PolicyRelayerAllowed}
	require.NoError(t, fx.factory.SetImplementation(owner, v2))
	require.Equal(t, v2, fx.factory.Implementation())

	newVault, err := fx.factory.CreateVault(alice, alice, [32]byte{9})
	require.NoError(t, err, "new version derives a fresh address for the same salt")
	require.NotEqual(t, oldVault.Address(), newVault.Address())
	require.Equal(t, v2, newVault.Logic())
	require.Equal(t, v1(), oldVault.Logic(), "existing vaults keep their descriptor")

	updates := fx.events.OfType(events.TypeVaultImplementation)
	require.Len(t, updates, 1)
	require.Equal(t, "1.0.0", updates[0].Attributes["previous"])
	require.Equal(t, "relayer-allowed", updates[0].Attributes["policy"])
}

func TestFactoryReopensFromRegistry(t *testing.T) {
	fx := newFixture(t, v1())
	created, err := fx.factory.CreateVault(alice, alice, [32]byte{3})
	require.NoError(t, err)
	require.NoError(t, fx.factory.SetImplementation(owner, factory.Implementation{Version: "1.2.0"}))

	reopened, err := factory.New(factoryAddr, owner, v1(), fx.registry, fx.ledgers)
	require.NoError(t, err)
	require.Equal(t, "1.2.0", reopened.Implementation().Version)

	loaded, err := reopened.Vault(created.Address())
	require.NoError(t, err)
	require.Equal(t, created.Meta(), loaded.Meta())

	_, err = reopened.Vault(id(0x77))
	require.ErrorIs(t, err, factory.ErrVaultNotFound)
}

func TestFactoryVaultRedeemsSemiFungible(t *testing.T) {
	fx := newFixture(t, v1())
	v, err := fx.factory.CreateVault(alice, alice, [32]byte{5})
	require.NoError(t, err)

	payout := id(0xC0)
	asset := id(0xC1)
	token := memledger.NewFungible("USD")
	items := memledger.NewSemiFungible()
	fx.ledgers.RegisterFungible(payout, token)
	fx.ledgers.RegisterSemiFungible(asset, items)
	require.NoError(t, token.Mint(v.Address(), big.NewInt(1_000)))
	require.NoError(t, items.Mint(v.Address(), big.NewInt(7), big.NewInt(10), nil))

	record := vault.EntitlementRecord{
		Index:     0,
		Recipient: bob,
		AssetID:   big.NewInt(7),
		Amount:    big.NewInt(120),
		Quantity:  big.NewInt(3),
	}
	other := vault.EntitlementRecord{
		Index:     1,
		Recipient: alice,
		AssetID:   big.NewInt(7),
		Amount:    big.NewInt(5),
		Quantity:  big.NewInt(1),
	}
	tree, err := commitment.New([]commitment.Entitlement{record, other})
	require.NoError(t, err)
	proof, err := tree.ProofFor(record)
	require.NoError(t, err)

	_, err = v.CreateEvent(alice, vault.EventParams{
		ID:            1,
		Root:          tree.Root(),
		AssetKind:     vault.AssetSemiFungible,
		AssetContract: asset,
		PayoutToken:   payout,
	})
	require.NoError(t, err)
	require.NoError(t, v.SetEventStatus(alice, 1, true))

	result, err := v.Redeem(bob, 1, record, proof)
	require.NoError(t, err)
	require.Equal(t, int64(1_000), result.RedeemedAt)
	paid, err := token.BalanceOf(bob)
	require.NoError(t, err)
	require.Equal(t, 0, paid.Cmp(big.NewInt(120)))
	held, err := items.BalanceOf(bob, big.NewInt(7))
	require.NoError(t, err)
	require.Equal(t, 0, held.Cmp(big.NewInt(3)))

	// The vault's records live in the shared database under its own keys.
	st, err := state.NewVaultStore(fx.db, v.Address())
	require.NoError(t, err)
	claimed, err := st.ClaimGet(1, 0)
	require.NoError(t, err)
	require.True(t, claimed)

	redeemed := fx.events.OfType(events.TypeVaultRedeemed)
	require.Len(t, redeemed, 1)
	require.Equal(t, common.Big3.String(), redeemed[0].Attributes["quantity"])
}
