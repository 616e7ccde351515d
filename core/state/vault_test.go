package state

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"vaultengine/native/vault"
	"vaultengine/storage"
)

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func newTestStore(t *testing.T, db storage.Database, a [20]byte) *VaultStore {
	t.Helper()
	store, err := NewVaultStore(db, a)
	if err != nil {
		t.Fatalf("new vault store: %v", err)
	}
	return store
}

func sampleEvent(id uint64) *vault.DistributionEvent {
	return &vault.DistributionEvent{
		ID:            id,
		StartTime:     1_700_000_000,
		Root:          common.HexToHash("0x01"),
		AssetKind:     vault.AssetSemiFungible,
		AssetContract: addr(0xAA),
		PayoutToken:   addr(0xBB),
		CreatedAt:     1_600_000_000,
	}
}

func TestVaultStoreMetaRoundTrip(t *testing.T) {
	store := newTestStore(t, storage.NewMemDB(), addr(1))
	if _, ok, err := store.VaultMetaGet(); err != nil || ok {
		t.Fatalf("expected no meta, got ok=%v err=%v", ok, err)
	}
	meta := &vault.Meta{
		Address:   addr(1),
		Owner:     addr(2),
		Logic:     vault.Logic{Version: "1.2.0", Policy: vault.PolicyRelayerAllowed},
		CreatedAt: 42,
	}
	if err := store.VaultMetaPut(meta); err != nil {
		t.Fatalf("put meta: %v", err)
	}
	got, ok, err := store.VaultMetaGet()
	if err != nil || !ok {
		t.Fatalf("get meta: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, meta) {
		t.Fatalf("meta mismatch: got %+v want %+v", got, meta)
	}

	foreign := *meta
	foreign.Address = addr(9)
	if err := store.VaultMetaPut(&foreign); err == nil {
		t.Fatalf("expected error storing meta of another vault")
	}
}

func TestVaultStoreEvents(t *testing.T) {
	store := newTestStore(t, storage.NewMemDB(), addr(1))
	for _, id := range []uint64{7, 3, 5} {
		if err := store.EventPut(sampleEvent(id)); err != nil {
			t.Fatalf("put event %d: %v", id, err)
		}
	}
	updated := sampleEvent(3)
	updated.Active = true
	updated.StartTime = 0
	if err := store.EventPut(updated); err != nil {
		t.Fatalf("update event: %v", err)
	}

	ids, err := store.EventIDs()
	if err != nil {
		t.Fatalf("event ids: %v", err)
	}
	if !reflect.DeepEqual(ids, []uint64{3, 5, 7}) {
		t.Fatalf("unexpected ids %v", ids)
	}
	got, ok, err := store.EventGet(3)
	if err != nil || !ok {
		t.Fatalf("get event: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, updated) {
		t.Fatalf("event mismatch: got %+v want %+v", got, updated)
	}
	if _, ok, err := store.EventGet(99); err != nil || ok {
		t.Fatalf("expected missing event, got ok=%v err=%v", ok, err)
	}
}

func TestVaultStoreClaimsAndAdmins(t *testing.T) {
	store := newTestStore(t, storage.NewMemDB(), addr(1))
	if claimed, _ := store.ClaimGet(1, 2); claimed {
		t.Fatalf("expected unclaimed")
	}
	if err := store.ClaimPut(1, 2); err != nil {
		t.Fatalf("claim put: %v", err)
	}
	if claimed, _ := store.ClaimGet(1, 2); !claimed {
		t.Fatalf("expected claimed")
	}
	if claimed, _ := store.ClaimGet(2, 1); claimed {
		t.Fatalf("claim keys must not collide across event and index")
	}
	if err := store.ClaimDelete(1, 2); err != nil {
		t.Fatalf("claim delete: %v", err)
	}
	if claimed, _ := store.ClaimGet(1, 2); claimed {
		t.Fatalf("expected claim cleared")
	}

	if err := store.AdminPut(addr(5), true); err != nil {
		t.Fatalf("admin put: %v", err)
	}
	if ok, _ := store.AdminGet(addr(5)); !ok {
		t.Fatalf("expected admin")
	}
	if err := store.AdminPut(addr(5), false); err != nil {
		t.Fatalf("admin revoke: %v", err)
	}
	if ok, _ := store.AdminGet(addr(5)); ok {
		t.Fatalf("expected admin revoked")
	}
}

func TestVaultStoresAreIsolated(t *testing.T) {
	db := storage.NewMemDB()
	a := newTestStore(t, db, addr(1))
	b := newTestStore(t, db, addr(2))

	if err := a.EventPut(sampleEvent(1)); err != nil {
		t.Fatalf("put event: %v", err)
	}
	if err := a.ClaimPut(1, 0); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := a.AdminPut(addr(7), true); err != nil {
		t.Fatalf("admin: %v", err)
	}

	if _, ok, _ := b.EventGet(1); ok {
		t.Fatalf("event leaked into second vault")
	}
	if claimed, _ := b.ClaimGet(1, 0); claimed {
		t.Fatalf("claim leaked into second vault")
	}
	if ok, _ := b.AdminGet(addr(7)); ok {
		t.Fatalf("admin leaked into second vault")
	}
	if ids, _ := b.EventIDs(); len(ids) != 0 {
		t.Fatalf("unexpected ids in second vault: %v", ids)
	}
}

func TestVaultStorePersistsInLevelDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	db, err := storage.NewLevelDB(path)
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	store := newTestStore(t, db, addr(1))
	if err := store.EventPut(sampleEvent(4)); err != nil {
		t.Fatalf("put event: %v", err)
	}
	if err := store.ClaimPut(4, 11); err != nil {
		t.Fatalf("claim: %v", err)
	}
	db.Close()

	db, err = storage.NewLevelDB(path)
	if err != nil {
		t.Fatalf("reopen leveldb: %v", err)
	}
	defer db.Close()
	store = newTestStore(t, db, addr(1))
	if _, ok, err := store.EventGet(4); err != nil || !ok {
		t.Fatalf("event lost after reopen: ok=%v err=%v", ok, err)
	}
	if claimed, _ := store.ClaimGet(4, 11); !claimed {
		t.Fatalf("claim lost after reopen")
	}
}

func TestFactoryStore(t *testing.T) {
	db := storage.NewMemDB()
	store, err := NewFactoryStore(db, addr(0xF0))
	if err != nil {
		t.Fatalf("new factory store: %v", err)
	}
	if _, ok, err := store.ImplementationGet(); err != nil || ok {
		t.Fatalf("expected no implementation, got ok=%v err=%v", ok, err)
	}
	logic := vault.Logic{Version: "1.0.0", Policy: vault.PolicyRecipientOnly}
	if err := store.ImplementationPut(logic); err != nil {
		t.Fatalf("put implementation: %v", err)
	}
	got, ok, err := store.ImplementationGet()
	if err != nil || !ok || got != logic {
		t.Fatalf("implementation mismatch: got %+v ok=%v err=%v", got, ok, err)
	}

	for _, a := range [][20]byte{addr(3), addr(1), addr(3)} {
		if err := store.VaultAdd(a); err != nil {
			t.Fatalf("vault add: %v", err)
		}
	}
	list, err := store.VaultAddresses()
	if err != nil {
		t.Fatalf("vault addresses: %v", err)
	}
	if !reflect.DeepEqual(list, [][20]byte{addr(3), addr(1)}) {
		t.Fatalf("unexpected vault list %x", list)
	}

	st, err := store.VaultState(addr(3))
	if err != nil {
		t.Fatalf("vault state: %v", err)
	}
	if st.(*VaultStore).Address() != addr(3) {
		t.Fatalf("vault state scoped to wrong address")
	}
}
