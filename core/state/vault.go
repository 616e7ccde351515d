package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"vaultengine/native/vault"
	"vaultengine/storage"
)

var (
	vaultMetaPrefix     = []byte("vault/meta/")
	vaultEventPrefix    = []byte("vault/event/")
	vaultEventIndexKey  = []byte("vault/events/")
	vaultClaimPrefix    = []byte("vault/claim/")
	vaultAdminPrefix    = []byte("vault/admin/")
	claimMarker         = []byte{0x01}
	errNilVaultDatabase = errors.New("state: database required")
)

// VaultStore keeps the records of a single vault instance in a shared
// key-value database. Every key is hashed together with the vault address, so
// stores for different vaults never observe each other's data.
type VaultStore struct {
	db   storage.Database
	addr [20]byte

	// guards the event id index read-modify-write
	mu sync.Mutex
}

var _ vault.State = (*VaultStore)(nil)

// NewVaultStore scopes db to the vault at addr.
func NewVaultStore(db storage.Database, addr [20]byte) (*VaultStore, error) {
	if db == nil {
		return nil, errNilVaultDatabase
	}
	return &VaultStore{db: db, addr: addr}, nil
}

// Address returns the vault the store is scoped to.
func (s *VaultStore) Address() [20]byte { return s.addr }

func (s *VaultStore) key(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix) + len(s.addr)
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	buf = append(buf, s.addr[:]...)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return ethcrypto.Keccak256(buf)
}

func u64(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

// kvPut RLP-encodes value under key.
func kvPut(db storage.Database, key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return db.Put(key, encoded)
}

// kvGet decodes the value under key into out. The boolean reports whether the
// key existed.
func kvGet(db storage.Database, key []byte, out interface{}) (bool, error) {
	data, err := db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

type storedMeta struct {
	Address   [20]byte
	Owner     [20]byte
	Version   string
	Policy    uint8
	CreatedAt *big.Int
}

func (s *VaultStore) VaultMetaPut(meta *vault.Meta) error {
	if meta == nil {
		return fmt.Errorf("state: nil vault meta")
	}
	if meta.Address != s.addr {
		return fmt.Errorf("state: meta for %x stored under vault %x", meta.Address, s.addr)
	}
	return kvPut(s.db, s.key(vaultMetaPrefix), &storedMeta{
		Address:   meta.Address,
		Owner:     meta.Owner,
		Version:   meta.Logic.Version,
		Policy:    uint8(meta.Logic.Policy),
		CreatedAt: big.NewInt(meta.CreatedAt),
	})
}

func (s *VaultStore) VaultMetaGet() (*vault.Meta, bool, error) {
	var stored storedMeta
	ok, err := kvGet(s.db, s.key(vaultMetaPrefix), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	meta := &vault.Meta{
		Address: stored.Address,
		Owner:   stored.Owner,
		Logic:   vault.Logic{Version: stored.Version, Policy: vault.RedeemPolicy(stored.Policy)},
	}
	if stored.CreatedAt != nil {
		meta.CreatedAt = stored.CreatedAt.Int64()
	}
	return meta, true, nil
}

type storedEvent struct {
	ID            uint64
	StartTime     *big.Int
	Root          [32]byte
	AssetKind     uint8
	AssetContract [20]byte
	PayoutToken   [20]byte
	Active        bool
	CreatedAt     *big.Int
}

func newStoredEvent(evt *vault.DistributionEvent) *storedEvent {
	return &storedEvent{
		ID:            evt.ID,
		StartTime:     big.NewInt(evt.StartTime),
		Root:          evt.Root,
		AssetKind:     uint8(evt.AssetKind),
		AssetContract: evt.AssetContract,
		PayoutToken:   evt.PayoutToken,
		Active:        evt.Active,
		CreatedAt:     big.NewInt(evt.CreatedAt),
	}
}

func (s *storedEvent) toEvent() (*vault.DistributionEvent, error) {
	out := &vault.DistributionEvent{
		ID:            s.ID,
		Root:          common.Hash(s.Root),
		AssetKind:     vault.AssetKind(s.AssetKind),
		AssetContract: s.AssetContract,
		PayoutToken:   s.PayoutToken,
		Active:        s.Active,
	}
	if s.StartTime != nil {
		out.StartTime = s.StartTime.Int64()
	}
	if s.CreatedAt != nil {
		out.CreatedAt = s.CreatedAt.Int64()
	}
	if !out.AssetKind.Valid() {
		return nil, fmt.Errorf("state: event %d has invalid asset kind %d", s.ID, s.AssetKind)
	}
	return out, nil
}

// EventPut stores evt and records its id in the event index on first write.
func (s *VaultStore) EventPut(evt *vault.DistributionEvent) error {
	if evt == nil {
		return fmt.Errorf("state: nil event")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.key(vaultEventPrefix, u64(evt.ID))
	exists, err := s.db.Has(key)
	if err != nil {
		return err
	}
	if err := kvPut(s.db, key, newStoredEvent(evt)); err != nil {
		return err
	}
	if exists {
		return nil
	}
	ids, err := s.eventIDs()
	if err != nil {
		return err
	}
	ids = append(ids, evt.ID)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return kvPut(s.db, s.key(vaultEventIndexKey), ids)
}

func (s *VaultStore) EventGet(id uint64) (*vault.DistributionEvent, bool, error) {
	var stored storedEvent
	ok, err := kvGet(s.db, s.key(vaultEventPrefix, u64(id)), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	evt, err := stored.toEvent()
	if err != nil {
		return nil, false, err
	}
	return evt, true, nil
}

// EventIDs returns every stored event id in ascending order.
func (s *VaultStore) EventIDs() ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventIDs()
}

func (s *VaultStore) eventIDs() ([]uint64, error) {
	var ids []uint64
	if _, err := kvGet(s.db, s.key(vaultEventIndexKey), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *VaultStore) claimKey(eventID, index uint64) []byte {
	return s.key(vaultClaimPrefix, u64(eventID), u64(index))
}

func (s *VaultStore) ClaimGet(eventID, index uint64) (bool, error) {
	return s.db.Has(s.claimKey(eventID, index))
}

func (s *VaultStore) ClaimPut(eventID, index uint64) error {
	return s.db.Put(s.claimKey(eventID, index), claimMarker)
}

func (s *VaultStore) ClaimDelete(eventID, index uint64) error {
	return s.db.Delete(s.claimKey(eventID, index))
}

// AdminPut grants the admin role, or removes the record when enabled is false.
func (s *VaultStore) AdminPut(addr [20]byte, enabled bool) error {
	key := s.key(vaultAdminPrefix, addr[:])
	if !enabled {
		return s.db.Delete(key)
	}
	return kvPut(s.db, key, true)
}

func (s *VaultStore) AdminGet(addr [20]byte) (bool, error) {
	var enabled bool
	ok, err := kvGet(s.db, s.key(vaultAdminPrefix, addr[:]), &enabled)
	if err != nil {
		return false, err
	}
	return ok && enabled, nil
}
