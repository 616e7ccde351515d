package state

import (
	"fmt"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"vaultengine/native/vault"
	"vaultengine/storage"
)

var (
	factoryImplementationPrefix = []byte("factory/implementation/")
	factoryVaultsPrefix         = []byte("factory/vaults/")
)

// FactoryStore persists a factory's implementation descriptor and the list of
// vaults it created. Vault records themselves live in per-vault VaultStores
// over the same database.
type FactoryStore struct {
	db   storage.Database
	addr [20]byte
	mu   sync.Mutex
}

// NewFactoryStore scopes db to the factory at addr.
func NewFactoryStore(db storage.Database, addr [20]byte) (*FactoryStore, error) {
	if db == nil {
		return nil, errNilVaultDatabase
	}
	return &FactoryStore{db: db, addr: addr}, nil
}

func (s *FactoryStore) key(prefix []byte) []byte {
	buf := make([]byte, len(prefix)+len(s.addr))
	copy(buf, prefix)
	copy(buf[len(prefix):], s.addr[:])
	return ethcrypto.Keccak256(buf)
}

type storedLogic struct {
	Version string
	Policy  uint8
}

func (s *FactoryStore) ImplementationPut(logic vault.Logic) error {
	return kvPut(s.db, s.key(factoryImplementationPrefix), &storedLogic{
		Version: logic.Version,
		Policy:  uint8(logic.Policy),
	})
}

func (s *FactoryStore) ImplementationGet() (vault.Logic, bool, error) {
	var stored storedLogic
	ok, err := kvGet(s.db, s.key(factoryImplementationPrefix), &stored)
	if err != nil || !ok {
		return vault.Logic{}, ok, err
	}
	return vault.Logic{Version: stored.Version, Policy: vault.RedeemPolicy(stored.Policy)}, true, nil
}

// VaultAdd appends addr to the factory's vault list. Re-adding an address is a
// no-op.
func (s *FactoryStore) VaultAdd(addr [20]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.vaults()
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing == addr {
			return nil
		}
	}
	list = append(list, addr)
	return kvPut(s.db, s.key(factoryVaultsPrefix), list)
}

// VaultAddresses lists created vaults in creation order.
func (s *FactoryStore) VaultAddresses() ([][20]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vaults()
}

func (s *FactoryStore) vaults() ([][20]byte, error) {
	var list [][20]byte
	if _, err := kvGet(s.db, s.key(factoryVaultsPrefix), &list); err != nil {
		return nil, fmt.Errorf("state: decode vault list: %w", err)
	}
	return list, nil
}

// VaultState opens the state of the vault at addr.
func (s *FactoryStore) VaultState(addr [20]byte) (vault.State, error) {
	return NewVaultStore(s.db, addr)
}
