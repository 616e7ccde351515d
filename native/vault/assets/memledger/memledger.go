// Package memledger provides in-memory asset ledgers implementing the
// interfaces consumed by the vault. They back tests and local simulations.
package memledger

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"vaultengine/native/vault/assets"
)

var (
	ErrInsufficientBalance   = errors.New("memledger: insufficient balance")
	ErrInsufficientAllowance = errors.New("memledger: insufficient allowance")
	ErrNotOwner              = errors.New("memledger: sender does not own token")
	ErrTokenExists           = errors.New("memledger: token already minted")
	ErrTokenNotFound         = errors.New("memledger: token not found")
	ErrInvalidAmount         = errors.New("memledger: amount must be non-negative")
)

func amountOf(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// --- Fungible ---

type allowanceKey struct {
	owner, spender [20]byte
}

// Fungible is an ERC20-style balance ledger.
type Fungible struct {
	mu         sync.Mutex
	symbol     string
	balances   map[[20]byte]*big.Int
	allowances map[allowanceKey]*big.Int
}

func NewFungible(symbol string) *Fungible {
	return &Fungible{
		symbol:     symbol,
		balances:   make(map[[20]byte]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
	}
}

// Symbol returns the ticker supplied at construction.
func (f *Fungible) Symbol() string { return f.symbol }

// Mint credits amount to to.
func (f *Fungible) Mint(to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setBalance(to, new(big.Int).Add(f.balance(to), amount))
	return nil
}

func (f *Fungible) BalanceOf(owner [20]byte) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance(owner), nil
}

func (f *Fungible) Transfer(from, to [20]byte, amount *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.move(from, to, amount)
}

// RevertTransfer unwinds a transfer from from to to. Only the delta is
// reversed, so unrelated concurrent transfers are preserved.
func (f *Fungible) RevertTransfer(from, to [20]byte, amount *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.move(to, from, amount)
}

func (f *Fungible) Approve(owner, spender [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowances[allowanceKey{owner: owner, spender: spender}] = new(big.Int).Set(amount)
	return nil
}

func (f *Fungible) Allowance(owner, spender [20]byte) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return amountOf(f.allowances[allowanceKey{owner: owner, spender: spender}]), nil
}

func (f *Fungible) TransferFrom(spender, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := allowanceKey{owner: from, spender: spender}
	allowed := amountOf(f.allowances[key])
	if allowed.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := f.move(from, to, amount); err != nil {
		return err
	}
	f.allowances[key] = allowed.Sub(allowed, amount)
	return nil
}

func (f *Fungible) move(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	fromBal := f.balance(from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, fromBal, amount)
	}
	f.setBalance(from, fromBal.Sub(fromBal, amount))
	f.setBalance(to, new(big.Int).Add(f.balance(to), amount))
	return nil
}

func (f *Fungible) balance(owner [20]byte) *big.Int {
	return amountOf(f.balances[owner])
}

func (f *Fungible) setBalance(owner [20]byte, v *big.Int) {
	f.balances[owner] = v
}

// --- Unique ---

// Unique is an ERC721-style registry.
type Unique struct {
	mu     sync.Mutex
	owners map[string][20]byte
}

func NewUnique() *Unique {
	return &Unique{owners: make(map[string][20]byte)}
}

func (u *Unique) OwnerOf(tokenID *big.Int) ([20]byte, error) {
	if tokenID == nil {
		return [20]byte{}, ErrTokenNotFound
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	owner, ok := u.owners[tokenID.String()]
	if !ok {
		return [20]byte{}, ErrTokenNotFound
	}
	return owner, nil
}

// BalanceOf counts the tokens held by owner.
func (u *Unique) BalanceOf(owner [20]byte) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	count := 0
	for _, holder := range u.owners {
		if holder == owner {
			count++
		}
	}
	return count
}

func (u *Unique) Mint(to [20]byte, tokenID *big.Int) error {
	if tokenID == nil || tokenID.Sign() < 0 {
		return ErrTokenNotFound
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	key := tokenID.String()
	if _, exists := u.owners[key]; exists {
		return ErrTokenExists
	}
	u.setOwner(key, to)
	return nil
}

func (u *Unique) Transfer(from, to [20]byte, tokenID *big.Int) error {
	if tokenID == nil {
		return ErrTokenNotFound
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	key := tokenID.String()
	owner, ok := u.owners[key]
	if !ok {
		return ErrTokenNotFound
	}
	if owner != from {
		return ErrNotOwner
	}
	u.setOwner(key, to)
	return nil
}

func (u *Unique) setOwner(key string, owner [20]byte) {
	u.owners[key] = owner
}

// --- Semi-fungible ---

type holdingKey struct {
	owner [20]byte
	id    string
}

// SemiFungible is an ERC1155-style registry.
type SemiFungible struct {
	mu       sync.Mutex
	balances map[holdingKey]*big.Int
}

func NewSemiFungible() *SemiFungible {
	return &SemiFungible{balances: make(map[holdingKey]*big.Int)}
}

func (s *SemiFungible) BalanceOf(owner [20]byte, id *big.Int) (*big.Int, error) {
	if id == nil {
		return big.NewInt(0), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return amountOf(s.balances[holdingKey{owner: owner, id: id.String()}]), nil
}

func (s *SemiFungible) Mint(to [20]byte, id, amount *big.Int, _ []byte) error {
	if id == nil || id.Sign() < 0 || amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := holdingKey{owner: to, id: id.String()}
	s.setBalance(key, new(big.Int).Add(amountOf(s.balances[key]), amount))
	return nil
}

func (s *SemiFungible) Transfer(from, to [20]byte, id, amount *big.Int) error {
	if id == nil || amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fromKey := holdingKey{owner: from, id: id.String()}
	toKey := holdingKey{owner: to, id: id.String()}
	have := amountOf(s.balances[fromKey])
	if have.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s of %s, need %s", ErrInsufficientBalance, have, id, amount)
	}
	s.setBalance(fromKey, have.Sub(have, amount))
	s.setBalance(toKey, new(big.Int).Add(amountOf(s.balances[toKey]), amount))
	return nil
}

func (s *SemiFungible) setBalance(key holdingKey, v *big.Int) {
	s.balances[key] = v
}

// --- Registry ---

// Registry resolves contract references to the in-memory ledgers above.
type Registry struct {
	mu           sync.RWMutex
	fungible     map[[20]byte]assets.FungibleLedger
	unique       map[[20]byte]assets.UniqueAssetRegistry
	semiFungible map[[20]byte]assets.SemiFungibleRegistry
}

var (
	_ assets.Resolver             = (*Registry)(nil)
	_ assets.FungibleLedger       = (*Fungible)(nil)
	_ assets.Reverter             = (*Fungible)(nil)
	_ assets.UniqueAssetRegistry  = (*Unique)(nil)
	_ assets.SemiFungibleRegistry = (*SemiFungible)(nil)
)

func NewRegistry() *Registry {
	return &Registry{
		fungible:     make(map[[20]byte]assets.FungibleLedger),
		unique:       make(map[[20]byte]assets.UniqueAssetRegistry),
		semiFungible: make(map[[20]byte]assets.SemiFungibleRegistry),
	}
}

func (r *Registry) RegisterFungible(contract [20]byte, ledger assets.FungibleLedger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fungible[contract] = ledger
}

func (r *Registry) RegisterUnique(contract [20]byte, registry assets.UniqueAssetRegistry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unique[contract] = registry
}

func (r *Registry) RegisterSemiFungible(contract [20]byte, registry assets.SemiFungibleRegistry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.semiFungible[contract] = registry
}

func (r *Registry) Fungible(contract [20]byte) (assets.FungibleLedger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ledger, ok := r.fungible[contract]
	if !ok {
		return nil, assets.ErrUnknownContract
	}
	return ledger, nil
}

func (r *Registry) Unique(contract [20]byte) (assets.UniqueAssetRegistry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	registry, ok := r.unique[contract]
	if !ok {
		return nil, assets.ErrUnknownContract
	}
	return registry, nil
}

func (r *Registry) SemiFungible(contract [20]byte) (assets.SemiFungibleRegistry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	registry, ok := r.semiFungible[contract]
	if !ok {
		return nil, assets.ErrUnknownContract
	}
	return registry, nil
}
