// Package factory deploys vault instances at deterministic addresses and
// tracks the implementation descriptor new vaults are bound to.
package factory

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"vaultengine/core/events"
	"vaultengine/crypto"
	"vaultengine/native/vault"
	"vaultengine/native/vault/assets"
	"vaultengine/observability/logging"
)

var (
	ErrVaultExists       = errors.New("factory: vault already exists")
	ErrVaultNotFound     = errors.New("factory: vault not found")
	ErrInvalidVersion    = errors.New("factory: invalid implementation version")
	ErrVersionNotNewer   = errors.New("factory: implementation version must increase")
	ErrUnauthorized      = errors.New("factory: unauthorized")
	ErrInvalidAdmin      = errors.New("factory: admin identity required")
	errNilRegistry       = errors.New("factory: registry not configured")
	errMissingFactoryKey = errors.New("factory: address required")
)

// Implementation is the logic descriptor handed to every vault created while
// it is current.
type Implementation = vault.Logic

// Registry persists factory records and opens per-vault state.
type Registry interface {
	ImplementationGet() (vault.Logic, bool, error)
	ImplementationPut(logic vault.Logic) error
	VaultAdd(addr [20]byte) error
	VaultAddresses() ([][20]byte, error)
	VaultState(addr [20]byte) (vault.State, error)
}

// Metrics receives factory counters.
type Metrics interface {
	vault.Metrics
	ObserveInstanceCreated()
}

type noopMetrics struct{}

func (noopMetrics) ObserveRedemption(string) {}
func (noopMetrics) ObserveEventCreated()     {}
func (noopMetrics) ObserveInstanceCreated()  {}

// Factory creates vaults. Each vault is bound to the implementation current at
// its creation; later SetImplementation calls only affect new vaults.
type Factory struct {
	addr     [20]byte
	owner    [20]byte
	registry Registry
	resolver assets.Resolver
	emitter  events.Emitter
	metrics  Metrics
	logger   *slog.Logger
	nowFn    func() int64

	mu    sync.Mutex
	impl  Implementation
	cache map[[20]byte]*vault.Vault
}

// New opens the factory at addr. If the registry already holds an
// implementation it is kept and impl is ignored; otherwise impl is validated
// and persisted.
func New(addr, owner [20]byte, impl Implementation, registry Registry, resolver assets.Resolver) (*Factory, error) {
	if registry == nil {
		return nil, errNilRegistry
	}
	if addr == ([20]byte{}) {
		return nil, errMissingFactoryKey
	}
	if owner == ([20]byte{}) {
		return nil, fmt.Errorf("%w: owner", ErrInvalidAdmin)
	}
	current, ok, err := registry.ImplementationGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := validateImplementation(impl); err != nil {
			return nil, err
		}
		if err := registry.ImplementationPut(impl); err != nil {
			return nil, err
		}
		current = impl
	}
	return &Factory{
		addr:     addr,
		owner:    owner,
		registry: registry,
		resolver: resolver,
		emitter:  events.NoopEmitter{},
		metrics:  noopMetrics{},
		logger:   slog.Default().With(slog.String("component", "vault-factory")),
		impl:     current,
		cache:    make(map[[20]byte]*vault.Vault),
	}, nil
}

// SetEmitter configures the emitter for factory events and for every vault
// the factory opens afterwards.
func (f *Factory) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	f.emitter = emitter
}

// SetMetrics installs a metrics sink shared with opened vaults.
func (f *Factory) SetMetrics(m Metrics) {
	if m == nil {
		f.metrics = noopMetrics{}
		return
	}
	f.metrics = m
}

func (f *Factory) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	f.logger = logger.With(slog.String("component", "vault-factory"))
}

// SetNowFunc overrides the time source passed to opened vaults.
func (f *Factory) SetNowFunc(now func() int64) { f.nowFn = now }

// Address returns the factory identity used in address derivation.
func (f *Factory) Address() [20]byte { return f.addr }

func (f *Factory) Owner() [20]byte { return f.owner }

// Implementation returns the descriptor new vaults are bound to.
func (f *Factory) Implementation() Implementation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.impl
}

// SetImplementation replaces the current descriptor. Owner only; the version
// must be strictly greater than the current one. Existing vaults keep theirs.
func (f *Factory) SetImplementation(caller [20]byte, impl Implementation) error {
	if caller != f.owner {
		return fmt.Errorf("%w: owner required", ErrUnauthorized)
	}
	if err := validateImplementation(impl); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	next, _ := semver.StrictNewVersion(impl.Version)
	prev, err := semver.StrictNewVersion(f.impl.Version)
	if err != nil {
		return fmt.Errorf("%w: stored %q: %w", ErrInvalidVersion, f.impl.Version, err)
	}
	if !next.GreaterThan(prev) {
		return fmt.Errorf("%w: %s is not newer than %s", ErrVersionNotNewer, next, prev)
	}
	if err := f.registry.ImplementationPut(impl); err != nil {
		return err
	}
	previous := f.impl
	f.impl = impl
	f.logger.Info("implementation updated",
		slog.String("previous", previous.Version),
		slog.String("version", impl.Version),
		slog.String("policy", impl.Policy.String()))
	f.emitter.Emit(events.ImplementationUpdated{
		Factory:  f.addr,
		Previous: previous.Version,
		Version:  impl.Version,
		Policy:   impl.Policy.String(),
	})
	return nil
}

func validateImplementation(impl Implementation) error {
	if _, err := semver.StrictNewVersion(impl.Version); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidVersion, impl.Version, err)
	}
	if !impl.Policy.Valid() {
		return fmt.Errorf("%w: redeem policy %d", ErrInvalidVersion, impl.Policy)
	}
	return nil
}

// VaultAddress derives the address CreateVault would use for admin and salt
// under impl.
func (f *Factory) VaultAddress(admin [20]byte, salt [32]byte, impl Implementation) [20]byte {
	return DeriveAddress(f.addr, admin, salt, impl.Version)
}

// DeriveAddress computes CreateAddress2(factory, keccak(admin ‖ salt),
// keccak(version)).
func DeriveAddress(factory, admin [20]byte, salt [32]byte, version string) [20]byte {
	buf := make([]byte, 0, len(admin)+len(salt))
	buf = append(buf, admin[:]...)
	buf = append(buf, salt[:]...)
	var mixed [32]byte
	copy(mixed[:], ethcrypto.Keccak256(buf))
	return ethcrypto.CreateAddress2(common.Address(factory), mixed, ethcrypto.Keccak256([]byte(version)))
}

// CreateVault deploys a vault administered by admin. Anyone may call it; the
// same admin may own any number of vaults by varying salt.
func (f *Factory) CreateVault(caller, admin [20]byte, salt [32]byte) (*vault.Vault, error) {
	if admin == ([20]byte{}) {
		return nil, ErrInvalidAdmin
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	impl := f.impl
	addr := DeriveAddress(f.addr, admin, salt, impl.Version)
	if _, cached := f.cache[addr]; cached {
		return nil, fmt.Errorf("%w: %s", ErrVaultExists, crypto.FromArray(addr))
	}
	st, err := f.registry.VaultState(addr)
	if err != nil {
		return nil, err
	}
	if _, exists, err := st.VaultMetaGet(); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: %s", ErrVaultExists, crypto.FromArray(addr))
	}
	v, err := vault.New(addr, admin, impl, st, f.resolver)
	if err != nil {
		return nil, err
	}
	if err := f.registry.VaultAdd(addr); err != nil {
		return nil, err
	}
	f.wire(v)
	f.cache[addr] = v
	f.metrics.ObserveInstanceCreated()
	f.logger.Info("vault created",
		slog.String("vault", crypto.FromArray(addr).String()),
		slog.String("version", impl.Version),
		logging.MaskIdentity("creator", caller))
	f.emitter.Emit(events.VaultCreated{
		Factory: f.addr,
		Vault:   addr,
		Owner:   admin,
		Salt:    salt,
		Version: impl.Version,
	})
	return v, nil
}

// Vault returns the vault at addr, loading it from the registry if needed.
func (f *Factory) Vault(addr [20]byte) (*vault.Vault, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.cache[addr]; ok {
		return v, nil
	}
	st, err := f.registry.VaultState(addr)
	if err != nil {
		return nil, err
	}
	v, err := vault.Load(st, f.resolver)
	if errors.Is(err, vault.ErrVaultNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, crypto.FromArray(addr))
	}
	if err != nil {
		return nil, err
	}
	f.wire(v)
	f.cache[addr] = v
	return v, nil
}

// Vaults lists every vault created by the factory in creation order.
func (f *Factory) Vaults() ([][20]byte, error) {
	return f.registry.VaultAddresses()
}

func (f *Factory) wire(v *vault.Vault) {
	v.SetEmitter(f.emitter)
	v.SetMetrics(f.metrics)
	v.SetLogger(f.logger)
	if f.nowFn != nil {
		v.SetNowFunc(f.nowFn)
	}
}
