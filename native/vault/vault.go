// Package vault implements isolated distribution vaults. Admins commit each
// batch of entitlements as a Merkle root, and recipients redeem their record
// by presenting a membership proof.
package vault

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vaultengine/core/events"
	"vaultengine/native/vault/assets"
)

// Metrics receives vault counters. observability/metrics provides the
// prometheus implementation.
type Metrics interface {
	ObserveRedemption(outcome string)
	ObserveEventCreated()
}

type noopMetrics struct{}

func (noopMetrics) ObserveRedemption(string) {}
func (noopMetrics) ObserveEventCreated()     {}

// Vault is one distribution campaign: an admin identity, its events and the
// claim table for every event.
type Vault struct {
	meta    Meta
	state   State
	adapter *assets.Adapter
	emitter events.Emitter
	metrics Metrics
	logger  *slog.Logger
	nowFn   func() int64

	// mu serialises admin mutations; claims serialises redemptions per
	// (event, index).
	mu     sync.Mutex
	claims keyedMutex
}

// New initialises a vault at addr owned by owner and persists its metadata.
// It fails if state already holds a vault.
func New(addr, owner [20]byte, logic Logic, state State, resolver assets.Resolver) (*Vault, error) {
	if state == nil {
		return nil, errNilState
	}
	if owner == ([20]byte{}) {
		return nil, fmt.Errorf("vault: owner required")
	}
	if !logic.Policy.Valid() {
		return nil, fmt.Errorf("vault: invalid redeem policy %d", logic.Policy)
	}
	if _, exists, err := state.VaultMetaGet(); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("vault: instance already initialised")
	}
	v := newVault(Meta{Address: addr, Owner: owner, Logic: logic}, state, resolver)
	v.meta.CreatedAt = v.now()
	if err := state.VaultMetaPut(&v.meta); err != nil {
		return nil, err
	}
	return v, nil
}

// Load reopens a vault previously created with New.
func Load(state State, resolver assets.Resolver) (*Vault, error) {
	if state == nil {
		return nil, errNilState
	}
	meta, ok, err := state.VaultMetaGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVaultNotFound
	}
	return newVault(*meta, state, resolver), nil
}

func newVault(meta Meta, state State, resolver assets.Resolver) *Vault {
	return &Vault{
		meta:    meta,
		state:   state,
		adapter: assets.NewAdapter(resolver, meta.Address),
		emitter: events.NoopEmitter{},
		metrics: noopMetrics{},
		logger:  slog.Default().With(slog.String("component", "vault")),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetEmitter configures the event emitter used by the vault. Passing nil resets
// the emitter to a no-op implementation.
func (v *Vault) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		v.emitter = events.NoopEmitter{}
		return
	}
	v.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests to
// provide deterministic timestamps.
func (v *Vault) SetNowFunc(now func() int64) {
	if now == nil {
		v.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	v.nowFn = now
}

// SetMetrics installs a metrics sink. Passing nil disables metrics.
func (v *Vault) SetMetrics(m Metrics) {
	if m == nil {
		v.metrics = noopMetrics{}
		return
	}
	v.metrics = m
}

// SetLogger replaces the structured logger. Passing nil restores slog's
// default logger.
func (v *Vault) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	v.logger = logger.With(slog.String("component", "vault"))
}

// Address returns the vault's identity; it holds every redeemable asset.
func (v *Vault) Address() [20]byte { return v.meta.Address }

// Owner returns the administrative identity.
func (v *Vault) Owner() [20]byte { return v.meta.Owner }

// Logic returns the behaviour descriptor bound at creation.
func (v *Vault) Logic() Logic { return v.meta.Logic }

// Meta returns a copy of the persisted vault metadata.
func (v *Vault) Meta() Meta { return v.meta }

func (v *Vault) emit(evt events.Event) {
	if v == nil || v.emitter == nil || evt == nil {
		return
	}
	v.emitter.Emit(evt)
}

func (v *Vault) now() int64 {
	if v == nil || v.nowFn == nil {
		return time.Now().Unix()
	}
	return v.nowFn()
}

// IsAdmin reports whether addr holds the admin role. The owner always does.
func (v *Vault) IsAdmin(addr [20]byte) (bool, error) {
	if addr == v.meta.Owner {
		return true, nil
	}
	return v.state.AdminGet(addr)
}

func (v *Vault) requireAdmin(caller [20]byte) error {
	ok, err := v.IsAdmin(caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}
	return nil
}

func (v *Vault) requireOwner(caller [20]byte) error {
	if caller != v.meta.Owner {
		return fmt.Errorf("%w: owner required", ErrUnauthorized)
	}
	return nil
}

func (v *Vault) loadEvent(id uint64) (*DistributionEvent, error) {
	evt, ok, err := v.state.EventGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEvent, id)
	}
	return evt, nil
}
