package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"vaultengine/core/events"
	"vaultengine/core/state"
	"vaultengine/crypto"
	"vaultengine/native/vault"
	"vaultengine/native/vault/assets/memledger"
	"vaultengine/native/vault/commitment"
	"vaultengine/native/vault/factory"
	"vaultengine/observability"
	"vaultengine/observability/metrics"
	"vaultengine/storage"
)

var (
	simFactoryAddr  = common.BytesToAddress(ethcrypto.Keccak256([]byte("vaultctl/factory")))
	simPayoutToken  = common.BytesToAddress(ethcrypto.Keccak256([]byte("vaultctl/payout")))
	simAssetAddress = common.BytesToAddress(ethcrypto.Keccak256([]byte("vaultctl/asset")))
)

// logEmitter forwards vault events to the structured logger.
type logEmitter struct {
	logger *slog.Logger
	count  int
}

func (l *logEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	l.count++
	payload := evt.Event()
	l.logger.Debug("vault event", slog.String("type", payload.Type), slog.Int("attributes", len(payload.Attributes)))
}

type simulationReport struct {
	Vault    string   `json:"vault"`
	Version  string   `json:"version"`
	Root     string   `json:"root"`
	Redeemed int      `json:"redeemed"`
	Failed   []string `json:"failed,omitempty"`
	Events   int      `json:"events"`
}

// runSimulate deploys a throwaway vault through a factory, funds it from
// in-memory ledgers and redeems every entitlement in the file.
func runSimulate(args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet(simulateCommand, stderr)
	in := fs.String("in", "", "Entitlement file (JSON or YAML)")
	kindFlag := fs.String("kind", "semi-fungible", "Asset kind: unique or semi-fungible")
	eventID := fs.Uint64("event", 1, "Distribution event id")
	backend := fs.String("backend", "", "Storage backend override (memory, leveldb, bolt)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("-in is required")
	}
	e, err := setup(*configPath, stderr)
	if err != nil {
		return err
	}
	kind, err := vault.ParseAssetKind(*kindFlag)
	if err != nil {
		return err
	}
	records, err := loadEntitlements(*in)
	if err != nil {
		return err
	}
	tree, err := commitment.New(records)
	if err != nil {
		return err
	}

	db, err := e.openDatabase(*backend)
	if err != nil {
		return err
	}
	defer db.Close()

	logic, err := e.cfg.Logic()
	if err != nil {
		return err
	}
	registry, err := state.NewFactoryStore(db, simFactoryAddr)
	if err != nil {
		return err
	}
	ledgers := memledger.NewRegistry()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	admin := key.PubKey().Address().Array()
	f, err := factory.New(simFactoryAddr, admin, logic, registry, ledgers)
	if err != nil {
		return err
	}
	emitter := &logEmitter{logger: e.logger}
	f.SetEmitter(observability.CountingEmitter{Next: emitter})
	f.SetMetrics(metrics.Vault())
	f.SetLogger(e.logger)

	v, err := f.CreateVault(admin, admin, [32]byte{})
	if err != nil {
		return err
	}
	if err := fund(ledgers, v.Address(), kind, records); err != nil {
		return err
	}
	if _, err := v.CreateEvent(admin, vault.EventParams{
		ID:            *eventID,
		Root:          tree.Root(),
		AssetKind:     kind,
		AssetContract: simAssetAddress,
		PayoutToken:   simPayoutToken,
	}); err != nil {
		return err
	}
	if err := v.SetEventStatus(admin, *eventID, true); err != nil {
		return err
	}

	report := simulationReport{
		Vault:   e.formatAddress(v.Address()),
		Version: v.Logic().Version,
		Root:    tree.Root().Hex(),
	}
	for _, record := range records {
		proof, err := tree.ProofFor(record)
		if err != nil {
			return err
		}
		if _, err := v.Redeem(record.Recipient, *eventID, record, proof); err != nil {
			report.Failed = append(report.Failed, fmt.Sprintf("%d: %s", record.Index, vault.Outcome(err)))
			continue
		}
		report.Redeemed++
	}
	report.Events = emitter.count

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func (e *env) openDatabase(override string) (storage.Database, error) {
	backend := strings.ToLower(strings.TrimSpace(override))
	if backend == "" {
		backend = strings.ToLower(e.cfg.StorageBackend)
	}
	path := ""
	switch backend {
	case "leveldb":
		path = filepath.Join(e.cfg.DataDir, "leveldb")
	case "bolt":
		if err := os.MkdirAll(e.cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		path = filepath.Join(e.cfg.DataDir, "vault.db")
	}
	return storage.Open(backend, path)
}

// fund credits the vault with exactly what the entitlements need.
func fund(ledgers *memledger.Registry, holder [20]byte, kind vault.AssetKind, records []commitment.Entitlement) error {
	payout := memledger.NewFungible("SIM")
	ledgers.RegisterFungible(simPayoutToken, payout)

	total := new(big.Int)
	for _, r := range records {
		total.Add(total, r.Amount)
	}
	if err := payout.Mint(holder, total); err != nil {
		return err
	}

	switch kind {
	case vault.AssetUnique:
		registry := memledger.NewUnique()
		ledgers.RegisterUnique(simAssetAddress, registry)
		for _, r := range records {
			if err := registry.Mint(holder, r.AssetID); err != nil {
				return fmt.Errorf("mint asset %s: %w", r.AssetID, err)
			}
		}
	case vault.AssetSemiFungible:
		registry := memledger.NewSemiFungible()
		ledgers.RegisterSemiFungible(simAssetAddress, registry)
		for _, r := range records {
			if err := registry.Mint(holder, r.AssetID, r.Quantity, nil); err != nil {
				return fmt.Errorf("mint asset %s: %w", r.AssetID, err)
			}
		}
	}
	return nil
}
