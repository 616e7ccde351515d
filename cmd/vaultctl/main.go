// Command vaultctl is an offline companion to the vault engine. It computes
// commitment roots and proofs for entitlement files, checks proofs, and can
// replay a campaign against in-memory ledgers.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"vaultengine/config"
	"vaultengine/crypto"
	"vaultengine/native/vault/commitment"
	"vaultengine/observability/logging"
)

const (
	rootCommand     = "root"
	proofCommand    = "proof"
	verifyCommand   = "verify"
	simulateCommand = "simulate"
	serviceName     = "vaultctl"
)

var errInvalidProof = errors.New("proof does not verify")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		usage(stderr)
		return fmt.Errorf("missing command")
	}
	switch args[0] {
	case rootCommand:
		return runRoot(args[1:], stdout, stderr)
	case proofCommand:
		return runProof(args[1:], stdout, stderr)
	case verifyCommand:
		return runVerify(args[1:], stdout, stderr)
	case simulateCommand:
		return runSimulate(args[1:], stdout, stderr)
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: vaultctl <command> [flags]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  root      -in entitlements.{json,yaml}")
	fmt.Fprintln(w, "  proof     -in entitlements.{json,yaml} -index N")
	fmt.Fprintln(w, "  verify    -root R -index N -recipient A -asset ID -amount X -quantity Q -proof h1,h2")
	fmt.Fprintln(w, "  simulate  -in entitlements.{json,yaml} -kind unique|semi-fungible")
}

// env carries the settings shared by every subcommand.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to an optional vaultctl TOML config")
	return fs, configPath
}

func setup(configPath string, stderr io.Writer) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.SetupWithOptions(serviceName, cfg.Environment, logging.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		Output: stderr,
	})
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger}, nil
}

func (e *env) formatAddress(addr [20]byte) string {
	rendered, err := crypto.NewAddress(crypto.AddressPrefix(e.cfg.AddressPrefix), addr[:])
	if err != nil {
		return fmt.Sprintf("%x", addr)
	}
	return rendered.String()
}

func runRoot(args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet(rootCommand, stderr)
	in := fs.String("in", "", "Entitlement file (JSON or YAML)")
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
	records, err := loadEntitlements(*in)
	if err != nil {
		return err
	}
	tree, err := commitment.New(records)
	if err != nil {
		return err
	}
	e.logger.Info("commitment built", slog.Int("leaves", tree.Len()), slog.Int("depth", tree.Depth()))
	_, err = fmt.Fprintln(stdout, tree.Root().Hex())
	return err
}

type proofOutput struct {
	Index     uint64   `json:"index"`
	Recipient string   `json:"recipient"`
	Leaf      string   `json:"leaf"`
	Root      string   `json:"root"`
	Proof     []string `json:"proof"`
}

func runProof(args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet(proofCommand, stderr)
	in := fs.String("in", "", "Entitlement file (JSON or YAML)")
	index := fs.Uint64("index", 0, "Index of the entitlement to prove")
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
	records, err := loadEntitlements(*in)
	if err != nil {
		return err
	}
	var record *commitment.Entitlement
	for i := range records {
		if records[i].Index == *index {
			record = &records[i]
			break
		}
	}
	if record == nil {
		return fmt.Errorf("no entitlement with index %d", *index)
	}
	tree, err := commitment.New(records)
	if err != nil {
		return err
	}
	leaf, err := commitment.LeafHash(*record)
	if err != nil {
		return err
	}
	proof, err := tree.Proof(leaf)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(proofOutput{
		Index:     record.Index,
		Recipient: e.formatAddress(record.Recipient),
		Leaf:      leaf.Hex(),
		Root:      tree.Root().Hex(),
		Proof:     commitment.FormatProof(proof),
	})
}

func runVerify(args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet(verifyCommand, stderr)
	rootHex := fs.String("root", "", "Commitment root (0x hex)")
	index := fs.Uint64("index", 0, "Entitlement index")
	recipient := fs.String("recipient", "", "Recipient address (0x hex or bech32)")
	asset := fs.String("asset", "0", "Asset id")
	amount := fs.String("amount", "0", "Payout amount")
	quantity := fs.String("quantity", "0", "Semi-fungible quantity")
	proofList := fs.String("proof", "", "Comma separated proof hashes (0x hex)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := setup(*configPath, stderr)
	if err != nil {
		return err
	}
	root, err := commitment.ParseHash(*rootHex)
	if err != nil {
		return fmt.Errorf("root: %w", err)
	}
	entry := entitlementEntry{
		Index:     *index,
		Recipient: *recipient,
		AssetID:   *asset,
		Amount:    *amount,
		Quantity:  *quantity,
	}
	record, err := entry.record()
	if err != nil {
		return err
	}
	var parts []string
	if strings.TrimSpace(*proofList) != "" {
		parts = strings.Split(*proofList, ",")
	}
	proof, err := commitment.ParseProof(parts)
	if err != nil {
		return err
	}
	if !commitment.Verify(proof, record, root) {
		e.logger.Debug("proof rejected", slog.Uint64("index", record.Index), slog.String("root", root.Hex()))
		fmt.Fprintln(stdout, "invalid")
		return errInvalidProof
	}
	_, err = fmt.Fprintln(stdout, "valid")
	return err
}
