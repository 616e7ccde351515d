package config

const (
	DefaultAddressPrefix         = "vlt"
	DefaultImplementationVersion = "1.0.0"
	DefaultRedeemPolicy          = "recipient-only"
)

// Implementation selects the logic descriptor a factory binds to new vaults.
type Implementation struct {
	Version string `toml:"Version"`
	// Policy is "recipient-only" or "relayer-allowed".
	Policy string `toml:"Policy"`
}
