package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"beautyton/crypto"

	"github.com/BurntSushi/toml"
)

// GenesisAlloc seeds one ledger balance at first boot. Balance is a
// base-10 string because TOML has no big integer type.
type GenesisAlloc struct {
	Address string `toml:"Address"`
	Balance string `toml:"Balance"`
}

type Config struct {
	RPCAddress           string         `toml:"RPCAddress"`
	MetricsAddress       string         `toml:"MetricsAddress"`
	DataDir              string         `toml:"DataDir"`
	JournalPath          string         `toml:"JournalPath"`
	NetworkName          string         `toml:"NetworkName"`
	RPCAuthToken         string         `toml:"RPCAuthToken"`
	OperatorKeystorePath string         `toml:"OperatorKeystorePath"`
	PlatformAddress      string         `toml:"PlatformAddress"`
	CommissionPercent    uint8          `toml:"CommissionPercent"`
	Genesis              []GenesisAlloc `toml:"Genesis"`
}

// Load reads the configuration at path, creating a default file (and
// operator keystore) when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "beautyton-local"
	}
	if cfg.Genesis == nil {
		cfg.Genesis = []GenesisAlloc{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the deploy-time invariants: a decodable platform
// address, a commission inside [0,100] and well-formed genesis balances.
func (c *Config) Validate() error {
	if _, err := c.Platform(); err != nil {
		return err
	}
	if c.CommissionPercent > 100 {
		return fmt.Errorf("config: CommissionPercent out of range: %d", c.CommissionPercent)
	}
	for i, alloc := range c.Genesis {
		if _, err := crypto.DecodeAddress(strings.TrimSpace(alloc.Address)); err != nil {
			return fmt.Errorf("config: Genesis[%d].Address: %v", i, err)
		}
		balance, ok := new(big.Int).SetString(strings.TrimSpace(alloc.Balance), 10)
		if !ok || balance.Sign() < 0 {
			return fmt.Errorf("config: Genesis[%d].Balance must be a non-negative base-10 integer", i)
		}
	}
	return nil
}

// Platform decodes the configured platform treasury address.
func (c *Config) Platform() ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(c.PlatformAddress))
	if err != nil {
		return [20]byte{}, fmt.Errorf("config: PlatformAddress: %v", err)
	}
	return addr.Fixed(), nil
}

// ParsedAlloc is a genesis allocation with its address and balance
// decoded.
type ParsedAlloc struct {
	Address [20]byte
	Balance *big.Int
}

// GenesisBalances returns the parsed genesis allocations.
func (c *Config) GenesisBalances() ([]ParsedAlloc, error) {
	out := make([]ParsedAlloc, 0, len(c.Genesis))
	for i, alloc := range c.Genesis {
		addr, err := crypto.DecodeAddress(strings.TrimSpace(alloc.Address))
		if err != nil {
			return nil, fmt.Errorf("config: Genesis[%d].Address: %v", i, err)
		}
		balance, ok := new(big.Int).SetString(strings.TrimSpace(alloc.Balance), 10)
		if !ok || balance.Sign() < 0 {
			return nil, fmt.Errorf("config: Genesis[%d].Balance must be a non-negative base-10 integer", i)
		}
		out = append(out, ParsedAlloc{Address: addr.Fixed(), Balance: balance})
	}
	return out, nil
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.OperatorKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.OperatorKeystorePath != keystorePath {
		cfg.OperatorKeystorePath = keystorePath
		return persist(configPath, cfg)
	}

	return nil
}

// createDefault writes a usable starter configuration. The generated
// operator key doubles as the platform treasury so a fresh install
// boots without edits.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:        ":8080",
		MetricsAddress:    ":9090",
		DataDir:           "./beautyton-data",
		JournalPath:       "./beautyton-data/receipts.db",
		NetworkName:       "beautyton-local",
		PlatformAddress:   key.PubKey().Address().String(),
		CommissionPercent: 5,
		Genesis:           []GenesisAlloc{},
	}
	cfg.OperatorKeystorePath = keystorePath

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
