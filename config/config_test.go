package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"beautyton/crypto"
)

func testAddress(t *testing.T) string {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key.PubKey().Address().String()
}

func TestLoadCreatesDefaultConfigAndKeystore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.FileExists(t, cfg.OperatorKeystorePath)
	require.Equal(t, uint8(5), cfg.CommissionPercent)
	require.NotEmpty(t, cfg.PlatformAddress)

	platform, err := cfg.Platform()
	require.NoError(t, err)
	require.NotEqual(t, [20]byte{}, platform)
}

func TestLoadExistingConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	platform := testAddress(t)
	client := testAddress(t)

	body := `
RPCAddress = ":8080"
DataDir = "` + dir + `"
PlatformAddress = "` + platform + `"
CommissionPercent = 7

[[Genesis]]
Address = "` + client + `"
Balance = "5000000000"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint8(7), cfg.CommissionPercent)
	require.Equal(t, "beautyton-local", cfg.NetworkName)
	require.FileExists(t, cfg.OperatorKeystorePath)

	allocs, err := cfg.GenesisBalances()
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	require.Equal(t, "5000000000", allocs[0].Balance.String())
}

func TestValidateRejectsBadValues(t *testing.T) {
	platform := testAddress(t)

	cfg := &Config{PlatformAddress: platform, CommissionPercent: 101}
	require.Error(t, cfg.Validate())

	cfg = &Config{PlatformAddress: "not-an-address", CommissionPercent: 5}
	require.Error(t, cfg.Validate())

	cfg = &Config{
		PlatformAddress:   platform,
		CommissionPercent: 5,
		Genesis:           []GenesisAlloc{{Address: testAddress(t), Balance: "-1"}},
	}
	require.Error(t, cfg.Validate())

	cfg = &Config{
		PlatformAddress:   platform,
		CommissionPercent: 100,
		Genesis:           []GenesisAlloc{{Address: testAddress(t), Balance: "0"}},
	}
	require.NoError(t, cfg.Validate())
}
