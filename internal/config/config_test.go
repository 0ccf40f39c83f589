package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

func setRequired(t *testing.T) {
	t.Setenv("BLOCKCHAIN_RPC_URL", "http://127.0.0.1:8545")
	t.Setenv("BLOCKCHAIN_PRIVATE_KEY", "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	t.Setenv("BLOCKCHAIN_CONTRACT_ADDRESS", testContract)
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "FarmChainABI.json", cfg.Blockchain.ABIPath)
	assert.Equal(t, 2*time.Minute, cfg.Gateway.SubmitTimeout)
	assert.Equal(t, 0.02, cfg.Pricing.MarkupPer100Km)
	assert.Equal(t, 0.5, cfg.Pricing.MaxMarkup)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Database.Enabled())

	opts := cfg.GatewayOptions()
	assert.Equal(t, uint(4), opts.MaxAttempts)
	assert.Equal(t, uint64(1), opts.Confirmations)
}

func TestLoadReportsMissingLedgerSettings(t *testing.T) {
	t.Setenv("BLOCKCHAIN_RPC_URL", "")
	t.Setenv("BLOCKCHAIN_PRIVATE_KEY", "")
	t.Setenv("PRIVATE_KEY", "")
	t.Setenv("BLOCKCHAIN_CONTRACT_ADDRESS", "")
	t.Setenv("CONTRACT_ADDRESS", "")

	_, err := Load()
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.ElementsMatch(t, []string{
		"BLOCKCHAIN_RPC_URL", "BLOCKCHAIN_PRIVATE_KEY", "BLOCKCHAIN_CONTRACT_ADDRESS",
	}, cfgErr.Missing)
}

func TestLoadAcceptsLegacyVariableNames(t *testing.T) {
	t.Setenv("BLOCKCHAIN_RPC_URL", "http://127.0.0.1:8545")
	t.Setenv("BLOCKCHAIN_PRIVATE_KEY", "")
	t.Setenv("BLOCKCHAIN_CONTRACT_ADDRESS", "")
	t.Setenv("PRIVATE_KEY", "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	t.Setenv("CONTRACT_ADDRESS", testContract)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, testContract, cfg.Blockchain.ContractAddress)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	setRequired(t)
	t.Setenv("BLOCKCHAIN_CONTRACT_ADDRESS", "farmchain")
	t.Setenv("GATEWAY_SUBMIT_TIMEOUT", "0s")
	t.Setenv("OTEL_EXPORTER", "zipkin")

	_, err := Load()

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Invalid, "BLOCKCHAIN_CONTRACT_ADDRESS")
	assert.Contains(t, cfgErr.Invalid, "GATEWAY_SUBMIT_TIMEOUT")
	assert.Contains(t, cfgErr.Invalid, "OTEL_EXPORTER")
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, getEnvAsDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "45")
	assert.Equal(t, 45*time.Second, getEnvAsDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "soon")
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_DURATION", time.Second))
}

func TestLoadContract(t *testing.T) {
	dir := t.TempDir()
	abiPath := filepath.Join(dir, "FarmChainABI.json")
	require.NoError(t, os.WriteFile(abiPath, []byte(`[{"type":"function","name":"buyProduct","stateMutability":"payable","inputs":[{"name":"productId","type":"uint256"}],"outputs":[]}]`), 0o644))

	cfg := &Config{Blockchain: BlockchainConfig{ContractAddress: testContract, ABIPath: abiPath}}
	contract, err := cfg.LoadContract()
	require.NoError(t, err)
	assert.Contains(t, contract.ABI.Methods, "buyProduct")

	cfg.Blockchain.ABIPath = filepath.Join(dir, "missing.json")
	_, err = cfg.LoadContract()
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}
