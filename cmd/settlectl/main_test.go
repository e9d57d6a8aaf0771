package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"settlechain/crypto"
)

func writeFixture(t *testing.T) (configPath string, holder string) {
	t.Helper()
	dir := t.TempDir()
	holder = crypto.MustNewAddress(crypto.TestnetPrefix, bytes.Repeat([]byte{0x01}, 20)).String()

	genesisPath := filepath.Join(dir, "genesis.json")
	genesisBody := fmt.Sprintf(`{"genesisTime":"2024-01-01T00:00:00Z","network":"testnet","alloc":{%q:"1000"},"locks":[{"address":%q,"amount":"400","unlockHeight":20}]}`, holder, holder)
	if err := os.WriteFile(genesisPath, []byte(genesisBody), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}

	configPath = filepath.Join(dir, "config.toml")
	configBody := fmt.Sprintf("DataDir = %q\nNetwork = \"testnet\"\nGenesisFile = %q\n\n[logging]\nLevel = \"error\"\n", filepath.Join(dir, "data"), genesisPath)
	if err := os.WriteFile(configPath, []byte(configBody), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath, holder
}

func TestGenesisThenBalance(t *testing.T) {
	configPath, holder := writeFixture(t)

	var out bytes.Buffer
	if err := run([]string{"genesis", "-config", configPath}, &out); err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if !strings.HasPrefix(out.String(), "genesis state root 0x") {
		t.Fatalf("unexpected genesis output %q", out.String())
	}

	out.Reset()
	if err := run([]string{"balance", "-config", configPath, holder}, &out); err != nil {
		t.Fatalf("balance: %v", err)
	}
	var account accountOutput
	if err := json.Unmarshal(out.Bytes(), &account); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if account.Unlocked != "600" || account.Locked != "400" || account.UnlockHeight != 20 {
		t.Fatalf("unexpected account %+v", account)
	}

	if err := run([]string{"genesis", "-config", configPath}, &out); err == nil {
		t.Fatalf("expected second genesis to fail")
	}
}

func TestRewardsAndEventsOnEmptyLedger(t *testing.T) {
	configPath, _ := writeFixture(t)

	var out bytes.Buffer
	if err := run([]string{"rewards", "-config", configPath, "-height", "3"}, &out); err != nil {
		t.Fatalf("rewards: %v", err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Fatalf("unexpected rewards output %q", out.String())
	}

	out.Reset()
	if err := run([]string{"events", "-config", configPath}, &out); err != nil {
		t.Fatalf("events: %v", err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Fatalf("unexpected events output %q", out.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"frobnicate"}, &out); err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(out.String(), "Usage: settlectl") {
		t.Fatalf("usage not printed")
	}
}

func TestKeygenPrintsNetworkAddress(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"keygen", "-network", "mainnet"}, &out); err != nil {
		t.Fatalf("keygen: %v", err)
	}
	var key struct {
		Address    string `json:"address"`
		PrivateKey string `json:"private_key"`
	}
	if err := json.Unmarshal(out.Bytes(), &key); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	addr, err := crypto.DecodeAddress(key.Address)
	if err != nil {
		t.Fatalf("decode address: %v", err)
	}
	if addr.Prefix() != crypto.MainnetPrefix {
		t.Fatalf("unexpected prefix %s", addr.Prefix())
	}
	if len(key.PrivateKey) != 64 {
		t.Fatalf("unexpected private key length %d", len(key.PrivateKey))
	}

	if err := run([]string{"keygen", "-network", "devnet"}, &out); err == nil {
		t.Fatalf("expected error for unknown network")
	}
}
