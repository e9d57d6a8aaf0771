package genesis

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"settlechain/core/state"
	"settlechain/core/types"
	"settlechain/crypto"
	"settlechain/storage"
	"settlechain/storage/trie"
	"settlechain/vm/values"
)

func testAddress(b byte) crypto.Address {
	return crypto.MustNewAddress(crypto.TestnetPrefix, bytes.Repeat([]byte{b}, 20))
}

func sampleSpec(t *testing.T) string {
	t.Helper()
	holder := testAddress(0x01)
	staker := testAddress(0x02)
	issuer := types.ContractPrincipal(testAddress(0x0c), "tokens")
	return fmt.Sprintf(`{
  "genesisTime": "2024-01-01T00:00:00Z",
  "network": "testnet",
  "alloc": {
    %q: "1000",
    %q: "500"
  },
  "locks": [{"address": %q, "amount": "200", "unlockHeight": 50}],
  "fungibleTokens": [{"contract": %q, "name": "gold", "maxSupply": "1000000"}],
  "nonFungibleTokens": [{"contract": %q, "name": "deed", "keyType": "(buffer 32)"}]
}`, holder, staker, staker, issuer, issuer)
}

func writeSpec(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	return path
}

func TestLoadGenesisSpec(t *testing.T) {
	spec, err := LoadGenesisSpec(writeSpec(t, sampleSpec(t)))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if spec.Mainnet() {
		t.Fatalf("expected testnet spec")
	}
	if got := spec.GenesisTimestamp().Year(); got != 2024 {
		t.Fatalf("unexpected genesis year %d", got)
	}
	if len(spec.balances) != 2 || len(spec.locks) != 1 {
		t.Fatalf("unexpected parse result: %d balances, %d locks", len(spec.balances), len(spec.locks))
	}
}

func TestGenesisSpecRejectsInvalidInput(t *testing.T) {
	holder := testAddress(0x01).String()
	mainnetHolder := crypto.MustNewAddress(crypto.MainnetPrefix, bytes.Repeat([]byte{0x01}, 20)).String()
	cases := map[string]string{
		"missing time":   `{"network":"testnet"}`,
		"unknown field":  `{"genesisTime":"2024-01-01T00:00:00Z","bogus":1}`,
		"bad network":    `{"genesisTime":"2024-01-01T00:00:00Z","network":"devnet"}`,
		"wrong prefix":   fmt.Sprintf(`{"genesisTime":"2024-01-01T00:00:00Z","alloc":{%q:"1"}}`, mainnetHolder),
		"too large":      fmt.Sprintf(`{"genesisTime":"2024-01-01T00:00:00Z","alloc":{%q:"340282366920938463463374607431768211456"}}`, holder),
		"zero lock":      fmt.Sprintf(`{"genesisTime":"2024-01-01T00:00:00Z","locks":[{"address":%q,"amount":"0","unlockHeight":5}]}`, holder),
		"bad key type":   fmt.Sprintf(`{"genesisTime":"2024-01-01T00:00:00Z","nonFungibleTokens":[{"contract":"%s.c","name":"n","keyType":"(list 3)"}]}`, holder),
		"not a contract": fmt.Sprintf(`{"genesisTime":"2024-01-01T00:00:00Z","fungibleTokens":[{"contract":%q,"name":"n"}]}`, holder),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseGenesisSpec([]byte(body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestBuildGenesisFromSpec(t *testing.T) {
	spec, err := ParseGenesisSpec([]byte(sampleSpec(t)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	db := storage.NewMemDB()
	defer db.Close()

	root, err := BuildGenesisFromSpec(spec, db)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	stateTrie, err := trie.NewTrie(db, root.Bytes())
	if err != nil {
		t.Fatalf("reopen trie: %v", err)
	}
	manager := state.NewManager(stateTrie)

	version, ok, err := manager.StateVersion()
	if err != nil || !ok || version != state.StateVersion {
		t.Fatalf("unexpected state version %d ok=%v err=%v", version, ok, err)
	}

	holder, err := manager.STXBalance(types.StandardPrincipal(testAddress(0x01)))
	if err != nil {
		t.Fatalf("holder balance: %v", err)
	}
	if holder.AmountUnlocked.Uint64() != 1000 {
		t.Fatalf("unexpected holder balance %s", holder.AmountUnlocked)
	}

	staker, err := manager.STXBalance(types.StandardPrincipal(testAddress(0x02)))
	if err != nil {
		t.Fatalf("staker balance: %v", err)
	}
	if staker.AmountUnlocked.Uint64() != 300 || staker.AmountLocked.Uint64() != 200 || staker.UnlockHeight != 50 {
		t.Fatalf("unexpected staker balance %+v", staker)
	}

	issuer := types.ContractPrincipal(testAddress(0x0c), "tokens")
	def, err := manager.FungibleToken(types.AssetIdentifier{Contract: issuer, Name: "gold"})
	if err != nil {
		t.Fatalf("fungible token: %v", err)
	}
	if def.MaxSupply == nil || !def.MaxSupply.Eq(uint256.NewInt(1_000_000)) {
		t.Fatalf("unexpected max supply %v", def.MaxSupply)
	}

	raw, err := manager.NFTKeyType(types.AssetIdentifier{Contract: issuer, Name: "deed"})
	if err != nil {
		t.Fatalf("nft key type: %v", err)
	}
	keyType, err := values.DecodeType(raw)
	if err != nil {
		t.Fatalf("decode key type: %v", err)
	}
	if keyType.String() != "(buffer 32)" {
		t.Fatalf("unexpected key type %s", keyType)
	}
}

func TestBuildGenesisIsDeterministic(t *testing.T) {
	body := sampleSpec(t)
	var roots []string
	for i := 0; i < 2; i++ {
		spec, err := ParseGenesisSpec([]byte(body))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		db := storage.NewMemDB()
		root, err := BuildGenesisFromSpec(spec, db)
		db.Close()
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		roots = append(roots, root.Hex())
	}
	if roots[0] != roots[1] {
		t.Fatalf("genesis roots differ: %s", strings.Join(roots, " "))
	}
}

func TestParseKeyType(t *testing.T) {
	for in, want := range map[string]string{
		"uint":              "uint",
		" principal ":       "principal",
		"(string-ascii 12)": "(string-ascii 12)",
		"(buffer 4)":        "(buffer 4)",
	} {
		got, err := ParseKeyType(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got.String() != want {
			t.Fatalf("parse %q: got %s want %s", in, got, want)
		}
	}
	if _, err := ParseKeyType("(buffer 0)"); err == nil {
		t.Fatalf("expected zero-length buffer to fail")
	}
}
