package types

import (
	"bytes"
	"testing"

	"settlechain/crypto"
)

func TestParsePrincipalContract(t *testing.T) {
	addr := crypto.MustNewAddress(crypto.TestnetPrefix, bytes.Repeat([]byte{0x07}, 20))
	p, err := ParsePrincipal(addr.String() + ".token-contract")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !p.IsContract() || p.Name != "token-contract" {
		t.Fatalf("unexpected principal %+v", p)
	}
	if p != ContractPrincipal(addr, "token-contract") {
		t.Fatalf("principal mismatch")
	}
	if _, err := ParsePrincipal(addr.String() + ".9bad"); err == nil {
		t.Fatalf("expected invalid contract name error")
	}
}

func TestPrincipalKeysDistinguishContracts(t *testing.T) {
	addr := crypto.MustNewAddress(crypto.TestnetPrefix, bytes.Repeat([]byte{0x01}, 20))
	std := StandardPrincipal(addr)
	contract := ContractPrincipal(addr, "a")
	if bytes.Equal(std.Key(), contract.Key()) {
		t.Fatalf("standard and contract principals share a key")
	}
	if std.Compare(contract) >= 0 {
		t.Fatalf("expected standard principal to sort first")
	}
}

func TestIndexBlockHashDependsOnConsensus(t *testing.T) {
	var block BlockHeaderHash
	block[0] = 1
	a := IndexBlockHash(ConsensusHash{1}, block)
	b := IndexBlockHash(ConsensusHash{2}, block)
	if a == b {
		t.Fatalf("index hash must differ across sortitions")
	}
}
