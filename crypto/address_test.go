package crypto

import (
	"bytes"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{0x42}, AddressLength)
	addr := MustNewAddress(TestnetPrefix, raw)

	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Compare(addr) != 0 {
		t.Fatalf("round trip mismatch: %s vs %s", decoded, addr)
	}
	if decoded.Prefix() != TestnetPrefix {
		t.Fatalf("unexpected prefix %q", decoded.Prefix())
	}
}

func TestNewAddressRejectsShortInput(t *testing.T) {
	if _, err := NewAddress(MainnetPrefix, []byte{1, 2, 3}); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestBurnAddressIsZero(t *testing.T) {
	burn := BurnAddress(true)
	if !burn.IsZero() {
		t.Fatalf("burn address must be zero")
	}
	if burn.Prefix() != MainnetPrefix {
		t.Fatalf("unexpected prefix %q", burn.Prefix())
	}
	if BurnAddress(false).Compare(burn) == 0 {
		t.Fatalf("burn addresses must differ across networks")
	}
}

func TestKeyPairSecretRestoresAddress(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	restored, err := KeyPairFromSecret(kp.Secret())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	a := kp.Address(MainnetPrefix)
	b := restored.Address(MainnetPrefix)
	if a.Compare(b) != 0 {
		t.Fatalf("address mismatch")
	}
	if _, err := KeyPairFromSecret(kp.Secret()[1:]); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}
