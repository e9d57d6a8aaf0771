package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PrivateKeySize is the length of a serialized secp256k1 private key.
const PrivateKeySize = 32

// KeyPair is a secp256k1 signing key that owns one account per network.
type KeyPair struct {
	key *ecdsa.PrivateKey
}

// GenerateKeyPair draws a fresh key from crypto/rand.
func GenerateKeyPair() (*KeyPair, error) {
	key, err := ecdsa.GenerateKey(ethcrypto.S256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return &KeyPair{key: key}, nil
}

// KeyPairFromSecret restores a key pair from its PrivateKeySize-byte secret.
func KeyPairFromSecret(secret []byte) (*KeyPair, error) {
	if len(secret) != PrivateKeySize {
		return nil, fmt.Errorf("crypto: secret must be %d bytes, got %d", PrivateKeySize, len(secret))
	}
	key, err := ethcrypto.ToECDSA(secret)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode secret: %w", err)
	}
	return &KeyPair{key: key}, nil
}

func (k *KeyPair) Secret() []byte { return ethcrypto.FromECDSA(k.key) }

// Address is the account the key controls on the network named by prefix:
// the last 20 bytes of the keccak hash of the public key.
func (k *KeyPair) Address(prefix AddressPrefix) Address {
	return MustNewAddress(prefix, ethcrypto.PubkeyToAddress(k.key.PublicKey).Bytes())
}
