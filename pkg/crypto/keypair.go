package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// Keypair is an Ed25519 signing key.
type Keypair struct {
	private ed25519.PrivateKey
}

// GenerateKeypair creates a new random keypair.
func GenerateKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{private: priv}, nil
}

// KeypairFromSeed derives a keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d", ErrInvalidKeypair, SeedSize, len(seed))
	}
	return &Keypair{private: ed25519.NewKeyFromSeed(seed)}, nil
}

// KeypairFromBytes parses the 64-byte secret||public form.
func KeypairFromBytes(b []byte) (*Keypair, error) {
	if len(b) != PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeypair, PrivateKeySize, len(b))
	}
	kp, err := KeypairFromSeed(b[:SeedSize])
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(kp.private[SeedSize:], b[SeedSize:]) {
		return nil, fmt.Errorf("%w: public key does not match secret", ErrInvalidKeypair)
	}
	return kp, nil
}

// Pubkey returns the public key.
func (k *Keypair) Pubkey() types.Pubkey {
	var pk types.Pubkey
	copy(pk[:], k.private[SeedSize:])
	return pk
}

// Bytes returns the 64-byte secret||public form.
func (k *Keypair) Bytes() []byte {
	out := make([]byte, PrivateKeySize)
	copy(out, k.private)
	return out
}

// Sign signs message.
func (k *Keypair) Sign(message []byte) types.Signature {
	var sig types.Signature
	copy(sig[:], ed25519.Sign(k.private, message))
	return sig
}

// SignTransaction signs tx with every keypair.
func SignTransaction(tx *types.Transaction, signers ...*Keypair) error {
	message, err := tx.Message()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMessageSerializationFailed, err)
	}
	for _, kp := range signers {
		tx.AddSignature(kp.Pubkey(), kp.Sign(message))
	}
	return nil
}

// LoadKeypair reads a keypair file: a JSON array of the 64 key bytes.
func LoadKeypair(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair: %w", err)
	}

	var raw []byte
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidKeypair, path, err)
	}
	for _, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("%w: %s: byte value %d out of range", ErrInvalidKeypair, path, v)
		}
		raw = append(raw, byte(v))
	}
	return KeypairFromBytes(raw)
}

// SaveKeypair writes kp to path in the format LoadKeypair reads.
func SaveKeypair(path string, kp *Keypair) error {
	b := kp.Bytes()
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write keypair: %w", err)
	}
	return nil
}
