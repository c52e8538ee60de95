// Package types provides the core ledger data types shared by the stake pool
// program, its runtime and its tooling.
package types

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// PubkeySize is the length of an account identity in bytes.
const PubkeySize = 32

// Hash represents a 32-byte SHA256 hash.
type Hash [32]byte

// String returns the base58 representation.
func (h Hash) String() string {
	return base58.Encode(h[:])
}

// SHA256 computes SHA256 hash of data.
func SHA256(data []byte) Hash {
	return sha256.Sum256(data)
}

// Pubkey represents a 32-byte Ed25519 public key identifying an account.
type Pubkey [PubkeySize]byte

// ZeroPubkey is an all-zero pubkey.
var ZeroPubkey Pubkey

// Well-known program IDs.
var (
	SystemProgramID = MustPubkeyFromBase58("11111111111111111111111111111111")

	// DefaultStakePoolProgramID is used by tooling when no program ID is
	// configured. It is derived from a fixed seed so every build agrees on it.
	DefaultStakePoolProgramID = PubkeyFromSeed("x1-stakepool/program")
)

// PubkeyFromBytes creates a Pubkey from a byte slice.
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	if len(b) != PubkeySize {
		return Pubkey{}, fmt.Errorf("pubkey must be %d bytes, got %d", PubkeySize, len(b))
	}
	var pk Pubkey
	copy(pk[:], b)
	return pk, nil
}

// PubkeyFromBase58 decodes a base58 string into a Pubkey.
func PubkeyFromBase58(s string) (Pubkey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("invalid base58: %w", err)
	}
	return PubkeyFromBytes(b)
}

// MustPubkeyFromBase58 decodes a base58 string or panics.
func MustPubkeyFromBase58(s string) Pubkey {
	pk, err := PubkeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PubkeyFromSeed derives a deterministic pubkey as SHA256(seed).
// The result is not guaranteed to be on the Ed25519 curve; it is meant for
// program IDs and test fixtures, not for signing keys.
func PubkeyFromSeed(seed string) Pubkey {
	return Pubkey(SHA256([]byte(seed)))
}

// String returns the base58 representation.
func (pk Pubkey) String() string {
	return base58.Encode(pk[:])
}

// IsZero returns true if the pubkey is all zeros.
func (pk Pubkey) IsZero() bool {
	return pk == ZeroPubkey
}

// MarshalText implements encoding.TextMarshaler.
func (pk Pubkey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := PubkeyFromBase58(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// Epoch represents an epoch number.
type Epoch uint64

// Lamports represents a lamport amount.
type Lamports uint64
