// Package crypto provides Ed25519 keys and signature verification for
// transactions submitted to the stake pool runtime.
//
// Key features:
//   - Single Ed25519 signature verification
//   - Batch verification of every signature on a transaction
//   - Keypairs stored as a JSON array of 64 bytes
//
// Example usage:
//
//	kp, _ := crypto.GenerateKeypair()
//	tx := types.NewTransaction(ix)
//	_ = crypto.SignTransaction(tx, kp)
//	err := crypto.VerifyTransaction(tx)
package crypto

import (
	"errors"
	"fmt"
)

// Signature and key sizes for Ed25519.
const (
	// PublicKeySize is the size of an Ed25519 public key in bytes.
	PublicKeySize = 32

	// SignatureSize is the size of an Ed25519 signature in bytes.
	SignatureSize = 64

	// PrivateKeySize is the size of an Ed25519 private key in bytes.
	PrivateKeySize = 64

	// SeedSize is the size of an Ed25519 seed in bytes.
	SeedSize = 32
)

// Common errors returned by the crypto package.
var (
	// ErrInvalidPublicKey is returned when a public key has an invalid format.
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")

	// ErrInvalidSignature is returned when a signature has an invalid format.
	ErrInvalidSignature = errors.New("crypto: invalid signature")

	// ErrInvalidKeypair is returned when keypair bytes are malformed.
	ErrInvalidKeypair = errors.New("crypto: invalid keypair")

	// ErrVerificationFailed is returned when signature verification fails.
	ErrVerificationFailed = errors.New("crypto: signature verification failed")

	// ErrNoSignatures is returned when a transaction that needs signatures has none.
	ErrNoSignatures = errors.New("crypto: transaction has no signatures")

	// ErrSignatureCountMismatch is returned when the number of signatures
	// does not match the number of signers.
	ErrSignatureCountMismatch = errors.New("crypto: signature count mismatch")

	// ErrMissingSigner is returned when an account marked as signer has no
	// signature.
	ErrMissingSigner = errors.New("crypto: missing signature for signer")

	// ErrMissingMessage is returned when a transaction is nil.
	ErrMissingMessage = errors.New("crypto: missing transaction message")

	// ErrMessageSerializationFailed is returned when message serialization fails.
	ErrMessageSerializationFailed = errors.New("crypto: message serialization failed")
)

// TransactionVerificationError contains details about a transaction verification failure.
type TransactionVerificationError struct {
	// SignatureIndex is the index of the signature that failed verification,
	// or -1 when the signer has no signature at all.
	SignatureIndex int

	// SignerPubkey is the base58 representation of the signer's public key.
	SignerPubkey string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *TransactionVerificationError) Error() string {
	if e.SignatureIndex < 0 {
		return fmt.Sprintf("crypto: transaction verification failed for signer %s: %v", e.SignerPubkey, e.Err)
	}
	return fmt.Sprintf("crypto: transaction verification failed for signer %s (signature index %d): %v",
		e.SignerPubkey, e.SignatureIndex, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransactionVerificationError) Unwrap() error {
	return e.Err
}
