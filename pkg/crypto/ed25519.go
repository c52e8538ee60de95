package crypto

import (
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// VerifySignature verifies a single Ed25519 signature.
// Returns false if the public key or signature have invalid lengths.
func VerifySignature(pubkey, message, signature []byte) bool {
	if len(pubkey) != PublicKeySize {
		return false
	}
	if len(signature) != SignatureSize {
		return false
	}
	return ed25519.Verify(pubkey, message, signature)
}

// VerifySignatureStrict is like VerifySignature but returns an error
// with details about why verification failed.
func VerifySignatureStrict(pubkey, message, signature []byte) error {
	if len(pubkey) != PublicKeySize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, PublicKeySize, len(pubkey))
	}
	if len(signature) != SignatureSize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, SignatureSize, len(signature))
	}
	if !ed25519.Verify(pubkey, message, signature) {
		return ErrVerificationFailed
	}
	return nil
}

// BatchVerifier accumulates signature verification requests and verifies
// them together. Batches above a small threshold are verified in parallel.
type BatchVerifier struct {
	mu      sync.Mutex
	entries []batchEntry
}

// batchEntry holds a single verification request.
type batchEntry struct {
	pubkey    []byte
	message   []byte
	signature []byte
}

// parallelThreshold is the batch size above which Verify uses goroutines.
const parallelThreshold = 4

// NewBatchVerifier creates a new batch verifier.
func NewBatchVerifier() *BatchVerifier {
	return &BatchVerifier{
		entries: make([]batchEntry, 0, 8),
	}
}

// Add adds a signature verification request to the batch.
// The slices are not copied, so they must not be modified until Verify()
// is called.
func (bv *BatchVerifier) Add(pubkey, message, signature []byte) error {
	if len(pubkey) != PublicKeySize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, PublicKeySize, len(pubkey))
	}
	if len(signature) != SignatureSize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, SignatureSize, len(signature))
	}

	bv.mu.Lock()
	bv.entries = append(bv.entries, batchEntry{
		pubkey:    pubkey,
		message:   message,
		signature: signature,
	})
	bv.mu.Unlock()
	return nil
}

// Len returns the number of verification requests in the batch.
func (bv *BatchVerifier) Len() int {
	bv.mu.Lock()
	defer bv.mu.Unlock()
	return len(bv.entries)
}

// Reset clears the batch verifier for reuse.
func (bv *BatchVerifier) Reset() {
	bv.mu.Lock()
	bv.entries = bv.entries[:0]
	bv.mu.Unlock()
}

// BatchResult contains the results of a batch verification.
type BatchResult struct {
	// AllValid is true if all signatures in the batch are valid.
	AllValid bool

	// Results contains the verification result for each signature.
	Results []bool

	// FirstInvalidIndex is the index of the first invalid signature,
	// or -1 if all signatures are valid.
	FirstInvalidIndex int
}

// Verify verifies all signatures in the batch and returns the results.
// Only entries added before Verify started are included.
func (bv *BatchVerifier) Verify() BatchResult {
	bv.mu.Lock()
	entries := make([]batchEntry, len(bv.entries))
	copy(entries, bv.entries)
	bv.mu.Unlock()

	n := len(entries)
	results := make([]bool, n)

	if n <= parallelThreshold {
		for i, e := range entries {
			results[i] = ed25519.Verify(e.pubkey, e.message, e.signature)
		}
	} else {
		var wg sync.WaitGroup
		wg.Add(n)
		for i := range entries {
			go func(idx int) {
				defer wg.Done()
				e := entries[idx]
				results[idx] = ed25519.Verify(e.pubkey, e.message, e.signature)
			}(i)
		}
		wg.Wait()
	}

	result := BatchResult{
		AllValid:          true,
		Results:           results,
		FirstInvalidIndex: -1,
	}
	for i, valid := range results {
		if !valid {
			result.AllValid = false
			result.FirstInvalidIndex = i
			break
		}
	}
	return result
}

// VerifyTransaction verifies every signature on tx against its message and
// checks that each account the instruction marks as signer has signed.
//
// Returns nil if the transaction is properly authorized, or an error
// describing which signer failed and why.
func VerifyTransaction(tx *types.Transaction) error {
	if tx == nil {
		return ErrMissingMessage
	}

	if len(tx.Signatures) != len(tx.Signers) {
		return fmt.Errorf("%w: %d signatures for %d signers",
			ErrSignatureCountMismatch, len(tx.Signatures), len(tx.Signers))
	}

	required := tx.RequiredSigners()
	if len(required) > 0 && len(tx.Signatures) == 0 {
		return ErrNoSignatures
	}

	signed := make(map[types.Pubkey]bool, len(tx.Signers))
	for _, signer := range tx.Signers {
		signed[signer] = true
	}
	for _, pubkey := range required {
		if !signed[pubkey] {
			return &TransactionVerificationError{
				SignatureIndex: -1,
				SignerPubkey:   pubkey.String(),
				Err:            ErrMissingSigner,
			}
		}
	}

	if len(tx.Signatures) == 0 {
		return nil
	}

	message, err := tx.Message()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMessageSerializationFailed, err)
	}

	verifier := NewBatchVerifier()
	for i := range tx.Signatures {
		if err := verifier.Add(tx.Signers[i][:], message, tx.Signatures[i][:]); err != nil {
			return err
		}
	}

	result := verifier.Verify()
	if !result.AllValid {
		idx := result.FirstInvalidIndex
		return &TransactionVerificationError{
			SignatureIndex: idx,
			SignerPubkey:   tx.Signers[idx].String(),
			Err:            ErrVerificationFailed,
		}
	}

	return nil
}
