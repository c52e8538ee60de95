package types

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/mr-tron/base58"
)

// SignatureSize is the size of an Ed25519 signature in bytes.
const SignatureSize = 64

// ErrInvalidTransaction is returned when transaction bytes cannot be decoded.
var ErrInvalidTransaction = errors.New("invalid transaction encoding")

// SignatureFromBase58 parses a base58 signature.
func SignatureFromBase58(s string) (Signature, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Signature{}, err
	}
	if len(b) != SignatureSize {
		return Signature{}, fmt.Errorf("invalid signature length: got %d, want %d", len(b), SignatureSize)
	}
	var sig Signature
	copy(sig[:], b)
	return sig, nil
}

// Signature is an Ed25519 signature over a transaction message.
type Signature [SignatureSize]byte

// String returns the base58 encoding of the signature.
func (s Signature) String() string {
	return base58.Encode(s[:])
}

// IsZero returns true if the signature is all zeros.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

// Transaction is one instruction together with the signatures that
// authorize it. Signers[i] produced Signatures[i] over Message().
type Transaction struct {
	Signatures  []Signature
	Signers     []Pubkey
	Instruction Instruction
}

// NewTransaction creates an unsigned transaction for ix.
func NewTransaction(ix Instruction) *Transaction {
	return &Transaction{
		Instruction: ix,
	}
}

// Message returns the bytes every signer signs (Borsh, little-endian):
//
//	program_id  32
//	n_accounts  u32
//	accounts    n_accounts x (pubkey 32 | is_signer u8 | is_writable u8)
//	data_len    u32
//	data        data_len
func (tx *Transaction) Message() ([]byte, error) {
	ix := tx.Instruction

	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(ix.ProgramID[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(uint32(len(ix.Accounts)), bin.LE); err != nil {
		return nil, err
	}
	for _, meta := range ix.Accounts {
		if err := enc.WriteBytes(meta.Pubkey[:], false); err != nil {
			return nil, err
		}
		if err := enc.WriteBool(meta.IsSigner); err != nil {
			return nil, err
		}
		if err := enc.WriteBool(meta.IsWritable); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint32(uint32(len(ix.Data)), bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(ix.Data, false); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Serialize returns the wire form of tx:
//
//	n_signatures  u32
//	signatures    n_signatures x (signer 32 | signature 64)
//	message       see Message
func (tx *Transaction) Serialize() ([]byte, error) {
	if len(tx.Signatures) != len(tx.Signers) {
		return nil, fmt.Errorf("%w: %d signatures for %d signers", ErrInvalidTransaction, len(tx.Signatures), len(tx.Signers))
	}
	message, err := tx.Message()
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint32(uint32(len(tx.Signatures)), bin.LE); err != nil {
		return nil, err
	}
	for i := range tx.Signatures {
		if err := enc.WriteBytes(tx.Signers[i][:], false); err != nil {
			return nil, err
		}
		if err := enc.WriteBytes(tx.Signatures[i][:], false); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteBytes(message, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeTransaction decodes the output of Serialize. Trailing bytes are
// rejected.
func DeserializeTransaction(data []byte) (*Transaction, error) {
	decoder := bin.NewBorshDecoder(data)
	tx := &Transaction{}

	n, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return nil, fmt.Errorf("%w: signature count: %v", ErrInvalidTransaction, err)
	}
	if int(n) > decoder.Remaining()/(PubkeySize+SignatureSize) {
		return nil, fmt.Errorf("%w: %d signatures in %d bytes", ErrInvalidTransaction, n, decoder.Remaining())
	}
	for i := uint32(0); i < n; i++ {
		signer, err := readPubkey(decoder)
		if err != nil {
			return nil, fmt.Errorf("%w: signer %d: %v", ErrInvalidTransaction, i, err)
		}
		raw, err := decoder.ReadBytes(SignatureSize)
		if err != nil {
			return nil, fmt.Errorf("%w: signature %d: %v", ErrInvalidTransaction, i, err)
		}
		var sig Signature
		copy(sig[:], raw)
		tx.AddSignature(signer, sig)
	}

	ix := &tx.Instruction
	if ix.ProgramID, err = readPubkey(decoder); err != nil {
		return nil, fmt.Errorf("%w: program id: %v", ErrInvalidTransaction, err)
	}

	count, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return nil, fmt.Errorf("%w: account count: %v", ErrInvalidTransaction, err)
	}
	if int(count) > decoder.Remaining()/(PubkeySize+2) {
		return nil, fmt.Errorf("%w: %d accounts in %d bytes", ErrInvalidTransaction, count, decoder.Remaining())
	}
	for i := uint32(0); i < count; i++ {
		var meta AccountMeta
		if meta.Pubkey, err = readPubkey(decoder); err != nil {
			return nil, fmt.Errorf("%w: account %d: %v", ErrInvalidTransaction, i, err)
		}
		if meta.IsSigner, err = decoder.ReadBool(); err != nil {
			return nil, fmt.Errorf("%w: account %d signer flag: %v", ErrInvalidTransaction, i, err)
		}
		if meta.IsWritable, err = decoder.ReadBool(); err != nil {
			return nil, fmt.Errorf("%w: account %d writable flag: %v", ErrInvalidTransaction, i, err)
		}
		ix.Accounts = append(ix.Accounts, meta)
	}

	dataLen, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return nil, fmt.Errorf("%w: data length: %v", ErrInvalidTransaction, err)
	}
	if int(dataLen) != decoder.Remaining() {
		return nil, fmt.Errorf("%w: data length %d, %d bytes remain", ErrInvalidTransaction, dataLen, decoder.Remaining())
	}
	if dataLen > 0 {
		if ix.Data, err = decoder.ReadBytes(int(dataLen)); err != nil {
			return nil, fmt.Errorf("%w: data: %v", ErrInvalidTransaction, err)
		}
	}

	return tx, nil
}

func readPubkey(decoder *bin.Decoder) (Pubkey, error) {
	raw, err := decoder.ReadBytes(PubkeySize)
	if err != nil {
		return Pubkey{}, err
	}
	var pk Pubkey
	copy(pk[:], raw)
	return pk, nil
}

// RequiredSigners returns the distinct pubkeys the instruction marks as
// signers, in account order.
func (tx *Transaction) RequiredSigners() []Pubkey {
	var signers []Pubkey
	seen := make(map[Pubkey]bool)
	for _, meta := range tx.Instruction.Accounts {
		if meta.IsSigner && !seen[meta.Pubkey] {
			seen[meta.Pubkey] = true
			signers = append(signers, meta.Pubkey)
		}
	}
	return signers
}

// AddSignature attaches a signature produced by signer.
func (tx *Transaction) AddSignature(signer Pubkey, sig Signature) {
	tx.Signers = append(tx.Signers, signer)
	tx.Signatures = append(tx.Signatures, sig)
}

// String returns a short description for logs.
func (tx *Transaction) String() string {
	return fmt.Sprintf("Transaction{Program=%s, Accounts=%d, Signatures=%d}",
		tx.Instruction.ProgramID, len(tx.Instruction.Accounts), len(tx.Signatures))
}
