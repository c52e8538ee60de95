package stakepool

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// Stake Pool instruction discriminators (first byte of instruction data).
// The order is the wire order and must not change.
const (
	InstructionInitialize uint8 = iota
	InstructionCreateUser
	InstructionStake
	InstructionUnstake
	InstructionClaim
)

// Instruction is one decoded Stake Pool instruction. The concrete type
// selects the variant.
type Instruction interface {
	// Discriminator returns the wire tag of the variant.
	Discriminator() uint8

	// Name returns the variant name used in logs.
	Name() string

	// Encode returns the full instruction data, tag included.
	Encode() []byte

	bin.BinaryMarshaler
	bin.BinaryUnmarshaler
}

// DecodeInstruction decodes instruction data into its variant. The data
// must be consumed exactly: unknown tags, short payloads and trailing bytes
// all fail with ErrInvalidInstruction.
func DecodeInstruction(data []byte) (Instruction, error) {
	decoder := bin.NewBorshDecoder(data)
	tag, err := decoder.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: missing discriminator", ErrInvalidInstruction)
	}

	var inst Instruction
	switch tag {
	case InstructionInitialize:
		inst = &InitializeInstruction{}
	case InstructionCreateUser:
		inst = &CreateUserInstruction{}
	case InstructionStake:
		inst = &StakeInstruction{}
	case InstructionUnstake:
		inst = &UnstakeInstruction{}
	case InstructionClaim:
		inst = &ClaimInstruction{}
	default:
		return nil, fmt.Errorf("%w: unknown instruction %d", ErrInvalidInstruction, tag)
	}

	if err := inst.UnmarshalWithDecoder(decoder); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInstruction, inst.Name(), err)
	}
	if decoder.HasRemaining() {
		return nil, fmt.Errorf("%w: %s: %d trailing bytes", ErrInvalidInstruction, inst.Name(), decoder.Remaining())
	}
	return inst, nil
}

// encodeInstruction writes the tag followed by the variant payload.
// Writes into a bytes.Buffer cannot fail.
func encodeInstruction(inst Instruction) []byte {
	buf := new(bytes.Buffer)
	encoder := bin.NewBorshEncoder(buf)
	_ = encoder.WriteUint8(inst.Discriminator())
	_ = inst.MarshalWithEncoder(encoder)
	return buf.Bytes()
}

// InitializeInstruction initializes the pool.
// Accounts:
//
//	[0] pool authority (signer)
//	[1] pool storage account (writable, owned by the program)
type InitializeInstruction struct {
	RewardsPerToken uint64
}

func (inst *InitializeInstruction) Discriminator() uint8 { return InstructionInitialize }
func (inst *InitializeInstruction) Name() string         { return "Initialize" }
func (inst *InitializeInstruction) Encode() []byte       { return encodeInstruction(inst) }

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (inst *InitializeInstruction) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(inst.RewardsPerToken, bin.LE)
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (inst *InitializeInstruction) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	inst.RewardsPerToken, err = decoder.ReadUint64(bin.LE)
	return err
}

// CreateUserInstruction registers a user with the pool. Not implemented by
// the program.
type CreateUserInstruction struct{}

func (inst *CreateUserInstruction) Discriminator() uint8 { return InstructionCreateUser }
func (inst *CreateUserInstruction) Name() string         { return "CreateUser" }
func (inst *CreateUserInstruction) Encode() []byte       { return encodeInstruction(inst) }

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (inst *CreateUserInstruction) MarshalWithEncoder(*bin.Encoder) error { return nil }

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (inst *CreateUserInstruction) UnmarshalWithDecoder(*bin.Decoder) error { return nil }

// StakeInstruction stakes an amount into the pool. Not implemented by the
// program.
type StakeInstruction struct {
	Amount uint64
}

func (inst *StakeInstruction) Discriminator() uint8 { return InstructionStake }
func (inst *StakeInstruction) Name() string         { return "Stake" }
func (inst *StakeInstruction) Encode() []byte       { return encodeInstruction(inst) }

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (inst *StakeInstruction) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(inst.Amount, bin.LE)
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (inst *StakeInstruction) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	inst.Amount, err = decoder.ReadUint64(bin.LE)
	return err
}

// UnstakeInstruction withdraws an amount from the pool. Not implemented by
// the program.
type UnstakeInstruction struct {
	Amount uint64
}

func (inst *UnstakeInstruction) Discriminator() uint8 { return InstructionUnstake }
func (inst *UnstakeInstruction) Name() string         { return "Unstake" }
func (inst *UnstakeInstruction) Encode() []byte       { return encodeInstruction(inst) }

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (inst *UnstakeInstruction) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(inst.Amount, bin.LE)
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (inst *UnstakeInstruction) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	inst.Amount, err = decoder.ReadUint64(bin.LE)
	return err
}

// ClaimInstruction claims accrued rewards. Not implemented by the program.
type ClaimInstruction struct{}

func (inst *ClaimInstruction) Discriminator() uint8 { return InstructionClaim }
func (inst *ClaimInstruction) Name() string         { return "Claim" }
func (inst *ClaimInstruction) Encode() []byte       { return encodeInstruction(inst) }

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (inst *ClaimInstruction) MarshalWithEncoder(*bin.Encoder) error { return nil }

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (inst *ClaimInstruction) UnmarshalWithDecoder(*bin.Decoder) error { return nil }
