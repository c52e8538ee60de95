package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInstruction() Instruction {
	return Instruction{
		ProgramID: PubkeyFromSeed("program"),
		Accounts: []AccountMeta{
			{Pubkey: PubkeyFromSeed("authority"), IsSigner: true},
			{Pubkey: PubkeyFromSeed("storage"), IsWritable: true},
		},
		Data: []byte{0, 0xf4, 0x01, 0, 0, 0, 0, 0, 0},
	}
}

func TestTransactionMessageLayout(t *testing.T) {
	ix := testInstruction()
	msg, err := NewTransaction(ix).Message()
	require.NoError(t, err)

	require.Len(t, msg, 32+4+2*34+4+len(ix.Data))
	assert.Equal(t, ix.ProgramID[:], msg[:32])
	assert.Equal(t, []byte{2, 0, 0, 0}, msg[32:36])
	assert.Equal(t, ix.Accounts[0].Pubkey[:], msg[36:68])
	assert.Equal(t, []byte{1, 0}, msg[68:70])
	assert.Equal(t, []byte{0, 1}, msg[102:104])
	assert.Equal(t, []byte{9, 0, 0, 0}, msg[104:108])
	assert.Equal(t, ix.Data, msg[108:])
}

func TestTransactionSerializeRoundTrip(t *testing.T) {
	tx := NewTransaction(testInstruction())
	var sig Signature
	sig[0], sig[63] = 1, 2
	tx.AddSignature(PubkeyFromSeed("authority"), sig)

	raw, err := tx.Serialize()
	require.NoError(t, err)

	decoded, err := DeserializeTransaction(raw)
	require.NoError(t, err)
	assert.Equal(t, tx, decoded)

	unsigned, err := NewTransaction(Instruction{ProgramID: PubkeyFromSeed("program")}).Serialize()
	require.NoError(t, err)
	decoded, err = DeserializeTransaction(unsigned)
	require.NoError(t, err)
	assert.Empty(t, decoded.Signatures)
	assert.Nil(t, decoded.Instruction.Data)
}

func TestDeserializeTransaction_Invalid(t *testing.T) {
	tx := NewTransaction(testInstruction())
	tx.AddSignature(PubkeyFromSeed("authority"), Signature{})
	raw, err := tx.Serialize()
	require.NoError(t, err)

	tests := map[string][]byte{
		"empty":          {},
		"truncated":      raw[:len(raw)-1],
		"trailing":       append(append([]byte{}, raw...), 0),
		"huge sig count": {0xff, 0xff, 0xff, 0xff},
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DeserializeTransaction(data)
			assert.ErrorIs(t, err, ErrInvalidTransaction)
		})
	}
}

func TestTransactionRequiredSigners(t *testing.T) {
	ix := testInstruction()
	ix.Accounts = append(ix.Accounts, AccountMeta{Pubkey: PubkeyFromSeed("authority"), IsSigner: true})
	assert.Equal(t, []Pubkey{PubkeyFromSeed("authority")}, NewTransaction(ix).RequiredSigners())
}

func TestSignatureFromBase58(t *testing.T) {
	var sig Signature
	sig[5] = 9
	parsed, err := SignatureFromBase58(sig.String())
	require.NoError(t, err)
	assert.Equal(t, sig, parsed)
	assert.False(t, parsed.IsZero())

	_, err = SignatureFromBase58(PubkeyFromSeed("x").String())
	assert.Error(t, err)
}
