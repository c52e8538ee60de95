package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubkeyBase58RoundTrip(t *testing.T) {
	pk := PubkeyFromSeed("authority")

	parsed, err := PubkeyFromBase58(pk.String())
	require.NoError(t, err)
	assert.Equal(t, pk, parsed)
}

func TestPubkeyFromBase58_WrongLength(t *testing.T) {
	// "2" decodes to a single byte
	_, err := PubkeyFromBase58("2")
	require.Error(t, err)

	_, err = PubkeyFromBase58("0OIl")
	require.Error(t, err)
}

func TestSystemProgramIDIsZero(t *testing.T) {
	assert.True(t, SystemProgramID.IsZero())
	assert.False(t, DefaultStakePoolProgramID.IsZero())
}

func TestPubkeyText(t *testing.T) {
	pk := PubkeyFromSeed("text")
	text, err := pk.MarshalText()
	require.NoError(t, err)

	var decoded Pubkey
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, pk, decoded)
}

func TestAccountClone(t *testing.T) {
	acc := NewAccount(1000, SystemProgramID, 8)
	acc.Data[0] = 7

	clone := acc.Clone()
	clone.Data[0] = 9
	clone.Lamports = 1

	assert.Equal(t, byte(7), acc.Data[0])
	assert.Equal(t, Lamports(1000), acc.Lamports)

	var nilAcc *Account
	assert.Nil(t, nilAcc.Clone())
}

func TestRentExemptMinimum(t *testing.T) {
	assert.Equal(t, Lamports((57+128)*3480*2), RentExemptMinimum(57))
}
