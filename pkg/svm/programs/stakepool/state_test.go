package stakepool

import (
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/x1-stakepool/pkg/types"
)

func TestPoolStorageAccount_Layout(t *testing.T) {
	pool := PoolStorageAccount{
		PoolAuthority:   types.PubkeyFromSeed("authority"),
		TotalStaked:     1,
		UserCount:       2,
		RewardsPerToken: 500,
		IsInitialized:   true,
	}

	data := pool.Encode()
	require.Len(t, data, PoolStorageAccountSize)
	assert.Equal(t, pool.PoolAuthority[:], data[0:32])
	assert.Equal(t, uint64(1), binary.LittleEndian.Uint64(data[32:40]))
	assert.Equal(t, uint64(2), binary.LittleEndian.Uint64(data[40:48]))
	assert.Equal(t, uint64(500), binary.LittleEndian.Uint64(data[48:56]))
	assert.Equal(t, byte(1), data[56])

	// Encoding is deterministic.
	assert.Equal(t, data, pool.Encode())
}

func TestPoolStorageAccount_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	records := []PoolStorageAccount{
		{},
		{
			PoolAuthority:   types.PubkeyFromSeed("max"),
			TotalStaked:     math.MaxUint64,
			UserCount:       math.MaxUint64,
			RewardsPerToken: math.MaxUint64,
			IsInitialized:   true,
		},
	}
	for i := 0; i < 64; i++ {
		var pool PoolStorageAccount
		rng.Read(pool.PoolAuthority[:])
		pool.TotalStaked = rng.Uint64()
		pool.UserCount = rng.Uint64()
		pool.RewardsPerToken = rng.Uint64()
		pool.IsInitialized = rng.Intn(2) == 1
		records = append(records, pool)
	}

	for _, want := range records {
		var got PoolStorageAccount
		require.NoError(t, got.Decode(want.Encode()))
		assert.Equal(t, want, got)
	}
}

func TestPoolStorageAccount_DecodeZeroed(t *testing.T) {
	var pool PoolStorageAccount
	require.NoError(t, pool.Decode(make([]byte, PoolStorageAccountSize)))
	assert.Equal(t, PoolStorageAccount{}, pool)
	assert.False(t, pool.IsInitialized)
}

func TestPoolStorageAccount_DecodeLongerBuffer(t *testing.T) {
	want := PoolStorageAccount{PoolAuthority: types.PubkeyFromSeed("a"), RewardsPerToken: 3, IsInitialized: true}
	data := append(want.Encode(), 0xde, 0xad)

	var got PoolStorageAccount
	require.NoError(t, got.Decode(data))
	assert.Equal(t, want, got)
}

func TestPoolStorageAccount_DecodeInvalid(t *testing.T) {
	var pool PoolStorageAccount

	err := pool.Decode(make([]byte, PoolStorageAccountSize-1))
	assert.ErrorIs(t, err, ErrInvalidAccountData)

	err = pool.Decode(nil)
	assert.ErrorIs(t, err, ErrInvalidAccountData)

	data := make([]byte, PoolStorageAccountSize)
	data[56] = 2
	err = pool.Decode(data)
	assert.ErrorIs(t, err, ErrInvalidAccountData)

	_, isCustom := CustomErrorCode(err)
	assert.False(t, isCustom)
}

func TestPoolStorageAccount_DecodeFailureKeepsRecord(t *testing.T) {
	pool := PoolStorageAccount{RewardsPerToken: 42, IsInitialized: true}

	data := make([]byte, PoolStorageAccountSize)
	data[48] = 9
	data[56] = 7
	require.Error(t, pool.Decode(data))
	assert.Equal(t, uint64(42), pool.RewardsPerToken)
}

func TestPoolStorageAccount_String(t *testing.T) {
	pool := PoolStorageAccount{PoolAuthority: types.PubkeyFromSeed("a"), RewardsPerToken: 500, IsInitialized: true}
	s := pool.String()
	assert.Contains(t, s, pool.PoolAuthority.String())
	assert.Contains(t, s, "rewards_per_token: 500")
	assert.Contains(t, s, "is_initialized: true")
}
