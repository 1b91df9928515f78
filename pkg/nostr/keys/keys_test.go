package keys

import (
	"testing"

	"github.com/Hubmakerlabs/aionostr/pkg/nostr/bech32encoding"
	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		sk := GeneratePrivateKey()
		require.True(t, IsValid32ByteHex(sk))
		require.False(t, seen[sk])
		seen[sk] = true
		pk, err := GetPublicKey(sk)
		require.NoError(t, err)
		ref, err := nostr.GetPublicKey(sk)
		require.NoError(t, err)
		assert.Equal(t, ref, pk)
		assert.True(t, IsValidPublicKey(pk))
	}
}

func TestSecretFrom(t *testing.T) {
	sk := GeneratePrivateKey()
	nsec, err := bech32encoding.EncodePrivateKey(sk)
	require.NoError(t, err)

	got, err := SecretFrom(nsec)
	require.NoError(t, err)
	assert.Equal(t, sk, got)

	got, err = SecretFrom(" " + sk + "\n")
	require.NoError(t, err)
	assert.Equal(t, sk, got)

	got, err = SecretFrom("1")
	require.NoError(t, err)
	assert.Equal(t, "0000000000000000000000000000000000000000000000000000000000000001", got)

	for _, bad := range []string{"", "xyz", sk + "00", "nsec1qqqq",
		"0000000000000000000000000000000000000000000000000000000000000000",
		"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"} {
		_, err = SecretFrom(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}

func TestIsValid32ByteHex(t *testing.T) {
	assert.False(t, IsValid32ByteHex("ABCD"))
	assert.False(t, IsValid32ByteHex("abcd"))
	assert.True(t, IsValid32ByteHex(GeneratePrivateKey()))
}
