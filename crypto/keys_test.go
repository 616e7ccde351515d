package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressBech32RoundTrip(t *testing.T) {
	var raw [20]byte
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	addr := FromArray(raw)
	encoded := addr.String()
	require.True(t, strings.HasPrefix(encoded, string(VaultPrefix)+"1"))

	decoded, err := DecodeAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, VaultPrefix, decoded.Prefix())
	require.Equal(t, raw, decoded.Array())
}

func TestNewAddressRejectsWrongLength(t *testing.T) {
	_, err := NewAddress(VaultPrefix, []byte{1, 2, 3})
	require.Error(t, err)
	require.Panics(t, func() { MustNewAddress(VaultPrefix, nil) })
}

func TestParseIdentity(t *testing.T) {
	hex := "0x00000000000000000000000000000000000000ff"
	fromHex, err := ParseIdentity(hex)
	require.NoError(t, err)
	require.Equal(t, byte(0xff), fromHex[19])

	fromBech, err := ParseIdentity(FromArray(fromHex).String())
	require.NoError(t, err)
	require.Equal(t, fromHex, fromBech)

	for _, bad := range []string{"", "0x1234", "not-an-address"} {
		_, err := ParseIdentity(bad)
		require.Error(t, err, bad)
	}
}

func TestPrivateKeyAddressStable(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	restored, err := PrivateKeyFromBytes(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().Array(), restored.PubKey().Address().Array())
}
