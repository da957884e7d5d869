package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := make([]byte, AddressLength)
	for i := range raw {
		raw[i] = byte(i)
	}
	addr, err := NewAddress(raw)
	require.NoError(t, err)

	encoded := addr.String()
	require.True(t, strings.HasPrefix(encoded, string(PerkPrefix)+"1"))

	decoded, err := DecodeAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, raw, decoded.Bytes())
	require.Equal(t, addr.Array(), decoded.Array())
}

func TestNewAddressLength(t *testing.T) {
	_, err := NewAddress(make([]byte, 19))
	require.Error(t, err)
	_, err = NewAddress(make([]byte, 21))
	require.Error(t, err)
}

func TestDecodeAddressRejectsForeignPrefix(t *testing.T) {
	_, err := DecodeAddress("nhb1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqvmjgnp")
	require.Error(t, err)
	_, err = DecodeAddress("not-bech32")
	require.Error(t, err)
}

func TestGeneratedKeyAddress(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address()
	require.Len(t, addr.Bytes(), AddressLength)

	decoded, err := DecodeAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr.Bytes(), decoded.Bytes())
}
