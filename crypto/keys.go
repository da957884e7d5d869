package crypto

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable part of an encoded account address.
type AddressPrefix string

// PerkPrefix is the prefix used for all perkledger account addresses.
const PerkPrefix AddressPrefix = "perk"

// AddressLength is the byte length of a raw account address.
const AddressLength = 20

// Address represents a 20-byte account address. Authorities and customer
// wallets are both identified by an Address.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

// NewAddress wraps the provided raw bytes. The slice must be exactly 20
// bytes long.
func NewAddress(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("address must be %d bytes long, got %d", AddressLength, len(b))
	}
	return Address{prefix: PerkPrefix, bytes: append([]byte(nil), b...)}, nil
}

// MustNewAddress wraps the provided raw bytes and panics when the length is
// invalid. Intended for tests and static initialisers.
func MustNewAddress(b []byte) Address {
	addr, err := NewAddress(b)
	if err != nil {
		panic(err)
	}
	return addr
}

// String renders the address in bech32 with the perk prefix.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns the raw 20-byte address.
func (a Address) Bytes() []byte {
	return append([]byte(nil), a.bytes...)
}

// Array returns the raw address as a fixed-size array for use as a map key
// or derivation input.
func (a Address) Array() [20]byte {
	var out [20]byte
	copy(out[:], a.bytes)
	return out
}

// DecodeAddress parses a bech32-encoded account address.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	if prefix != string(PerkPrefix) {
		return Address{}, fmt.Errorf("unexpected address prefix: %s", prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 payload: %w", err)
	}
	return NewAddress(conv)
}

// PrivateKey wraps an ECDSA private key used to authorise ledger mutations.
type PrivateKey struct {
	PrivateKey *ecdsa.PrivateKey
}

// GeneratePrivateKey creates a fresh random key pair.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{PrivateKey: key}, nil
}

// PubKey returns the public half of the key pair.
func (p *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{PublicKey: &p.PrivateKey.PublicKey}
}

// PublicKey wraps an ECDSA public key.
type PublicKey struct {
	PublicKey *ecdsa.PublicKey
}

// Address derives the 20-byte account address from the public key.
func (p *PublicKey) Address() Address {
	raw := ethcrypto.PubkeyToAddress(*p.PublicKey)
	return Address{prefix: PerkPrefix, bytes: raw.Bytes()}
}
