package loyalty

import (
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

// Address uniquely identifies a ledger record. Addresses are derived
// deterministically from an entity kind tag and the entity's key parts, so
// the same inputs always map to the same record and distinct inputs collide
// only with negligible probability.
type Address [32]byte

// Hex renders the address as a 0x-prefixed hex string.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// ParseAddress decodes a 0x-prefixed hex record address.
func ParseAddress(s string) (Address, error) {
	var out Address
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, fmt.Errorf("invalid address: %w", err)
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("invalid address length: %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// Derivation tags. Each entity kind hashes under its own domain so key parts
// of different kinds can never collide.
const (
	tagProgram  = "perk/program"
	tagMint     = "perk/mint"
	tagMerchant = "perk/merchant"
	tagCustomer = "perk/customer"
	tagRule     = "perk/reward-rule"
	tagOffer    = "perk/redemption-offer"
	tagVoucher  = "perk/redemption-voucher"
)

func derive(tag string, parts ...[]byte) Address {
	h := blake3.New(32, nil)
	h.Write([]byte(tag))
	h.Write([]byte{0})
	for _, part := range parts {
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(part)))
		h.Write(size[:])
		h.Write(part)
	}
	var out Address
	copy(out[:], h.Sum(nil))
	return out
}

// DeriveProgram returns the address of the loyalty program owned by the
// authority.
func DeriveProgram(authority [20]byte) Address {
	return derive(tagProgram, authority[:])
}

// DeriveMint returns the address of the program's token mint.
func DeriveMint(program Address) Address {
	return derive(tagMint, program[:])
}

// DeriveMerchant returns the address of the merchant owned by the authority
// within the program.
func DeriveMerchant(authority [20]byte, program Address) Address {
	return derive(tagMerchant, authority[:], program[:])
}

// DeriveCustomer returns the address of the customer account for the wallet
// within the program.
func DeriveCustomer(wallet [20]byte, program Address) Address {
	return derive(tagCustomer, wallet[:], program[:])
}

// DeriveRewardRule returns the address of the merchant-scoped reward rule.
// The rule identifier is encoded fixed-width so adjacent IDs stay distinct.
func DeriveRewardRule(merchant Address, ruleID uint64) Address {
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], ruleID)
	return derive(tagRule, merchant[:], id[:])
}

// DeriveOffer returns the address of the merchant's redemption offer. Offer
// names take part in derivation, which is what makes them unique per
// merchant.
func DeriveOffer(merchant Address, name string) Address {
	return derive(tagOffer, merchant[:], []byte(name))
}

// DeriveVoucher returns the address of the redemption voucher minted for the
// (customer, merchant, offer, seed) tuple. Reusing a seed for the same triple
// maps to an existing voucher and fails closed rather than overwriting it.
func DeriveVoucher(customer, merchant, offer Address, seed uint64) Address {
	var s [8]byte
	binary.BigEndian.PutUint64(s[:], seed)
	return derive(tagVoucher, customer[:], merchant[:], offer[:], s[:])
}

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// RedemptionCode renders the human-displayable claim code for a voucher
// address. The code is a projection of the address, not a secret: it is a
// claim ticket, not a credential.
func RedemptionCode(voucher Address) string {
	encoded := codeEncoding.EncodeToString(voucher[:10])
	var b strings.Builder
	for i, r := range encoded {
		if i > 0 && i%4 == 0 {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String()
}
