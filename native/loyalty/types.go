package loyalty

import (
	"fmt"
	"strings"
)

// Name length ceilings enforced before any address derivation.
const (
	MaxNameLen        = 32
	MaxDescriptionLen = 256
)

// LoyaltyProgram is the per-authority root record. It aggregates issuance
// and redemption totals across every merchant and customer of the program.
type LoyaltyProgram struct {
	Authority           [20]byte
	Name                string
	InterestRateBp      uint32
	Mint                Address
	TotalMerchants      uint64
	TotalCustomers      uint64
	TotalTokensIssued   uint64
	TotalTokensRedeemed uint64
}

// Merchant issues rewards against purchases and owns reward rules and
// redemption offers. The name is immutable after registration.
type Merchant struct {
	Authority     [20]byte
	Program       Address
	Name          string
	Category      string
	Avatar        string
	Description   string
	RewardRate    uint64
	TotalIssued   uint64
	TotalRedeemed uint64
	IsActive      bool
	CreatedAt     uint64
}

// Customer accumulates earnings per program. The cached tier is recomputed
// on every earning event and is never stale after a committed issuance.
type Customer struct {
	Wallet           [20]byte
	Program          Address
	TotalEarned      uint64
	TotalRedeemed    uint64
	TransactionCount uint64
	Tier             Tier
}

// Balance returns the customer's spendable token balance.
func (c *Customer) Balance() uint64 {
	return c.TotalEarned - c.TotalRedeemed
}

// RuleKind discriminates the reward rule behaviours.
type RuleKind uint8

const (
	RuleBaseReward RuleKind = iota
	RuleBonusMultiplier
	RuleFirstPurchaseBonus
	RuleReferralBonus
	RuleTierBonus
	RuleStreakBonus
)

// Valid reports whether the rule kind is within the supported range.
func (k RuleKind) Valid() bool {
	return k <= RuleStreakBonus
}

// String returns the camelCase kind name used on the wire.
func (k RuleKind) String() string {
	switch k {
	case RuleBaseReward:
		return "baseReward"
	case RuleBonusMultiplier:
		return "bonusMultiplier"
	case RuleFirstPurchaseBonus:
		return "firstPurchaseBonus"
	case RuleReferralBonus:
		return "referralBonus"
	case RuleTierBonus:
		return "tierBonus"
	case RuleStreakBonus:
		return "streakBonus"
	default:
		return "unknown"
	}
}

// ParseRuleKind converts a wire kind name to its enum value.
func ParseRuleKind(name string) (RuleKind, bool) {
	switch name {
	case "baseReward":
		return RuleBaseReward, true
	case "bonusMultiplier":
		return RuleBonusMultiplier, true
	case "firstPurchaseBonus":
		return RuleFirstPurchaseBonus, true
	case "referralBonus":
		return RuleReferralBonus, true
	case "tierBonus":
		return RuleTierBonus, true
	case "streakBonus":
		return RuleStreakBonus, true
	default:
		return RuleBaseReward, false
	}
}

// RewardRule is a merchant-defined bonus applied during issuance when its
// activation window and minimum purchase threshold match.
type RewardRule struct {
	Merchant    Address
	RuleID      uint64
	Kind        RuleKind
	Multiplier  uint64
	MinPurchase uint64
	StartTime   uint64
	EndTime     uint64
	IsActive    bool
}

// EligibleAt reports whether the rule applies to a purchase of the given
// amount at the given time. Zero start/end times are unbounded.
func (r *RewardRule) EligibleAt(now, purchaseAmount uint64) bool {
	if r == nil || !r.IsActive {
		return false
	}
	if r.StartTime != 0 && now < r.StartTime {
		return false
	}
	if r.EndTime != 0 && now > r.EndTime {
		return false
	}
	return purchaseAmount >= r.MinPurchase
}

// OfferKind discriminates redemption offer types.
type OfferKind uint8

const (
	OfferDiscountPercent OfferKind = iota
	OfferFreeProduct
	OfferCashback
	OfferExclusiveAccess
	OfferCustom
)

// Valid reports whether the offer kind is within the supported range.
func (k OfferKind) Valid() bool {
	return k <= OfferCustom
}

// String returns the camelCase kind name used on the wire.
func (k OfferKind) String() string {
	switch k {
	case OfferDiscountPercent:
		return "discountPercent"
	case OfferFreeProduct:
		return "freeProduct"
	case OfferCashback:
		return "cashback"
	case OfferExclusiveAccess:
		return "exclusiveAccess"
	case OfferCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// ParseOfferKind converts a wire kind name to its enum value.
func ParseOfferKind(name string) (OfferKind, bool) {
	switch name {
	case "discountPercent":
		return OfferDiscountPercent, true
	case "freeProduct":
		return OfferFreeProduct, true
	case "cashback":
		return OfferCashback, true
	case "exclusiveAccess":
		return OfferExclusiveAccess, true
	case "custom":
		return OfferCustom, true
	default:
		return OfferCustom, false
	}
}

// RedemptionOffer is a merchant-defined redemption target. The name takes
// part in the offer's address derivation and is therefore unique per
// merchant and immutable.
type RedemptionOffer struct {
	Merchant          Address
	Name              string
	Description       string
	Icon              string
	Cost              uint64
	Kind              OfferKind
	HasLimit          bool
	QuantityRemaining uint64
	ExpiresAt         uint64
	IsActive          bool
}

// AvailableAt reports whether the offer can be redeemed at the given time.
func (o *RedemptionOffer) AvailableAt(now uint64) bool {
	if o == nil || !o.IsActive {
		return false
	}
	if o.ExpiresAt != 0 && now > o.ExpiresAt {
		return false
	}
	if o.HasLimit && o.QuantityRemaining == 0 {
		return false
	}
	return true
}

// VoucherStatus is the lifecycle state of a redemption voucher.
type VoucherStatus uint8

const (
	VoucherActive VoucherStatus = iota
	VoucherUsed
	VoucherRevoked
)

// Valid reports whether the status value is within the supported range.
func (s VoucherStatus) Valid() bool {
	return s <= VoucherRevoked
}

// String returns the lowercase status name.
func (s VoucherStatus) String() string {
	switch s {
	case VoucherActive:
		return "active"
	case VoucherUsed:
		return "used"
	case VoucherRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// ParseVoucherStatus converts a wire status name to its enum value.
func ParseVoucherStatus(name string) (VoucherStatus, bool) {
	switch name {
	case "active":
		return VoucherActive, true
	case "used":
		return VoucherUsed, true
	case "revoked":
		return VoucherRevoked, true
	default:
		return VoucherActive, false
	}
}

// CanTransition reports whether the status may move to next. Active vouchers
// can be used or revoked, revoked vouchers can be reactivated, and used is
// terminal.
func (s VoucherStatus) CanTransition(next VoucherStatus) bool {
	switch s {
	case VoucherActive:
		return next == VoucherUsed || next == VoucherRevoked
	case VoucherRevoked:
		return next == VoucherActive
	default:
		return false
	}
}

// RedemptionVoucher is the single-use claim ticket minted when a customer
// redeems tokens against an offer.
type RedemptionVoucher struct {
	Customer  Address
	Merchant  Address
	Offer     Address
	Seed      uint64
	Code      string
	Cost      uint64
	CreatedAt uint64
	ExpiresAt uint64
	Status    VoucherStatus
	UsedAt    uint64
}

// RedemptionRecord links a voucher back to its offer, merchant and customer
// so status updates can locate the voucher without re-deriving its seed.
type RedemptionRecord struct {
	Voucher   Address
	Offer     Address
	Merchant  Address
	Customer  Address
	CreatedAt uint64
}

func sanitizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: name required", ErrInvalidName)
	}
	if len(trimmed) > MaxNameLen {
		return "", fmt.Errorf("%w: name exceeds %d bytes", ErrInvalidName, MaxNameLen)
	}
	return trimmed, nil
}

func sanitizeDescription(desc string) (string, error) {
	trimmed := strings.TrimSpace(desc)
	if len(trimmed) > MaxDescriptionLen {
		return "", fmt.Errorf("%w: description exceeds %d bytes", ErrInvalidName, MaxDescriptionLen)
	}
	return trimmed, nil
}
