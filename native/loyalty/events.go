package loyalty

import (
	"encoding/hex"
	"strconv"

	"perkledger/core/types"
)

// Event type identifiers emitted by the loyalty ledger.
const (
	EventProgramCreated      = "loyalty.program.created"
	EventMerchantRegistered  = "loyalty.merchant.registered"
	EventMerchantUpdated     = "loyalty.merchant.updated"
	EventMerchantStatus      = "loyalty.merchant.status"
	EventMerchantDestroyed   = "loyalty.merchant.destroyed"
	EventCustomerRegistered  = "loyalty.customer.registered"
	EventRewardRuleSet       = "loyalty.rule.set"
	EventRewardRuleToggled   = "loyalty.rule.toggled"
	EventRewardRuleDeleted   = "loyalty.rule.deleted"
	EventOfferCreated        = "loyalty.offer.created"
	EventOfferUpdated        = "loyalty.offer.updated"
	EventOfferToggled        = "loyalty.offer.toggled"
	EventOfferDeleted        = "loyalty.offer.deleted"
	EventRewardIssued        = "loyalty.reward.issued"
	EventTierChanged         = "loyalty.tier.changed"
	EventRedemptionCompleted = "loyalty.redemption.completed"
	EventVoucherStatus       = "loyalty.voucher.status"
)

func hexAttr(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func uintAttr(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func newProgramCreatedEvent(addr Address, p *LoyaltyProgram) *types.Event {
	return &types.Event{
		Type: EventProgramCreated,
		Attributes: map[string]string{
			"program":        addr.Hex(),
			"authority":      hexAttr(p.Authority[:]),
			"name":           p.Name,
			"mint":           p.Mint.Hex(),
			"interestRateBp": uintAttr(uint64(p.InterestRateBp)),
		},
	}
}

func newMerchantRegisteredEvent(addr Address, m *Merchant) *types.Event {
	return &types.Event{
		Type: EventMerchantRegistered,
		Attributes: map[string]string{
			"merchant":   addr.Hex(),
			"program":    m.Program.Hex(),
			"authority":  hexAttr(m.Authority[:]),
			"name":       m.Name,
			"rewardRate": uintAttr(m.RewardRate),
		},
	}
}

func newMerchantUpdatedEvent(addr Address, m *Merchant) *types.Event {
	return &types.Event{
		Type: EventMerchantUpdated,
		Attributes: map[string]string{
			"merchant":   addr.Hex(),
			"category":   m.Category,
			"rewardRate": uintAttr(m.RewardRate),
		},
	}
}

func newMerchantStatusEvent(addr Address, active bool) *types.Event {
	return &types.Event{
		Type: EventMerchantStatus,
		Attributes: map[string]string{
			"merchant": addr.Hex(),
			"active":   strconv.FormatBool(active),
		},
	}
}

func newMerchantDestroyedEvent(addr Address, m *Merchant) *types.Event {
	return &types.Event{
		Type: EventMerchantDestroyed,
		Attributes: map[string]string{
			"merchant":  addr.Hex(),
			"program":   m.Program.Hex(),
			"authority": hexAttr(m.Authority[:]),
		},
	}
}

func newCustomerRegisteredEvent(addr Address, c *Customer) *types.Event {
	return &types.Event{
		Type: EventCustomerRegistered,
		Attributes: map[string]string{
			"customer": addr.Hex(),
			"program":  c.Program.Hex(),
			"wallet":   hexAttr(c.Wallet[:]),
		},
	}
}

func newRuleSetEvent(addr Address, r *RewardRule) *types.Event {
	return &types.Event{
		Type: EventRewardRuleSet,
		Attributes: map[string]string{
			"rule":        addr.Hex(),
			"merchant":    r.Merchant.Hex(),
			"ruleId":      uintAttr(r.RuleID),
			"kind":        r.Kind.String(),
			"multiplier":  uintAttr(r.Multiplier),
			"minPurchase": uintAttr(r.MinPurchase),
		},
	}
}

func newRuleToggledEvent(addr Address, r *RewardRule) *types.Event {
	return &types.Event{
		Type: EventRewardRuleToggled,
		Attributes: map[string]string{
			"rule":     addr.Hex(),
			"merchant": r.Merchant.Hex(),
			"ruleId":   uintAttr(r.RuleID),
			"active":   strconv.FormatBool(r.IsActive),
		},
	}
}

func newRuleDeletedEvent(addr Address, merchant Address, ruleID uint64) *types.Event {
	return &types.Event{
		Type: EventRewardRuleDeleted,
		Attributes: map[string]string{
			"rule":     addr.Hex(),
			"merchant": merchant.Hex(),
			"ruleId":   uintAttr(ruleID),
		},
	}
}

func newOfferCreatedEvent(addr Address, o *RedemptionOffer) *types.Event {
	return &types.Event{
		Type: EventOfferCreated,
		Attributes: map[string]string{
			"offer":    addr.Hex(),
			"merchant": o.Merchant.Hex(),
			"name":     o.Name,
			"cost":     uintAttr(o.Cost),
			"kind":     o.Kind.String(),
		},
	}
}

func newOfferUpdatedEvent(addr Address, o *RedemptionOffer) *types.Event {
	return &types.Event{
		Type: EventOfferUpdated,
		Attributes: map[string]string{
			"offer":    addr.Hex(),
			"merchant": o.Merchant.Hex(),
			"cost":     uintAttr(o.Cost),
		},
	}
}

func newOfferToggledEvent(addr Address, o *RedemptionOffer) *types.Event {
	return &types.Event{
		Type: EventOfferToggled,
		Attributes: map[string]string{
			"offer":    addr.Hex(),
			"merchant": o.Merchant.Hex(),
			"active":   strconv.FormatBool(o.IsActive),
		},
	}
}

func newOfferDeletedEvent(addr Address, merchant Address, name string) *types.Event {
	return &types.Event{
		Type: EventOfferDeleted,
		Attributes: map[string]string{
			"offer":    addr.Hex(),
			"merchant": merchant.Hex(),
			"name":     name,
		},
	}
}

func newRewardIssuedEvent(customer, merchant Address, purchase, reward, multiplier uint64, tier Tier) *types.Event {
	return &types.Event{
		Type: EventRewardIssued,
		Attributes: map[string]string{
			"customer":       customer.Hex(),
			"merchant":       merchant.Hex(),
			"purchaseAmount": uintAttr(purchase),
			"reward":         uintAttr(reward),
			"multiplier":     uintAttr(multiplier),
			"tier":           tier.String(),
		},
	}
}

func newTierChangedEvent(customer Address, previous, next Tier, totalEarned uint64) *types.Event {
	return &types.Event{
		Type: EventTierChanged,
		Attributes: map[string]string{
			"customer":    customer.Hex(),
			"from":        previous.String(),
			"to":          next.String(),
			"totalEarned": uintAttr(totalEarned),
		},
	}
}

func newRedemptionEvent(voucher Address, v *RedemptionVoucher) *types.Event {
	return &types.Event{
		Type: EventRedemptionCompleted,
		Attributes: map[string]string{
			"voucher":  voucher.Hex(),
			"customer": v.Customer.Hex(),
			"merchant": v.Merchant.Hex(),
			"offer":    v.Offer.Hex(),
			"cost":     uintAttr(v.Cost),
			"code":     v.Code,
		},
	}
}

func newVoucherStatusEvent(voucher Address, previous, next VoucherStatus) *types.Event {
	return &types.Event{
		Type: EventVoucherStatus,
		Attributes: map[string]string{
			"voucher": voucher.Hex(),
			"from":    previous.String(),
			"to":      next.String(),
		},
	}
}
