package loyalty

import "sort"

// GetProgram retrieves a program by address.
func GetProgram(st ledgerState, addr Address) (*LoyaltyProgram, error) {
	return loadProgram(st, addr)
}

// GetMerchant retrieves a merchant by address.
func GetMerchant(st ledgerState, addr Address) (*Merchant, error) {
	return loadMerchant(st, addr)
}

// GetCustomer retrieves a customer by address.
func GetCustomer(st ledgerState, addr Address) (*Customer, error) {
	return loadCustomer(st, addr)
}

// GetRewardRule retrieves a merchant's rule by its caller-chosen ID.
func GetRewardRule(st ledgerState, merchant Address, ruleID uint64) (*RewardRule, error) {
	addr := DeriveRewardRule(merchant, ruleID)
	rule := new(RewardRule)
	found, err := st.KVGet(ruleKey(addr), rule)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return rule, nil
}

// ListRewardRules returns all of a merchant's rules in ascending rule ID
// order, the same order issuance composes them in.
func ListRewardRules(st ledgerState, merchant Address) ([]*RewardRule, error) {
	var refs [][]byte
	if err := st.KVGetList(merchantRulesKey(merchant), &refs); err != nil {
		return nil, err
	}
	rules := make([]*RewardRule, 0, len(refs))
	for _, ref := range refs {
		var addr Address
		copy(addr[:], ref)
		rule := new(RewardRule)
		found, err := st.KVGet(ruleKey(addr), rule)
		if err != nil {
			return nil, err
		}
		if found {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].RuleID < rules[j].RuleID })
	return rules, nil
}

// GetRedemptionOffer retrieves an offer by address.
func GetRedemptionOffer(st ledgerState, addr Address) (*RedemptionOffer, error) {
	return loadOffer(st, addr)
}

// ListRedemptionOffers returns all of a merchant's offers sorted by name.
func ListRedemptionOffers(st ledgerState, merchant Address) ([]*RedemptionOffer, error) {
	var refs [][]byte
	if err := st.KVGetList(merchantOffersKey(merchant), &refs); err != nil {
		return nil, err
	}
	offers := make([]*RedemptionOffer, 0, len(refs))
	for _, ref := range refs {
		var addr Address
		copy(addr[:], ref)
		offer := new(RedemptionOffer)
		found, err := st.KVGet(offerKey(addr), offer)
		if err != nil {
			return nil, err
		}
		if found {
			offers = append(offers, offer)
		}
	}
	sort.Slice(offers, func(i, j int) bool { return offers[i].Name < offers[j].Name })
	return offers, nil
}

// GetVoucher retrieves a voucher by address.
func GetVoucher(st ledgerState, addr Address) (*RedemptionVoucher, error) {
	return loadVoucher(st, addr)
}

// GetRedemptionRecord retrieves the index record for a voucher.
func GetRedemptionRecord(st ledgerState, voucher Address) (*RedemptionRecord, error) {
	out := new(RedemptionRecord)
	found, err := st.KVGet(recordKey(voucher), out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return out, nil
}

// ListVouchersByCustomer returns all vouchers minted for a customer in
// creation order.
func ListVouchersByCustomer(st ledgerState, customer Address) ([]*RedemptionVoucher, error) {
	var refs [][]byte
	if err := st.KVGetList(customerVouchersKey(customer), &refs); err != nil {
		return nil, err
	}
	vouchers := make([]*RedemptionVoucher, 0, len(refs))
	for _, ref := range refs {
		var addr Address
		copy(addr[:], ref)
		voucher := new(RedemptionVoucher)
		found, err := st.KVGet(voucherKey(addr), voucher)
		if err != nil {
			return nil, err
		}
		if found {
			vouchers = append(vouchers, voucher)
		}
	}
	return vouchers, nil
}
