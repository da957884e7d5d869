package loyalty

import "fmt"

// SetRewardRule creates or updates a merchant-scoped reward rule. Rule IDs
// are caller-chosen; the rule address is derived from (merchant, ruleId), so
// no two rules of one merchant can share an ID.
func (r *Registry) SetRewardRule(st ledgerState, caller [20]byte, merchantAddr Address, ruleID uint64, kind RuleKind, multiplier, minPurchase, startTime, endTime uint64) (Address, error) {
	if !kind.Valid() {
		return Address{}, fmt.Errorf("%w: unknown kind %d", ErrInvalidRule, kind)
	}
	if multiplier == 0 {
		return Address{}, fmt.Errorf("%w: multiplier must be positive", ErrInvalidRule)
	}
	if endTime != 0 && endTime < startTime {
		return Address{}, fmt.Errorf("%w: end time before start time", ErrInvalidRule)
	}
	merchant, err := loadMerchant(st, merchantAddr)
	if err != nil {
		return Address{}, err
	}
	if caller != merchant.Authority {
		return Address{}, ErrUnauthorized
	}
	addr := DeriveRewardRule(merchantAddr, ruleID)
	existing := new(RewardRule)
	found, err := st.KVGet(ruleKey(addr), existing)
	if err != nil {
		return Address{}, err
	}
	rule := &RewardRule{
		Merchant:    merchantAddr,
		RuleID:      ruleID,
		Kind:        kind,
		Multiplier:  multiplier,
		MinPurchase: minPurchase,
		StartTime:   startTime,
		EndTime:     endTime,
		IsActive:    true,
	}
	if found {
		rule.IsActive = existing.IsActive
	}
	if err := st.KVPut(ruleKey(addr), rule); err != nil {
		return Address{}, err
	}
	if !found {
		if err := st.KVAppend(merchantRulesKey(merchantAddr), addr[:]); err != nil {
			return Address{}, err
		}
	}
	st.AppendEvent(newRuleSetEvent(addr, rule))
	return addr, nil
}

// ToggleRewardRule flips the rule's active flag.
func (r *Registry) ToggleRewardRule(st ledgerState, caller [20]byte, merchantAddr Address, ruleID uint64) error {
	merchant, err := loadMerchant(st, merchantAddr)
	if err != nil {
		return err
	}
	if caller != merchant.Authority {
		return ErrUnauthorized
	}
	addr := DeriveRewardRule(merchantAddr, ruleID)
	rule := new(RewardRule)
	found, err := st.KVGet(ruleKey(addr), rule)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	rule.IsActive = !rule.IsActive
	if err := st.KVPut(ruleKey(addr), rule); err != nil {
		return err
	}
	st.AppendEvent(newRuleToggledEvent(addr, rule))
	return nil
}

// DeleteRewardRule removes the rule and its index entry, reclaiming storage.
func (r *Registry) DeleteRewardRule(st ledgerState, caller [20]byte, merchantAddr Address, ruleID uint64) error {
	merchant, err := loadMerchant(st, merchantAddr)
	if err != nil {
		return err
	}
	if caller != merchant.Authority {
		return ErrUnauthorized
	}
	addr := DeriveRewardRule(merchantAddr, ruleID)
	found, err := st.KVGet(ruleKey(addr), new(RewardRule))
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	if err := st.KVDelete(ruleKey(addr)); err != nil {
		return err
	}
	if err := st.KVRemove(merchantRulesKey(merchantAddr), addr[:]); err != nil {
		return err
	}
	st.AppendEvent(newRuleDeletedEvent(addr, merchantAddr, ruleID))
	return nil
}
