package loyalty

import (
	"sort"
	"time"
)

// Engine executes reward issuance and redemption as pure transformations
// over an already-loaded transactional state. It performs no I/O of its own;
// atomicity and conflict detection live at the state's commit boundary.
type Engine struct {
	nowFn func() uint64
}

// NewEngine creates an engine with the wall clock as its time source.
func NewEngine() *Engine {
	return &Engine{nowFn: func() uint64 { return uint64(time.Now().Unix()) }}
}

// SetNowFunc overrides the time source used by the engine. Primarily
// intended for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return e.nowFn()
}

// eligibleRules returns the merchant's rules that apply to the purchase at
// the given time, sorted ascending by RuleID. The ordering is the documented
// composition policy and must stay stable for auditability.
func eligibleRules(st ledgerState, merchantAddr Address, now, purchaseAmount uint64) ([]*RewardRule, error) {
	var refs [][]byte
	if err := st.KVGetList(merchantRulesKey(merchantAddr), &refs); err != nil {
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
		if !found {
			continue
		}
		if rule.EligibleAt(now, purchaseAmount) {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].RuleID < rules[j].RuleID })
	return rules, nil
}

// IssueReward computes and credits the token reward for a purchase. The
// caller must be the merchant's authority. The customer account is created
// lazily on first purchase. All aggregate updates stage into the same
// transaction and commit or abort as a unit.
//
// Reward composition: base = purchase * rewardRate / 100, then the tier
// multiplier and every eligible bonusMultiplier rule compose
// multiplicatively (ascending rule ID); the remaining eligible rule kinds
// layer additive bonuses on top of the multiplied base.
func (e *Engine) IssueReward(st ledgerState, caller [20]byte, merchantAddr Address, wallet [20]byte, purchaseAmount uint64) (uint64, error) {
	merchant, err := loadMerchant(st, merchantAddr)
	if err != nil {
		return 0, err
	}
	if caller != merchant.Authority {
		return 0, ErrUnauthorized
	}
	if !merchant.IsActive {
		return 0, ErrMerchantNotActive
	}
	program, err := loadProgram(st, merchant.Program)
	if err != nil {
		return 0, err
	}

	customerAddr := DeriveCustomer(wallet, merchant.Program)
	customer := new(Customer)
	customerExists, err := st.KVGet(customerKey(customerAddr), customer)
	if err != nil {
		return 0, err
	}
	if !customerExists {
		customer = &Customer{Wallet: wallet, Program: merchant.Program, Tier: TierBronze}
		program.TotalCustomers, err = checkedAdd(program.TotalCustomers, 1)
		if err != nil {
			return 0, err
		}
	}

	now := e.now()
	rules, err := eligibleRules(st, merchantAddr, now, purchaseAmount)
	if err != nil {
		return 0, err
	}

	base, err := checkedMul(purchaseAmount, merchant.RewardRate)
	if err != nil {
		return 0, err
	}
	base /= MultiplierDenominator

	previousTier := CalculateTier(customer.TotalEarned)
	multiplier := previousTier.Multiplier()
	for _, rule := range rules {
		if rule.Kind != RuleBonusMultiplier {
			continue
		}
		multiplier, err = checkedMul(multiplier, rule.Multiplier)
		if err != nil {
			return 0, err
		}
		multiplier /= MultiplierDenominator
	}
	reward, err := checkedMul(base, multiplier)
	if err != nil {
		return 0, err
	}
	reward /= MultiplierDenominator

	for _, rule := range rules {
		var bonus uint64
		switch rule.Kind {
		case RuleBonusMultiplier:
			continue
		case RuleBaseReward:
			// Flat-rate bonus on the purchase amount, independent of
			// the merchant's configured rate.
			bonus, err = checkedMul(purchaseAmount, rule.Multiplier)
		case RuleFirstPurchaseBonus:
			if customer.TransactionCount > 0 {
				continue
			}
			bonus, err = checkedMul(reward, rule.Multiplier)
		default:
			bonus, err = checkedMul(reward, rule.Multiplier)
		}
		if err != nil {
			return 0, err
		}
		bonus /= MultiplierDenominator
		reward, err = checkedAdd(reward, bonus)
		if err != nil {
			return 0, err
		}
	}

	customer.TotalEarned, err = checkedAdd(customer.TotalEarned, reward)
	if err != nil {
		return 0, err
	}
	customer.TransactionCount, err = checkedAdd(customer.TransactionCount, 1)
	if err != nil {
		return 0, err
	}
	newTier := CalculateTier(customer.TotalEarned)
	customer.Tier = newTier

	merchant.TotalIssued, err = checkedAdd(merchant.TotalIssued, reward)
	if err != nil {
		return 0, err
	}
	program.TotalTokensIssued, err = checkedAdd(program.TotalTokensIssued, reward)
	if err != nil {
		return 0, err
	}

	if err := st.KVPut(customerKey(customerAddr), customer); err != nil {
		return 0, err
	}
	if err := st.KVPut(merchantKey(merchantAddr), merchant); err != nil {
		return 0, err
	}
	if err := st.KVPut(programKey(merchant.Program), program); err != nil {
		return 0, err
	}

	if !customerExists {
		st.AppendEvent(newCustomerRegisteredEvent(customerAddr, customer))
	}
	st.AppendEvent(newRewardIssuedEvent(customerAddr, merchantAddr, purchaseAmount, reward, multiplier, newTier))
	if newTier != previousTier {
		st.AppendEvent(newTierChangedEvent(customerAddr, previousTier, newTier, customer.TotalEarned))
	}
	return reward, nil
}
