package loyalty

import (
	"fmt"
	"time"
)

// Registry manages persistence and lifecycle of programs, merchants and
// customers. Reward issuance and redemption live on Engine; the registry
// covers everything created and mutated by explicit administrative calls.
type Registry struct {
	nowFn func() uint64
}

// NewRegistry creates a registry with the wall clock as its time source.
func NewRegistry() *Registry {
	return &Registry{nowFn: func() uint64 { return uint64(time.Now().Unix()) }}
}

// SetNowFunc overrides the time source used by the registry. Primarily
// intended for tests to provide deterministic timestamps.
func (r *Registry) SetNowFunc(now func() uint64) {
	if now == nil {
		r.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	r.nowFn = now
}

func (r *Registry) now() uint64 {
	if r == nil || r.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return r.nowFn()
}

// CreateProgram initialises the loyalty program owned by the authority.
// There is exactly one program per authority; its address and mint are
// derived from the authority key.
func (r *Registry) CreateProgram(st ledgerState, authority [20]byte, name string, interestRateBp uint32) (Address, error) {
	sanitized, err := sanitizeName(name)
	if err != nil {
		return Address{}, err
	}
	addr := DeriveProgram(authority)
	exists, err := st.KVGet(programKey(addr), new(LoyaltyProgram))
	if err != nil {
		return Address{}, err
	}
	if exists {
		return Address{}, ErrProgramExists
	}
	program := &LoyaltyProgram{
		Authority:      authority,
		Name:           sanitized,
		InterestRateBp: interestRateBp,
		Mint:           DeriveMint(addr),
	}
	if err := st.KVPut(programKey(addr), program); err != nil {
		return Address{}, err
	}
	st.AppendEvent(newProgramCreatedEvent(addr, program))
	return addr, nil
}

// RegisterMerchant creates a merchant owned by the authority within the
// program. The merchant name is immutable after registration.
func (r *Registry) RegisterMerchant(st ledgerState, authority [20]byte, programAddr Address, name, category, avatar, description string, rewardRate uint64) (Address, error) {
	sanitized, err := sanitizeName(name)
	if err != nil {
		return Address{}, err
	}
	desc, err := sanitizeDescription(description)
	if err != nil {
		return Address{}, err
	}
	if rewardRate == 0 {
		return Address{}, fmt.Errorf("%w: reward rate must be positive", ErrInvalidRate)
	}
	program, err := loadProgram(st, programAddr)
	if err != nil {
		return Address{}, err
	}
	addr := DeriveMerchant(authority, programAddr)
	exists, err := st.KVGet(merchantKey(addr), new(Merchant))
	if err != nil {
		return Address{}, err
	}
	if exists {
		return Address{}, ErrMerchantExists
	}
	merchant := &Merchant{
		Authority:   authority,
		Program:     programAddr,
		Name:        sanitized,
		Category:    category,
		Avatar:      avatar,
		Description: desc,
		RewardRate:  rewardRate,
		IsActive:    true,
		CreatedAt:   r.now(),
	}
	program.TotalMerchants, err = checkedAdd(program.TotalMerchants, 1)
	if err != nil {
		return Address{}, err
	}
	if err := st.KVPut(merchantKey(addr), merchant); err != nil {
		return Address{}, err
	}
	if err := st.KVPut(programKey(programAddr), program); err != nil {
		return Address{}, err
	}
	st.AppendEvent(newMerchantRegisteredEvent(addr, merchant))
	return addr, nil
}

// UpdateMerchant mutates the merchant's presentation fields and reward rate.
// Only the merchant authority may update; the name never changes.
func (r *Registry) UpdateMerchant(st ledgerState, caller [20]byte, merchantAddr Address, category, avatar, description string, rewardRate uint64) error {
	desc, err := sanitizeDescription(description)
	if err != nil {
		return err
	}
	if rewardRate == 0 {
		return fmt.Errorf("%w: reward rate must be positive", ErrInvalidRate)
	}
	merchant, err := loadMerchant(st, merchantAddr)
	if err != nil {
		return err
	}
	if caller != merchant.Authority {
		return ErrUnauthorized
	}
	merchant.Category = category
	merchant.Avatar = avatar
	merchant.Description = desc
	merchant.RewardRate = rewardRate
	if err := st.KVPut(merchantKey(merchantAddr), merchant); err != nil {
		return err
	}
	st.AppendEvent(newMerchantUpdatedEvent(merchantAddr, merchant))
	return nil
}

// SetMerchantStatus toggles whether the merchant can issue rewards.
func (r *Registry) SetMerchantStatus(st ledgerState, caller [20]byte, merchantAddr Address, active bool) error {
	merchant, err := loadMerchant(st, merchantAddr)
	if err != nil {
		return err
	}
	if caller != merchant.Authority {
		return ErrUnauthorized
	}
	merchant.IsActive = active
	if err := st.KVPut(merchantKey(merchantAddr), merchant); err != nil {
		return err
	}
	st.AppendEvent(newMerchantStatusEvent(merchantAddr, active))
	return nil
}

// DestroyMerchant removes the merchant record and reclaims its storage.
// The call fails while the merchant still owns any active reward rule or
// redemption offer; inactive leftovers are deleted alongside the merchant.
func (r *Registry) DestroyMerchant(st ledgerState, caller [20]byte, merchantAddr Address) error {
	merchant, err := loadMerchant(st, merchantAddr)
	if err != nil {
		return err
	}
	if caller != merchant.Authority {
		return ErrUnauthorized
	}

	var ruleRefs [][]byte
	if err := st.KVGetList(merchantRulesKey(merchantAddr), &ruleRefs); err != nil {
		return err
	}
	for _, ref := range ruleRefs {
		var addr Address
		copy(addr[:], ref)
		rule := new(RewardRule)
		found, err := st.KVGet(ruleKey(addr), rule)
		if err != nil {
			return err
		}
		if found && rule.IsActive {
			return ErrMerchantNotEmpty
		}
	}
	var offerRefs [][]byte
	if err := st.KVGetList(merchantOffersKey(merchantAddr), &offerRefs); err != nil {
		return err
	}
	for _, ref := range offerRefs {
		var addr Address
		copy(addr[:], ref)
		offer := new(RedemptionOffer)
		found, err := st.KVGet(offerKey(addr), offer)
		if err != nil {
			return err
		}
		if found && offer.IsActive {
			return ErrMerchantNotEmpty
		}
	}

	for _, ref := range ruleRefs {
		var addr Address
		copy(addr[:], ref)
		if err := st.KVDelete(ruleKey(addr)); err != nil {
			return err
		}
	}
	for _, ref := range offerRefs {
		var addr Address
		copy(addr[:], ref)
		if err := st.KVDelete(offerKey(addr)); err != nil {
			return err
		}
	}
	if err := st.KVDelete(merchantRulesKey(merchantAddr)); err != nil {
		return err
	}
	if err := st.KVDelete(merchantOffersKey(merchantAddr)); err != nil {
		return err
	}
	if err := st.KVDelete(merchantKey(merchantAddr)); err != nil {
		return err
	}

	program, err := loadProgram(st, merchant.Program)
	if err != nil {
		return err
	}
	if program.TotalMerchants > 0 {
		program.TotalMerchants--
		if err := st.KVPut(programKey(merchant.Program), program); err != nil {
			return err
		}
	}
	st.AppendEvent(newMerchantDestroyedEvent(merchantAddr, merchant))
	return nil
}

// RegisterCustomer creates the customer account for a wallet within a
// program. Customers are also created lazily on first purchase; explicit
// registration of an existing account fails.
func (r *Registry) RegisterCustomer(st ledgerState, wallet [20]byte, programAddr Address) (Address, error) {
	program, err := loadProgram(st, programAddr)
	if err != nil {
		return Address{}, err
	}
	addr := DeriveCustomer(wallet, programAddr)
	exists, err := st.KVGet(customerKey(addr), new(Customer))
	if err != nil {
		return Address{}, err
	}
	if exists {
		return Address{}, ErrCustomerExists
	}
	customer := &Customer{
		Wallet:  wallet,
		Program: programAddr,
		Tier:    TierBronze,
	}
	program.TotalCustomers, err = checkedAdd(program.TotalCustomers, 1)
	if err != nil {
		return Address{}, err
	}
	if err := st.KVPut(customerKey(addr), customer); err != nil {
		return Address{}, err
	}
	if err := st.KVPut(programKey(programAddr), program); err != nil {
		return Address{}, err
	}
	st.AppendEvent(newCustomerRegisteredEvent(addr, customer))
	return addr, nil
}
