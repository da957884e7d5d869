package core

import (
	"perkledger/core/state"
	"perkledger/crypto"
	"perkledger/native/loyalty"
)

// GetProgram returns the program at the address.
func (l *Ledger) GetProgram(addr loyalty.Address) (*loyalty.LoyaltyProgram, error) {
	var out *loyalty.LoyaltyProgram
	err := l.store.View(func(txn *state.Txn) error {
		var err error
		out, err = loyalty.GetProgram(txn, addr)
		return err
	})
	return out, err
}

// GetProgramByAuthority resolves the program owned by the authority.
func (l *Ledger) GetProgramByAuthority(authority crypto.Address) (loyalty.Address, *loyalty.LoyaltyProgram, error) {
	addr := loyalty.DeriveProgram(authority.Array())
	program, err := l.GetProgram(addr)
	return addr, program, err
}

// GetMerchant returns the merchant at the address.
func (l *Ledger) GetMerchant(addr loyalty.Address) (*loyalty.Merchant, error) {
	var out *loyalty.Merchant
	err := l.store.View(func(txn *state.Txn) error {
		var err error
		out, err = loyalty.GetMerchant(txn, addr)
		return err
	})
	return out, err
}

// GetCustomer returns the customer at the address.
func (l *Ledger) GetCustomer(addr loyalty.Address) (*loyalty.Customer, error) {
	var out *loyalty.Customer
	err := l.store.View(func(txn *state.Txn) error {
		var err error
		out, err = loyalty.GetCustomer(txn, addr)
		return err
	})
	return out, err
}

// CustomerTierProgress reports a customer's progress through their current
// tier.
func (l *Ledger) CustomerTierProgress(addr loyalty.Address) (percent, tokensToNext uint64, err error) {
	customer, err := l.GetCustomer(addr)
	if err != nil {
		return 0, 0, err
	}
	percent, tokensToNext = loyalty.TierProgress(customer.TotalEarned)
	return percent, tokensToNext, nil
}

// ListRewardRules returns a merchant's rules in composition order.
func (l *Ledger) ListRewardRules(merchant loyalty.Address) ([]*loyalty.RewardRule, error) {
	var out []*loyalty.RewardRule
	err := l.store.View(func(txn *state.Txn) error {
		var err error
		out, err = loyalty.ListRewardRules(txn, merchant)
		return err
	})
	return out, err
}

// GetRedemptionOffer returns the offer at the address.
func (l *Ledger) GetRedemptionOffer(addr loyalty.Address) (*loyalty.RedemptionOffer, error) {
	var out *loyalty.RedemptionOffer
	err := l.store.View(func(txn *state.Txn) error {
		var err error
		out, err = loyalty.GetRedemptionOffer(txn, addr)
		return err
	})
	return out, err
}

// ListRedemptionOffers returns a merchant's offers.
func (l *Ledger) ListRedemptionOffers(merchant loyalty.Address) ([]*loyalty.RedemptionOffer, error) {
	var out []*loyalty.RedemptionOffer
	err := l.store.View(func(txn *state.Txn) error {
		var err error
		out, err = loyalty.ListRedemptionOffers(txn, merchant)
		return err
	})
	return out, err
}

// GetVoucher returns the voucher at the address.
func (l *Ledger) GetVoucher(addr loyalty.Address) (*loyalty.RedemptionVoucher, error) {
	var out *loyalty.RedemptionVoucher
	err := l.store.View(func(txn *state.Txn) error {
		var err error
		out, err = loyalty.GetVoucher(txn, addr)
		return err
	})
	return out, err
}

// GetRedemptionRecord returns the index record for a voucher.
func (l *Ledger) GetRedemptionRecord(voucher loyalty.Address) (*loyalty.RedemptionRecord, error) {
	var out *loyalty.RedemptionRecord
	err := l.store.View(func(txn *state.Txn) error {
		var err error
		out, err = loyalty.GetRedemptionRecord(txn, voucher)
		return err
	})
	return out, err
}

// ListVouchersByCustomer returns every voucher minted for a customer.
func (l *Ledger) ListVouchersByCustomer(customer loyalty.Address) ([]*loyalty.RedemptionVoucher, error) {
	var out []*loyalty.RedemptionVoucher
	err := l.store.View(func(txn *state.Txn) error {
		var err error
		out, err = loyalty.ListVouchersByCustomer(txn, customer)
		return err
	})
	return out, err
}
