package loyalty

import "fmt"

// Redeem burns tokens against an offer and mints a single-use voucher at the
// address derived from (customer, merchant, offer, seed). The burn and the
// voucher creation stage into one transaction: neither is ever visible
// without the other.
func (e *Engine) Redeem(st ledgerState, wallet [20]byte, merchantAddr, offerAddr Address, seed uint64) (Address, error) {
	offer, err := loadOffer(st, offerAddr)
	if err != nil {
		return Address{}, err
	}
	if offer.Merchant != merchantAddr {
		return Address{}, fmt.Errorf("%w: offer not owned by merchant", ErrOfferNotAvailable)
	}
	merchant, err := loadMerchant(st, merchantAddr)
	if err != nil {
		return Address{}, err
	}
	program, err := loadProgram(st, merchant.Program)
	if err != nil {
		return Address{}, err
	}

	now := e.now()
	if !offer.AvailableAt(now) {
		return Address{}, ErrOfferNotAvailable
	}

	customerAddr := DeriveCustomer(wallet, merchant.Program)
	customer, err := loadCustomer(st, customerAddr)
	if err != nil {
		return Address{}, err
	}
	if customer.Balance() < offer.Cost {
		return Address{}, ErrInsufficientBalance
	}

	voucherAddr := DeriveVoucher(customerAddr, merchantAddr, offerAddr, seed)
	exists, err := st.KVGet(voucherKey(voucherAddr), new(RedemptionVoucher))
	if err != nil {
		return Address{}, err
	}
	if exists {
		return Address{}, ErrDuplicateVoucher
	}

	customer.TotalRedeemed, err = checkedAdd(customer.TotalRedeemed, offer.Cost)
	if err != nil {
		return Address{}, err
	}
	merchant.TotalRedeemed, err = checkedAdd(merchant.TotalRedeemed, offer.Cost)
	if err != nil {
		return Address{}, err
	}
	program.TotalTokensRedeemed, err = checkedAdd(program.TotalTokensRedeemed, offer.Cost)
	if err != nil {
		return Address{}, err
	}
	if offer.HasLimit {
		offer.QuantityRemaining--
	}

	voucher := &RedemptionVoucher{
		Customer:  customerAddr,
		Merchant:  merchantAddr,
		Offer:     offerAddr,
		Seed:      seed,
		Code:      RedemptionCode(voucherAddr),
		Cost:      offer.Cost,
		CreatedAt: now,
		ExpiresAt: offer.ExpiresAt,
		Status:    VoucherActive,
	}
	record := &RedemptionRecord{
		Voucher:   voucherAddr,
		Offer:     offerAddr,
		Merchant:  merchantAddr,
		Customer:  customerAddr,
		CreatedAt: now,
	}

	if err := st.KVPut(customerKey(customerAddr), customer); err != nil {
		return Address{}, err
	}
	if err := st.KVPut(merchantKey(merchantAddr), merchant); err != nil {
		return Address{}, err
	}
	if err := st.KVPut(programKey(merchant.Program), program); err != nil {
		return Address{}, err
	}
	if err := st.KVPut(offerKey(offerAddr), offer); err != nil {
		return Address{}, err
	}
	if err := st.KVPut(voucherKey(voucherAddr), voucher); err != nil {
		return Address{}, err
	}
	if err := st.KVPut(recordKey(voucherAddr), record); err != nil {
		return Address{}, err
	}
	if err := st.KVAppend(customerVouchersKey(customerAddr), voucherAddr[:]); err != nil {
		return Address{}, err
	}

	st.AppendEvent(newRedemptionEvent(voucherAddr, voucher))
	return voucherAddr, nil
}

// SetVoucherStatus transitions a voucher between lifecycle states. Only the
// owning merchant's authority may call. Allowed edges: Active to Used,
// Active to Revoked, Revoked to Active; Used is terminal.
func (e *Engine) SetVoucherStatus(st ledgerState, caller [20]byte, voucherAddr Address, newStatus VoucherStatus) error {
	if !newStatus.Valid() {
		return ErrInvalidTransition
	}
	voucher, err := loadVoucher(st, voucherAddr)
	if err != nil {
		return err
	}
	merchant, err := loadMerchant(st, voucher.Merchant)
	if err != nil {
		return err
	}
	if caller != merchant.Authority {
		return ErrUnauthorized
	}
	if !voucher.Status.CanTransition(newStatus) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, voucher.Status, newStatus)
	}
	now := e.now()
	if newStatus == VoucherUsed && voucher.ExpiresAt != 0 && now > voucher.ExpiresAt {
		return ErrVoucherExpired
	}
	previous := voucher.Status
	voucher.Status = newStatus
	if newStatus == VoucherUsed {
		voucher.UsedAt = now
	}
	if err := st.KVPut(voucherKey(voucherAddr), voucher); err != nil {
		return err
	}
	st.AppendEvent(newVoucherStatusEvent(voucherAddr, previous, newStatus))
	return nil
}
