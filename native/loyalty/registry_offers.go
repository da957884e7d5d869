package loyalty

import "fmt"

// CreateRedemptionOffer creates a merchant redemption offer. The offer name
// takes part in address derivation and is therefore unique per merchant and
// immutable. A quantityLimit of zero means unlimited.
func (r *Registry) CreateRedemptionOffer(st ledgerState, caller [20]byte, merchantAddr Address, name, description, icon string, cost uint64, kind OfferKind, quantityLimit, expiresAt uint64) (Address, error) {
	sanitized, err := sanitizeName(name)
	if err != nil {
		return Address{}, err
	}
	desc, err := sanitizeDescription(description)
	if err != nil {
		return Address{}, err
	}
	if cost == 0 {
		return Address{}, fmt.Errorf("%w: cost must be positive", ErrInvalidOffer)
	}
	if !kind.Valid() {
		return Address{}, fmt.Errorf("%w: unknown kind %d", ErrInvalidOffer, kind)
	}
	merchant, err := loadMerchant(st, merchantAddr)
	if err != nil {
		return Address{}, err
	}
	if caller != merchant.Authority {
		return Address{}, ErrUnauthorized
	}
	addr := DeriveOffer(merchantAddr, sanitized)
	exists, err := st.KVGet(offerKey(addr), new(RedemptionOffer))
	if err != nil {
		return Address{}, err
	}
	if exists {
		return Address{}, ErrDuplicateOffer
	}
	offer := &RedemptionOffer{
		Merchant:          merchantAddr,
		Name:              sanitized,
		Description:       desc,
		Icon:              icon,
		Cost:              cost,
		Kind:              kind,
		HasLimit:          quantityLimit > 0,
		QuantityRemaining: quantityLimit,
		ExpiresAt:         expiresAt,
		IsActive:          true,
	}
	if err := st.KVPut(offerKey(addr), offer); err != nil {
		return Address{}, err
	}
	if err := st.KVAppend(merchantOffersKey(merchantAddr), addr[:]); err != nil {
		return Address{}, err
	}
	st.AppendEvent(newOfferCreatedEvent(addr, offer))
	return addr, nil
}

// UpdateRedemptionOffer mutates the offer's description, icon, cost,
// quantity and expiry. The name and merchant are immutable.
func (r *Registry) UpdateRedemptionOffer(st ledgerState, caller [20]byte, offerAddr Address, description, icon string, cost, quantityLimit, expiresAt uint64) error {
	desc, err := sanitizeDescription(description)
	if err != nil {
		return err
	}
	if cost == 0 {
		return fmt.Errorf("%w: cost must be positive", ErrInvalidOffer)
	}
	offer, err := loadOffer(st, offerAddr)
	if err != nil {
		return err
	}
	merchant, err := loadMerchant(st, offer.Merchant)
	if err != nil {
		return err
	}
	if caller != merchant.Authority {
		return ErrUnauthorized
	}
	offer.Description = desc
	offer.Icon = icon
	offer.Cost = cost
	offer.HasLimit = quantityLimit > 0
	offer.QuantityRemaining = quantityLimit
	offer.ExpiresAt = expiresAt
	if err := st.KVPut(offerKey(offerAddr), offer); err != nil {
		return err
	}
	st.AppendEvent(newOfferUpdatedEvent(offerAddr, offer))
	return nil
}

// ToggleRedemptionOffer flips the offer's active flag.
func (r *Registry) ToggleRedemptionOffer(st ledgerState, caller [20]byte, offerAddr Address) error {
	offer, err := loadOffer(st, offerAddr)
	if err != nil {
		return err
	}
	merchant, err := loadMerchant(st, offer.Merchant)
	if err != nil {
		return err
	}
	if caller != merchant.Authority {
		return ErrUnauthorized
	}
	offer.IsActive = !offer.IsActive
	if err := st.KVPut(offerKey(offerAddr), offer); err != nil {
		return err
	}
	st.AppendEvent(newOfferToggledEvent(offerAddr, offer))
	return nil
}

// DeleteRedemptionOffer removes the offer and its index entry, reclaiming
// storage. Vouchers already minted against the offer are unaffected.
func (r *Registry) DeleteRedemptionOffer(st ledgerState, caller [20]byte, offerAddr Address) error {
	offer, err := loadOffer(st, offerAddr)
	if err != nil {
		return err
	}
	merchant, err := loadMerchant(st, offer.Merchant)
	if err != nil {
		return err
	}
	if caller != merchant.Authority {
		return ErrUnauthorized
	}
	if err := st.KVDelete(offerKey(offerAddr)); err != nil {
		return err
	}
	if err := st.KVRemove(merchantOffersKey(offer.Merchant), offerAddr[:]); err != nil {
		return err
	}
	st.AppendEvent(newOfferDeletedEvent(offerAddr, offer.Merchant, offer.Name))
	return nil
}
