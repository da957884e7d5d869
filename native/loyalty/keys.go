package loyalty

var (
	programPrefix          = []byte("loyalty/program/")
	merchantPrefix         = []byte("loyalty/merchant/")
	customerPrefix         = []byte("loyalty/customer/")
	rulePrefix             = []byte("loyalty/rule/")
	offerPrefix            = []byte("loyalty/offer/")
	voucherPrefix          = []byte("loyalty/voucher/")
	recordPrefix           = []byte("loyalty/record/")
	merchantRulesPrefix    = []byte("loyalty/merchant-rules/")
	merchantOffersPrefix   = []byte("loyalty/merchant-offers/")
	customerVouchersPrefix = []byte("loyalty/customer-vouchers/")
)

func prefixedKey(prefix []byte, suffix []byte) []byte {
	key := make([]byte, len(prefix)+len(suffix))
	copy(key, prefix)
	copy(key[len(prefix):], suffix)
	return key
}

func programKey(addr Address) []byte  { return prefixedKey(programPrefix, addr[:]) }
func merchantKey(addr Address) []byte { return prefixedKey(merchantPrefix, addr[:]) }
func customerKey(addr Address) []byte { return prefixedKey(customerPrefix, addr[:]) }
func ruleKey(addr Address) []byte     { return prefixedKey(rulePrefix, addr[:]) }
func offerKey(addr Address) []byte    { return prefixedKey(offerPrefix, addr[:]) }
func voucherKey(addr Address) []byte  { return prefixedKey(voucherPrefix, addr[:]) }
func recordKey(addr Address) []byte   { return prefixedKey(recordPrefix, addr[:]) }

func merchantRulesKey(merchant Address) []byte {
	return prefixedKey(merchantRulesPrefix, merchant[:])
}

func merchantOffersKey(merchant Address) []byte {
	return prefixedKey(merchantOffersPrefix, merchant[:])
}

func customerVouchersKey(customer Address) []byte {
	return prefixedKey(customerVouchersPrefix, customer[:])
}
