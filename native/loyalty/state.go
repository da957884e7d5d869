package loyalty

import "perkledger/core/types"

// ledgerState describes the minimal functionality the loyalty engines need
// from the surrounding transactional state implementation. All mutations
// staged through this interface commit or abort as a unit.
type ledgerState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
	AppendEvent(evt *types.Event)
}

func loadProgram(st ledgerState, addr Address) (*LoyaltyProgram, error) {
	out := new(LoyaltyProgram)
	found, err := st.KVGet(programKey(addr), out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return out, nil
}

func loadMerchant(st ledgerState, addr Address) (*Merchant, error) {
	out := new(Merchant)
	found, err := st.KVGet(merchantKey(addr), out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return out, nil
}

func loadCustomer(st ledgerState, addr Address) (*Customer, error) {
	out := new(Customer)
	found, err := st.KVGet(customerKey(addr), out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return out, nil
}

func loadOffer(st ledgerState, addr Address) (*RedemptionOffer, error) {
	out := new(RedemptionOffer)
	found, err := st.KVGet(offerKey(addr), out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return out, nil
}

func loadVoucher(st ledgerState, addr Address) (*RedemptionVoucher, error) {
	out := new(RedemptionVoucher)
	found, err := st.KVGet(voucherKey(addr), out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return out, nil
}

// checkedAdd returns a+b or ErrOverflow when the sum would wrap. Cumulative
// counters fail closed rather than wrapping.
func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

// checkedMul returns a*b or ErrOverflow when the product would wrap.
func checkedMul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	product := a * b
	if product/a != b {
		return 0, ErrOverflow
	}
	return product, nil
}
