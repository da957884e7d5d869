package loyalty

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func (f *fixture) offer(t *testing.T, cost, quantityLimit, expiresAt uint64) Address {
	t.Helper()
	addr, err := f.registry.CreateRedemptionOffer(f.st, f.authority, f.merchant, "Free Espresso", "one shot", "", cost, OfferFreeProduct, quantityLimit, expiresAt)
	require.NoError(t, err)
	return addr
}

func TestRedeem(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, 200, 0, 2)
	offerAddr := f.offer(t, 50, 0, 0)

	voucherAddr, err := f.engine.Redeem(f.st, f.wallet, f.merchant, offerAddr, 1)
	require.NoError(t, err)

	voucher, err := loadVoucher(f.st, voucherAddr)
	require.NoError(t, err)
	require.Equal(t, VoucherActive, voucher.Status)
	require.Equal(t, uint64(50), voucher.Cost)
	require.Equal(t, RedemptionCode(voucherAddr), voucher.Code)
	require.Equal(t, fixedNow, voucher.CreatedAt)

	customer, _ := f.customer(t)
	require.Equal(t, uint64(50), customer.TotalRedeemed)
	require.Equal(t, uint64(150), customer.Balance())
	// Redemption never reduces cumulative earnings, so the tier is stable.
	require.Equal(t, uint64(200), customer.TotalEarned)

	merchant, err := loadMerchant(f.st, f.merchant)
	require.NoError(t, err)
	require.Equal(t, uint64(50), merchant.TotalRedeemed)

	program, err := loadProgram(f.st, f.program)
	require.NoError(t, err)
	require.Equal(t, uint64(50), program.TotalTokensRedeemed)

	record := new(RedemptionRecord)
	found, err := f.st.KVGet(recordKey(voucherAddr), record)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, offerAddr, record.Offer)
	require.True(t, f.st.hasEvent(EventRedemptionCompleted))
}

func TestRedeemInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, 40, 0, 1)
	offerAddr := f.offer(t, 50, 0, 0)

	_, err := f.engine.Redeem(f.st, f.wallet, f.merchant, offerAddr, 1)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	customer, _ := f.customer(t)
	require.Equal(t, uint64(0), customer.TotalRedeemed)
	program, err := loadProgram(f.st, f.program)
	require.NoError(t, err)
	require.Equal(t, uint64(0), program.TotalTokensRedeemed)
}

func TestRedeemDuplicateSeed(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, 500, 0, 2)
	offerAddr := f.offer(t, 50, 0, 0)

	_, err := f.engine.Redeem(f.st, f.wallet, f.merchant, offerAddr, 1)
	require.NoError(t, err)
	_, err = f.engine.Redeem(f.st, f.wallet, f.merchant, offerAddr, 1)
	require.ErrorIs(t, err, ErrDuplicateVoucher)

	// A fresh seed mints a distinct voucher.
	_, err = f.engine.Redeem(f.st, f.wallet, f.merchant, offerAddr, 2)
	require.NoError(t, err)
	customer, _ := f.customer(t)
	require.Equal(t, uint64(100), customer.TotalRedeemed)
}

func TestRedeemQuantityLimit(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, 500, 0, 2)
	offerAddr := f.offer(t, 50, 1, 0)

	_, err := f.engine.Redeem(f.st, f.wallet, f.merchant, offerAddr, 1)
	require.NoError(t, err)

	offer, err := loadOffer(f.st, offerAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(0), offer.QuantityRemaining)

	_, err = f.engine.Redeem(f.st, f.wallet, f.merchant, offerAddr, 2)
	require.ErrorIs(t, err, ErrOfferNotAvailable)
}

func TestRedeemExpiredOffer(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, 500, 0, 2)
	offerAddr := f.offer(t, 50, 0, fixedNow-1)

	_, err := f.engine.Redeem(f.st, f.wallet, f.merchant, offerAddr, 1)
	require.ErrorIs(t, err, ErrOfferNotAvailable)
}

func TestRedeemInactiveOffer(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, 500, 0, 2)
	offerAddr := f.offer(t, 50, 0, 0)
	require.NoError(t, f.registry.ToggleRedemptionOffer(f.st, f.authority, offerAddr))

	_, err := f.engine.Redeem(f.st, f.wallet, f.merchant, offerAddr, 1)
	require.ErrorIs(t, err, ErrOfferNotAvailable)
}

func TestRedeemWrongMerchant(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, 500, 0, 2)
	offerAddr := f.offer(t, 50, 0, 0)

	var otherAuthority [20]byte
	otherAuthority[0] = 0xB2
	otherMerchant, err := f.registry.RegisterMerchant(f.st, otherAuthority, f.program, "Book Nook", "retail", "", "", 5)
	require.NoError(t, err)

	_, err = f.engine.Redeem(f.st, f.wallet, otherMerchant, offerAddr, 1)
	require.ErrorIs(t, err, ErrOfferNotAvailable)
}

func TestRedeemUnknownCustomer(t *testing.T) {
	f := newFixture(t)
	offerAddr := f.offer(t, 50, 0, 0)

	_, err := f.engine.Redeem(f.st, f.wallet, f.merchant, offerAddr, 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func (f *fixture) redeemVoucher(t *testing.T) Address {
	t.Helper()
	f.seedCustomer(t, 500, 0, 2)
	offerAddr := f.offer(t, 50, 0, 0)
	voucherAddr, err := f.engine.Redeem(f.st, f.wallet, f.merchant, offerAddr, 1)
	require.NoError(t, err)
	return voucherAddr
}

func TestSetVoucherStatusUse(t *testing.T) {
	f := newFixture(t)
	voucherAddr := f.redeemVoucher(t)

	require.NoError(t, f.engine.SetVoucherStatus(f.st, f.authority, voucherAddr, VoucherUsed))
	voucher, err := loadVoucher(f.st, voucherAddr)
	require.NoError(t, err)
	require.Equal(t, VoucherUsed, voucher.Status)
	require.Equal(t, fixedNow, voucher.UsedAt)
	require.True(t, f.st.hasEvent(EventVoucherStatus))

	// Used is terminal.
	err = f.engine.SetVoucherStatus(f.st, f.authority, voucherAddr, VoucherActive)
	require.ErrorIs(t, err, ErrInvalidTransition)
	err = f.engine.SetVoucherStatus(f.st, f.authority, voucherAddr, VoucherRevoked)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetVoucherStatusRevokeAndReactivate(t *testing.T) {
	f := newFixture(t)
	voucherAddr := f.redeemVoucher(t)

	require.NoError(t, f.engine.SetVoucherStatus(f.st, f.authority, voucherAddr, VoucherRevoked))
	require.NoError(t, f.engine.SetVoucherStatus(f.st, f.authority, voucherAddr, VoucherActive))
	voucher, err := loadVoucher(f.st, voucherAddr)
	require.NoError(t, err)
	require.Equal(t, VoucherActive, voucher.Status)
}

func TestSetVoucherStatusUnauthorized(t *testing.T) {
	f := newFixture(t)
	voucherAddr := f.redeemVoucher(t)

	var stranger [20]byte
	stranger[0] = 0xFF
	err := f.engine.SetVoucherStatus(f.st, stranger, voucherAddr, VoucherUsed)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestSetVoucherStatusExpired(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, 500, 0, 2)
	offerAddr := f.offer(t, 50, 0, fixedNow+100)
	voucherAddr, err := f.engine.Redeem(f.st, f.wallet, f.merchant, offerAddr, 1)
	require.NoError(t, err)

	f.engine.SetNowFunc(func() uint64 { return fixedNow + 200 })
	err = f.engine.SetVoucherStatus(f.st, f.authority, voucherAddr, VoucherUsed)
	require.ErrorIs(t, err, ErrVoucherExpired)

	// Revocation of an expired voucher is still allowed.
	require.NoError(t, f.engine.SetVoucherStatus(f.st, f.authority, voucherAddr, VoucherRevoked))
}
