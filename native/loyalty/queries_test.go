package loyalty

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListRewardRulesOrdering(t *testing.T) {
	f := newFixture(t)
	for _, id := range []uint64{9, 1, 4} {
		_, err := f.registry.SetRewardRule(f.st, f.authority, f.merchant, id, RuleBonusMultiplier, 110, 0, 0, 0)
		require.NoError(t, err)
	}

	rules, err := ListRewardRules(f.st, f.merchant)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	require.Equal(t, uint64(1), rules[0].RuleID)
	require.Equal(t, uint64(4), rules[1].RuleID)
	require.Equal(t, uint64(9), rules[2].RuleID)
}

func TestListRedemptionOffersOrdering(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"Latte", "Americano", "Mocha"} {
		_, err := f.registry.CreateRedemptionOffer(f.st, f.authority, f.merchant, name, "", "", 50, OfferFreeProduct, 0, 0)
		require.NoError(t, err)
	}

	offers, err := ListRedemptionOffers(f.st, f.merchant)
	require.NoError(t, err)
	require.Len(t, offers, 3)
	require.Equal(t, "Americano", offers[0].Name)
	require.Equal(t, "Latte", offers[1].Name)
	require.Equal(t, "Mocha", offers[2].Name)
}

func TestListVouchersByCustomer(t *testing.T) {
	f := newFixture(t)
	customerAddr := f.seedCustomer(t, 500, 0, 2)
	offerAddr := f.offer(t, 50, 0, 0)

	first, err := f.engine.Redeem(f.st, f.wallet, f.merchant, offerAddr, 1)
	require.NoError(t, err)
	second, err := f.engine.Redeem(f.st, f.wallet, f.merchant, offerAddr, 2)
	require.NoError(t, err)

	vouchers, err := ListVouchersByCustomer(f.st, customerAddr)
	require.NoError(t, err)
	require.Len(t, vouchers, 2)
	require.Equal(t, RedemptionCode(first), vouchers[0].Code)
	require.Equal(t, RedemptionCode(second), vouchers[1].Code)
}

func TestGetRewardRuleNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := GetRewardRule(f.st, f.merchant, 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetRedemptionRecord(t *testing.T) {
	f := newFixture(t)
	voucherAddr := f.redeemVoucher(t)

	record, err := GetRedemptionRecord(f.st, voucherAddr)
	require.NoError(t, err)
	require.Equal(t, voucherAddr, record.Voucher)
	require.Equal(t, f.merchant, record.Merchant)
}
