package loyalty

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateTierBoundaries(t *testing.T) {
	cases := []struct {
		earned uint64
		want   Tier
	}{
		{0, TierBronze},
		{999, TierBronze},
		{1_000, TierSilver},
		{9_999, TierSilver},
		{10_000, TierGold},
		{49_999, TierGold},
		{50_000, TierPlatinum},
		{1 << 60, TierPlatinum},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, CalculateTier(tc.earned), "earned=%d", tc.earned)
	}
}

func TestTierMultiplier(t *testing.T) {
	require.Equal(t, uint64(100), TierBronze.Multiplier())
	require.Equal(t, uint64(125), TierSilver.Multiplier())
	require.Equal(t, uint64(150), TierGold.Multiplier())
	require.Equal(t, uint64(200), TierPlatinum.Multiplier())
}

func TestTierProgress(t *testing.T) {
	percent, toNext := TierProgress(0)
	require.Equal(t, uint64(0), percent)
	require.Equal(t, uint64(1_000), toNext)

	percent, toNext = TierProgress(500)
	require.Equal(t, uint64(50), percent)
	require.Equal(t, uint64(500), toNext)

	percent, toNext = TierProgress(1_000)
	require.Equal(t, uint64(0), percent)
	require.Equal(t, uint64(9_000), toNext)

	percent, toNext = TierProgress(30_000)
	require.Equal(t, uint64(50), percent)
	require.Equal(t, uint64(20_000), toNext)

	// Platinum is terminal.
	percent, toNext = TierProgress(75_000)
	require.Equal(t, uint64(0), percent)
	require.Equal(t, uint64(0), toNext)
}

func TestParseTier(t *testing.T) {
	for _, tier := range []Tier{TierBronze, TierSilver, TierGold, TierPlatinum} {
		parsed, ok := ParseTier(tier.String())
		require.True(t, ok)
		require.Equal(t, tier, parsed)
	}
	_, ok := ParseTier("diamond")
	require.False(t, ok)
}
