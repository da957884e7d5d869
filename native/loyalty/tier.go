package loyalty

// Tier represents a customer loyalty tier derived from cumulative earnings.
type Tier uint8

const (
	TierBronze Tier = iota
	TierSilver
	TierGold
	TierPlatinum
)

// MultiplierDenominator is the scaling factor for tier and rule multipliers:
// a multiplier of 100 means 1.00x.
const MultiplierDenominator = 100

const (
	silverThreshold   = 1_000
	goldThreshold     = 10_000
	platinumThreshold = 50_000
)

// Valid reports whether the tier value is within the supported range.
func (t Tier) Valid() bool {
	switch t {
	case TierBronze, TierSilver, TierGold, TierPlatinum:
		return true
	default:
		return false
	}
}

// String returns the lowercase tier name.
func (t Tier) String() string {
	switch t {
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	case TierPlatinum:
		return "platinum"
	default:
		return "unknown"
	}
}

// Multiplier returns the tier reward multiplier scaled by
// MultiplierDenominator (100 = 1.00x).
func (t Tier) Multiplier() uint64 {
	switch t {
	case TierSilver:
		return 125
	case TierGold:
		return 150
	case TierPlatinum:
		return 200
	default:
		return 100
	}
}

// minEarned returns the inclusive lower bound of the tier.
func (t Tier) minEarned() uint64 {
	switch t {
	case TierSilver:
		return silverThreshold
	case TierGold:
		return goldThreshold
	case TierPlatinum:
		return platinumThreshold
	default:
		return 0
	}
}

// CalculateTier maps a cumulative earned amount to its tier. The function is
// a pure step function over fixed thresholds; boundaries are inclusive of
// the tier minimum.
func CalculateTier(totalEarned uint64) Tier {
	switch {
	case totalEarned >= platinumThreshold:
		return TierPlatinum
	case totalEarned >= goldThreshold:
		return TierGold
	case totalEarned >= silverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// TierProgress reports how far a customer has advanced through their current
// tier as a clamped percentage, along with the tokens still needed to reach
// the next tier. Platinum is terminal and reports zero for both.
func TierProgress(totalEarned uint64) (percent uint64, tokensToNext uint64) {
	tier := CalculateTier(totalEarned)
	if tier == TierPlatinum {
		return 0, 0
	}
	next := tier + 1
	lower := tier.minEarned()
	upper := next.minEarned()
	span := upper - lower
	into := totalEarned - lower
	percent = into * 100 / span
	if percent > 100 {
		percent = 100
	}
	return percent, upper - totalEarned
}

// ParseTier converts a tier name to its enum value.
func ParseTier(name string) (Tier, bool) {
	switch name {
	case "bronze":
		return TierBronze, true
	case "silver":
		return TierSilver, true
	case "gold":
		return TierGold, true
	case "platinum":
		return TierPlatinum, true
	default:
		return TierBronze, false
	}
}
