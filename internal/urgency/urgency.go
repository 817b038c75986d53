package urgency

import "sort"

// Tier is the severity classification of an engagement's remaining days.
type Tier string

const (
	TierExpired   Tier = "EXPIRE"
	TierCritical  Tier = "CRITIQUE"
	TierUrgent    Tier = "URGENT"
	TierAttention Tier = "ATTENTION"
	TierNormal    Tier = "NORMAL"
)

// Classify maps a remaining-day count to a tier. Boundaries are inclusive on
// the lower tier: exactly 7 days is Critical, exactly 8 is Urgent.
func Classify(daysRemaining int) Tier {
	switch {
	case daysRemaining < 0:
		return TierExpired
	case daysRemaining <= 7:
		return TierCritical
	case daysRemaining <= 15:
		return TierUrgent
	case daysRemaining <= 30:
		return TierAttention
	default:
		return TierNormal
	}
}

// Rank returns the severity rank of a tier, highest first:
// Expired > Critical > Urgent > Attention > Normal.
func Rank(t Tier) int {
	switch t {
	case TierExpired:
		return 4
	case TierCritical:
		return 3
	case TierUrgent:
		return 2
	case TierAttention:
		return 1
	default:
		return 0
	}
}

// SortMostSevere orders day counts so the most severe classification comes
// first; within the same tier, fewer remaining days sort first.
func SortMostSevere(daysRemaining []int) {
	sort.SliceStable(daysRemaining, func(i, j int) bool {
		ri, rj := Rank(Classify(daysRemaining[i])), Rank(Classify(daysRemaining[j]))
		if ri != rj {
			return ri > rj
		}
		return daysRemaining[i] < daysRemaining[j]
	})
}
