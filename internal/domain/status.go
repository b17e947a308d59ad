package domain

import "strings"

var urgencyRanks = map[string]int{
	UrgencySkip:        0,
	UrgencyOptional:    1,
	UrgencyShouldOrder: 2,
	UrgencyMustOrder:   3,
}

var urgencyByRank = map[int]string{
	0: UrgencySkip,
	1: UrgencyOptional,
	2: UrgencyShouldOrder,
	3: UrgencyMustOrder,
}

// UrgencyRank returns the ordering rank of an urgency tier, skip being lowest.
func UrgencyRank(tier string) int {
	if rank, ok := urgencyRanks[strings.ToLower(tier)]; ok {
		return rank
	}

	return 0
}

// UrgencyForRank returns the tier name for a rank, clamped to the valid range.
func UrgencyForRank(rank int) string {
	if rank < 0 {
		rank = 0
	}
	if rank > 3 {
		rank = 3
	}

	return urgencyByRank[rank]
}

// ParseUrgency returns the canonical tier for a label (case-insensitive).
func ParseUrgency(label string) (string, bool) {
	tier := strings.ToLower(strings.TrimSpace(label))
	_, ok := urgencyRanks[tier]

	return tier, ok
}
