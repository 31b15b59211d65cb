package commission

import (
	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

// RankLevel returns the level of a named rank, or 0 when the rank is unknown.
func RankLevel(ranks []domain.AgentRank, name string) int {
	if r, ok := findRank(ranks, name); ok {
		return r.Level
	}
	return 0
}

// CalculateOverrides walks chain from the selling agent (chain[0]) upwards.
// Each upline earns its rank's override percentage of base, but only when its
// rank level is strictly higher than the agent directly below it.
func CalculateOverrides(base float64, chain []domain.AgentProfile, ranks []domain.AgentRank) []domain.OverrideCommission {
	overrides := []domain.OverrideCommission{}
	for i := 1; i < len(chain); i++ {
		below, upline := chain[i-1], chain[i]
		if RankLevel(ranks, upline.Rank) <= RankLevel(ranks, below.Rank) {
			continue
		}
		r, _ := findRank(ranks, upline.Rank)
		if r.OverridePercentage <= 0 {
			continue
		}
		overrides = append(overrides, domain.OverrideCommission{
			AgentID:    upline.ID,
			AgentName:  upline.FullName,
			Rank:       upline.Rank,
			Level:      i,
			Percentage: r.OverridePercentage,
			Amount:     RoundCents(base * r.OverridePercentage / 100),
		})
	}
	return overrides
}

// TotalOverride sums override amounts.
func TotalOverride(overrides []domain.OverrideCommission) float64 {
	var sum float64
	for _, o := range overrides {
		sum += o.Amount
	}
	return RoundCents(sum)
}

// RankForSales returns the highest rank whose sales floor salesValue reaches,
// and the next rank up when there is one. ranks must be ordered by level.
func RankForSales(ranks []domain.AgentRank, salesValue float64) (current domain.AgentRank, next *domain.AgentRank) {
	for i, r := range ranks {
		if salesValue >= r.MinSalesValue {
			current = r
			next = nil
			if i+1 < len(ranks) {
				n := ranks[i+1]
				next = &n
			}
		}
	}
	if current.Name == "" && len(ranks) > 0 {
		n := ranks[0]
		next = &n
	}
	return current, next
}

func findRank(ranks []domain.AgentRank, name string) (domain.AgentRank, bool) {
	for _, r := range ranks {
		if r.Name == name {
			return r, true
		}
	}
	return domain.AgentRank{}, false
}
