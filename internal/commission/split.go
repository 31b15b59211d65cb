package commission

import (
	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

// DefaultCoBrokingSplit is our agency's side of a co-broked deal when none is given.
const DefaultCoBrokingSplit = 50

// Split is the agent/agency division of a commission.
type Split struct {
	AgentShare  float64
	AgencyShare float64
}

// SplitCommission divides total between agent and agency. The agency share is
// the remainder, so the two always add back to total.
func SplitCommission(total, agentPercentage float64) (Split, error) {
	if agentPercentage < 0 || agentPercentage > 100 {
		return Split{}, &domain.ErrValidation{Field: "agent_percentage", Message: "must be between 0 and 100"}
	}
	agent := total * agentPercentage / 100
	return Split{AgentShare: agent, AgencyShare: total - agent}, nil
}

// TotalCommission is the gross commission of a deal. Rentals carry an
// owner-agreed amount; sales and primary deals apply the rate to the value.
func TotalCommission(transactionType string, value, rate, rentalAmount float64) float64 {
	if transactionType == domain.TransactionTypeRent {
		return rentalAmount
	}
	return value * rate / 100
}

// CalculateBreakdown runs the transaction-form calculator. The agent's tier
// decides the agent percentage; unknown or empty tiers use defaultPercentage.
func CalculateBreakdown(in domain.CommissionInput, tiers []domain.CommissionTier, defaultPercentage float64) (domain.CommissionBreakdown, error) {
	if in.TransactionType != domain.TransactionTypeRent {
		if in.TransactionValue <= 0 {
			return domain.CommissionBreakdown{}, &domain.ErrValidation{Field: "transaction_value", Message: "must be greater than zero"}
		}
		if in.CommissionRate < 0 || in.CommissionRate > 100 {
			return domain.CommissionBreakdown{}, &domain.ErrValidation{Field: "commission_rate", Message: "must be between 0 and 100"}
		}
	} else if in.CommissionAmount < 0 {
		return domain.CommissionBreakdown{}, &domain.ErrValidation{Field: "commission_amount", Message: "must not be negative"}
	}

	total := TotalCommission(in.TransactionType, in.TransactionValue, in.CommissionRate, in.CommissionAmount)

	ours := total
	split := 0.0
	if in.CoBroking {
		split = in.CoBrokingSplit
		if split <= 0 {
			split = DefaultCoBrokingSplit
		}
		if split > 100 {
			return domain.CommissionBreakdown{}, &domain.ErrValidation{Field: "co_broking_split", Message: "must not exceed 100"}
		}
		ours = total * split / 100
	}

	pct := defaultPercentage
	tierName := ""
	for _, t := range tiers {
		if in.AgentTier != "" && (t.Name == in.AgentTier || t.Rank == in.AgentTier) {
			pct = t.AgentPercentage
			tierName = t.Name
			break
		}
	}

	s, err := SplitCommission(ours, pct)
	if err != nil {
		return domain.CommissionBreakdown{}, err
	}

	return domain.CommissionBreakdown{
		TotalCommission:      RoundCents(total),
		CoAgencyCommission:   RoundCents(total - ours),
		OurAgencyCommission:  RoundCents(ours),
		AgentPercentage:      pct,
		AgencyPercentage:     100 - pct,
		AgentShare:           RoundCents(s.AgentShare),
		AgencyShare:          centsDiff(ours, s.AgentShare),
		CoBrokingSplit:       split,
		CommissionRate:       in.CommissionRate,
		TransactionValue:     in.TransactionValue,
		TierName:             tierName,
		FormattedTotal:       FormatCurrency(total),
		FormattedAgentShare:  FormatCurrency(s.AgentShare),
		FormattedAgencyShare: FormatCurrency(s.AgencyShare),
	}, nil
}
