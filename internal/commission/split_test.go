package commission_test

import (
	"math"
	"testing"

	"github.com/boddenberg/agent-hub-bfa-go/internal/commission"
	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

var testTiers = []domain.CommissionTier{
	{Name: "Bronze", Rank: "Associate", AgentPercentage: 70},
	{Name: "Gold", Rank: "Team Leader", AgentPercentage: 80},
	{Name: "Diamond", Rank: "Director", AgentPercentage: 90},
}

func TestSplitCommission_SharesAddUp(t *testing.T) {
	for _, total := range []float64{0, 0.01, 1234.56, 30000, 987654.32} {
		for pct := 0.0; pct <= 100; pct += 2.5 {
			s, err := commission.SplitCommission(total, pct)
			if err != nil {
				t.Fatalf("SplitCommission(%v, %v): %v", total, pct, err)
			}
			if math.Abs(s.AgentShare+s.AgencyShare-total) > 1e-9 {
				t.Errorf("total %v pct %v: %v + %v != total", total, pct, s.AgentShare, s.AgencyShare)
			}
			if s.AgentShare != total*pct/100 {
				t.Errorf("total %v pct %v: agent share %v", total, pct, s.AgentShare)
			}
		}
	}
}

func TestSplitCommission_RejectsOutOfRange(t *testing.T) {
	for _, pct := range []float64{-0.1, 100.01, 250} {
		if _, err := commission.SplitCommission(1000, pct); err == nil {
			t.Errorf("expected error for %v%%", pct)
		}
	}
}

func TestCalculateBreakdown_Sale(t *testing.T) {
	b, err := commission.CalculateBreakdown(domain.CommissionInput{
		TransactionType:  domain.TransactionTypeSale,
		TransactionValue: 500000,
		CommissionRate:   2,
		AgentTier:        "Gold",
	}, testTiers, 70)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.TotalCommission != 10000 {
		t.Errorf("total = %v, want 10000", b.TotalCommission)
	}
	if b.AgentShare != 8000 || b.AgencyShare != 2000 {
		t.Errorf("shares = %v/%v, want 8000/2000", b.AgentShare, b.AgencyShare)
	}
	if b.TierName != "Gold" || b.AgencyPercentage != 20 {
		t.Errorf("tier = %s agency%% = %v", b.TierName, b.AgencyPercentage)
	}
	if b.FormattedTotal != "$10,000.00" {
		t.Errorf("formatted total = %s", b.FormattedTotal)
	}
}

func TestCalculateBreakdown_RentUsesAgreedAmount(t *testing.T) {
	b, err := commission.CalculateBreakdown(domain.CommissionInput{
		TransactionType:  domain.TransactionTypeRent,
		TransactionValue: 3500,
		CommissionRate:   50,
		CommissionAmount: 1750,
	}, testTiers, 70)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.TotalCommission != 1750 {
		t.Errorf("total = %v, want 1750", b.TotalCommission)
	}
	if b.AgentPercentage != 70 || b.AgentShare != 1225 {
		t.Errorf("expected default 70%% -> 1225, got %v%% -> %v", b.AgentPercentage, b.AgentShare)
	}
}

func TestCalculateBreakdown_CoBroking(t *testing.T) {
	b, err := commission.CalculateBreakdown(domain.CommissionInput{
		TransactionType:  domain.TransactionTypePrimary,
		TransactionValue: 1000000,
		CommissionRate:   3,
		AgentTier:        "Associate",
		CoBroking:        true,
	}, testTiers, 70)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.CoBrokingSplit != 50 {
		t.Errorf("default split = %v, want 50", b.CoBrokingSplit)
	}
	if b.OurAgencyCommission != 15000 || b.CoAgencyCommission != 15000 {
		t.Errorf("ours/co = %v/%v", b.OurAgencyCommission, b.CoAgencyCommission)
	}
	if b.AgentShare != 10500 || b.AgencyShare != 4500 {
		t.Errorf("shares = %v/%v, want 10500/4500", b.AgentShare, b.AgencyShare)
	}
}

func TestCalculateBreakdown_RoundedSharesAddUp(t *testing.T) {
	b, err := commission.CalculateBreakdown(domain.CommissionInput{
		TransactionType:  domain.TransactionTypeSale,
		TransactionValue: 333333.33,
		CommissionRate:   2.5,
	}, testTiers, 70)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := commission.RoundCents(b.AgentShare + b.AgencyShare); got != b.OurAgencyCommission {
		t.Errorf("rounded shares %v + %v != %v", b.AgentShare, b.AgencyShare, b.OurAgencyCommission)
	}
}

func TestCalculateBreakdown_Validation(t *testing.T) {
	cases := map[string]domain.CommissionInput{
		"zero value":    {TransactionType: domain.TransactionTypeSale, CommissionRate: 2},
		"rate too high": {TransactionType: domain.TransactionTypeSale, TransactionValue: 1, CommissionRate: 101},
		"negative rent": {TransactionType: domain.TransactionTypeRent, CommissionAmount: -1},
		"split too big": {TransactionType: domain.TransactionTypeSale, TransactionValue: 1, CommissionRate: 1, CoBroking: true, CoBrokingSplit: 120},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := commission.CalculateBreakdown(in, testTiers, 70); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
