package commission_test

import (
	"testing"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/commission"
	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

func TestForecastPeriods_BucketsByMonth(t *testing.T) {
	now := time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC)
	installments := []domain.CommissionInstallment{
		{Amount: 1000, ScheduledDate: "2024-01-10", Status: domain.InstallmentStatusPaid},
		{Amount: 500, ScheduledDate: "2024-01-25", Status: domain.InstallmentStatusPending},
		{Amount: 700.125, ScheduledDate: "2024-02-29", Status: domain.InstallmentStatusProcessing},
		{Amount: 300, ScheduledDate: "2024-03-01", Status: domain.InstallmentStatusCancelled},
		{Amount: 9999, ScheduledDate: "2023-12-31", Status: domain.InstallmentStatusPending},
		{Amount: 9999, ScheduledDate: "2024-07-01", Status: domain.InstallmentStatusPending},
		{Amount: 9999, ScheduledDate: "garbage", Status: domain.InstallmentStatusPending},
	}

	periods, total := commission.ForecastPeriods(now, 3, installments)

	if len(periods) != 3 {
		t.Fatalf("expected 3 periods, got %d", len(periods))
	}
	wantMonths := []string{"2024-01", "2024-02", "2024-03"}
	for i, p := range periods {
		if p.Month != wantMonths[i] {
			t.Errorf("period %d month %s, want %s", i, p.Month, wantMonths[i])
		}
	}
	if periods[0].ConfirmedAmount != 1000 || periods[0].PendingAmount != 500 || periods[0].ExpectedAmount != 1500 {
		t.Errorf("unexpected January: %+v", periods[0])
	}
	if periods[1].PendingAmount != 700.13 {
		t.Errorf("expected February pending rounded to 700.13, got %v", periods[1].PendingAmount)
	}
	if periods[2].ExpectedAmount != 0 {
		t.Errorf("cancelled installment must not count: %+v", periods[2])
	}
	if total != 2200.13 {
		t.Errorf("total = %v, want 2200.13", total)
	}
}

func TestProjectForecast(t *testing.T) {
	now := time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC)
	history := []domain.PropertyTransaction{
		{CommissionAmount: 9000, CreatedAt: time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)},
		{CommissionAmount: 12000, CreatedAt: time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC)},
		{CommissionAmount: 3000, CreatedAt: time.Date(2024, time.April, 11, 0, 0, 0, 0, time.UTC)},
	}
	schedule := []domain.ScheduleInstallment{
		{InstallmentNumber: 2, Percentage: 40, DaysAfterTransaction: 60},
		{InstallmentNumber: 1, Percentage: 60, DaysAfterTransaction: 0},
	}

	got := commission.ProjectForecast(now, 2, "agent-1", history, schedule)

	// 3 deals over March..May = 1 per month, 2 slots each, 2 months.
	if len(got) != 4 {
		t.Fatalf("expected 4 projections, got %d: %+v", len(got), got)
	}
	first := got[0]
	if first.TransactionDate != "2024-05-15" || first.ScheduledDate != "2024-05-15" {
		t.Errorf("unexpected dates: %+v", first)
	}
	if first.InstallmentNumber != 1 || first.Amount != 4800 || first.Status != domain.InstallmentStatusProjected {
		t.Errorf("unexpected first projection: %+v", first)
	}
	if got[1].ScheduledDate != "2024-07-14" || got[1].Amount != 3200 {
		t.Errorf("unexpected second slot: %+v", got[1])
	}
	if got[2].TransactionDate != "2024-06-15" {
		t.Errorf("expected June deal, got %+v", got[2])
	}
	if first.ProjectedTransactionID != "projected_agent-1_20240515_0" {
		t.Errorf("unexpected projected id %s", first.ProjectedTransactionID)
	}
}

func TestProjectForecast_UsesTenMostRecent(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	var history []domain.PropertyTransaction
	for i := 0; i < 12; i++ {
		amount := 1000.0
		if i >= 10 {
			amount = 1000000 // oldest two, must be ignored
		}
		history = append(history, domain.PropertyTransaction{
			CommissionAmount: amount,
			CreatedAt:        time.Date(2023, time.December, 28-i, 0, 0, 0, 0, time.UTC),
		})
	}
	schedule := []domain.ScheduleInstallment{{InstallmentNumber: 1, Percentage: 100}}

	got := commission.ProjectForecast(now, 1, "a", history, schedule)

	// Ten deals in one month -> ten projected deals in January.
	if len(got) != 10 {
		t.Fatalf("expected 10 projections, got %d", len(got))
	}
	for _, p := range got {
		if p.Amount != 1000 {
			t.Fatalf("expected average 1000, got %v", p.Amount)
		}
	}
	if got[0].TransactionDate != "2024-01-03" || got[9].TransactionDate != "2024-01-26" {
		t.Errorf("unexpected spread: first %s last %s", got[0].TransactionDate, got[9].TransactionDate)
	}
}

func TestProjectForecast_NoHistory(t *testing.T) {
	got := commission.ProjectForecast(time.Now(), 6, "a", nil, []domain.ScheduleInstallment{{InstallmentNumber: 1, Percentage: 100}})
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty projections, got %#v", got)
	}
}

func TestTransactionsPerMonth(t *testing.T) {
	jan := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	if got := commission.TransactionsPerMonth(jan, jan, 4); got != 4 {
		t.Errorf("same month: %v", got)
	}
	dec := time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)
	if got := commission.TransactionsPerMonth(dec, jan, 4); got != 2 {
		t.Errorf("across year end: %v", got)
	}
}

func TestClampMonths(t *testing.T) {
	if commission.ClampMonths(0, 6) != 6 || commission.ClampMonths(-3, 12) != 12 {
		t.Error("expected fallback for non-positive months")
	}
	if commission.ClampMonths(500, 6) != commission.MaxForecastMonths {
		t.Error("expected cap")
	}
	if commission.ClampMonths(9, 6) != 9 {
		t.Error("expected passthrough")
	}
}
