package commission_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/commission"
	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(commission.DateLayout, s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func TestGenerateInstallments_TwoEqualHalves(t *testing.T) {
	txnDate := mustDate(t, "2024-03-15")
	schedule := []domain.ScheduleInstallment{
		{InstallmentNumber: 1, Percentage: 50, DaysAfterTransaction: 0},
		{InstallmentNumber: 2, Percentage: 50, DaysAfterTransaction: 30},
	}

	got := commission.GenerateInstallments(10000, schedule, txnDate)

	if len(got) != 2 {
		t.Fatalf("expected 2 installments, got %d", len(got))
	}
	if got[0].Amount != 5000 || got[1].Amount != 5000 {
		t.Errorf("expected 5000/5000, got %v/%v", got[0].Amount, got[1].Amount)
	}
	if !got[0].DueDate.Equal(txnDate) {
		t.Errorf("first installment due %v, want %v", got[0].DueDate, txnDate)
	}
	if got[1].ScheduledDate() != "2024-04-14" {
		t.Errorf("second installment due %s, want 2024-04-14", got[1].ScheduledDate())
	}
	if got[0].Notes != "Installment 1" {
		t.Errorf("expected default note, got %q", got[0].Notes)
	}
}

func TestGenerateInstallments_Properties(t *testing.T) {
	txnDate := time.Date(2023, time.December, 20, 9, 30, 0, 0, time.UTC)

	schedules := map[string][]domain.ScheduleInstallment{
		"single": {
			{InstallmentNumber: 1, Percentage: 100, DaysAfterTransaction: 14},
		},
		"thirds": {
			{InstallmentNumber: 1, Percentage: 33.33, DaysAfterTransaction: 0},
			{InstallmentNumber: 2, Percentage: 33.33, DaysAfterTransaction: 30},
			{InstallmentNumber: 3, Percentage: 33.34, DaysAfterTransaction: 60},
		},
		"uneven across leap day": {
			{InstallmentNumber: 1, Percentage: 10, DaysAfterTransaction: 0},
			{InstallmentNumber: 2, Percentage: 25.5, DaysAfterTransaction: 45},
			{InstallmentNumber: 3, Percentage: 64.5, DaysAfterTransaction: 71},
		},
	}
	totals := []float64{0, 1, 9999.99, 10000, 123456.78}

	for name, schedule := range schedules {
		for _, total := range totals {
			got := commission.GenerateInstallments(total, schedule, txnDate)

			if sum := commission.SumAmounts(got); math.Abs(sum-total) > 1e-6 {
				t.Errorf("%s/%v: amounts sum to %v", name, total, sum)
			}
			for i, inst := range got {
				want := total * schedule[i].Percentage / 100
				if inst.Amount != want {
					t.Errorf("%s/%v: installment %d amount %v, want %v", name, total, inst.Number, inst.Amount, want)
				}
				wantDue := txnDate.AddDate(0, 0, schedule[i].DaysAfterTransaction)
				if !inst.DueDate.Equal(wantDue) {
					t.Errorf("%s/%v: installment %d due %v, want %v", name, total, inst.Number, inst.DueDate, wantDue)
				}
			}
		}
	}
}

func TestGenerateInstallments_OrdersByNumberWithoutMutatingInput(t *testing.T) {
	schedule := []domain.ScheduleInstallment{
		{InstallmentNumber: 2, Percentage: 60, DaysAfterTransaction: 30, Description: "Balance"},
		{InstallmentNumber: 1, Percentage: 40, DaysAfterTransaction: 0, Description: "Deposit"},
	}

	got := commission.GenerateInstallments(1000, schedule, mustDate(t, "2024-01-01"))

	if got[0].Number != 1 || got[0].Notes != "Deposit" || got[0].Amount != 400 {
		t.Errorf("unexpected first installment: %+v", got[0])
	}
	if schedule[0].InstallmentNumber != 2 {
		t.Error("input schedule was reordered")
	}
}

func TestGenerateInstallments_EmptySchedule(t *testing.T) {
	got := commission.GenerateInstallments(5000, nil, time.Now())
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestValidatePercentages(t *testing.T) {
	cases := []struct {
		name    string
		pcts    []float64
		wantErr bool
	}{
		{"exact", []float64{50, 50}, false},
		{"within tolerance", []float64{33.33, 33.33, 33.335}, false},
		{"short", []float64{50, 40}, true},
		{"over", []float64{60, 50}, true},
		{"empty", nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var schedule []domain.ScheduleInstallment
			for i, p := range tc.pcts {
				schedule = append(schedule, domain.ScheduleInstallment{InstallmentNumber: i + 1, Percentage: p})
			}
			err := commission.ValidatePercentages(schedule)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			var ve *domain.ErrValidation
			if err != nil && !errors.As(err, &ve) {
				t.Errorf("expected ErrValidation, got %T", err)
			}
		})
	}
}

func TestValidateSchedule(t *testing.T) {
	cases := []struct {
		name     string
		schedule []domain.ScheduleInstallment
		field    string
	}{
		{"empty", nil, "installments"},
		{"zero number", []domain.ScheduleInstallment{{InstallmentNumber: 0, Percentage: 100}}, "installment_number"},
		{"duplicate", []domain.ScheduleInstallment{{InstallmentNumber: 1, Percentage: 50}, {InstallmentNumber: 1, Percentage: 50}}, "installment_number"},
		{"negative pct", []domain.ScheduleInstallment{{InstallmentNumber: 1, Percentage: -5}}, "percentage"},
		{"negative days", []domain.ScheduleInstallment{{InstallmentNumber: 1, Percentage: 100, DaysAfterTransaction: -1}}, "days_after_transaction"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := commission.ValidateSchedule(tc.schedule)
			var ve *domain.ErrValidation
			if !errors.As(err, &ve) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("field = %s, want %s", ve.Field, tc.field)
			}
		})
	}

	ok := []domain.ScheduleInstallment{{InstallmentNumber: 1, Percentage: 70}, {InstallmentNumber: 2, Percentage: 20, DaysAfterTransaction: 90}}
	if err := commission.ValidateSchedule(ok); err != nil {
		t.Errorf("schedule summing to 90%% must still be structurally valid: %v", err)
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-02-29", "2024-02-29T10:00:00+00:00", " 2024-02-29 "} {
		d, err := commission.ParseDate(s)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", s, err)
		}
		if d.Format(commission.DateLayout) != "2024-02-29" {
			t.Errorf("ParseDate(%q) = %v", s, d)
		}
	}
	if _, err := commission.ParseDate("29/02/2024"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}
