package commission

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

// DateLayout is the date-only format used by every date column.
const DateLayout = "2006-01-02"

// percentageTolerance is how far a schedule may drift from 100% before it is reported.
const percentageTolerance = 0.01

// Installment is one computed slot of a payment schedule.
type Installment struct {
	Number     int
	Percentage float64
	Amount     float64
	DueDate    time.Time
	Notes      string
}

// ScheduledDate renders the due date the way the installments table stores it.
func (i Installment) ScheduledDate() string {
	return i.DueDate.Format(DateLayout)
}

// GenerateInstallments splits total across schedule. Each amount is
// total*percentage/100 and each due date is txnDate plus the slot's day offset.
// The result is ordered by installment number and the schedule is not modified.
func GenerateInstallments(total float64, schedule []domain.ScheduleInstallment, txnDate time.Time) []Installment {
	slots := sortedSchedule(schedule)
	out := make([]Installment, 0, len(slots))
	for _, s := range slots {
		notes := s.Description
		if notes == "" {
			notes = fmt.Sprintf("Installment %d", s.InstallmentNumber)
		}
		out = append(out, Installment{
			Number:     s.InstallmentNumber,
			Percentage: s.Percentage,
			Amount:     InstallmentAmount(total, s.Percentage),
			DueDate:    txnDate.AddDate(0, 0, s.DaysAfterTransaction),
			Notes:      notes,
		})
	}
	return out
}

// InstallmentAmount is total*percentage/100.
func InstallmentAmount(total, percentage float64) float64 {
	return total * percentage / 100
}

// SumAmounts adds up installment amounts.
func SumAmounts(installments []Installment) float64 {
	var sum float64
	for _, i := range installments {
		sum += i.Amount
	}
	return sum
}

// PercentageTotal adds up the schedule's percentages.
func PercentageTotal(schedule []domain.ScheduleInstallment) float64 {
	var sum float64
	for _, s := range schedule {
		sum += s.Percentage
	}
	return sum
}

// ValidatePercentages reports a schedule whose percentages do not sum to 100.
// Callers treat the error as a warning; generation still proceeds.
func ValidatePercentages(schedule []domain.ScheduleInstallment) error {
	sum := PercentageTotal(schedule)
	if math.Abs(sum-100) > percentageTolerance {
		return &domain.ErrValidation{
			Field:   "installments",
			Message: fmt.Sprintf("percentages sum to %s%%, expected 100%%", trimFloat(sum)),
		}
	}
	return nil
}

// ValidateSchedule checks the structural rules a stored schedule must satisfy.
// Percentage totals are checked separately by ValidatePercentages.
func ValidateSchedule(schedule []domain.ScheduleInstallment) error {
	if len(schedule) == 0 {
		return &domain.ErrValidation{Field: "installments", Message: "at least one installment is required"}
	}
	seen := make(map[int]bool, len(schedule))
	for _, s := range schedule {
		if s.InstallmentNumber <= 0 {
			return &domain.ErrValidation{Field: "installment_number", Message: "must be positive"}
		}
		if seen[s.InstallmentNumber] {
			return &domain.ErrValidation{Field: "installment_number", Message: fmt.Sprintf("duplicate installment %d", s.InstallmentNumber)}
		}
		seen[s.InstallmentNumber] = true
		if s.Percentage <= 0 || s.Percentage > 100 {
			return &domain.ErrValidation{Field: "percentage", Message: "must be within (0, 100]"}
		}
		if s.DaysAfterTransaction < 0 {
			return &domain.ErrValidation{Field: "days_after_transaction", Message: "must not be negative"}
		}
	}
	return nil
}

// ParseDate accepts a date-only value or a full timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) >= len(DateLayout) {
		if t, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &domain.ErrValidation{Field: "date", Message: fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s)}
}

func sortedSchedule(schedule []domain.ScheduleInstallment) []domain.ScheduleInstallment {
	slots := make([]domain.ScheduleInstallment, len(schedule))
	copy(slots, schedule)
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].InstallmentNumber < slots[j].InstallmentNumber
	})
	return slots
}
