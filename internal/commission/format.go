package commission

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/shopspring/decimal"
)

// RoundCents rounds half away from zero to two decimal places.
func RoundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// centsDiff is round(a) - round(b) computed in decimal, so the two rounded
// halves of a split still add back to the rounded whole.
func centsDiff(a, b float64) float64 {
	return decimal.NewFromFloat(a).Round(2).Sub(decimal.NewFromFloat(b).Round(2)).InexactFloat64()
}

// FormatCurrency renders an amount as US dollars with thousands separators,
// e.g. 1234567.891 -> "$1,234,567.89".
func FormatCurrency(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + "$" + groupThousands(whole) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// ScheduleSummary describes a schedule in one line for listings.
func ScheduleSummary(schedule []domain.ScheduleInstallment) string {
	switch len(schedule) {
	case 0:
		return "No installments defined"
	case 1:
		return "One-time payment (100%)"
	}

	var first, last *domain.ScheduleInstallment
	for i := range schedule {
		switch schedule[i].InstallmentNumber {
		case 1:
			first = &schedule[i]
		case len(schedule):
			last = &schedule[i]
		}
	}
	if first != nil && last != nil {
		return fmt.Sprintf("%d installments (%s%% initial, %s%% final)",
			len(schedule), trimFloat(first.Percentage), trimFloat(last.Percentage))
	}
	return fmt.Sprintf("%d installments", len(schedule))
}

// FormatInstallment renders one slot of a schedule against a total. A zero
// txnDate describes the due date relative to the transaction instead.
func FormatInstallment(slot domain.ScheduleInstallment, total float64, txnDate time.Time) string {
	amount := InstallmentAmount(total, slot.Percentage)
	s := fmt.Sprintf("Installment %d: %s (%s%%)", slot.InstallmentNumber, FormatCurrency(amount), trimFloat(slot.Percentage))
	if txnDate.IsZero() {
		return s + fmt.Sprintf(" - due %d days after transaction", slot.DaysAfterTransaction)
	}
	return s + " - due " + txnDate.AddDate(0, 0, slot.DaysAfterTransaction).Format("Jan 2, 2006")
}

// MonthTotal is the sum of installments falling in one calendar month.
type MonthTotal struct {
	Month  string  `json:"month"` // YYYY-MM
	Label  string  `json:"label"` // Jan 2006
	Amount float64 `json:"amount"`
}

// GroupByMonth totals installments per calendar month, oldest first.
// Installments with an unparseable scheduled date are skipped.
func GroupByMonth(installments []domain.CommissionInstallment) []MonthTotal {
	totals := map[string]*MonthTotal{}
	for _, inst := range installments {
		d, err := ParseDate(inst.ScheduledDate)
		if err != nil {
			continue
		}
		key := d.Format("2006-01")
		mt, ok := totals[key]
		if !ok {
			mt = &MonthTotal{Month: key, Label: d.Format("Jan 2006")}
			totals[key] = mt
		}
		mt.Amount += inst.Amount
	}

	out := make([]MonthTotal, 0, len(totals))
	for _, mt := range totals {
		mt.Amount = RoundCents(mt.Amount)
		out = append(out, *mt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// trimFloat prints 50 as "50" and 33.33 as "33.33".
func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
