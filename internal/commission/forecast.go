package commission

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

const (
	// DefaultForecastMonths is the forecast horizon when none is requested.
	DefaultForecastMonths = 6
	// DefaultProjectionMonths is the projection horizon when none is requested.
	DefaultProjectionMonths = 12
	// MaxForecastMonths caps both horizons.
	MaxForecastMonths = 36
	// projectionHistory is how many recent transactions feed a projection.
	projectionHistory = 10
)

// ClampMonths applies the default and the upper bound to a requested horizon.
func ClampMonths(months, fallback int) int {
	if months <= 0 {
		return fallback
	}
	if months > MaxForecastMonths {
		return MaxForecastMonths
	}
	return months
}

// ForecastPeriods buckets installments into calendar months starting with the
// month of now. Paid installments are confirmed, everything else except
// cancelled ones is pending. Installments outside the horizon are ignored.
func ForecastPeriods(now time.Time, months int, installments []domain.CommissionInstallment) ([]domain.ForecastPeriod, float64) {
	start := firstOfMonth(now)
	periods := make([]domain.ForecastPeriod, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		key := start.AddDate(0, i, 0).Format("2006-01")
		periods[i] = domain.ForecastPeriod{Month: key}
		index[key] = i
	}

	var total float64
	for _, inst := range installments {
		if inst.Status == domain.InstallmentStatusCancelled {
			continue
		}
		due, err := ParseDate(inst.ScheduledDate)
		if err != nil {
			continue
		}
		i, ok := index[due.Format("2006-01")]
		if !ok {
			continue
		}
		total += inst.Amount
		if inst.Status == domain.InstallmentStatusPaid {
			periods[i].ConfirmedAmount += inst.Amount
		} else {
			periods[i].PendingAmount += inst.Amount
		}
		periods[i].ExpectedAmount += inst.Amount
	}

	for i := range periods {
		periods[i].ConfirmedAmount = RoundCents(periods[i].ConfirmedAmount)
		periods[i].PendingAmount = RoundCents(periods[i].PendingAmount)
		periods[i].ExpectedAmount = RoundCents(periods[i].ExpectedAmount)
	}
	return periods, RoundCents(total)
}

// ProjectForecast projects future installments for an agent from their most
// recent transactions. The average commission of up to ten recent deals is
// split by schedule, and the deals-per-month rate of that window decides how
// many projected deals land in each month. Projected deals are spread evenly
// across days 1-28 so repeated runs give the same rows.
func ProjectForecast(now time.Time, months int, agentID string, history []domain.PropertyTransaction, schedule []domain.ScheduleInstallment) []domain.ForecastProjection {
	projections := []domain.ForecastProjection{}
	if len(history) == 0 || len(schedule) == 0 {
		return projections
	}

	recent := make([]domain.PropertyTransaction, len(history))
	copy(recent, history)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
	if len(recent) > projectionHistory {
		recent = recent[:projectionHistory]
	}

	var sum float64
	for _, tx := range recent {
		sum += tx.CommissionAmount
	}
	avg := sum / float64(len(recent))

	perMonth := TransactionsPerMonth(recent[len(recent)-1].CreatedAt, recent[0].CreatedAt, len(recent))
	expected := int(math.Round(perMonth))

	slots := sortedSchedule(schedule)
	start := firstOfMonth(now)
	for i := 0; i < months; i++ {
		month := start.AddDate(0, i, 0)
		for j := 0; j < expected; j++ {
			day := 1 + (j+1)*28/(expected+1)
			txDate := time.Date(month.Year(), month.Month(), day, 0, 0, 0, 0, month.Location())
			txID := fmt.Sprintf("projected_%s_%s_%d", agentID, txDate.Format("20060102"), j)
			for _, s := range slots {
				projections = append(projections, domain.ForecastProjection{
					ProjectedTransactionID: txID,
					AgentID:                agentID,
					InstallmentNumber:      s.InstallmentNumber,
					Amount:                 RoundCents(InstallmentAmount(avg, s.Percentage)),
					Percentage:             s.Percentage,
					ScheduledDate:          txDate.AddDate(0, 0, s.DaysAfterTransaction).Format(DateLayout),
					TransactionDate:        txDate.Format(DateLayout),
					Status:                 domain.InstallmentStatusProjected,
				})
			}
		}
	}
	return projections
}

// TransactionsPerMonth is count spread over the inclusive number of calendar
// months between oldest and newest.
func TransactionsPerMonth(oldest, newest time.Time, count int) float64 {
	monthDiff := (newest.Year()-oldest.Year())*12 + int(newest.Month()-oldest.Month()) + 1
	if monthDiff < 1 {
		monthDiff = 1
	}
	return float64(count) / float64(monthDiff)
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
