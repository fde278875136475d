// Package usage describes provider token consumption reports.
package usage

import (
	"fmt"

	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/domain/usage/budget"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod maps a client value to a Period. Empty means month.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodMonth:
		return PeriodMonth, nil
	case PeriodDay:
		return PeriodDay, nil
	default:
		return "", fmt.Errorf("%w: period must be %q or %q", domain.ErrInvalidRequest, PeriodDay, PeriodMonth)
	}
}

// Report is the token usage of one provider over one period.
type Report struct {
	provider    string
	period      Period
	periodStart int64
	periodEnd   int64
	tokensUsed  int64
	budget      budget.Budget
}

// NewReport creates a usage report. Timestamps are unix millis.
func NewReport(provider string, period Period, start, end, used int64, b budget.Budget) Report {
	return Report{
		provider:    provider,
		period:      period,
		periodStart: start,
		periodEnd:   end,
		tokensUsed:  used,
		budget:      b,
	}
}

// Provider returns the provider label (embedding or chat model account).
func (r *Report) Provider() string { return r.provider }

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp (unix millis).
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// TokensUsed returns tokens consumed in the period.
func (r *Report) TokensUsed() int64 { return r.tokensUsed }

// Budget returns the budget status.
func (r *Report) Budget() budget.Budget { return r.budget }
