package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/mailrag/internal/domain/usage"
	"github.com/kailas-cloud/mailrag/internal/domain/usage/budget"
)

// Service handles usage reporting for the embedding and generation providers.
type Service struct {
	readers []BudgetReader
	now     func() time.Time
}

// New creates a Service. Nil readers are skipped.
func New(readers ...BudgetReader) *Service {
	s := &Service{now: time.Now}
	for _, r := range readers {
		if r != nil {
			s.readers = append(s.readers, r)
		}
	}
	return s
}

// WithClock overrides the clock in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetReports builds one usage report per provider for the given period.
func (s *Service) GetReports(_ context.Context, period domusage.Period) []domusage.Report {
	now := s.now().UTC()

	var start, end time.Time
	switch period {
	case domusage.PeriodDay:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.Add(24 * time.Hour)
	default:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	}

	reports := make([]domusage.Report, 0, len(s.readers))
	for _, br := range s.readers {
		var limit, used, remaining int64
		if period == domusage.PeriodDay {
			limit, used, remaining = br.DailyLimit(), br.DailyUsed(), br.RemainingDaily()
		} else {
			limit, used, remaining = br.MonthlyLimit(), br.MonthlyUsed(), br.RemainingMonthly()
		}

		b := budget.New(limit, remaining, end.UnixMilli())
		reports = append(reports, domusage.NewReport(
			br.Provider(), period, start.UnixMilli(), end.UnixMilli(), used, b,
		))
	}
	return reports
}
