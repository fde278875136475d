package usage

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/domain/usage/budget"
)

func TestNewReport(t *testing.T) {
	b := budget.New(1000000, 615800, 1700000000000)

	r := NewReport("openai", PeriodMonth, 1700000000, 1702600000, 384200, b)

	if r.Provider() != "openai" {
		t.Errorf("Provider() = %q", r.Provider())
	}
	if r.Period() != PeriodMonth {
		t.Errorf("Period() = %q", r.Period())
	}
	if r.PeriodStart() != 1700000000 || r.PeriodEnd() != 1702600000 {
		t.Errorf("period bounds = %d..%d", r.PeriodStart(), r.PeriodEnd())
	}
	if r.TokensUsed() != 384200 {
		t.Errorf("TokensUsed() = %d", r.TokensUsed())
	}
	if r.Budget().TokensLimit() != 1000000 {
		t.Errorf("Budget().TokensLimit() = %d", r.Budget().TokensLimit())
	}
}

func TestParsePeriod(t *testing.T) {
	for in, want := range map[string]Period{"": PeriodMonth, "month": PeriodMonth, "day": PeriodDay} {
		got, err := ParsePeriod(in)
		if err != nil || got != want {
			t.Errorf("ParsePeriod(%q) = %q, %v", in, got, err)
		}
	}

	_, err := ParsePeriod("week")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}
