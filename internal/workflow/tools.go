package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/venturahq/ventura/internal/domain"
	"github.com/venturahq/ventura/internal/finance"
	"github.com/venturahq/ventura/internal/retry"
)

// runFinancialTools computes the deterministic figures for the financial
// modeling phase. Each computation is audited as a tool call. A negative
// NPV, an undefined IRR, or unsustainable unit economics raises the red
// flag that degrades the phase regardless of specialist confidence.
func (r *PhaseRunner) runFinancialTools(ctx context.Context, fin *domain.FinancialAssumptions) ([]domain.ToolCallRecord, *domain.FinancialProjection, bool) {
	records := []domain.ToolCallRecord{}
	redFlag := false

	cashFlows := fin.CashFlows
	if len(cashFlows) == 0 {
		return records, nil, false
	}

	proj := &domain.FinancialProjection{
		CashFlows:    cashFlows,
		DiscountRate: fin.DiscountRate,
	}

	npv, rec := runTool(ctx, r, "finance.npv", map[string]string{
		"periods": fmt.Sprintf("%d", len(cashFlows)),
		"rate":    fmt.Sprintf("%.4f", fin.DiscountRate),
	}, func(context.Context) (float64, error) {
		return finance.NPV(cashFlows, fin.DiscountRate)
	})
	records = append(records, rec)
	if rec.Outcome == domain.ToolCallSuccess {
		proj.NPV = npv
		if npv < 0 {
			redFlag = true
		}
	} else {
		redFlag = true
	}

	irr, rec := runTool(ctx, r, "finance.irr", nil, func(context.Context) (finance.Rate, error) {
		return finance.IRR(cashFlows)
	})
	records = append(records, rec)
	if rec.Outcome == domain.ToolCallSuccess && irr.Defined {
		v := irr.Value
		proj.IRR = &v
	} else {
		// Undefined IRR is a valid answer, but still a viability warning.
		redFlag = true
	}

	payback, rec := runTool(ctx, r, "finance.payback", nil, func(context.Context) (int, error) {
		period, ok := finance.PaybackPeriod(cashFlows)
		if !ok {
			return -1, nil
		}
		return period, nil
	})
	records = append(records, rec)
	if rec.Outcome == domain.ToolCallSuccess && payback >= 0 {
		p := payback
		proj.PaybackPeriods = &p
	}

	if fin.CAC > 0 && fin.ARPU > 0 {
		unit, rec := runTool(ctx, r, "finance.unit_economics", map[string]string{
			"cac": fmt.Sprintf("%.2f", fin.CAC),
		}, func(context.Context) (finance.UnitEconomicsResult, error) {
			return finance.UnitEconomics(fin.CAC, fin.LTV, fin.MonthlyChurn, fin.ARPU)
		})
		records = append(records, rec)
		if rec.Outcome == domain.ToolCallSuccess && !unit.Sustainable {
			redFlag = true
		}
	}

	return records, proj, redFlag
}

// runTool executes one audited call through the retry chokepoint.
func runTool[T any](ctx context.Context, r *PhaseRunner, name string, params map[string]string, op func(context.Context) (T, error)) (T, domain.ToolCallRecord) {
	start := time.Now()
	value, attempts, err := retry.Do(ctx, r.Exec, retry.ClassCompute, r.Cfg.ToolPolicy, op)
	rec := domain.ToolCallRecord{
		ID:           newID("tool"),
		ToolName:     name,
		Params:       params,
		AttemptCount: attempts,
		Outcome:      domain.ToolCallSuccess,
		LatencyMS:    time.Since(start).Milliseconds(),
		CreatedAt:    timeNow(),
	}
	if err != nil {
		if domain.IsTransient(err) {
			rec.Outcome = domain.ToolCallTransientFailure
		} else {
			rec.Outcome = domain.ToolCallFatalFailure
		}
	}
	return value, rec
}
