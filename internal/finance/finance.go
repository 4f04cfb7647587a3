// Package finance holds the deterministic financial kernels used by the
// financial modeling phase. Everything here is pure: no I/O, no clock, no
// randomness, so results are reproducible for a given input.
package finance

import (
	"math"

	"github.com/venturahq/ventura/internal/domain"
)

const (
	irrSeed       = 0.1
	irrTolerance  = 1e-6
	irrMaxIter    = 100
	irrLowerBound = -0.99
	irrUpperBound = 10.0
)

// Rate is an IRR answer. Some cash flow shapes (all-negative, all-positive)
// have no internal rate of return; Defined is false for those and Value is
// meaningless.
type Rate struct {
	Value   float64
	Defined bool
}

// NPV discounts cashFlows at rate. Index 0 is period zero and is not
// discounted.
func NPV(cashFlows []float64, rate float64) (float64, error) {
	if len(cashFlows) == 0 {
		return 0, domain.InvalidArgument("cash flows are required")
	}
	if rate <= -1 {
		return 0, domain.InvalidArgument("discount rate must be greater than -100%")
	}
	total := 0.0
	for t, cf := range cashFlows {
		total += cf / math.Pow(1+rate, float64(t))
	}
	return total, nil
}

// IRR finds the rate at which NPV is zero: Newton-Raphson from a fixed seed,
// falling back to bisection when Newton leaves the bracket or stalls. A cash
// flow series with no sign change has no IRR and yields Defined=false.
func IRR(cashFlows []float64) (Rate, error) {
	if len(cashFlows) < 2 {
		return Rate{}, domain.InvalidArgument("at least two cash flow periods are required")
	}
	if !hasSignChange(cashFlows) {
		return Rate{Defined: false}, nil
	}

	rate := irrSeed
	for i := 0; i < irrMaxIter; i++ {
		npv := npvAt(cashFlows, rate)
		if math.Abs(npv) < irrTolerance {
			return Rate{Value: rate, Defined: true}, nil
		}
		deriv := npvDerivative(cashFlows, rate)
		if deriv == 0 || math.IsNaN(deriv) || math.IsInf(deriv, 0) {
			break
		}
		next := rate - npv/deriv
		if next <= irrLowerBound || next >= irrUpperBound || math.IsNaN(next) {
			break
		}
		if math.Abs(next-rate) < irrTolerance {
			return Rate{Value: next, Defined: true}, nil
		}
		rate = next
	}
	return irrBisect(cashFlows)
}

func irrBisect(cashFlows []float64) (Rate, error) {
	lo, hi := irrLowerBound, irrUpperBound
	fLo := npvAt(cashFlows, lo)
	fHi := npvAt(cashFlows, hi)
	if fLo*fHi > 0 {
		return Rate{Defined: false}, nil
	}
	for i := 0; i < irrMaxIter*2; i++ {
		mid := (lo + hi) / 2
		fMid := npvAt(cashFlows, mid)
		if math.Abs(fMid) < irrTolerance || (hi-lo)/2 < irrTolerance {
			return Rate{Value: mid, Defined: true}, nil
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo = mid
			fLo = fMid
		}
	}
	return Rate{Value: (lo + hi) / 2, Defined: true}, nil
}

func npvAt(cashFlows []float64, rate float64) float64 {
	total := 0.0
	for t, cf := range cashFlows {
		total += cf / math.Pow(1+rate, float64(t))
	}
	return total
}

func npvDerivative(cashFlows []float64, rate float64) float64 {
	total := 0.0
	for t, cf := range cashFlows {
		if t == 0 {
			continue
		}
		total += -float64(t) * cf / math.Pow(1+rate, float64(t+1))
	}
	return total
}

func hasSignChange(cashFlows []float64) bool {
	sawNeg, sawPos := false, false
	for _, cf := range cashFlows {
		if cf < 0 {
			sawNeg = true
		}
		if cf > 0 {
			sawPos = true
		}
	}
	return sawNeg && sawPos
}

// PaybackPeriod returns the first period index at which cumulative cash flow
// is non-negative. ok is false when the investment is never recovered.
func PaybackPeriod(cashFlows []float64) (period int, ok bool) {
	cumulative := 0.0
	for t, cf := range cashFlows {
		cumulative += cf
		if cumulative >= 0 {
			return t, true
		}
	}
	return 0, false
}

// ProjectionYear is one year of a simple top-down projection.
type ProjectionYear struct {
	Year      int     `json:"year"`
	Revenue   float64 `json:"revenue"`
	EBITDA    float64 `json:"ebitda"`
	NetIncome float64 `json:"net_income"`
}

func Projection(initialRevenue, growthRate float64, years int, operatingMargin, taxRate float64) ([]ProjectionYear, error) {
	if years <= 0 {
		return nil, domain.InvalidArgument("projection years must be positive")
	}
	if initialRevenue < 0 {
		return nil, domain.InvalidArgument("initial revenue cannot be negative")
	}
	if taxRate < 0 || taxRate >= 1 {
		return nil, domain.InvalidArgument("tax rate must be in [0, 1)")
	}
	out := make([]ProjectionYear, 0, years)
	revenue := initialRevenue
	for y := 1; y <= years; y++ {
		revenue *= 1 + growthRate
		ebitda := revenue * operatingMargin
		net := ebitda
		if net > 0 {
			net = ebitda * (1 - taxRate)
		}
		out = append(out, ProjectionYear{Year: y, Revenue: revenue, EBITDA: ebitda, NetIncome: net})
	}
	return out, nil
}

// UnitEconomicsResult summarizes per-customer viability.
type UnitEconomicsResult struct {
	LTVToCACRatio   float64 `json:"ltv_to_cac_ratio"`
	MonthsToRecover float64 `json:"months_to_recover"`
	AnnualChurn     float64 `json:"annual_churn"`
	Sustainable     bool    `json:"sustainable"`
}

// UnitEconomics rejects out-of-range input rather than clamping it; a
// negative acquisition cost is a data error upstream, not a great business.
func UnitEconomics(cac, ltv, monthlyChurn, arpu float64) (UnitEconomicsResult, error) {
	if cac <= 0 {
		return UnitEconomicsResult{}, domain.InvalidArgument("customer acquisition cost must be positive")
	}
	if ltv < 0 {
		return UnitEconomicsResult{}, domain.InvalidArgument("lifetime value cannot be negative")
	}
	if monthlyChurn < 0 || monthlyChurn > 1 {
		return UnitEconomicsResult{}, domain.InvalidArgument("monthly churn must be in [0, 1]")
	}
	if arpu <= 0 {
		return UnitEconomicsResult{}, domain.InvalidArgument("average revenue per user must be positive")
	}
	ratio := ltv / cac
	return UnitEconomicsResult{
		LTVToCACRatio:   ratio,
		MonthsToRecover: cac / arpu,
		AnnualChurn:     1 - math.Pow(1-monthlyChurn, 12),
		Sustainable:     ratio > 3,
	}, nil
}

// BreakEvenUnits returns the unit volume at which contribution covers fixed
// costs.
func BreakEvenUnits(fixedCosts, pricePerUnit, variableCost float64) (float64, error) {
	if fixedCosts < 0 {
		return 0, domain.InvalidArgument("fixed costs cannot be negative")
	}
	margin := pricePerUnit - variableCost
	if margin <= 0 {
		return 0, domain.InvalidArgument("price per unit must exceed variable cost")
	}
	return fixedCosts / margin, nil
}

func ROI(gain, cost float64) (float64, error) {
	if cost <= 0 {
		return 0, domain.InvalidArgument("cost must be positive")
	}
	return (gain - cost) / cost, nil
}
