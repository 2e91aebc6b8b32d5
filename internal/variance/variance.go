// Package variance classifies the deviation between expected and actual fee
// amounts. Classification is a pure function of the two fees and the
// threshold configuration loaded from the variance_thresholds table.
package variance

import (
	"sort"

	"github.com/advisorly/feetrack/internal/models"
	"github.com/shopspring/decimal"
)

// Classification tiers, least to most severe.
const (
	StatusExact      = "exact"
	StatusAcceptable = "acceptable"
	StatusWarning    = "warning"
	StatusAlert      = "alert"
)

var hundred = decimal.NewFromInt(100)

// Threshold is one tier bound: variances with |percent| <= MaxPercent and not
// captured by a smaller bound classify as Status.
type Threshold struct {
	Status     string
	MaxPercent decimal.Decimal
}

// Thresholds is the ordered tier table, smallest bound first. Anything above
// the last bound classifies as alert.
type Thresholds []Threshold

// DefaultThresholds returns the seed configuration: exact within 0.01%,
// acceptable within 5%, warning within 15%, alert beyond.
func DefaultThresholds() Thresholds {
	return Thresholds{
		{Status: StatusExact, MaxPercent: decimal.RequireFromString("0.01")},
		{Status: StatusAcceptable, MaxPercent: decimal.NewFromInt(5)},
		{Status: StatusWarning, MaxPercent: decimal.NewFromInt(15)},
	}
}

// FromRows converts threshold reference rows into a classification table,
// ordered by rank.
func FromRows(rows []models.VarianceThreshold) Thresholds {
	sorted := make([]models.VarianceThreshold, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })
	out := make(Thresholds, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, Threshold{Status: r.Status, MaxPercent: r.MaxPercent})
	}
	return out
}

// Result is the computed variance for one payment. Percent and Status are nil
// when no meaningful expected fee exists; Amount is nil only when the
// expected fee is entirely unknown.
type Result struct {
	Amount  *decimal.Decimal `json:"variance_amount"`
	Percent *decimal.Decimal `json:"variance_percent"`
	Status  *string          `json:"variance_status"`
}

// Classify computes actual - expected, the percentage deviation, and the tier.
// A nil or zero expected fee yields a nil status: stored expected fees are
// frequently unreliable and a missing baseline must never read as "exact".
func Classify(expected *decimal.Decimal, actual decimal.Decimal, th Thresholds) Result {
	if expected == nil {
		return Result{}
	}
	amount := actual.Sub(*expected)
	if expected.IsZero() {
		return Result{Amount: &amount}
	}
	percent := amount.Div(*expected).Mul(hundred)
	abs := percent.Abs()
	status := StatusAlert
	for _, t := range th {
		if abs.LessThanOrEqual(t.MaxPercent) {
			status = t.Status
			break
		}
	}
	return Result{Amount: &amount, Percent: &percent, Status: &status}
}

// ExpectedFee recomputes the authoritative expected fee for a payment from
// its contract: percent_rate x total_assets for percentage contracts (when
// assets were recorded), flat_rate for flat contracts. Falls back to the
// stored expected_fee when recomputation is impossible; nil when nothing is
// available.
func ExpectedFee(contract models.Contract, payment models.Payment) *decimal.Decimal {
	switch contract.FeeType {
	case models.FeeTypePercentage:
		if contract.PercentRate != nil && payment.TotalAssets != nil && !payment.TotalAssets.IsZero() {
			fee := contract.PercentRate.Mul(*payment.TotalAssets).Round(2)
			return &fee
		}
	case models.FeeTypeFlat:
		if contract.FlatRate != nil {
			fee := *contract.FlatRate
			return &fee
		}
	}
	if payment.ExpectedFee != nil && !payment.ExpectedFee.IsZero() {
		fee := *payment.ExpectedFee
		return &fee
	}
	return nil
}
