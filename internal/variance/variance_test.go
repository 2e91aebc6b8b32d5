package variance

import (
	"testing"

	"github.com/advisorly/feetrack/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestClassifyExactMatch(t *testing.T) {
	// percentage contract at 25bps on $1M: expected 2500, actual 2500
	res := Classify(decp("2500"), dec("2500"), DefaultThresholds())
	require.NotNil(t, res.Status)
	assert.Equal(t, StatusExact, *res.Status)
	assert.True(t, res.Amount.IsZero())
	assert.True(t, res.Percent.IsZero())
}

func TestClassifyLargeNegativeDeviation(t *testing.T) {
	res := Classify(decp("2500"), dec("1000"), DefaultThresholds())
	require.NotNil(t, res.Status)
	assert.Equal(t, StatusAlert, *res.Status)
	assert.True(t, res.Amount.Equal(dec("-1500")), "amount=%s", res.Amount)
	assert.True(t, res.Percent.Equal(dec("-60")), "percent=%s", res.Percent)
}

func TestClassifyNilExpected(t *testing.T) {
	res := Classify(nil, dec("2500"), DefaultThresholds())
	assert.Nil(t, res.Status)
	assert.Nil(t, res.Percent)
	assert.Nil(t, res.Amount)
}

func TestClassifyZeroExpected(t *testing.T) {
	res := Classify(decp("0"), dec("2500"), DefaultThresholds())
	assert.Nil(t, res.Status, "zero expected must never classify as exact")
	assert.Nil(t, res.Percent)
	require.NotNil(t, res.Amount)
	assert.True(t, res.Amount.Equal(dec("2500")))
}

func TestClassifyTierBands(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		actual string
		want   string
	}{
		{"2500", StatusExact},
		{"2510", StatusAcceptable}, // +0.4%
		{"2625", StatusAcceptable}, // +5% boundary, inclusive
		{"2700", StatusWarning},    // +8%
		{"2875", StatusWarning},    // +15% boundary, inclusive
		{"3000", StatusAlert},      // +20%
		{"2300", StatusWarning},    // -8%
	}
	for _, c := range cases {
		res := Classify(decp("2500"), dec(c.actual), th)
		require.NotNil(t, res.Status, "actual=%s", c.actual)
		assert.Equal(t, c.want, *res.Status, "actual=%s", c.actual)
	}
}

// Severity never decreases as the absolute deviation grows.
func TestClassifyMonotonic(t *testing.T) {
	th := DefaultThresholds()
	rank := map[string]int{StatusExact: 0, StatusAcceptable: 1, StatusWarning: 2, StatusAlert: 3}
	expected := decp("2000")
	prev := -1
	for cents := int64(0); cents <= 100000; cents += 500 {
		actual := dec("2000").Add(decimal.New(cents, -2))
		res := Classify(expected, actual, th)
		require.NotNil(t, res.Status)
		r := rank[*res.Status]
		assert.GreaterOrEqual(t, r, prev, "severity regressed at +%d cents", cents)
		prev = r
	}
}

func TestFromRowsOrdersByRank(t *testing.T) {
	rows := []models.VarianceThreshold{
		{Status: StatusWarning, MaxPercent: dec("15"), Rank: 3},
		{Status: StatusExact, MaxPercent: dec("0.01"), Rank: 1},
		{Status: StatusAcceptable, MaxPercent: dec("5"), Rank: 2},
	}
	th := FromRows(rows)
	require.Len(t, th, 3)
	assert.Equal(t, StatusExact, th[0].Status)
	assert.Equal(t, StatusWarning, th[2].Status)
}

func TestExpectedFeePercentageRecomputes(t *testing.T) {
	rate := dec("0.0025")
	assets := dec("1000000")
	stale := dec("9999") // stored value is wrong on purpose
	c := models.Contract{FeeType: models.FeeTypePercentage, PercentRate: &rate}
	p := models.Payment{TotalAssets: &assets, ExpectedFee: &stale}
	fee := ExpectedFee(c, p)
	require.NotNil(t, fee)
	assert.True(t, fee.Equal(dec("2500")), "fee=%s", fee)
}

func TestExpectedFeeFlat(t *testing.T) {
	flat := dec("750")
	c := models.Contract{FeeType: models.FeeTypeFlat, FlatRate: &flat}
	fee := ExpectedFee(c, models.Payment{})
	require.NotNil(t, fee)
	assert.True(t, fee.Equal(dec("750")))
}

func TestExpectedFeeFallsBackToStored(t *testing.T) {
	rate := dec("0.0025")
	stored := dec("1800")
	c := models.Contract{FeeType: models.FeeTypePercentage, PercentRate: &rate}
	p := models.Payment{ExpectedFee: &stored} // no assets recorded
	fee := ExpectedFee(c, p)
	require.NotNil(t, fee)
	assert.True(t, fee.Equal(dec("1800")))
}

func TestExpectedFeeNothingAvailable(t *testing.T) {
	c := models.Contract{FeeType: models.FeeTypePercentage}
	assert.Nil(t, ExpectedFee(c, models.Payment{}))
}
