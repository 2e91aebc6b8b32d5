package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VarianceThreshold is reference data: the upper bound (in absolute percent)
// of one classification tier. Rows are ordered by Rank ascending; a variance
// falling above every bound classifies as the alert tier.
type VarianceThreshold struct {
	ID         uint            `gorm:"primaryKey" json:"-"`
	Status     string          `gorm:"column:status;size:20;not null;uniqueIndex" json:"status"`
	MaxPercent decimal.Decimal `gorm:"column:max_percent;type:numeric(8,4);not null" json:"max_percent"`
	Rank       int             `gorm:"column:rank;not null" json:"rank"`
}

func (VarianceThreshold) TableName() string { return "variance_thresholds" }

// ClientMetrics is a per-client rollup refreshed from payment history.
type ClientMetrics struct {
	ID                  uint             `gorm:"primaryKey" json:"id"`
	ClientID            uint             `gorm:"column:client_id;not null;uniqueIndex" json:"client_id"`
	LastPaymentDate     *time.Time       `gorm:"column:last_payment_date" json:"last_payment_date,omitempty"`
	LastPaymentAmount   *decimal.Decimal `gorm:"column:last_payment_amount;type:numeric(12,2)" json:"last_payment_amount,omitempty"`
	TotalYTDPayments    *decimal.Decimal `gorm:"column:total_ytd_payments;type:numeric(14,2)" json:"total_ytd_payments,omitempty"`
	AvgQuarterlyPayment *decimal.Decimal `gorm:"column:avg_quarterly_payment;type:numeric(12,2)" json:"avg_quarterly_payment,omitempty"`
	LastRecordedAssets  *decimal.Decimal `gorm:"column:last_recorded_assets;type:numeric(14,2)" json:"last_recorded_assets,omitempty"`
	LastUpdated         *time.Time       `gorm:"column:last_updated" json:"last_updated,omitempty"`
	NextPaymentDue      *time.Time       `gorm:"column:next_payment_due" json:"next_payment_due,omitempty"`
}

func (ClientMetrics) TableName() string { return "client_metrics" }
