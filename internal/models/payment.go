package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment records a received fee applied to a single billing period.
// ClientID is carried redundantly alongside ContractID for query convenience.
type Payment struct {
	PaymentID         uint             `gorm:"column:payment_id;primaryKey" json:"payment_id"`
	ContractID        uint             `gorm:"column:contract_id;not null;index" json:"contract_id"`
	ClientID          uint             `gorm:"column:client_id;not null;index" json:"client_id"`
	ReceivedDate      time.Time        `gorm:"column:received_date;not null" json:"received_date"`
	TotalAssets       *decimal.Decimal `gorm:"column:total_assets;type:numeric(14,2)" json:"total_assets,omitempty"`
	ExpectedFee       *decimal.Decimal `gorm:"column:expected_fee;type:numeric(12,2)" json:"expected_fee,omitempty"`
	ActualFee         decimal.Decimal  `gorm:"column:actual_fee;type:numeric(12,2);not null" json:"actual_fee"`
	Method            *string          `gorm:"column:method;size:50" json:"method,omitempty"`
	Notes             *string          `gorm:"column:notes" json:"notes,omitempty"`
	AppliedPeriodType string           `gorm:"column:applied_period_type;size:10;not null" json:"applied_period_type"`
	AppliedPeriod     int              `gorm:"column:applied_period;not null" json:"applied_period"`
	AppliedYear       int              `gorm:"column:applied_year;not null" json:"applied_year"`
	ValidFrom         time.Time        `gorm:"column:valid_from;autoCreateTime" json:"valid_from"`
	ValidTo           *time.Time       `gorm:"column:valid_to;index" json:"valid_to,omitempty"`
}

func (Payment) TableName() string { return "payments" }

// PaymentPatch carries per-field optionality for partial updates.
type PaymentPatch struct {
	ReceivedDate      *time.Time       `json:"received_date"`
	TotalAssets       *decimal.Decimal `json:"total_assets"`
	ExpectedFee       *decimal.Decimal `json:"expected_fee"`
	ActualFee         *decimal.Decimal `json:"actual_fee"`
	Method            *string          `json:"method"`
	Notes             *string          `json:"notes"`
	AppliedPeriodType *string          `json:"applied_period_type"`
	AppliedPeriod     *int             `json:"applied_period"`
	AppliedYear       *int             `json:"applied_year"`
}

func (p PaymentPatch) Changes() map[string]any {
	m := map[string]any{}
	if p.ReceivedDate != nil {
		m["received_date"] = *p.ReceivedDate
	}
	if p.TotalAssets != nil {
		m["total_assets"] = *p.TotalAssets
	}
	if p.ExpectedFee != nil {
		m["expected_fee"] = *p.ExpectedFee
	}
	if p.ActualFee != nil {
		m["actual_fee"] = *p.ActualFee
	}
	if p.Method != nil {
		m["method"] = *p.Method
	}
	if p.Notes != nil {
		m["notes"] = *p.Notes
	}
	if p.AppliedPeriodType != nil {
		m["applied_period_type"] = *p.AppliedPeriodType
	}
	if p.AppliedPeriod != nil {
		m["applied_period"] = *p.AppliedPeriod
	}
	if p.AppliedYear != nil {
		m["applied_year"] = *p.AppliedYear
	}
	return m
}
