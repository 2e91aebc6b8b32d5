package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fee types and payment schedules recorded on contracts.
const (
	FeeTypeFlat       = "flat"
	FeeTypePercentage = "percentage"

	ScheduleMonthly   = "monthly"
	ScheduleQuarterly = "quarterly"
)

// Contract belongs to exactly one client. Exactly one of FlatRate/PercentRate
// is populated, consistent with FeeType.
type Contract struct {
	ContractID        uint             `gorm:"column:contract_id;primaryKey" json:"contract_id"`
	ClientID          uint             `gorm:"column:client_id;not null;index" json:"client_id"`
	ContractNumber    *string          `gorm:"column:contract_number;size:100" json:"contract_number,omitempty"`
	ProviderName      string           `gorm:"column:provider_name;size:255;not null" json:"provider_name"`
	ContractStartDate *time.Time       `gorm:"column:contract_start_date" json:"contract_start_date,omitempty"`
	FeeType           string           `gorm:"column:fee_type;size:50;not null" json:"fee_type"`
	PercentRate       *decimal.Decimal `gorm:"column:percent_rate;type:numeric(10,6)" json:"percent_rate,omitempty"`
	FlatRate          *decimal.Decimal `gorm:"column:flat_rate;type:numeric(12,2)" json:"flat_rate,omitempty"`
	PaymentSchedule   string           `gorm:"column:payment_schedule;size:50;not null" json:"payment_schedule"`
	NumPeople         *int             `gorm:"column:num_people" json:"num_people,omitempty"`
	Notes             *string          `gorm:"column:notes" json:"notes,omitempty"`
	ValidFrom         time.Time        `gorm:"column:valid_from;autoCreateTime" json:"valid_from"`
	ValidTo           *time.Time       `gorm:"column:valid_to;index" json:"valid_to,omitempty"`
}

func (Contract) TableName() string { return "contracts" }

// ContractPatch carries per-field optionality for partial updates.
type ContractPatch struct {
	ContractNumber    *string          `json:"contract_number"`
	ProviderName      *string          `json:"provider_name"`
	ContractStartDate *time.Time       `json:"contract_start_date"`
	FeeType           *string          `json:"fee_type"`
	PercentRate       *decimal.Decimal `json:"percent_rate"`
	FlatRate          *decimal.Decimal `json:"flat_rate"`
	PaymentSchedule   *string          `json:"payment_schedule"`
	NumPeople         *int             `json:"num_people"`
	Notes             *string          `json:"notes"`
}

func (p ContractPatch) Changes() map[string]any {
	m := map[string]any{}
	if p.ContractNumber != nil {
		m["contract_number"] = *p.ContractNumber
	}
	if p.ProviderName != nil {
		m["provider_name"] = *p.ProviderName
	}
	if p.ContractStartDate != nil {
		m["contract_start_date"] = *p.ContractStartDate
	}
	if p.FeeType != nil {
		m["fee_type"] = *p.FeeType
	}
	if p.PercentRate != nil {
		m["percent_rate"] = *p.PercentRate
	}
	if p.FlatRate != nil {
		m["flat_rate"] = *p.FlatRate
	}
	if p.PaymentSchedule != nil {
		m["payment_schedule"] = *p.PaymentSchedule
	}
	if p.NumPeople != nil {
		m["num_people"] = *p.NumPeople
	}
	if p.Notes != nil {
		m["notes"] = *p.Notes
	}
	return m
}

// ValidSchedule reports whether s is a known payment schedule.
func ValidSchedule(s string) bool {
	return s == ScheduleMonthly || s == ScheduleQuarterly
}

// ValidFeeType reports whether s is a known fee type.
func ValidFeeType(s string) bool {
	return s == FeeTypeFlat || s == FeeTypePercentage
}
