package models

import "time"

// PaymentPeriod is an immutable catalog entry: one billing period with its
// display label and calendar span. Pre-generated for a fixed year range.
type PaymentPeriod struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	PeriodType string    `gorm:"column:period_type;size:10;not null;uniqueIndex:idx_period_key" json:"period_type"`
	Year       int       `gorm:"column:year;not null;uniqueIndex:idx_period_key" json:"year"`
	Period     int       `gorm:"column:period;not null;uniqueIndex:idx_period_key" json:"period"`
	PeriodName string    `gorm:"column:period_name;size:50;not null" json:"period_name"`
	StartDate  time.Time `gorm:"column:start_date;not null" json:"start_date"`
	EndDate    time.Time `gorm:"column:end_date;not null" json:"end_date"`
	IsCurrent  bool      `gorm:"column:is_current;not null;default:false" json:"is_current"`
}

func (PaymentPeriod) TableName() string { return "payment_periods" }
