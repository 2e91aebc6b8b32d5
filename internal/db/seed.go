package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/advisorly/feetrack/internal/models"
	"github.com/advisorly/feetrack/internal/periods"
	"github.com/advisorly/feetrack/internal/variance"
)

// Seed populates reference data: the classification threshold table and the
// pre-generated period catalog. Idempotent; existing rows are left alone.
func Seed(conn *gorm.DB, catalogStart, catalogEnd int) error {
	if err := seedThresholds(conn); err != nil {
		return err
	}
	return seedPeriods(conn, catalogStart, catalogEnd)
}

func seedThresholds(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&models.VarianceThreshold{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count thresholds: %w", err)
	}
	if count > 0 {
		return nil
	}
	defaults := variance.DefaultThresholds()
	rows := make([]models.VarianceThreshold, 0, len(defaults))
	for i, t := range defaults {
		rows = append(rows, models.VarianceThreshold{
			Status:     t.Status,
			MaxPercent: t.MaxPercent,
			Rank:       i + 1,
		})
	}
	if err := conn.Create(&rows).Error; err != nil {
		return fmt.Errorf("seed thresholds: %w", err)
	}
	return nil
}

func seedPeriods(conn *gorm.DB, startYear, endYear int) error {
	var count int64
	if err := conn.Model(&models.PaymentPeriod{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count periods: %w", err)
	}
	if count > 0 {
		return nil
	}
	catalog := periods.Generate(startYear, endYear, time.Now())
	if len(catalog) == 0 {
		return nil
	}
	if err := conn.CreateInBatches(catalog, 200).Error; err != nil {
		return fmt.Errorf("seed periods: %w", err)
	}
	return nil
}

// LoadThresholds reads the threshold reference table, falling back to the
// built-in defaults when the table is empty.
func LoadThresholds(conn *gorm.DB) (variance.Thresholds, error) {
	var rows []models.VarianceThreshold
	if err := conn.Order("rank asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load thresholds: %w", err)
	}
	if len(rows) == 0 {
		return variance.DefaultThresholds(), nil
	}
	return variance.FromRows(rows), nil
}
