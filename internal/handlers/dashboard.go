package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/advisorly/feetrack/internal/db"
	"github.com/advisorly/feetrack/internal/httpx"
	"github.com/advisorly/feetrack/internal/models"
	"github.com/advisorly/feetrack/internal/periods"
	"github.com/advisorly/feetrack/internal/variance"
)

const recentPaymentLimit = 10

// DashboardHandler aggregates the per-client snapshot: contract, payment
// status against the arrears anchor, compliance, recent payments with
// variance, metrics and quarterly summaries.
type DashboardHandler struct {
	DB *gorm.DB
}

func NewDashboardHandler(conn *gorm.DB) *DashboardHandler {
	return &DashboardHandler{DB: conn}
}

type dashboardClient struct {
	ClientID      uint       `json:"client_id"`
	DisplayName   string     `json:"display_name"`
	FullName      string     `json:"full_name"`
	IMASignedDate *time.Time `json:"ima_signed_date,omitempty"`
}

type dashboardContract struct {
	ContractID      uint             `json:"contract_id"`
	ProviderName    string           `json:"provider_name"`
	FeeType         string           `json:"fee_type"`
	PercentRate     *decimal.Decimal `json:"percent_rate,omitempty"`
	FlatRate        *decimal.Decimal `json:"flat_rate,omitempty"`
	PaymentSchedule string           `json:"payment_schedule"`
}

type dashboardPaymentStatus struct {
	Status              string           `json:"status"` // Paid | Due
	CurrentPeriod       string           `json:"current_period"`
	CurrentPeriodNumber int              `json:"current_period_number"`
	CurrentYear         int              `json:"current_year"`
	LastPaymentDate     *time.Time       `json:"last_payment_date,omitempty"`
	LastPaymentAmount   *decimal.Decimal `json:"last_payment_amount,omitempty"`
	ExpectedFee         *decimal.Decimal `json:"expected_fee,omitempty"`
}

type dashboardCompliance struct {
	Status string `json:"status"`
	Color  string `json:"color"` // green | yellow
	Reason string `json:"reason"`
}

type dashboardPayment struct {
	PaymentID         uint             `json:"payment_id"`
	ReceivedDate      time.Time        `json:"received_date"`
	ActualFee         decimal.Decimal  `json:"actual_fee"`
	TotalAssets       decimal.Decimal  `json:"total_assets"`
	AppliedPeriod     int              `json:"applied_period"`
	AppliedYear       int              `json:"applied_year"`
	AppliedPeriodType string           `json:"applied_period_type"`
	PeriodDisplay     string           `json:"period_display"`
	VarianceAmount    *decimal.Decimal `json:"variance_amount"`
	VariancePercent   *decimal.Decimal `json:"variance_percent"`
	VarianceStatus    *string          `json:"variance_status"`
}

type dashboardMetrics struct {
	TotalYTDPayments    decimal.Decimal `json:"total_ytd_payments"`
	AvgQuarterlyPayment decimal.Decimal `json:"avg_quarterly_payment"`
	LastRecordedAssets  decimal.Decimal `json:"last_recorded_assets"`
	NextPaymentDue      *string         `json:"next_payment_due"`
}

type quarterlySummary struct {
	Quarter       int             `json:"quarter"`
	Year          int             `json:"year"`
	TotalPayments decimal.Decimal `json:"total_payments"`
	PaymentCount  int             `json:"payment_count"`
	AvgPayment    decimal.Decimal `json:"avg_payment"`
	ExpectedTotal decimal.Decimal `json:"expected_total"`
}

type dashboardResponse struct {
	Client             dashboardClient        `json:"client"`
	Contract           dashboardContract      `json:"contract"`
	PaymentStatus      dashboardPaymentStatus `json:"payment_status"`
	Compliance         dashboardCompliance    `json:"compliance"`
	RecentPayments     []dashboardPayment     `json:"recent_payments"`
	Metrics            dashboardMetrics       `json:"metrics"`
	QuarterlySummaries []quarterlySummary     `json:"quarterly_summaries"`
}

// Get: GET /dashboard/{clientID}
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(r, "clientID")
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "INVALID_ID", "client id must be a positive integer")
		return
	}
	conn := h.DB.WithContext(r.Context())

	var client models.Client
	if err := conn.Where("client_id = ? AND valid_to IS NULL", clientID).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Error(w, http.StatusNotFound, "NOT_FOUND", "client not found")
			return
		}
		httpx.Internal(w, "INTERNAL_ERROR")
		return
	}
	contract, err := activeContract(conn, clientID)
	if err != nil {
		httpx.Internal(w, "INTERNAL_ERROR")
		return
	}
	if contract == nil {
		httpx.Error(w, http.StatusNotFound, "CONTRACT_NOT_FOUND", "no active contract found for client")
		return
	}

	var payments []models.Payment
	if err := conn.Where("client_id = ? AND valid_to IS NULL", clientID).
		Order("received_date desc, payment_id desc").Find(&payments).Error; err != nil {
		httpx.Internal(w, "INTERNAL_ERROR")
		return
	}
	thresholds, err := db.LoadThresholds(conn)
	if err != nil {
		httpx.Internal(w, "INTERNAL_ERROR")
		return
	}

	now := nowFunc()
	anchor := periods.Anchor(contract.PaymentSchedule, now)
	anchorLabel := periods.Label(contract.PaymentSchedule, anchor)

	status := h.paymentStatus(*contract, payments, anchor, anchorLabel)
	compliance := dashboardCompliance{Status: "compliant", Color: "yellow",
		Reason: fmt.Sprintf("Awaiting %s payment", anchorLabel)}
	if status.Status == "Paid" {
		compliance.Color = "green"
		compliance.Reason = "Current period paid"
	}

	recent := make([]dashboardPayment, 0, recentPaymentLimit)
	for i, p := range payments {
		if i == recentPaymentLimit {
			break
		}
		expected := variance.ExpectedFee(*contract, p)
		res := variance.Classify(expected, p.ActualFee, thresholds)
		assets := decimal.Zero
		if p.TotalAssets != nil {
			assets = *p.TotalAssets
		}
		recent = append(recent, dashboardPayment{
			PaymentID:         p.PaymentID,
			ReceivedDate:      p.ReceivedDate,
			ActualFee:         p.ActualFee,
			TotalAssets:       assets,
			AppliedPeriod:     p.AppliedPeriod,
			AppliedYear:       p.AppliedYear,
			AppliedPeriodType: p.AppliedPeriodType,
			PeriodDisplay:     periods.Label(p.AppliedPeriodType, periods.Key{Year: p.AppliedYear, Period: p.AppliedPeriod}),
			VarianceAmount:    res.Amount,
			VariancePercent:   res.Percent,
			VarianceStatus:    res.Status,
		})
	}

	metrics := h.metrics(payments, now)
	summaries := h.quarterlySummaries(*contract, payments, now.Year())

	h.storeMetrics(conn, clientID, payments, metrics, now)

	httpx.JSON(w, http.StatusOK, dashboardResponse{
		Client: dashboardClient{
			ClientID:      client.ClientID,
			DisplayName:   client.DisplayName,
			FullName:      client.FullName,
			IMASignedDate: client.IMASignedDate,
		},
		Contract: dashboardContract{
			ContractID:      contract.ContractID,
			ProviderName:    contract.ProviderName,
			FeeType:         contract.FeeType,
			PercentRate:     contract.PercentRate,
			FlatRate:        contract.FlatRate,
			PaymentSchedule: contract.PaymentSchedule,
		},
		PaymentStatus:      status,
		Compliance:         compliance,
		RecentPayments:     recent,
		Metrics:            metrics,
		QuarterlySummaries: summaries,
	})
}

func (h *DashboardHandler) paymentStatus(contract models.Contract, payments []models.Payment, anchor periods.Key, anchorLabel string) dashboardPaymentStatus {
	status := dashboardPaymentStatus{
		Status:              "Due",
		CurrentPeriod:       anchorLabel,
		CurrentPeriodNumber: anchor.Period,
		CurrentYear:         anchor.Year,
	}
	for _, p := range payments {
		if p.AppliedPeriodType == contract.PaymentSchedule &&
			p.AppliedPeriod == anchor.Period && p.AppliedYear == anchor.Year {
			status.Status = "Paid"
			break
		}
	}
	if len(payments) > 0 {
		d := payments[0].ReceivedDate
		amt := payments[0].ActualFee
		status.LastPaymentDate = &d
		status.LastPaymentAmount = &amt
	}
	// Expected fee for the anchor period: flat rate directly, percentage
	// against the most recently recorded assets.
	switch contract.FeeType {
	case models.FeeTypeFlat:
		status.ExpectedFee = contract.FlatRate
	case models.FeeTypePercentage:
		if contract.PercentRate != nil {
			if assets := lastAssets(payments); assets != nil {
				fee := contract.PercentRate.Mul(*assets).Round(2)
				status.ExpectedFee = &fee
			}
		}
	}
	return status
}

func (h *DashboardHandler) metrics(payments []models.Payment, now time.Time) dashboardMetrics {
	m := dashboardMetrics{
		TotalYTDPayments:    decimal.Zero,
		AvgQuarterlyPayment: decimal.Zero,
		LastRecordedAssets:  decimal.Zero,
	}
	quarters := map[int]decimal.Decimal{}
	for _, p := range payments {
		if p.ReceivedDate.Year() == now.Year() {
			m.TotalYTDPayments = m.TotalYTDPayments.Add(p.ActualFee)
			q := (int(p.ReceivedDate.Month())-1)/3 + 1
			quarters[q] = quarters[q].Add(p.ActualFee)
		}
	}
	if len(quarters) > 0 {
		total := decimal.Zero
		for _, v := range quarters {
			total = total.Add(v)
		}
		m.AvgQuarterlyPayment = total.Div(decimal.NewFromInt(int64(len(quarters)))).Round(2)
	}
	if assets := lastAssets(payments); assets != nil {
		m.LastRecordedAssets = *assets
	}
	return m
}

// quarterlySummaries groups the current year's payments by applied quarter.
// Monthly periods fold into their containing quarter.
func (h *DashboardHandler) quarterlySummaries(contract models.Contract, payments []models.Payment, year int) []quarterlySummary {
	type bucket struct {
		total    decimal.Decimal
		expected decimal.Decimal
		count    int
	}
	buckets := map[int]*bucket{}
	for _, p := range payments {
		if p.AppliedYear != year {
			continue
		}
		q := p.AppliedPeriod
		if p.AppliedPeriodType == models.ScheduleMonthly {
			q = (p.AppliedPeriod-1)/3 + 1
		}
		b := buckets[q]
		if b == nil {
			b = &bucket{}
			buckets[q] = b
		}
		b.total = b.total.Add(p.ActualFee)
		b.count++
		if exp := variance.ExpectedFee(contract, p); exp != nil {
			b.expected = b.expected.Add(*exp)
		}
	}
	out := make([]quarterlySummary, 0, 4)
	for q := 1; q <= 4; q++ {
		b, ok := buckets[q]
		if !ok {
			continue
		}
		out = append(out, quarterlySummary{
			Quarter:       q,
			Year:          year,
			TotalPayments: b.total,
			PaymentCount:  b.count,
			AvgPayment:    b.total.Div(decimal.NewFromInt(int64(b.count))).Round(2),
			ExpectedTotal: b.expected,
		})
	}
	return out
}

// storeMetrics refreshes the client_metrics rollup. Best effort: a failed
// write never fails the dashboard read.
func (h *DashboardHandler) storeMetrics(conn *gorm.DB, clientID uint, payments []models.Payment, m dashboardMetrics, now time.Time) {
	row := models.ClientMetrics{
		ClientID:            clientID,
		TotalYTDPayments:    &m.TotalYTDPayments,
		AvgQuarterlyPayment: &m.AvgQuarterlyPayment,
		LastRecordedAssets:  &m.LastRecordedAssets,
		LastUpdated:         &now,
	}
	if len(payments) > 0 {
		d := payments[0].ReceivedDate
		amt := payments[0].ActualFee
		row.LastPaymentDate = &d
		row.LastPaymentAmount = &amt
	}
	var existing models.ClientMetrics
	err := conn.Where("client_id = ?", clientID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = conn.Create(&row).Error
	case err == nil:
		row.ID = existing.ID
		err = conn.Save(&row).Error
	}
	if err != nil {
		// Rollup refresh is advisory only.
		_ = err
	}
}

func lastAssets(payments []models.Payment) *decimal.Decimal {
	for _, p := range payments {
		if p.TotalAssets != nil && !p.TotalAssets.IsZero() {
			return p.TotalAssets
		}
	}
	return nil
}
