package handlers

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/advisorly/feetrack/internal/httpx"
	"github.com/advisorly/feetrack/internal/models"
	"github.com/advisorly/feetrack/internal/periods"
)

// PeriodHandler serves the unpaid-period catalog for payment entry.
type PeriodHandler struct {
	DB *gorm.DB
	// LookbackYears bounds the window offered to clients with no history.
	LookbackYears int
}

func NewPeriodHandler(db *gorm.DB, lookbackYears int) *PeriodHandler {
	return &PeriodHandler{DB: db, LookbackYears: lookbackYears}
}

// periodEntry is one dropdown option: the catalog row plus its value token.
type periodEntry struct {
	models.PaymentPeriod
	Value string `json:"value"`
}

// Available: GET /periods?client_id=&payment_schedule=
//
// Returns every period in [earliest payment, arrears anchor] that has no
// live payment yet, most recent first.
func (h *PeriodHandler) Available(w http.ResponseWriter, r *http.Request) {
	clientID, ok := queryID(r, "client_id")
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "client_id query parameter is required")
		return
	}
	schedule := strings.ToLower(r.URL.Query().Get("payment_schedule"))
	if !models.ValidSchedule(schedule) {
		httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "payment_schedule must be monthly or quarterly")
		return
	}

	conn := h.DB.WithContext(r.Context())
	contract, err := activeContract(conn, clientID)
	if err != nil {
		httpx.Internal(w, "PERIODS_FETCH_ERROR")
		return
	}
	if contract == nil {
		httpx.Error(w, http.StatusNotFound, "CONTRACT_NOT_FOUND", "no active contract found for client")
		return
	}
	if !strings.EqualFold(contract.PaymentSchedule, schedule) {
		httpx.Error(w, http.StatusBadRequest, "SCHEDULE_MISMATCH", "payment schedule does not match contract schedule")
		return
	}

	earliest, err := earliestPaidKey(conn, clientID, schedule)
	if err != nil {
		httpx.Internal(w, "PERIODS_FETCH_ERROR")
		return
	}
	keys := periods.Resolve(schedule, earliest, nowFunc(), h.LookbackYears)
	if len(keys) == 0 {
		httpx.JSON(w, http.StatusOK, []periodEntry{})
		return
	}

	paid, err := paidKeys(conn, clientID, schedule)
	if err != nil {
		httpx.Internal(w, "PERIODS_FETCH_ERROR")
		return
	}
	catalog, err := catalogByKey(conn, schedule, keys[len(keys)-1].Year, keys[0].Year)
	if err != nil {
		httpx.Internal(w, "PERIODS_FETCH_ERROR")
		return
	}

	out := make([]periodEntry, 0, len(keys))
	for _, k := range keys {
		if paid[k] {
			continue
		}
		row, ok := catalog[k]
		if !ok {
			// Outside the pre-generated catalog range; synthesize the entry.
			start, end := periods.Span(schedule, k)
			row = models.PaymentPeriod{
				PeriodType: schedule,
				Year:       k.Year,
				Period:     k.Period,
				PeriodName: periods.Label(schedule, k),
				StartDate:  start,
				EndDate:    end,
			}
		}
		out = append(out, periodEntry{PaymentPeriod: row, Value: periods.Token(k)})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func earliestPaidKey(conn *gorm.DB, clientID uint, schedule string) (*periods.Key, error) {
	var p models.Payment
	err := conn.Where("client_id = ? AND valid_to IS NULL AND applied_period_type = ?", clientID, schedule).
		Order("applied_year asc, applied_period asc").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &periods.Key{Year: p.AppliedYear, Period: p.AppliedPeriod}, nil
}

func paidKeys(conn *gorm.DB, clientID uint, schedule string) (map[periods.Key]bool, error) {
	var rows []models.Payment
	err := conn.Select("applied_year, applied_period").
		Where("client_id = ? AND valid_to IS NULL AND applied_period_type = ?", clientID, schedule).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[periods.Key]bool{}
	for _, p := range rows {
		out[periods.Key{Year: p.AppliedYear, Period: p.AppliedPeriod}] = true
	}
	return out, nil
}

func catalogByKey(conn *gorm.DB, schedule string, minYear, maxYear int) (map[periods.Key]models.PaymentPeriod, error) {
	var rows []models.PaymentPeriod
	err := conn.Where("period_type = ? AND year BETWEEN ? AND ?", schedule, minYear, maxYear).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[periods.Key]models.PaymentPeriod{}
	for _, p := range rows {
		out[periods.Key{Year: p.Year, Period: p.Period}] = p
	}
	return out, nil
}
