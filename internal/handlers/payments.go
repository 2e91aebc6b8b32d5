package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/advisorly/feetrack/internal/db"
	"github.com/advisorly/feetrack/internal/httpx"
	"github.com/advisorly/feetrack/internal/models"
	"github.com/advisorly/feetrack/internal/periods"
	"github.com/advisorly/feetrack/internal/variance"
)

// PaymentHandler serves payment CRUD. Responses carry computed variance
// fields; the expected fee is recomputed from the contract wherever possible
// rather than trusted from the stored column.
type PaymentHandler struct {
	DB *gorm.DB
}

func NewPaymentHandler(conn *gorm.DB) *PaymentHandler {
	return &PaymentHandler{DB: conn}
}

// paymentWithVariance is the payment response shape.
type paymentWithVariance struct {
	models.Payment
	VarianceAmount  *decimal.Decimal `json:"variance_amount"`
	VariancePercent *decimal.Decimal `json:"variance_percent"`
	VarianceStatus  *string          `json:"variance_status"`
}

// List: GET /payments?client_id=&page=&limit=&year=
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID, ok := queryID(r, "client_id")
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "client_id query parameter is required")
		return
	}
	page, limit := pagination(r)

	conn := h.DB.WithContext(r.Context())
	q := conn.Where("client_id = ? AND valid_to IS NULL", clientID)
	if v := r.URL.Query().Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "year must be an integer")
			return
		}
		q = q.Where("applied_year = ?", year)
	}
	var payments []models.Payment
	err := q.Order("received_date desc, payment_id desc").
		Limit(limit).Offset((page - 1) * limit).
		Find(&payments).Error
	if err != nil {
		httpx.Internal(w, "PAYMENT_FETCH_ERROR")
		return
	}

	out, err := h.withVariance(conn, payments)
	if err != nil {
		httpx.Internal(w, "PAYMENT_FETCH_ERROR")
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createPaymentReq struct {
	ContractID        uint             `json:"contract_id"`
	ClientID          uint             `json:"client_id"`
	ReceivedDate      string           `json:"received_date"`
	TotalAssets       *decimal.Decimal `json:"total_assets"`
	ExpectedFee       *decimal.Decimal `json:"expected_fee"`
	ActualFee         decimal.Decimal  `json:"actual_fee"`
	Method            *string          `json:"method"`
	Notes             *string          `json:"notes"`
	AppliedPeriodType string           `json:"applied_period_type"`
	AppliedPeriod     int              `json:"applied_period"`
	AppliedYear       int              `json:"applied_year"`
}

// Create: POST /payments. A payment applies to a single period only.
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPaymentReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
		return
	}
	if req.ClientID == 0 || req.ContractID == 0 {
		httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "client_id and contract_id are required")
		return
	}
	if !models.ValidSchedule(req.AppliedPeriodType) {
		httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "applied_period_type must be monthly or quarterly")
		return
	}
	if !periods.ValidPeriod(req.AppliedPeriodType, req.AppliedPeriod) {
		httpx.Error(w, http.StatusBadRequest, "INVALID_PERIOD", "applied_period out of range for the period type")
		return
	}
	if req.AppliedYear < 1900 {
		httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "applied_year is required")
		return
	}
	if !req.ActualFee.IsPositive() {
		httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "actual_fee must be greater than zero")
		return
	}
	received, err := parseDate(req.ReceivedDate)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "INVALID_DATE", "received_date must be YYYY-MM-DD")
		return
	}

	conn := h.DB.WithContext(r.Context())
	var count int64
	if err := conn.Model(&models.Client{}).Where("client_id = ? AND valid_to IS NULL", req.ClientID).Count(&count).Error; err != nil {
		httpx.Internal(w, "PAYMENT_CREATE_ERROR")
		return
	}
	if count == 0 {
		httpx.Error(w, http.StatusNotFound, "CLIENT_NOT_FOUND", "client not found")
		return
	}
	if err := conn.Model(&models.Contract{}).Where("contract_id = ? AND valid_to IS NULL", req.ContractID).Count(&count).Error; err != nil {
		httpx.Internal(w, "PAYMENT_CREATE_ERROR")
		return
	}
	if count == 0 {
		httpx.Error(w, http.StatusNotFound, "CONTRACT_NOT_FOUND", "contract not found")
		return
	}

	// At most one live payment per (client, period type, period, year).
	// The Postgres schema backs this with a partial unique index; the check
	// here keeps other engines honest and gives a clean error.
	key := periods.Key{Year: req.AppliedYear, Period: req.AppliedPeriod}
	paid, err := periodPaid(conn, req.ClientID, req.AppliedPeriodType, key)
	if err != nil {
		httpx.Internal(w, "PAYMENT_CREATE_ERROR")
		return
	}
	if paid {
		httpx.Error(w, http.StatusBadRequest, "DUPLICATE_PERIOD", "a payment already exists for this period")
		return
	}

	payment := models.Payment{
		ContractID:        req.ContractID,
		ClientID:          req.ClientID,
		ReceivedDate:      received,
		TotalAssets:       req.TotalAssets,
		ExpectedFee:       req.ExpectedFee,
		ActualFee:         req.ActualFee,
		Method:            req.Method,
		Notes:             req.Notes,
		AppliedPeriodType: req.AppliedPeriodType,
		AppliedPeriod:     req.AppliedPeriod,
		AppliedYear:       req.AppliedYear,
	}
	if err := conn.Create(&payment).Error; err != nil {
		httpx.Internal(w, "PAYMENT_CREATE_ERROR")
		return
	}
	out, err := h.withVariance(conn, []models.Payment{payment})
	if err != nil {
		httpx.Internal(w, "PAYMENT_CREATE_ERROR")
		return
	}
	httpx.JSON(w, http.StatusCreated, out[0])
}

type updatePaymentReq struct {
	ReceivedDate      *string          `json:"received_date"`
	TotalAssets       *decimal.Decimal `json:"total_assets"`
	ExpectedFee       *decimal.Decimal `json:"expected_fee"`
	ActualFee         *decimal.Decimal `json:"actual_fee"`
	Method            *string          `json:"method"`
	Notes             *string          `json:"notes"`
	AppliedPeriodType *string          `json:"applied_period_type"`
	AppliedPeriod     *int             `json:"applied_period"`
	AppliedYear       *int             `json:"applied_year"`
}

// Update: PUT /payments/{id}. Partial, field-presence driven.
func (h *PaymentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "INVALID_ID", "payment id must be a positive integer")
		return
	}
	var req updatePaymentReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
		return
	}
	received, err := parseDatePtr(req.ReceivedDate)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "INVALID_DATE", "received_date must be YYYY-MM-DD")
		return
	}
	if req.ActualFee != nil && !req.ActualFee.IsPositive() {
		httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "actual_fee must be greater than zero")
		return
	}

	conn := h.DB.WithContext(r.Context())
	var existing models.Payment
	if err := conn.Where("payment_id = ? AND valid_to IS NULL", id).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Error(w, http.StatusNotFound, "PAYMENT_NOT_FOUND", "payment not found")
			return
		}
		httpx.Internal(w, "PAYMENT_UPDATE_ERROR")
		return
	}

	// Validate the applied period as it will be after the patch.
	periodType := existing.AppliedPeriodType
	if req.AppliedPeriodType != nil {
		periodType = *req.AppliedPeriodType
	}
	period := existing.AppliedPeriod
	if req.AppliedPeriod != nil {
		period = *req.AppliedPeriod
	}
	year := existing.AppliedYear
	if req.AppliedYear != nil {
		year = *req.AppliedYear
	}
	if !models.ValidSchedule(periodType) {
		httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "applied_period_type must be monthly or quarterly")
		return
	}
	if !periods.ValidPeriod(periodType, period) {
		httpx.Error(w, http.StatusBadRequest, "INVALID_PERIOD", "applied_period out of range for the period type")
		return
	}
	periodChanged := periodType != existing.AppliedPeriodType ||
		period != existing.AppliedPeriod || year != existing.AppliedYear
	if periodChanged {
		paid, err := periodPaid(conn, existing.ClientID, periodType, periods.Key{Year: year, Period: period})
		if err != nil {
			httpx.Internal(w, "PAYMENT_UPDATE_ERROR")
			return
		}
		if paid {
			httpx.Error(w, http.StatusBadRequest, "DUPLICATE_PERIOD", "a payment already exists for this period")
			return
		}
	}

	patch := models.PaymentPatch{
		ReceivedDate:      received,
		TotalAssets:       req.TotalAssets,
		ExpectedFee:       req.ExpectedFee,
		ActualFee:         req.ActualFee,
		Method:            req.Method,
		Notes:             req.Notes,
		AppliedPeriodType: req.AppliedPeriodType,
		AppliedPeriod:     req.AppliedPeriod,
		AppliedYear:       req.AppliedYear,
	}
	changes := patch.Changes()
	if len(changes) == 0 {
		httpx.Error(w, http.StatusBadRequest, "NO_FIELDS", "no fields to update")
		return
	}
	if err := conn.Model(&existing).Updates(changes).Error; err != nil {
		httpx.Internal(w, "PAYMENT_UPDATE_ERROR")
		return
	}
	var updated models.Payment
	if err := conn.Where("payment_id = ?", id).First(&updated).Error; err != nil {
		httpx.Internal(w, "PAYMENT_UPDATE_ERROR")
		return
	}
	out, err := h.withVariance(conn, []models.Payment{updated})
	if err != nil {
		httpx.Internal(w, "PAYMENT_UPDATE_ERROR")
		return
	}
	httpx.JSON(w, http.StatusOK, out[0])
}

// Delete: DELETE /payments/{id}. Closes the validity interval; a second
// delete is a 404.
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "INVALID_ID", "payment id must be a positive integer")
		return
	}
	res := h.DB.WithContext(r.Context()).
		Model(&models.Payment{}).
		Where("payment_id = ? AND valid_to IS NULL", id).
		Update("valid_to", nowFunc())
	if res.Error != nil {
		httpx.Internal(w, "PAYMENT_DELETE_ERROR")
		return
	}
	if res.RowsAffected == 0 {
		httpx.Error(w, http.StatusNotFound, "PAYMENT_NOT_FOUND", "payment not found or already deleted")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "payment deleted successfully"})
}

// withVariance decorates payments with computed variance fields. Contracts
// are fetched once per distinct contract id.
func (h *PaymentHandler) withVariance(conn *gorm.DB, payments []models.Payment) ([]paymentWithVariance, error) {
	thresholds, err := db.LoadThresholds(conn)
	if err != nil {
		return nil, err
	}
	contractIDs := make([]uint, 0, len(payments))
	seen := map[uint]bool{}
	for _, p := range payments {
		if !seen[p.ContractID] {
			seen[p.ContractID] = true
			contractIDs = append(contractIDs, p.ContractID)
		}
	}
	contracts := map[uint]models.Contract{}
	if len(contractIDs) > 0 {
		var rows []models.Contract
		if err := conn.Where("contract_id IN ?", contractIDs).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, c := range rows {
			contracts[c.ContractID] = c
		}
	}
	out := make([]paymentWithVariance, 0, len(payments))
	for _, p := range payments {
		expected := p.ExpectedFee
		if c, ok := contracts[p.ContractID]; ok {
			expected = variance.ExpectedFee(c, p)
		}
		res := variance.Classify(expected, p.ActualFee, thresholds)
		out = append(out, paymentWithVariance{
			Payment:         p,
			VarianceAmount:  res.Amount,
			VariancePercent: res.Percent,
			VarianceStatus:  res.Status,
		})
	}
	return out, nil
}
