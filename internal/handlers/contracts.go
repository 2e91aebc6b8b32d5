package handlers

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/advisorly/feetrack/internal/httpx"
	"github.com/advisorly/feetrack/internal/models"
)

// ContractHandler serves contract CRUD. Fee-type/rate pairing is enforced
// before any write: percentage requires percent_rate, flat requires flat_rate.
type ContractHandler struct {
	DB *gorm.DB
}

func NewContractHandler(db *gorm.DB) *ContractHandler {
	return &ContractHandler{DB: db}
}

// ListByClient: GET /contracts/client/{clientID}
func (h *ContractHandler) ListByClient(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(r, "clientID")
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "INVALID_ID", "client id must be a positive integer")
		return
	}
	var contracts []models.Contract
	err := h.DB.WithContext(r.Context()).
		Where("client_id = ? AND valid_to IS NULL", clientID).
		Order("contract_start_date desc").
		Find(&contracts).Error
	if err != nil {
		httpx.Internal(w, "CONTRACT_FETCH_ERROR")
		return
	}
	httpx.JSON(w, http.StatusOK, contracts)
}

type createContractReq struct {
	ClientID          uint             `json:"client_id"`
	ContractNumber    *string          `json:"contract_number"`
	ProviderName      string           `json:"provider_name"`
	ContractStartDate *string          `json:"contract_start_date"`
	FeeType           string           `json:"fee_type"`
	PercentRate       *decimal.Decimal `json:"percent_rate"`
	FlatRate          *decimal.Decimal `json:"flat_rate"`
	PaymentSchedule   string           `json:"payment_schedule"`
	NumPeople         *int             `json:"num_people"`
	Notes             *string          `json:"notes"`
}

// Create: POST /contracts
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createContractReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
		return
	}
	if req.ClientID == 0 || req.ProviderName == "" {
		httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "client_id and provider_name are required")
		return
	}
	if !models.ValidFeeType(req.FeeType) {
		httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "fee_type must be flat or percentage")
		return
	}
	if !models.ValidSchedule(req.PaymentSchedule) {
		httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "payment_schedule must be monthly or quarterly")
		return
	}
	if req.FeeType == models.FeeTypePercentage && req.PercentRate == nil {
		httpx.Error(w, http.StatusBadRequest, "RATE_REQUIRED", "percentage rate required for percentage fee type")
		return
	}
	if req.FeeType == models.FeeTypeFlat && req.FlatRate == nil {
		httpx.Error(w, http.StatusBadRequest, "RATE_REQUIRED", "flat rate required for flat fee type")
		return
	}
	startDate, err := parseDatePtr(req.ContractStartDate)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "INVALID_DATE", "contract_start_date must be YYYY-MM-DD")
		return
	}

	db := h.DB.WithContext(r.Context())
	var count int64
	if err := db.Model(&models.Client{}).Where("client_id = ? AND valid_to IS NULL", req.ClientID).Count(&count).Error; err != nil {
		httpx.Internal(w, "CONTRACT_CREATE_ERROR")
		return
	}
	if count == 0 {
		httpx.Error(w, http.StatusNotFound, "CLIENT_NOT_FOUND", "client not found")
		return
	}

	contract := models.Contract{
		ClientID:          req.ClientID,
		ContractNumber:    req.ContractNumber,
		ProviderName:      req.ProviderName,
		ContractStartDate: startDate,
		FeeType:           req.FeeType,
		PercentRate:       req.PercentRate,
		FlatRate:          req.FlatRate,
		PaymentSchedule:   req.PaymentSchedule,
		NumPeople:         req.NumPeople,
		Notes:             req.Notes,
	}
	if err := db.Create(&contract).Error; err != nil {
		httpx.Internal(w, "CONTRACT_CREATE_ERROR")
		return
	}
	httpx.JSON(w, http.StatusCreated, contract)
}

type updateContractReq struct {
	ContractNumber    *string          `json:"contract_number"`
	ProviderName      *string          `json:"provider_name"`
	ContractStartDate *string          `json:"contract_start_date"`
	FeeType           *string          `json:"fee_type"`
	PercentRate       *decimal.Decimal `json:"percent_rate"`
	FlatRate          *decimal.Decimal `json:"flat_rate"`
	PaymentSchedule   *string          `json:"payment_schedule"`
	NumPeople         *int             `json:"num_people"`
	Notes             *string          `json:"notes"`
}

// Update: PUT /contracts/{id}. Partial; changing fee_type re-checks the
// rate pairing against both the patch and the stored row.
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "INVALID_ID", "contract id must be a positive integer")
		return
	}
	var req updateContractReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
		return
	}
	if req.FeeType != nil && !models.ValidFeeType(*req.FeeType) {
		httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "fee_type must be flat or percentage")
		return
	}
	if req.PaymentSchedule != nil && !models.ValidSchedule(*req.PaymentSchedule) {
		httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "payment_schedule must be monthly or quarterly")
		return
	}
	startDate, err := parseDatePtr(req.ContractStartDate)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "INVALID_DATE", "contract_start_date must be YYYY-MM-DD")
		return
	}

	db := h.DB.WithContext(r.Context())
	var existing models.Contract
	if err := db.Where("contract_id = ? AND valid_to IS NULL", id).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Error(w, http.StatusNotFound, "CONTRACT_NOT_FOUND", "contract not found")
			return
		}
		httpx.Internal(w, "CONTRACT_UPDATE_ERROR")
		return
	}

	if req.FeeType != nil {
		switch *req.FeeType {
		case models.FeeTypePercentage:
			if req.PercentRate == nil && existing.PercentRate == nil {
				httpx.Error(w, http.StatusBadRequest, "RATE_REQUIRED", "percentage rate required when changing to percentage fee type")
				return
			}
		case models.FeeTypeFlat:
			if req.FlatRate == nil && existing.FlatRate == nil {
				httpx.Error(w, http.StatusBadRequest, "RATE_REQUIRED", "flat rate required when changing to flat fee type")
				return
			}
		}
	}

	patch := models.ContractPatch{
		ContractNumber:    req.ContractNumber,
		ProviderName:      req.ProviderName,
		ContractStartDate: startDate,
		FeeType:           req.FeeType,
		PercentRate:       req.PercentRate,
		FlatRate:          req.FlatRate,
		PaymentSchedule:   req.PaymentSchedule,
		NumPeople:         req.NumPeople,
		Notes:             req.Notes,
	}
	changes := patch.Changes()
	if len(changes) == 0 {
		httpx.Error(w, http.StatusBadRequest, "NO_FIELDS", "no fields to update")
		return
	}
	if err := db.Model(&existing).Updates(changes).Error; err != nil {
		httpx.Internal(w, "CONTRACT_UPDATE_ERROR")
		return
	}
	var updated models.Contract
	if err := db.Where("contract_id = ?", id).First(&updated).Error; err != nil {
		httpx.Internal(w, "CONTRACT_UPDATE_ERROR")
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// Delete: DELETE /contracts/{id}. Soft delete via validity interval.
func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "INVALID_ID", "contract id must be a positive integer")
		return
	}
	res := h.DB.WithContext(r.Context()).
		Model(&models.Contract{}).
		Where("contract_id = ? AND valid_to IS NULL", id).
		Update("valid_to", nowFunc())
	if res.Error != nil {
		httpx.Internal(w, "CONTRACT_DELETE_ERROR")
		return
	}
	if res.RowsAffected == 0 {
		httpx.Error(w, http.StatusNotFound, "CONTRACT_NOT_FOUND", "contract not found or already deleted")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "contract deleted successfully"})
}
