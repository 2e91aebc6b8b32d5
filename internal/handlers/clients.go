package handlers

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/advisorly/feetrack/internal/httpx"
	"github.com/advisorly/feetrack/internal/models"
	"github.com/advisorly/feetrack/internal/periods"
)

// ClientHandler serves client CRUD plus the provider/status listing shape.
type ClientHandler struct {
	DB *gorm.DB
}

func NewClientHandler(db *gorm.DB) *ClientHandler {
	return &ClientHandler{DB: db}
}

// clientWithStatus is the listing shape: client columns joined with the
// active contract and payment-status rollup.
type clientWithStatus struct {
	models.Client
	ProviderName     *string    `json:"provider_name,omitempty"`
	PaymentSchedule  *string    `json:"payment_schedule,omitempty"`
	ComplianceStatus string     `json:"compliance_status"`
	LastPaymentDate  *time.Time `json:"last_payment_date,omitempty"`
	NextPaymentDue   *time.Time `json:"next_payment_due,omitempty"`
}

// List: GET /clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	db := h.DB.WithContext(r.Context())
	var clients []models.Client
	if err := db.Where("valid_to IS NULL").Order("display_name asc").Find(&clients).Error; err != nil {
		httpx.Internal(w, "CLIENT_FETCH_ERROR")
		return
	}

	contracts, err := activeContractsByClient(db)
	if err != nil {
		httpx.Internal(w, "CLIENT_FETCH_ERROR")
		return
	}

	out := make([]clientWithStatus, 0, len(clients))
	for _, c := range clients {
		row, err := h.statusRow(db, c, contracts[c.ClientID])
		if err != nil {
			httpx.Internal(w, "CLIENT_FETCH_ERROR")
			return
		}
		out = append(out, row)
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Get: GET /clients/{id}
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "INVALID_ID", "client id must be a positive integer")
		return
	}
	db := h.DB.WithContext(r.Context())
	var client models.Client
	if err := db.Where("client_id = ? AND valid_to IS NULL", id).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Error(w, http.StatusNotFound, "CLIENT_NOT_FOUND", "client not found")
			return
		}
		httpx.Internal(w, "CLIENT_FETCH_ERROR")
		return
	}
	contract, err := activeContract(db, id)
	if err != nil {
		httpx.Internal(w, "CLIENT_FETCH_ERROR")
		return
	}
	row, err := h.statusRow(db, client, contract)
	if err != nil {
		httpx.Internal(w, "CLIENT_FETCH_ERROR")
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

type createClientReq struct {
	DisplayName   string  `json:"display_name"`
	FullName      string  `json:"full_name"`
	IMASignedDate *string `json:"ima_signed_date"`
}

// Create: POST /clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createClientReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
		return
	}
	if req.DisplayName == "" || req.FullName == "" {
		httpx.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "display_name and full_name are required")
		return
	}
	signed, err := parseDatePtr(req.IMASignedDate)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "INVALID_DATE", "ima_signed_date must be YYYY-MM-DD")
		return
	}
	client := models.Client{
		DisplayName:   req.DisplayName,
		FullName:      req.FullName,
		IMASignedDate: signed,
	}
	if err := h.DB.WithContext(r.Context()).Create(&client).Error; err != nil {
		httpx.Internal(w, "CLIENT_CREATE_ERROR")
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

type updateClientReq struct {
	DisplayName   *string `json:"display_name"`
	FullName      *string `json:"full_name"`
	IMASignedDate *string `json:"ima_signed_date"`
}

// Update: PUT /clients/{id}. Partial, field-presence driven.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "INVALID_ID", "client id must be a positive integer")
		return
	}
	var req updateClientReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
		return
	}
	signed, err := parseDatePtr(req.IMASignedDate)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "INVALID_DATE", "ima_signed_date must be YYYY-MM-DD")
		return
	}
	patch := models.ClientPatch{
		DisplayName:   req.DisplayName,
		FullName:      req.FullName,
		IMASignedDate: signed,
	}
	changes := patch.Changes()
	if len(changes) == 0 {
		httpx.Error(w, http.StatusBadRequest, "NO_FIELDS", "no fields to update")
		return
	}
	db := h.DB.WithContext(r.Context())
	res := db.Model(&models.Client{}).Where("client_id = ? AND valid_to IS NULL", id).Updates(changes)
	if res.Error != nil {
		httpx.Internal(w, "CLIENT_UPDATE_ERROR")
		return
	}
	if res.RowsAffected == 0 {
		httpx.Error(w, http.StatusNotFound, "CLIENT_NOT_FOUND", "client not found")
		return
	}
	var client models.Client
	if err := db.Where("client_id = ?", id).First(&client).Error; err != nil {
		httpx.Internal(w, "CLIENT_UPDATE_ERROR")
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// Delete: DELETE /clients/{id}. Closes the validity interval. Deleting an
// already-deleted client is a 404, not a second success.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "INVALID_ID", "client id must be a positive integer")
		return
	}
	res := h.DB.WithContext(r.Context()).
		Model(&models.Client{}).
		Where("client_id = ? AND valid_to IS NULL", id).
		Update("valid_to", nowFunc())
	if res.Error != nil {
		httpx.Internal(w, "CLIENT_DELETE_ERROR")
		return
	}
	if res.RowsAffected == 0 {
		httpx.Error(w, http.StatusNotFound, "CLIENT_NOT_FOUND", "client not found or already deleted")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "client deleted successfully"})
}

// statusRow builds the joined listing shape for one client.
func (h *ClientHandler) statusRow(db *gorm.DB, c models.Client, contract *models.Contract) (clientWithStatus, error) {
	row := clientWithStatus{Client: c, ComplianceStatus: "yellow"}
	if contract == nil {
		return row, nil
	}
	row.ProviderName = &contract.ProviderName
	row.PaymentSchedule = &contract.PaymentSchedule

	var last models.Payment
	err := db.Where("client_id = ? AND valid_to IS NULL", c.ClientID).
		Order("received_date desc, payment_id desc").First(&last).Error
	switch {
	case err == nil:
		d := last.ReceivedDate
		row.LastPaymentDate = &d
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return row, err
	}

	anchor := periods.Anchor(contract.PaymentSchedule, nowFunc())
	paid, err := periodPaid(db, c.ClientID, contract.PaymentSchedule, anchor)
	if err != nil {
		return row, err
	}
	if paid {
		row.ComplianceStatus = "green"
	}
	return row, nil
}

func activeContract(db *gorm.DB, clientID uint) (*models.Contract, error) {
	var contract models.Contract
	err := db.Where("client_id = ? AND valid_to IS NULL", clientID).
		Order("valid_from desc").First(&contract).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func activeContractsByClient(db *gorm.DB) (map[uint]*models.Contract, error) {
	var contracts []models.Contract
	if err := db.Where("valid_to IS NULL").Order("valid_from asc").Find(&contracts).Error; err != nil {
		return nil, err
	}
	out := map[uint]*models.Contract{}
	for i := range contracts {
		out[contracts[i].ClientID] = &contracts[i]
	}
	return out, nil
}

func periodPaid(db *gorm.DB, clientID uint, schedule string, key periods.Key) (bool, error) {
	var count int64
	err := db.Model(&models.Payment{}).
		Where("client_id = ? AND valid_to IS NULL AND applied_period_type = ? AND applied_period = ? AND applied_year = ?",
			clientID, schedule, key.Period, key.Year).
		Count(&count).Error
	return count > 0, err
}
