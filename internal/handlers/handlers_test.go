package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/advisorly/feetrack/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	err = d.AutoMigrate(
		&models.Client{},
		&models.Contract{},
		&models.Payment{},
		&models.PaymentPeriod{},
		&models.VarianceThreshold{},
		&models.ClientMetrics{},
	)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// testRouter mirrors the production routes without the auth middleware.
func testRouter(d *gorm.DB) *chi.Mux {
	r := chi.NewRouter()
	ch := NewClientHandler(d)
	kh := NewContractHandler(d)
	ph := NewPaymentHandler(d)
	perh := NewPeriodHandler(d, 2)
	dh := NewDashboardHandler(d)

	r.Route("/clients", func(r chi.Router) {
		r.Get("/", ch.List)
		r.Post("/", ch.Create)
		r.Get("/{id}", ch.Get)
		r.Put("/{id}", ch.Update)
		r.Delete("/{id}", ch.Delete)
	})
	r.Route("/contracts", func(r chi.Router) {
		r.Get("/client/{clientID}", kh.ListByClient)
		r.Post("/", kh.Create)
		r.Put("/{id}", kh.Update)
		r.Delete("/{id}", kh.Delete)
	})
	r.Route("/payments", func(r chi.Router) {
		r.Get("/", ph.List)
		r.Post("/", ph.Create)
		r.Put("/{id}", ph.Update)
		r.Delete("/{id}", ph.Delete)
	})
	r.Get("/periods", perh.Available)
	r.Get("/dashboard/{clientID}", dh.Get)
	return r
}

func setNow(t *testing.T, at time.Time) {
	t.Helper()
	old := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = old })
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, w, &body)
	return body.Error.Code
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func seedClient(t *testing.T, d *gorm.DB, name string) models.Client {
	t.Helper()
	c := models.Client{DisplayName: name, FullName: name + " 401k Plan"}
	if err := d.Create(&c).Error; err != nil {
		t.Fatal(err)
	}
	return c
}

func seedContract(t *testing.T, d *gorm.DB, clientID uint, feeType, schedule string) models.Contract {
	t.Helper()
	c := models.Contract{
		ClientID:        clientID,
		ProviderName:    "Ascensus",
		FeeType:         feeType,
		PaymentSchedule: schedule,
	}
	switch feeType {
	case models.FeeTypePercentage:
		rate := dec(t, "0.001")
		c.PercentRate = &rate
	case models.FeeTypeFlat:
		rate := dec(t, "2500")
		c.FlatRate = &rate
	}
	if err := d.Create(&c).Error; err != nil {
		t.Fatal(err)
	}
	return c
}

func seedPayment(t *testing.T, d *gorm.DB, c models.Contract, year, period int, received time.Time, actual, assets string) models.Payment {
	t.Helper()
	p := models.Payment{
		ContractID:        c.ContractID,
		ClientID:          c.ClientID,
		ReceivedDate:      received,
		ActualFee:         dec(t, actual),
		AppliedPeriodType: c.PaymentSchedule,
		AppliedPeriod:     period,
		AppliedYear:       year,
	}
	if assets != "" {
		a := dec(t, assets)
		p.TotalAssets = &a
	}
	if err := d.Create(&p).Error; err != nil {
		t.Fatal(err)
	}
	return p
}
