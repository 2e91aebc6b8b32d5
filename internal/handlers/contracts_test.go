package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/advisorly/feetrack/internal/models"
)

func TestContractCreateRequiresRateForFeeType(t *testing.T) {
	d := testDB(t)
	r := testRouter(d)
	c := seedClient(t, d, "Acme")

	w := doJSON(t, r, http.MethodPost, "/contracts", map[string]any{
		"client_id":        c.ClientID,
		"provider_name":    "Fidelity",
		"fee_type":         "percentage",
		"payment_schedule": "monthly",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	if code := errorCode(t, w); code != "RATE_REQUIRED" {
		t.Fatalf("code %q", code)
	}

	w = doJSON(t, r, http.MethodPost, "/contracts", map[string]any{
		"client_id":        c.ClientID,
		"provider_name":    "Fidelity",
		"fee_type":         "flat",
		"payment_schedule": "quarterly",
	})
	if code := errorCode(t, w); code != "RATE_REQUIRED" {
		t.Fatalf("flat without rate code %q", code)
	}

	w = doJSON(t, r, http.MethodPost, "/contracts", map[string]any{
		"client_id":        c.ClientID,
		"provider_name":    "Fidelity",
		"fee_type":         "percentage",
		"percent_rate":     "0.00125",
		"payment_schedule": "monthly",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	var created models.Contract
	decodeBody(t, w, &created)
	if created.PercentRate == nil || !created.PercentRate.Equal(dec(t, "0.00125")) {
		t.Fatalf("percent_rate %v", created.PercentRate)
	}
}

func TestContractCreateUnknownClient(t *testing.T) {
	d := testDB(t)
	r := testRouter(d)

	w := doJSON(t, r, http.MethodPost, "/contracts", map[string]any{
		"client_id":        999,
		"provider_name":    "Fidelity",
		"fee_type":         "flat",
		"flat_rate":        "2500",
		"payment_schedule": "monthly",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d", w.Code)
	}
	if code := errorCode(t, w); code != "CLIENT_NOT_FOUND" {
		t.Fatalf("code %q", code)
	}
}

func TestContractCreateRejectsBadEnums(t *testing.T) {
	d := testDB(t)
	r := testRouter(d)
	c := seedClient(t, d, "Acme")

	w := doJSON(t, r, http.MethodPost, "/contracts", map[string]any{
		"client_id":        c.ClientID,
		"provider_name":    "Fidelity",
		"fee_type":         "hourly",
		"payment_schedule": "monthly",
	})
	if code := errorCode(t, w); code != "VALIDATION_FAILED" {
		t.Fatalf("fee_type code %q", code)
	}

	w = doJSON(t, r, http.MethodPost, "/contracts", map[string]any{
		"client_id":        c.ClientID,
		"provider_name":    "Fidelity",
		"fee_type":         "flat",
		"flat_rate":        "2500",
		"payment_schedule": "weekly",
	})
	if code := errorCode(t, w); code != "VALIDATION_FAILED" {
		t.Fatalf("schedule code %q", code)
	}
}

func TestContractFeeTypeChangeChecksRatePairing(t *testing.T) {
	d := testDB(t)
	r := testRouter(d)
	c := seedClient(t, d, "Acme")
	k := seedContract(t, d, c.ClientID, models.FeeTypeFlat, models.ScheduleMonthly)

	// No percent rate in the patch and none stored: rejected.
	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/contracts/%d", k.ContractID),
		map[string]any{"fee_type": "percentage"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	if code := errorCode(t, w); code != "RATE_REQUIRED" {
		t.Fatalf("code %q", code)
	}

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/contracts/%d", k.ContractID),
		map[string]any{"fee_type": "percentage", "percent_rate": "0.002"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	var updated models.Contract
	decodeBody(t, w, &updated)
	if updated.FeeType != models.FeeTypePercentage {
		t.Fatalf("fee_type %q", updated.FeeType)
	}
	if updated.PercentRate == nil || !updated.PercentRate.Equal(dec(t, "0.002")) {
		t.Fatalf("percent_rate %v", updated.PercentRate)
	}

	// Switching back to flat is fine: the old flat rate is still stored.
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/contracts/%d", k.ContractID),
		map[string]any{"fee_type": "flat"})
	if w.Code != http.StatusOK {
		t.Fatalf("revert status %d body %s", w.Code, w.Body.String())
	}
}

func TestContractListByClientSkipsDeleted(t *testing.T) {
	d := testDB(t)
	r := testRouter(d)
	c := seedClient(t, d, "Acme")
	k1 := seedContract(t, d, c.ClientID, models.FeeTypeFlat, models.ScheduleMonthly)
	seedContract(t, d, c.ClientID, models.FeeTypePercentage, models.ScheduleMonthly)

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/contracts/%d", k1.ContractID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/contracts/client/%d", c.ClientID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status %d", w.Code)
	}
	var rows []models.Contract
	decodeBody(t, w, &rows)
	if len(rows) != 1 {
		t.Fatalf("expected 1 live contract got %d", len(rows))
	}
	if rows[0].ContractID == k1.ContractID {
		t.Fatal("deleted contract still listed")
	}

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/contracts/%d", k1.ContractID), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status %d", w.Code)
	}
}
