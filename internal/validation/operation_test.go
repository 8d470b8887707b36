package validation

import (
	"testing"

	"github.com/shopspring/decimal"

	"assetledger/internal/api/request"
)

func validCreateOperation() request.CreateOperationRequest {
	return request.CreateOperationRequest{
		Date:     "2024-03-01",
		Platform: "alipay",
		Symbol:   "005827",
		Type:     "buy",
		Amount:   decimal.NewFromInt(1000),
		Currency: "CNY",
	}
}

func fieldError(t *testing.T, err error, field string) {
	t.Helper()

	if err == nil {
		t.Fatalf("Expected a validation error on %s", field)
	}
	verr, ok := err.(*Error)
	if !ok {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if _, ok := verr.Fields[field]; !ok {
		t.Errorf("Expected an error on field %s, got %v", field, verr.Fields)
	}
}

func TestValidateCreateOperation(t *testing.T) {
	t.Run("accepts a complete request", func(t *testing.T) {
		if err := ValidateCreateOperation(validCreateOperation()); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})

	cases := []struct {
		name   string
		mutate func(*request.CreateOperationRequest)
		field  string
	}{
		{"missing date", func(r *request.CreateOperationRequest) { r.Date = "" }, "date"},
		{"malformed date", func(r *request.CreateOperationRequest) { r.Date = "01/03/2024" }, "date"},
		{"missing platform", func(r *request.CreateOperationRequest) { r.Platform = " " }, "platform"},
		{"missing symbol", func(r *request.CreateOperationRequest) { r.Symbol = "" }, "symbol"},
		{"missing currency", func(r *request.CreateOperationRequest) { r.Currency = "" }, "currency"},
		{"unknown type", func(r *request.CreateOperationRequest) { r.Type = "transfer" }, "type"},
		{"zero amount", func(r *request.CreateOperationRequest) { r.Amount = decimal.Zero }, "amount"},
		{"negative fee", func(r *request.CreateOperationRequest) {
			fee := decimal.NewFromInt(-1)
			r.Fee = &fee
		}, "fee"},
		{"fee swallowing the amount", func(r *request.CreateOperationRequest) {
			fee := decimal.NewFromInt(1000)
			r.Fee = &fee
		}, "fee"},
		{"zero price", func(r *request.CreateOperationRequest) {
			price := decimal.Zero
			r.PricePerShare = &price
		}, "pricePerShare"},
		{"unknown execution kind", func(r *request.CreateOperationRequest) { r.ExecutionKind = "robot" }, "executionKind"},
	}

	for _, tc := range cases {
		t.Run("rejects "+tc.name, func(t *testing.T) {
			req := validCreateOperation()
			tc.mutate(&req)
			fieldError(t, ValidateCreateOperation(req), tc.field)
		})
	}
}

func TestValidateUpdateOperation(t *testing.T) {
	t.Run("empty patch is valid", func(t *testing.T) {
		if err := ValidateUpdateOperation(request.UpdateOperationRequest{}); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})

	t.Run("rejects provided fields that break constraints", func(t *testing.T) {
		badAmount := decimal.NewFromInt(-5)
		badType := "transfer"
		fieldError(t, ValidateUpdateOperation(request.UpdateOperationRequest{Amount: &badAmount}), "amount")
		fieldError(t, ValidateUpdateOperation(request.UpdateOperationRequest{Type: &badType}), "type")
	})

	t.Run("rejects a fee at or above the amount", func(t *testing.T) {
		amount := decimal.NewFromInt(5)
		fee := decimal.NewFromInt(100)
		fieldError(t, ValidateUpdateOperation(request.UpdateOperationRequest{Amount: &amount, Fee: &fee}), "fee")
	})
}

func TestValidateUUID(t *testing.T) {
	if err := ValidateUUID("550e8400-e29b-41d4-a716-446655440000"); err != nil {
		t.Errorf("Expected no error for a valid UUID, got %v", err)
	}
	if err := ValidateUUID("not-a-uuid"); err == nil {
		t.Error("Expected an error for a malformed UUID")
	}
	if err := ValidateUUID(""); err == nil {
		t.Error("Expected an error for an empty UUID")
	}
}
