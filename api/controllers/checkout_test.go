package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmoratto/storefront-backend/internal/checkout"
	"github.com/dmoratto/storefront-backend/pkg/db/models"
	"github.com/dmoratto/storefront-backend/pkg/enums"
	pkgerrors "github.com/dmoratto/storefront-backend/pkg/errors"
)

type stubCheckoutService struct {
	order *models.Order
	err   error

	address *checkout.AddressInput
	carrier string
}

func (s *stubCheckoutService) View(ctx context.Context, customerID int64) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubCheckoutService) SetAddress(ctx context.Context, customerID int64, input checkout.AddressInput) (*models.Order, error) {
	s.address = &input
	return s.order, s.err
}

func (s *stubCheckoutService) SelectCarrier(ctx context.Context, customerID int64, carrierRef string) (*models.Order, error) {
	s.carrier = carrierRef
	return s.order, s.err
}

func (s *stubCheckoutService) Confirm(ctx context.Context, customerID int64) (*models.Order, error) {
	return s.order, s.err
}

var _ checkout.Service = (*stubCheckoutService)(nil)

func TestCheckoutViewRendersEmptyDraftWhenNoCart(t *testing.T) {
	svc := &stubCheckoutService{}
	resp := httptest.NewRecorder()
	CheckoutView(svc, enums.CurrencyUSD, nil)(resp, httptest.NewRequest(http.MethodGet, "/api/v1/checkout", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"shipping_same_as_billing":true`) {
		t.Fatalf("expected empty view, got %s", resp.Body.String())
	}
}

func TestCheckoutAddressForwardsInput(t *testing.T) {
	svc := &stubCheckoutService{order: draftOrder()}
	body := `{"billing":{"name":"Ada","street":"1 Loop","city":"Cupertino","country":"US"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/address", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CheckoutAddress(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.address == nil || svc.address.Billing.Street != "1 Loop" {
		t.Fatalf("expected billing forwarded, got %+v", svc.address)
	}
	if svc.address.Shipping != nil {
		t.Fatal("shipping should stay nil when omitted")
	}
}

func TestCheckoutCarrierRequiresRef(t *testing.T) {
	svc := &stubCheckoutService{order: draftOrder()}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/carrier", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	CheckoutCarrier(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.carrier != "" {
		t.Fatal("service should not have been called")
	}
}

func TestCheckoutConfirmMapsStateConflict(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "checkout preconditions not met")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/confirm", nil)
	resp := httptest.NewRecorder()
	CheckoutConfirm(svc, nil)(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestCheckoutConfirmReturnsConfirmedOrder(t *testing.T) {
	order := draftOrder()
	order.Status = enums.OrderStatusConfirmed
	reference := "SO-ABC123"
	order.Reference = &reference

	svc := &stubCheckoutService{order: order}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/confirm", nil)
	resp := httptest.NewRecorder()
	CheckoutConfirm(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"reference":"SO-ABC123"`) {
		t.Fatalf("expected reference in payload, got %s", resp.Body.String())
	}
}
