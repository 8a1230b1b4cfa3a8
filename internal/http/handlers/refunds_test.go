package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"charipay/internal/domain/donation"
	"charipay/internal/gateway/reconcile"

	"github.com/go-chi/chi/v5"
)

func refundRouter(processor *reconcile.Processor) http.Handler {
	r := chi.NewRouter()
	r.Post("/admin/donations/{donationID}/refund", RefundDonation(processor))
	return r
}

func completedDonation() *donation.Donation {
	d, _ := donation.New(7, donation.Donor{Email: "donor@example.com"}, 5000, donation.NGN, "key", true)
	d.ID = 1
	d.GatewayTransactionID = "ref1"
	d.Status = donation.StatusCompleted
	d.Processed = true
	return d
}

func TestRefundDonationHandler(t *testing.T) {
	d := completedDonation()
	processor := reconcile.NewProcessor(&stubDonations{donation: d}, stubRecurring{}, stubAPI{})
	router := refundRouter(processor)

	req := httptest.NewRequest(http.MethodPost, "/admin/donations/1/refund", strings.NewReader(`{"note":"donor asked"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if d.Status != donation.StatusRefunded {
		t.Fatalf("expected refunded donation, got %s", d.Status)
	}
}

func TestRefundDonationHandlerAllowsEmptyBody(t *testing.T) {
	d := completedDonation()
	processor := reconcile.NewProcessor(&stubDonations{donation: d}, stubRecurring{}, stubAPI{})
	router := refundRouter(processor)

	req := httptest.NewRequest(http.MethodPost, "/admin/donations/1/refund", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if d.Status != donation.StatusRefunded {
		t.Fatalf("expected refunded donation, got %s", d.Status)
	}
}

func TestRefundDonationHandlerRejectsBadJSON(t *testing.T) {
	d := completedDonation()
	processor := reconcile.NewProcessor(&stubDonations{donation: d}, stubRecurring{}, stubAPI{})
	router := refundRouter(processor)

	req := httptest.NewRequest(http.MethodPost, "/admin/donations/1/refund", strings.NewReader(`{"note":`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if d.Status != donation.StatusCompleted {
		t.Fatal("malformed request must not mutate the donation")
	}
}

func TestRefundDonationHandlerRejectsBadID(t *testing.T) {
	processor := reconcile.NewProcessor(&stubDonations{}, stubRecurring{}, stubAPI{})
	router := refundRouter(processor)

	req := httptest.NewRequest(http.MethodPost, "/admin/donations/abc/refund", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
