package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"charipay/internal/gateway/reconcile"

	"github.com/go-chi/chi/v5"
)

// DonationReturn settles a donation when the donor lands back from
// the gateway checkout. Paystack appends the transaction reference to
// the callback URL.
func DonationReturn(processor *reconcile.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		donationID, err := strconv.ParseInt(chi.URLParam(r, "donationID"), 10, 64)
		if err != nil {
			http.Error(w, "bad donation id", http.StatusBadRequest)
			return
		}

		reference := r.URL.Query().Get("reference")
		if reference == "" {
			reference = r.URL.Query().Get("trxref")
		}
		if reference == "" {
			http.Error(w, "missing reference", http.StatusBadRequest)
			return
		}

		res := processor.ProcessReturn(r.Context(), donationID, reference)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(res.Status)
		json.NewEncoder(w).Encode(map[string]string{"message": res.Message})
	}
}
