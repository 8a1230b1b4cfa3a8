package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"charipay/internal/gateway/reconcile"

	"github.com/go-chi/chi/v5"
)

type refundReq struct {
	Note string `json:"note"`
}

// RefundDonation refunds a completed donation through the gateway.
func RefundDonation(processor *reconcile.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		donationID, err := strconv.ParseInt(chi.URLParam(r, "donationID"), 10, 64)
		if err != nil {
			http.Error(w, "bad donation id", http.StatusBadRequest)
			return
		}

		// The body is optional, the note inside it is optional too.
		var in refundReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		res := processor.RefundDonation(r.Context(), donationID, in.Note)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(res.Status)
		json.NewEncoder(w).Encode(map[string]string{"message": res.Message})
	}
}
