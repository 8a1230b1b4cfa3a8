package handlers

import (
	"io"
	"net/http"

	"charipay/internal/gateway/reconcile"
	"charipay/internal/gateway/webhook"
	"charipay/internal/store/redislock"

	"github.com/rs/zerolog/log"
)

// PaystackWebhook receives gateway events, interprets them and hands
// them to the reconciliation processor. Responses are plain text; a
// non-2xx status makes Paystack retry the delivery.
func PaystackWebhook(deps webhook.Deps, processor *reconcile.Processor, locker *redislock.Locker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, webhook.MsgInvalidRequest, http.StatusInternalServerError)
			return
		}

		in := webhook.Interpret(r.Context(), webhook.Request{
			Method:    r.Method,
			Signature: r.Header.Get(webhook.SignatureHeader),
			Body:      body,
		}, deps)

		if in.IsValid() && locker != nil {
			reference := in.GatewayTransactionID()
			if reference != "" {
				acquired, err := locker.Acquire(r.Context(), reference)
				if err != nil {
					log.Error().Err(err).Str("reference", reference).Msg("webhook lock unavailable")
				} else if !acquired {
					// Another delivery of this reference is in flight.
					// Fail so the gateway redelivers later.
					http.Error(w, "Transaction is locked for processing", http.StatusInternalServerError)
					return
				} else {
					defer locker.Release(r.Context(), reference)
				}
			}
		}

		res := processor.ProcessWebhook(r.Context(), in)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(res.Status)
		w.Write([]byte(res.Message))
	}
}
