package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"

	"fundsync/lib/sl"
)

type Core interface {
	StripeConfigured() bool
	StripeVerifySignature(payload []byte, header string, tolerance time.Duration) bool
	StripeParseEvent(payload []byte) (*stripe.Event, error)
	IngestEvent(ctx context.Context, payload []byte, evt *stripe.Event) (bool, error)
}

// Event is the provider-facing ingestion endpoint. It verifies the signature,
// records the event in the ledger, and acknowledges immediately; handler
// execution happens on the background queue. Both a newly recorded event and
// a duplicate get 200, so the provider stops redelivering either way.
func Event(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const tolerance = 5 * time.Minute
		log := logger.With(
			sl.Module("http.handlers.webhook"),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			log.With(
				sl.Err(err),
			).Error("read request body")
			http.Error(w, "read", http.StatusBadRequest)
			return
		}

		if !handler.StripeConfigured() {
			log.Error("webhook secret not configured")
			http.Error(w, "configuration", http.StatusInternalServerError)
			return
		}

		sig := r.Header.Get("Stripe-Signature")
		if !handler.StripeVerifySignature(payload, sig, tolerance) {
			log.Error("invalid webhook signature")
			http.Error(w, "signature", http.StatusBadRequest)
			return
		}

		evt, err := handler.StripeParseEvent(payload)
		if err != nil {
			log.With(
				sl.Err(err),
			).Error("unmarshal event")
			http.Error(w, "json", http.StatusBadRequest)
			return
		}

		log = log.With(
			sl.Event(evt.ID),
			slog.Any("type", evt.Type),
		)

		accepted, err := handler.IngestEvent(r.Context(), payload, evt)
		if err != nil {
			// The event was not durably recorded; a 200 here would lose it.
			log.With(
				sl.Err(err),
			).Error("record event")
			http.Error(w, "ledger", http.StatusInternalServerError)
			return
		}
		if accepted {
			log.Debug("event accepted")
		} else {
			log.Debug("duplicate delivery acknowledged")
		}

		w.WriteHeader(http.StatusOK)
	}
}
