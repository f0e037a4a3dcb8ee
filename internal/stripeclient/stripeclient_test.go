package stripeclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"fundsync/internal/config"
)

const testSecret = "whsec_test_secret"

func newTestClient(t *testing.T, secret string) *StripeClient {
	t.Helper()
	conf := &config.Config{}
	conf.Stripe.WebhookSecret = secret
	return New(conf, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func signHeader(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d", ts)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	tolerance := 5 * time.Minute

	t.Run("valid", func(t *testing.T) {
		sc := newTestClient(t, testSecret)
		header := signHeader(testSecret, time.Now().Unix(), payload)
		if !sc.VerifySignature(payload, header, tolerance) {
			t.Error("expected valid signature to verify")
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		sc := newTestClient(t, testSecret)
		header := signHeader(testSecret, time.Now().Unix(), payload)
		tampered := []byte(`{"id":"evt_1","type":"payout.paid"}`)
		if sc.VerifySignature(tampered, header, tolerance) {
			t.Error("expected tampered payload to fail")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		sc := newTestClient(t, testSecret)
		header := signHeader("whsec_other", time.Now().Unix(), payload)
		if sc.VerifySignature(payload, header, tolerance) {
			t.Error("expected mismatched secret to fail")
		}
	})

	t.Run("missing header", func(t *testing.T) {
		sc := newTestClient(t, testSecret)
		if sc.VerifySignature(payload, "", tolerance) {
			t.Error("expected missing header to fail")
		}
	})

	t.Run("stale timestamp", func(t *testing.T) {
		sc := newTestClient(t, testSecret)
		old := time.Now().Add(-10 * time.Minute).Unix()
		header := signHeader(testSecret, old, payload)
		if sc.VerifySignature(payload, header, tolerance) {
			t.Error("expected replayed timestamp to fail")
		}
	})

	t.Run("garbage timestamp", func(t *testing.T) {
		sc := newTestClient(t, testSecret)
		if sc.VerifySignature(payload, "t=abc,v1=deadbeef", tolerance) {
			t.Error("expected unparseable timestamp to fail")
		}
	})
}

func TestConfigured(t *testing.T) {
	if newTestClient(t, "").Configured() {
		t.Error("empty secret must report unconfigured")
	}
	if !newTestClient(t, testSecret).Configured() {
		t.Error("secret present must report configured")
	}
}

func TestParseEvent(t *testing.T) {
	sc := newTestClient(t, testSecret)
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "payment_status": "paid", "payment_intent": "pi_1", "amount_total": 15000}}
	}`)

	evt, err := sc.ParseEvent(payload)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if evt.ID != "evt_1" {
		t.Errorf("expected event id evt_1, got %q", evt.ID)
	}

	sess, err := CheckoutSession(evt)
	if err != nil {
		t.Fatalf("CheckoutSession: %v", err)
	}
	if sess.ID != "cs_1" {
		t.Errorf("expected session cs_1, got %q", sess.ID)
	}
	if sess.PaymentIntent == nil || sess.PaymentIntent.ID != "pi_1" {
		t.Error("expected payment intent id resolved from string reference")
	}
	if sess.AmountTotal != 15000 {
		t.Errorf("expected amount 15000, got %d", sess.AmountTotal)
	}
}

func TestParseEventInvalid(t *testing.T) {
	sc := newTestClient(t, testSecret)
	if _, err := sc.ParseEvent([]byte("not json")); err == nil {
		t.Error("expected error for invalid payload")
	}
}
