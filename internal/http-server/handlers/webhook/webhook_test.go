package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76"
)

type fakeCore struct {
	configured bool
	valid      bool
	accepted   bool
	ingestErr  error
	ingested   int
}

func (f *fakeCore) StripeConfigured() bool { return f.configured }

func (f *fakeCore) StripeVerifySignature(_ []byte, _ string, _ time.Duration) bool {
	return f.valid
}

func (f *fakeCore) StripeParseEvent(payload []byte) (*stripe.Event, error) {
	var evt stripe.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

func (f *fakeCore) IngestEvent(_ context.Context, _ []byte, _ *stripe.Event) (bool, error) {
	if f.ingestErr != nil {
		return false, f.ingestErr
	}
	f.ingested++
	return f.accepted, nil
}

func serve(core *fakeCore, body string) *httptest.ResponseRecorder {
	handler := Event(slog.New(slog.NewTextHandler(io.Discard, nil)), core)
	req := httptest.NewRequest(http.MethodPost, "/webhook/event", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=sig")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

const eventBody = `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`

func TestEventAccepted(t *testing.T) {
	core := &fakeCore{configured: true, valid: true, accepted: true}
	w := serve(core, eventBody)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if core.ingested != 1 {
		t.Errorf("expected ingest called once, got %d", core.ingested)
	}
}

func TestDuplicateAcknowledged(t *testing.T) {
	core := &fakeCore{configured: true, valid: true, accepted: false}
	w := serve(core, eventBody)
	if w.Code != http.StatusOK {
		t.Errorf("duplicate must be acknowledged with 200, got %d", w.Code)
	}
}

func TestInvalidSignatureRejected(t *testing.T) {
	core := &fakeCore{configured: true, valid: false}
	w := serve(core, eventBody)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if core.ingested != 0 {
		t.Error("rejected payload must not reach the ledger")
	}
}

func TestMissingSecretIsServerError(t *testing.T) {
	core := &fakeCore{configured: false}
	w := serve(core, eventBody)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 for misconfiguration, got %d", w.Code)
	}
	if core.ingested != 0 {
		t.Error("no ingestion without a configured secret")
	}
}

func TestMalformedBodyRejected(t *testing.T) {
	core := &fakeCore{configured: true, valid: true}
	w := serve(core, "not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if core.ingested != 0 {
		t.Error("unparseable event must not reach the ledger")
	}
}

func TestLedgerFailureIsServerError(t *testing.T) {
	core := &fakeCore{configured: true, valid: true, ingestErr: fmt.Errorf("storage down")}
	w := serve(core, eventBody)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 so the provider redelivers, got %d", w.Code)
	}
}
