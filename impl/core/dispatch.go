package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v76"

	"fundsync/entity"
	"fundsync/lib/sl"
)

// Bound on the error text stored in a failed ledger record.
const maxErrorLen = 500

var errAuthNotConnected = errors.New("auth service not connected")

// Outcome is the explicit result of a handler run. The dispatcher's terminal
// decision is driven by this value, not by inspecting error types.
type Outcome int

const (
	// OutcomeApplied means the financial effects were durably applied.
	OutcomeApplied Outcome = iota
	// OutcomeSkipped means the event was inspected and intentionally not
	// acted upon (duplicate, unpaid session, unknown reference). The ledger
	// entry is still marked processed so the provider stops redelivering.
	OutcomeSkipped
	// OutcomeFailed means the effects are not guaranteed applied; the ledger
	// entry is marked failed and a redelivery may retry from scratch.
	OutcomeFailed
)

type Result struct {
	Outcome Outcome
	Detail  string
	Err     error
}

func applied(detail string) Result {
	return Result{Outcome: OutcomeApplied, Detail: detail}
}

func skipped(detail string) Result {
	return Result{Outcome: OutcomeSkipped, Detail: detail}
}

func failed(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}

type HandlerFunc func(ctx context.Context, evt *stripe.Event) Result

// IngestEvent records a verified event in the idempotency ledger and hands it
// to the background queue. Returns accepted=false for a duplicate delivery;
// both outcomes are a success from the provider's perspective. A duplicate of
// a pending or failed record is re-enqueued: pending covers an enqueue lost
// to a crash, failed covers provider-driven retries. Processing and processed
// records are left alone.
func (c *Core) IngestEvent(ctx context.Context, payload []byte, evt *stripe.Event) (bool, error) {
	log := c.log.With(
		sl.Event(evt.ID),
		slog.Any("type", evt.Type),
	)

	now := time.Now().UTC()
	rec := &entity.EventRecord{
		EventId:    evt.ID,
		EventType:  string(evt.Type),
		Status:     entity.EventPending,
		Payload:    string(payload),
		ReceivedAt: now,
		UpdatedAt:  now,
	}

	created, err := c.db.InsertEventRecord(rec)
	if err != nil {
		// Not recorded: do not acknowledge, the provider must redeliver.
		return false, err
	}
	if created {
		log.Info("event recorded")
		c.enqueue(evt)
		return true, nil
	}

	existing, err := c.db.GetEventRecord(evt.ID)
	if err != nil || existing == nil {
		log.Warn("duplicate event, ledger record unreadable")
		return false, nil
	}
	if existing.Settled() {
		log.With(
			slog.String("status", string(existing.Status)),
		).Info("duplicate event ignored")
		return false, nil
	}
	log.With(
		slog.String("status", string(existing.Status)),
	).Info("duplicate event re-enqueued")
	c.enqueue(evt)
	return false, nil
}

func (c *Core) enqueue(evt *stripe.Event) {
	ok := c.queue.Enqueue(func() {
		c.ProcessEvent(context.Background(), evt)
	})
	if !ok {
		// Ledger record stays pending; the next redelivery retries it.
		c.log.With(
			sl.Event(evt.ID),
		).Warn("task queue full, waiting for redelivery")
	}
}

// ProcessEvent runs the handler registered for the event type and settles the
// ledger record. Handler failures never propagate: the acknowledgment has
// already been sent, so the only observers are the ledger and the logs.
func (c *Core) ProcessEvent(ctx context.Context, evt *stripe.Event) {
	log := c.log.With(
		sl.Event(evt.ID),
		slog.Any("type", evt.Type),
	)

	handler, ok := c.handlers[evt.Type]
	if !ok {
		log.Info("ignored event type")
		c.settle(log, evt.ID, entity.EventProcessed, "")
		return
	}

	if err := c.db.UpdateEventStatus(evt.ID, entity.EventProcessing, ""); err != nil {
		log.With(
			sl.Err(err),
		).Error("mark event processing")
	}

	result := handler(ctx, evt)
	switch result.Outcome {
	case OutcomeFailed:
		log.With(
			sl.Err(result.Err),
		).Error("event processing failed")
		c.settle(log, evt.ID, entity.EventFailed, truncate(result.Err.Error(), maxErrorLen))
	case OutcomeSkipped:
		log.With(
			slog.String("detail", result.Detail),
		).Info("event skipped")
		c.settle(log, evt.ID, entity.EventProcessed, "")
	default:
		log.With(
			slog.String("detail", result.Detail),
		).Info("event processed")
		c.settle(log, evt.ID, entity.EventProcessed, "")
	}
}

func (c *Core) settle(log *slog.Logger, eventId string, status entity.EventStatus, errMsg string) {
	if err := c.db.UpdateEventStatus(eventId, status, errMsg); err != nil {
		log.With(
			sl.Err(err),
			slog.String("status", string(status)),
		).Error("update ledger status")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
