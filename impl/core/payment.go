package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v76"

	"fundsync/entity"
	"fundsync/internal/stripeclient"
	"fundsync/lib/clock"
	"fundsync/lib/sl"
)

// handleCheckoutCompleted confirms a donation from the checkout-session path.
// Every step is individually idempotent: an existing donation for the session
// short-circuits, the aggregate increment happens at most once per donation,
// and completing an already-completed campaign is a no-op.
func (c *Core) handleCheckoutCompleted(_ context.Context, evt *stripe.Event) Result {
	sess, err := stripeclient.CheckoutSession(evt)
	if err != nil {
		return failed(err)
	}
	log := c.log.With(
		sl.Event(evt.ID),
		slog.String("session_id", sess.ID),
	)
	t1 := time.Now()
	defer func() {
		log.With(
			slog.String("duration", clock.Millis(time.Since(t1))),
		).Debug("checkout handling completed")
	}()

	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return skipped(fmt.Sprintf("payment status %s", sess.PaymentStatus))
	}

	existing, err := c.db.GetDonationBySession(sess.ID)
	if err != nil {
		return failed(err)
	}
	if existing != nil {
		return skipped("donation already recorded for session")
	}

	tx, err := c.db.GetPendingTransactionBySession(sess.ID)
	if err != nil {
		return failed(err)
	}
	if tx == nil {
		log.Warn("no pending transaction for session")
		return skipped("pending transaction not found")
	}

	paymentIntentId := ""
	if sess.PaymentIntent != nil {
		paymentIntentId = sess.PaymentIntent.ID
	}
	return c.recordDonation(log, tx, paymentIntentId)
}

// handlePaymentIntentSucceeded is the fallback confirmation path, keyed by
// the payment intent id. It dedups against donations created by either path:
// the checkout handler stores the payment intent id on the donation it
// creates, so the lookup here catches it regardless of arrival order.
func (c *Core) handlePaymentIntentSucceeded(_ context.Context, evt *stripe.Event) Result {
	pi, err := stripeclient.PaymentIntent(evt)
	if err != nil {
		return failed(err)
	}
	log := c.log.With(
		sl.Event(evt.ID),
		slog.String("payment_intent_id", pi.ID),
	)

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return skipped(fmt.Sprintf("payment intent status %s", pi.Status))
	}

	existing, err := c.db.GetDonationByPaymentIntent(pi.ID)
	if err != nil {
		return failed(err)
	}
	if existing != nil {
		return skipped("donation already recorded for payment intent")
	}

	tx, err := c.db.GetPendingTransactionByPaymentIntent(pi.ID)
	if err != nil {
		return failed(err)
	}
	if tx == nil {
		log.Warn("no pending transaction for payment intent")
		return skipped("pending transaction not found")
	}

	return c.recordDonation(log, tx, pi.ID)
}

// recordDonation applies the shared money-moving steps for both confirmation
// paths: create the donation, mark the transaction paid, bump the campaign
// aggregate, and complete the campaign once the goal is met.
func (c *Core) recordDonation(log *slog.Logger, tx *entity.PendingTransaction, paymentIntentId string) Result {
	donation := entity.NewDonationFromTransaction(tx, paymentIntentId)
	if err := donation.Validate(); err != nil {
		return failed(fmt.Errorf("donation invalid: %w", err))
	}

	created, err := c.db.InsertDonation(donation)
	if err != nil {
		return failed(err)
	}
	if !created {
		// A concurrent delivery of the other confirmation path won the race.
		return skipped("donation created by concurrent delivery")
	}
	log = log.With(
		slog.String("donation_id", donation.DonationId),
		slog.String("campaign_id", donation.CampaignId),
		slog.Int64("amount", donation.Amount),
	)
	log.Info("donation recorded")

	if err = c.db.MarkTransactionPaid(tx.SessionId, donation.StripePaymentIntentId); err != nil {
		return failed(fmt.Errorf("mark transaction paid: %w", err))
	}

	campaign, err := c.db.IncrementCampaignTotals(donation.CampaignId, donation.Amount)
	if err != nil {
		return failed(fmt.Errorf("increment campaign totals: %w", err))
	}
	if campaign == nil {
		log.Warn("campaign not found for donation")
		return applied("donation recorded, campaign unknown")
	}
	log = log.With(
		slog.Int64("raised", campaign.RaisedAmount),
		slog.Int64("goal", campaign.GoalAmount),
	)

	completed, err := c.db.CompleteCampaignIfGoalMet(donation.CampaignId)
	if err != nil {
		return failed(fmt.Errorf("complete campaign: %w", err))
	}
	if completed {
		log.Info("campaign goal reached")
	}
	return applied("donation recorded")
}
