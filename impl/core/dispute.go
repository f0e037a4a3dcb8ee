package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v76"

	"fundsync/internal/stripeclient"
	"fundsync/lib/sl"
)

// handleDisputeCreated freezes the campaign owner's pending payouts while the
// dispute is open. The hold is the safety-critical effect; the operator alert
// is advisory and its failure never rolls the hold back.
func (c *Core) handleDisputeCreated(_ context.Context, evt *stripe.Event) Result {
	dp, err := stripeclient.Dispute(evt)
	if err != nil {
		return failed(err)
	}
	paymentIntentId := ""
	if dp.PaymentIntent != nil {
		paymentIntentId = dp.PaymentIntent.ID
	}
	log := c.log.With(
		sl.Event(evt.ID),
		slog.String("dispute_id", dp.ID),
		slog.String("payment_intent_id", paymentIntentId),
	)

	if paymentIntentId == "" {
		log.Warn("dispute carries no payment intent")
		return skipped("no payment intent on dispute")
	}

	donation, err := c.db.GetDonationByPaymentIntent(paymentIntentId)
	if err != nil {
		return failed(err)
	}
	if donation == nil {
		log.Warn("dispute references unknown payment")
		return skipped("donation not found for dispute")
	}

	campaign, err := c.db.GetCampaign(donation.CampaignId)
	if err != nil {
		return failed(err)
	}
	if campaign == nil {
		log.Warn("donation references unknown campaign")
		return skipped("campaign not found for donation")
	}

	reason := fmt.Sprintf("dispute %s opened against donation %s", dp.ID, donation.DonationId)
	held, err := c.db.HoldPendingPayouts(campaign.OwnerId, dp.ID, reason)
	if err != nil {
		return failed(fmt.Errorf("hold payouts: %w", err))
	}
	log.With(
		slog.String("owner_id", campaign.OwnerId),
		slog.Int64("payouts_held", held),
	).Info("payouts held for dispute")

	c.sendAlert(
		fmt.Sprintf("Dispute opened: %s", dp.ID),
		fmt.Sprintf("Campaign %q (%s): dispute on donation %s for %d %s; %d pending payout(s) placed on hold.",
			campaign.Title, campaign.CampaignId, donation.DonationId,
			donation.Amount, donation.Currency, held),
	)

	return applied(fmt.Sprintf("%d payouts held", held))
}
