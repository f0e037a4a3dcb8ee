package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v76"

	"fundsync/internal/stripeclient"
	"fundsync/lib/sl"
)

// handlePayoutFailed records a failed provider payout on the local payout
// records and alerts the operator. The alert goes out first and independently
// of the record update; a payout id this system never tracked is benign.
func (c *Core) handlePayoutFailed(_ context.Context, evt *stripe.Event) Result {
	po, err := stripeclient.Payout(evt)
	if err != nil {
		return failed(err)
	}
	code := string(po.FailureCode)
	log := c.log.With(
		sl.Event(evt.ID),
		slog.String("payout_id", po.ID),
		slog.String("failure_code", code),
	)

	c.sendAlert(
		fmt.Sprintf("Payout failed: %s", po.ID),
		fmt.Sprintf("Payout of %d %s failed with code %q: %s",
			po.Amount, po.Currency, code, po.FailureMessage),
	)

	updated, err := c.db.FailPayoutsByProviderId(po.ID, code, po.FailureMessage)
	if err != nil {
		return failed(fmt.Errorf("mark payouts failed: %w", err))
	}
	if updated == 0 {
		log.Warn("no local payout records for provider payout")
		return skipped("no matching payout records")
	}
	log.With(
		slog.Int64("payouts_updated", updated),
	).Info("payouts marked failed")
	return applied(fmt.Sprintf("%d payouts marked failed", updated))
}
