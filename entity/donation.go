package entity

import (
	"time"

	"github.com/google/uuid"

	"fundsync/lib/validate"
)

const DonationPaid = "paid"

// Donation is the canonical record of a completed payment. Exactly one
// Donation exists per underlying payment no matter how many provider events
// describe it; the dedup key is the session id or the payment intent id.
// Donations are created by event handlers and never mutated afterwards.
type Donation struct {
	DonationId            string    `json:"donation_id" bson:"donation_id" validate:"required"`
	CampaignId            string    `json:"campaign_id" bson:"campaign_id" validate:"required"`
	DonorName             string    `json:"donor_name" bson:"donor_name"`
	DonorEmail            string    `json:"donor_email" bson:"donor_email"`
	DonorCountry          string    `json:"donor_country,omitempty" bson:"donor_country,omitempty"`
	Anonymous             bool      `json:"anonymous" bson:"anonymous"`
	Amount                int64     `json:"amount" bson:"amount" validate:"required,min=1"`
	Currency              string    `json:"currency" bson:"currency" validate:"required"`
	StripeSessionId       string    `json:"stripe_session_id,omitempty" bson:"stripe_session_id,omitempty"`
	StripePaymentIntentId string    `json:"stripe_payment_intent_id,omitempty" bson:"stripe_payment_intent_id,omitempty"`
	Status                string    `json:"status" bson:"status" validate:"required"`
	Created               time.Time `json:"created" bson:"created"`
}

func (d *Donation) Validate() error {
	return validate.Struct(d)
}

// NewDonationFromTransaction builds the Donation for a confirmed payment,
// copying donor intent from the pending transaction. Both provider ids are
// attached when known so that either confirmation path dedups against it.
func NewDonationFromTransaction(tx *PendingTransaction, paymentIntentId string) *Donation {
	d := &Donation{
		DonationId:            uuid.NewString(),
		CampaignId:            tx.CampaignId,
		DonorName:             tx.DonorName,
		DonorEmail:            tx.DonorEmail,
		DonorCountry:          tx.CountryCode(),
		Anonymous:             tx.Anonymous,
		Amount:                tx.Amount,
		Currency:              tx.Currency,
		StripeSessionId:       tx.SessionId,
		StripePaymentIntentId: paymentIntentId,
		Status:                DonationPaid,
		Created:               time.Now().UTC(),
	}
	if d.StripePaymentIntentId == "" {
		d.StripePaymentIntentId = tx.PaymentIntentId
	}
	return d
}
