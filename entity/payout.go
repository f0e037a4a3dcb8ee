package entity

import "time"

type PayoutStatus string

const (
	PayoutPending PayoutStatus = "pending"
	PayoutHeld    PayoutStatus = "held"
	PayoutPaid    PayoutStatus = "paid"
	PayoutFailed  PayoutStatus = "failed"
)

// Payout tracks funds owed to a campaign owner. A pending payout is moved to
// held when a dispute is opened against one of the owner's donations; releasing
// a held payout back to pending is a manual admin action outside this core.
type Payout struct {
	PayoutId       string       `json:"payout_id" bson:"payout_id"`
	UserId         string       `json:"user_id" bson:"user_id"`
	StripePayoutId string       `json:"stripe_payout_id,omitempty" bson:"stripe_payout_id,omitempty"`
	Amount         int64        `json:"amount" bson:"amount"`
	Currency       string       `json:"currency" bson:"currency"`
	Status         PayoutStatus `json:"status" bson:"status"`
	HoldReason     string       `json:"hold_reason,omitempty" bson:"hold_reason,omitempty"`
	DisputeId      string       `json:"dispute_id,omitempty" bson:"dispute_id,omitempty"`
	FailureCode    string       `json:"failure_code,omitempty" bson:"failure_code,omitempty"`
	FailureMessage string       `json:"failure_message,omitempty" bson:"failure_message,omitempty"`
	Created        time.Time    `json:"created" bson:"created"`
	Updated        time.Time    `json:"updated" bson:"updated"`
}
