package entity

import (
	"time"

	"github.com/biter777/countries"
)

type TransactionStatus string

const (
	TransactionPending TransactionStatus = "pending"
	TransactionPaid    TransactionStatus = "paid"
)

// PendingTransaction is created by the checkout-initiation flow before the
// donor is redirected to the provider. It carries the donation intent and is
// keyed by the provider checkout session id; this core only reads it and
// flips its status once payment is confirmed.
type PendingTransaction struct {
	SessionId       string            `json:"session_id" bson:"session_id" validate:"required"`
	PaymentIntentId string            `json:"payment_intent_id,omitempty" bson:"payment_intent_id,omitempty"`
	CampaignId      string            `json:"campaign_id" bson:"campaign_id" validate:"required"`
	Amount          int64             `json:"amount" bson:"amount" validate:"required,min=1"`
	Currency        string            `json:"currency" bson:"currency" validate:"required"`
	DonorName       string            `json:"donor_name" bson:"donor_name"`
	DonorEmail      string            `json:"donor_email" bson:"donor_email"`
	DonorCountry    string            `json:"donor_country,omitempty" bson:"donor_country,omitempty"`
	Anonymous       bool              `json:"anonymous" bson:"anonymous"`
	Status          TransactionStatus `json:"status" bson:"status"`
	Created         time.Time         `json:"created" bson:"created"`
	PaidAt          time.Time         `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
}

// CountryCode returns the donor country as an ISO alpha-2 code, resolving
// full country names when the checkout form supplied one.
func (t *PendingTransaction) CountryCode() string {
	if t.DonorCountry == "" {
		return ""
	}
	if len(t.DonorCountry) == 2 {
		return t.DonorCountry
	}
	country := countries.ByName(t.DonorCountry)
	code := country.Alpha2()
	if len(code) == 2 {
		return code
	}
	return ""
}
