package core

import (
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v76"

	"fundsync/entity"
	"fundsync/internal/stripeclient"
	"fundsync/lib/sl"
)

// Database is the persistence surface the event pipeline depends on.
// Implemented by internal/database/mongo.go. Lookups return (nil, nil) when
// the document does not exist; handlers treat that as a benign no-op.
type Database interface {
	InsertEventRecord(rec *entity.EventRecord) (bool, error)
	GetEventRecord(eventId string) (*entity.EventRecord, error)
	UpdateEventStatus(eventId string, status entity.EventStatus, errMsg string) error

	GetPendingTransactionBySession(sessionId string) (*entity.PendingTransaction, error)
	GetPendingTransactionByPaymentIntent(paymentIntentId string) (*entity.PendingTransaction, error)
	MarkTransactionPaid(sessionId, paymentIntentId string) error

	GetDonationBySession(sessionId string) (*entity.Donation, error)
	GetDonationByPaymentIntent(paymentIntentId string) (*entity.Donation, error)
	InsertDonation(donation *entity.Donation) (bool, error)
	GetDonationsByCampaign(campaignId string) ([]*entity.Donation, error)

	GetCampaign(campaignId string) (*entity.Campaign, error)
	IncrementCampaignTotals(campaignId string, amount int64) (*entity.Campaign, error)
	CompleteCampaignIfGoalMet(campaignId string) (bool, error)

	HoldPendingPayouts(userId, disputeId, reason string) (int64, error)
	FailPayoutsByProviderId(stripePayoutId, code, message string) (int64, error)
}

// AlertSender notifies operators about high-severity events. Failures are
// logged and swallowed; alerting never participates in pipeline correctness.
type AlertSender interface {
	SendAlert(subject, body string) error
}

// TaskQueue decouples event processing from the webhook request lifecycle.
type TaskQueue interface {
	Enqueue(task func()) bool
}

type AuthService interface {
	UserByToken(token string) (*entity.User, error)
}

type Core struct {
	sc       *stripeclient.StripeClient
	db       Database
	queue    TaskQueue
	alert    AlertSender
	auth     AuthService
	handlers map[stripe.EventType]HandlerFunc
	log      *slog.Logger
}

func New(db Database, sc *stripeclient.StripeClient, queue TaskQueue, log *slog.Logger) *Core {
	if db == nil {
		panic("database is nil")
	}
	if sc == nil {
		panic("stripe client is nil")
	}
	c := &Core{
		sc:    sc,
		db:    db,
		queue: queue,
		log:   log.With(sl.Module("core")),
	}
	// Closed set of handled event types; anything else is acknowledged
	// without effect so the provider stops redelivering it.
	c.handlers = map[stripe.EventType]HandlerFunc{
		stripe.EventTypeCheckoutSessionCompleted: c.handleCheckoutCompleted,
		stripe.EventTypePaymentIntentSucceeded:   c.handlePaymentIntentSucceeded,
		stripe.EventTypeChargeDisputeCreated:     c.handleDisputeCreated,
		stripe.EventTypePayoutFailed:             c.handlePayoutFailed,
	}
	return c
}

func (c *Core) SetAlertSender(alert AlertSender) {
	c.alert = alert
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) AuthenticateByToken(token string) (*entity.User, error) {
	if c.auth == nil {
		return nil, errAuthNotConnected
	}
	return c.auth.UserByToken(token)
}

func (c *Core) StripeConfigured() bool {
	return c.sc.Configured()
}

func (c *Core) StripeVerifySignature(payload []byte, header string, tolerance time.Duration) bool {
	return c.sc.VerifySignature(payload, header, tolerance)
}

func (c *Core) StripeParseEvent(payload []byte) (*stripe.Event, error) {
	return c.sc.ParseEvent(payload)
}

// EventRecord exposes a ledger entry to the operator read API.
func (c *Core) EventRecord(eventId string) (*entity.EventRecord, error) {
	return c.db.GetEventRecord(eventId)
}

func (c *Core) Campaign(campaignId string) (*entity.Campaign, error) {
	return c.db.GetCampaign(campaignId)
}

func (c *Core) CampaignDonations(campaignId string) ([]*entity.Donation, error) {
	return c.db.GetDonationsByCampaign(campaignId)
}

func (c *Core) sendAlert(subject, body string) {
	if c.alert == nil {
		c.log.With(
			slog.String("subject", subject),
		).Debug("alert sender not connected")
		return
	}
	if err := c.alert.SendAlert(subject, body); err != nil {
		c.log.With(
			sl.Err(err),
			slog.String("subject", subject),
		).Warn("send admin alert")
	}
}
