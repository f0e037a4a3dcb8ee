package core

import (
	"fmt"
	"sync"
	"time"

	"fundsync/entity"
)

// mockDB is an in-memory Database with the same atomicity contract as the
// mongo layer: unique event ids, unique donation keys, single-step aggregate
// increments and conditional transitions, all under one lock.
type mockDB struct {
	mu           sync.Mutex
	events       map[string]*entity.EventRecord
	transactions []*entity.PendingTransaction
	donations    []*entity.Donation
	campaigns    map[string]*entity.Campaign
	payouts      []*entity.Payout

	// failTxLookups makes the next N transaction lookups fail, simulating a
	// transient storage error.
	failTxLookups int
	txErr         error
}

func newMockDB() *mockDB {
	return &mockDB{
		events:    make(map[string]*entity.EventRecord),
		campaigns: make(map[string]*entity.Campaign),
	}
}

func (m *mockDB) InsertEventRecord(rec *entity.EventRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[rec.EventId]; ok {
		return false, nil
	}
	clone := *rec
	m.events[rec.EventId] = &clone
	return true, nil
}

func (m *mockDB) GetEventRecord(eventId string) (*entity.EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.events[eventId]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (m *mockDB) UpdateEventStatus(eventId string, status entity.EventStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.events[eventId]
	if !ok {
		return fmt.Errorf("event %s not recorded", eventId)
	}
	rec.Status = status
	rec.Error = errMsg
	rec.UpdatedAt = time.Now().UTC()
	if status == entity.EventProcessing {
		rec.Attempts++
	}
	return nil
}

func (m *mockDB) GetPendingTransactionBySession(sessionId string) (*entity.PendingTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.txLookupErr(); err != nil {
		return nil, err
	}
	for _, tx := range m.transactions {
		if tx.SessionId == sessionId {
			clone := *tx
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockDB) GetPendingTransactionByPaymentIntent(paymentIntentId string) (*entity.PendingTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.txLookupErr(); err != nil {
		return nil, err
	}
	for _, tx := range m.transactions {
		if tx.PaymentIntentId != "" && tx.PaymentIntentId == paymentIntentId {
			clone := *tx
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockDB) txLookupErr() error {
	if m.failTxLookups > 0 {
		m.failTxLookups--
		if m.txErr != nil {
			return m.txErr
		}
		return fmt.Errorf("storage unavailable")
	}
	return nil
}

func (m *mockDB) MarkTransactionPaid(sessionId, paymentIntentId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.transactions {
		if tx.SessionId == sessionId {
			tx.Status = entity.TransactionPaid
			tx.PaidAt = time.Now().UTC()
			if paymentIntentId != "" {
				tx.PaymentIntentId = paymentIntentId
			}
		}
	}
	return nil
}

func (m *mockDB) GetDonationBySession(sessionId string) (*entity.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.donations {
		if d.StripeSessionId == sessionId {
			clone := *d
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockDB) GetDonationByPaymentIntent(paymentIntentId string) (*entity.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.donations {
		if d.StripePaymentIntentId != "" && d.StripePaymentIntentId == paymentIntentId {
			clone := *d
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockDB) InsertDonation(donation *entity.Donation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.donations {
		if donation.StripeSessionId != "" && d.StripeSessionId == donation.StripeSessionId {
			return false, nil
		}
		if donation.StripePaymentIntentId != "" && d.StripePaymentIntentId == donation.StripePaymentIntentId {
			return false, nil
		}
	}
	clone := *donation
	m.donations = append(m.donations, &clone)
	return true, nil
}

func (m *mockDB) GetDonationsByCampaign(campaignId string) ([]*entity.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Donation
	for _, d := range m.donations {
		if d.CampaignId == campaignId {
			clone := *d
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *mockDB) GetCampaign(campaignId string) (*entity.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignId]
	if !ok {
		return nil, nil
	}
	clone := *c
	return &clone, nil
}

func (m *mockDB) IncrementCampaignTotals(campaignId string, amount int64) (*entity.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignId]
	if !ok {
		return nil, nil
	}
	c.RaisedAmount += amount
	c.DonorCount++
	clone := *c
	return &clone, nil
}

func (m *mockDB) CompleteCampaignIfGoalMet(campaignId string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignId]
	if !ok {
		return false, nil
	}
	if c.Status == entity.CampaignCompleted || !c.GoalReached() {
		return false, nil
	}
	c.Status = entity.CampaignCompleted
	c.CompletedAt = time.Now().UTC()
	return true, nil
}

func (m *mockDB) HoldPendingPayouts(userId, disputeId, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var held int64
	for _, p := range m.payouts {
		if p.UserId == userId && p.Status == entity.PayoutPending {
			p.Status = entity.PayoutHeld
			p.DisputeId = disputeId
			p.HoldReason = reason
			p.Updated = time.Now().UTC()
			held++
		}
	}
	return held, nil
}

func (m *mockDB) FailPayoutsByProviderId(stripePayoutId, code, message string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for _, p := range m.payouts {
		if p.StripePayoutId == stripePayoutId && p.Status != entity.PayoutFailed {
			p.Status = entity.PayoutFailed
			p.FailureCode = code
			p.FailureMessage = message
			p.Updated = time.Now().UTC()
			updated++
		}
	}
	return updated, nil
}

func (m *mockDB) eventStatus(eventId string) entity.EventStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.events[eventId]
	if !ok {
		return ""
	}
	return rec.Status
}

func (m *mockDB) donationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.donations)
}

// mockAlert records alert invocations and optionally fails them.
type mockAlert struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (a *mockAlert) SendAlert(subject, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subjects = append(a.subjects, subject)
	return a.err
}

func (a *mockAlert) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.subjects)
}

// syncQueue runs tasks inline so tests observe processing deterministically.
type syncQueue struct{}

func (syncQueue) Enqueue(task func()) bool {
	task()
	return true
}

// gateQueue rejects tasks until opened, simulating a full queue.
type gateQueue struct {
	open bool
}

func (q *gateQueue) Enqueue(task func()) bool {
	if !q.open {
		return false
	}
	task()
	return true
}
