package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fundsync/entity"
	"fundsync/internal/config"
)

const (
	collectionEvents       = "events"
	collectionTransactions = "pending_transactions"
	collectionDonations    = "donations"
	collectionCampaigns    = "campaigns"
	collectionPayouts      = "payouts"
	collectionUsers        = "users"
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(m.ctx)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find: %w", err)
}

// EnsureIndexes creates the unique indexes the ingestion pipeline relies on.
// The event_id index is what makes concurrent duplicate deliveries resolve to
// exactly one ledger record; the sparse donation indexes are the storage-level
// backstop for the dedup-by-existing-donation checks in the handlers.
func (m *MongoDB) EnsureIndexes() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)

	unique := func(collection, field string, sparse bool) error {
		_, err := db.Collection(collection).Indexes().CreateOne(m.ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(sparse),
		})
		if err != nil {
			return fmt.Errorf("index %s.%s: %w", collection, field, err)
		}
		return nil
	}

	if err = unique(collectionEvents, "event_id", false); err != nil {
		return err
	}
	if err = unique(collectionTransactions, "session_id", false); err != nil {
		return err
	}
	if err = unique(collectionDonations, "stripe_session_id", true); err != nil {
		return err
	}
	if err = unique(collectionDonations, "stripe_payment_intent_id", true); err != nil {
		return err
	}
	return nil
}

// InsertEventRecord attempts to create a new ledger record. The unique index
// on event_id picks exactly one winner among concurrent inserts; the losers
// get created=false and must not process the event again.
func (m *MongoDB) InsertEventRecord(rec *entity.EventRecord) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionEvents)
	_, err = collection.InsertOne(m.ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert event record: %w", err)
	}
	return true, nil
}

func (m *MongoDB) GetEventRecord(eventId string) (*entity.EventRecord, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionEvents)
	filter := bson.D{{Key: "event_id", Value: eventId}}
	var rec entity.EventRecord
	err = collection.FindOne(m.ctx, filter).Decode(&rec)
	if err != nil {
		return nil, m.findError(err)
	}
	return &rec, nil
}

// UpdateEventStatus transitions a ledger record and stamps updated_at.
// The attempts counter is bumped on every entry into processing.
func (m *MongoDB) UpdateEventStatus(eventId string, status entity.EventStatus, errMsg string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionEvents)
	filter := bson.D{{Key: "event_id", Value: eventId}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: status},
		{Key: "error", Value: errMsg},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	if status == entity.EventProcessing {
		update = append(update, bson.E{Key: "$inc", Value: bson.D{{Key: "attempts", Value: 1}}})
	}
	_, err = collection.UpdateOne(m.ctx, filter, update)
	return err
}

func (m *MongoDB) GetPendingTransactionBySession(sessionId string) (*entity.PendingTransaction, error) {
	return m.getTransaction(bson.D{{Key: "session_id", Value: sessionId}})
}

func (m *MongoDB) GetPendingTransactionByPaymentIntent(paymentIntentId string) (*entity.PendingTransaction, error) {
	return m.getTransaction(bson.D{{Key: "payment_intent_id", Value: paymentIntentId}})
}

func (m *MongoDB) getTransaction(filter bson.D) (*entity.PendingTransaction, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionTransactions)
	var tx entity.PendingTransaction
	err = collection.FindOne(m.ctx, filter).Decode(&tx)
	if err != nil {
		return nil, m.findError(err)
	}
	return &tx, nil
}

// MarkTransactionPaid flips the pending transaction to paid and attaches the
// payment intent id so the second confirmation path can locate it.
func (m *MongoDB) MarkTransactionPaid(sessionId, paymentIntentId string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionTransactions)
	filter := bson.D{{Key: "session_id", Value: sessionId}}
	set := bson.D{
		{Key: "status", Value: entity.TransactionPaid},
		{Key: "paid_at", Value: time.Now().UTC()},
	}
	if paymentIntentId != "" {
		set = append(set, bson.E{Key: "payment_intent_id", Value: paymentIntentId})
	}
	_, err = collection.UpdateOne(m.ctx, filter, bson.D{{Key: "$set", Value: set}})
	return err
}

func (m *MongoDB) GetDonationBySession(sessionId string) (*entity.Donation, error) {
	return m.getDonation(bson.D{{Key: "stripe_session_id", Value: sessionId}})
}

func (m *MongoDB) GetDonationByPaymentIntent(paymentIntentId string) (*entity.Donation, error) {
	return m.getDonation(bson.D{{Key: "stripe_payment_intent_id", Value: paymentIntentId}})
}

func (m *MongoDB) getDonation(filter bson.D) (*entity.Donation, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionDonations)
	var donation entity.Donation
	err = collection.FindOne(m.ctx, filter).Decode(&donation)
	if err != nil {
		return nil, m.findError(err)
	}
	return &donation, nil
}

// InsertDonation creates the donation record. When a concurrent delivery of
// the other confirmation path already created it, the unique sparse indexes
// reject the insert and created=false is returned.
func (m *MongoDB) InsertDonation(donation *entity.Donation) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionDonations)
	_, err = collection.InsertOne(m.ctx, donation)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert donation: %w", err)
	}
	return true, nil
}

func (m *MongoDB) GetDonationsByCampaign(campaignId string) ([]*entity.Donation, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionDonations)
	filter := bson.D{{Key: "campaign_id", Value: campaignId}}
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var donations []*entity.Donation
	err = cursor.All(m.ctx, &donations)
	if err != nil {
		return nil, err
	}
	return donations, nil
}

func (m *MongoDB) GetCampaign(campaignId string) (*entity.Campaign, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCampaigns)
	filter := bson.D{{Key: "campaign_id", Value: campaignId}}
	var campaign entity.Campaign
	err = collection.FindOne(m.ctx, filter).Decode(&campaign)
	if err != nil {
		return nil, m.findError(err)
	}
	return &campaign, nil
}

// IncrementCampaignTotals bumps raised_amount and donor_count in one atomic
// $inc so concurrent donations to the same campaign never lose an update.
// Returns the post-increment campaign, or nil when the campaign is unknown.
func (m *MongoDB) IncrementCampaignTotals(campaignId string, amount int64) (*entity.Campaign, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCampaigns)
	filter := bson.D{{Key: "campaign_id", Value: campaignId}}
	update := bson.D{{Key: "$inc", Value: bson.D{
		{Key: "raised_amount", Value: amount},
		{Key: "donor_count", Value: 1},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var campaign entity.Campaign
	err = collection.FindOneAndUpdate(m.ctx, filter, update, opts).Decode(&campaign)
	if err != nil {
		return nil, m.findError(err)
	}
	return &campaign, nil
}

// CompleteCampaignIfGoalMet conditionally transitions the campaign to
// completed. The filter carries both conditions, so a redundant call or a
// concurrent call matches zero documents and is a no-op.
func (m *MongoDB) CompleteCampaignIfGoalMet(campaignId string) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCampaigns)
	filter := bson.D{
		{Key: "campaign_id", Value: campaignId},
		{Key: "status", Value: bson.D{{Key: "$ne", Value: entity.CampaignCompleted}}},
		{Key: "$expr", Value: bson.D{{Key: "$gte", Value: bson.A{"$raised_amount", "$goal_amount"}}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: entity.CampaignCompleted},
		{Key: "completed_at", Value: time.Now().UTC()},
	}}}
	result, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

// HoldPendingPayouts moves all of the owner's pending payouts to held in one
// bulk conditional update, recording the dispute. Returns the number of
// payouts affected; a repeat call for the same dispute affects zero.
func (m *MongoDB) HoldPendingPayouts(userId, disputeId, reason string) (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionPayouts)
	filter := bson.D{
		{Key: "user_id", Value: userId},
		{Key: "status", Value: entity.PayoutPending},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: entity.PayoutHeld},
		{Key: "dispute_id", Value: disputeId},
		{Key: "hold_reason", Value: reason},
		{Key: "updated", Value: time.Now().UTC()},
	}}}
	result, err := collection.UpdateMany(m.ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// FailPayoutsByProviderId marks local payouts matching the provider payout id
// as failed, storing the failure details for the operator.
func (m *MongoDB) FailPayoutsByProviderId(stripePayoutId, code, message string) (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionPayouts)
	filter := bson.D{
		{Key: "stripe_payout_id", Value: stripePayoutId},
		{Key: "status", Value: bson.D{{Key: "$ne", Value: entity.PayoutFailed}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: entity.PayoutFailed},
		{Key: "failure_code", Value: code},
		{Key: "failure_message", Value: message},
		{Key: "updated", Value: time.Now().UTC()},
	}}}
	result, err := collection.UpdateMany(m.ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (m *MongoDB) GetUser(token string) (*entity.User, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{{Key: "token", Value: token}}
	var user entity.User
	err = collection.FindOne(m.ctx, filter).Decode(&user)
	if err != nil {
		return nil, m.findError(err)
	}
	return &user, nil
}
