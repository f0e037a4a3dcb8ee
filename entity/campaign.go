package entity

import "time"

type CampaignStatus string

const (
	CampaignPublished CampaignStatus = "published"
	CampaignCompleted CampaignStatus = "completed"
)

// Campaign is the aggregate view of a fundraising campaign. RaisedAmount and
// DonorCount are mutated only through atomic increments at the storage layer,
// never by read-modify-write in application code.
type Campaign struct {
	CampaignId   string         `json:"campaign_id" bson:"campaign_id"`
	OwnerId      string         `json:"owner_id" bson:"owner_id"`
	Title        string         `json:"title" bson:"title"`
	Currency     string         `json:"currency" bson:"currency"`
	GoalAmount   int64          `json:"goal_amount" bson:"goal_amount"`
	RaisedAmount int64          `json:"raised_amount" bson:"raised_amount"`
	DonorCount   int64          `json:"donor_count" bson:"donor_count"`
	Status       CampaignStatus `json:"status" bson:"status"`
	CompletedAt  time.Time      `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

func (c *Campaign) GoalReached() bool {
	return c.GoalAmount > 0 && c.RaisedAmount >= c.GoalAmount
}
