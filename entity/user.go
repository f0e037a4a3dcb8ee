package entity

import (
	"net/http"
	"time"

	"fundsync/lib/validate"
)

// User is an operator account for the read-only reporting API. Authentication
// is by bearer token; users are provisioned out of band.
type User struct {
	Username     string    `json:"username" bson:"username" validate:"required"`
	Name         string    `json:"name" bson:"name" validate:"omitempty"`
	Email        string    `json:"email" bson:"email" validate:"omitempty"`
	Token        string    `json:"token" bson:"token" validate:"required,min=1"`
	Admin        bool      `json:"admin" bson:"admin"`
	RegisteredAt time.Time `json:"registered_at" bson:"registered_at"`
}

func (u *User) Bind(_ *http.Request) error {
	return validate.Struct(u)
}
