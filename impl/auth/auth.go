package auth

import (
	"fmt"

	"fundsync/entity"
)

type Database interface {
	GetUser(token string) (*entity.User, error)
}

type Auth struct {
	db Database
}

func New(db Database) *Auth {
	return &Auth{db: db}
}

func (a *Auth) UserByToken(token string) (*entity.User, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	user, err := a.db.GetUser(token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("token not found")
	}
	return user, nil
}
