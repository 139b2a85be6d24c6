// Package domain contains core concepts of the chat system.
// This file defines User entities and the guest/account invariant.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"chat-relay/errors"
	"time"
)

// Account holds the credentials of a registered user.
type Account struct {
	Login        string
	PasswordHash string
	Email        *string
}

// User is either a guest (no Account) or a registered account, never both.
type User struct {
	ID        string
	Name      string
	IsGuest   bool
	Account   *Account
	CreatedAt time.Time
}

func NewGuest(id, name string, createdAt time.Time) User {
	return User{ID: id, Name: name, IsGuest: true, CreatedAt: createdAt}
}

func NewAccountUser(id, name string, account Account, createdAt time.Time) User {
	return User{ID: id, Name: name, Account: &account, CreatedAt: createdAt}
}

// Validate checks the guest/account exclusivity.
func (u User) Validate() error {
	if u.IsGuest && u.Account != nil {
		return errors.ErrGuestWithAccount
	}
	if !u.IsGuest && u.Account == nil {
		return errors.ErrAccountMissing
	}
	return nil
}
