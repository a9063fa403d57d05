// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account.
//
// PasswordHash never leaves the server: the json:"-" tag keeps it out of
// every response, including ones that embed a full User.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Avatar       *Image    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is the projection of a User that other users may see, used
// when a campground or review "populates" its author.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   *Image `json:"avatar,omitempty"`
}

// Public returns the publicly visible part of the user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}
