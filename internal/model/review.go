package model

import "time"

// Review is a rated comment. Rating carries no enforced range.
type Review struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	Rating    int       `json:"rating"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}
