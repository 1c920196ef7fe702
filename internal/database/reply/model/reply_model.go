package model

import "time"

const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Reply is a durable scheduled bot reply. It is never fired by an in-process
// timer; the delivery sweep compares DeliverAt against the wall clock, so a
// pending reply survives a restart.
type Reply struct {
	ID        string `json:"id"`
	MatchID   string `json:"matchId"`
	PersonaID string `json:"personaId"`
	Text      string `json:"text"`

	DeliverAt time.Time `json:"deliverAt"`
	CreatedAt time.Time `json:"createdAt"`

	Status  string `json:"status"`
	Retries int    `json:"retries"`
}
