package model

import "time"

// Player is a registered participant, read-only once written.
type Player struct {
	Fid          uint64    `json:"fid"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName"`
	AvatarURL    string    `json:"avatarUrl"`
	Fingerprint  []string  `json:"fingerprint"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type Cycle struct {
	ID    uint64 `json:"id"`
	Phase string `json:"phase"`

	RegistrationOpenedAt time.Time  `json:"registrationOpenedAt"`
	RegistrationClosesAt time.Time  `json:"registrationClosesAt"`
	StartsAt             time.Time  `json:"startsAt"`
	EndsAt               time.Time  `json:"endsAt"`
	FinishedAt           *time.Time `json:"finishedAt,omitempty"`

	MaxPlayers int `json:"maxPlayers"`

	Players           []Player `json:"players"`
	Matched           []uint64 `json:"matched"`
	ActiveMatchIDs    []string `json:"activeMatchIds"`
	CompletedMatchIDs []string `json:"completedMatchIds"`

	Version uint64 `json:"version"`
}
