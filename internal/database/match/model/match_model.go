package model

import "time"

// Persona is the synthetic identity a bot plays a match under. It borrows a
// real player's writing-style fingerprint but carries its own name and id.
type Persona struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	AvatarURL   string   `json:"avatarUrl"`
	Fingerprint []string `json:"fingerprint"`
	SourceFid   uint64   `json:"sourceFid"`
}

type Message struct {
	ID     string    `json:"id"`
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}

type Vote struct {
	Guess   bool      `json:"guess"`
	VotedAt time.Time `json:"votedAt"`
}

type Match struct {
	ID      string `json:"id"`
	CycleID uint64 `json:"cycleId"`

	// HumanFid is always set. Exactly one of OpponentFid and Bot is set.
	HumanFid    uint64   `json:"humanFid"`
	OpponentFid uint64   `json:"opponentFid,omitempty"`
	Bot         *Persona `json:"bot,omitempty"`

	Messages []Message `json:"messages"`

	StartedAt time.Time  `json:"startedAt"`
	EndsAt    time.Time  `json:"endsAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`

	Votes      map[uint64]Vote `json:"votes"`
	VoteLocked bool            `json:"voteLocked"`
	Completed  bool            `json:"completed"`
}

func (m *Match) IsBotMatch() bool {
	return m.Bot != nil
}

// Participants lists the human fids attached to the match.
func (m *Match) Participants() []uint64 {
	if m.IsBotMatch() {
		return []uint64{m.HumanFid}
	}
	return []uint64{m.HumanFid, m.OpponentFid}
}

// CounterpartIsBot reports whether the counterpart of voter is the bot side.
func (m *Match) CounterpartIsBot(voter uint64) bool {
	return m.IsBotMatch() && voter == m.HumanFid
}
