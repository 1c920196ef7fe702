package model

import "time"

// Stat aggregates a player's lifetime results across cycles.
type Stat struct {
	Fid         uint64 `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`

	// Detective side: votes cast and how many were right.
	Matches      int           `json:"matches"`
	Correct      int           `json:"correct"`
	VoteDuration time.Duration `json:"voteDuration"`

	// Subject side: how often this player's persona or self was judged,
	// and how often the judge said "real". The ratio is the deception
	// success rate.
	TimesJudged     int `json:"timesJudged"`
	TimesJudgedReal int `json:"timesJudgedReal"`

	UpdatedAt time.Time `json:"updatedAt"`
}

func (s Stat) Accuracy() float64 {
	if s.Matches == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Matches)
}

func (s Stat) DeceptionRate() float64 {
	if s.TimesJudged == 0 {
		return 0
	}
	return float64(s.TimesJudgedReal) / float64(s.TimesJudged)
}
