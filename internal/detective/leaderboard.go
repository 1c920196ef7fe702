package detective

import (
	"sort"
	"time"
)

type LeaderboardEntry struct {
	Fid         uint64 `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`

	Matches        int     `json:"matches"`
	Correct        int     `json:"correct"`
	Accuracy       float64 `json:"accuracy"`
	AvgVoteSeconds float64 `json:"avgVoteSeconds"`
}

// Leaderboard is a pure projection over the cycle's completed matches:
// accuracy first, mean vote speed as the tiebreaker, minimum match count to
// qualify.
func (m *Manager) Leaderboard() []LeaderboardEntry {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return m.leaderboardLocked()
}

func (m *Manager) leaderboardLocked() []LeaderboardEntry {
	type agg struct {
		matches  int
		correct  int
		duration time.Duration
	}
	byFid := map[uint64]*agg{}

	for _, mt := range m.cycle.completed {
		for voter, vote := range mt.Votes {
			a := byFid[voter]
			if a == nil {
				a = &agg{}
				byFid[voter] = a
			}

			a.matches++
			// guess is "my counterpart is human"
			counterpartHuman := !mt.CounterpartIsBot(voter)
			if vote.Guess == counterpartHuman {
				a.correct++
			}
			a.duration += vote.VotedAt.Sub(mt.StartedAt)
		}
	}

	var entries []LeaderboardEntry
	for fid, a := range byFid {
		if a.matches < m.config.MinLeaderboardMatches {
			continue
		}

		e := LeaderboardEntry{
			Fid:      fid,
			Matches:  a.matches,
			Correct:  a.correct,
			Accuracy: float64(a.correct) / float64(a.matches),
		}
		e.AvgVoteSeconds = a.duration.Seconds() / float64(a.matches)
		if p, ok := m.cycle.players[fid]; ok {
			e.Username = p.Username
			e.DisplayName = p.DisplayName
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Accuracy != entries[j].Accuracy {
			return entries[i].Accuracy > entries[j].Accuracy
		}
		if entries[i].AvgVoteSeconds != entries[j].AvgVoteSeconds {
			return entries[i].AvgVoteSeconds < entries[j].AvgVoteSeconds
		}
		return entries[i].Fid < entries[j].Fid
	})

	return entries
}
