package detective

import (
	"errors"
	"fmt"

	statDb "github.com/thisyearnofear/detective-sub003/internal/database/stat/database"
)

// PlayerStats is the lifetime record of a fid across cycles: how well they
// detect, and how often their borrowed writing style fools others.
type PlayerStats struct {
	Fid         uint64 `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`

	Matches  int     `json:"matches"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`

	TimesJudged   int     `json:"timesJudged"`
	DeceptionRate float64 `json:"deceptionRate"`
}

func (m *Manager) PlayerStats(fid uint64) (PlayerStats, error) {
	if m.statDb == nil {
		return PlayerStats{}, ErrUnknownPlayer
	}

	s, err := m.statDb.Fetch(fid)
	if err != nil {
		if errors.Is(err, statDb.ErrNotFound) {
			return PlayerStats{}, ErrUnknownPlayer
		}
		return PlayerStats{}, fmt.Errorf("fetch stat for fid %d: %w", fid, err)
	}

	return PlayerStats{
		Fid:           s.Fid,
		Username:      s.Username,
		DisplayName:   s.DisplayName,
		Matches:       s.Matches,
		Correct:       s.Correct,
		Accuracy:      s.Accuracy(),
		TimesJudged:   s.TimesJudged,
		DeceptionRate: s.DeceptionRate(),
	}, nil
}
