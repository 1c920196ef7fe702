package detective

import (
	"context"

	"github.com/google/uuid"
	matchModel "github.com/thisyearnofear/detective-sub003/internal/database/match/model"
	"github.com/thisyearnofear/detective-sub003/internal/logging"
	"github.com/valyala/fastrand"
)

// RequestMatch returns the requester's live match, creating one if needed.
// Repeated calls while LIVE return the same match. The has-match check, the
// opponent pick and the matched-set insertion all happen in one critical
// section, so two concurrent requests for the same fid can never produce two
// matches.
func (m *Manager) RequestMatch(ctx context.Context, fid uint64) (MatchView, error) {
	logger := logging.FromContext(ctx).Named("matchmaker")
	now := m.now()

	m.mtx.Lock()
	c := m.cycle

	if c.PhaseAt(now) != PhaseLive {
		m.mtx.Unlock()
		return MatchView{}, ErrNotLive
	}
	if _, ok := c.players[fid]; !ok {
		m.mtx.Unlock()
		return MatchView{}, ErrUnknownPlayer
	}

	if mt, ok := c.activeMatchFor(fid); ok {
		view := m.matchView(mt, fid)
		m.mtx.Unlock()
		return view, nil
	}

	// a finalized match does not free the slot; one match per fid per cycle
	if _, spent := c.matched[fid]; spent {
		m.mtx.Unlock()
		return MatchView{}, ErrAlreadyMatched
	}

	// candidates: registered, not the requester, not yet matched this cycle
	var candidates []uint64
	for candidate := range c.players {
		if candidate == fid {
			continue
		}
		if _, taken := c.matched[candidate]; taken {
			continue
		}
		candidates = append(candidates, candidate)
	}

	mt := &matchModel.Match{
		ID:        uuid.NewString(),
		CycleID:   c.id,
		HumanFid:  fid,
		StartedAt: now,
		EndsAt:    now.Add(m.config.MatchDuration),
		Votes:     map[uint64]matchModel.Vote{},
	}

	useBot := len(candidates) == 0 || int(fastrand.Uint32n(100)) < m.config.BotChancePct
	if useBot {
		mt.Bot = c.samplePersona(fid)
		c.matched[fid] = struct{}{}
	} else {
		opponent := candidates[fastrand.Uint32n(uint32(len(candidates)))]
		mt.OpponentFid = opponent
		c.matched[fid] = struct{}{}
		c.matched[opponent] = struct{}{}
	}

	c.active[mt.ID] = mt
	c.version++

	view := m.matchView(mt, fid)
	snapshot := *mt
	cycleSnapshot := c.toModel()
	m.mtx.Unlock()

	if useBot {
		logger.Infof("match %s created for fid %d against bot persona", snapshot.ID, fid)
	} else {
		logger.Infof("match %s created for fids %d and %d", snapshot.ID, fid, snapshot.OpponentFid)
	}

	m.persistMatch(ctx, snapshot)
	m.persistCycle(ctx, cycleSnapshot)

	return view, nil
}
