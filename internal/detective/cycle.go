package detective

import (
	"time"

	cycleModel "github.com/thisyearnofear/detective-sub003/internal/database/cycle/model"
	matchModel "github.com/thisyearnofear/detective-sub003/internal/database/match/model"
)

type Phase string

const (
	PhaseRegistration Phase = "REGISTRATION"
	PhaseLive         Phase = "LIVE"
	PhaseFinished     Phase = "FINISHED"
)

// Transition reports the outcome of a single Tick. From and To are zero when
// no boundary was crossed.
type Transition struct {
	Transitioned bool  `json:"transitioned"`
	From         Phase `json:"from,omitempty"`
	To           Phase `json:"to,omitempty"`
}

// Cycle is the runtime state of one game round. All fields are guarded by the
// manager's mutex; nothing here locks.
type Cycle struct {
	id    uint64
	phase Phase

	registrationOpenedAt time.Time
	registrationClosesAt time.Time
	startsAt             time.Time
	endsAt               time.Time
	finishedAt           *time.Time

	maxPlayers int

	players   map[uint64]cycleModel.Player
	matched   map[uint64]struct{}
	active    map[string]*matchModel.Match
	completed []*matchModel.Match

	version uint64
}

func newCycle(id uint64, now time.Time, config *Config) *Cycle {
	closes := now.Add(config.RegistrationWindow)
	return &Cycle{
		id:                   id,
		phase:                PhaseRegistration,
		registrationOpenedAt: now,
		registrationClosesAt: closes,
		startsAt:             closes,
		endsAt:               closes.Add(config.LiveDuration),
		maxPlayers:           config.MaxPlayers,
		players:              map[uint64]cycleModel.Player{},
		matched:              map[uint64]struct{}{},
		active:               map[string]*matchModel.Match{},
	}
}

// PhaseAt derives the phase from the wall clock and the cycle timestamps.
// FINISHED is sticky once a tick has stamped finishedAt, so clock skew can
// never revive a closed cycle.
func (c *Cycle) PhaseAt(now time.Time) Phase {
	if c.finishedAt != nil {
		return PhaseFinished
	}
	if now.Before(c.registrationClosesAt) {
		return PhaseRegistration
	}
	if now.Before(c.endsAt) {
		return PhaseLive
	}
	return PhaseFinished
}

func (c *Cycle) ID() uint64 { return c.id }

func (c *Cycle) Phase() Phase { return c.phase }

// tick advances the stored phase by at most one step. Returns the transition
// and whether the LIVE phase just closed, which obliges the caller to settle
// open matches and publish the leaderboard.
func (c *Cycle) tick(now time.Time) (Transition, bool) {
	switch c.phase {
	case PhaseRegistration:
		if !now.Before(c.registrationClosesAt) {
			c.phase = PhaseLive
			c.version++
			return Transition{Transitioned: true, From: PhaseRegistration, To: PhaseLive}, false
		}
	case PhaseLive:
		if !now.Before(c.endsAt) {
			c.phase = PhaseFinished
			t := now
			c.finishedAt = &t
			c.version++
			return Transition{Transitioned: true, From: PhaseLive, To: PhaseFinished}, true
		}
	}
	return Transition{}, false
}

// graceElapsed reports whether a finished cycle may be replaced.
func (c *Cycle) graceElapsed(now time.Time, grace time.Duration) bool {
	return c.finishedAt != nil && !now.Before(c.finishedAt.Add(grace))
}

// register adds a player to the registry. Registration is idempotent for a
// fid already present.
func (c *Cycle) register(p cycleModel.Player) (cycleModel.Player, error) {
	if existing, ok := c.players[p.Fid]; ok {
		return existing, nil
	}
	if len(c.players) >= c.maxPlayers {
		return cycleModel.Player{}, ErrCapacityExceeded
	}

	c.players[p.Fid] = p
	c.version++
	return p, nil
}

// activeMatchFor returns the live match the fid participates in, if any.
func (c *Cycle) activeMatchFor(fid uint64) (*matchModel.Match, bool) {
	for _, mt := range c.active {
		for _, participant := range mt.Participants() {
			if participant == fid {
				return mt, true
			}
		}
	}
	return nil, false
}

// completeMatch moves a match from the active map to the completed sequence.
// The removal and append happen together so the match is never visible in
// both or neither.
func (c *Cycle) completeMatch(mt *matchModel.Match, now time.Time) {
	if _, ok := c.active[mt.ID]; !ok {
		return
	}
	delete(c.active, mt.ID)
	t := now
	mt.EndedAt = &t
	mt.VoteLocked = true
	mt.Completed = true
	c.completed = append(c.completed, mt)
	c.version++
}

// expireOpenMatches closes every still-active match without an outcome.
// Called when the cycle leaves LIVE.
func (c *Cycle) expireOpenMatches(now time.Time) {
	for _, mt := range c.active {
		c.completeMatch(mt, now)
	}
}
