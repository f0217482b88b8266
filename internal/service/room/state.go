package room

import (
	"fmt"

	"chkobba-service/internal/service/game"
)

type Phase string

const (
	PhaseAwaitingSeats       Phase = "awaiting_seats"
	PhaseDealing             Phase = "dealing"
	PhaseAwaitingPlay        Phase = "awaiting_play"
	PhaseRoundEnding         Phase = "round_ending"
	PhaseAwaitingReplayVotes Phase = "awaiting_replay_votes"
	PhaseClosed              Phase = "closed"
)

var transitions = map[Phase][]Phase{
	PhaseAwaitingSeats:       {PhaseDealing, PhaseClosed},
	PhaseDealing:             {PhaseAwaitingPlay},
	PhaseAwaitingPlay:        {PhaseRoundEnding, PhaseClosed},
	PhaseRoundEnding:         {PhaseAwaitingReplayVotes},
	PhaseAwaitingReplayVotes: {PhaseDealing, PhaseClosed},
	PhaseClosed:              nil,
}

func canTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// roomState is one of the concrete states below. Each carries only the data
// valid in that phase: there is no game before the first deal and no votes
// outside the replay phase.
type roomState interface {
	phase() Phase
}

type awaitingSeats struct{}

type dealing struct{}

type awaitingPlay struct {
	game *game.GameState
}

type roundEnding struct {
	game *game.GameState
}

type awaitingReplayVotes struct {
	game   *game.GameState
	result game.RoundResult
	votes  map[int]bool
}

type closed struct{}

func (awaitingSeats) phase() Phase        { return PhaseAwaitingSeats }
func (dealing) phase() Phase              { return PhaseDealing }
func (*awaitingPlay) phase() Phase        { return PhaseAwaitingPlay }
func (*roundEnding) phase() Phase         { return PhaseRoundEnding }
func (*awaitingReplayVotes) phase() Phase { return PhaseAwaitingReplayVotes }
func (closed) phase() Phase               { return PhaseClosed }

// currentGame returns the round state visible to clients, if any.
func currentGame(s roomState) *game.GameState {
	switch st := s.(type) {
	case *awaitingPlay:
		return st.game
	case *roundEnding:
		return st.game
	case *awaitingReplayVotes:
		return st.game
	default:
		return nil
	}
}

func mustTransition(from roomState, to roomState) roomState {
	if !canTransition(from.phase(), to.phase()) {
		panic(fmt.Sprintf("room: illegal transition %s -> %s", from.phase(), to.phase()))
	}
	return to
}
