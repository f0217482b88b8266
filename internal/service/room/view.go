package room

import (
	"chkobba-service/internal/service/game"
)

type Settings struct {
	Mode        string `json:"mode"`
	PlayerCount int    `json:"playerCount"`
	TurnSeconds int    `json:"turnSeconds"`
}

type SeatView struct {
	Seat      int    `json:"seat"`
	Team      string `json:"team"`
	Occupied  bool   `json:"occupied"`
	Nickname  string `json:"nickname,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	Connected bool   `json:"connected"`
	HandCount int    `json:"handCount"`
}

type PlayView struct {
	Seat     int         `json:"seat"`
	Card     game.Card   `json:"card"`
	Captured []game.Card `json:"captured"`
	Chkobba  bool        `json:"chkobba"`
}

// GameView is the round as one connection may see it: its own hand in full,
// other hands only through SeatView.HandCount.
type GameView struct {
	Round       int                 `json:"round"`
	CurrentSeat int                 `json:"currentSeat"`
	Dealer      int                 `json:"dealer"`
	PlaysLeft   int                 `json:"playsLeft"`
	DeckCount   int                 `json:"deckCount"`
	Table       []game.Card         `json:"table"`
	Hand        []game.Card         `json:"hand"`
	PileCounts  [game.TeamCount]int `json:"pileCounts"`
	Chkobbas    [game.TeamCount]int `json:"chkobbas"`
	LastPlay    *PlayView           `json:"lastPlay,omitempty"`
}

type ReplayView struct {
	Votes int  `json:"votes"`
	Total int  `json:"total"`
	Voted bool `json:"voted"`
}

type RoomView struct {
	Code       string              `json:"code"`
	Phase      Phase               `json:"phase"`
	Settings   Settings            `json:"settings"`
	YourSeat   int                 `json:"yourSeat"`
	IsHost     bool                `json:"isHost"`
	Seats      []SeatView          `json:"seats"`
	Scores     [game.TeamCount]int `json:"scores"`
	Game       *GameView           `json:"game,omitempty"`
	Replay     *ReplayView         `json:"replay,omitempty"`
	LastResult *game.RoundResult   `json:"lastResult,omitempty"`
}

func (r *Room) exportLocked(connectionID string) RoomView {
	yourSeat, seated := r.seatByConn[connectionID]
	if !seated {
		yourSeat = -1
	}
	gs := currentGame(r.state)

	view := RoomView{
		Code:       r.code,
		Phase:      r.state.phase(),
		Settings:   r.settings,
		YourSeat:   yourSeat,
		IsHost:     connectionID != "" && connectionID == r.host,
		Seats:      make([]SeatView, 0, game.SeatCount),
		Scores:     r.scores,
		LastResult: r.lastResult,
	}
	var handCounts [game.SeatCount]int
	if gs != nil {
		handCounts = gs.HandCounts()
	}
	for seat, conn := range r.seats {
		sv := SeatView{Seat: seat, Team: game.TeamOf(seat).String()}
		if conn != "" {
			p := r.deps.profiles.Lookup(conn)
			sv.Occupied = true
			sv.Nickname = p.Nickname
			sv.Avatar = p.Avatar
			_, sv.Connected = r.subscribers[conn]
		}
		sv.HandCount = handCounts[seat]
		view.Seats = append(view.Seats, sv)
	}

	if gs != nil {
		gv := &GameView{
			Round:       gs.Round,
			CurrentSeat: gs.CurrentSeat,
			Dealer:      gs.Dealer,
			PlaysLeft:   gs.PlaysLeft,
			DeckCount:   len(gs.Deck),
			Table:       append([]game.Card{}, gs.Table...),
			Hand:        []game.Card{},
			Chkobbas:    gs.Chkobbas,
			LastPlay:    r.lastPlay,
		}
		for team, pile := range gs.Piles {
			gv.PileCounts[team] = len(pile)
		}
		if seated {
			gv.Hand = append(gv.Hand, gs.Hands[yourSeat]...)
		}
		view.Game = gv
	}

	if st, ok := r.state.(*awaitingReplayVotes); ok {
		view.Replay = &ReplayView{
			Votes: len(st.votes),
			Total: r.seatedCountLocked(),
			Voted: seated && st.votes[yourSeat],
		}
	}
	return view
}
