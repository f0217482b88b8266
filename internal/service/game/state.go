package game

import "fmt"

const (
	SeatCount     = 4
	TeamCount     = 2
	HandSize      = 3
	TableDealSize = 4
	// SubDealPlays is the number of plays that empty every hand once.
	SubDealPlays = SeatCount * HandSize
)

// Team indexes capture piles and scores. Seats 0 and 2 play for TeamA.
type Team int

const (
	NoTeam Team = -1
	TeamA  Team = 0
	TeamB  Team = 1
)

func TeamOf(seat int) Team {
	return Team(seat % TeamCount)
}

func (t Team) String() string {
	switch t {
	case TeamA:
		return "team_a"
	case TeamB:
		return "team_b"
	default:
		return "none"
	}
}

// TurnOrder lists seats in playing order.
type TurnOrder []int

var DefaultTurnOrder = TurnOrder{0, 1, 2, 3}

// Next returns the seat after seat. Seats missing from the order fall back
// to index order.
func (o TurnOrder) Next(seat int) int {
	for i, s := range o {
		if s == seat {
			return o[(i+1)%len(o)]
		}
	}
	return (seat + 1) % SeatCount
}

// GameState is the authoritative state of one round. The room coordinator
// owns it; nothing else mutates it.
type GameState struct {
	Round       int
	Deck        []Card
	Table       []Card
	Hands       [SeatCount][]Card
	Piles       [TeamCount][]Card
	Chkobbas    [TeamCount]int
	Scores      [TeamCount]int
	CurrentSeat int
	Dealer      int
	PlaysLeft   int
	LastCapture Team
}

// NewRound deals a fresh round from an already shuffled deck: three passes
// of one card per seat, then four face-up table cards. The seat after the
// dealer opens.
func NewRound(deck []Card, round, dealer int, scores [TeamCount]int) *GameState {
	if len(deck) != DeckSize {
		panic(fmt.Sprintf("game: new round needs %d cards, got %d", DeckSize, len(deck)))
	}
	gs := &GameState{
		Round:       round,
		Deck:        append([]Card(nil), deck...),
		Scores:      scores,
		Dealer:      dealer,
		CurrentSeat: DefaultTurnOrder.Next(dealer),
		LastCapture: NoTeam,
	}
	gs.dealHands()
	gs.Table = gs.draw(TableDealSize)
	gs.PlaysLeft = SubDealPlays
	return gs
}

// CanDealAgain reports whether the remaining deck covers another sub-deal.
func (gs *GameState) CanDealAgain() bool {
	return len(gs.Deck) >= SubDealPlays
}

// DealSubRound refills every hand with three cards, rotates the dealer and
// resets the sub-deal counter. No table cards are dealt.
func (gs *GameState) DealSubRound() {
	gs.dealHands()
	gs.Dealer = (gs.Dealer + 1) % SeatCount
	gs.PlaysLeft = SubDealPlays
}

func (gs *GameState) dealHands() {
	for pass := 0; pass < HandSize; pass++ {
		for seat := 0; seat < SeatCount; seat++ {
			gs.Hands[seat] = append(gs.Hands[seat], gs.draw(1)...)
		}
	}
}

// draw panics on an exhausted deck: the dealing arithmetic never allows it.
func (gs *GameState) draw(n int) []Card {
	if n > len(gs.Deck) {
		panic(fmt.Sprintf("game: dealing %d cards from a deck of %d", n, len(gs.Deck)))
	}
	out := append([]Card(nil), gs.Deck[:n]...)
	gs.Deck = gs.Deck[n:]
	return out
}

// Apply commits a resolved play. A suppressed chkobba still clears the table
// but does not count.
func (gs *GameState) Apply(o Outcome, suppressChkobba bool) {
	gs.Hands[o.Seat] = o.Hand
	gs.Table = o.Table
	if o.IsCapture() {
		team := TeamOf(o.Seat)
		gs.Piles[team] = append(gs.Piles[team], o.Captured...)
		gs.Piles[team] = append(gs.Piles[team], o.Played)
		gs.LastCapture = team
		if o.Chkobba && !suppressChkobba {
			gs.Chkobbas[team]++
		}
	}
	gs.CurrentSeat = o.NextSeat
	gs.PlaysLeft--
}

// SweepTable hands the leftover table to the last capturing team. Nothing
// moves when no capture happened during the round.
func (gs *GameState) SweepTable() []Card {
	if gs.LastCapture == NoTeam || len(gs.Table) == 0 {
		return nil
	}
	swept := gs.Table
	gs.Piles[gs.LastCapture] = append(gs.Piles[gs.LastCapture], swept...)
	gs.Table = nil
	return swept
}

// CardCount sums every zone holding cards for this round.
func (gs *GameState) CardCount() int {
	n := len(gs.Deck) + len(gs.Table)
	for _, h := range gs.Hands {
		n += len(h)
	}
	for _, p := range gs.Piles {
		n += len(p)
	}
	return n
}

// HandCounts exposes hand sizes without card identities.
func (gs *GameState) HandCounts() [SeatCount]int {
	var counts [SeatCount]int
	for i, h := range gs.Hands {
		counts[i] = len(h)
	}
	return counts
}
