package game

import (
	"fmt"

	appErr "chkobba-service/pkg/errors"
)

// Play is one seat's intent. Combination is optional; an empty slice means
// the resolver chooses.
type Play struct {
	Seat        int
	CardID      string
	Combination []string
}

// Outcome holds the deltas of a play. Hand and Table are fresh slices that
// replace the acting hand and the table when applied.
type Outcome struct {
	Seat     int
	Played   Card
	Captured []Card
	Chkobba  bool
	Hand     []Card
	Table    []Card
	NextSeat int
}

func (o Outcome) IsCapture() bool {
	return len(o.Captured) > 0
}

type Resolver struct {
	order TurnOrder
}

func NewResolver(order TurnOrder) *Resolver {
	if len(order) == 0 {
		order = DefaultTurnOrder
	}
	return &Resolver{order: order}
}

// Resolve computes the outcome of play against gs without touching gs.
//
// A table card equal in value to the played card is always captured on its
// own, whatever combination the caller sent. Only when no such card exists
// is a combination considered: the caller's, which must sum exactly, or the
// first one FindCombination meets.
func (r *Resolver) Resolve(gs *GameState, play Play) (Outcome, error) {
	if play.Seat < 0 || play.Seat >= SeatCount {
		return Outcome{}, fmt.Errorf("seat %d: %w", play.Seat, appErr.ErrInvalidCard)
	}
	hand := gs.Hands[play.Seat]
	handIdx := indexOfCard(hand, play.CardID)
	if handIdx < 0 {
		return Outcome{}, appErr.ErrInvalidCard
	}
	played := hand[handIdx]

	capture, err := r.selectCapture(gs.Table, played, play.Combination)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Seat:     play.Seat,
		Played:   played,
		Hand:     removeIndexes(hand, map[int]bool{handIdx: true}),
		NextSeat: r.order.Next(play.Seat),
	}
	if len(capture) == 0 {
		out.Table = append(append([]Card(nil), gs.Table...), played)
		return out, nil
	}

	drop := make(map[int]bool, len(capture))
	out.Captured = make([]Card, 0, len(capture))
	for _, idx := range capture {
		drop[idx] = true
		out.Captured = append(out.Captured, gs.Table[idx])
	}
	out.Table = removeIndexes(gs.Table, drop)
	out.Chkobba = len(out.Table) == 0
	return out, nil
}

// selectCapture returns table indexes to capture, or nil for no capture.
func (r *Resolver) selectCapture(table []Card, played Card, explicit []string) ([]int, error) {
	if idx := singleMatch(table, played.Value, explicit); idx >= 0 {
		return []int{idx}, nil
	}
	if len(explicit) > 0 {
		return explicitCombination(table, played.Value, explicit)
	}
	return FindCombination(table, played.Value), nil
}

// singleMatch honours an explicit pick of exactly one equal-valued card so
// the player can choose between duplicates; otherwise the first equal card
// in table order wins.
func singleMatch(table []Card, value int, explicit []string) int {
	if len(explicit) == 1 {
		if idx := indexOfCard(table, explicit[0]); idx >= 0 && table[idx].Value == value {
			return idx
		}
	}
	for i, c := range table {
		if c.Value == value {
			return i
		}
	}
	return -1
}

func explicitCombination(table []Card, target int, ids []string) ([]int, error) {
	seen := make(map[int]bool, len(ids))
	indexes := make([]int, 0, len(ids))
	sum := 0
	for _, id := range ids {
		idx := indexOfCard(table, id)
		if idx < 0 {
			return nil, fmt.Errorf("card %s not on table: %w", id, appErr.ErrInvalidCombination)
		}
		if seen[idx] {
			return nil, fmt.Errorf("card %s selected twice: %w", id, appErr.ErrInvalidCombination)
		}
		seen[idx] = true
		indexes = append(indexes, idx)
		sum += table[idx].Value
	}
	if sum != target {
		return nil, fmt.Errorf("selection sums to %d, card is worth %d: %w", sum, target, appErr.ErrInvalidCombination)
	}
	return indexes, nil
}

// FindCombination returns the first subset of table (as ascending indexes)
// whose values sum to target, or nil. The search walks table order,
// including a card before trying without it, and abandons a branch once its
// sum passes target. When several subsets qualify the one returned is
// whichever this walk meets first; clients rely on that ordering.
func FindCombination(table []Card, target int) []int {
	if target <= 0 {
		return nil
	}
	chosen := make([]int, 0, len(table))
	var walk func(i, sum int) bool
	walk = func(i, sum int) bool {
		if sum == target {
			return len(chosen) > 0
		}
		if i == len(table) || sum > target {
			return false
		}
		chosen = append(chosen, i)
		if next := sum + table[i].Value; next <= target && walk(i+1, next) {
			return true
		}
		chosen = chosen[:len(chosen)-1]
		return walk(i+1, sum)
	}
	if !walk(0, 0) {
		return nil
	}
	return append([]int(nil), chosen...)
}
