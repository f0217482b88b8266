package game

import "fmt"

type Suit string

const (
	Spades   Suit = "spades"
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
)

var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

type Rank string

const (
	RankAce   Rank = "A"
	RankTwo   Rank = "2"
	RankThree Rank = "3"
	RankFour  Rank = "4"
	RankFive  Rank = "5"
	RankSix   Rank = "6"
	RankSeven Rank = "7"
	RankQueen Rank = "Q"
	RankJack  Rank = "J"
	RankKing  Rank = "K"
)

var Ranks = []Rank{RankAce, RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven, RankQueen, RankJack, RankKing}

// Points: A=1, numerals at face value, Q=8, J=9, K=10.
var rankValues = map[Rank]int{
	RankAce:   1,
	RankTwo:   2,
	RankThree: 3,
	RankFour:  4,
	RankFive:  5,
	RankSix:   6,
	RankSeven: 7,
	RankQueen: 8,
	RankJack:  9,
	RankKing:  10,
}

// Value returns the capture value of the rank, 0 for unknown ranks.
func (r Rank) Value() int {
	return rankValues[r]
}

// Card is immutable once built.
type Card struct {
	ID    string `json:"id"`
	Suit  Suit   `json:"suit"`
	Rank  Rank   `json:"rank"`
	Value int    `json:"value"`
}

func NewCard(id string, suit Suit, rank Rank) Card {
	return Card{ID: id, Suit: suit, Rank: rank, Value: rank.Value()}
}

func (c Card) Is(suit Suit, rank Rank) bool {
	return c.Suit == suit && c.Rank == rank
}

func (c Card) String() string {
	return fmt.Sprintf("%s-%s", c.Rank, c.Suit)
}

func indexOfCard(cards []Card, id string) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func removeIndexes(cards []Card, drop map[int]bool) []Card {
	out := make([]Card, 0, len(cards))
	for i, c := range cards {
		if drop[i] {
			continue
		}
		out = append(out, c)
	}
	return out
}
